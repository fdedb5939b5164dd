package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"media-toolkit/internal/command"
	"media-toolkit/internal/logging"
	"media-toolkit/internal/metrics"
)

// ErrNoDuration is returned when ffprobe reports no usable duration.
var ErrNoDuration = errors.New("media has no duration")

// Info describes an inspected file.
type Info struct {
	Duration time.Duration
	Width    int
	Height   int
	Codec    string
	HasVideo bool
	HasAudio bool
}

// EncoderConfig configures an Encoder.
type EncoderConfig struct {
	FFmpegPath  string
	FFprobePath string
	Threads     int
	Preset      string
}

// Encoder renders clip plans with ffmpeg and inspects files with ffprobe.
type Encoder struct {
	config EncoderConfig
	runner command.Runner
}

// NewEncoder creates an encoder backed by the system ffmpeg/ffprobe.
func NewEncoder(config EncoderConfig) *Encoder {
	return NewEncoderWithRunner(config, command.ExecRunner{})
}

// NewEncoderWithRunner creates an encoder that runs commands through runner.
func NewEncoderWithRunner(config EncoderConfig, runner command.Runner) *Encoder {
	if config.FFmpegPath == "" {
		config.FFmpegPath = "ffmpeg"
	}
	if config.FFprobePath == "" {
		config.FFprobePath = "ffprobe"
	}
	if config.Preset == "" {
		config.Preset = "ultrafast"
	}
	return &Encoder{config: config, runner: runner}
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// Inspect reads duration and stream information from path.
func (e *Encoder) Inspect(ctx context.Context, path string) (*Info, error) {
	res, err := e.runner.Run(ctx, e.config.FFprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}

	var out ffprobeOutput
	if err := json.Unmarshal([]byte(res.Stdout), &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &Info{}
	seconds := parseSeconds(out.Format.Duration)
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if !info.HasVideo {
				info.HasVideo = true
				info.Codec = s.CodecName
				info.Width = s.Width
				info.Height = s.Height
			}
		case "audio":
			info.HasAudio = true
		}
		if seconds <= 0 {
			seconds = parseSeconds(s.Duration)
		}
	}
	if seconds <= 0 {
		return info, ErrNoDuration
	}
	info.Duration = time.Duration(seconds * float64(time.Second))

	return info, nil
}

func parseSeconds(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// Render writes clip to dest. The output container follows dest's extension:
// audio extensions produce an audio-only file, anything else an H.264/AAC mp4.
func (e *Encoder) Render(ctx context.Context, clip Clip, dest string) error {
	args := e.renderArgs(clip, dest)

	start := time.Now()
	_, err := e.runner.Run(ctx, e.config.FFmpegPath, args...)
	metrics.EncoderRunDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.EncoderRunsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("render %s: %w", filepath.Base(dest), err)
	}

	metrics.EncoderRunsTotal.WithLabelValues("success").Inc()
	logging.Debug("Rendered %s (%v from %v, dubbed=%v) in %v",
		filepath.Base(dest), clip.Duration, clip.Start, clip.Dubbed(), time.Since(start))
	return nil
}

func (e *Encoder) renderArgs(clip Clip, dest string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}

	if clip.Start > 0 {
		args = append(args, "-ss", formatSeconds(clip.Start))
	}
	args = append(args, "-i", clip.Source)

	audioOnly := GetFileType(dest) == FileTypeAudio

	if clip.Dubbed() {
		if clip.AudioFit == FitLoop {
			args = append(args, "-stream_loop", "-1")
		}
		args = append(args, "-i", clip.Audio)
		if audioOnly {
			args = append(args, "-map", "1:a:0")
		} else {
			args = append(args, "-map", "0:v:0", "-map", "1:a:0")
		}
		if clip.AudioFit != FitLoop {
			args = append(args, "-af", "apad")
		}
	}

	switch {
	case clip.Duration > 0:
		args = append(args, "-t", formatSeconds(clip.Duration))
	case clip.Dubbed():
		// padded or looped audio never ends on its own
		args = append(args, "-shortest")
	}

	if audioOnly {
		args = append(args, "-vn")
		args = append(args, audioCodecArgs(dest)...)
	} else {
		args = append(args,
			"-c:v", "libx264",
			"-preset", e.config.Preset,
			"-c:a", "aac",
			"-movflags", "+faststart",
		)
	}
	if e.config.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(e.config.Threads))
	}

	return append(args, dest)
}

func audioCodecArgs(dest string) []string {
	switch strings.ToLower(filepath.Ext(dest)) {
	case ".mp3":
		return []string{"-c:a", "libmp3lame", "-q:a", "4"}
	case ".wav":
		return []string{"-c:a", "pcm_s16le"}
	default:
		return []string{"-c:a", "aac"}
	}
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
