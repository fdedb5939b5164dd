package media

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

const ffprobeJSON = `{
  "streams": [
    {"codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720},
    {"codec_type": "audio", "codec_name": "aac"}
  ],
  "format": {"duration": "212.480000"}
}`

func TestInspect(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{stdout: ffprobeJSON}
	enc := NewEncoderWithRunner(EncoderConfig{FFprobePath: "/opt/ffprobe"}, runner)

	info, err := enc.Inspect(context.Background(), "/tmp/job/source.mp4")
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}

	if runner.calls[0].name != "/opt/ffprobe" {
		t.Errorf("binary = %s, want /opt/ffprobe", runner.calls[0].name)
	}
	if want := 212480 * time.Millisecond; info.Duration != want {
		t.Errorf("Duration = %v, want %v", info.Duration, want)
	}
	if !info.HasVideo || !info.HasAudio {
		t.Errorf("stream flags = video:%v audio:%v", info.HasVideo, info.HasAudio)
	}
	if info.Codec != "h264" || info.Width != 1280 || info.Height != 720 {
		t.Errorf("video info = %+v", info)
	}
}

func TestInspectStreamDurationFallback(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{stdout: `{"streams":[{"codec_type":"audio","duration":"4.5"}],"format":{}}`}
	info, err := NewEncoderWithRunner(EncoderConfig{}, runner).Inspect(context.Background(), "voice.mp3")
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if info.Duration != 4500*time.Millisecond {
		t.Errorf("Duration = %v", info.Duration)
	}
	if info.HasVideo {
		t.Error("audio file should not report video")
	}
}

func TestInspectNoDuration(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{stdout: `{"streams":[],"format":{"duration":"N/A"}}`}
	_, err := NewEncoderWithRunner(EncoderConfig{}, runner).Inspect(context.Background(), "x.mp4")
	if !errors.Is(err, ErrNoDuration) {
		t.Errorf("Inspect() error = %v, want ErrNoDuration", err)
	}
}

func TestInspectRunnerError(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: errors.New("exit status 1")}
	if _, err := NewEncoderWithRunner(EncoderConfig{}, runner).Inspect(context.Background(), "x.mp4"); err == nil {
		t.Error("expected error")
	}
}

func TestRenderArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		clip     Clip
		dest     string
		contains []string
		excludes []string
	}{
		{
			name:     "Trimmed video keeps source audio",
			clip:     Clip{Source: "src.mp4", Duration: 30 * time.Second},
			dest:     "out.mp4",
			contains: []string{"-i src.mp4", "-t 30.000", "-c:v libx264", "-preset ultrafast", "-c:a aac", "out.mp4"},
			excludes: []string{"-map", "-ss", "-stream_loop", "apad"},
		},
		{
			name:     "Dub once pads with silence",
			clip:     Clip{Source: "src.mp4", Duration: 90 * time.Second, Audio: "voice.mp3", AudioFit: FitOnce},
			dest:     "out.mp4",
			contains: []string{"-i src.mp4 -i voice.mp3", "-map 0:v:0 -map 1:a:0", "-af apad", "-t 90.000"},
			excludes: []string{"-stream_loop"},
		},
		{
			name:     "Dub loop repeats narration",
			clip:     Clip{Source: "src.mp4", Duration: 90 * time.Second, Audio: "voice.mp3", AudioFit: FitLoop},
			dest:     "out.mp4",
			contains: []string{"-stream_loop -1 -i voice.mp3", "-map 0:v:0 -map 1:a:0", "-t 90.000"},
			excludes: []string{"apad"},
		},
		{
			name:     "Dub without known duration stops with video",
			clip:     Clip{Source: "src.mp4", Audio: "voice.mp3"},
			dest:     "out.mp4",
			contains: []string{"-shortest"},
			excludes: []string{"-t "},
		},
		{
			name:     "Audio segment",
			clip:     Clip{Source: "talk.mp3", Start: 60 * time.Second, Duration: 30 * time.Second},
			dest:     "s_segment_3.mp3",
			contains: []string{"-ss 60.000 -i talk.mp3", "-vn", "-c:a libmp3lame"},
			excludes: []string{"libx264"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			enc := NewEncoderWithRunner(EncoderConfig{}, runner)
			if err := enc.Render(context.Background(), tt.clip, tt.dest); err != nil {
				t.Fatalf("Render() error = %v", err)
			}

			args := runner.lastArgs()
			for _, want := range tt.contains {
				if !strings.Contains(args, want) {
					t.Errorf("args %q missing %q", args, want)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(args, unwanted) {
					t.Errorf("args %q should not contain %q", args, unwanted)
				}
			}
			if runner.calls[0].name != "ffmpeg" {
				t.Errorf("binary = %s, want ffmpeg", runner.calls[0].name)
			}
		})
	}
}

func TestRenderThreads(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	enc := NewEncoderWithRunner(EncoderConfig{Threads: 2}, runner)
	if err := enc.Render(context.Background(), NewClip("a.mp4", time.Second), "b.mp4"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(runner.lastArgs(), "-threads 2 b.mp4") {
		t.Errorf("args = %q", runner.lastArgs())
	}
}

func TestRenderError(t *testing.T) {
	t.Parallel()

	boom := errors.New("encoder crashed")
	runner := &fakeRunner{err: boom}
	err := NewEncoderWithRunner(EncoderConfig{}, runner).Render(context.Background(), NewClip("a.mp4", time.Second), "b.mp4")
	if !errors.Is(err, boom) {
		t.Errorf("Render() error = %v, want wrapped %v", err, boom)
	}
}
