package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"media-toolkit/internal/command"
	"media-toolkit/internal/logging"
	"media-toolkit/internal/metrics"
)

// UserAgent is sent to extractors that reject unknown clients.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// YTDLP fetches through the yt-dlp command line tool.
type YTDLP struct {
	path          string
	retries       int
	socketTimeout time.Duration
	runner        command.Runner
}

// NewYTDLP creates a yt-dlp backed fetcher.
func NewYTDLP(config Config) *YTDLP {
	return NewYTDLPWithRunner(config, command.ExecRunner{})
}

// NewYTDLPWithRunner creates a yt-dlp fetcher that runs commands through runner.
func NewYTDLPWithRunner(config Config, runner command.Runner) *YTDLP {
	y := &YTDLP{
		path:          config.YTDLPPath,
		retries:       config.Retries,
		socketTimeout: config.SocketTimeout,
		runner:        runner,
	}
	if y.path == "" {
		y.path = "yt-dlp"
	}
	if y.retries <= 0 {
		y.retries = 10
	}
	if y.socketTimeout <= 0 {
		y.socketTimeout = 30 * time.Second
	}
	return y
}

// Backend implements Fetcher.
func (y *YTDLP) Backend() Backend {
	return BackendYTDLP
}

type ytdlpFormat struct {
	FormatID string `json:"format_id"`
	Ext      string `json:"ext"`
	VCodec   string `json:"vcodec"`
	Height   *int   `json:"height"`
	Filesize *int64 `json:"filesize"`
}

type ytdlpInfo struct {
	Title     string        `json:"title"`
	Thumbnail string        `json:"thumbnail"`
	Duration  *float64      `json:"duration"`
	Uploader  string        `json:"uploader"`
	ViewCount *int64        `json:"view_count"`
	Formats   []ytdlpFormat `json:"formats"`
}

func (y *YTDLP) commonArgs() []string {
	return []string{
		"--no-check-certificates",
		"--no-warnings",
		"--socket-timeout", strconv.Itoa(int(y.socketTimeout.Seconds())),
		"--user-agent", UserAgent,
		"--extractor-args", "youtube:player_client=android,web",
	}
}

// Inspect reads metadata and formats without downloading.
func (y *YTDLP) Inspect(ctx context.Context, url string) (*Info, error) {
	args := append([]string{"-J", "--skip-download", "--ignore-errors", "--flat-playlist"}, y.commonArgs()...)
	args = append(args, "--", url)

	start := time.Now()
	res, err := y.runner.Run(ctx, y.path, args...)
	observe(BackendYTDLP, "inspect", start, err)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp inspect: %w", err)
	}

	raw, err := decodeInfo(res.Stdout)
	if err != nil {
		return nil, err
	}

	formats := make([]rawFormat, 0, len(raw.Formats))
	for _, f := range raw.Formats {
		rf := rawFormat{Ext: f.Ext, VCodec: f.VCodec}
		if f.Height != nil {
			rf.Height = *f.Height
		}
		if f.Filesize != nil {
			rf.Size = *f.Filesize
		}
		formats = append(formats, rf)
	}

	return &Info{
		Metadata: Metadata{
			Title:        strPtr(raw.Title),
			ThumbnailURL: strPtr(raw.Thumbnail),
			Duration:     raw.Duration,
			Uploader:     strPtr(raw.Uploader),
			ViewCount:    raw.ViewCount,
		},
		Formats: projectFormats(formats),
	}, nil
}

// Fetch downloads url at or below quality, merged into an mp4 at destPath.
func (y *YTDLP) Fetch(ctx context.Context, url, quality, destPath string) (*Download, error) {
	args := []string{
		"-f", Selector(quality),
		"--merge-output-format", "mp4",
		"--remux-video", "mp4",
		"--retries", strconv.Itoa(y.retries),
		"--no-playlist",
		"--print-json",
		"-o", destPath,
	}
	args = append(args, y.commonArgs()...)
	// everything after -- is a URL, never an option
	args = append(args, "--", url)

	start := time.Now()
	res, err := y.runner.Run(ctx, y.path, args...)
	if err != nil {
		observe(BackendYTDLP, "fetch", start, err)
		return nil, fmt.Errorf("yt-dlp download: %w", err)
	}

	raw, err := decodeInfo(lastJSONLine(res.Stdout))
	if err != nil {
		logging.Debug("yt-dlp printed no usable metadata: %v", err)
		raw = &ytdlpInfo{}
	}

	path, err := locateOutput(destPath)
	observe(BackendYTDLP, "fetch", start, err)
	if err != nil {
		return nil, err
	}

	dl := &Download{
		Path:     path,
		Title:    orDefault(raw.Title, DefaultTitle),
		Uploader: orDefault(raw.Uploader, DefaultUploader),
	}
	if raw.Duration != nil {
		dl.Duration = time.Duration(*raw.Duration * float64(time.Second))
	}
	if fi, err := os.Stat(path); err == nil {
		dl.Size = fi.Size()
		metrics.FetchedBytes.Add(float64(dl.Size))
	}

	logging.Info("Downloaded %q by %s (%s) in %v", dl.Title, dl.Uploader,
		humanize.Bytes(uint64(dl.Size)), time.Since(start).Round(time.Millisecond))
	return dl, nil
}

func decodeInfo(s string) (*ytdlpInfo, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil, fmt.Errorf("yt-dlp returned no metadata")
	}
	var info ytdlpInfo
	if err := json.Unmarshal([]byte(s), &info); err != nil {
		return nil, fmt.Errorf("parse yt-dlp output: %w", err)
	}
	return &info, nil
}

func lastJSONLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); strings.HasPrefix(l, "{") {
			return l
		}
	}
	return ""
}

// locateOutput returns destPath. A sibling in another container means the
// remux was skipped and the file cannot be delivered as mp4.
func locateOutput(destPath string) (string, error) {
	if _, err := os.Stat(destPath); err == nil {
		return destPath, nil
	}

	stem := strings.TrimSuffix(destPath, filepath.Ext(destPath))
	if matches, _ := filepath.Glob(stem + ".*"); len(matches) > 0 {
		return "", fmt.Errorf("yt-dlp wrote %s instead of an mp4", filepath.Base(matches[0]))
	}
	return "", fmt.Errorf("downloaded file not found at %s", destPath)
}

func observe(backend Backend, op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.FetchOperationsTotal.WithLabelValues(string(backend), op, status).Inc()
	metrics.FetchOperationDuration.WithLabelValues(string(backend), op).Observe(time.Since(start).Seconds())
}
