package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kkdai/youtube/v2"

	"media-toolkit/internal/logging"
	"media-toolkit/internal/metrics"
	"media-toolkit/internal/retry"
)

// videoSource is the subset of the YouTube client the backend needs.
type videoSource interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

// YouTube fetches through the native YouTube client without external tools.
// Only progressive (audio+video) streams are downloaded so no muxing is needed.
type YouTube struct {
	client videoSource
	retry  retry.Config
}

// NewYouTube creates a native YouTube fetcher.
func NewYouTube(config Config) *YouTube {
	timeout := config.SocketTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &youtube.Client{HTTPClient: &http.Client{Timeout: 10 * timeout}}
	return newYouTubeWithSource(client, config)
}

func newYouTubeWithSource(src videoSource, config Config) *YouTube {
	rc := retry.DefaultConfig()
	if config.Retries > 0 {
		rc.MaxRetries = config.Retries
	}
	rc.Retryable = isTransient
	return &YouTube{client: src, retry: rc}
}

// Backend implements Fetcher.
func (y *YouTube) Backend() Backend {
	return BackendYouTube
}

// isTransient reports whether a YouTube error may succeed on retry.
func isTransient(err error) bool {
	switch {
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed),
		errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength),
		errors.Is(err, context.Canceled):
		return false
	}
	var statusErr *youtube.ErrPlayabiltyStatus
	return !errors.As(err, &statusErr)
}

func (y *YouTube) video(ctx context.Context, url string) (*youtube.Video, error) {
	var video *youtube.Video
	err := retry.Do(ctx, "fetch", y.retry, func(int) error {
		v, err := y.client.GetVideoContext(ctx, url)
		if err != nil {
			return err
		}
		video = v
		return nil
	})
	return video, err
}

// Inspect reads metadata and the mp4 formats of a video.
func (y *YouTube) Inspect(ctx context.Context, url string) (*Info, error) {
	start := time.Now()
	video, err := y.video(ctx, url)
	observe(BackendYouTube, "inspect", start, err)
	if err != nil {
		return nil, fmt.Errorf("youtube inspect: %w", err)
	}

	formats := make([]rawFormat, 0, len(video.Formats))
	for _, f := range video.Formats {
		formats = append(formats, rawFormat{
			Height: f.Height,
			Ext:    mimeExt(f.MimeType),
			Size:   f.ContentLength,
		})
	}

	info := &Info{
		Metadata: Metadata{
			Title:    strPtr(video.Title),
			Uploader: strPtr(video.Author),
		},
		Formats: projectFormats(formats),
	}
	if n := len(video.Thumbnails); n > 0 {
		info.ThumbnailURL = strPtr(video.Thumbnails[n-1].URL)
	}
	if video.Duration > 0 {
		d := video.Duration.Seconds()
		info.Duration = &d
	}
	if video.Views > 0 {
		v := int64(video.Views)
		info.ViewCount = &v
	}
	return info, nil
}

// Fetch downloads the best progressive mp4 at or below quality.
func (y *YouTube) Fetch(ctx context.Context, url, quality, destPath string) (*Download, error) {
	start := time.Now()
	dl, err := y.fetch(ctx, url, quality, destPath)
	observe(BackendYouTube, "fetch", start, err)
	if err != nil {
		return nil, fmt.Errorf("youtube download: %w", err)
	}

	logging.Info("Downloaded %q by %s (%s) in %v", dl.Title, dl.Uploader,
		humanize.Bytes(uint64(dl.Size)), time.Since(start).Round(time.Millisecond))
	return dl, nil
}

func (y *YouTube) fetch(ctx context.Context, url, quality, destPath string) (*Download, error) {
	video, err := y.video(ctx, url)
	if err != nil {
		return nil, err
	}

	format := pickProgressive(video.Formats, ParseQuality(quality))
	if format == nil {
		return nil, fmt.Errorf("no progressive stream available for %s", video.ID)
	}
	logging.Debug("Selected itag %d (%s) for %s", format.ItagNo, format.QualityLabel, video.ID)

	var written int64
	err = retry.Do(ctx, "fetch", y.retry, func(int) error {
		n, err := y.download(ctx, video, format, destPath)
		written = n
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.FetchedBytes.Add(float64(written))

	return &Download{
		Path:     destPath,
		Title:    orDefault(video.Title, DefaultTitle),
		Uploader: orDefault(video.Author, DefaultUploader),
		Duration: video.Duration,
		Size:     written,
	}, nil
}

func (y *YouTube) download(ctx context.Context, video *youtube.Video, format *youtube.Format, destPath string) (int64, error) {
	stream, _, err := y.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := stream.Close(); err != nil {
			logging.Debug("failed to close stream: %v", err)
		}
	}()

	file, err := os.Create(destPath)
	if err != nil {
		return 0, retry.Permanent(fmt.Errorf("create %s: %w", destPath, err))
	}

	n, err := io.Copy(file, stream)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// pickProgressive returns the tallest mp4 with audio at or below maxHeight,
// falling back to the tallest mp4 with audio of any height. maxHeight 0
// means no limit.
func pickProgressive(formats youtube.FormatList, maxHeight int) *youtube.Format {
	var best, fallback *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 || f.Height == 0 || mimeExt(f.MimeType) != "mp4" {
			continue
		}
		if fallback == nil || f.Height > fallback.Height {
			fallback = f
		}
		if maxHeight > 0 && f.Height > maxHeight {
			continue
		}
		if best == nil || f.Height > best.Height {
			best = f
		}
	}
	if best != nil {
		return best
	}
	return fallback
}

// mimeExt maps `video/mp4; codecs="..."` to "mp4".
func mimeExt(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	_, sub, ok := strings.Cut(strings.TrimSpace(base), "/")
	if !ok {
		return ""
	}
	return sub
}
