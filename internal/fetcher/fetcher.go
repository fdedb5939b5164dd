package fetcher

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	// DefaultTitle names downloads whose source reports no title.
	DefaultTitle = "video"
	// DefaultUploader is used when the source reports no uploader.
	DefaultUploader = "Unknown Creator"

	maxFormats = 6
)

// Backend names a fetcher implementation.
type Backend string

const (
	// BackendYTDLP shells out to yt-dlp.
	BackendYTDLP Backend = "ytdlp"
	// BackendYouTube uses the native YouTube client.
	BackendYouTube Backend = "youtube"
)

// Format is one selectable quality.
type Format struct {
	FormatID string `json:"format_id"`
	Quality  string `json:"quality"`
	// SizeEstimate is megabytes rounded to two decimals, or "?" when unknown.
	SizeEstimate any `json:"mb"`
}

// Metadata describes a source without downloading it. Missing values are nil.
type Metadata struct {
	Title        *string  `json:"title"`
	ThumbnailURL *string  `json:"thumbnail"`
	Duration     *float64 `json:"duration"`
	Uploader     *string  `json:"uploader"`
	ViewCount    *int64   `json:"views"`
}

// Info is the metadata read by Inspect.
type Info struct {
	Metadata
	Formats []Format `json:"formats"`
}

// Download is a fetched file.
type Download struct {
	Path     string
	Title    string
	Uploader string
	Duration time.Duration
	Size     int64
}

// Fetcher resolves a source URL into metadata or a local file.
type Fetcher interface {
	Inspect(ctx context.Context, url string) (*Info, error)
	Fetch(ctx context.Context, url, quality, destPath string) (*Download, error)
	Backend() Backend
}

// Config configures the fetcher backends.
type Config struct {
	Backend       Backend
	YTDLPPath     string
	Retries       int
	SocketTimeout time.Duration
}

// New creates the fetcher selected by config.Backend.
func New(config Config) (Fetcher, error) {
	switch config.Backend {
	case "", BackendYTDLP:
		return NewYTDLP(config), nil
	case BackendYouTube:
		return NewYouTube(config), nil
	default:
		return nil, fmt.Errorf("unknown fetcher backend %q", config.Backend)
	}
}

// rawFormat is the backend-neutral view of one source format.
type rawFormat struct {
	Height int
	Ext    string
	VCodec string
	Size   int64
}

// projectFormats keeps mp4 video formats with a height, one per height
// (first occurrence wins), sorted from highest to lowest, capped at six.
func projectFormats(raw []rawFormat) []Format {
	usable := lo.Filter(raw, func(f rawFormat, _ int) bool {
		return f.VCodec != "none" && f.Ext == "mp4" && f.Height > 0
	})
	unique := lo.UniqBy(usable, func(f rawFormat) int { return f.Height })
	sort.SliceStable(unique, func(i, j int) bool { return unique[i].Height > unique[j].Height })

	if len(unique) > maxFormats {
		unique = unique[:maxFormats]
	}

	return lo.Map(unique, func(f rawFormat, _ int) Format {
		return Format{
			FormatID:     strconv.Itoa(f.Height),
			Quality:      strconv.Itoa(f.Height) + "p",
			SizeEstimate: sizeEstimate(f.Size),
		}
	})
}

func sizeEstimate(bytes int64) any {
	if bytes <= 0 {
		return "?"
	}
	return math.Round(float64(bytes)/1e6*100) / 100
}

// ParseQuality returns the requested maximum height, or 0 when the request
// means "best available". Non-numeric values are treated as unspecified.
func ParseQuality(quality string) int {
	quality = strings.TrimSuffix(strings.TrimSpace(quality), "p")
	if quality == "" || quality == "best" {
		return 0
	}
	h, err := strconv.Atoi(quality)
	if err != nil || h <= 0 {
		return 0
	}
	return h
}

// Selector builds the yt-dlp format selector for a quality request.
func Selector(quality string) string {
	h := ParseQuality(quality)
	if h == 0 {
		return "bestvideo+bestaudio/best"
	}
	return fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]/best", h, h)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
