package fetcher

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kkdai/youtube/v2"
)

type fakeSource struct {
	video       *youtube.Video
	videoErrs   []error
	streamErr   error
	videoCalls  int
	streamCalls int
	selected    *youtube.Format
}

func (f *fakeSource) GetVideoContext(_ context.Context, _ string) (*youtube.Video, error) {
	f.videoCalls++
	if len(f.videoErrs) > 0 {
		err := f.videoErrs[0]
		f.videoErrs = f.videoErrs[1:]
		return nil, err
	}
	return f.video, nil
}

func (f *fakeSource) GetStreamContext(_ context.Context, _ *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error) {
	f.streamCalls++
	f.selected = format
	if f.streamErr != nil {
		return nil, 0, f.streamErr
	}
	body := "stream-" + format.QualityLabel
	return io.NopCloser(strings.NewReader(body)), int64(len(body)), nil
}

func testVideo() *youtube.Video {
	return &youtube.Video{
		ID:       "abc123",
		Title:    "Native Clip",
		Author:   "Channel",
		Views:    99,
		Duration: 75 * time.Second,
		Thumbnails: youtube.Thumbnails{
			{URL: "https://img/small.jpg"},
			{URL: "https://img/large.jpg"},
		},
		Formats: youtube.FormatList{
			{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, QualityLabel: "360p", Height: 360, AudioChannels: 2, ContentLength: 3_000_000},
			{ItagNo: 22, MimeType: `video/mp4; codecs="avc1.64001F, mp4a.40.2"`, QualityLabel: "720p", Height: 720, AudioChannels: 2},
			{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, QualityLabel: "1080p", Height: 1080},
			{ItagNo: 248, MimeType: `video/webm; codecs="vp9"`, QualityLabel: "1080p", Height: 1080},
			{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, AudioChannels: 2},
		},
	}
}

func fastYouTube(src videoSource) *YouTube {
	y := newYouTubeWithSource(src, Config{})
	y.retry.InitialBackoff = time.Millisecond
	y.retry.MaxBackoff = time.Millisecond
	return y
}

func TestYouTubeInspect(t *testing.T) {
	t.Parallel()

	info, err := fastYouTube(&fakeSource{video: testVideo()}).Inspect(context.Background(), "u")
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}

	ids := make([]string, 0, len(info.Formats))
	for _, f := range info.Formats {
		ids = append(ids, f.FormatID)
	}
	if strings.Join(ids, ",") != "1080,720,360" {
		t.Errorf("formats = %v", ids)
	}
	if *info.ThumbnailURL != "https://img/large.jpg" {
		t.Errorf("ThumbnailURL = %s", *info.ThumbnailURL)
	}
	if *info.Duration != 75 || *info.ViewCount != 99 || *info.Uploader != "Channel" {
		t.Errorf("metadata = %+v", info.Metadata)
	}
}

func TestYouTubeFetchPicksProgressive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		quality  string
		wantItag int
	}{
		{"", 22},
		{"720", 22},
		{"480", 18},
		{"144", 22},
	}

	for _, tt := range tests {
		t.Run("quality "+tt.quality, func(t *testing.T) {
			src := &fakeSource{video: testVideo()}
			dest := filepath.Join(t.TempDir(), "source.mp4")

			dl, err := fastYouTube(src).Fetch(context.Background(), "u", tt.quality, dest)
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if src.selected.ItagNo != tt.wantItag {
				t.Errorf("itag = %d, want %d", src.selected.ItagNo, tt.wantItag)
			}

			data, err := os.ReadFile(dest)
			if err != nil {
				t.Fatal(err)
			}
			if dl.Size != int64(len(data)) || dl.Title != "Native Clip" || dl.Uploader != "Channel" {
				t.Errorf("Download = %+v", dl)
			}
		})
	}
}

func TestYouTubeRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	src := &fakeSource{video: testVideo(), videoErrs: []error{errors.New("connection reset")}}
	if _, err := fastYouTube(src).Inspect(context.Background(), "u"); err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if src.videoCalls != 2 {
		t.Errorf("videoCalls = %d, want 2", src.videoCalls)
	}
}

func TestYouTubePrivateVideoNotRetried(t *testing.T) {
	t.Parallel()

	src := &fakeSource{videoErrs: []error{youtube.ErrVideoPrivate}}
	_, err := fastYouTube(src).Fetch(context.Background(), "u", "", filepath.Join(t.TempDir(), "x.mp4"))
	if !errors.Is(err, youtube.ErrVideoPrivate) {
		t.Errorf("error = %v, want ErrVideoPrivate", err)
	}
	if src.videoCalls != 1 {
		t.Errorf("videoCalls = %d, want 1", src.videoCalls)
	}
}

func TestYouTubeNoProgressiveStream(t *testing.T) {
	t.Parallel()

	video := testVideo()
	video.Formats = youtube.FormatList{video.Formats[2], video.Formats[4]}

	_, err := fastYouTube(&fakeSource{video: video}).Fetch(context.Background(), "u", "", filepath.Join(t.TempDir(), "x.mp4"))
	if err == nil {
		t.Error("expected error without progressive streams")
	}
}

func TestMimeExt(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		`video/mp4; codecs="avc1"`: "mp4",
		"video/webm":               "webm",
		"garbage":                  "",
	}
	for in, want := range tests {
		if got := mimeExt(in); got != want {
			t.Errorf("mimeExt(%q) = %q, want %q", in, got, want)
		}
	}
}
