package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"media-toolkit/internal/pipeline"
	"media-toolkit/internal/streaming"
)

func newResult(t *testing.T, dir, filename, content string) *pipeline.Result {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return &pipeline.Result{
		Job: &pipeline.Job{ID: "0f8fad5b-d9cb-469f-a165-70867728950e", WorkDir: dir},
		Artifact: pipeline.Artifact{
			Path:     path,
			Filename: filename,
			Size:     int64(len(content)),
		},
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		cloud   bool
		want    Mode
		wantErr bool
	}{
		{"", false, ModePersist, false},
		{"", true, ModeRelocate, false},
		{"STREAM", false, ModeStream, false},
		{" object ", true, ModeObject, false},
		{"persist", true, ModePersist, false},
		{"ftp", false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in, tt.cloud)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPersistDeliver(t *testing.T) {
	dir := t.TempDir()
	s := NewPersist(dir)
	if s.Dir("/tmp/job") != dir {
		t.Errorf("Dir() = %s, want %s", s.Dir("/tmp/job"), dir)
	}

	res := newResult(t, dir, "My Video_Segmented.mp4", "data")
	w := httptest.NewRecorder()
	if err := s.Deliver(w, httptest.NewRequest(http.MethodPost, "/api/process", nil), res); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	var body FilesResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || len(body.Files) != 1 || body.Files[0].Filename != "My Video_Segmented.mp4" {
		t.Errorf("body = %+v", body)
	}
}

func TestRelocateDeliver(t *testing.T) {
	dir := t.TempDir()
	s := NewRelocate(dir)

	res := newResult(t, dir, "My Video & more.mp4", "data")
	w := httptest.NewRecorder()
	if err := s.Deliver(w, httptest.NewRequest(http.MethodPost, "/api/process", nil), res); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	var body LinkResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Filename != "My Video & more.mp4" {
		t.Errorf("Filename = %q", body.Filename)
	}

	u, err := url.Parse(body.DownloadURL)
	if err != nil {
		t.Fatal(err)
	}
	if u.Path != DownloadRoute {
		t.Errorf("path = %s, want %s", u.Path, DownloadRoute)
	}
	if got := u.Query().Get("file"); got != "My Video & more.mp4" {
		t.Errorf("file param = %q", got)
	}
}

func TestStreamDeliver(t *testing.T) {
	dir := t.TempDir()
	s := NewStream(streaming.DefaultConfig())
	if s.Dir(dir) != dir {
		t.Error("stream strategy should keep the artifact in the job dir")
	}

	res := newResult(t, dir, "Clip_AIDubbed.mp4", "video-bytes")
	w := httptest.NewRecorder()
	if err := s.Deliver(w, httptest.NewRequest(http.MethodPost, "/api/process", nil), res); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	if w.Body.String() != "video-bytes" {
		t.Errorf("body = %q", w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="Clip_AIDubbed.mp4"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := w.Header().Get("Content-Length"); got != "11" {
		t.Errorf("Content-Length = %q", got)
	}
}

func TestStreamDeliverMissingFile(t *testing.T) {
	res := &pipeline.Result{
		Job:      &pipeline.Job{ID: "x"},
		Artifact: pipeline.Artifact{Path: filepath.Join(t.TempDir(), "gone.mp4"), Filename: "gone.mp4"},
	}
	w := httptest.NewRecorder()
	if err := NewStream(streaming.DefaultConfig()).Deliver(w, httptest.NewRequest(http.MethodPost, "/", nil), res); err == nil {
		t.Error("expected error for a missing artifact")
	}
	if w.Body.Len() != 0 {
		t.Error("nothing should be written when the artifact cannot be opened")
	}
}

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"clip.mp4", `attachment; filename="clip.mp4"`},
		{"My Video.mp4", `attachment; filename="My Video.mp4"`},
		{"Café.mp4", `attachment; filename="Caf_.mp4"; filename*=UTF-8''Caf%C3%A9.mp4`},
	}
	for _, tt := range tests {
		if got := ContentDisposition(tt.in); got != tt.want {
			t.Errorf("ContentDisposition(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type fakeStore struct {
	exists     bool
	existsErr  error
	made       []string
	putErr     error
	putKey     string
	putPath    string
	putType    string
	presignKey string
	params     url.Values
	expiry     time.Duration
}

func (f *fakeStore) BucketExists(context.Context, string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)
	return nil
}

func (f *fakeStore) FPutObject(_ context.Context, _, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	f.putKey, f.putPath, f.putType = object, filePath, opts.ContentType
	fi, err := os.Stat(filePath)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	return minio.UploadInfo{Key: object, Size: fi.Size()}, nil
}

func (f *fakeStore) PresignedGetObject(_ context.Context, bucket, object string, expiry time.Duration, params url.Values) (*url.URL, error) {
	f.presignKey, f.params, f.expiry = object, params, expiry
	return url.Parse("https://objects.example.com/" + bucket + "/" + object + "?X-Amz-Signature=abc")
}

func TestObjectCreatesMissingBucket(t *testing.T) {
	store := &fakeStore{}
	o, err := newObjectWithStore(context.Background(), store, "", 0)
	if err != nil {
		t.Fatalf("newObjectWithStore() error = %v", err)
	}
	if o.Bucket() != "media-toolkit" || o.expiry != time.Hour {
		t.Errorf("defaults = %s, %v", o.Bucket(), o.expiry)
	}
	if len(store.made) != 1 || store.made[0] != "media-toolkit" {
		t.Errorf("made buckets = %v", store.made)
	}

	existing := &fakeStore{exists: true}
	if _, err := newObjectWithStore(context.Background(), existing, "clips", time.Minute); err != nil {
		t.Fatal(err)
	}
	if len(existing.made) != 0 {
		t.Error("existing bucket must not be recreated")
	}
}

func TestObjectBucketCheckError(t *testing.T) {
	store := &fakeStore{existsErr: errors.New("access denied")}
	if _, err := newObjectWithStore(context.Background(), store, "clips", 0); err == nil {
		t.Error("expected error when the bucket cannot be checked")
	}
}

func TestObjectDeliver(t *testing.T) {
	store := &fakeStore{exists: true}
	o, err := newObjectWithStore(context.Background(), store, "clips", 15*time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	res := newResult(t, dir, "Clip.mp4", "payload")
	w := httptest.NewRecorder()
	if err := o.Deliver(w, httptest.NewRequest(http.MethodPost, "/api/process", nil), res); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	wantKey := res.Job.ID + "/Clip.mp4"
	if store.putKey != wantKey || store.presignKey != wantKey {
		t.Errorf("keys = %s / %s, want %s", store.putKey, store.presignKey, wantKey)
	}
	if store.putPath != res.Artifact.Path || store.putType != "video/mp4" {
		t.Errorf("upload = %s (%s)", store.putPath, store.putType)
	}
	if store.expiry != 15*time.Minute {
		t.Errorf("expiry = %v", store.expiry)
	}
	if got := store.params.Get("response-content-disposition"); !strings.Contains(got, "Clip.mp4") {
		t.Errorf("content disposition param = %q", got)
	}

	var body LinkResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || !strings.HasPrefix(body.DownloadURL, "https://objects.example.com/clips/") || body.Filename != "Clip.mp4" {
		t.Errorf("body = %+v", body)
	}
}

func TestObjectDeliverUploadError(t *testing.T) {
	store := &fakeStore{exists: true, putErr: errors.New("connection refused")}
	o, err := newObjectWithStore(context.Background(), store, "clips", 0)
	if err != nil {
		t.Fatal(err)
	}

	res := newResult(t, t.TempDir(), "Clip.mp4", "payload")
	w := httptest.NewRecorder()
	if err := o.Deliver(w, httptest.NewRequest(http.MethodPost, "/", nil), res); err == nil {
		t.Error("expected upload error")
	}
	if w.Body.Len() != 0 {
		t.Error("nothing should be written on upload failure")
	}
}

func TestNewRequiresEndpointForObject(t *testing.T) {
	if _, err := New(context.Background(), Config{Mode: ModeObject}); err == nil {
		t.Error("expected error without an endpoint")
	}

	s, err := New(context.Background(), Config{Mode: ModeRelocate, FinalDir: "/downloads"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != ModeRelocate || s.Dir("/tmp/job") != "/downloads" {
		t.Errorf("strategy = %s, %s", s.Name(), s.Dir("/tmp/job"))
	}
}
