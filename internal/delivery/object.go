package delivery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"media-toolkit/internal/logging"
	"media-toolkit/internal/media"
	"media-toolkit/internal/pipeline"
)

// ObjectConfig configures the S3-compatible bucket used by the object strategy.
type ObjectConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLExpiry time.Duration
}

// objectStore is the subset of *minio.Client the strategy uses.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration, params url.Values) (*url.URL, error)
}

// Object uploads the artifact and answers with a presigned GET URL.
type Object struct {
	store  objectStore
	bucket string
	expiry time.Duration
}

// NewObject connects to the object store and makes sure the bucket exists.
func NewObject(ctx context.Context, config ObjectConfig) (*Object, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("object delivery requires MINIO_ENDPOINT")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}
	return newObjectWithStore(ctx, client, config.Bucket, config.URLExpiry)
}

func newObjectWithStore(ctx context.Context, store objectStore, bucket string, expiry time.Duration) (*Object, error) {
	if bucket == "" {
		bucket = "media-toolkit"
	}
	if expiry <= 0 {
		expiry = time.Hour
	}

	o := &Object{store: store, bucket: bucket, expiry: expiry}
	if err := o.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Object) ensureBucket(ctx context.Context) error {
	exists, err := o.store.BucketExists(ctx, o.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", o.bucket, err)
	}
	if exists {
		logging.Debug("Bucket %s already exists", o.bucket)
		return nil
	}
	if err := o.store.MakeBucket(ctx, o.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", o.bucket, err)
	}
	logging.Info("Created bucket %s", o.bucket)
	return nil
}

func (o *Object) Name() Mode { return ModeObject }

// Dir keeps the artifact in the job directory; the upload is the delivery.
func (o *Object) Dir(workDir string) string { return workDir }

// Bucket returns the bucket artifacts are uploaded to.
func (o *Object) Bucket() string { return o.bucket }

// objectKey scopes each upload by job id so equal filenames never overwrite.
func objectKey(res *pipeline.Result) string {
	return path.Join(res.Job.ID, res.Artifact.Filename)
}

func (o *Object) Deliver(w http.ResponseWriter, r *http.Request, res *pipeline.Result) error {
	ctx := r.Context()
	key := objectKey(res)

	info, err := o.store.FPutObject(ctx, o.bucket, key, res.Artifact.Path, minio.PutObjectOptions{
		ContentType: media.GetMimeType(res.Artifact.Filename),
	})
	if err != nil {
		observe(ModeObject, err, 0)
		return fmt.Errorf("upload %s: %w", key, err)
	}

	params := url.Values{}
	params.Set("response-content-disposition", ContentDisposition(res.Artifact.Filename))
	link, err := o.store.PresignedGetObject(ctx, o.bucket, key, o.expiry, params)
	if err != nil {
		observe(ModeObject, err, 0)
		return fmt.Errorf("presign %s: %w", key, err)
	}

	res.Job.Log().Info("Uploaded %s to %s/%s", res.Artifact.Filename, o.bucket, key)
	err = writeJSON(w, http.StatusOK, LinkResponse{
		Success:     true,
		DownloadURL: link.String(),
		Filename:    res.Artifact.Filename,
	})
	observe(ModeObject, err, info.Size)
	return err
}
