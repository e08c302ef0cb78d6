package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// objectPutter is the slice of *minio.Client the uploader uses.
type objectPutter interface {
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type ObjectStoreConfig struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// ObjectStoreUploader stores clips in an S3-compatible bucket under Prefix.
type ObjectStoreUploader struct {
	client objectPutter
	bucket string
	prefix string
	logger *slog.Logger
}

func NewObjectStoreUploader(cfg ObjectStoreConfig, logger *slog.Logger) (*ObjectStoreUploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}
	return newObjectStoreUploader(client, cfg.Bucket, cfg.Prefix, logger), nil
}

func newObjectStoreUploader(client objectPutter, bucket, prefix string, logger *slog.Logger) *ObjectStoreUploader {
	return &ObjectStoreUploader{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

// Key returns the object key a local file is stored under.
func (u *ObjectStoreUploader) Key(filePath string) string {
	name := filepath.Base(filePath)
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}

func (u *ObjectStoreUploader) Upload(ctx context.Context, filePath string) (*UploadResult, error) {
	key := u.Key(filePath)
	info, err := u.client.FPutObject(ctx, u.bucket, key, filePath, minio.PutObjectOptions{
		ContentType: contentType(filePath),
	})
	if err != nil {
		return nil, fmt.Errorf("put %s/%s: %w", u.bucket, key, err)
	}

	u.logger.Info("uploaded clip to object store",
		"bucket", u.bucket,
		"key", key,
		"size", humanize.Bytes(uint64(info.Size)),
	)
	return &UploadResult{
		Name:        filepath.Base(filePath),
		Destination: "object_store",
		Location:    fmt.Sprintf("s3://%s/%s", u.bucket, key),
		Size:        info.Size,
	}, nil
}
