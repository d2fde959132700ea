package storage

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"reelpress/internal/config"
	"reelpress/internal/logging"
	"reelpress/internal/services"
)

// S3 publishes artifacts to an S3-compatible endpoint via the MinIO client.
type S3 struct {
	cfg    *config.Config
	client *minio.Client
	logger *slog.Logger
}

// NewS3 constructs the S3 backend. The endpoint is host:port without scheme;
// storage.use_ssl selects https.
func NewS3(cfg *config.Config, logger *slog.Logger) (*S3, error) {
	endpoint := strings.TrimSpace(cfg.Storage.Endpoint)
	if endpoint == "" {
		return nil, services.Wrap(
			services.ErrConfiguration,
			"storage",
			"build s3 client",
			"storage.endpoint is required for the s3 backend",
			nil,
		)
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
		Region: strings.TrimSpace(cfg.Storage.Region),
	})
	if err != nil {
		return nil, services.Wrap(
			services.ErrConfiguration,
			"storage",
			"build s3 client",
			fmt.Sprintf("Invalid storage endpoint %q", endpoint),
			err,
		)
	}
	backendLogger := logger
	if backendLogger != nil {
		backendLogger = backendLogger.With(logging.String(logging.FieldComponent, "storage"))
	}
	return &S3{cfg: cfg, client: client, logger: backendLogger}, nil
}

func (s *S3) EnsureReady(ctx context.Context) error {
	bucket := s.bucket()
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return services.Wrap(
			services.ErrTransient,
			"storage",
			"check bucket",
			fmt.Sprintf("Failed to reach storage endpoint %q", s.cfg.Storage.Endpoint),
			err,
		)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: strings.TrimSpace(s.cfg.Storage.Region)}); err != nil {
		return services.Wrap(
			services.ErrTransient,
			"storage",
			"create bucket",
			fmt.Sprintf("Failed to create bucket %q", bucket),
			err,
		)
	}
	if s.logger != nil {
		s.logger.Info("created storage bucket", logging.String("bucket", bucket))
	}
	return nil
}

func (s *S3) Upload(ctx context.Context, localPath, key, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := s.client.FPutObject(ctx, s.bucket(), key, localPath, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", services.Wrap(
			services.ErrTransient,
			"storage",
			"upload object",
			fmt.Sprintf("Failed to upload %q to bucket %q", key, s.bucket()),
			err,
		)
	}
	if s.logger != nil {
		s.logger.Info(
			"uploaded artifact",
			logging.String("bucket", s.bucket()),
			logging.String("storage_key", key),
			logging.Int64("object_bytes", info.Size),
		)
	}
	return s.PublicURL(key), nil
}

func (s *S3) PublicURL(key string) string {
	base := strings.TrimRight(strings.TrimSpace(s.cfg.Storage.PublicBaseURL), "/")
	if base == "" {
		scheme := "http"
		if s.cfg.Storage.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s", scheme, strings.TrimSpace(s.cfg.Storage.Endpoint))
	}
	return fmt.Sprintf("%s/%s/%s", base, s.bucket(), key)
}

func (s *S3) bucket() string {
	return strings.TrimSpace(s.cfg.Storage.Bucket)
}

var _ Service = (*S3)(nil)
