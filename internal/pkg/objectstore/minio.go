package objectstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vkuksa/product-catalog/internal/config"
	"github.com/vkuksa/product-catalog/internal/domain"
	"github.com/vkuksa/product-catalog/internal/pkg/logger"
)

// presignedURLExpiry is how long a minted read URL stays valid
const presignedURLExpiry = 60 * time.Minute

// Store wraps a MinIO client for a single bucket. Works against any
// S3-compatible endpoint (MinIO, AWS S3, LocalStack).
type Store struct {
	client *minio.Client
	bucket string
	logger *logger.Logger
}

// New creates an object store client from configuration
func New(cfg *config.Config, log *logger.Logger) (*Store, error) {
	client, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	return &Store{
		client: client,
		bucket: cfg.Storage.Bucket,
		logger: log,
	}, nil
}

// EnsureBucket provisions the configured bucket, a no-op when it already
// exists. Callers treat a failure here as fatal at startup.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: checking bucket %q: %v", domain.ErrStorageProvision, s.bucket, err)
	}

	if exists {
		s.logger.Debugf("Bucket %s already exists", s.bucket)
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("%w: creating bucket %q: %v", domain.ErrStorageProvision, s.bucket, err)
	}

	s.logger.Infof("Created bucket %s", s.bucket)
	return nil
}

// Upload streams bytes to the named object, overwriting any existing one
func (s *Store) Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("%w: uploading %q: %v", domain.ErrStorageUpload, name, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"bucket": s.bucket,
		"object": name,
		"size":   size,
	}).Debug("Uploaded object")

	return nil
}

// PresignedURL returns a time-limited read URL for the named object.
// The object is not checked for existence: a URL for a missing object is
// minted anyway and will 404 when fetched.
func (s *Store) PresignedURL(ctx context.Context, name string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, name, presignedURLExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign URL for %q: %w", name, err)
	}
	return u.String(), nil
}
