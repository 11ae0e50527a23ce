package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage implements Storage using a MinIO (or any S3-compatible)
// backend. The bucket plays the role of the storage zone; object keys are
// the hierarchical part below it.
type MinioStorage struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// NewMinioStorage creates a MinIO client, ensures the bucket exists, and
// returns a ready-to-use MinioStorage.
func NewMinioStorage(endpoint, accessKey, secretKey, bucket, publicBase string, useSSL bool) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx := context.Background()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		log.Printf("storage: created bucket %q", bucket)
	}

	return &MinioStorage{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// Upload streams reader to MinIO under key. size must be the exact byte
// count (pass -1 only if the size is genuinely unknown — MinIO will buffer it).
func (s *MinioStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("%w: put object %q: %v", ErrWriteFailed, key, err)
	}
	return nil
}

// Fetch opens the object at key for streaming reads. minio defers the
// actual request until the first read, so probe with Stat to surface
// missing objects as ErrNotFound here rather than later.
func (s *MinioStorage) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.StatusCode == 404 {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: stat object %q: %v", ErrReadFailed, key, err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get object %q: %v", ErrReadFailed, key, err)
	}
	return obj, nil
}

// Delete removes the object at key. S3 deletes are idempotent, so an
// absent object is already a success.
func (s *MinioStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: remove object %q: %v", ErrDeleteFailed, key, err)
	}
	return nil
}

// PublicURL returns the CDN-servable URL for the given key.
func (s *MinioStorage) PublicURL(key string) string {
	return s.publicBase + "/" + key
}
