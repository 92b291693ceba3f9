// Package snapshot exports a novel view as JSON to S3-compatible storage and
// hands out pre-signed download URLs. When storage is not configured (empty
// bucket) the NoopUploader is used and exports stay local.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hyperengineering/codex/internal/config"
)

// ErrNotConfigured is returned when export storage is not configured.
var ErrNotConfigured = errors.New("export storage not configured")

// Uploader stores export documents and generates pre-signed download URLs.
type Uploader interface {
	// Upload stores body under key.
	Upload(ctx context.Context, key string, body []byte) error

	// PresignedURL returns a pre-signed URL for downloading key.
	// Returns ErrNotConfigured when storage is not configured.
	PresignedURL(ctx context.Context, key string) (url string, expiry time.Time, err error)
}

// s3Client defines the minimal minio.Client operations used by S3Uploader.
type s3Client interface {
	PutObject(ctx context.Context, bucket, objectName string, r io.Reader, size int64, contentType string) error
	PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error)
}

// minioClientWrapper wraps *minio.Client to satisfy the s3Client interface.
type minioClientWrapper struct {
	client *minio.Client
}

func (w *minioClientWrapper) PutObject(ctx context.Context, bucket, objectName string, r io.Reader, size int64, contentType string) error {
	_, err := w.client.PutObject(ctx, bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (w *minioClientWrapper) PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error) {
	return w.client.PresignedGetObject(ctx, bucket, objectName, expiry, nil)
}

// S3Uploader uploads exports to S3-compatible storage.
type S3Uploader struct {
	client    s3Client
	bucket    string
	urlExpiry time.Duration
}

// Upload stores body as a JSON object under key.
func (u *S3Uploader) Upload(ctx context.Context, key string, body []byte) error {
	if err := u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
		return fmt.Errorf("upload export to S3: %w", err)
	}
	return nil
}

// PresignedURL returns a pre-signed GET URL for key.
func (u *S3Uploader) PresignedURL(ctx context.Context, key string) (string, time.Time, error) {
	presigned, err := u.client.PresignedGetObject(ctx, u.bucket, key, u.urlExpiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate pre-signed URL: %w", err)
	}
	expiry := time.Now().Add(u.urlExpiry)
	return presigned.String(), expiry, nil
}

// NoopUploader is used when export storage is not configured.
type NoopUploader struct{}

// Upload is a no-op when storage is not configured.
func (u *NoopUploader) Upload(ctx context.Context, key string, body []byte) error {
	return nil
}

// PresignedURL returns ErrNotConfigured.
func (u *NoopUploader) PresignedURL(ctx context.Context, key string) (string, time.Time, error) {
	return "", time.Time{}, ErrNotConfigured
}

// NewUploader creates the appropriate Uploader based on configuration.
// Returns NoopUploader when bucket is empty, S3Uploader otherwise.
func NewUploader(cfg config.ExportConfig) (Uploader, error) {
	if cfg.Bucket == "" {
		return &NoopUploader{}, nil
	}

	useSSL := true
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}
	endpoint := stripScheme(cfg.Endpoint, &useSSL)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Uploader{
		client:    &minioClientWrapper{client: client},
		bucket:    cfg.Bucket,
		urlExpiry: time.Duration(cfg.URLExpiry),
	}, nil
}

// stripScheme removes an http(s) scheme from endpoint. An explicit scheme
// decides whether TLS is used.
func stripScheme(endpoint string, useSSL *bool) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		*useSSL = true
		return strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		*useSSL = false
		return strings.TrimPrefix(endpoint, "http://")
	default:
		return endpoint
	}
}
