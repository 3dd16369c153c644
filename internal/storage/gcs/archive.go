// Package gcs archives news snapshots to a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Config captures the bucket settings.
type Config struct {
	Bucket string
	// Endpoint overrides the storage API endpoint (emulators, tests).
	Endpoint string
	// CacheControl is set on every written object. Archived snapshots never
	// change once written.
	CacheControl string
}

// Archive writes snapshot objects to one bucket.
type Archive struct {
	client *storage.Client
	bucket string
	cfg    Config
	logger *zap.Logger
}

// NewClient builds a storage client using Application Default Credentials, or
// an unauthenticated client when an endpoint override is configured.
func NewClient(ctx context.Context, cfg Config) (*storage.Client, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return client, nil
}

// New wraps an existing client.
func New(client *storage.Client, cfg Config, logger *zap.Logger) (*Archive, error) {
	if client == nil {
		return nil, errors.New("storage client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("archive bucket is required")
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "private, max-age=31536000, immutable"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archive{client: client, bucket: cfg.Bucket, cfg: cfg, logger: logger}, nil
}

// PutObject uploads r to path and returns its gs:// URI.
func (a *Archive) PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error) {
	path = strings.TrimPrefix(strings.TrimSpace(path), "/")
	if path == "" {
		return "", errors.New("object path is required")
	}
	w := a.client.Bucket(a.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = a.cfg.CacheControl

	n, err := io.Copy(w, r)
	if err != nil {
		if closeErr := w.Close(); closeErr != nil {
			a.logger.Debug("close gcs writer after failed copy", zap.Error(closeErr))
		}
		return "", fmt.Errorf("write gs://%s/%s: %w", a.bucket, path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize gs://%s/%s: %w", a.bucket, path, err)
	}
	uri := fmt.Sprintf("gs://%s/%s", a.bucket, path)
	a.logger.Debug("snapshot archived", zap.String("uri", uri), zap.Int64("bytes", n))
	return uri, nil
}

// Close releases the underlying client.
func (a *Archive) Close() error {
	if err := a.client.Close(); err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}
