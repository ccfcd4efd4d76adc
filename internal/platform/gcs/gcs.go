// Package gcs implements blob.Store on Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"github.com/phrazzld/exercise-api/internal/platform/blob"
	"github.com/phrazzld/exercise-api/internal/platform/logger"
	"google.golang.org/api/option"
)

// Config selects the bucket and, for local development, an emulator endpoint.
type Config struct {
	Bucket       string
	EmulatorHost string
}

// Store is a blob.Store backed by a single GCS bucket.
type Store struct {
	client *storage.Client
	bucket string
	logger *slog.Logger
}

var _ blob.Store = (*Store)(nil)

// New creates a storage client for cfg.Bucket. With EmulatorHost set the
// client talks to that endpoint without credentials.
func New(ctx context.Context, cfg Config, logger *slog.Logger, opts ...option.ClientOption) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs bucket cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.EmulatorHost != "" {
		if err := os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost); err != nil {
			return nil, fmt.Errorf("failed to configure storage emulator: %w", err)
		}
		opts = append(opts, option.WithoutAuthentication())
	} else {
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With(slog.String("component", "blob_store"), slog.String("backend", "gcs")),
	}, nil
}

// Put implements blob.Store.Put
func (s *Store) Put(ctx context.Context, key string, r io.Reader, contentType string) (int64, error) {
	if err := blob.ValidateKey(key); err != nil {
		return 0, err
	}

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return 0, fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("failed to close GCS writer: %w", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("blob stored",
		slog.String("bucket", s.bucket),
		slog.String("key", key),
		slog.Int64("size_bytes", n))
	return n, nil
}

// Open implements blob.Store.Open
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, mapError(err, key)
	}
	return rc, nil
}

// Delete implements blob.Store.Delete
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		return mapError(err, key)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func mapError(err error, key string) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s", blob.ErrNotFound, key)
	}
	return fmt.Errorf("gcs object %q: %w", key, err)
}
