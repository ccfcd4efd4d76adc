package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned when no blob exists under the requested key.
var ErrNotFound = errors.New("blob not found")

// ErrInvalidKey is returned for keys that are empty, absolute or escape the store root.
var ErrInvalidKey = errors.New("invalid blob key")

// Store persists opaque files addressed by slash-separated keys.
type Store interface {
	// Put writes r under key, replacing any existing blob, and returns the size written.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (int64, error)

	// Open returns a reader for the blob under key. Returns ErrNotFound if it does not exist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the blob under key. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, key string) error
}

// ValidateKey rejects keys that could resolve outside the store.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if path.Clean(key) != key {
		return fmt.Errorf("%w: %q is not clean", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
