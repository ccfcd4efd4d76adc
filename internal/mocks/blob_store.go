package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/phrazzld/exercise-api/internal/platform/blob"
)

// MockBlobStore implements blob.Store. Methods without an Fn override
// delegate to an in-memory store so that writes can be read back.
type MockBlobStore struct {
	*blob.MemoryStore

	PutFn    func(ctx context.Context, key string, r io.Reader, contentType string) (int64, error)
	OpenFn   func(ctx context.Context, key string) (io.ReadCloser, error)
	DeleteFn func(ctx context.Context, key string) error

	mu          sync.Mutex
	PutKeys     []string
	DeletedKeys []string
}

var _ blob.Store = (*MockBlobStore)(nil)

// NewMockBlobStore creates a MockBlobStore backed by a fresh MemoryStore.
func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{MemoryStore: blob.NewMemoryStore()}
}

// Put implements blob.Store.
func (m *MockBlobStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (int64, error) {
	m.mu.Lock()
	m.PutKeys = append(m.PutKeys, key)
	m.mu.Unlock()

	if m.PutFn != nil {
		return m.PutFn(ctx, key, r, contentType)
	}
	return m.MemoryStore.Put(ctx, key, r, contentType)
}

// Open implements blob.Store.
func (m *MockBlobStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if m.OpenFn != nil {
		return m.OpenFn(ctx, key)
	}
	return m.MemoryStore.Open(ctx, key)
}

// Delete implements blob.Store.
func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	m.DeletedKeys = append(m.DeletedKeys, key)
	m.mu.Unlock()

	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, key)
	}
	return m.MemoryStore.Delete(ctx, key)
}

// Deleted returns a copy of the keys passed to Delete.
func (m *MockBlobStore) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.DeletedKeys...)
}
