package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/store"
)

// DownloadStore is a goroutine-safe in-memory store.DownloadStore.
type DownloadStore struct {
	mu        sync.RWMutex
	downloads map[uuid.UUID]*domain.Download
	logger    *slog.Logger
}

// Ensure DownloadStore implements store.DownloadStore interface
var _ store.DownloadStore = (*DownloadStore)(nil)

// NewDownloadStore creates an empty store. If logger is nil, slog.Default() is used.
func NewDownloadStore(logger *slog.Logger) *DownloadStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DownloadStore{
		downloads: make(map[uuid.UUID]*domain.Download),
		logger:    logger.With(slog.String("component", "download_store"), slog.String("driver", "memory")),
	}
}

// Create implements store.DownloadStore.Create
func (s *DownloadStore) Create(_ context.Context, d *domain.Download) error {
	if d.ID == uuid.Nil || d.OwnerID == uuid.Nil || d.GenerationID == uuid.Nil {
		return fmt.Errorf("%w: download is missing an identifier", store.ErrInvalidEntity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.downloads[d.ID]; ok {
		return fmt.Errorf("%w: download %s", store.ErrDuplicate, d.ID)
	}
	s.downloads[d.ID] = d.Clone()
	return nil
}

// GetByID implements store.DownloadStore.GetByID
func (s *DownloadStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Download, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.downloads[id]
	if !ok {
		return nil, store.ErrDownloadNotFound
	}
	return d.Clone(), nil
}

// Claim implements store.DownloadStore.Claim
func (s *DownloadStore) Claim(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.downloads[id]
	if !ok {
		return false, store.ErrDownloadNotFound
	}
	if d.Status != domain.JobStatusPending {
		return false, nil
	}
	d.Status = domain.JobStatusProcessing
	d.UpdatedAt = at.UTC()
	return true, nil
}

// Complete implements store.DownloadStore.Complete
func (s *DownloadStore) Complete(_ context.Context, id uuid.UUID, file domain.FileInfo, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.downloads[id]
	if !ok {
		return store.ErrDownloadNotFound
	}
	if d.Status != domain.JobStatusProcessing {
		return fmt.Errorf("%w: complete on %s download", store.ErrInvalidTransition, d.Status)
	}

	completed := at.UTC()
	d.Status = domain.JobStatusCompleted
	d.FileName = file.FileName
	d.FileSizeBytes = file.SizeBytes
	d.BlobRef = file.BlobRef
	d.ContentType = file.ContentType
	d.ErrorMessage = ""
	d.CompletedAt = &completed
	d.UpdatedAt = completed
	return nil
}

// Fail implements store.DownloadStore.Fail
func (s *DownloadStore) Fail(_ context.Context, id uuid.UUID, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.downloads[id]
	if !ok {
		return store.ErrDownloadNotFound
	}
	if d.Status.IsTerminal() {
		return fmt.Errorf("%w: fail on %s download", store.ErrInvalidTransition, d.Status)
	}
	d.Status = domain.JobStatusFailed
	d.ErrorMessage = reason
	d.UpdatedAt = at.UTC()
	return nil
}

// ListExpired implements store.DownloadStore.ListExpired
func (s *DownloadStore) ListExpired(_ context.Context, now time.Time) ([]*domain.Download, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []*domain.Download
	for _, d := range s.downloads {
		if d.IsExpired(now) {
			expired = append(expired, d.Clone())
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ExpiresAt.Before(expired[j].ExpiresAt) })
	return expired, nil
}

// DeleteIfBlob implements store.DownloadStore.DeleteIfBlob
func (s *DownloadStore) DeleteIfBlob(_ context.Context, id uuid.UUID, blobRef string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.downloads[id]
	if !ok {
		return false, store.ErrDownloadNotFound
	}
	if d.BlobRef != blobRef {
		return false, nil
	}
	delete(s.downloads, id)
	return true, nil
}

// FindByStatus implements store.DownloadStore.FindByStatus
func (s *DownloadStore) FindByStatus(_ context.Context, status domain.JobStatus, olderThan time.Time) ([]*domain.Download, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []*domain.Download
	for _, d := range s.downloads {
		if d.Status != status {
			continue
		}
		if !olderThan.IsZero() && !d.UpdatedAt.Before(olderThan) {
			continue
		}
		found = append(found, d.Clone())
	}
	sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.Before(found[j].CreatedAt) })
	return found, nil
}

// CountByOwner implements store.DownloadStore.CountByOwner
func (s *DownloadStore) CountByOwner(_ context.Context, ownerID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, d := range s.downloads {
		if d.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}
