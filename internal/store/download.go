package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/domain"
)

// DownloadStore defines the interface for download record persistence.
type DownloadStore interface {
	// Create saves a new pending download.
	Create(ctx context.Context, d *domain.Download) error

	// GetByID retrieves a download. Returns ErrDownloadNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Download, error)

	// Claim atomically moves a pending download to processing.
	// It returns false without error when the download is no longer pending.
	Claim(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// Complete records the stored file and marks the download completed.
	// Returns ErrInvalidTransition unless the download is processing.
	Complete(ctx context.Context, id uuid.UUID, file domain.FileInfo, at time.Time) error

	// Fail marks a pending or processing download failed with reason.
	Fail(ctx context.Context, id uuid.UUID, reason string, at time.Time) error

	// ListExpired returns every download with ExpiresAt <= now, whatever its status.
	ListExpired(ctx context.Context, now time.Time) ([]*domain.Download, error)

	// DeleteIfBlob removes the record only while its BlobRef still equals
	// blobRef. It returns false without error when the record now points at a
	// different file, e.g. an export completed after the caller read it.
	// The caller is responsible for the blob.
	DeleteIfBlob(ctx context.Context, id uuid.UUID, blobRef string) (bool, error)

	// FindByStatus returns downloads in status whose last update is before olderThan.
	// A zero olderThan returns every download in status.
	FindByStatus(ctx context.Context, status domain.JobStatus, olderThan time.Time) ([]*domain.Download, error)

	// CountByOwner returns how many download records ownerID currently has.
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
}
