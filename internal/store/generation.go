package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/domain"
)

// Pagination limits for List operations.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// GenerationFilter selects the generation jobs returned by List.
// OwnerID is mandatory; every other field is optional.
type GenerationFilter struct {
	OwnerID         uuid.UUID
	Subject         string
	Grade           string
	Status          domain.JobStatus
	DifficultyLevel domain.DifficultyLevel
	IsFavorite      *bool
	// CreatedFrom is inclusive, CreatedTo is exclusive.
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// Normalize applies pagination defaults and validates bounds.
func (f *GenerationFilter) Normalize() error {
	if f.OwnerID == uuid.Nil {
		return domain.NewValidationError("owner_id", "cannot be empty", domain.ErrInvalidID)
	}
	if f.Limit == 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit < 1 || f.Limit > MaxPageLimit {
		return domain.NewValidationError("limit", "must be between 1 and 100", nil)
	}
	if f.Offset < 0 {
		return domain.NewValidationError("offset", "must not be negative", nil)
	}
	if f.Status != "" && !f.Status.Valid() {
		return domain.NewValidationError("status", "is invalid", nil)
	}
	if f.DifficultyLevel != "" && !f.DifficultyLevel.Valid() {
		return domain.NewValidationError("difficulty_level", "is invalid", nil)
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil && !f.CreatedFrom.Before(*f.CreatedTo) {
		return domain.NewValidationError("date_from", "must be before date_to", nil)
	}
	return nil
}

// Matches reports whether job satisfies every non-pagination criterion.
func (f *GenerationFilter) Matches(job *domain.GenerationJob) bool {
	switch {
	case job.OwnerID != f.OwnerID:
		return false
	case f.Subject != "" && job.Subject != f.Subject:
		return false
	case f.Grade != "" && job.Grade != f.Grade:
		return false
	case f.Status != "" && job.Status != f.Status:
		return false
	case f.DifficultyLevel != "" && job.DifficultyLevel != f.DifficultyLevel:
		return false
	case f.IsFavorite != nil && job.IsFavorite != *f.IsFavorite:
		return false
	case f.CreatedFrom != nil && job.CreatedAt.Before(*f.CreatedFrom):
		return false
	case f.CreatedTo != nil && !job.CreatedAt.Before(*f.CreatedTo):
		return false
	}
	return true
}

// GenerationPage is one page of List results.
type GenerationPage struct {
	Jobs    []*domain.GenerationJob
	Total   int
	HasMore bool
}

// GenerationStore defines the interface for generation job persistence.
// Jobs are ordered newest first (created_at DESC, id DESC) wherever a list is returned.
type GenerationStore interface {
	// Create saves a new pending job.
	Create(ctx context.Context, job *domain.GenerationJob) error

	// GetByID retrieves a job with its derived ExerciseCount.
	// Returns ErrGenerationNotFound if the job does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationJob, error)

	// List returns one page of the owner's jobs matching filter.
	List(ctx context.Context, filter GenerationFilter) (*GenerationPage, error)

	// ListByOwner returns every job of ownerID in a single read.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.GenerationJob, error)

	// Claim atomically moves a pending job to processing and stamps StartedAt.
	// It returns false without error when the job is no longer pending.
	// Returns ErrGenerationNotFound if the job does not exist.
	Claim(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// UpdateProgress raises ProgressPercent of a processing job. Values lower
	// than the stored progress are ignored so progress never decreases.
	// Returns ErrInvalidTransition if the job is not processing.
	UpdateProgress(ctx context.Context, id uuid.UUID, percent float64, at time.Time) error

	// Complete stores exercises and marks the job completed with progress 100
	// in one atomic step. Returns ErrInvalidTransition unless the job is processing.
	Complete(ctx context.Context, id uuid.UUID, exercises []*domain.Exercise, at time.Time) error

	// Fail marks a pending or processing job failed with reason.
	// Returns ErrInvalidTransition if the job is already terminal.
	Fail(ctx context.Context, id uuid.UUID, reason string, at time.Time) error

	// SetFavorite updates the favourite flag regardless of status.
	SetFavorite(ctx context.Context, id uuid.UUID, favorite bool, at time.Time) error

	// Delete removes the job and its exercises. Downloads are not touched.
	Delete(ctx context.Context, id uuid.UUID) error

	// GetExercises returns the job's exercises ordered by Number.
	GetExercises(ctx context.Context, generationID uuid.UUID) ([]*domain.Exercise, error)

	// FindByStatus returns jobs in status whose last update is before olderThan.
	// A zero olderThan returns every job in status. Results are oldest first.
	FindByStatus(ctx context.Context, status domain.JobStatus, olderThan time.Time) ([]*domain.GenerationJob, error)
}
