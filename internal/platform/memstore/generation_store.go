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
	"github.com/phrazzld/exercise-api/internal/platform/logger"
	"github.com/phrazzld/exercise-api/internal/store"
)

// GenerationStore is a goroutine-safe in-memory store.GenerationStore.
// Every value crossing the boundary is cloned so callers never share state.
type GenerationStore struct {
	mu        sync.RWMutex
	jobs      map[uuid.UUID]*domain.GenerationJob
	exercises map[uuid.UUID][]*domain.Exercise
	logger    *slog.Logger
}

// Ensure GenerationStore implements store.GenerationStore interface
var _ store.GenerationStore = (*GenerationStore)(nil)

// NewGenerationStore creates an empty store. If logger is nil, slog.Default() is used.
func NewGenerationStore(logger *slog.Logger) *GenerationStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationStore{
		jobs:      make(map[uuid.UUID]*domain.GenerationJob),
		exercises: make(map[uuid.UUID][]*domain.Exercise),
		logger:    logger.With(slog.String("component", "generation_store"), slog.String("driver", "memory")),
	}
}

// Create implements store.GenerationStore.Create
func (s *GenerationStore) Create(ctx context.Context, job *domain.GenerationJob) error {
	if err := job.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("%w: generation %s", store.ErrDuplicate, job.ID)
	}
	s.jobs[job.ID] = job.Clone()

	logger.FromContextOrDefault(ctx, s.logger).Debug("generation created",
		slog.String("generation_id", job.ID.String()))
	return nil
}

// GetByID implements store.GenerationStore.GetByID
func (s *GenerationStore) GetByID(_ context.Context, id uuid.UUID) (*domain.GenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrGenerationNotFound
	}
	return s.snapshot(job), nil
}

// List implements store.GenerationStore.List
func (s *GenerationStore) List(_ context.Context, filter store.GenerationFilter) (*store.GenerationPage, error) {
	if err := filter.Normalize(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.GenerationJob
	for _, job := range s.jobs {
		if filter.Matches(job) {
			matched = append(matched, job)
		}
	}
	sortNewestFirst(matched)

	page := &store.GenerationPage{Total: len(matched), Jobs: []*domain.GenerationJob{}}
	if filter.Offset >= len(matched) {
		return page, nil
	}
	end := min(filter.Offset+filter.Limit, len(matched))
	for _, job := range matched[filter.Offset:end] {
		page.Jobs = append(page.Jobs, s.snapshot(job))
	}
	page.HasMore = end < len(matched)
	return page, nil
}

// ListByOwner implements store.GenerationStore.ListByOwner
func (s *GenerationStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*domain.GenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []*domain.GenerationJob
	for _, job := range s.jobs {
		if job.OwnerID == ownerID {
			owned = append(owned, job)
		}
	}
	sortNewestFirst(owned)

	out := make([]*domain.GenerationJob, 0, len(owned))
	for _, job := range owned {
		out = append(out, s.snapshot(job))
	}
	return out, nil
}

// Claim implements store.GenerationStore.Claim
func (s *GenerationStore) Claim(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return false, store.ErrGenerationNotFound
	}
	if job.Status != domain.JobStatusPending {
		logger.FromContextOrDefault(ctx, s.logger).Debug("generation already claimed",
			slog.String("generation_id", id.String()),
			slog.String("status", string(job.Status)))
		return false, nil
	}

	started := at.UTC()
	job.Status = domain.JobStatusProcessing
	job.StartedAt = &started
	job.UpdatedAt = started
	return true, nil
}

// UpdateProgress implements store.GenerationStore.UpdateProgress
func (s *GenerationStore) UpdateProgress(_ context.Context, id uuid.UUID, percent float64, at time.Time) error {
	if percent < 0 || percent > 100 {
		return domain.NewValidationError("progress_percent", "must be between 0 and 100", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return store.ErrGenerationNotFound
	}
	if job.Status != domain.JobStatusProcessing {
		return fmt.Errorf("%w: progress update on %s generation", store.ErrInvalidTransition, job.Status)
	}
	if percent > job.ProgressPercent {
		job.ProgressPercent = percent
		job.UpdatedAt = at.UTC()
	}
	return nil
}

// Complete implements store.GenerationStore.Complete
func (s *GenerationStore) Complete(ctx context.Context, id uuid.UUID, exercises []*domain.Exercise, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return store.ErrGenerationNotFound
	}
	if job.Status != domain.JobStatusProcessing {
		return fmt.Errorf("%w: complete on %s generation", store.ErrInvalidTransition, job.Status)
	}

	stored := make([]*domain.Exercise, 0, len(exercises))
	for _, e := range exercises {
		if e.GenerationID != id {
			return fmt.Errorf("%w: exercise %s belongs to generation %s", store.ErrInvalidEntity, e.ID, e.GenerationID)
		}
		stored = append(stored, e.Clone())
	}

	completed := at.UTC()
	job.Status = domain.JobStatusCompleted
	job.ProgressPercent = 100
	job.ErrorMessage = ""
	job.CompletedAt = &completed
	job.UpdatedAt = completed
	if job.StartedAt != nil {
		d := completed.Sub(*job.StartedAt).Seconds()
		job.GenerationDurationSeconds = &d
	}
	s.exercises[id] = stored

	logger.FromContextOrDefault(ctx, s.logger).Debug("generation completed",
		slog.String("generation_id", id.String()),
		slog.Int("exercise_count", len(stored)))
	return nil
}

// Fail implements store.GenerationStore.Fail
func (s *GenerationStore) Fail(_ context.Context, id uuid.UUID, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return store.ErrGenerationNotFound
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("%w: fail on %s generation", store.ErrInvalidTransition, job.Status)
	}

	job.Status = domain.JobStatusFailed
	job.ErrorMessage = reason
	job.UpdatedAt = at.UTC()
	delete(s.exercises, id)
	return nil
}

// SetFavorite implements store.GenerationStore.SetFavorite
func (s *GenerationStore) SetFavorite(_ context.Context, id uuid.UUID, favorite bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return store.ErrGenerationNotFound
	}
	job.IsFavorite = favorite
	job.UpdatedAt = at.UTC()
	return nil
}

// Delete implements store.GenerationStore.Delete
func (s *GenerationStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return store.ErrGenerationNotFound
	}
	delete(s.jobs, id)
	delete(s.exercises, id)
	return nil
}

// GetExercises implements store.GenerationStore.GetExercises
func (s *GenerationStore) GetExercises(_ context.Context, generationID uuid.UUID) ([]*domain.Exercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.jobs[generationID]; !ok {
		return nil, store.ErrGenerationNotFound
	}
	stored := s.exercises[generationID]
	out := make([]*domain.Exercise, 0, len(stored))
	for _, e := range stored {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// FindByStatus implements store.GenerationStore.FindByStatus
func (s *GenerationStore) FindByStatus(_ context.Context, status domain.JobStatus, olderThan time.Time) ([]*domain.GenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []*domain.GenerationJob
	for _, job := range s.jobs {
		if job.Status != status {
			continue
		}
		if !olderThan.IsZero() && !job.UpdatedAt.Before(olderThan) {
			continue
		}
		found = append(found, s.snapshot(job))
	}
	sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.Before(found[j].CreatedAt) })
	return found, nil
}

// snapshot clones job and fills the derived exercise count. Callers hold mu.
func (s *GenerationStore) snapshot(job *domain.GenerationJob) *domain.GenerationJob {
	c := job.Clone()
	c.ExerciseCount = len(s.exercises[job.ID])
	return c
}

func sortNewestFirst(jobs []*domain.GenerationJob) {
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
		}
		return jobs[i].ID.String() > jobs[j].ID.String()
	})
}
