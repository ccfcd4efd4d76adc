package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/clock"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/events"
	"github.com/phrazzld/exercise-api/internal/metrics"
	"github.com/phrazzld/exercise-api/internal/platform/logger"
	"github.com/phrazzld/exercise-api/internal/store"
	"github.com/phrazzld/exercise-api/internal/task"
)

// GenerationService provides generation-job operations. Every read and write
// is scoped to ownerID; records of other users behave as if they did not exist.
type GenerationService interface {
	// SubmitGeneration validates params, stores a pending job and schedules it.
	// It returns as soon as the job is stored.
	SubmitGeneration(ctx context.Context, ownerID uuid.UUID, params domain.GenerationParams) (*domain.GenerationJob, error)

	// GetGeneration returns a snapshot of the job.
	GetGeneration(ctx context.Context, ownerID, id uuid.UUID) (*domain.GenerationJob, error)

	// GetExercises returns the exercises of a completed job ordered by number.
	// Returns ErrGenerationNotReady unless the job is completed.
	GetExercises(ctx context.Context, ownerID, id uuid.UUID) ([]*domain.Exercise, error)

	// ListGenerations returns one page of the owner's jobs. filter.OwnerID is overwritten.
	ListGenerations(ctx context.Context, ownerID uuid.UUID, filter store.GenerationFilter) (*store.GenerationPage, error)

	// SetFavorite updates the favourite flag and returns the updated job.
	SetFavorite(ctx context.Context, ownerID, id uuid.UUID, favorite bool) (*domain.GenerationJob, error)

	// DeleteGeneration removes the job and its exercises. Existing downloads
	// stay valid until they expire.
	DeleteGeneration(ctx context.Context, ownerID, id uuid.UUID) error
}

type generationServiceImpl struct {
	generations  store.GenerationStore
	catalog      *Catalog
	eventEmitter events.EventEmitter
	clock        clock.Clock
	logger       *slog.Logger
}

var _ GenerationService = (*generationServiceImpl)(nil)

// NewGenerationService creates a new GenerationService.
// It returns an error if any of the required dependencies are nil.
func NewGenerationService(
	generations store.GenerationStore,
	catalog *Catalog,
	eventEmitter events.EventEmitter,
	clk clock.Clock,
	logger *slog.Logger,
) (GenerationService, error) {
	if generations == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "generation store cannot be nil"}
	}
	if catalog == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "catalog cannot be nil"}
	}
	if eventEmitter == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "eventEmitter cannot be nil"}
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &generationServiceImpl{
		generations:  generations,
		catalog:      catalog,
		eventEmitter: eventEmitter,
		clock:        clk,
		logger:       logger.With("component", "generation_service"),
	}, nil
}

// SubmitGeneration creates a pending job and emits an event for processing.
func (s *generationServiceImpl) SubmitGeneration(
	ctx context.Context,
	ownerID uuid.UUID,
	params domain.GenerationParams,
) (*domain.GenerationJob, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	job, err := domain.NewGenerationJob(ownerID, params, s.clock.Now())
	if err != nil {
		log.Debug("rejected generation request", "error", err, "user_id", ownerID)
		return nil, err
	}
	if err := s.catalog.Validate(job); err != nil {
		log.Debug("rejected generation request", "error", err, "user_id", ownerID)
		return nil, err
	}

	if err := s.generations.Create(ctx, job); err != nil {
		log.Error("failed to save generation job",
			"error", err,
			"user_id", ownerID,
			"generation_id", job.ID)
		return nil, NewServiceError("submit_generation", "failed to save generation job", err)
	}
	metrics.IncJobSubmitted(metrics.KindGeneration)

	log.Info("generation job created with pending status",
		"generation_id", job.ID,
		"user_id", ownerID,
		"requested_count", job.RequestedCount)

	schedule(ctx, log, s.eventEmitter, task.TaskTypeGeneration, job.ID)
	return job, nil
}

// GetGeneration retrieves a job owned by ownerID.
func (s *generationServiceImpl) GetGeneration(ctx context.Context, ownerID, id uuid.UUID) (*domain.GenerationJob, error) {
	job, err := s.generations.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to retrieve generation job",
				"error", err,
				"generation_id", id)
		}
		return nil, NewServiceError("get_generation", "failed to retrieve generation job", err)
	}
	if !job.OwnedBy(ownerID) {
		return nil, ErrGenerationNotFound
	}
	return job, nil
}

// GetExercises returns the exercises of a completed job.
func (s *generationServiceImpl) GetExercises(ctx context.Context, ownerID, id uuid.UUID) ([]*domain.Exercise, error) {
	job, err := s.GetGeneration(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusCompleted {
		return nil, ErrGenerationNotReady
	}

	exercises, err := s.generations.GetExercises(ctx, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load exercises",
			"error", err,
			"generation_id", id)
		return nil, NewServiceError("get_exercises", "failed to load exercises", err)
	}
	return exercises, nil
}

// ListGenerations returns one page of the owner's jobs.
func (s *generationServiceImpl) ListGenerations(
	ctx context.Context,
	ownerID uuid.UUID,
	filter store.GenerationFilter,
) (*store.GenerationPage, error) {
	filter.OwnerID = ownerID
	if err := filter.Normalize(); err != nil {
		return nil, err
	}

	page, err := s.generations.List(ctx, filter)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list generation jobs",
			"error", err,
			"user_id", ownerID)
		return nil, NewServiceError("list_generations", "failed to list generation jobs", err)
	}
	return page, nil
}

// SetFavorite updates the favourite flag of a job owned by ownerID.
func (s *generationServiceImpl) SetFavorite(
	ctx context.Context,
	ownerID, id uuid.UUID,
	favorite bool,
) (*domain.GenerationJob, error) {
	if _, err := s.GetGeneration(ctx, ownerID, id); err != nil {
		return nil, err
	}
	if err := s.generations.SetFavorite(ctx, id, favorite, s.clock.Now()); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update favourite flag",
			"error", err,
			"generation_id", id)
		return nil, NewServiceError("set_favorite", "failed to update favourite flag", err)
	}
	return s.GetGeneration(ctx, ownerID, id)
}

// DeleteGeneration removes a job owned by ownerID.
func (s *generationServiceImpl) DeleteGeneration(ctx context.Context, ownerID, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.GetGeneration(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.generations.Delete(ctx, id); err != nil {
		log.Error("failed to delete generation job",
			"error", err,
			"generation_id", id)
		return NewServiceError("delete_generation", "failed to delete generation job", err)
	}

	log.Info("generation job deleted", "generation_id", id, "user_id", ownerID)
	return nil
}

// schedule emits a task-request event for a stored pending record. Failures
// are logged and swallowed: the record stays pending and the runner's
// recovery scan picks it up later.
func schedule(ctx context.Context, log *slog.Logger, emitter events.EventEmitter, taskType string, id uuid.UUID) {
	event, err := events.NewJobRequestEvent(taskType, id)
	if err == nil {
		err = emitter.EmitEvent(ctx, event)
	}
	if err != nil {
		log.Warn("failed to schedule job, leaving it pending for recovery",
			"error", err,
			"task_type", taskType,
			"job_id", id)
		return
	}
	log.Debug("job scheduled", "task_type", taskType, "job_id", id, "event_id", event.ID)
}
