package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/clock"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/metrics"
	"github.com/phrazzld/exercise-api/internal/store"
)

// TaskCreator builds a task for a job.
type TaskCreator interface {
	CreateTask(taskType string, jobID uuid.UUID) (Task, error)
}

// JobTaskStore implements TaskStore on top of the generation and download stores.
type JobTaskStore struct {
	generations store.GenerationStore
	downloads   store.DownloadStore
	factory     TaskCreator
	clock       clock.Clock
}

var _ TaskStore = (*JobTaskStore)(nil)

// NewJobTaskStore creates a JobTaskStore.
func NewJobTaskStore(
	generations store.GenerationStore,
	downloads store.DownloadStore,
	factory TaskCreator,
	clk clock.Clock,
) *JobTaskStore {
	return &JobTaskStore{generations: generations, downloads: downloads, factory: factory, clock: clk}
}

// GetPendingTasks implements TaskStore.
func (s *JobTaskStore) GetPendingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error) {
	return s.tasksInStatus(ctx, domain.JobStatusPending, olderThan)
}

// GetProcessingTasks implements TaskStore.
func (s *JobTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error) {
	return s.tasksInStatus(ctx, domain.JobStatusProcessing, olderThan)
}

// FailTask implements TaskStore.
func (s *JobTaskStore) FailTask(ctx context.Context, task Task, reason string) error {
	now := s.clock.Now()
	var err error
	switch task.Type() {
	case TaskTypeGeneration:
		err = s.generations.Fail(ctx, task.ID(), reason, now)
	case TaskTypeExport:
		err = s.downloads.Fail(ctx, task.ID(), reason, now)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTaskType, task.Type())
	}
	if err != nil {
		return err
	}
	metrics.IncJobFinished(kindOf(task.Type()), string(domain.JobStatusFailed))
	return nil
}

func (s *JobTaskStore) tasksInStatus(ctx context.Context, status domain.JobStatus, olderThan time.Duration) ([]Task, error) {
	var cutoff time.Time
	if olderThan > 0 {
		cutoff = s.clock.Now().Add(-olderThan)
	}

	jobs, err := s.generations.FindByStatus(ctx, status, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s generations: %w", status, err)
	}
	downloads, err := s.downloads.FindByStatus(ctx, status, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s downloads: %w", status, err)
	}

	tasks := make([]Task, 0, len(jobs)+len(downloads))
	for _, j := range jobs {
		t, err := s.factory.CreateTask(TaskTypeGeneration, j.ID)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	for _, d := range downloads {
		t, err := s.factory.CreateTask(TaskTypeExport, d.ID)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
