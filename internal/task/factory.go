package task

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/clock"
	"github.com/phrazzld/exercise-api/internal/export"
	"github.com/phrazzld/exercise-api/internal/generation"
	"github.com/phrazzld/exercise-api/internal/platform/blob"
	"github.com/phrazzld/exercise-api/internal/store"
)

// TaskFactoryConfig holds the deadlines applied inside tasks.
type TaskFactoryConfig struct {
	GenerationTimeout time.Duration
	RenderTimeout     time.Duration
}

// TaskFactory builds tasks by type and job ID with their dependencies injected.
type TaskFactory struct {
	generations store.GenerationStore
	downloads   store.DownloadStore
	generator   generation.Generator
	renderers   *export.Registry
	blobs       blob.Store
	clock       clock.Clock
	config      TaskFactoryConfig
	logger      *slog.Logger
}

// NewTaskFactory creates a TaskFactory.
func NewTaskFactory(
	generations store.GenerationStore,
	downloads store.DownloadStore,
	generator generation.Generator,
	renderers *export.Registry,
	blobs blob.Store,
	clk clock.Clock,
	config TaskFactoryConfig,
	logger *slog.Logger,
) *TaskFactory {
	return &TaskFactory{
		generations: generations,
		downloads:   downloads,
		generator:   generator,
		renderers:   renderers,
		blobs:       blobs,
		clock:       clk,
		config:      config,
		logger:      logger,
	}
}

// CreateTask returns the task of taskType for the job with jobID.
func (f *TaskFactory) CreateTask(taskType string, jobID uuid.UUID) (Task, error) {
	switch taskType {
	case TaskTypeGeneration:
		return NewGenerationTask(jobID, f.generations, f.generator, f.clock, f.config.GenerationTimeout, f.logger)
	case TaskTypeExport:
		return NewExportTask(jobID, f.downloads, f.generations, f.renderers, f.blobs, f.clock, f.config.RenderTimeout, f.logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, taskType)
	}
}
