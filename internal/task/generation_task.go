package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/clock"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/generation"
	"github.com/phrazzld/exercise-api/internal/metrics"
	"github.com/phrazzld/exercise-api/internal/store"
)

// Progress stays below this value until the exercises are committed.
const maxInFlightProgress = 99.0

// GenerationTask drives one generation job from pending to a terminal status.
type GenerationTask struct {
	jobID     uuid.UUID
	jobs      store.GenerationStore
	generator generation.Generator
	clock     clock.Clock
	timeout   time.Duration
	logger    *slog.Logger
}

// NewGenerationTask creates a task for the job with jobID.
func NewGenerationTask(
	jobID uuid.UUID,
	jobs store.GenerationStore,
	generator generation.Generator,
	clk clock.Clock,
	timeout time.Duration,
	logger *slog.Logger,
) (*GenerationTask, error) {
	if jobID == uuid.Nil {
		return nil, ErrEmptyJobID
	}
	if jobs == nil || generator == nil || clk == nil || logger == nil {
		return nil, ErrMissingDependency
	}
	return &GenerationTask{
		jobID:     jobID,
		jobs:      jobs,
		generator: generator,
		clock:     clk,
		timeout:   timeout,
		logger:    logger.With("task_type", TaskTypeGeneration, "generation_id", jobID),
	}, nil
}

// ID returns the generation job ID.
func (t *GenerationTask) ID() uuid.UUID { return t.jobID }

// Type returns TaskTypeGeneration.
func (t *GenerationTask) Type() string { return TaskTypeGeneration }

// Execute claims the job, streams drafts from the generator and commits them
// all at once. Any failure marks the job failed and discards staged drafts.
// Losing the claim to another worker is not an error.
func (t *GenerationTask) Execute(ctx context.Context) error {
	claimed, err := t.jobs.Claim(ctx, t.jobID, t.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to claim generation: %w", err)
	}
	if !claimed {
		t.logger.Debug("generation already claimed or finished, skipping")
		return nil
	}

	job, err := t.jobs.GetByID(ctx, t.jobID)
	if err != nil {
		return t.fail(ctx, "generation record unavailable", fmt.Errorf("%w: %v", domain.ErrStorageFailure, err))
	}

	t.logger.Info("starting exercise generation",
		"subject", job.Subject,
		"grade", job.Grade,
		"requested_count", job.RequestedCount)

	drafts, err := t.generate(ctx, job)
	if err != nil {
		return t.fail(ctx, failureReason(err), err)
	}

	exercises := domain.NewExercises(job.ID, drafts, t.clock.Now())
	if err := t.jobs.Complete(ctx, job.ID, exercises, t.clock.Now()); err != nil {
		return t.fail(ctx, "failed to store exercises", fmt.Errorf("%w: %v", domain.ErrStorageFailure, err))
	}

	metrics.IncJobFinished(metrics.KindGeneration, string(domain.JobStatusCompleted))
	if job.StartedAt != nil {
		metrics.ObserveGenerationDuration(t.clock.Now().Sub(*job.StartedAt))
	}
	t.logger.Info("exercise generation completed", "exercise_count", len(exercises))
	return nil
}

// generate collects exactly job.RequestedCount valid drafts under the
// configured timeout.
func (t *GenerationTask) generate(ctx context.Context, job *domain.GenerationJob) ([]domain.ExerciseDraft, error) {
	genCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	want := job.RequestedCount
	drafts := make([]domain.ExerciseDraft, 0, want)

	err := t.generator.Generate(genCtx, generation.RequestFromJob(job), func(d domain.ExerciseDraft) error {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
		}
		drafts = append(drafts, d)

		pct := float64(len(drafts)) / float64(want) * 100
		if pct > maxInFlightProgress {
			pct = maxInFlightProgress
		}
		if err := t.jobs.UpdateProgress(genCtx, job.ID, pct, t.clock.Now()); err != nil {
			t.logger.Warn("failed to record progress", "error", err, "progress", pct)
		}

		if len(drafts) >= want {
			return generation.ErrStop
		}
		return nil
	})

	if errors.Is(genCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCapabilityFailure, context.DeadlineExceeded)
	}
	if err != nil && !errors.Is(err, generation.ErrStop) {
		return nil, fmt.Errorf("%w: %w", domain.ErrCapabilityFailure, err)
	}
	if len(drafts) < want {
		return nil, fmt.Errorf("%w: %w", domain.ErrCapabilityFailure, &shortOutputError{got: len(drafts), want: want})
	}
	return drafts, nil
}

// fail records reason on the job and returns cause. The failure is written
// even when ctx has been cancelled.
func (t *GenerationTask) fail(ctx context.Context, reason string, cause error) error {
	if err := t.jobs.Fail(context.WithoutCancel(ctx), t.jobID, reason, t.clock.Now()); err != nil {
		t.logger.Error("failed to mark generation failed", "error", err, "reason", reason)
	} else {
		metrics.IncJobFinished(metrics.KindGeneration, string(domain.JobStatusFailed))
	}
	t.logger.Warn("exercise generation failed", "reason", reason, "error", cause)
	return cause
}

// failureReason converts a generation error into the message stored on the job.
func failureReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "generation was cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "generation timed out"
	case errors.Is(err, generation.ErrContentBlocked):
		return "generation was blocked by content filters"
	case errors.Is(err, generation.ErrInvalidResponse):
		return "generator returned invalid output"
	case errors.Is(err, generation.ErrUnsupportedRequest):
		return "the configured generator cannot serve this request"
	case errors.Is(err, generation.ErrTransientFailure):
		return "generator temporarily unavailable"
	}
	var short *shortOutputError
	if errors.As(err, &short) {
		return short.Error()
	}
	return "exercise generation failed"
}

// shortOutputError reports a generator that ended before producing enough drafts.
type shortOutputError struct {
	got, want int
}

func (e *shortOutputError) Error() string {
	return fmt.Sprintf("generator returned %d of %d exercises", e.got, e.want)
}
