package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Task type constants. They double as event types on the event bus.
const (
	// TaskTypeGeneration produces the exercises of a generation job.
	TaskTypeGeneration = "exercise_generation"

	// TaskTypeExport renders a completed generation into a download file.
	TaskTypeExport = "exercise_export"
)

// Task represents a unit of background work to be processed.
// The ID of a task is the ID of the job record it drives.
type Task interface {
	// ID returns the job ID the task operates on
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume tasks without the ability to enqueue
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming tasks
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue
// allowing services to enqueue tasks for processing
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue for processing
	// Returns an error if the queue is full or closed
	Enqueue(task Task) error

	// Close closes the task queue, preventing further task submission
	Close()
}

// TaskStore gives the runner a view of unfinished jobs. Job records are the
// source of truth; the runner never persists tasks of its own.
type TaskStore interface {
	// GetPendingTasks returns tasks whose job has been waiting to be claimed
	// for longer than olderThan. A zero olderThan returns every pending job.
	GetPendingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error)

	// GetProcessingTasks returns tasks whose job has been processing for longer
	// than olderThan. A zero olderThan returns every processing job.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error)

	// FailTask marks the job behind task failed with reason.
	FailTask(ctx context.Context, task Task, reason string) error
}
