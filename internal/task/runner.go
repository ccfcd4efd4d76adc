package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/exercise-api/internal/metrics"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a job can be in processing state
	// before it's considered stuck and failed
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck jobs and
	// for pending jobs that never made it into the queue.
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// stuckTaskReason is recorded on jobs failed by the monitor.
const stuckTaskReason = "timed out while processing"

// TaskRunner manages background task processing
type TaskRunner struct {
	store      TaskStore
	queue      *TaskQueue
	pool       *WorkerPool
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     TaskRunnerConfig
	logger     *slog.Logger
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(store TaskStore, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval <= 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	logger = logger.With("component", "task_runner")

	queue := NewTaskQueue(config.QueueSize, logger)
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	r := &TaskRunner{
		store:      store,
		queue:      queue,
		pool:       pool,
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger,
	}
	pool.SetErrorHandler(func(task Task, err error) {
		logger.Error("task execution failed",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"error", err)
	})
	return r
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.pool.SetErrorHandler(handler)
}

// Submit adds a task to the queue without blocking. When the queue is full
// the job stays pending and the monitor picks it up on a later pass.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.queue.Enqueue(task); err != nil {
		metrics.IncTaskRejected(kindOf(task.Type()))
		return fmt.Errorf("failed to queue task: %w", err)
	}
	return nil
}

// Start recovers unfinished jobs and begins processing tasks
func (r *TaskRunner) Start() error {
	if err := r.Recover(r.ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.pool.Start()

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	return nil
}

// Stop gracefully shuts down the task runner. In-flight tasks see their
// context cancelled and record the failure on their job.
func (r *TaskRunner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	r.pool.Stop()
	r.queue.Close()
}

// Recover requeues pending jobs and fails jobs that have been processing for
// longer than StuckTaskAge. Processing jobs are never put back to pending.
func (r *TaskRunner) Recover(ctx context.Context) error {
	pendingTasks, err := r.store.GetPendingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks", "pending_count", len(pendingTasks))
	r.requeue(pendingTasks)

	return r.failStuckTasks(ctx)
}

func (r *TaskRunner) requeue(tasks []Task) {
	for _, task := range tasks {
		if err := r.queue.Enqueue(task); err != nil {
			r.logger.Error("failed to requeue pending task",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		}
	}
}

func (r *TaskRunner) failStuckTasks(ctx context.Context) error {
	stuckTasks, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}
	if len(stuckTasks) == 0 {
		return nil
	}

	r.logger.Warn("found stuck tasks", "count", len(stuckTasks))
	for _, task := range stuckTasks {
		if err := r.store.FailTask(ctx, task, stuckTaskReason); err != nil {
			r.logger.Error("failed to mark stuck task failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
			continue
		}
		metrics.IncStaleJob(kindOf(task.Type()))
	}
	return nil
}

// stuckTaskMonitor periodically fails jobs stuck in processing and requeues
// pending jobs that were rejected by a full queue.
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			if err := r.failStuckTasks(r.ctx); err != nil {
				r.logger.Error("failed to check for stuck tasks", "error", err)
			}

			pending, err := r.store.GetPendingTasks(r.ctx, r.config.StuckTaskCheckInterval)
			if err != nil {
				r.logger.Error("failed to check for orphaned pending tasks", "error", err)
				continue
			}
			if len(pending) > 0 {
				r.logger.Info("requeueing orphaned pending tasks", "count", len(pending))
				r.requeue(pending)
			}
		}
	}
}

func kindOf(taskType string) string {
	switch taskType {
	case TaskTypeGeneration:
		return metrics.KindGeneration
	case TaskTypeExport:
		return metrics.KindExport
	default:
		return taskType
	}
}
