package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
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

// TaskRunner persists submitted tasks, queues them for a WorkerPool and
// records each status transition. Unfinished tasks are rebuilt through the
// Registry on start.
type TaskRunner struct {
	store      TaskStore
	registry   *Registry
	queue      *TaskQueue
	pool       *WorkerPool
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     TaskRunnerConfig
	logger     *slog.Logger
	errHandler func(task Task, err error)
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(store TaskStore, registry *Registry, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	if registry == nil {
		registry = NewRegistry()
	}
	logger = logger.With("component", "task_runner")

	ctx, cancel := context.WithCancel(context.Background())
	queue := NewTaskQueue(config.QueueSize, logger)

	r := &TaskRunner{
		store:      store,
		registry:   registry,
		queue:      queue,
		pool:       NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger,
	}
	r.pool.SetHooks(Hooks{Before: r.beforeExecute, After: r.afterExecute})
	r.pool.SetErrorHandler(func(task Task, err error) {
		if r.errHandler != nil {
			r.errHandler(task, err)
		}
	})
	return r
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// Submit saves the task, then queues it. A task that could not be queued
// stays pending in the store and is picked up by the next Recover.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if err := r.queue.Enqueue(task); err != nil {
		r.logger.WarnContext(ctx, "task saved but not queued",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"error", err)
		return fmt.Errorf("failed to queue task: %w", err)
	}
	return nil
}

// Start recovers unfinished tasks and begins processing. Call it before the
// first Submit; recovery requeues every pending task in the store.
func (r *TaskRunner) Start() error {
	if err := r.Recover(r.ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.pool.Start()

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	return nil
}

// Stop cancels running tasks and waits for the workers and the monitor.
// Tasks interrupted by Stop stay in processing state and are reset by the
// next Recover.
func (r *TaskRunner) Stop() {
	r.cancelFunc()
	r.pool.Stop()
	r.wg.Wait()
	r.queue.Close()
}

// Recover loads unfinished tasks from the store and queues them again.
func (r *TaskRunner) Recover(ctx context.Context) error {
	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	// Every processing task was interrupted by a crash or shutdown.
	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.InfoContext(ctx, "recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range pending {
		r.requeue(ctx, rec)
	}
	for _, rec := range processing {
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending, "Reset after recovery"); err != nil {
			r.logger.ErrorContext(ctx, "failed to reset processing task status",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
			continue
		}
		r.requeue(ctx, rec)
	}
	return nil
}

// requeue rebuilds a persisted task and queues it. A record that cannot be
// rebuilt is marked failed so it is not retried forever.
func (r *TaskRunner) requeue(ctx context.Context, rec Record) {
	task, err := r.registry.Rebuild(rec)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to rebuild task",
			"task_id", rec.ID,
			"task_type", rec.Type,
			"error", err)
		if updateErr := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusFailed, err.Error()); updateErr != nil {
			r.logger.ErrorContext(ctx, "failed to mark unrecoverable task as failed",
				"task_id", rec.ID,
				"error", updateErr)
		}
		return
	}

	if err := r.queue.Enqueue(task); err != nil {
		r.logger.ErrorContext(ctx, "failed to requeue task",
			"task_id", rec.ID,
			"task_type", rec.Type,
			"error", err)
	}
}

func (r *TaskRunner) beforeExecute(ctx context.Context, task Task) bool {
	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusProcessing, ""); err != nil {
		r.logger.ErrorContext(ctx, "failed to update task status to processing",
			"task_id", task.ID(),
			"error", err)
		return false
	}
	return true
}

func (r *TaskRunner) afterExecute(ctx context.Context, task Task, err error) {
	// Status writes must land even though ctx may be cancelled by Stop.
	writeCtx := context.WithoutCancel(ctx)

	switch {
	case err == nil:
		if updateErr := r.store.UpdateTaskStatus(writeCtx, task.ID(), TaskStatusCompleted, ""); updateErr != nil {
			r.logger.ErrorContext(ctx, "failed to update task status to completed",
				"task_id", task.ID(),
				"error", updateErr)
		}
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		r.logger.WarnContext(writeCtx, "task interrupted by shutdown, left for recovery",
			"task_id", task.ID(),
			"task_type", task.Type())
	default:
		if updateErr := r.store.UpdateTaskStatus(writeCtx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			r.logger.ErrorContext(ctx, "failed to update task status to failed",
				"task_id", task.ID(),
				"error", updateErr)
		}
	}
}

// stuckTaskMonitor periodically resets tasks that have been processing for
// longer than StuckTaskAge and queues them again.
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.resetStuckTasks(r.ctx)
		}
	}
}

func (r *TaskRunner) resetStuckTasks(ctx context.Context) {
	stuck, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to check for stuck tasks", "error", err)
		return
	}
	if len(stuck) == 0 {
		return
	}

	r.logger.InfoContext(ctx, "found stuck tasks", "count", len(stuck))
	for _, rec := range stuck {
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending,
			"Reset after being stuck in processing state"); err != nil {
			r.logger.ErrorContext(ctx, "failed to reset stuck task status",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
			continue
		}
		r.requeue(ctx, rec)
	}
}
