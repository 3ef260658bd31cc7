// Package reconcile republishes generation completion events that were lost
// between commit and publish.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/reelgen-api/internal/events"
	"github.com/phrazzld/reelgen-api/internal/store"
	"github.com/robfig/cron/v3"
)

// ErrInvalidConfig is returned by New for an unusable configuration.
var ErrInvalidConfig = errors.New("invalid reconcile configuration")

// Config controls when and how much the reconciler republishes.
type Config struct {
	// Schedule is a standard five-field cron expression or a descriptor
	// such as "@every 1m".
	Schedule string

	// MinAge keeps the reconciler away from attempts whose inline publish
	// may still be in flight.
	MinAge time.Duration

	// BatchSize caps the attempts handled per run.
	BatchSize int
}

// Report summarizes one reconciliation run.
type Report struct {
	Listed    int
	Published int
	Failed    int
}

// Reconciler finds committed attempts whose completion event was never
// published, emits the event and marks the attempt published.
type Reconciler struct {
	store    store.GenerationStore
	emitter  events.Emitter
	config   Config
	schedule cron.Schedule
	now      func() time.Time
	logger   *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// New creates a Reconciler. The schedule is parsed up front.
func New(generations store.GenerationStore, emitter events.Emitter, config Config, logger *slog.Logger) (*Reconciler, error) {
	if generations == nil || emitter == nil {
		return nil, fmt.Errorf("%w: store and emitter are required", ErrInvalidConfig)
	}
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	}
	if config.MinAge < 0 {
		return nil, fmt.Errorf("%w: min age cannot be negative", ErrInvalidConfig)
	}
	schedule, err := cron.ParseStandard(config.Schedule)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule %q: %w", ErrInvalidConfig, config.Schedule, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:    generations,
		emitter:  emitter,
		config:   config,
		schedule: schedule,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "reconciler")),
	}, nil
}

// RunOnce republishes up to BatchSize unpublished attempts older than MinAge.
// A failed publish leaves the attempt for the next run.
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	var report Report

	cutoff := r.now().Add(-r.config.MinAge)
	attempts, err := r.store.ListUnpublished(ctx, cutoff, r.config.BatchSize)
	if err != nil {
		return report, fmt.Errorf("failed to list unpublished attempts: %w", err)
	}
	report.Listed = len(attempts)

	for _, a := range attempts {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		log := r.logger.With(
			slog.String("entity_id", a.EntityID.String()),
			slog.String("kind", string(a.Kind)),
			slog.Int("attempt_index", a.AttemptIndex))

		event, err := events.NewGenerationCompleted(a)
		if err != nil {
			report.Failed++
			log.ErrorContext(ctx, "failed to build completion event", slog.String("error", err.Error()))
			continue
		}
		if err := r.emitter.Emit(ctx, event); err != nil {
			report.Failed++
			log.WarnContext(ctx, "republish failed", slog.String("error", err.Error()))
			continue
		}
		if err := r.store.MarkPublished(ctx, a.EntityID, a.Kind, a.AttemptIndex, r.now().UTC()); err != nil {
			report.Failed++
			log.WarnContext(ctx, "failed to mark attempt published", slog.String("error", err.Error()))
			continue
		}
		report.Published++
	}

	if report.Listed > 0 {
		r.logger.InfoContext(ctx, "reconciliation run finished",
			slog.Int("listed", report.Listed),
			slog.Int("published", report.Published),
			slog.Int("failed", report.Failed))
	}
	return report, nil
}

// Start runs RunOnce on the configured schedule until Stop. A run that
// overlaps the next tick causes that tick to be skipped.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return
	}

	cl := cronLogger{logger: r.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(r.schedule, cron.FuncJob(func() {
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.ErrorContext(ctx, "reconciliation run failed", slog.String("error", err.Error()))
		}
	}))
	c.Start()
	r.cron = c

	r.logger.InfoContext(ctx, "reconciler started", slog.String("schedule", r.config.Schedule))
}

// Stop stops scheduling and waits for a running pass to finish or for ctx
// to expire.
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts cron's logger to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
