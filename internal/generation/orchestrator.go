package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/events"
	"github.com/phrazzld/reelgen-api/internal/generation/jsonextract"
	"github.com/phrazzld/reelgen-api/internal/provider"
	"github.com/phrazzld/reelgen-api/internal/redact"
	"github.com/phrazzld/reelgen-api/internal/retry"
	"github.com/phrazzld/reelgen-api/internal/store"
	"golang.org/x/sync/singleflight"
)

// PromptBuilder returns the chat messages for an entity.
type PromptBuilder func(ctx context.Context, entityID uuid.UUID) ([]provider.Message, error)

// Settings are the tunables of one generation kind.
type Settings struct {
	Model            string
	MaxTokens        int
	Schedule         Schedule
	MaxRegenerations int
}

// Spec describes one kind of generated content.
type Spec[T any] struct {
	Kind     domain.GenerationKind
	Settings Settings

	// Prompt builds the request messages.
	Prompt PromptBuilder

	// Validate normalizes decoded content in place and reports structural
	// violations. Content that fails is replaced by Default.
	Validate func(content *T) error

	// Default returns the deterministic fallback content.
	Default func() T
}

func (s Spec[T]) validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidConfig, s.Kind)
	}
	if s.Prompt == nil || s.Validate == nil || s.Default == nil {
		return fmt.Errorf("%w: prompt, validate and default are required", ErrInvalidConfig)
	}
	if s.Settings.Model == "" {
		return fmt.Errorf("%w: model cannot be empty", ErrInvalidConfig)
	}
	if s.Settings.MaxTokens <= 0 {
		return fmt.Errorf("%w: max tokens must be positive", ErrInvalidConfig)
	}
	if s.Settings.MaxRegenerations < 0 {
		return fmt.Errorf("%w: max regenerations cannot be negative", ErrInvalidConfig)
	}
	return s.Settings.Schedule.Validate()
}

// Source reports where a Result came from.
type Source string

// Result sources.
const (
	SourceCache     Source = "cache"
	SourceStore     Source = "store"
	SourceGenerated Source = "generated"
)

// Result is generated content together with its attempt metadata.
type Result[T any] struct {
	EntityID          uuid.UUID             `json:"entity_id"`
	Kind              domain.GenerationKind `json:"kind"`
	AttemptIndex      int                   `json:"attempt_index"`
	Temperature       float64               `json:"temperature"`
	Content           T                     `json:"content"`
	Defaulted         bool                  `json:"defaulted"`
	RemainingAttempts int                   `json:"remaining_attempts"`
	CachedAt          time.Time             `json:"cached_at"`
	Source            Source                `json:"source"`
}

// StaleFallback decides whether a failed regeneration should answer with the
// current attempt instead of the error.
type StaleFallback func(ctx context.Context, current *domain.GenerationAttempt, cause error) bool

type options struct {
	publisher     events.Emitter
	now           func() time.Time
	staleFallback StaleFallback
}

// Option customizes an Orchestrator.
type Option func(*options)

// WithPublisher publishes a completion event after every committed attempt.
func WithPublisher(p events.Emitter) Option {
	return func(o *options) { o.publisher = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithStaleFallback installs a StaleFallback. Without one, failed
// regenerations always surface their error.
func WithStaleFallback(f StaleFallback) Option {
	return func(o *options) { o.staleFallback = f }
}

// Orchestrator serves and regenerates one kind of content.
type Orchestrator[T any] struct {
	spec     Spec[T]
	chat     provider.ChatCompleter
	executor *retry.Executor
	policy   retry.Policy
	store    store.GenerationStore
	cache    Cache
	locks    *keyedMutex
	group    singleflight.Group
	opts     options
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator[T any](
	spec Spec[T],
	chat provider.ChatCompleter,
	executor *retry.Executor,
	policy retry.Policy,
	generationStore store.GenerationStore,
	cache Cache,
	logger *slog.Logger,
	opts ...Option,
) (*Orchestrator[T], error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if chat == nil || executor == nil || generationStore == nil || cache == nil {
		return nil, fmt.Errorf("%w: chat, executor, store and cache are required", ErrInvalidConfig)
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return &Orchestrator[T]{
		spec:     spec,
		chat:     chat,
		executor: executor,
		policy:   policy,
		store:    generationStore,
		cache:    cache,
		locks:    newKeyedMutex(),
		opts:     o,
		logger:   logger.With(slog.String("component", "generation_orchestrator"), slog.String("kind", string(spec.Kind))),
	}, nil
}

// Kind returns the content kind served by o.
func (o *Orchestrator[T]) Kind() domain.GenerationKind {
	return o.spec.Kind
}

type loaded struct {
	attempt *domain.GenerationAttempt
	source  Source
}

// GetOrGenerate returns the current content of an entity. A cache hit is
// returned unchanged. On a miss the stored attempt is loaded and cached; if
// none exists, attempt 0 is generated, persisted and cached. Concurrent
// callers for the same entity share one generation, and that generation runs
// under the first caller's ctx: if the first caller is cancelled, every
// caller that joined it fails with the same error.
func (o *Orchestrator[T]) GetOrGenerate(ctx context.Context, entityID uuid.UUID) (*Result[T], error) {
	if entityID == uuid.Nil {
		return nil, fmt.Errorf("%w: entity id cannot be empty", domain.ErrValidation)
	}

	if a, ok := o.cache.Get(entityID); ok {
		return o.result(a, SourceCache)
	}

	v, err, shared := o.group.Do(entityID.String(), func() (any, error) {
		return o.loadOrCreate(ctx, entityID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		o.logger.DebugContext(ctx, "joined in-flight generation", slog.String("entity_id", entityID.String()))
	}
	l := v.(loaded)
	return o.result(l.attempt, l.source)
}

func (o *Orchestrator[T]) loadOrCreate(ctx context.Context, entityID uuid.UUID) (loaded, error) {
	unlock := o.locks.Lock(entityID)
	defer unlock()

	if a, ok := o.cache.Get(entityID); ok {
		return loaded{attempt: a, source: SourceCache}, nil
	}

	a, err := o.store.Get(ctx, entityID, o.spec.Kind)
	switch {
	case err == nil:
		o.cache.Set(a)
		return loaded{attempt: a, source: SourceStore}, nil
	case !store.IsNotFoundError(err):
		return loaded{}, fmt.Errorf("load %s attempt: %w", o.spec.Kind, err)
	}

	return o.createFirst(ctx, entityID)
}

// createFirst generates and stores attempt 0. The caller holds the entity lock.
func (o *Orchestrator[T]) createFirst(ctx context.Context, entityID uuid.UUID) (loaded, error) {
	a, err := o.synthesize(ctx, entityID, 0)
	if err != nil {
		return loaded{}, err
	}

	stored, created, err := o.store.Create(ctx, a)
	if err != nil {
		return loaded{}, fmt.Errorf("persist %s attempt: %w", o.spec.Kind, err)
	}
	o.cache.Set(stored)

	if !created {
		o.logger.InfoContext(ctx, "attempt already stored by another writer, discarding generated content",
			slog.String("entity_id", entityID.String()))
		return loaded{attempt: stored, source: SourceStore}, nil
	}

	o.publish(ctx, stored)
	return loaded{attempt: stored, source: SourceGenerated}, nil
}

// Regenerate produces a new attempt at the next temperature. It fails with
// ErrRegenerationLimitExceeded, without calling the model, once the entity
// has used every regeneration. An entity with no content yet gets its first
// generation instead.
func (o *Orchestrator[T]) Regenerate(ctx context.Context, entityID uuid.UUID) (*Result[T], error) {
	if entityID == uuid.Nil {
		return nil, fmt.Errorf("%w: entity id cannot be empty", domain.ErrValidation)
	}

	unlock := o.locks.Lock(entityID)
	defer unlock()

	log := o.logger.With(slog.String("entity_id", entityID.String()))

	current, err := o.store.Get(ctx, entityID, o.spec.Kind)
	if err != nil {
		if !store.IsNotFoundError(err) {
			return nil, fmt.Errorf("load %s attempt: %w", o.spec.Kind, err)
		}
		log.InfoContext(ctx, "regenerate requested before first generation, generating attempt 0")
		l, err := o.createFirst(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return o.result(l.attempt, l.source)
	}

	if current.AttemptIndex >= o.spec.Settings.MaxRegenerations {
		log.InfoContext(ctx, "regeneration limit reached",
			slog.Int("attempt_index", current.AttemptIndex),
			slog.Int("max_regenerations", o.spec.Settings.MaxRegenerations))
		return nil, fmt.Errorf("%w: %s for entity %s has used %d of %d regenerations",
			ErrRegenerationLimitExceeded, o.spec.Kind, entityID, current.AttemptIndex, o.spec.Settings.MaxRegenerations)
	}

	o.cache.Delete(entityID)

	next, err := o.synthesize(ctx, entityID, current.AttemptIndex+1)
	if err != nil {
		if o.opts.staleFallback != nil && o.opts.staleFallback(ctx, current, err) {
			log.WarnContext(ctx, "regeneration failed, serving previous attempt",
				slog.String("error", redact.Error(err)))
			o.cache.Set(current)
			return o.result(current, SourceStore)
		}
		return nil, err
	}

	if err := o.store.Advance(ctx, next, current.AttemptIndex); err != nil {
		if store.IsConflictError(err) {
			return nil, fmt.Errorf("%w: %w", ErrConcurrentRegeneration, err)
		}
		return nil, fmt.Errorf("persist %s attempt: %w", o.spec.Kind, err)
	}
	o.cache.Set(next)

	log.InfoContext(ctx, "content regenerated",
		slog.Int("attempt_index", next.AttemptIndex),
		slog.Float64("temperature", next.Temperature),
		slog.Bool("defaulted", next.Defaulted))

	o.publish(ctx, next)
	return o.result(next, SourceGenerated)
}

// RemainingAttempts returns how many regenerations the entity has left.
func (o *Orchestrator[T]) RemainingAttempts(ctx context.Context, entityID uuid.UUID) (int, error) {
	if entityID == uuid.Nil {
		return 0, fmt.Errorf("%w: entity id cannot be empty", domain.ErrValidation)
	}
	if a, ok := o.cache.Get(entityID); ok {
		return o.remaining(a.AttemptIndex), nil
	}
	a, err := o.store.Get(ctx, entityID, o.spec.Kind)
	if err != nil {
		if store.IsNotFoundError(err) {
			return o.spec.Settings.MaxRegenerations, nil
		}
		return 0, fmt.Errorf("load %s attempt: %w", o.spec.Kind, err)
	}
	return o.remaining(a.AttemptIndex), nil
}

func (o *Orchestrator[T]) remaining(attemptIndex int) int {
	return max(o.spec.Settings.MaxRegenerations-attemptIndex, 0)
}

// synthesize runs the model for one attempt. Content that cannot be decoded
// or validated is replaced by the default; a failed call is an error.
func (o *Orchestrator[T]) synthesize(ctx context.Context, entityID uuid.UUID, attemptIndex int) (*domain.GenerationAttempt, error) {
	log := o.logger.With(slog.String("entity_id", entityID.String()), slog.Int("attempt_index", attemptIndex))

	messages, err := o.spec.Prompt(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("build %s prompt: %w", o.spec.Kind, err)
	}

	temperature := o.spec.Settings.Schedule.At(attemptIndex)
	req := provider.ChatRequest{
		Model:       o.spec.Settings.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   o.spec.Settings.MaxTokens,
	}

	out := retry.Execute(ctx, o.executor, retry.Call[string, string]{
		Op: "chat.complete." + string(o.spec.Kind),
		Send: func(ctx context.Context) (string, error) {
			return o.chat.Complete(ctx, req)
		},
		Parse: retry.Passthrough[string],
		Empty: retry.BlankString,
	}, o.policy)
	if !out.OK() {
		log.WarnContext(ctx, "generation call failed",
			slog.String("outcome", out.Kind.String()),
			slog.String("reason", out.Reason),
			slog.Int("attempts", out.Attempts))
		return nil, fmt.Errorf("%w: %s: %w", ErrGenerationFailed, o.spec.Kind, out.Error())
	}

	content, defaulted := o.decode(ctx, out.Payload)
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("encode %s content: %w", o.spec.Kind, err)
	}

	log.InfoContext(ctx, "content generated",
		slog.Float64("temperature", temperature),
		slog.Bool("defaulted", defaulted),
		slog.Int("provider_attempts", out.Attempts))

	return &domain.GenerationAttempt{
		EntityID:     entityID,
		Kind:         o.spec.Kind,
		AttemptIndex: attemptIndex,
		Temperature:  temperature,
		Content:      raw,
		Defaulted:    defaulted,
		CachedAt:     o.opts.now().UTC(),
	}, nil
}

func (o *Orchestrator[T]) decode(ctx context.Context, text string) (T, bool) {
	var content T
	err := jsonextract.Decode(text, &content)
	if err == nil {
		err = o.spec.Validate(&content)
	}
	if err != nil {
		o.logger.WarnContext(ctx, "model output rejected, using default content", slog.String("error", err.Error()))
		return o.spec.Default(), true
	}
	return content, false
}

// publish announces a committed attempt. A failed publish is logged and left
// for the reconciler; it is never retried here.
func (o *Orchestrator[T]) publish(ctx context.Context, a *domain.GenerationAttempt) {
	if o.opts.publisher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	log := o.logger.With(slog.String("entity_id", a.EntityID.String()), slog.Int("attempt_index", a.AttemptIndex))

	event, err := events.NewGenerationCompleted(a)
	if err != nil {
		log.ErrorContext(ctx, "failed to build completion event", slog.String("error", err.Error()))
		return
	}
	if err := o.opts.publisher.Emit(ctx, event); err != nil {
		log.WarnContext(ctx, "failed to publish completion event, left for reconciliation",
			slog.String("error", err.Error()))
		return
	}
	if err := o.store.MarkPublished(ctx, a.EntityID, a.Kind, a.AttemptIndex, o.opts.now().UTC()); err != nil {
		log.WarnContext(ctx, "failed to mark attempt published", slog.String("error", err.Error()))
	}
}

func (o *Orchestrator[T]) result(a *domain.GenerationAttempt, source Source) (*Result[T], error) {
	var content T
	if err := json.Unmarshal(a.Content, &content); err != nil {
		return nil, fmt.Errorf("decode stored %s content: %w", o.spec.Kind, err)
	}
	return &Result[T]{
		EntityID:          a.EntityID,
		Kind:              a.Kind,
		AttemptIndex:      a.AttemptIndex,
		Temperature:       a.Temperature,
		Content:           content,
		Defaulted:         a.Defaulted,
		RemainingAttempts: o.remaining(a.AttemptIndex),
		CachedAt:          a.CachedAt,
		Source:            source,
	}, nil
}
