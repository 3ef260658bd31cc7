package generation_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/events"
	"github.com/phrazzld/reelgen-api/internal/generation"
	"github.com/phrazzld/reelgen-api/internal/mocks"
	"github.com/phrazzld/reelgen-api/internal/provider"
	"github.com/phrazzld/reelgen-api/internal/retry"
	"github.com/phrazzld/reelgen-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScriptJSON = "```json\n" + `{
  "title": "Noodles Worth the Queue",
  "hook": "Ever seen noodles pulled this fast?",
  "scenes": [
    {"frame_id": 3, "narration": "Hand-pulled every morning.", "caption": "Hand-pulled", "duration_seconds": 4}
  ],
  "call_to_action": "Find us on Market Street."
}` + "\n```"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func testSettings() generation.Settings {
	return generation.Settings{
		Model:            "gpt-test",
		MaxTokens:        800,
		Schedule:         generation.Schedule{Base: 0.7, Increment: 0.1, Max: 0.9},
		MaxRegenerations: 5,
	}
}

func testSpec() generation.Spec[domain.Script] {
	return generation.Spec[domain.Script]{
		Kind:     domain.KindScript,
		Settings: testSettings(),
		Prompt: func(ctx context.Context, entityID uuid.UUID) ([]provider.Message, error) {
			return []provider.Message{{Role: provider.RoleUser, Content: "write a script for " + entityID.String()}}, nil
		},
		Validate: func(s *domain.Script) error { return s.Validate() },
		Default:  domain.DefaultScript,
	}
}

type fixture struct {
	chat  *mocks.MockChatCompleter
	store *mocks.MockGenerationStore
	cache *generation.MemoryCache
	orch  *generation.Orchestrator[domain.Script]
}

func newFixture(t *testing.T, spec generation.Spec[domain.Script], opts ...generation.Option) *fixture {
	t.Helper()
	f := &fixture{
		chat:  &mocks.MockChatCompleter{Response: validScriptJSON},
		store: mocks.NewMockGenerationStore(),
		cache: generation.NewMemoryCache(time.Hour),
	}
	executor := retry.NewExecutor(discardLogger(), retry.WithSleep(noSleep))
	policy := retry.Policy{MaxAttempts: 3, InitialDelay: time.Second, BackoffMultiplier: 2, AttemptTimeout: time.Second}

	orch, err := generation.NewOrchestrator(spec, f.chat, executor, policy, f.store, f.cache, discardLogger(), opts...)
	require.NoError(t, err)
	f.orch = orch
	return f
}

func TestGetOrGenerate_GeneratesOnceThenServesCache(t *testing.T) {
	f := newFixture(t, testSpec())
	ctx := context.Background()
	entityID := uuid.New()

	first, err := f.orch.GetOrGenerate(ctx, entityID)
	require.NoError(t, err)
	assert.Equal(t, generation.SourceGenerated, first.Source)
	assert.Equal(t, 0, first.AttemptIndex)
	assert.Equal(t, 0.7, first.Temperature)
	assert.Equal(t, "Noodles Worth the Queue", first.Content.Title)
	assert.False(t, first.Defaulted)
	assert.Equal(t, 5, first.RemainingAttempts)

	requests := f.chat.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "gpt-test", requests[0].Model)
	assert.Equal(t, 800, requests[0].MaxTokens)
	assert.Equal(t, 0.7, requests[0].Temperature)

	row, ok := f.store.Row(entityID, domain.KindScript)
	require.True(t, ok)
	assert.Equal(t, 0, row.AttemptIndex)

	second, err := f.orch.GetOrGenerate(ctx, entityID)
	require.NoError(t, err)
	assert.Equal(t, generation.SourceCache, second.Source)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 1, f.chat.CallCount(), "cache hit must not call the model")
}

func TestGetOrGenerate_LoadsFromStore(t *testing.T) {
	f := newFixture(t, testSpec())
	entityID := uuid.New()
	content, err := json.Marshal(domain.DefaultScript())
	require.NoError(t, err)
	f.store.Put(domain.GenerationAttempt{
		EntityID:     entityID,
		Kind:         domain.KindScript,
		AttemptIndex: 2,
		Temperature:  0.9,
		Content:      content,
	})

	res, err := f.orch.GetOrGenerate(context.Background(), entityID)
	require.NoError(t, err)
	assert.Equal(t, generation.SourceStore, res.Source)
	assert.Equal(t, 2, res.AttemptIndex)
	assert.Equal(t, 3, res.RemainingAttempts)
	assert.Equal(t, 0, f.chat.CallCount())

	_, ok := f.cache.Get(entityID)
	assert.True(t, ok, "store hit populates the cache")
}

func TestGetOrGenerate_ConcurrentCallersShareOneSynthesis(t *testing.T) {
	f := newFixture(t, testSpec())
	release := make(chan struct{})
	f.chat.CompleteFn = func(ctx context.Context, req provider.ChatRequest) (string, error) {
		<-release
		return validScriptJSON, nil
	}
	entityID := uuid.New()

	const callers = 20
	var wg sync.WaitGroup
	results := make([]*generation.Result[domain.Script], callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.orch.GetOrGenerate(context.Background(), entityID)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "Noodles Worth the Queue", results[i].Content.Title)
	}
	assert.Equal(t, 1, f.chat.CallCount())
	assert.Equal(t, 1, f.store.CreateCalls)
}

func TestGetOrGenerate_JoinedCallersShareFirstCallersContext(t *testing.T) {
	f := newFixture(t, testSpec())
	entered := make(chan struct{})
	var once sync.Once
	f.chat.CompleteFn = func(ctx context.Context, req provider.ChatRequest) (string, error) {
		once.Do(func() { close(entered) })
		<-ctx.Done()
		return "", ctx.Err()
	}
	entityID := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	var firstErr, joinedErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, firstErr = f.orch.GetOrGenerate(ctx, entityID)
	}()
	<-entered
	go func() {
		defer wg.Done()
		_, joinedErr = f.orch.GetOrGenerate(context.Background(), entityID)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	wg.Wait()

	assert.ErrorIs(t, firstErr, context.Canceled)
	assert.ErrorIs(t, joinedErr, context.Canceled, "a joined caller fails with the first caller")
	assert.Equal(t, 1, f.chat.CallCount())
	assert.Equal(t, 0, f.store.CreateCalls)
}

func TestGetOrGenerate_InvalidOutputUsesDefault(t *testing.T) {
	tests := map[string]string{
		"not json":         "Sorry, I cannot help with that.",
		"fails validation": `{"title": "", "scenes": []}`,
		"truncated object": `{"title": "Noodles", "scenes": [`,
	}

	for name, response := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, testSpec())
			f.chat.Response = response

			res, err := f.orch.GetOrGenerate(context.Background(), uuid.New())
			require.NoError(t, err)
			assert.True(t, res.Defaulted)
			assert.Equal(t, domain.DefaultScript(), res.Content)
		})
	}
}

func TestGetOrGenerate_FatalOutcomeSurfacesGenerationFailed(t *testing.T) {
	f := newFixture(t, testSpec())
	f.chat.Err = retry.NewStatusError(http.StatusGatewayTimeout, "upstream timeout", nil)
	entityID := uuid.New()

	_, err := f.orch.GetOrGenerate(context.Background(), entityID)
	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
	assert.ErrorIs(t, err, retry.ErrRetriesExhausted)
	assert.Equal(t, 3, f.chat.CallCount())

	_, ok := f.store.Row(entityID, domain.KindScript)
	assert.False(t, ok, "nothing is stored on failure")
	_, ok = f.cache.Get(entityID)
	assert.False(t, ok)
}

func TestGetOrGenerate_EmptyContentIsFatal(t *testing.T) {
	f := newFixture(t, testSpec())
	f.chat.Response = "  "

	_, err := f.orch.GetOrGenerate(context.Background(), uuid.New())
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
	assert.ErrorIs(t, err, retry.ErrEmptyContent)
}

func TestGetOrGenerate_UnprocessableIsSkipped(t *testing.T) {
	f := newFixture(t, testSpec())
	f.chat.Err = retry.NewStatusError(http.StatusUnprocessableEntity, "content policy", nil)

	_, err := f.orch.GetOrGenerate(context.Background(), uuid.New())
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
	assert.ErrorIs(t, err, retry.ErrUnprocessableInput)
	assert.Equal(t, 1, f.chat.CallCount())
}

func TestRegenerate_TemperatureEscalatesAndSaturates(t *testing.T) {
	f := newFixture(t, testSpec())
	ctx := context.Background()
	entityID := uuid.New()

	_, err := f.orch.GetOrGenerate(ctx, entityID)
	require.NoError(t, err)

	want := []float64{0.8, 0.9, 0.9, 0.9, 0.9}
	for i, temp := range want {
		res, err := f.orch.Regenerate(ctx, entityID)
		require.NoError(t, err)
		assert.Equal(t, i+1, res.AttemptIndex)
		assert.Equal(t, temp, res.Temperature)
		assert.Equal(t, 5-(i+1), res.RemainingAttempts)
		assert.Equal(t, generation.SourceGenerated, res.Source)
	}

	var temps []float64
	for _, req := range f.chat.Requests() {
		temps = append(temps, req.Temperature)
	}
	assert.Equal(t, []float64{0.7, 0.8, 0.9, 0.9, 0.9, 0.9}, temps)

	cached, ok := f.cache.Get(entityID)
	require.True(t, ok)
	assert.Equal(t, 5, cached.AttemptIndex, "cache reflects the latest attempt")
}

func TestRegenerate_LimitReachedWithoutExternalCall(t *testing.T) {
	f := newFixture(t, testSpec())
	entityID := uuid.New()
	content, err := json.Marshal(domain.DefaultScript())
	require.NoError(t, err)
	f.store.Put(domain.GenerationAttempt{EntityID: entityID, Kind: domain.KindScript, AttemptIndex: 5, Temperature: 0.9, Content: content})

	for i := 0; i < 3; i++ {
		_, err := f.orch.Regenerate(context.Background(), entityID)
		assert.ErrorIs(t, err, generation.ErrRegenerationLimitExceeded)
	}
	assert.Equal(t, 0, f.chat.CallCount())

	remaining, err := f.orch.RemainingAttempts(context.Background(), entityID)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestRegenerate_UninitializedEntityGeneratesFirstAttempt(t *testing.T) {
	f := newFixture(t, testSpec())

	res, err := f.orch.Regenerate(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0, res.AttemptIndex)
	assert.Equal(t, 0.7, res.Temperature)
	assert.Equal(t, 1, f.chat.CallCount())
}

func TestRegenerate_FailureLeavesStateIntact(t *testing.T) {
	f := newFixture(t, testSpec())
	ctx := context.Background()
	entityID := uuid.New()
	_, err := f.orch.GetOrGenerate(ctx, entityID)
	require.NoError(t, err)

	f.chat.Response = ""
	f.chat.Err = retry.NewStatusError(http.StatusUnauthorized, "bad key", nil)

	_, err = f.orch.Regenerate(ctx, entityID)
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
	assert.ErrorIs(t, err, retry.ErrUpstreamService)

	row, ok := f.store.Row(entityID, domain.KindScript)
	require.True(t, ok)
	assert.Equal(t, 0, row.AttemptIndex, "counter must not advance without content")
	assert.Equal(t, 0, f.store.AdvanceCalls)

	_, cached := f.cache.Get(entityID)
	assert.False(t, cached, "regeneration invalidates the cache entry")

	res, err := f.orch.GetOrGenerate(ctx, entityID)
	require.NoError(t, err)
	assert.Equal(t, generation.SourceStore, res.Source)
	assert.Equal(t, 0, res.AttemptIndex)
}

func TestRegenerate_CancelledMidFlight(t *testing.T) {
	f := newFixture(t, testSpec())
	entityID := uuid.New()
	_, err := f.orch.GetOrGenerate(context.Background(), entityID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	f.chat.CompleteFn = func(callCtx context.Context, req provider.ChatRequest) (string, error) {
		cancel()
		return "", callCtx.Err()
	}

	_, err = f.orch.Regenerate(ctx, entityID)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	row, _ := f.store.Row(entityID, domain.KindScript)
	assert.Equal(t, 0, row.AttemptIndex)
	_, cached := f.cache.Get(entityID)
	assert.False(t, cached)
}

func TestRegenerate_ConcurrentWriterConflict(t *testing.T) {
	f := newFixture(t, testSpec())
	entityID := uuid.New()
	_, err := f.orch.GetOrGenerate(context.Background(), entityID)
	require.NoError(t, err)

	f.store.AdvanceFn = func(ctx context.Context, attempt *domain.GenerationAttempt, expectedIndex int) error {
		return store.ErrConflict
	}

	_, err = f.orch.Regenerate(context.Background(), entityID)
	assert.ErrorIs(t, err, generation.ErrConcurrentRegeneration)
	_, cached := f.cache.Get(entityID)
	assert.False(t, cached)
}

func TestRegenerate_ConcurrentCallsAreSerialized(t *testing.T) {
	spec := testSpec()
	spec.Settings.MaxRegenerations = 10
	f := newFixture(t, spec)
	entityID := uuid.New()
	_, err := f.orch.GetOrGenerate(context.Background(), entityID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orch.Regenerate(context.Background(), entityID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	row, _ := f.store.Row(entityID, domain.KindScript)
	assert.Equal(t, 4, row.AttemptIndex)
	assert.Equal(t, 5, f.chat.CallCount())
}

func TestStaleFallback(t *testing.T) {
	f := newFixture(t, testSpec(), generation.WithStaleFallback(
		func(ctx context.Context, current *domain.GenerationAttempt, cause error) bool {
			return errors.Is(cause, retry.ErrRetriesExhausted)
		}))
	entityID := uuid.New()
	_, err := f.orch.GetOrGenerate(context.Background(), entityID)
	require.NoError(t, err)

	f.chat.Err = retry.NewStatusError(http.StatusGatewayTimeout, "", nil)
	res, err := f.orch.Regenerate(context.Background(), entityID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.AttemptIndex)
	assert.Equal(t, generation.SourceStore, res.Source)
}

type failingEmitter struct{ calls int }

func (e *failingEmitter) Emit(ctx context.Context, event *events.Event) error {
	e.calls++
	return errors.New("broker unavailable")
}

func TestPublish_AfterCommit(t *testing.T) {
	emitter := events.NewInMemoryEmitter(discardLogger())
	var received []events.GenerationCompleted
	emitter.Subscribe(events.TypeGenerationCompleted, events.HandlerFunc(func(ctx context.Context, e *events.Event) error {
		var p events.GenerationCompleted
		require.NoError(t, e.UnmarshalPayload(&p))
		received = append(received, p)
		return nil
	}))

	f := newFixture(t, testSpec(), generation.WithPublisher(emitter))
	entityID := uuid.New()

	_, err := f.orch.GetOrGenerate(context.Background(), entityID)
	require.NoError(t, err)
	_, err = f.orch.Regenerate(context.Background(), entityID)
	require.NoError(t, err)

	require.Len(t, received, 2)
	assert.Equal(t, 0, received[0].AttemptIndex)
	assert.Equal(t, 1, received[1].AttemptIndex)
	assert.Equal(t, domain.KindScript, received[1].Kind)

	row, _ := f.store.Row(entityID, domain.KindScript)
	assert.NotNil(t, row.PublishedAt)

	_, err = f.orch.GetOrGenerate(context.Background(), entityID)
	require.NoError(t, err)
	assert.Len(t, received, 2, "cache hits publish nothing")
}

func TestPublish_FailureIsNotFatal(t *testing.T) {
	emitter := &failingEmitter{}
	f := newFixture(t, testSpec(), generation.WithPublisher(emitter))
	entityID := uuid.New()

	res, err := f.orch.GetOrGenerate(context.Background(), entityID)
	require.NoError(t, err)
	assert.Equal(t, generation.SourceGenerated, res.Source)
	assert.Equal(t, 1, emitter.calls)

	row, _ := f.store.Row(entityID, domain.KindScript)
	assert.Nil(t, row.PublishedAt, "left unpublished for reconciliation")
}

func TestRemainingAttempts(t *testing.T) {
	f := newFixture(t, testSpec())
	ctx := context.Background()
	entityID := uuid.New()

	remaining, err := f.orch.RemainingAttempts(ctx, entityID)
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)

	_, err = f.orch.GetOrGenerate(ctx, entityID)
	require.NoError(t, err)
	_, err = f.orch.Regenerate(ctx, entityID)
	require.NoError(t, err)

	remaining, err = f.orch.RemainingAttempts(ctx, entityID)
	require.NoError(t, err)
	assert.Equal(t, 4, remaining)
}

func TestNilEntityID(t *testing.T) {
	f := newFixture(t, testSpec())

	_, err := f.orch.GetOrGenerate(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.orch.Regenerate(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.orch.RemainingAttempts(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNewOrchestrator_InvalidSpec(t *testing.T) {
	executor := retry.NewExecutor(discardLogger())
	chat := &mocks.MockChatCompleter{}

	spec := testSpec()
	spec.Settings.Schedule = generation.Schedule{Base: 0.9, Increment: 0.1, Max: 0.5}
	_, err := generation.NewOrchestrator(spec, chat, executor, retry.ChatPolicy(), mocks.NewMockGenerationStore(), generation.NewMemoryCache(time.Minute), discardLogger())
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	spec = testSpec()
	spec.Default = nil
	_, err = generation.NewOrchestrator(spec, chat, executor, retry.ChatPolicy(), mocks.NewMockGenerationStore(), generation.NewMemoryCache(time.Minute), discardLogger())
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}
