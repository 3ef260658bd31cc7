package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/store"
)

type generationKey struct {
	entityID uuid.UUID
	kind     domain.GenerationKind
}

// MockGenerationStore is an in-memory store.GenerationStore with the same
// conditional-write semantics as the Postgres implementation. Fn fields
// override individual methods.
type MockGenerationStore struct {
	GetFn     func(ctx context.Context, entityID uuid.UUID, kind domain.GenerationKind) (*domain.GenerationAttempt, error)
	CreateFn  func(ctx context.Context, attempt *domain.GenerationAttempt) (*domain.GenerationAttempt, bool, error)
	AdvanceFn func(ctx context.Context, attempt *domain.GenerationAttempt, expectedIndex int) error

	mu             sync.Mutex
	rows           map[generationKey]domain.GenerationAttempt
	GetCalls       int
	CreateCalls    int
	AdvanceCalls   int
	PublishedCalls int
}

// NewMockGenerationStore creates an empty store.
func NewMockGenerationStore() *MockGenerationStore {
	return &MockGenerationStore{rows: make(map[generationKey]domain.GenerationAttempt)}
}

// Put seeds a row directly.
func (m *MockGenerationStore) Put(a domain.GenerationAttempt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[generationKey{a.EntityID, a.Kind}] = a
}

// Row returns the stored row, if any.
func (m *MockGenerationStore) Row(entityID uuid.UUID, kind domain.GenerationKind) (domain.GenerationAttempt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[generationKey{entityID, kind}]
	return a, ok
}

// Get implements store.GenerationStore.
func (m *MockGenerationStore) Get(ctx context.Context, entityID uuid.UUID, kind domain.GenerationKind) (*domain.GenerationAttempt, error) {
	m.mu.Lock()
	m.GetCalls++
	m.mu.Unlock()
	if m.GetFn != nil {
		return m.GetFn(ctx, entityID, kind)
	}

	a, ok := m.Row(entityID, kind)
	if !ok {
		return nil, store.ErrGenerationNotFound
	}
	return &a, nil
}

// Create implements store.GenerationStore.
func (m *MockGenerationStore) Create(ctx context.Context, attempt *domain.GenerationAttempt) (*domain.GenerationAttempt, bool, error) {
	m.mu.Lock()
	m.CreateCalls++
	m.mu.Unlock()
	if m.CreateFn != nil {
		return m.CreateFn(ctx, attempt)
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := generationKey{attempt.EntityID, attempt.Kind}
	if existing, ok := m.rows[key]; ok {
		return &existing, false, nil
	}
	m.rows[key] = *attempt
	stored := *attempt
	return &stored, true, nil
}

// Advance implements store.GenerationStore.
func (m *MockGenerationStore) Advance(ctx context.Context, attempt *domain.GenerationAttempt, expectedIndex int) error {
	m.mu.Lock()
	m.AdvanceCalls++
	m.mu.Unlock()
	if m.AdvanceFn != nil {
		return m.AdvanceFn(ctx, attempt, expectedIndex)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := generationKey{attempt.EntityID, attempt.Kind}
	existing, ok := m.rows[key]
	if !ok || existing.AttemptIndex != expectedIndex {
		return store.ErrConflict
	}
	m.rows[key] = *attempt
	return nil
}

// MarkPublished implements store.GenerationStore.
func (m *MockGenerationStore) MarkPublished(ctx context.Context, entityID uuid.UUID, kind domain.GenerationKind, attemptIndex int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishedCalls++
	key := generationKey{entityID, kind}
	if a, ok := m.rows[key]; ok && a.AttemptIndex == attemptIndex {
		t := at
		a.PublishedAt = &t
		m.rows[key] = a
	}
	return nil
}

// ListUnpublished implements store.GenerationStore.
func (m *MockGenerationStore) ListUnpublished(ctx context.Context, olderThan time.Time, limit int) ([]*domain.GenerationAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.GenerationAttempt
	for _, a := range m.rows {
		if a.PublishedAt == nil && a.CachedAt.Before(olderThan) {
			cp := a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CachedAt.Before(out[j].CachedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// WithTx implements store.GenerationStore; the mock ignores transactions.
func (m *MockGenerationStore) WithTx(tx *sql.Tx) store.GenerationStore {
	return m
}
