package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/store"
)

// MockFrameStore is an in-memory store.FrameStore.
type MockFrameStore struct {
	ReplaceErr error
	ListErr    error

	// Conn is returned by DB, typically a sqlmock connection
	Conn *sql.DB

	mu           sync.Mutex
	analyses     map[uuid.UUID][]domain.FrameAnalysis
	recommended  map[uuid.UUID]domain.RecommendationSet
	ReplaceCalls int
}

// NewMockFrameStore creates an empty store.
func NewMockFrameStore() *MockFrameStore {
	return &MockFrameStore{
		analyses:    make(map[uuid.UUID][]domain.FrameAnalysis),
		recommended: make(map[uuid.UUID]domain.RecommendationSet),
	}
}

// ReplaceAnalyses implements store.FrameStore.
func (m *MockFrameStore) ReplaceAnalyses(ctx context.Context, taskID uuid.UUID, analyses []domain.FrameAnalysis, recommended domain.RecommendationSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReplaceCalls++
	if m.ReplaceErr != nil {
		return m.ReplaceErr
	}
	m.analyses[taskID] = append([]domain.FrameAnalysis(nil), analyses...)
	m.recommended[taskID] = recommended
	return nil
}

// ListAnalyses implements store.FrameStore.
func (m *MockFrameStore) ListAnalyses(ctx context.Context, taskID uuid.UUID) ([]domain.FrameAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := append([]domain.FrameAnalysis(nil), m.analyses[taskID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].FrameID < out[j].FrameID })
	return out, nil
}

// ListRecommended implements store.FrameStore.
func (m *MockFrameStore) ListRecommended(ctx context.Context, taskID uuid.UUID) (domain.RecommendationSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	set := domain.RecommendationSet{}
	for _, c := range domain.Categories {
		set[c] = append([]int64{}, m.recommended[taskID][c]...)
	}
	return set, nil
}

// WithTx implements store.FrameStore; the mock ignores transactions.
func (m *MockFrameStore) WithTx(tx *sql.Tx) store.FrameStore {
	return m
}

// DB implements store.FrameStore.
func (m *MockFrameStore) DB() *sql.DB {
	return m.Conn
}

// MockVideoTaskReader implements store.VideoTaskReader.
type MockVideoTaskReader struct {
	Tasks map[uuid.UUID]*domain.VideoTask
	Err   error
}

// GetVideoTask implements store.VideoTaskReader.
func (m *MockVideoTaskReader) GetVideoTask(ctx context.Context, id uuid.UUID) (*domain.VideoTask, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	t, ok := m.Tasks[id]
	if !ok {
		return nil, store.ErrVideoTaskNotFound
	}
	return t, nil
}
