package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/store"
)

// MockNarrationStore is an in-memory store.NarrationStore.
type MockNarrationStore struct {
	SaveErr error

	mu        sync.Mutex
	assets    map[uuid.UUID]domain.NarrationAsset
	SaveCalls int
}

// NewMockNarrationStore creates an empty store.
func NewMockNarrationStore() *MockNarrationStore {
	return &MockNarrationStore{assets: make(map[uuid.UUID]domain.NarrationAsset)}
}

// SaveNarration implements store.NarrationStore.
func (m *MockNarrationStore) SaveNarration(ctx context.Context, asset *domain.NarrationAsset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.assets[asset.TaskID] = *asset
	return nil
}

// GetNarration implements store.NarrationStore.
func (m *MockNarrationStore) GetNarration(ctx context.Context, taskID uuid.UUID) (*domain.NarrationAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: narration for task %s", store.ErrNotFound, taskID)
	}
	return &a, nil
}

var _ store.NarrationStore = (*MockNarrationStore)(nil)
