package generation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/domain"
)

// Cache holds the latest attempt per entity for one generation kind.
type Cache interface {
	Get(entityID uuid.UUID) (*domain.GenerationAttempt, bool)
	Set(attempt *domain.GenerationAttempt)
	Delete(entityID uuid.UUID)
}

type cacheEntry struct {
	attempt   *domain.GenerationAttempt
	expiresAt time.Time
}

// MemoryCache is a process-local Cache with a fixed TTL. Expired entries are
// dropped on read.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[uuid.UUID]cacheEntry
}

// NewMemoryCache creates a MemoryCache. A non-positive ttl never expires entries.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uuid.UUID]cacheEntry),
	}
}

// Get returns a copy of the cached attempt.
func (c *MemoryCache) Get(entityID uuid.UUID) (*domain.GenerationAttempt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[entityID]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && !c.now().Before(e.expiresAt) {
		delete(c.entries, entityID)
		return nil, false
	}
	cp := *e.attempt
	return &cp, true
}

// Set stores a copy of attempt, replacing any previous entry.
func (c *MemoryCache) Set(attempt *domain.GenerationAttempt) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := *attempt
	c.entries[attempt.EntityID] = cacheEntry{attempt: &cp, expiresAt: c.now().Add(c.ttl)}
}

// Delete removes the entry for entityID.
func (c *MemoryCache) Delete(entityID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, entityID)
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
