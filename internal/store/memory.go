package store

import (
	"context"
	"sync"
	"time"

	"github.com/yourorg/token-risk-engine/internal/model"
	"github.com/yourorg/token-risk-engine/internal/types"
)

// MemoryStore is a mutex-guarded in-process Store used for store-less
// deployments and tests. Entries expire lazily after the TTL.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

type memoryEntry struct {
	score    *model.RiskScore
	storedAt time.Time
}

// NewMemoryStore creates an empty in-memory store. A zero TTL means entries
// never expire.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

// Lookup returns the stored score, or (nil, nil) when absent or expired.
func (s *MemoryStore) Lookup(_ context.Context, chain types.SupportedChain, address string) (*model.RiskScore, error) {
	key := string(scoreKey(chain, address))

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if s.ttl > 0 && time.Since(e.storedAt) >= s.ttl {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, nil
	}
	return e.score, nil
}

// Store saves the score, overwriting any previous entry for the token.
func (s *MemoryStore) Store(_ context.Context, score *model.RiskScore) error {
	key := string(scoreKey(score.Token.Chain, score.Token.Address))

	s.mu.Lock()
	s.entries[key] = memoryEntry{score: score, storedAt: time.Now()}
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
