// Package batchcache holds recently assembled batch responses so identical
// batches repeated within a short window skip analysis entirely. Entries are
// process-local and best-effort; the persistent store remains the durable
// source of truth.
package batchcache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yourorg/token-risk-engine/internal/model"
)

// TTL is how long a stored batch response stays valid.
const TTL = 60 * time.Second

// keySeparator joins the sorted per-token keys into the composite key.
const keySeparator = ","

type entry struct {
	response *model.BatchResponse
	storedAt time.Time
}

// Cache is a mutex-guarded TTL cache of whole-batch responses. Expiry is
// checked lazily on read; no background sweeper runs.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry

	hits   int64
	misses int64

	// now is swappable for tests.
	now func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// CompositeKey derives the order-independent cache key for a batch: the
// normalized per-token keys sorted and joined with a fixed separator.
func CompositeKey(tokens []model.TokenKey) string {
	keys := make([]string, len(tokens))
	for i, tk := range tokens {
		keys[i] = tk.String()
	}
	sort.Strings(keys)
	return strings.Join(keys, keySeparator)
}

// Get returns the cached response for the key, or nil if the key is absent
// or its entry has expired.
func (c *Cache) Get(key string) *model.BatchResponse {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil
	}
	if c.now().Sub(e.storedAt) >= TTL {
		delete(c.entries, key)
		c.misses++
		return nil
	}
	c.hits++
	return e.response
}

// Put stores a batch response unless it contains per-item errors. Partial
// failures are never cached, so failed tokens are re-attempted on the next
// identical request instead of being served a stale placeholder.
func (c *Cache) Put(key string, resp *model.BatchResponse) {
	if resp == nil || len(resp.Errors) > 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{response: resp, storedAt: c.now()}
}

// Stats reports cumulative hit/miss counts and the current entry count.
func (c *Cache) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.entries)
}
