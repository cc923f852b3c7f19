package batchcache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/token-risk-engine/internal/model"
	"github.com/yourorg/token-risk-engine/internal/types"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache() (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := New()
	c.now = clock.Now
	return c, clock
}

func cleanResponse() *model.BatchResponse {
	return &model.BatchResponse{
		Results: map[string]*model.RiskScore{
			"ethereum-0xaaa": {TotalScore: 10, Level: model.LevelLow},
		},
		Meta: model.BatchMeta{Requested: 1, Unique: 1, Succeeded: 1},
	}
}

func TestCompositeKey_OrderIndependent(t *testing.T) {
	a := model.NewTokenKey(types.ChainEthereum, "0xAAA0000000000000000000000000000000000001")
	b := model.NewTokenKey(types.ChainBSC, "0xBBB0000000000000000000000000000000000002")

	k1 := CompositeKey([]model.TokenKey{a, b})
	k2 := CompositeKey([]model.TokenKey{b, a})
	assert.Equal(t, k1, k2, "request order must not affect cache identity")
	assert.Contains(t, k1, "ethereum-0xaaa0000000000000000000000000000000000001",
		"keys use normalized lowercased addresses")
}

func TestGetPut_RoundTrip(t *testing.T) {
	c, _ := newTestCache()

	assert.Nil(t, c.Get("k"), "empty cache misses")

	resp := cleanResponse()
	c.Put("k", resp)
	got := c.Get("k")
	require.NotNil(t, got)
	assert.Equal(t, resp, got)
}

func TestGet_LazyExpiry(t *testing.T) {
	c, clock := newTestCache()

	c.Put("k", cleanResponse())

	clock.Advance(59 * time.Second)
	assert.NotNil(t, c.Get("k"), "entry is valid just inside the TTL")

	clock.Advance(2 * time.Second)
	assert.Nil(t, c.Get("k"), "entry expires lazily after 60s")

	_, _, size := c.Stats()
	assert.Equal(t, 0, size, "expired entries are dropped on read")
}

func TestPut_RejectsPartialFailures(t *testing.T) {
	c, _ := newTestCache()

	resp := cleanResponse()
	resp.Errors = map[string]model.ItemError{
		"bsc-0xbbb": {Code: model.CodeAnalysisTimeout, Message: "analysis timed out"},
	}

	c.Put("k", resp)
	assert.Nil(t, c.Get("k"), "a batch with any per-item error must never be cached")
}

func TestStats(t *testing.T) {
	c, _ := newTestCache()

	c.Get("missing")
	c.Put("k", cleanResponse())
	c.Get("k")

	hits, misses, size := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1, size)
}
