package solana

import (
	"context"
	"sync"
	"time"

	"solana-strategy-engine/internal/observability"
)

// DefaultBlockhashTTL is how long a cached recent-blockhash stays fresh.
const DefaultBlockhashTTL = 2500 * time.Millisecond

type blockhashEntry struct {
	value     Blockhash
	fetchedAt time.Time
}

// BlockhashCache caches the recent blockhash per endpoint with a TTL.
// Each endpoint keeps its own entry so a lagging node never serves a
// blockhash fetched from another.
type BlockhashCache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]blockhashEntry

	now func() time.Time
}

// NewBlockhashCache creates a cache with the given TTL.
// A non-positive TTL falls back to DefaultBlockhashTTL.
func NewBlockhashCache(ttl time.Duration) *BlockhashCache {
	if ttl <= 0 {
		ttl = DefaultBlockhashTTL
	}
	return &BlockhashCache{
		ttl:     ttl,
		entries: make(map[string]blockhashEntry),
		now:     time.Now,
	}
}

// Recent returns the endpoint's cached blockhash, refreshing it from the
// node when the TTL has elapsed or no entry exists yet.
func (c *BlockhashCache) Recent(ctx context.Context, ep Endpoint) (*Blockhash, error) {
	url := ep.URL()

	c.mu.Lock()
	entry, ok := c.entries[url]
	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		value := entry.value
		c.mu.Unlock()
		return &value, nil
	}
	c.mu.Unlock()

	// Fetch outside the lock; concurrent refreshes of the same endpoint
	// are harmless, last write wins.
	fresh, err := ep.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	observability.RecordBlockhashRefresh(url)

	c.mu.Lock()
	c.entries[url] = blockhashEntry{value: *fresh, fetchedAt: c.now()}
	c.mu.Unlock()

	value := *fresh
	return &value, nil
}
