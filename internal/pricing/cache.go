package pricing

import (
	"fmt"
	"sync"
	"time"

	"solana-strategy-engine/internal/domain"
)

// DefaultCacheTTL is the warm-cache relevance window. Quotes older than
// this are treated as absent regardless of any on-chain validity window.
const DefaultCacheTTL = 600 * time.Millisecond

// Cache memoizes quotes keyed by (input, output, amount, slippage, mode).
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	quote    *domain.Quote
	storedAt time.Time
}

// NewCache creates a warm cache with the given TTL; ttl <= 0 uses
// DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached quote for req, or nil when absent or expired.
// Expired entries are removed on read.
func (c *Cache) Get(req Request) *domain.Quote {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(req)
	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil
	}
	return entry.quote
}

// Put stores a quote for req.
func (c *Cache) Put(req Request, q *domain.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(req)] = cacheEntry{quote: q, storedAt: c.now()}
}

// Len returns the number of entries, including not-yet-evicted expired ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cacheKey(req Request) string {
	return fmt.Sprintf("%s|%s|%d|%d|%s",
		req.InputMint, req.OutputMint, req.Amount, req.SlippageBps, req.Mode)
}
