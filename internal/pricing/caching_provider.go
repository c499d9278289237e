package pricing

import (
	"context"
	"fmt"

	"solana-strategy-engine/internal/domain"
)

// CachingProvider probes the warm cache before the inner provider and
// validates the maximum acceptable price impact on misses.
type CachingProvider struct {
	inner        Provider
	cache        *Cache
	maxImpactPct float64 // 0 disables the check
}

// NewCachingProvider wraps inner with the cache. maxImpactPct of 0
// disables impact validation.
func NewCachingProvider(inner Provider, cache *Cache, maxImpactPct float64) *CachingProvider {
	return &CachingProvider{
		inner:        inner,
		cache:        cache,
		maxImpactPct: maxImpactPct,
	}
}

// Quote returns a cached quote when fresh, otherwise fetches, validates,
// and stores one.
func (p *CachingProvider) Quote(ctx context.Context, req Request) (*domain.Quote, error) {
	if q := p.cache.Get(req); q != nil {
		return q, nil
	}

	q, err := p.inner.Quote(ctx, req)
	if err != nil {
		return nil, err
	}

	if p.maxImpactPct > 0 && q.PriceImpactPct > p.maxImpactPct {
		return nil, &domain.QuoteError{
			Reason: fmt.Sprintf("price impact %.4f%% exceeds limit %.4f%%", q.PriceImpactPct, p.maxImpactPct),
		}
	}

	p.cache.Put(req, q)
	return q, nil
}

var _ Provider = (*CachingProvider)(nil)
