package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-strategy-engine/internal/domain"
)

func testRequest() Request {
	return Request{
		InputMint:   "So11111111111111111111111111111111111111112",
		OutputMint:  "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Amount:      1_000_000_000,
		SlippageBps: 50,
	}
}

func testQuote() *domain.Quote {
	return &domain.Quote{
		InAmount:  1_000_000_000,
		OutAmount: 150_000_000,
	}
}

func TestCache_TTL(t *testing.T) {
	clock := time.UnixMilli(0)
	c := NewCache(600 * time.Millisecond)
	c.now = func() time.Time { return clock }

	req := testRequest()
	q := testQuote()

	c.Put(req, q)

	clock = time.UnixMilli(500)
	assert.Same(t, q, c.Get(req))

	clock = time.UnixMilli(700)
	assert.Nil(t, c.Get(req))
	assert.Equal(t, 0, c.Len(), "expired entry removed on read")
}

func TestCache_KeyIncludesAllDimensions(t *testing.T) {
	c := NewCache(time.Minute)
	base := testRequest()
	c.Put(base, testQuote())

	other := base
	other.SlippageBps = 100
	assert.Nil(t, c.Get(other))

	other = base
	other.Amount = 2_000_000_000
	assert.Nil(t, c.Get(other))

	other = base
	other.Mode = "turbo"
	assert.Nil(t, c.Get(other))

	assert.NotNil(t, c.Get(base))
}

// stubProvider counts calls and returns a fixed quote or error.
type stubProvider struct {
	quote *domain.Quote
	err   error
	calls int
}

func (s *stubProvider) Quote(_ context.Context, _ Request) (*domain.Quote, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.quote, nil
}

func TestCachingProvider_HitSkipsInner(t *testing.T) {
	stub := &stubProvider{quote: testQuote()}
	p := NewCachingProvider(stub, NewCache(time.Minute), 0)

	req := testRequest()
	q1, err := p.Quote(context.Background(), req)
	require.NoError(t, err)

	q2, err := p.Quote(context.Background(), req)
	require.NoError(t, err)

	assert.Same(t, q1, q2)
	assert.Equal(t, 1, stub.calls)
}

func TestCachingProvider_ImpactLimit(t *testing.T) {
	stub := &stubProvider{quote: &domain.Quote{InAmount: 1, OutAmount: 1, PriceImpactPct: 5.0}}
	p := NewCachingProvider(stub, NewCache(time.Minute), 2.5)

	_, err := p.Quote(context.Background(), testRequest())
	var qe *domain.QuoteError
	require.ErrorAs(t, err, &qe)

	// Rejected quotes are not cached.
	_, err = p.Quote(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, 2, stub.calls)
}

func TestCachingProvider_ErrorNotCached(t *testing.T) {
	stub := &stubProvider{err: &domain.QuoteError{Reason: "no route"}}
	p := NewCachingProvider(stub, NewCache(time.Minute), 0)

	_, err := p.Quote(context.Background(), testRequest())
	require.Error(t, err)
	_, err = p.Quote(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, 2, stub.calls)
}
