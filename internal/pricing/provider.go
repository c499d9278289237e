// Package pricing acquires priced swap quotes from an external routing
// service and memoizes them in a short-TTL warm cache.
package pricing

import (
	"context"

	"solana-strategy-engine/internal/domain"
)

// Request identifies one quote lookup.
type Request struct {
	InputMint   string
	OutputMint  string
	Amount      uint64 // input lamport-equivalent units
	SlippageBps int
	Mode        string // routing mode hint ("", "turbo", ...)
}

// Provider returns a priced quote for a request, or a *domain.QuoteError
// when no usable route exists.
type Provider interface {
	Quote(ctx context.Context, req Request) (*domain.Quote, error)
}
