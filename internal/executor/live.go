package executor

import (
	"context"
	"fmt"
	"time"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/fees"
	"solana-strategy-engine/internal/solana"
	"solana-strategy-engine/internal/wallet"
)

// DefaultConfirmTimeout bounds the optional signature-confirmation wait.
const DefaultConfirmTimeout = 30 * time.Second

// LiveBackend lands executions through the quorum RPC client.
type LiveBackend struct {
	quorum         *solana.QuorumClient
	confirm        *solana.ConfirmClient // optional
	confirmTimeout time.Duration
}

// LiveOption configures LiveBackend.
type LiveOption func(*LiveBackend)

// WithConfirmClient enables waiting for on-chain confirmation of the
// winning signature.
func WithConfirmClient(c *solana.ConfirmClient) LiveOption {
	return func(b *LiveBackend) {
		b.confirm = c
	}
}

// WithConfirmTimeout sets the confirmation wait bound.
func WithConfirmTimeout(d time.Duration) LiveOption {
	return func(b *LiveBackend) {
		b.confirmTimeout = d
	}
}

// NewLiveBackend creates a live broadcast backend.
func NewLiveBackend(quorum *solana.QuorumClient, opts ...LiveOption) *LiveBackend {
	b := &LiveBackend{
		quorum:         quorum,
		confirmTimeout: DefaultConfirmTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Execute signs the quote's transaction payload and broadcasts it.
// The result mirrors the paper engine's shape so callers never branch on
// the backend kind.
func (b *LiveBackend) Execute(ctx context.Context, quote *domain.Quote, key *wallet.SigningKey, attempt fees.Attempt) (*domain.SimulationResult, error) {
	if len(quote.SwapTransaction) == 0 {
		return nil, &domain.ExecutionError{Stage: "sign", Err: fmt.Errorf("quote carries no transaction payload")}
	}

	// A failed balance read is not a failed trade; only a confirmed
	// shortfall halts the instance.
	needed := quote.InAmount + attempt.TipLamports
	if balance, err := b.quorum.Balance(ctx, key.PublicKey); err == nil && balance < needed {
		return nil, fmt.Errorf("%w: balance %d below required %d lamports", domain.ErrInsufficientFunds, balance, needed)
	}

	signed, err := SignTransaction(quote.SwapTransaction, key)
	if err != nil {
		return nil, &domain.ExecutionError{Stage: "sign", Err: err}
	}

	broadcast, err := b.quorum.Broadcast(ctx, signed)
	if err != nil {
		return nil, &domain.ExecutionError{Stage: "broadcast", Err: err}
	}

	if b.confirm != nil {
		confirmCtx, cancel := context.WithTimeout(ctx, b.confirmTimeout)
		err := b.confirm.WaitForSignature(confirmCtx, broadcast.Signature)
		cancel()
		if err != nil {
			return nil, &domain.ExecutionError{Stage: "confirm", Err: err}
		}
	}

	return &domain.SimulationResult{
		Signature: broadcast.Signature,
		Fills: []domain.Fill{{
			Price:       quote.MidPrice(),
			Amount:      quote.InAmount,
			OutAmount:   quote.OutAmount,
			SlippageBps: 0,
		}},
		FillPrice:    quote.MidPrice(),
		FeesLamports: attempt.PriceLamports + attempt.TipLamports,
	}, nil
}

var _ Backend = (*LiveBackend)(nil)
