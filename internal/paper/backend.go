package paper

import (
	"context"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/executor"
	"solana-strategy-engine/internal/fees"
	"solana-strategy-engine/internal/wallet"
)

// Backend adapts the engine to the executor's backend surface for one
// instance configuration. Injected failures surface as errors so the
// scheduler's halt logic is exercised exactly as with live trading.
type Backend struct {
	engine *Engine
	cfg    *domain.InstanceConfig
}

// NewBackend creates a paper execution backend bound to cfg.
func NewBackend(engine *Engine, cfg *domain.InstanceConfig) *Backend {
	return &Backend{engine: engine, cfg: cfg}
}

// Execute simulates one execution. The signing key and fee attempt are
// accepted for interface parity; the simulation prices fees from the
// configured priority fee.
func (b *Backend) Execute(_ context.Context, quote *domain.Quote, _ *wallet.SigningKey, _ fees.Attempt) (*domain.SimulationResult, error) {
	result := b.engine.Simulate(quote, b.cfg)
	if result.Failed() {
		return nil, &domain.SimulationError{Code: result.FailureCode}
	}
	return result, nil
}

var _ executor.Backend = (*Backend)(nil)
