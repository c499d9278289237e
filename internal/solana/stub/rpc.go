package stub

import (
	"context"
	"sync"
	"sync/atomic"

	"solana-strategy-engine/internal/solana"
)

// Endpoint implements solana.Endpoint for testing.
type Endpoint struct {
	Addr      string
	Blockhash solana.Blockhash
	Signature string
	Lamports  uint64

	// SendErr, when set, makes SendTransaction fail.
	SendErr error
	// BlockhashErr, when set, makes GetLatestBlockhash fail.
	BlockhashErr error

	blockhashCalls atomic.Int64
	sendCalls      atomic.Int64

	mu      sync.Mutex
	sentTxs []string
}

// NewEndpoint creates a stub endpoint answering with fixed values.
func NewEndpoint(addr string) *Endpoint {
	return &Endpoint{
		Addr:      addr,
		Blockhash: solana.Blockhash{Hash: "stub-blockhash", LastValidBlockHeight: 1000},
		Signature: "stub-signature",
		Lamports:  10_000_000_000,
	}
}

// URL returns the configured address.
func (e *Endpoint) URL() string {
	return e.Addr
}

// GetLatestBlockhash returns the fixed blockhash and counts the call.
func (e *Endpoint) GetLatestBlockhash(_ context.Context) (*solana.Blockhash, error) {
	e.blockhashCalls.Add(1)
	if e.BlockhashErr != nil {
		return nil, e.BlockhashErr
	}
	bh := e.Blockhash
	return &bh, nil
}

// SendTransaction records the transaction and returns the fixed signature.
func (e *Endpoint) SendTransaction(_ context.Context, txBase64 string) (string, error) {
	e.sendCalls.Add(1)
	if e.SendErr != nil {
		return "", e.SendErr
	}

	e.mu.Lock()
	e.sentTxs = append(e.sentTxs, txBase64)
	e.mu.Unlock()

	return e.Signature, nil
}

// GetBalance returns the fixed lamport balance.
func (e *Endpoint) GetBalance(_ context.Context, _ string) (uint64, error) {
	return e.Lamports, nil
}

// BlockhashCalls returns how many times GetLatestBlockhash was invoked.
func (e *Endpoint) BlockhashCalls() int64 {
	return e.blockhashCalls.Load()
}

// SendCalls returns how many times SendTransaction was invoked.
func (e *Endpoint) SendCalls() int64 {
	return e.sendCalls.Load()
}

// SentTransactions returns the transactions submitted so far.
func (e *Endpoint) SentTransactions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]string, len(e.sentTxs))
	copy(out, e.sentTxs)
	return out
}

var _ solana.Endpoint = (*Endpoint)(nil)
