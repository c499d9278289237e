package solana

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/observability"
)

// DefaultSendTimeout bounds a single endpoint submission. Scaled from the
// blockhash TTL so a stuck endpoint cannot outlive the hash it was sent
// under by much.
const DefaultSendTimeout = 4 * DefaultBlockhashTTL

// QuorumClient fans a signed transaction out to a fixed set of endpoints
// and succeeds once the required number of acknowledgements arrive.
//
// Endpoint selection takes the first quorum.Size endpoints from the
// configured list; the remainder is never used as fallback.
type QuorumClient struct {
	endpoints   []Endpoint
	quorum      domain.Quorum
	blockhashes *BlockhashCache
	sendTimeout time.Duration
}

// QuorumOption configures QuorumClient.
type QuorumOption func(*QuorumClient)

// WithSendTimeout sets the per-endpoint submission timeout.
func WithSendTimeout(d time.Duration) QuorumOption {
	return func(c *QuorumClient) {
		c.sendTimeout = d
	}
}

// WithBlockhashCache sets a shared blockhash cache.
func WithBlockhashCache(cache *BlockhashCache) QuorumOption {
	return func(c *QuorumClient) {
		c.blockhashes = cache
	}
}

// NewQuorumClient creates a quorum broadcaster over the given endpoints.
func NewQuorumClient(endpoints []Endpoint, quorum domain.Quorum, opts ...QuorumOption) (*QuorumClient, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints configured")
	}
	if quorum.Size <= 0 {
		quorum.Size = len(endpoints)
	}
	if quorum.Size > len(endpoints) {
		quorum.Size = len(endpoints)
	}
	if quorum.Require <= 0 {
		quorum.Require = 1
	}
	if quorum.Require > quorum.Size {
		return nil, fmt.Errorf("quorum require %d exceeds size %d", quorum.Require, quorum.Size)
	}

	c := &QuorumClient{
		endpoints:   endpoints,
		quorum:      quorum,
		blockhashes: NewBlockhashCache(DefaultBlockhashTTL),
		sendTimeout: DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RecentBlockhash returns a fresh-enough blockhash from the primary
// selected endpoint, for callers that build transactions locally.
func (c *QuorumClient) RecentBlockhash(ctx context.Context) (string, error) {
	bh, err := c.blockhashes.Recent(ctx, c.endpoints[0])
	if err != nil {
		return "", err
	}
	return bh.Hash, nil
}

type sendOutcome struct {
	endpoint  string
	signature string
	err       error
}

// Broadcast submits the transaction to the selected endpoints in parallel
// and waits for all of them to settle. The returned signature comes from
// the acknowledgement that completed first. Fewer acknowledgements than
// the quorum requires yields domain.ErrQuorumNotReached.
func (c *QuorumClient) Broadcast(ctx context.Context, txBase64 string) (*BroadcastResult, error) {
	selected := c.endpoints[:c.quorum.Size]

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acks     int
		winner   *sendOutcome
		outcomes = make([]sendOutcome, len(selected))
	)

	for i, ep := range selected {
		wg.Add(1)
		go func(i int, ep Endpoint) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, c.sendTimeout)
			defer cancel()

			// Keep the endpoint's blockhash warm alongside the send so the
			// next attempt does not pay the refresh latency. Failure here is
			// not fatal to the submission.
			if _, err := c.blockhashes.Recent(sendCtx, ep); err != nil {
				log.Printf("[quorum] blockhash refresh failed endpoint=%s: %v", ep.URL(), err)
			}

			observability.RecordQuorumSent(ep.URL())
			sig, err := ep.SendTransaction(sendCtx, txBase64)
			outcomes[i] = sendOutcome{endpoint: ep.URL(), signature: sig, err: err}

			if err != nil {
				log.Printf("[quorum] send failed endpoint=%s: %v", ep.URL(), err)
				return
			}

			mu.Lock()
			acks++
			if winner == nil {
				winner = &outcomes[i]
				observability.RecordQuorumWin(ep.URL())
			}
			mu.Unlock()
		}(i, ep)
	}

	wg.Wait()

	if acks < c.quorum.Require {
		return nil, fmt.Errorf("%w: %d/%d acknowledgements", domain.ErrQuorumNotReached, acks, c.quorum.Require)
	}

	return &BroadcastResult{
		Signature: winner.signature,
		Endpoint:  winner.endpoint,
		Acks:      acks,
	}, nil
}

// Balance returns the lamport balance of an account from the primary
// selected endpoint.
func (c *QuorumClient) Balance(ctx context.Context, pubkey string) (uint64, error) {
	return c.endpoints[0].GetBalance(ctx, pubkey)
}
