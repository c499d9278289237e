package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/fees"
	"solana-strategy-engine/internal/solana"
	"solana-strategy-engine/internal/solana/stub"
)

func liveQuote(payload []byte) *domain.Quote {
	return &domain.Quote{
		InputMint:       domain.NativeMint,
		OutputMint:      "MintLiveAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		InAmount:        1_000_000,
		OutAmount:       2_000_000,
		SwapTransaction: payload,
	}
}

func liveQuorum(t *testing.T, endpoints ...solana.Endpoint) *solana.QuorumClient {
	t.Helper()
	q, err := solana.NewQuorumClient(endpoints, domain.Quorum{Size: len(endpoints), Require: 1})
	require.NoError(t, err)
	return q
}

func TestLiveBackend_SignsAndBroadcasts(t *testing.T) {
	key, _ := resolveKey(t)
	defer key.Wipe()

	ep := stub.NewEndpoint("http://node-a")
	backend := NewLiveBackend(liveQuorum(t, ep))

	attempt := fees.Attempt{PriceLamports: 1000, TipLamports: 500}
	result, err := backend.Execute(context.Background(), liveQuote(unsignedTx([]byte("msg"), 1)), key, attempt)
	require.NoError(t, err)

	assert.Equal(t, "stub-signature", result.Signature)
	assert.Equal(t, uint64(1500), result.FeesLamports)
	require.Len(t, result.Fills, 1)
	assert.Equal(t, uint64(1_000_000), result.Fills[0].Amount)
	assert.Equal(t, uint64(2_000_000), result.Fills[0].OutAmount)
	assert.InDelta(t, 2.0, result.FillPrice, 0.0001)
	assert.Equal(t, int64(1), ep.SendCalls())
}

func TestLiveBackend_MissingPayloadFailsAtSign(t *testing.T) {
	key, _ := resolveKey(t)
	defer key.Wipe()

	backend := NewLiveBackend(liveQuorum(t, stub.NewEndpoint("http://node-a")))

	_, err := backend.Execute(context.Background(), liveQuote(nil), key, fees.Attempt{})
	var execErr *domain.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "sign", execErr.Stage)
}

func TestLiveBackend_InsufficientFundsIsFatal(t *testing.T) {
	key, _ := resolveKey(t)
	defer key.Wipe()

	ep := stub.NewEndpoint("http://node-a")
	ep.Lamports = 100 // well below the quote amount
	backend := NewLiveBackend(liveQuorum(t, ep))

	_, err := backend.Execute(context.Background(), liveQuote(unsignedTx([]byte("msg"), 1)), key, fees.Attempt{})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.True(t, domain.IsFatal(err))
	assert.Equal(t, int64(0), ep.SendCalls(), "no broadcast without funds")
}

func TestLiveBackend_BroadcastFailureKeepsTaxonomy(t *testing.T) {
	key, _ := resolveKey(t)
	defer key.Wipe()

	ep := stub.NewEndpoint("http://node-a")
	ep.SendErr = errors.New("node down")
	backend := NewLiveBackend(liveQuorum(t, ep))

	_, err := backend.Execute(context.Background(), liveQuote(unsignedTx([]byte("msg"), 1)), key, fees.Attempt{})
	var execErr *domain.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "broadcast", execErr.Stage)
	assert.ErrorIs(t, err, domain.ErrQuorumNotReached)
	assert.True(t, domain.CountsTowardHalt(err))
}
