package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/storage"
)

func TestWalletStore_InsertAndGet(t *testing.T) {
	s := NewWalletStore()
	ctx := context.Background()

	w := &domain.WalletRecord{
		UserID:   "u1",
		WalletID: "w1",
		Scheme:   domain.SecretSchemeEnvelope,
		Cipher:   []byte{1, 2, 3},
	}
	require.NoError(t, s.Insert(ctx, w))

	got, err := s.GetByUserWallet(ctx, "u1", "w1")
	require.NoError(t, err)
	assert.Equal(t, domain.SecretSchemeEnvelope, got.Scheme)

	// Returned record is a copy.
	got.Scheme = "mutated"
	again, err := s.GetByUserWallet(ctx, "u1", "w1")
	require.NoError(t, err)
	assert.Equal(t, domain.SecretSchemeEnvelope, again.Scheme)
}

func TestWalletStore_Duplicate(t *testing.T) {
	s := NewWalletStore()
	ctx := context.Background()

	w := &domain.WalletRecord{UserID: "u1", WalletID: "w1"}
	require.NoError(t, s.Insert(ctx, w))
	assert.ErrorIs(t, s.Insert(ctx, w), storage.ErrDuplicateKey)
}

func TestWalletStore_NotFound(t *testing.T) {
	s := NewWalletStore()
	_, err := s.GetByUserWallet(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeRecordStore_InsertAndQuery(t *testing.T) {
	s := NewTradeRecordStore()
	ctx := context.Background()

	trades := []*domain.TradeRecord{
		{TradeID: "t2", InstanceID: "i1", UserID: "u1", WalletID: "w1", ExecutedAt: 200},
		{TradeID: "t1", InstanceID: "i1", UserID: "u1", WalletID: "w1", ExecutedAt: 100},
		{TradeID: "t3", InstanceID: "i2", UserID: "u1", WalletID: "w1", ExecutedAt: 300},
	}
	for _, tr := range trades {
		require.NoError(t, s.Insert(ctx, tr))
	}

	assert.ErrorIs(t, s.Insert(ctx, trades[0]), storage.ErrDuplicateKey)

	byInstance, err := s.GetByInstance(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, byInstance, 2)
	assert.Equal(t, "t1", byInstance[0].TradeID)
	assert.Equal(t, "t2", byInstance[1].TradeID)

	byWallet, err := s.GetByWallet(ctx, "u1", "w1")
	require.NoError(t, err)
	assert.Len(t, byWallet, 3)

	_, err = s.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestExitRuleStore_InsertBulkAtomic(t *testing.T) {
	s := NewExitRuleStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &domain.ExitRule{RuleID: "r1", UserID: "u1", WalletID: "w1", Mint: "m1"}))

	// Batch containing a duplicate fails entirely.
	err := s.InsertBulk(ctx, []*domain.ExitRule{
		{RuleID: "r2", UserID: "u1", WalletID: "w1", Mint: "m1"},
		{RuleID: "r1", UserID: "u1", WalletID: "w1", Mint: "m1"},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	rules, err := s.GetByWalletMint(ctx, "u1", "w1", "m1")
	require.NoError(t, err)
	assert.Len(t, rules, 1, "failed batch must not insert partially")
}

func TestExitRuleStore_IntraBatchDuplicate(t *testing.T) {
	s := NewExitRuleStore()

	err := s.InsertBulk(context.Background(), []*domain.ExitRule{
		{RuleID: "r1"},
		{RuleID: "r1"},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestExitRuleStore_OrderedByCreatedAt(t *testing.T) {
	s := NewExitRuleStore()
	ctx := context.Background()

	require.NoError(t, s.InsertBulk(ctx, []*domain.ExitRule{
		{RuleID: "b", UserID: "u1", WalletID: "w1", Mint: "m1", CreatedAt: 200},
		{RuleID: "a", UserID: "u1", WalletID: "w1", Mint: "m1", CreatedAt: 100},
	}))

	rules, err := s.GetByWalletMint(ctx, "u1", "w1", "m1")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "a", rules[0].RuleID)
	assert.Equal(t, "b", rules[1].RuleID)
}

func TestFillStore_RoundTrip(t *testing.T) {
	s := NewFillStore()
	ctx := context.Background()

	res := &domain.SimulationResult{
		Fills: []domain.Fill{
			{Price: 1.01, Amount: 500, SlippageBps: 10},
			{Price: 1.02, Amount: 500, SlippageBps: 20},
		},
	}
	require.NoError(t, s.InsertFills(ctx, "t1", res))
	assert.ErrorIs(t, s.InsertFills(ctx, "t1", res), storage.ErrDuplicateKey)

	fills, err := s.GetByTradeID(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, fills, 2)
	assert.Equal(t, 10, fills[0].SlippageBps)

	_, err = s.GetByTradeID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
