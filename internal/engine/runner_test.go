package engine

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20poly1305"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/executor"
	"solana-strategy-engine/internal/fees"
	"solana-strategy-engine/internal/paper"
	"solana-strategy-engine/internal/pricing"
	"solana-strategy-engine/internal/storage/memory"
	"solana-strategy-engine/internal/wallet"
)

const runnerTestMint = "MintTestAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

type fixedSignals struct {
	candidates []domain.Candidate
}

func (s *fixedSignals) Candidates(context.Context, *domain.InstanceConfig) ([]domain.Candidate, error) {
	return s.candidates, nil
}

func (s *fixedSignals) Evaluate(context.Context, *domain.InstanceConfig, domain.Candidate) (*domain.SignalReport, error) {
	return &domain.SignalReport{OK: true}, nil
}

type fixedSafety struct {
	passed bool
}

func (s *fixedSafety) Check(context.Context, string) (*domain.SafetyReport, error) {
	return &domain.SafetyReport{Passed: s.passed}, nil
}

type fixedProvider struct{}

func (fixedProvider) Quote(_ context.Context, req pricing.Request) (*domain.Quote, error) {
	return &domain.Quote{
		InputMint:   req.InputMint,
		OutputMint:  req.OutputMint,
		InAmount:    req.Amount,
		OutAmount:   req.Amount * 2,
		SlippageBps: req.SlippageBps,
		FetchedAt:   time.Now(),
	}, nil
}

func armedResolver(t *testing.T, userID, walletID string) *wallet.Resolver {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	kek := make([]byte, wallet.KEKSize)
	_, err = rand.Read(kek)
	require.NoError(t, err)

	aead, err := chacha20poly1305.New(kek)
	require.NoError(t, err)
	nonce := make([]byte, aead.NonceSize())
	_, err = rand.Read(nonce)
	require.NoError(t, err)

	tag := sha256.Sum256([]byte(userID + "|" + walletID))
	store := memory.NewWalletStore()
	require.NoError(t, store.Insert(context.Background(), &domain.WalletRecord{
		UserID:   userID,
		WalletID: walletID,
		Scheme:   domain.SecretSchemeEnvelope,
		Cipher:   aead.Seal(nil, nonce, priv, tag[:]),
		Nonce:    nonce,
	}))

	session := wallet.NewSession()
	require.NoError(t, session.Arm(userID, walletID, kek))
	return wallet.NewResolver(store, session, nil)
}

func runnerConfig() *domain.InstanceConfig {
	return &domain.InstanceConfig{
		InstanceID:            "inst-1",
		UserID:                "u1",
		WalletID:              "w1",
		AmountToSpendLamports: 1_000_000,
		SlippageBps:           100,
		TickIntervalMs:        10,
		Seed:                  "runner-test",
		ExecModel:             domain.ExecModelIdeal,
		Partials:              domain.PartialsProfile{MinParts: 1, MaxParts: 1},
	}
}

func newRunner(t *testing.T, cfg *domain.InstanceConfig, safety SafetyChecker) (*Runner, *memory.TradeRecordStore) {
	t.Helper()

	trades := memory.NewTradeRecordStore()
	exec, err := executor.New(executor.Options{
		Resolver: armedResolver(t, cfg.UserID, cfg.WalletID),
		Quotes:   fixedProvider{},
		Fees:     fees.NewController(fees.Config{MinPriceLamports: 1000}),
		Backend:  paper.NewBackend(paper.NewEngine(), cfg),
		Trades:   trades,
	})
	require.NoError(t, err)

	signals := &fixedSignals{candidates: []domain.Candidate{{Mint: runnerTestMint}}}
	return NewRunner(cfg, signals, safety, exec), trades
}

func TestRunner_HaltsAtTradeCap(t *testing.T) {
	cfg := runnerConfig()
	cfg.MaxTrades = 3

	runner, trades := newRunner(t, cfg, &fixedSafety{passed: true})
	runner.Start()

	assert.Eventually(t, runner.Finished, 2*time.Second, 10*time.Millisecond)
	runner.Stop()

	records, err := trades.GetByInstance(context.Background(), cfg.InstanceID)
	require.NoError(t, err)
	assert.Len(t, records, 3, "instance must stop exactly at the trade cap")
	assert.Equal(t, 3, runner.State().TradesExecuted)
}

func TestRunner_HaltsOnConsecutiveFailures(t *testing.T) {
	cfg := runnerConfig()
	cfg.HaltOnFailures = 2
	cfg.FailureRates = map[string]float64{"NODE_TIMEOUT": 1.0}

	runner, trades := newRunner(t, cfg, &fixedSafety{passed: true})
	runner.Start()

	assert.Eventually(t, runner.Finished, 2*time.Second, 10*time.Millisecond)
	runner.Stop()

	records, err := trades.GetByInstance(context.Background(), cfg.InstanceID)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Contains(t, runner.State().FinishedReason, "consecutive failures")
}

func TestRunner_SafetyRejectionSkipsCandidate(t *testing.T) {
	cfg := runnerConfig()
	cfg.TickIntervalMs = 0 // single tick

	runner, trades := newRunner(t, cfg, &fixedSafety{passed: false})
	runner.Start()
	time.Sleep(100 * time.Millisecond)
	runner.Stop()

	records, err := trades.GetByInstance(context.Background(), cfg.InstanceID)
	require.NoError(t, err)
	assert.Empty(t, records, "rejected candidates must not trade")
	assert.False(t, runner.Finished(), "a safety skip is not a failure")
}

func TestRunner_CooldownBlocksReentry(t *testing.T) {
	cfg := runnerConfig()
	cfg.CooldownSeconds = 3600
	cfg.MaxTrades = 5

	runner, trades := newRunner(t, cfg, &fixedSafety{passed: true})
	runner.Start()

	// Several ticks elapse but the mint stays in cooldown after its first
	// trade.
	time.Sleep(150 * time.Millisecond)
	runner.Stop()

	records, err := trades.GetByInstance(context.Background(), cfg.InstanceID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
