// Package executor orchestrates one trade: resolve the signing key, obtain
// a quote, apply the fee controller, dispatch the configured execution
// shape, and hand the enriched result to the post-trade queue.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/fees"
	"solana-strategy-engine/internal/idhash"
	"solana-strategy-engine/internal/observability"
	"solana-strategy-engine/internal/pricing"
	"solana-strategy-engine/internal/storage"
	"solana-strategy-engine/internal/wallet"
)

// DefaultInterSlicePause separates consecutive TWAP slices.
const DefaultInterSlicePause = 500 * time.Millisecond

// Backend lands one execution and reports its result. Live and paper
// backends share this surface so shapes never know which one is wired.
type Backend interface {
	Execute(ctx context.Context, quote *domain.Quote, key *wallet.SigningKey, attempt fees.Attempt) (*domain.SimulationResult, error)
}

// TaskQueue receives post-trade tasks after a successful execution.
type TaskQueue interface {
	Enqueue(ctx context.Context, task *domain.PostTradeTask) error
}

// RiskHook is evaluated between TWAP slices and after an atomic execution.
// A non-nil error aborts the remaining slices.
type RiskHook interface {
	Evaluate(ctx context.Context, cfg *domain.InstanceConfig, partial *domain.SimulationResult) error
}

// Options configures an Executor.
type Options struct {
	Resolver *wallet.Resolver
	Quotes   pricing.Provider
	Fees     *fees.Controller
	Backend  Backend
	Queue    TaskQueue

	Trades storage.TradeRecordStore
	Fills  storage.FillStore // optional fill-history retention
	Risk   RiskHook          // optional

	InterSlicePause time.Duration
}

// Executor executes accepted candidates for one instance configuration.
type Executor struct {
	resolver *wallet.Resolver
	quotes   pricing.Provider
	fees     *fees.Controller
	backend  Backend
	queue    TaskQueue
	trades   storage.TradeRecordStore
	fills    storage.FillStore
	risk     RiskHook
	pause    time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Executor.
func New(opts Options) (*Executor, error) {
	if opts.Resolver == nil || opts.Quotes == nil || opts.Fees == nil || opts.Backend == nil {
		return nil, fmt.Errorf("resolver, quotes, fees and backend are required")
	}
	if opts.Trades == nil {
		return nil, fmt.Errorf("trade record store is required")
	}

	pause := opts.InterSlicePause
	if pause <= 0 {
		pause = DefaultInterSlicePause
	}

	return &Executor{
		resolver: opts.Resolver,
		quotes:   opts.Quotes,
		fees:     opts.Fees,
		backend:  opts.Backend,
		queue:    opts.Queue,
		trades:   opts.Trades,
		fills:    opts.Fills,
		risk:     opts.Risk,
		pause:    pause,
		now:      time.Now,
		sleep:    sleepCtx,
	}, nil
}

// Execute runs one full trade for the candidate mint and returns the
// persisted trade record. Errors keep their taxonomy so the scheduler can
// decide skip versus halt.
func (e *Executor) Execute(ctx context.Context, cfg *domain.InstanceConfig, mint string) (*domain.TradeRecord, error) {
	key, err := e.resolver.Resolve(ctx, cfg.UserID, cfg.WalletID)
	if err != nil {
		return nil, err
	}
	defer key.Wipe()

	var result *domain.SimulationResult
	if cfg.TurboMode {
		result, err = e.executeMultiRoute(ctx, cfg, mint, key)
	} else {
		var quote *domain.Quote
		quote, err = e.fetchQuote(ctx, cfg, mint, cfg.SlippageBps)
		if err != nil {
			return nil, err
		}
		result, err = e.executeShape(ctx, cfg, quote, key)
	}
	if err != nil {
		return nil, err
	}

	record := e.enrich(cfg, mint, result)
	if err := e.trades.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("persist trade %s: %w", record.TradeID, err)
	}

	if e.fills != nil && len(result.Fills) > 0 {
		if err := e.fills.InsertFills(ctx, record.TradeID, result); err != nil {
			log.Printf("[executor] fill history insert failed trade=%s: %v", record.TradeID, err)
		}
	}

	observability.RecordEffectiveSlippage(record.SlippageBps / 100.0)

	if e.queue != nil {
		task := e.buildTask(cfg, mint, record)
		if len(task.Chain) > 0 {
			if err := e.queue.Enqueue(ctx, task); err != nil {
				log.Printf("[executor] post-trade enqueue failed trade=%s: %v", record.TradeID, err)
			}
		}
	}

	return record, nil
}

func (e *Executor) fetchQuote(ctx context.Context, cfg *domain.InstanceConfig, mint string, slippageBps int) (*domain.Quote, error) {
	mode := ""
	if cfg.TurboMode {
		mode = "turbo"
	}
	return e.quotes.Quote(ctx, pricing.Request{
		InputMint:   domain.NativeMint,
		OutputMint:  mint,
		Amount:      cfg.AmountToSpendLamports,
		SlippageBps: slippageBps,
		Mode:        mode,
	})
}

// enrich builds the persisted record from an execution result.
func (e *Executor) enrich(cfg *domain.InstanceConfig, mint string, result *domain.SimulationResult) *domain.TradeRecord {
	executedAt := e.now().UnixMilli()

	var inAmount, outAmount uint64
	for _, f := range result.Fills {
		inAmount += f.Amount
		outAmount += f.OutAmount
	}
	if inAmount == 0 {
		inAmount = cfg.AmountToSpendLamports
	}

	return &domain.TradeRecord{
		TradeID:      idhash.ComputeTradeID(cfg.InstanceID, mint, result.Signature, executedAt),
		InstanceID:   cfg.InstanceID,
		UserID:       cfg.UserID,
		WalletID:     cfg.WalletID,
		Mint:         mint,
		Signature:    result.Signature,
		Shape:        cfg.Shape.String(),
		Paper:        cfg.Paper(),
		InAmount:     inAmount,
		OutAmount:    outAmount,
		FillPrice:    result.FillPrice,
		SlippageBps:  result.SlippageBpsMean,
		FeesLamports: result.FeesLamports,
		TipLamports:  cfg.JitoTipLamports,
		Attempts:     1,
		ExecutedAt:   executedAt,
	}
}

// buildTask assembles the post-trade action chain from the instance
// configuration. Rule parameters travel inside the task so it stays
// executable after a restart with no config lookup.
func (e *Executor) buildTask(cfg *domain.InstanceConfig, mint string, record *domain.TradeRecord) *domain.PostTradeTask {
	metadata := map[string]string{
		"tradeId":   record.TradeID,
		"signature": record.Signature,
		"shape":     record.Shape,
	}

	var chain []string
	if len(cfg.TPLadder) > 0 {
		if ladder, err := json.Marshal(cfg.TPLadder); err == nil {
			chain = append(chain, domain.ActionTPLadder)
			metadata["tpLadder"] = string(ladder)
		}
	}
	if cfg.TrailingStopPct > 0 {
		chain = append(chain, domain.ActionTrailingStop)
		metadata["trailingStopPct"] = strconv.FormatFloat(cfg.TrailingStopPct, 'f', -1, 64)
	}
	chain = append(chain, domain.ActionAlerts)

	return &domain.PostTradeTask{
		TaskID:    uuid.NewString(),
		Chain:     chain,
		Mint:      mint,
		UserID:    cfg.UserID,
		WalletID:  cfg.WalletID,
		Metadata:  metadata,
		CreatedAt: e.now().UnixMilli(),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
