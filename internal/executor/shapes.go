package executor

import (
	"context"
	"fmt"
	"log"
	"sync"

	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/observability"
	"solana-strategy-engine/internal/wallet"
)

// twapWeights are the default slice weights in percent.
var twapWeights = []int{20, 30, 50}

// MaxParallelRoutes bounds multi-route dispatch.
const MaxParallelRoutes = 3

// executeShape dispatches the configured execution shape.
func (e *Executor) executeShape(ctx context.Context, cfg *domain.InstanceConfig, quote *domain.Quote, key *wallet.SigningKey) (*domain.SimulationResult, error) {
	switch cfg.Shape {
	case domain.ShapeSingle:
		return e.executeSingle(ctx, cfg, quote, key, 1)
	case domain.ShapeTWAP:
		return e.executeTWAP(ctx, cfg, quote, key)
	case domain.ShapeAtomic:
		return e.executeAtomic(ctx, cfg, quote, key)
	default:
		return nil, &domain.ExecutionError{Stage: "dispatch", Err: fmt.Errorf("unhandled shape %v", cfg.Shape)}
	}
}

// executeSingle broadcasts the full quoted amount once.
func (e *Executor) executeSingle(ctx context.Context, cfg *domain.InstanceConfig, quote *domain.Quote, key *wallet.SigningKey, attemptNo int) (*domain.SimulationResult, error) {
	attempt := e.fees.ForAttempt(attemptNo)
	return e.backend.Execute(ctx, quote, key, attempt)
}

// executeTWAP splits the quote into weighted slices executed sequentially
// with a pause between them. Risk hooks run between slices; the aggregate
// carries the last slice's signature.
func (e *Executor) executeTWAP(ctx context.Context, cfg *domain.InstanceConfig, quote *domain.Quote, key *wallet.SigningKey) (*domain.SimulationResult, error) {
	aggregate := &domain.SimulationResult{}
	var weightedPrice, weightedSlip float64

	inAmounts := twapSliceAmounts(quote.InAmount, twapWeights)
	outAmounts := twapSliceAmounts(quote.OutAmount, twapWeights)

	for i, weight := range twapWeights {
		slice := *quote
		slice.InAmount = inAmounts[i]
		slice.OutAmount = outAmounts[i]

		result, err := e.executeSingle(ctx, cfg, &slice, key, i+1)
		if err != nil {
			return nil, fmt.Errorf("twap slice %d/%d: %w", i+1, len(twapWeights), err)
		}

		aggregate.Signature = result.Signature
		aggregate.Fills = append(aggregate.Fills, result.Fills...)
		aggregate.FeesLamports += result.FeesLamports
		aggregate.LatencyMs += result.LatencyMs
		weightedPrice += result.FillPrice * float64(weight)
		weightedSlip += result.SlippageBpsMean * float64(weight)

		if i == len(twapWeights)-1 {
			break
		}

		if e.risk != nil {
			if err := e.risk.Evaluate(ctx, cfg, result); err != nil {
				return nil, fmt.Errorf("twap risk hook after slice %d: %w", i+1, err)
			}
		}
		if err := e.sleep(ctx, e.pause); err != nil {
			return nil, err
		}
	}

	aggregate.FillPrice = weightedPrice / 100.0
	aggregate.SlippageBpsMean = weightedSlip / 100.0
	return aggregate, nil
}

// executeAtomic runs a single execution followed immediately by one risk
// hook evaluation.
func (e *Executor) executeAtomic(ctx context.Context, cfg *domain.InstanceConfig, quote *domain.Quote, key *wallet.SigningKey) (*domain.SimulationResult, error) {
	result, err := e.executeSingle(ctx, cfg, quote, key, 1)
	if err != nil {
		return nil, err
	}

	if e.risk != nil {
		if err := e.risk.Evaluate(ctx, cfg, result); err != nil {
			return nil, fmt.Errorf("atomic risk hook: %w", err)
		}
	}

	return result, nil
}

// executeMultiRoute races up to MaxParallelRoutes independent single-shot
// executions at staggered slippage tolerances and returns the first
// success by completion order.
func (e *Executor) executeMultiRoute(ctx context.Context, cfg *domain.InstanceConfig, mint string, key *wallet.SigningKey) (*domain.SimulationResult, error) {
	slippages := staggerSlippages(cfg.SlippageBps, cfg.MaxSlippageBps)

	type routeOutcome struct {
		index  int
		result *domain.SimulationResult
		err    error
	}

	// Routes share the signing key with the caller, which wipes it as
	// soon as this function returns. A win cancels the stragglers, but
	// the drain continues until every route has settled.
	routeCtx, cancelRoutes := context.WithCancel(ctx)
	defer cancelRoutes()

	outcomes := make(chan routeOutcome, len(slippages))
	var wg sync.WaitGroup

	for i, slip := range slippages {
		wg.Add(1)
		go func(i, slip int) {
			defer wg.Done()

			quote, err := e.fetchQuote(routeCtx, cfg, mint, slip)
			if err != nil {
				outcomes <- routeOutcome{index: i, err: err}
				return
			}
			result, err := e.executeSingle(routeCtx, cfg, quote, key, i+1)
			outcomes <- routeOutcome{index: i, result: result, err: err}
		}(i, slip)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var (
		winner      *domain.SimulationResult
		winnerIndex int
		firstErr    error
	)
	for outcome := range outcomes {
		if outcome.err != nil {
			if winner == nil {
				log.Printf("[executor] route %d failed: %v", outcome.index+1, outcome.err)
				if firstErr == nil {
					firstErr = outcome.err
				}
			}
			continue
		}
		if winner == nil {
			winner = outcome.result
			winnerIndex = outcome.index
			cancelRoutes()
		}
	}

	if winner == nil {
		return nil, fmt.Errorf("all routes failed: %w", firstErr)
	}
	if winnerIndex > 0 {
		// A widened-slippage route won the race.
		observability.RecordSlipAdjustment()
	}
	return winner, nil
}

// staggerSlippages widens the base tolerance toward the maximum across up
// to MaxParallelRoutes routes.
func staggerSlippages(baseBps, maxBps int) []int {
	if maxBps <= baseBps {
		return []int{baseBps}
	}

	step := (maxBps - baseBps) / (MaxParallelRoutes - 1)
	if step == 0 {
		step = 1
	}

	out := make([]int, 0, MaxParallelRoutes)
	for slip := baseBps; slip < maxBps && len(out) < MaxParallelRoutes-1; slip += step {
		out = append(out, slip)
	}
	return append(out, maxBps)
}

// twapSliceAmounts splits total across the weights. The final slice
// absorbs the rounding remainder so the slices always sum to total.
func twapSliceAmounts(total uint64, weights []int) []uint64 {
	amounts := make([]uint64, len(weights))

	var consumed uint64
	for i, weight := range weights[:len(weights)-1] {
		amounts[i] = total * uint64(weight) / 100
		consumed += amounts[i]
	}
	amounts[len(weights)-1] = total - consumed

	return amounts
}
