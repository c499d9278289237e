package engine

import (
	"context"
	"log"
	"sync"

	"solana-strategy-engine/internal/cooldown"
	"solana-strategy-engine/internal/domain"
	"solana-strategy-engine/internal/executor"
	"solana-strategy-engine/internal/observability"
)

// checkParallelism bounds concurrent signal/safety calls within one tick
// to respect upstream rate limits.
const checkParallelism = 2

// SignalSource surfaces and evaluates trade candidates. Out of scope for
// this engine; consumed behind this interface only.
type SignalSource interface {
	Candidates(ctx context.Context, cfg *domain.InstanceConfig) ([]domain.Candidate, error)
	Evaluate(ctx context.Context, cfg *domain.InstanceConfig, candidate domain.Candidate) (*domain.SignalReport, error)
}

// SafetyChecker vets an asset before execution. Out of scope; interface
// consumer only.
type SafetyChecker interface {
	Check(ctx context.Context, mint string) (*domain.SafetyReport, error)
}

// Runner drives one instance: schedule ticks, admit, evaluate candidates,
// execute, and update counters after each outcome.
type Runner struct {
	cfg       *domain.InstanceConfig
	signals   SignalSource
	safety    SafetyChecker
	exec      *executor.Executor
	cooldowns *cooldown.Tracker
	admission *Admission
	scheduler *Scheduler
}

// NewRunner creates a runner for one instance configuration.
func NewRunner(cfg *domain.InstanceConfig, signals SignalSource, safety SafetyChecker, exec *executor.Executor) *Runner {
	return &Runner{
		cfg:       cfg,
		signals:   signals,
		safety:    safety,
		exec:      exec,
		cooldowns: cooldown.NewTracker(cfg.CooldownDuration()),
		admission: NewAdmission(cfg),
		scheduler: NewScheduler(cfg.TickInterval()),
	}
}

// Start begins ticking.
func (r *Runner) Start() {
	log.Printf("[engine] instance %s starting interval=%s shape=%q paper=%v",
		r.cfg.InstanceID, r.cfg.TickInterval(), r.cfg.Shape.String(), r.cfg.Paper())
	r.scheduler.Start(r.tick)
}

// Stop halts the schedule and waits for an in-flight tick to finish.
func (r *Runner) Stop() {
	r.scheduler.Stop()
}

// Finished reports whether the instance halted itself.
func (r *Runner) Finished() bool {
	return r.admission.Finished()
}

// State returns a copy of the instance counters.
func (r *Runner) State() domain.InstanceState {
	return r.admission.State()
}

// tick is one scheduling cycle: guard, gather candidates, vet them with
// bounded parallelism, execute the survivors in order.
func (r *Runner) tick(ctx context.Context) {
	skip, err := r.admission.Admit(r.cfg.AmountToSpendLamports)
	if err != nil {
		r.scheduler.Halt()
		return
	}
	if skip != "" {
		log.Printf("[engine] instance %s skipped: %s", r.cfg.InstanceID, skip)
		observability.RecordTick("skip")
		return
	}

	candidates, err := r.signals.Candidates(ctx, r.cfg)
	if err != nil {
		log.Printf("[engine] instance %s candidate fetch failed: %v", r.cfg.InstanceID, err)
		observability.RecordTick("error")
		return
	}
	if len(candidates) == 0 {
		observability.RecordTick("ok")
		return
	}

	accepted := r.vetCandidates(ctx, candidates)

	outcome := "ok"
	for _, candidate := range accepted {
		if r.cooldowns.Remaining(candidate.Mint) > 0 {
			continue
		}

		if halted := r.executeOne(ctx, candidate); halted {
			outcome = "halted"
			break
		}

		// Re-check caps between candidates within the same tick.
		if skip, err := r.admission.Admit(r.cfg.AmountToSpendLamports); err != nil || skip != "" {
			break
		}
	}

	observability.RecordTick(outcome)
}

// vetCandidates runs signal evaluation and safety checks with bounded
// parallelism, preserving candidate order in the result.
func (r *Runner) vetCandidates(ctx context.Context, candidates []domain.Candidate) []domain.Candidate {
	type verdict struct {
		ok bool
	}

	verdicts := make([]verdict, len(candidates))
	sem := make(chan struct{}, checkParallelism)
	var wg sync.WaitGroup

	for i, candidate := range candidates {
		wg.Add(1)
		go func(i int, candidate domain.Candidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			report, err := r.signals.Evaluate(ctx, r.cfg, candidate)
			if err != nil || !report.OK {
				if err != nil {
					log.Printf("[engine] instance %s signal eval failed mint=%s: %v", r.cfg.InstanceID, candidate.Mint, err)
				}
				return
			}

			safety, err := r.safety.Check(ctx, candidate.Mint)
			if err != nil || !safety.Passed {
				if err != nil {
					log.Printf("[engine] instance %s safety check failed mint=%s: %v", r.cfg.InstanceID, candidate.Mint, err)
				}
				return
			}

			verdicts[i] = verdict{ok: true}
		}(i, candidate)
	}
	wg.Wait()

	accepted := make([]domain.Candidate, 0, len(candidates))
	for i, v := range verdicts {
		if v.ok {
			accepted = append(accepted, candidates[i])
		}
	}
	return accepted
}

// executeOne runs a single trade and updates counters once the outcome is
// known. Returns true when the instance halted.
func (r *Runner) executeOne(ctx context.Context, candidate domain.Candidate) bool {
	record, err := r.exec.Execute(ctx, r.cfg, candidate.Mint)
	if err != nil {
		halted, reason := r.admission.RecordFailure(err)
		if halted {
			log.Printf("[engine] instance %s halted: %s", r.cfg.InstanceID, reason)
			observability.RecordInstanceHalted()
			r.scheduler.Halt()
			return true
		}
		log.Printf("[engine] instance %s trade failed mint=%s: %v", r.cfg.InstanceID, candidate.Mint, err)
		return false
	}

	// Outcome known: now record the cooldown hit and the counters.
	r.cooldowns.Hit(candidate.Mint)
	finished := r.admission.RecordSuccess(record.InAmount)

	log.Printf("[engine] instance %s trade %s mint=%s sig=%s", r.cfg.InstanceID, record.TradeID[:8], candidate.Mint, record.Signature)

	if finished {
		log.Printf("[engine] instance %s finished: trade cap reached", r.cfg.InstanceID)
		r.scheduler.Halt()
		return true
	}
	return false
}
