package engine

import (
	"fmt"
	"sync"
	"time"

	"solana-strategy-engine/internal/domain"
)

// SkipReason explains why admission control rejected a tick. Skips never
// count toward the failure halt.
type SkipReason string

const (
	SkipTradeCap  SkipReason = "trade cap reached"
	SkipOpenCap   SkipReason = "open-position cap reached"
	SkipVolumeCap SkipReason = "daily volume cap reached"
)

// Admission guards one instance's trade caps and failure-halt logic.
// Counters are updated strictly after an attempt's outcome is known.
type Admission struct {
	cfg *domain.InstanceConfig
	now func() time.Time

	mu        sync.Mutex
	state     domain.InstanceState
	volumeDay time.Time
}

// NewAdmission creates admission control for cfg.
func NewAdmission(cfg *domain.InstanceConfig) *Admission {
	return &Admission{cfg: cfg, now: time.Now}
}

// rollDayLocked zeroes the daily volume counter when the UTC day has
// changed since it was last touched.
func (a *Admission) rollDayLocked() {
	day := a.now().UTC().Truncate(24 * time.Hour)
	if !day.Equal(a.volumeDay) {
		a.volumeDay = day
		a.state.VolumeTodayLamports = 0
	}
}

// Admit evaluates the caps. A non-empty SkipReason rejects the tick
// without counting a failure; ok is false once the instance is finished.
func (a *Admission) Admit(plannedVolume uint64) (skip SkipReason, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.Finished {
		return "", domain.ErrInstanceFinished
	}
	a.rollDayLocked()
	if a.cfg.MaxTrades > 0 && a.state.TradesExecuted >= a.cfg.MaxTrades {
		return SkipTradeCap, nil
	}
	if a.cfg.MaxOpenTrades > 0 && a.state.OpenPositions >= a.cfg.MaxOpenTrades {
		return SkipOpenCap, nil
	}
	if a.cfg.MaxDailyVolumeLamport > 0 && a.state.VolumeTodayLamports+plannedVolume > a.cfg.MaxDailyVolumeLamport {
		return SkipVolumeCap, nil
	}
	return "", nil
}

// RecordSuccess updates the counters for a completed trade and resets the
// consecutive-failure streak. When the trade cap is reached afterwards the
// instance finishes cleanly.
func (a *Admission) RecordSuccess(volume uint64) (finished bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.rollDayLocked()
	a.state.TradesExecuted++
	a.state.OpenPositions++
	a.state.VolumeTodayLamports += volume
	a.state.ConsecutiveFailures = 0

	if a.cfg.MaxTrades > 0 && a.state.TradesExecuted >= a.cfg.MaxTrades {
		a.finishLocked("trade cap reached")
		return true
	}
	return false
}

// RecordFailure classifies err and updates the failure streak. Fatal
// errors halt immediately; recoverable skips leave the streak untouched.
func (a *Admission) RecordFailure(err error) (halted bool, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if domain.IsFatal(err) {
		a.finishLocked(fmt.Sprintf("fatal: %v", err))
		return true, a.state.FinishedReason
	}

	if !domain.CountsTowardHalt(err) {
		return false, ""
	}

	a.state.ConsecutiveFailures++
	if a.cfg.HaltOnFailures > 0 && a.state.ConsecutiveFailures >= a.cfg.HaltOnFailures {
		a.finishLocked(fmt.Sprintf("%d consecutive failures", a.state.ConsecutiveFailures))
		return true, a.state.FinishedReason
	}
	return false, ""
}

// PositionClosed decrements the open-position count, floored at zero.
func (a *Admission) PositionClosed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.OpenPositions > 0 {
		a.state.OpenPositions--
	}
}

// Finished reports whether the instance has been halted.
func (a *Admission) Finished() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Finished
}

// State returns a copy of the current counters.
func (a *Admission) State() domain.InstanceState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Admission) finishLocked(reason string) {
	a.state.Finished = true
	a.state.FinishedReason = reason
}
