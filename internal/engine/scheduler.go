// Package engine runs strategy instances: a per-instance tick scheduler,
// admission control, and the tick body that turns signal candidates into
// executed trades.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler invokes a tick body once immediately and then on a fixed
// interval, skipping any invocation that would overlap a still-running
// prior one. An interval of zero means run once and do not reschedule.
type Scheduler struct {
	interval time.Duration

	inFlight atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler with the given tick interval.
func NewScheduler(interval time.Duration) *Scheduler {
	return &Scheduler{
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start launches the schedule loop. The tick body receives a context that
// is cancelled when Stop is called; in-flight ticks are allowed to finish.
func (s *Scheduler) Start(tick func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-s.stop
		cancel()
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.fire(ctx, tick)

		if s.interval <= 0 {
			return
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.fire(ctx, tick)
			}
		}
	}()
}

// fire runs the tick body unless a prior invocation is still in flight.
func (s *Scheduler) fire(ctx context.Context, tick func(ctx context.Context)) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)
		tick(ctx)
	}()
}

// Halt stops the schedule without waiting for the in-flight tick, so a
// tick body may halt its own schedule.
func (s *Scheduler) Halt() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Stop halts the schedule and waits for any in-flight tick to complete.
// Safe to call more than once, but never from inside a tick body.
func (s *Scheduler) Stop() {
	s.Halt()
	s.wg.Wait()
}
