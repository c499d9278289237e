package domain

import (
	"errors"
	"fmt"
)

// Engine error taxonomy. The scheduler decides skip-vs-halt by inspecting
// error kinds with errors.Is/errors.As, never by matching message text.
var (
	// ErrAutomationNotArmed is returned when a wallet carries an
	// envelope-encrypted secret and no session key is armed for it.
	// User-actionable; never counted toward the failure halt.
	ErrAutomationNotArmed = errors.New("automation not armed: session key required")

	// ErrInsufficientFunds halts the instance immediately, bypassing the
	// consecutive-failure counter.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrQuorumNotReached is returned when fewer than the required number
	// of RPC endpoints acknowledged a broadcast. Counted as an execution
	// failure.
	ErrQuorumNotReached = errors.New("rpc quorum not reached")

	// ErrInstanceFinished is returned when an operation targets an
	// instance that has already been halted.
	ErrInstanceFinished = errors.New("instance finished")
)

// QuoteError indicates the pricing service returned no usable quote.
// Recoverable: the candidate is skipped without counting as a failure.
type QuoteError struct {
	Reason string
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("quote failed: %s", e.Reason)
}

// SafetyError indicates the content-safety checker rejected a candidate.
// Recoverable: skipped, not counted as an execution failure.
type SafetyError struct {
	Detail string
}

func (e *SafetyError) Error() string {
	return fmt.Sprintf("safety check failed: %s", e.Detail)
}

// ExecutionError wraps a broadcast or signing failure. Counted toward the
// consecutive-failure halt threshold.
type ExecutionError struct {
	Stage string // "sign", "broadcast", "confirm"
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed at %s: %v", e.Stage, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// SimulationError is a deterministic failure injected by the paper-trading
// engine. Surfaced like a live failure so downstream handling is exercised.
type SimulationError struct {
	Code string
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulated failure: %s", e.Code)
}

// IsFatal reports whether an error must halt the instance immediately,
// bypassing the consecutive-failure counter.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// CountsTowardHalt reports whether an error increments the instance's
// consecutive-failure counter.
func CountsTowardHalt(err error) bool {
	if err == nil || IsFatal(err) {
		return false
	}
	if errors.Is(err, ErrAutomationNotArmed) {
		return false
	}
	var qe *QuoteError
	var se *SafetyError
	if errors.As(err, &qe) || errors.As(err, &se) {
		return false
	}
	return true
}
