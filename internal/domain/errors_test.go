package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountsTowardHalt(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		counts bool
	}{
		{"nil", nil, false},
		{"insufficient funds is fatal, not counted", ErrInsufficientFunds, false},
		{"not armed is user-actionable", ErrAutomationNotArmed, false},
		{"wrapped not armed", fmt.Errorf("resolve wallet: %w", ErrAutomationNotArmed), false},
		{"quote failure skips", &QuoteError{Reason: "no route"}, false},
		{"safety failure skips", &SafetyError{Detail: "honeypot"}, false},
		{"execution failure counts", &ExecutionError{Stage: "broadcast", Err: errors.New("timeout")}, true},
		{"quorum not reached counts", ErrQuorumNotReached, true},
		{"simulated failure counts", &SimulationError{Code: "SEND_TIMEOUT"}, true},
		{"unclassified counts", errors.New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.counts, CountsTowardHalt(tt.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ErrInsufficientFunds))
	assert.True(t, IsFatal(fmt.Errorf("send: %w", ErrInsufficientFunds)))
	assert.False(t, IsFatal(ErrQuorumNotReached))
	assert.False(t, IsFatal(nil))
}

func TestExecutionErrorUnwrap(t *testing.T) {
	inner := ErrQuorumNotReached
	err := &ExecutionError{Stage: "broadcast", Err: inner}
	assert.True(t, errors.Is(err, ErrQuorumNotReached))
}

func TestParseExecShape(t *testing.T) {
	tests := []struct {
		tag   string
		shape ExecShape
		ok    bool
	}{
		{"", ShapeSingle, true},
		{"TWAP", ShapeTWAP, true},
		{"ATOMIC", ShapeAtomic, true},
		{"twap", 0, false},
		{"LADDER", 0, false},
	}

	for _, tt := range tests {
		t.Run("tag_"+tt.tag, func(t *testing.T) {
			shape, err := ParseExecShape(tt.tag)
			if !tt.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.shape, shape)
			assert.Equal(t, tt.tag, shape.String())
		})
	}
}
