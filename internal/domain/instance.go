package domain

import (
	"fmt"
	"time"
)

// ExecShape selects how an accepted quote is converted into broadcasts.
// Closed set: unknown tags are rejected at configuration-load time.
type ExecShape int

const (
	// ShapeSingle broadcasts the full quoted amount in one transaction.
	ShapeSingle ExecShape = iota
	// ShapeTWAP splits the quote into weighted time slices.
	ShapeTWAP
	// ShapeAtomic executes once and immediately evaluates one risk hook.
	ShapeAtomic
)

// String returns the configuration tag for the shape.
func (s ExecShape) String() string {
	switch s {
	case ShapeSingle:
		return ""
	case ShapeTWAP:
		return "TWAP"
	case ShapeAtomic:
		return "ATOMIC"
	default:
		return fmt.Sprintf("ExecShape(%d)", int(s))
	}
}

// ParseExecShape maps a configuration tag to an ExecShape.
func ParseExecShape(tag string) (ExecShape, error) {
	switch tag {
	case "":
		return ShapeSingle, nil
	case "TWAP":
		return ShapeTWAP, nil
	case "ATOMIC":
		return ShapeAtomic, nil
	default:
		return 0, fmt.Errorf("unknown execution shape %q", tag)
	}
}

// ExecModel selects the execution backend.
const (
	ExecModelIdeal = "ideal" // deterministic paper engine
	ExecModelLive  = "live"  // quorum RPC broadcast
)

// Quorum configures redundant-endpoint broadcast.
type Quorum struct {
	Size    int `json:"size"`    // endpoints selected from the configured list
	Require int `json:"require"` // acknowledgements needed for success
}

// LatencyProfile holds per-phase synthetic latencies for paper trading.
type LatencyProfile struct {
	QuoteMs int64 `json:"quoteMs"`
	BuildMs int64 `json:"buildMs"`
	SendMs  int64 `json:"sendMs"`
	LandMs  int64 `json:"landMs"`
}

// PartialsProfile bounds the synthetic partial-fill count.
type PartialsProfile struct {
	MinParts int `json:"minParts"`
	MaxParts int `json:"maxParts"`
}

// InstanceConfig is one strategy's configuration, parsed from a strategy
// document at process start.
type InstanceConfig struct {
	InstanceID string `json:"instanceId"`
	UserID     string `json:"userId"`
	WalletID   string `json:"walletId"`

	// Sizing and tolerances
	AmountToSpendLamports uint64  `json:"amountToSpend"`
	SlippageBps           int     `json:"slippage"`
	MaxSlippageBps        int     `json:"maxSlippage"`
	MaxPriceImpactPct     float64 `json:"maxPriceImpactPct"`

	// Admission limits
	CooldownSeconds       int     `json:"cooldownSeconds"`
	MaxTrades             int     `json:"maxTrades"`
	MaxOpenTrades         int     `json:"maxOpenTrades"`
	MaxDailyVolumeLamport uint64  `json:"maxDailyVolume"`
	HaltOnFailures        int     `json:"haltOnFailures"`
	TickIntervalMs        int64   `json:"tickIntervalMs"`
	TurboMode             bool    `json:"turboMode"`

	// Execution
	Shape         ExecShape `json:"-"`
	ShapeTag      string    `json:"executionShape"`
	ExecModel     string    `json:"execModel"`
	DryRun        bool      `json:"dryRun"`
	PrivateRPCURL string    `json:"privateRpcUrl"`
	RPCEndpoints  []string  `json:"rpcEndpoints"`
	RPCQuorum     Quorum    `json:"rpcQuorum"`

	// Fees
	PriorityFeeLamports uint64 `json:"priorityFeeLamports"`
	AutoPriorityFee     bool   `json:"autoPriorityFee"`
	UseJitoBundle       bool   `json:"useJitoBundle"`
	JitoTipLamports     uint64 `json:"jitoTipLamports"`
	JitoRelayURL        string `json:"jitoRelayUrl"`

	// Post-trade rules
	TPLadder        []TPLevel `json:"tpLadder"`
	TrailingStopPct float64   `json:"trailingStopPct"`

	// Paper trading
	Seed         string             `json:"seed"`
	Latency      LatencyProfile     `json:"latency"`
	FailureRates map[string]float64 `json:"failureRates"`
	Partials     PartialsProfile    `json:"partials"`
}

// TPLevel is one rung of a take-profit ladder.
type TPLevel struct {
	GainPct float64 `json:"gainPct"` // trigger above entry, e.g. 0.5 = +50%
	SellPct float64 `json:"sellPct"` // fraction of the position to sell
}

// CooldownDuration returns the configured cooldown as a time.Duration.
func (c *InstanceConfig) CooldownDuration() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// TickInterval returns the tick interval; zero means run once.
func (c *InstanceConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// Paper reports whether the instance executes against the paper engine.
func (c *InstanceConfig) Paper() bool {
	return c.DryRun || c.ExecModel == ExecModelIdeal
}

// InstanceState holds the mutable counters of one running instance.
// Mutated only by the scheduler's tick body; the single-flight guard
// guarantees at most one tick is in flight per instance.
type InstanceState struct {
	TradesExecuted      int
	OpenPositions       int
	VolumeTodayLamports uint64
	ConsecutiveFailures int
	Finished            bool
	FinishedReason      string
}
