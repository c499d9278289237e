package domain

import "time"

// NativeMint is the wrapped-SOL mint, the input side of every buy.
const NativeMint = "So11111111111111111111111111111111111111112"

// Quote is a time-bound priced offer to exchange one asset for another.
// Owned transiently by the trade executor; freshness is governed by the
// warm-cache TTL independent of any on-chain validity window.
type Quote struct {
	InputMint       string
	OutputMint      string
	InAmount        uint64 // lamport-equivalent input units
	OutAmount       uint64 // expected output units
	PriceImpactPct  float64
	SlippageBps     int
	Mode            string // routing mode hint passed to the provider
	SwapTransaction []byte // unsigned transaction payload from the router
	FetchedAt       time.Time
}

// MidPrice returns output units per input unit, or 0 when either side is
// unknown.
func (q *Quote) MidPrice() float64 {
	if q.InAmount == 0 || q.OutAmount == 0 {
		return 0
	}
	return float64(q.OutAmount) / float64(q.InAmount)
}

// SignalReport is the out-of-scope signal layer's verdict for a candidate.
type SignalReport struct {
	OK       bool
	Reason   string
	Overview map[string]string
}

// SafetyReport is the content-safety checker's verdict for an asset.
type SafetyReport struct {
	Passed bool
	Detail string
}

// Candidate is one asset surfaced by the signal layer for a tick.
type Candidate struct {
	Mint string
	Meta map[string]string
}
