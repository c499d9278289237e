package domain

// Fill is one synthetic partial fill produced by the paper engine.
type Fill struct {
	Price       float64
	Amount      uint64 // input units consumed by this fill
	OutAmount   uint64 // output units received
	SlippageBps int
}

// SimulationResult is the outcome of one paper-trading execution call.
// Immutable once produced; two calls with identical (quote, config) yield
// bit-identical results.
type SimulationResult struct {
	Signature       string
	Fills           []Fill
	FillPrice       float64 // amount-weighted mean
	SlippageBpsMean float64
	FeesLamports    uint64
	LatencyMs       int64
	FailureCode     string // empty on success
}

// Failed reports whether a failure injection aborted the simulation.
func (r *SimulationResult) Failed() bool {
	return r.FailureCode != ""
}
