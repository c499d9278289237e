// Package paper implements the deterministic paper-trading engine, a
// drop-in execution backend for rehearsal. Given identical quote and
// configuration, two runs produce bit-identical results.
package paper

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sort"

	"solana-strategy-engine/internal/domain"
)

// Engine simulates executions without touching the network.
type Engine struct{}

// NewEngine creates a paper-trading engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Simulate produces a synthetic execution result for the quote.
// Determinism holds whenever cfg.Seed is set; an empty seed draws entropy
// and is only suitable for exploratory runs.
func (e *Engine) Simulate(quote *domain.Quote, cfg *domain.InstanceConfig) *domain.SimulationResult {
	rng := newXorshift32(seedFrom(cfg.Seed))

	latency := cfg.Latency.QuoteMs + cfg.Latency.BuildMs + cfg.Latency.SendMs + cfg.Latency.LandMs

	// Failure injection in stable key order: the first trigger aborts with
	// zero fills, latency still reported.
	for _, code := range sortedKeys(cfg.FailureRates) {
		if rng.float64() < cfg.FailureRates[code] {
			return &domain.SimulationResult{
				LatencyMs:   latency,
				FailureCode: code,
			}
		}
	}

	parts := samplePartsCount(rng, cfg.Partials)

	mid := quote.MidPrice()
	if mid == 0 && quote.InAmount == 0 && quote.OutAmount == 0 {
		// Placeholder when the quote carries no amounts at all.
		mid = 1
	}

	fills := make([]domain.Fill, parts)
	inPerFill := quote.InAmount / uint64(parts)
	outPerFill := quote.OutAmount / uint64(parts)

	var priceSum, slipSum float64
	for i := range fills {
		slipBps := 0
		if cfg.SlippageBps > 0 {
			slipBps = rng.intn(cfg.SlippageBps + 1)
		}
		price := mid * (1 + float64(slipBps)/10000)

		fills[i] = domain.Fill{
			Price:       price,
			Amount:      inPerFill,
			OutAmount:   outPerFill,
			SlippageBps: slipBps,
		}
		priceSum += price
		slipSum += float64(slipBps)
	}

	return &domain.SimulationResult{
		Signature:       fmt.Sprintf("paper-%08x", rng.next()),
		Fills:           fills,
		FillPrice:       priceSum / float64(parts),
		SlippageBpsMean: slipSum / float64(parts),
		FeesLamports:    cfg.PriorityFeeLamports * uint64(parts),
		LatencyMs:       latency,
	}
}

// samplePartsCount draws the fill count uniformly within the configured
// bounds, defaulting to one fill.
func samplePartsCount(rng *xorshift32, p domain.PartialsProfile) int {
	min, max := p.MinParts, p.MaxParts
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	if max == min {
		return min
	}
	return min + rng.intn(max-min+1)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// seedFrom derives a 32-bit seed from the seed string with a polynomial
// rolling hash, falling back to entropy when the string is empty.
func seedFrom(seed string) uint32 {
	if seed == "" {
		var buf [4]byte
		rand.Read(buf[:])
		return binary.LittleEndian.Uint32(buf[:])
	}

	var h uint32
	for _, c := range []byte(seed) {
		h = h*31 + uint32(c)
	}
	return h
}

// xorshift32 is a fast deterministic PRNG.
type xorshift32 struct {
	state uint32
}

func newXorshift32(seed uint32) *xorshift32 {
	if seed == 0 {
		seed = 0x9e3779b9
	}
	return &xorshift32{state: seed}
}

func (x *xorshift32) next() uint32 {
	s := x.state
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	x.state = s
	return s
}

// float64 returns a uniform sample in [0, 1).
func (x *xorshift32) float64() float64 {
	return float64(x.next()) / (1 << 32)
}

// intn returns a uniform sample in [0, n).
func (x *xorshift32) intn(n int) int {
	return int(x.next() % uint32(n))
}
