// Package fees computes per-attempt compute-budget prices and relay tips.
package fees

import "math"

// Default ramp width: the adaptive price climbs from min to max over this
// many attempts and saturates afterwards.
const DefaultRampSteps = 4

// Config selects the pricing curves. Zero value means flat minimum price
// and flat tip.
type Config struct {
	// Compute-budget price (micro-lamports per compute unit).
	MinPriceLamports uint64
	MaxPriceLamports uint64
	Adaptive         bool      // linear ramp min→max over RampSteps
	RampSteps        int       // defaults to DefaultRampSteps
	PricePoly        []float64 // explicit polynomial in k; overrides ramp

	// Relay tip.
	TipLamports   uint64
	TipPoly       []float64 // polynomial in k; overrides flat tip
	LegacyTipRamp bool      // +50% per attempt on top of TipLamports
}

// Attempt holds the fee outputs for one attempt index.
type Attempt struct {
	PriceLamports uint64
	TipLamports   uint64
}

// Controller computes fee/tip values per attempt index. Outputs are
// integral and monotonically non-decreasing in k under adaptive or ramp
// modes.
type Controller struct {
	cfg Config
}

// NewController creates a fee controller.
func NewController(cfg Config) *Controller {
	if cfg.RampSteps <= 0 {
		cfg.RampSteps = DefaultRampSteps
	}
	if cfg.MaxPriceLamports < cfg.MinPriceLamports {
		cfg.MaxPriceLamports = cfg.MinPriceLamports
	}
	return &Controller{cfg: cfg}
}

// ForAttempt computes fee outputs for 1-based attempt index k.
func (c *Controller) ForAttempt(k int) Attempt {
	if k < 1 {
		k = 1
	}
	return Attempt{
		PriceLamports: c.price(k),
		TipLamports:   c.tip(k),
	}
}

func (c *Controller) price(k int) uint64 {
	if len(c.cfg.PricePoly) > 0 {
		p := evalPoly(c.cfg.PricePoly, k)
		return clampLamports(p, c.cfg.MinPriceLamports, c.cfg.MaxPriceLamports)
	}

	if !c.cfg.Adaptive {
		return c.cfg.MinPriceLamports
	}

	steps := c.cfg.RampSteps
	step := k - 1
	if step > steps {
		step = steps
	}
	span := float64(c.cfg.MaxPriceLamports - c.cfg.MinPriceLamports)
	ramped := float64(c.cfg.MinPriceLamports) + span*float64(step)/float64(steps)
	return uint64(math.Round(ramped))
}

func (c *Controller) tip(k int) uint64 {
	if len(c.cfg.TipPoly) > 0 {
		t := evalPoly(c.cfg.TipPoly, k)
		if t < 0 {
			return 0
		}
		return uint64(math.Round(t))
	}

	if c.cfg.LegacyTipRamp {
		// +50% per attempt: tip * 1.5^(k-1)
		return uint64(math.Round(float64(c.cfg.TipLamports) * math.Pow(1.5, float64(k-1))))
	}

	return c.cfg.TipLamports
}

// evalPoly evaluates coefficients[0] + coefficients[1]*k + ... via Horner.
func evalPoly(coefficients []float64, k int) float64 {
	x := float64(k)
	result := 0.0
	for i := len(coefficients) - 1; i >= 0; i-- {
		result = result*x + coefficients[i]
	}
	return result
}

func clampLamports(v float64, min, max uint64) uint64 {
	if v < float64(min) {
		return min
	}
	if max > 0 && v > float64(max) {
		return max
	}
	return uint64(math.Round(v))
}
