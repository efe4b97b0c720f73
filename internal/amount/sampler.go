// Package amount draws fixed-point monetary values from a log-normal model
// with round-number bias, and partitions control totals into exact-sum
// postings.
package amount

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/erp/datasynth/internal/seed"
)

// Errors returned by the amount package.
var (
	// ErrInvalidConfig is returned when a Config cannot define a distribution.
	ErrInvalidConfig = errors.New("amount: invalid configuration")
	// ErrInvalidCount is returned for a negative partition size.
	ErrInvalidCount = errors.New("amount: invalid count")
	// ErrNonFinite is returned when a float cannot be represented as a fixed-point value.
	ErrNonFinite = errors.New("amount: value is not finite")
	// ErrInvalidThreshold is returned when a threshold leaves no room below it.
	ErrInvalidThreshold = errors.New("amount: invalid threshold")
)

const (
	// minPartitionWeight keeps every partition slot away from zero.
	minPartitionWeight = 0.01

	roundNumberUnit = 100.0
	niceNumberUnit  = 5.0

	// Threshold-avoidance band as a fraction of the threshold.
	belowThresholdLow  = 0.90
	belowThresholdSpan = 0.0999
)

// Sampler draws amounts for one stream. It is not safe for concurrent use.
type Sampler struct {
	cfg    Config
	seed   uint64
	stream uint64
	rng    *rand.Rand

	minAmount decimal.Decimal
	maxAmount decimal.Decimal
	unit      decimal.Decimal
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithStream selects an independent stream of the same seed, e.g. one per worker.
func WithStream(stream uint64) Option {
	return func(s *Sampler) {
		s.stream = stream
	}
}

// NewSampler validates cfg and returns a sampler seeded with s.
func NewSampler(s uint64, cfg Config, opts ...Option) (*Sampler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	minAmount, err := exactDecimal(cfg.MinAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: MinAmount: %w", ErrInvalidConfig, err)
	}
	maxAmount, err := exactDecimal(cfg.MaxAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: MaxAmount: %w", ErrInvalidConfig, err)
	}

	sampler := &Sampler{
		cfg:       cfg,
		seed:      s,
		minAmount: minAmount,
		maxAmount: maxAmount,
		unit:      decimal.New(1, -cfg.DecimalPlaces),
	}
	for _, opt := range opts {
		opt(sampler)
	}
	sampler.rng = seed.NewRand(sampler.seed, sampler.stream)
	return sampler, nil
}

// Config returns a copy of the sampler configuration.
func (s *Sampler) Config() Config {
	return s.cfg
}

// Reset rewinds the sampler to its construction seed.
func (s *Sampler) Reset() {
	s.rng = seed.NewRand(s.seed, s.stream)
}

// Sample draws one amount within [MinAmount, MaxAmount].
func (s *Sampler) Sample() (decimal.Decimal, error) {
	v := math.Exp(s.cfg.LognormalMu + s.cfg.LognormalSigma*s.rng.NormFloat64())
	v = math.Min(math.Max(v, s.cfg.MinAmount), s.cfg.MaxAmount)

	if s.rng.Float64() < s.cfg.RoundNumberProbability {
		v = math.Round(v/roundNumberUnit) * roundNumberUnit
	} else if s.rng.Float64() < s.cfg.NiceNumberProbability {
		v = math.Round(v/niceNumberUnit) * niceNumberUnit
	}

	d, err := FromFloat(v, s.cfg.DecimalPlaces)
	if err != nil {
		return decimal.Zero, err
	}
	return s.clamp(d), nil
}

// SampleSummingTo returns n amounts whose sum is exactly total.
//
// Weights are drawn uniformly, floored at 0.01 and normalized. Every slot
// but the last is rounded to the configured precision; the last slot takes
// the residual. A negative residual is moved onto the first earlier slot
// large enough to absorb it. When no slot can, as happens for totals of a few
// cents spread over many slots, the last slot stays negative; the sum is
// still exact and every earlier slot is non-negative.
func (s *Sampler) SampleSummingTo(n int, total decimal.Decimal) ([]decimal.Decimal, error) {
	switch {
	case n < 0:
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	case n == 0:
		return []decimal.Decimal{}, nil
	case n == 1:
		return []decimal.Decimal{total}, nil
	}

	weights := make([]float64, n)
	var weightSum float64
	for i := range weights {
		w := s.rng.Float64()
		if w < minPartitionWeight {
			w = minPartitionWeight
		}
		weights[i] = w
		weightSum += w
	}

	out := make([]decimal.Decimal, n)
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		share, err := exactDecimal(weights[i] / weightSum)
		if err != nil {
			return nil, err
		}
		out[i] = total.Mul(share).Round(s.cfg.DecimalPlaces)
		allocated = allocated.Add(out[i])
	}

	last := total.Sub(allocated)
	if last.IsNegative() {
		shortfall := last.Neg()
		for i := 0; i < n-1; i++ {
			if out[i].GreaterThan(shortfall) {
				out[i] = out[i].Sub(shortfall)
				last = decimal.Zero
				break
			}
		}
	}
	out[n-1] = last

	return out, nil
}

// SampleBelowThreshold draws an amount just under an approval threshold,
// between 90% and 99.99% of it. This is the split-to-avoid-approval
// pattern used when injecting anomalies.
func (s *Sampler) SampleBelowThreshold(threshold decimal.Decimal) (decimal.Decimal, error) {
	if !threshold.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidThreshold, threshold)
	}

	factor, err := exactDecimal(belowThresholdLow + belowThresholdSpan*s.rng.Float64())
	if err != nil {
		return decimal.Zero, err
	}

	v := threshold.Mul(factor).Round(s.cfg.DecimalPlaces)
	if ceiling := threshold.Sub(s.unit); v.GreaterThan(ceiling) {
		v = ceiling
	}
	if !v.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s leaves no amount below it", ErrInvalidThreshold, threshold)
	}
	return v, nil
}

// clamp keeps a rounded value inside the configured bounds; rounding and
// snapping can push it past either side.
func (s *Sampler) clamp(d decimal.Decimal) decimal.Decimal {
	if d.LessThan(s.minAmount) {
		return s.minAmount
	}
	if d.GreaterThan(s.maxAmount) {
		return s.maxAmount
	}
	return d
}

// FromFloat converts f to a fixed-point value rounded to places.
// NaN and infinities are rejected instead of being mapped to a sentinel.
func FromFloat(f float64, places int32) (decimal.Decimal, error) {
	d, err := exactDecimal(f)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Round(places), nil
}

// exactDecimal converts through the shortest decimal string so no binary
// floating-point residue leaks into the fixed-point value.
func exactDecimal(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrNonFinite, f)
	}
	d, err := decimal.NewFromString(strconv.FormatFloat(f, 'f', -1, 64))
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount: converting %v: %w", f, err)
	}
	return d, nil
}
