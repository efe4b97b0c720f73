// Package benford tests batches of amounts against Benford's law on their
// first and second significant digits.
package benford

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MinSampleSize is the fewest nonzero amounts an analysis accepts.
const MinSampleSize = 10

// DefaultSignificance is the chi-square test level used unless overridden.
const DefaultSignificance = 0.05

// Errors returned by the benford package.
var (
	ErrInsufficientData    = errors.New("benford: insufficient data")
	ErrInvalidSignificance = errors.New("benford: significance must be in (0, 1)")
)

// Conformity grades how closely observed digit frequencies follow Benford's
// law, by mean absolute deviation.
type Conformity int

// Conformity levels, best first.
const (
	Close Conformity = iota
	Acceptable
	Marginal
	NonConforming
)

func (c Conformity) String() string {
	switch c {
	case Close:
		return "close"
	case Acceptable:
		return "acceptable"
	case Marginal:
		return "marginal"
	case NonConforming:
		return "nonconforming"
	default:
		return "unknown"
	}
}

// MarshalText encodes the level by name.
func (c Conformity) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// MAD cutoffs between conformity levels.
type thresholds struct {
	close, acceptable, marginal float64
}

var (
	firstDigitThresholds  = thresholds{close: 0.006, acceptable: 0.012, marginal: 0.015}
	secondDigitThresholds = thresholds{close: 0.008, acceptable: 0.010, marginal: 0.012}
)

func (t thresholds) classify(mad float64) Conformity {
	switch {
	case mad < t.close:
		return Close
	case mad < t.acceptable:
		return Acceptable
	case mad < t.marginal:
		return Marginal
	default:
		return NonConforming
	}
}

// Report is the first-digit analysis of one batch. Digit d is at index d-1.
type Report struct {
	SampleSize       int        `json:"sample_size" yaml:"sample_size"`
	Counts           [9]int     `json:"counts" yaml:"counts,flow"`
	Observed         [9]float64 `json:"observed" yaml:"observed,flow"`
	Expected         [9]float64 `json:"expected" yaml:"expected,flow"`
	ChiSquare        float64    `json:"chi_square" yaml:"chi_square"`
	PValue           float64    `json:"p_value" yaml:"p_value"`
	MAD              float64    `json:"mad" yaml:"mad"`
	Conformity       Conformity `json:"conformity" yaml:"conformity"`
	Significance     float64    `json:"significance" yaml:"significance"`
	Passes           bool       `json:"passes" yaml:"passes"`
	AntiBenfordScore float64    `json:"anti_benford_score" yaml:"anti_benford_score"`
}

// SuspectedManipulation reports whether the batch looks fabricated: either
// it does not conform, or it sits closer to uniform than to Benford.
func (r *Report) SuspectedManipulation() bool {
	return r.Conformity == NonConforming || r.AntiBenfordScore > 0.5
}

// SecondDigitReport is the second-digit analysis of one batch. Digit d is at
// index d.
type SecondDigitReport struct {
	SampleSize   int         `json:"sample_size" yaml:"sample_size"`
	Counts       [10]int     `json:"counts" yaml:"counts,flow"`
	Observed     [10]float64 `json:"observed" yaml:"observed,flow"`
	Expected     [10]float64 `json:"expected" yaml:"expected,flow"`
	ChiSquare    float64     `json:"chi_square" yaml:"chi_square"`
	PValue       float64     `json:"p_value" yaml:"p_value"`
	MAD          float64     `json:"mad" yaml:"mad"`
	Conformity   Conformity  `json:"conformity" yaml:"conformity"`
	Significance float64     `json:"significance" yaml:"significance"`
	Passes       bool        `json:"passes" yaml:"passes"`
}

type options struct {
	significance float64
}

// Option configures an analysis.
type Option func(*options)

// WithSignificance sets the chi-square test level.
func WithSignificance(alpha float64) Option {
	return func(o *options) {
		o.significance = alpha
	}
}

func buildOptions(opts []Option) (options, error) {
	o := options{significance: DefaultSignificance}
	for _, opt := range opts {
		opt(&o)
	}
	if !(o.significance > 0 && o.significance < 1) {
		return o, fmt.Errorf("%w: got %v", ErrInvalidSignificance, o.significance)
	}
	return o, nil
}

// Analyze tests the first significant digits of amounts. Zero amounts are
// skipped; negative amounts count by magnitude.
func Analyze(amounts []decimal.Decimal, opts ...Option) (*Report, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Expected:     ExpectedFirstDigit,
		Significance: o.significance,
	}
	for _, a := range amounts {
		if d, ok := FirstDigit(a); ok {
			r.Counts[d-1]++
			r.SampleSize++
		}
	}
	if r.SampleSize < MinSampleSize {
		return nil, fmt.Errorf("%w: %d nonzero amounts, need at least %d",
			ErrInsufficientData, r.SampleSize, MinSampleSize)
	}

	uniform := make([]float64, 9)
	for i := range uniform {
		uniform[i] = 1.0 / 9
	}

	r.ChiSquare = chiSquare(r.Counts[:], r.Expected[:], r.SampleSize)
	r.PValue = ChiSquarePValue(r.ChiSquare, len(r.Counts)-1)
	frequencies(r.Counts[:], r.Observed[:], r.SampleSize)
	r.MAD = meanAbsoluteDeviation(r.Observed[:], r.Expected[:])
	r.Conformity = firstDigitThresholds.classify(r.MAD)
	r.Passes = r.PValue >= r.Significance

	toUniform := meanAbsoluteDeviation(r.Observed[:], uniform)
	if total := r.MAD + toUniform; total > 0 {
		r.AntiBenfordScore = r.MAD / total
	}
	return r, nil
}

// AnalyzeSecondDigit tests the second significant digits of amounts.
func AnalyzeSecondDigit(amounts []decimal.Decimal, opts ...Option) (*SecondDigitReport, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	r := &SecondDigitReport{
		Expected:     ExpectedSecondDigit,
		Significance: o.significance,
	}
	for _, a := range amounts {
		if d, ok := SecondDigit(a); ok {
			r.Counts[d]++
			r.SampleSize++
		}
	}
	if r.SampleSize < MinSampleSize {
		return nil, fmt.Errorf("%w: %d nonzero amounts, need at least %d",
			ErrInsufficientData, r.SampleSize, MinSampleSize)
	}

	r.ChiSquare = chiSquare(r.Counts[:], r.Expected[:], r.SampleSize)
	r.PValue = ChiSquarePValue(r.ChiSquare, len(r.Counts)-1)
	frequencies(r.Counts[:], r.Observed[:], r.SampleSize)
	r.MAD = meanAbsoluteDeviation(r.Observed[:], r.Expected[:])
	r.Conformity = secondDigitThresholds.classify(r.MAD)
	r.Passes = r.PValue >= r.Significance
	return r, nil
}

func chiSquare(counts []int, expected []float64, n int) float64 {
	var stat float64
	for i, c := range counts {
		e := expected[i] * float64(n)
		diff := float64(c) - e
		stat += diff * diff / e
	}
	return stat
}

func frequencies(counts []int, out []float64, n int) {
	for i, c := range counts {
		out[i] = float64(c) / float64(n)
	}
}

func meanAbsoluteDeviation(observed, expected []float64) float64 {
	var sum float64
	for i := range observed {
		sum += math.Abs(observed[i] - expected[i])
	}
	return sum / float64(len(observed))
}
