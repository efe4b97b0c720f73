package lineitem

import (
	"fmt"
	"math"

	"github.com/erp/datasynth/internal/validate"
)

// ProbabilitySumTolerance is how far a probability table may stray from 1.0
// before it is rejected. Tables are normalized after passing the check.
const ProbabilitySumTolerance = 0.01

// Config holds the empirical line-item count distribution.
//
// Defaults come from an analysis of real general-ledger journal entries:
// two-line entries dominate, even counts are far more frequent than odd ones,
// and most entries have as many debit lines as credit lines.
type Config struct {
	TwoItems                float64 `validate:"gte=0,lte=1"`
	ThreeItems              float64 `validate:"gte=0,lte=1"`
	FourItems               float64 `validate:"gte=0,lte=1"`
	FiveItems               float64 `validate:"gte=0,lte=1"`
	SixItems                float64 `validate:"gte=0,lte=1"`
	SevenItems              float64 `validate:"gte=0,lte=1"`
	EightItems              float64 `validate:"gte=0,lte=1"`
	NineItems               float64 `validate:"gte=0,lte=1"`
	TenToNinetyNine         float64 `validate:"gte=0,lte=1"`
	HundredToNineNinetyNine float64 `validate:"gte=0,lte=1"`
	ThousandPlus            float64 `validate:"gte=0,lte=1"`

	EvenProbability float64 `validate:"gte=0,lte=1"`
	OddProbability  float64 `validate:"gte=0,lte=1"`

	EqualProbability      float64 `validate:"gte=0,lte=1"`
	MoreDebitProbability  float64 `validate:"gte=0,lte=1"`
	MoreCreditProbability float64 `validate:"gte=0,lte=1"`
}

// DefaultConfig returns the published empirical distribution.
func DefaultConfig() Config {
	return Config{
		TwoItems:                0.6068,
		ThreeItems:              0.0577,
		FourItems:               0.1663,
		FiveItems:               0.0306,
		SixItems:                0.0332,
		SevenItems:              0.0113,
		EightItems:              0.0188,
		NineItems:               0.0042,
		TenToNinetyNine:         0.0633,
		HundredToNineNinetyNine: 0.0076,
		ThousandPlus:            0.0002,

		EvenProbability: 0.88,
		OddProbability:  0.12,

		EqualProbability:      0.82,
		MoreDebitProbability:  0.07,
		MoreCreditProbability: 0.11,
	}
}

// countWeights returns the 11 count bins in sampling order.
func (c Config) countWeights() []float64 {
	return []float64{
		c.TwoItems,
		c.ThreeItems,
		c.FourItems,
		c.FiveItems,
		c.SixItems,
		c.SevenItems,
		c.EightItems,
		c.NineItems,
		c.TenToNinetyNine,
		c.HundredToNineNinetyNine,
		c.ThousandPlus,
	}
}

// Validate checks every probability and every table sum.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	tables := []struct {
		name    string
		weights []float64
	}{
		{"line item count", c.countWeights()},
		{"even/odd", []float64{c.EvenProbability, c.OddProbability}},
		{"debit/credit", []float64{c.EqualProbability, c.MoreDebitProbability, c.MoreCreditProbability}},
	}
	for _, tbl := range tables {
		var sum float64
		for _, w := range tbl.weights {
			if math.IsNaN(w) {
				return fmt.Errorf("%w: %s table contains NaN", ErrInvalidConfig, tbl.name)
			}
			sum += w
		}
		if math.Abs(sum-1.0) > ProbabilitySumTolerance {
			return fmt.Errorf("%w: %s probabilities sum to %.4f, want 1.0 ± %.2f",
				ErrInvalidConfig, tbl.name, sum, ProbabilitySumTolerance)
		}
	}
	return nil
}
