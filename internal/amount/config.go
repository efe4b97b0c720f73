package amount

import (
	"fmt"
	"math"

	"github.com/erp/datasynth/internal/validate"
)

// Config holds the log-normal amount model.
type Config struct {
	// MinAmount and MaxAmount bound every sample.
	MinAmount float64 `validate:"gt=0"`
	MaxAmount float64 `validate:"gtfield=MinAmount"`

	// LognormalMu and LognormalSigma parameterize ln(amount) ~ N(mu, sigma).
	LognormalMu    float64
	LognormalSigma float64 `validate:"gt=0"`

	// DecimalPlaces is the fixed-point precision of every sample.
	DecimalPlaces int32 `validate:"gte=0,lte=10"`

	// RoundNumberProbability snaps a sample to a multiple of 100.
	RoundNumberProbability float64 `validate:"gte=0,lte=1"`

	// NiceNumberProbability snaps a sample to a multiple of 5.
	NiceNumberProbability float64 `validate:"gte=0,lte=1"`
}

// DefaultConfig returns the general-ledger amount model.
func DefaultConfig() Config {
	return Config{
		MinAmount:              0.01,
		MaxAmount:              100_000_000.0,
		LognormalMu:            7.0,
		LognormalSigma:         2.5,
		DecimalPlaces:          2,
		RoundNumberProbability: 0.25,
		NiceNumberProbability:  0.15,
	}
}

// SmallTransactions models retail-sized postings.
func SmallTransactions() Config {
	cfg := DefaultConfig()
	cfg.MaxAmount = 10_000.0
	cfg.LognormalMu = 4.0
	cfg.LognormalSigma = 1.5
	return cfg
}

// MediumTransactions models mid-market postings.
func MediumTransactions() Config {
	cfg := DefaultConfig()
	cfg.MinAmount = 1.0
	cfg.MaxAmount = 1_000_000.0
	cfg.LognormalMu = 8.0
	cfg.LognormalSigma = 2.0
	return cfg
}

// LargeTransactions models enterprise-sized postings.
func LargeTransactions() Config {
	cfg := DefaultConfig()
	cfg.MinAmount = 100.0
	cfg.LognormalMu = 10.0
	cfg.LognormalSigma = 2.5
	cfg.RoundNumberProbability = 0.35
	return cfg
}

// Preset returns a named configuration.
func Preset(name string) (Config, error) {
	switch name {
	case "", "default":
		return DefaultConfig(), nil
	case "small":
		return SmallTransactions(), nil
	case "medium":
		return MediumTransactions(), nil
	case "large":
		return LargeTransactions(), nil
	default:
		return Config{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, name)
	}
}

// Validate rejects configurations that would make the distribution ill-defined.
func (c Config) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"MinAmount", c.MinAmount},
		{"MaxAmount", c.MaxAmount},
		{"LognormalMu", c.LognormalMu},
		{"LognormalSigma", c.LognormalSigma},
		{"RoundNumberProbability", c.RoundNumberProbability},
		{"NiceNumberProbability", c.NiceNumberProbability},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidConfig, f.name)
		}
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
