package drift

import (
	"errors"
	"fmt"
	"strings"

	"github.com/erp/datasynth/internal/validate"
)

// ErrInvalidConfig is returned when a Config cannot drive a controller.
var ErrInvalidConfig = errors.New("drift: invalid configuration")

// Type selects how distribution parameters move across periods.
type Type int

// Drift modes.
const (
	Gradual Type = iota
	Sudden
	Recurring
	Mixed
)

// String returns the mode name.
func (t Type) String() string {
	switch t {
	case Gradual:
		return "gradual"
	case Sudden:
		return "sudden"
	case Recurring:
		return "recurring"
	case Mixed:
		return "mixed"
	default:
		return fmt.Sprintf("drift.Type(%d)", int(t))
	}
}

// ParseType parses a mode name, case-insensitively.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gradual":
		return Gradual, nil
	case "sudden":
		return Sudden, nil
	case "recurring":
		return Recurring, nil
	case "mixed":
		return Mixed, nil
	default:
		return 0, fmt.Errorf("%w: unknown drift type %q", ErrInvalidConfig, s)
	}
}

// MarshalText encodes the mode by name.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a mode name.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Type) valid() bool {
	return t >= Gradual && t <= Mixed
}

// Config holds the drift parameters.
type Config struct {
	// Enabled turns drift on. A disabled controller always returns Identity.
	Enabled bool
	Type    Type

	// Per-period compound growth of the amount mean and variance.
	AmountMeanDrift     float64 `validate:"gt=-1"`
	AmountVarianceDrift float64 `validate:"gt=-1"`

	// AnomalyRateDrift is added to the anomaly rate once per period.
	AnomalyRateDrift float64

	// ConceptDriftRate is the per-period concept drift increment, and the
	// amplitude of the recurring pattern.
	ConceptDriftRate float64 `validate:"gte=0,lte=1"`

	// Sudden events: per-period probability and mean multiplier per event.
	SuddenDriftProbability float64 `validate:"gte=0,lte=1"`
	SuddenDriftMagnitude   float64 `validate:"gt=0"`

	// SeasonalDrift enables the monthly seasonal factor.
	SeasonalDrift bool

	// DriftStartPeriod is the first drifting period.
	DriftStartPeriod int `validate:"gte=0"`
	// TotalPeriods bounds sudden-event precomputation. Enabled sudden and
	// mixed modes need it past DriftStartPeriod.
	TotalPeriods int `validate:"gte=0"`
}

// DefaultConfig returns a disabled gradual configuration with mild rates.
func DefaultConfig() Config {
	return Config{
		Enabled:                false,
		Type:                   Gradual,
		AmountMeanDrift:        0.02,
		AmountVarianceDrift:    0.01,
		AnomalyRateDrift:       0.001,
		ConceptDriftRate:       0.01,
		SuddenDriftProbability: 0.05,
		SuddenDriftMagnitude:   1.5,
		SeasonalDrift:          false,
		DriftStartPeriod:       0,
		TotalPeriods:           12,
	}
}

// Validate checks the drift parameters.
func (c Config) Validate() error {
	if !c.Type.valid() {
		return fmt.Errorf("%w: unknown drift type %d", ErrInvalidConfig, int(c.Type))
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Enabled && (c.Type == Sudden || c.Type == Mixed) && c.TotalPeriods <= c.DriftStartPeriod {
		return fmt.Errorf("%w: Config.TotalPeriods: must be greater than DriftStartPeriod (%d) for %s drift, got %d",
			ErrInvalidConfig, c.DriftStartPeriod, c.Type, c.TotalPeriods)
	}
	return nil
}
