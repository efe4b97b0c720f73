// Package drift computes per-period adjustments that move the generated
// distributions over time, so downstream drift detectors have something to
// find.
package drift

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/erp/datasynth/internal/seed"
)

// recurringCycle is the length of the recurring pattern, in periods.
const recurringCycle = 12

// Adjustments is the drift applied to one period. Multipliers scale sampler
// parameters; AnomalyRateAdjustment is added to the base anomaly rate.
type Adjustments struct {
	MeanMultiplier        float64 `json:"mean_multiplier" yaml:"mean_multiplier"`
	VarianceMultiplier    float64 `json:"variance_multiplier" yaml:"variance_multiplier"`
	AnomalyRateAdjustment float64 `json:"anomaly_rate_adjustment" yaml:"anomaly_rate_adjustment"`
	ConceptDriftFactor    float64 `json:"concept_drift_factor" yaml:"concept_drift_factor"`
	SuddenDriftOccurred   bool    `json:"sudden_drift_occurred" yaml:"sudden_drift_occurred"`
	SeasonalFactor        float64 `json:"seasonal_factor" yaml:"seasonal_factor"`
}

// Identity returns the no-op adjustment.
func Identity() Adjustments {
	return Adjustments{
		MeanMultiplier:     1.0,
		VarianceMultiplier: 1.0,
		SeasonalFactor:     1.0,
	}
}

// IsIdentity reports whether a leaves every parameter unchanged.
func (a Adjustments) IsIdentity() bool {
	return a == Identity()
}

// Controller computes drift adjustments by period.
//
// Thread Safety: Safe for concurrent use (read-only after creation).
type Controller struct {
	cfg           Config
	suddenPeriods []int
	logger        *zap.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used at construction.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController validates cfg and, for Sudden and Mixed modes, draws the
// sudden-event periods once from s.
func NewController(s uint64, cfg Config, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.Enabled && (cfg.Type == Sudden || cfg.Type == Mixed) {
		c.suddenPeriods = precomputeSuddenPeriods(s, cfg)
	}

	c.logger.Debug("drift controller ready",
		zap.Bool("enabled", cfg.Enabled),
		zap.Stringer("type", cfg.Type),
		zap.Int("start_period", cfg.DriftStartPeriod),
		zap.Ints("sudden_periods", c.suddenPeriods),
	)
	return c, nil
}

// precomputeSuddenPeriods runs one Bernoulli trial per period in
// [DriftStartPeriod, TotalPeriods). The result is ascending.
func precomputeSuddenPeriods(s uint64, cfg Config) []int {
	rng := seed.NewRand(s, 0)
	var periods []int
	for p := cfg.DriftStartPeriod; p < cfg.TotalPeriods; p++ {
		if rng.Float64() < cfg.SuddenDriftProbability {
			periods = append(periods, p)
		}
	}
	return periods
}

// Config returns a copy of the controller configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// SuddenDriftPeriods returns a copy of the sudden-event periods.
func (c *Controller) SuddenDriftPeriods() []int {
	return append([]int(nil), c.suddenPeriods...)
}

// IsSuddenDriftPeriod reports whether a sudden event happens in period.
func (c *Controller) IsSuddenDriftPeriod(period int) bool {
	i := sort.SearchInts(c.suddenPeriods, period)
	return i < len(c.suddenPeriods) && c.suddenPeriods[i] == period
}

// suddenEventsThrough counts sudden events at or before period.
func (c *Controller) suddenEventsThrough(period int) int {
	return sort.SearchInts(c.suddenPeriods, period+1)
}

// ComputeAdjustments returns the drift for period. Disabled controllers and
// periods before DriftStartPeriod get Identity.
func (c *Controller) ComputeAdjustments(period int) Adjustments {
	if !c.cfg.Enabled || period < c.cfg.DriftStartPeriod {
		return Identity()
	}
	effective := period - c.cfg.DriftStartPeriod

	var adj Adjustments
	switch c.cfg.Type {
	case Gradual:
		adj = c.gradual(effective)
	case Sudden:
		adj = c.sudden(period, Identity())
	case Recurring:
		adj = c.recurring(effective)
	case Mixed:
		adj = c.sudden(period, c.gradual(effective))
	}

	adj.SeasonalFactor = 1.0
	if c.cfg.SeasonalDrift {
		adj.SeasonalFactor = SeasonalFactor(period)
	}
	return adj
}

func (c *Controller) gradual(effective int) Adjustments {
	e := float64(effective)
	return Adjustments{
		MeanMultiplier:        math.Pow(1+c.cfg.AmountMeanDrift, e),
		VarianceMultiplier:    math.Pow(1+c.cfg.AmountVarianceDrift, e),
		AnomalyRateAdjustment: c.cfg.AnomalyRateDrift * e,
		ConceptDriftFactor:    min(max(c.cfg.ConceptDriftRate*e, 0), 1),
	}
}

// sudden layers the events seen so far on top of base. Variance reacts with
// the square root of the magnitude.
func (c *Controller) sudden(period int, base Adjustments) Adjustments {
	events := float64(c.suddenEventsThrough(period))
	magnitude := c.cfg.SuddenDriftMagnitude

	base.MeanMultiplier *= math.Pow(magnitude, events)
	base.VarianceMultiplier *= math.Pow(math.Sqrt(magnitude), events)
	base.SuddenDriftOccurred = c.IsSuddenDriftPeriod(period)
	return base
}

// recurring follows 1 + rate*sin(2πt/12) for the mean and the same wave a
// quarter cycle ahead for the variance.
func (c *Controller) recurring(effective int) Adjustments {
	position := float64(effective%recurringCycle) / recurringCycle
	amplitude := c.cfg.ConceptDriftRate

	return Adjustments{
		MeanMultiplier:     1 + amplitude*math.Sin(2*math.Pi*position),
		VarianceMultiplier: 1 + amplitude*math.Sin(2*math.Pi*(position+0.25)),
	}
}

// Phase returns a human-readable description of period, for logs.
func (c *Controller) Phase(period int) string {
	if !c.cfg.Enabled {
		return "disabled"
	}
	if period < c.cfg.DriftStartPeriod {
		return "baseline"
	}
	effective := period - c.cfg.DriftStartPeriod

	switch c.cfg.Type {
	case Recurring:
		position := float64(effective%recurringCycle) / recurringCycle
		switch {
		case position < 0.25:
			return "recurring: rising to peak"
		case position < 0.75:
			return "recurring: falling"
		default:
			return "recurring: rising from trough"
		}
	case Sudden, Mixed:
		if c.IsSuddenDriftPeriod(period) {
			return fmt.Sprintf("%s: sudden event", c.cfg.Type)
		}
		return fmt.Sprintf("%s: %d events so far", c.cfg.Type, c.suddenEventsThrough(period))
	default:
		return fmt.Sprintf("gradual: period %d of drift", effective)
	}
}
