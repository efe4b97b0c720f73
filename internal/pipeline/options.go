package pipeline

import (
	"time"

	"github.com/erp/datasynth/internal/amount"
	"github.com/erp/datasynth/internal/config"
	"github.com/erp/datasynth/internal/drift"
	"github.com/erp/datasynth/internal/lineitem"
	"github.com/erp/datasynth/internal/temporal"
)

// Options is everything a run needs. Sampler sections are validated by the
// samplers themselves when a worker builds them.
type Options struct {
	Seed             uint64
	Periods          int       `validate:"gte=1"`
	RecordsPerPeriod int       `validate:"gte=1"`
	Workers          int       `validate:"gte=1,lte=256"`
	StartDate        time.Time `validate:"required"`
	PeriodMonths     int       `validate:"gte=1,lte=12"`
	AnomalyRate      float64   `validate:"gte=0,lte=1"`
	AnomalyThreshold float64   `validate:"gt=0"`
	HumanShare       float64   `validate:"gte=0,lte=1"`
	Significance     float64   `validate:"gt=0,lt=1"`

	Amount       amount.Config               `validate:"-"`
	LineItems    lineitem.Config             `validate:"-"`
	Seasonality  temporal.SeasonalityConfig  `validate:"-"`
	WorkingHours temporal.WorkingHoursConfig `validate:"-"`
	Drift        drift.Config                `validate:"-"`

	// Holidays may be nil for a calendar without holidays.
	Holidays *temporal.HolidayCalendar `validate:"-"`
}

// FromConfig converts a loaded configuration into run options.
func FromConfig(cfg *config.Config) Options {
	return Options{
		Seed:             cfg.Run.Seed,
		Periods:          cfg.Run.Periods,
		RecordsPerPeriod: cfg.Run.RecordsPerPeriod,
		Workers:          cfg.Run.Workers,
		StartDate:        cfg.Run.StartDate,
		PeriodMonths:     cfg.Run.PeriodMonths,
		AnomalyRate:      cfg.Run.AnomalyRate,
		AnomalyThreshold: cfg.Run.AnomalyThreshold,
		HumanShare:       cfg.Run.HumanShare,
		Significance:     cfg.Benford.Significance,
		Amount:           cfg.Amount,
		LineItems:        cfg.LineItems,
		Seasonality:      cfg.Seasonality,
		WorkingHours:     cfg.WorkingHours,
		Drift:            cfg.Drift,
		Holidays:         cfg.HolidayCalendar(),
	}
}

// periodRange returns the inclusive first and last day of a period.
func (o Options) periodRange(period int) (time.Time, time.Time) {
	run := config.RunConfig{StartDate: o.StartDate, PeriodMonths: o.PeriodMonths}
	return run.PeriodRange(period)
}
