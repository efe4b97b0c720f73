package temporal

import (
	"fmt"
	"time"

	"github.com/erp/datasynth/internal/validate"
)

// SeasonalityConfig weights calendar days by business activity.
type SeasonalityConfig struct {
	// WeekendActivity scales Saturdays and Sundays.
	WeekendActivity float64 `validate:"gte=0"`
	// HolidayActivity scales days in the holiday calendar.
	HolidayActivity float64 `validate:"gte=0"`

	// Period-end spikes. At most one applies per day, year-end first.
	MonthEndMultiplier   float64 `validate:"gt=0"`
	QuarterEndMultiplier float64 `validate:"gt=0"`
	YearEndMultiplier    float64 `validate:"gt=0"`

	// Lead windows, in days, counted back from the last day of the period.
	MonthEndLeadDays   int `validate:"gte=0,lte=31"`
	QuarterEndLeadDays int `validate:"gte=0,lte=92"`
	YearEndLeadDays    int `validate:"gte=0,lte=366"`

	// DayOfWeek scales each weekday, indexed by time.Weekday. An all-zero
	// table is treated as unset and weighs every weekday 1.
	DayOfWeek [7]float64 `validate:"dive,gte=0"`
}

// DefaultSeasonality returns the standard close-cycle activity pattern.
func DefaultSeasonality() SeasonalityConfig {
	return SeasonalityConfig{
		WeekendActivity:      0.1,
		HolidayActivity:      0.05,
		MonthEndMultiplier:   2.5,
		QuarterEndMultiplier: 4.0,
		YearEndMultiplier:    6.0,
		MonthEndLeadDays:     5,
		QuarterEndLeadDays:   10,
		YearEndLeadDays:      20,
		DayOfWeek:            [7]float64{1, 1, 1, 1, 1, 1, 1},
	}
}

// Validate checks the seasonality parameters.
func (c SeasonalityConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// WorkingHoursConfig describes when human actors post.
type WorkingHoursConfig struct {
	// DayStart is the first working hour, DayEnd the hour work stops.
	DayStart int `validate:"gte=0,lte=23"`
	DayEnd   int `validate:"gtfield=DayStart,lte=24"`

	// PeakHours receive 60% of in-window postings.
	PeakHours []int `validate:"dive,gte=0,lte=23"`

	// AfterHoursProbability is the share of human postings outside the window.
	AfterHoursProbability float64 `validate:"gte=0,lte=1"`
}

// DefaultWorkingHours returns an 08:00–18:00 office day.
func DefaultWorkingHours() WorkingHoursConfig {
	return WorkingHoursConfig{
		DayStart:              8,
		DayEnd:                18,
		PeakHours:             []int{10, 11, 14, 15},
		AfterHoursProbability: 0.05,
	}
}

// Validate checks the working-hours parameters.
func (c WorkingHoursConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// clone copies the peak-hour slice so the sampler never aliases caller memory.
func (c WorkingHoursConfig) clone() WorkingHoursConfig {
	c.PeakHours = append([]int(nil), c.PeakHours...)
	return c
}

// isWeekend reports whether d falls on Saturday or Sunday.
func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
