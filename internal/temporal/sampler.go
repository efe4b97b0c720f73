// Package temporal draws posting dates weighted by business activity and
// posting times that follow human office hours or automated batch windows.
package temporal

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/erp/datasynth/internal/seed"
)

// ErrInvalidConfig is returned when a seasonality or working-hours
// configuration cannot define a distribution.
var ErrInvalidConfig = errors.New("temporal: invalid configuration")

// Automated postings cluster in the overnight batch window.
var nightBatchHours = [...]int{22, 23, 0, 1, 2, 3, 4, 5}

const (
	nightBatchProbability = 0.7
	peakHourProbability   = 0.6
)

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

// On returns the instant at t on the calendar date of d, in d's location.
func (t TimeOfDay) On(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, t.Hour, t.Minute, t.Second, 0, d.Location())
}

// Duration returns the offset of t from midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t.Hour)*time.Hour +
		time.Duration(t.Minute)*time.Minute +
		time.Duration(t.Second)*time.Second
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Sampler draws dates and times for one stream. It is not safe for
// concurrent use.
type Sampler struct {
	seasonality SeasonalityConfig
	hours       WorkingHoursConfig
	holidays    *HolidayCalendar

	seed   uint64
	stream uint64
	rng    *rand.Rand

	// cumulative weights of the last sampled range
	rangeStart time.Time
	rangeDays  int
	cumulative []float64
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithStream selects an independent stream of the same seed.
func WithStream(stream uint64) Option {
	return func(s *Sampler) {
		s.stream = stream
	}
}

// NewSampler validates both configurations and returns a sampler seeded with
// s. A nil holiday calendar means no holidays.
func NewSampler(s uint64, seasonality SeasonalityConfig, hours WorkingHoursConfig, holidays *HolidayCalendar, opts ...Option) (*Sampler, error) {
	if err := seasonality.Validate(); err != nil {
		return nil, err
	}
	if err := hours.Validate(); err != nil {
		return nil, err
	}
	if holidays == nil {
		holidays = NewHolidayCalendar()
	}

	sampler := &Sampler{
		seasonality: seasonality,
		hours:       hours.clone(),
		holidays:    holidays,
		seed:        s,
	}
	for _, opt := range opts {
		opt(sampler)
	}
	sampler.rng = seed.NewRand(sampler.seed, sampler.stream)
	return sampler, nil
}

// Reset rewinds the sampler to its construction seed.
func (s *Sampler) Reset() {
	s.rng = seed.NewRand(s.seed, s.stream)
}

// DateMultiplier returns the activity weight of a calendar date.
func (s *Sampler) DateMultiplier(d time.Time) float64 {
	d = civil(d)
	cfg := s.seasonality

	w := 1.0
	if cfg.DayOfWeek != ([7]float64{}) {
		w *= cfg.DayOfWeek[d.Weekday()]
	}
	if isWeekend(d) {
		w *= cfg.WeekendActivity
	}
	if s.holidays.Contains(d) {
		w *= cfg.HolidayActivity
	}

	switch {
	case withinLead(d, yearEnd(d), cfg.YearEndLeadDays):
		w *= cfg.YearEndMultiplier
	case withinLead(d, quarterEnd(d), cfg.QuarterEndLeadDays):
		w *= cfg.QuarterEndMultiplier
	case withinLead(d, monthEnd(d), cfg.MonthEndLeadDays):
		w *= cfg.MonthEndMultiplier
	}
	return w
}

// SampleDate draws a date from the inclusive range [start, end] with
// probability proportional to each day's multiplier. The result is midnight
// UTC of the chosen day. A single-day or inverted range returns midnight UTC
// of start's calendar date.
func (s *Sampler) SampleDate(start, end time.Time) time.Time {
	from, to := civil(start), civil(end)
	if !to.After(from) {
		return from
	}

	days := daysBetween(from, to) + 1
	s.prepareRange(from, days)

	u := s.rng.Float64()
	i := sort.Search(days, func(i int) bool {
		return s.cumulative[i] > u
	})
	if i == days {
		i = days - 1
	}
	return from.AddDate(0, 0, i)
}

// prepareRange builds the normalized cumulative weights for a range, reusing
// the previous table when the range is unchanged.
func (s *Sampler) prepareRange(from time.Time, days int) {
	if s.cumulative != nil && s.rangeDays == days && s.rangeStart.Equal(from) {
		return
	}

	weights := make([]float64, days)
	var total float64
	for i := range weights {
		weights[i] = s.DateMultiplier(from.AddDate(0, 0, i))
		total += weights[i]
	}

	s.cumulative = make([]float64, days)
	var running float64
	for i, w := range weights {
		if total > 0 {
			running += w / total
		} else {
			running += 1 / float64(days)
		}
		s.cumulative[i] = running
	}
	s.cumulative[days-1] = 1.0
	s.rangeStart = from
	s.rangeDays = days
}

// SampleTime draws a time of day for a human or an automated actor.
func (s *Sampler) SampleTime(isHuman bool) TimeOfDay {
	var hour int
	if isHuman {
		hour = s.humanHour()
	} else {
		hour = s.automatedHour()
	}
	hour = min(max(hour, 0), 23)

	return TimeOfDay{
		Hour:   hour,
		Minute: s.rng.IntN(60),
		Second: s.rng.IntN(60),
	}
}

// SampleDateTime draws a date in [start, end] and a time on it.
func (s *Sampler) SampleDateTime(start, end time.Time, isHuman bool) time.Time {
	d := s.SampleDate(start, end)
	return s.SampleTime(isHuman).On(d)
}

func (s *Sampler) automatedHour() int {
	if s.rng.Float64() < nightBatchProbability {
		return nightBatchHours[s.rng.IntN(len(nightBatchHours))]
	}
	return s.rng.IntN(24)
}

func (s *Sampler) humanHour() int {
	h := s.hours
	if s.rng.Float64() < h.AfterHoursProbability {
		return s.afterHour()
	}
	if len(h.PeakHours) > 0 && s.rng.Float64() < peakHourProbability {
		return h.PeakHours[s.rng.IntN(len(h.PeakHours))]
	}
	return h.DayStart + s.rng.IntN(h.DayEnd-h.DayStart)
}

// afterHour picks before-open or after-close with equal probability. When
// one side is empty the other is used; a round-the-clock window falls back
// to an in-window hour.
func (s *Sampler) afterHour() int {
	h := s.hours
	before := h.DayStart
	after := 24 - h.DayEnd

	useBefore := s.rng.Float64() < 0.5
	switch {
	case before == 0 && after == 0:
		return h.DayStart + s.rng.IntN(h.DayEnd-h.DayStart)
	case before == 0:
		useBefore = false
	case after == 0:
		useBefore = true
	}

	if useBefore {
		return s.rng.IntN(before)
	}
	return h.DayEnd + s.rng.IntN(after)
}

// withinLead reports whether d lies fewer than lead days before periodEnd.
func withinLead(d, periodEnd time.Time, lead int) bool {
	if lead <= 0 {
		return false
	}
	remaining := daysBetween(d, periodEnd)
	return remaining >= 0 && remaining < lead
}

func monthEnd(d time.Time) time.Time {
	return date(d.Year(), d.Month()+1, 0)
}

func quarterEnd(d time.Time) time.Time {
	q := (int(d.Month()) - 1) / 3
	return date(d.Year(), time.Month(q*3+4), 0)
}

func yearEnd(d time.Time) time.Time {
	return date(d.Year(), time.December, 31)
}

// daysBetween counts whole days from a to b. Both must be civil dates.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
