// Package config loads a generation run configuration from a file and the
// environment, and converts it into the component configurations.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/erp/datasynth/internal/amount"
	"github.com/erp/datasynth/internal/drift"
	"github.com/erp/datasynth/internal/lineitem"
	"github.com/erp/datasynth/internal/logger"
	"github.com/erp/datasynth/internal/temporal"
	"github.com/erp/datasynth/internal/validate"
)

// ErrInvalidConfig wraps every validation failure returned by Load.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// EnvPrefix prefixes every environment override, e.g. SYNTH_RUN_SEED.
const EnvPrefix = "SYNTH"

// DateLayout is the format of dates in configuration files.
const DateLayout = time.DateOnly

// Config holds a complete generation run
type Config struct {
	Run          RunConfig
	AmountPreset string
	Amount       amount.Config
	LineItems    lineitem.Config
	Seasonality  temporal.SeasonalityConfig
	WorkingHours temporal.WorkingHoursConfig
	Holidays     HolidayConfig
	Drift        drift.Config
	Benford      BenfordConfig
	Log          LogConfig
	Metrics      MetricsConfig
}

// RunConfig holds the orchestration settings
type RunConfig struct {
	Seed             uint64
	Periods          int       `validate:"gte=1,lte=1200"`
	RecordsPerPeriod int       `validate:"gte=1"`
	Workers          int       `validate:"gte=1,lte=256"`
	StartDate        time.Time `validate:"required"`
	PeriodMonths     int       `validate:"gte=1,lte=12"`
	AnomalyRate      float64   `validate:"gte=0,lte=1"`
	// AnomalyThreshold is the approval limit anomalous postings stay under.
	AnomalyThreshold float64 `validate:"gt=0"`
	// HumanShare is the fraction of records posted by people rather than jobs.
	HumanShare float64 `validate:"gte=0,lte=1"`
}

// HolidayConfig selects the holiday calendar
type HolidayConfig struct {
	Region string `validate:"oneof=us none"`
	Extra  []time.Time
}

// BenfordConfig holds the quality report settings
type BenfordConfig struct {
	Significance float64 `validate:"gt=0,lt=1"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Namespace string `validate:"required"`
	Addr      string // listen address for /metrics; empty disables it
}

var weekdayKeys = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// Load loads configuration from a file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with SYNTH_ prefix (e.g., SYNTH_RUN_SEED)
// 2. the file at path, or synthgen.{yaml,toml,json} in . or ./config
// 3. Built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("synthgen")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The amount preset supplies the defaults for the individual fields.
	preset := v.GetString("amount.preset")
	base, err := amount.Preset(preset)
	if err != nil {
		return nil, fmt.Errorf("%w: amount.preset: %w", ErrInvalidConfig, err)
	}
	setDefaults(v, base)

	cfg, err := build(v, preset)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers defaults for every numeric knob whose zero value is
// meaningful, so an explicit 0 in a file is not mistaken for "unset".
func setDefaults(v *viper.Viper, a amount.Config) {
	v.SetDefault("run.anomaly_rate", 0.02)
	v.SetDefault("run.anomaly_threshold", 10_000.0)
	v.SetDefault("run.human_share", 0.8)

	v.SetDefault("amount.min_amount", a.MinAmount)
	v.SetDefault("amount.max_amount", a.MaxAmount)
	v.SetDefault("amount.lognormal_mu", a.LognormalMu)
	v.SetDefault("amount.lognormal_sigma", a.LognormalSigma)
	v.SetDefault("amount.decimal_places", a.DecimalPlaces)
	v.SetDefault("amount.round_number_probability", a.RoundNumberProbability)
	v.SetDefault("amount.nice_number_probability", a.NiceNumberProbability)

	li := lineitem.DefaultConfig()
	v.SetDefault("line_items.two_items", li.TwoItems)
	v.SetDefault("line_items.three_items", li.ThreeItems)
	v.SetDefault("line_items.four_items", li.FourItems)
	v.SetDefault("line_items.five_items", li.FiveItems)
	v.SetDefault("line_items.six_items", li.SixItems)
	v.SetDefault("line_items.seven_items", li.SevenItems)
	v.SetDefault("line_items.eight_items", li.EightItems)
	v.SetDefault("line_items.nine_items", li.NineItems)
	v.SetDefault("line_items.ten_to_ninety_nine", li.TenToNinetyNine)
	v.SetDefault("line_items.hundred_to_nine_ninety_nine", li.HundredToNineNinetyNine)
	v.SetDefault("line_items.thousand_plus", li.ThousandPlus)
	v.SetDefault("line_items.even_probability", li.EvenProbability)
	v.SetDefault("line_items.odd_probability", li.OddProbability)
	v.SetDefault("line_items.equal_probability", li.EqualProbability)
	v.SetDefault("line_items.more_debit_probability", li.MoreDebitProbability)
	v.SetDefault("line_items.more_credit_probability", li.MoreCreditProbability)

	s := temporal.DefaultSeasonality()
	v.SetDefault("seasonality.weekend_activity", s.WeekendActivity)
	v.SetDefault("seasonality.holiday_activity", s.HolidayActivity)
	v.SetDefault("seasonality.month_end_multiplier", s.MonthEndMultiplier)
	v.SetDefault("seasonality.quarter_end_multiplier", s.QuarterEndMultiplier)
	v.SetDefault("seasonality.year_end_multiplier", s.YearEndMultiplier)
	v.SetDefault("seasonality.month_end_lead_days", s.MonthEndLeadDays)
	v.SetDefault("seasonality.quarter_end_lead_days", s.QuarterEndLeadDays)
	v.SetDefault("seasonality.year_end_lead_days", s.YearEndLeadDays)
	for i, day := range weekdayKeys {
		v.SetDefault("seasonality.day_of_week."+day, s.DayOfWeek[i])
	}

	h := temporal.DefaultWorkingHours()
	v.SetDefault("working_hours.day_start", h.DayStart)
	v.SetDefault("working_hours.day_end", h.DayEnd)
	v.SetDefault("working_hours.peak_hours", h.PeakHours)
	v.SetDefault("working_hours.after_hours_probability", h.AfterHoursProbability)

	d := drift.DefaultConfig()
	v.SetDefault("drift.enabled", d.Enabled)
	v.SetDefault("drift.type", d.Type.String())
	v.SetDefault("drift.amount_mean_drift", d.AmountMeanDrift)
	v.SetDefault("drift.amount_variance_drift", d.AmountVarianceDrift)
	v.SetDefault("drift.anomaly_rate_drift", d.AnomalyRateDrift)
	v.SetDefault("drift.concept_drift_rate", d.ConceptDriftRate)
	v.SetDefault("drift.sudden_drift_probability", d.SuddenDriftProbability)
	v.SetDefault("drift.sudden_drift_magnitude", d.SuddenDriftMagnitude)
	v.SetDefault("drift.seasonal_drift", d.SeasonalDrift)
	v.SetDefault("drift.start_period", d.DriftStartPeriod)

	v.SetDefault("benford.significance", 0.05)
}

// build reads every key into a Config.
func build(v *viper.Viper, preset string) (*Config, error) {
	cfg := &Config{
		Run: RunConfig{
			Seed:             v.GetUint64("run.seed"),
			Periods:          v.GetInt("run.periods"),
			RecordsPerPeriod: v.GetInt("run.records_per_period"),
			Workers:          v.GetInt("run.workers"),
			PeriodMonths:     v.GetInt("run.period_months"),
			AnomalyRate:      v.GetFloat64("run.anomaly_rate"),
			AnomalyThreshold: v.GetFloat64("run.anomaly_threshold"),
			HumanShare:       v.GetFloat64("run.human_share"),
		},
		AmountPreset: preset,
		Amount: amount.Config{
			MinAmount:              v.GetFloat64("amount.min_amount"),
			MaxAmount:              v.GetFloat64("amount.max_amount"),
			LognormalMu:            v.GetFloat64("amount.lognormal_mu"),
			LognormalSigma:         v.GetFloat64("amount.lognormal_sigma"),
			DecimalPlaces:          v.GetInt32("amount.decimal_places"),
			RoundNumberProbability: v.GetFloat64("amount.round_number_probability"),
			NiceNumberProbability:  v.GetFloat64("amount.nice_number_probability"),
		},
		LineItems: lineitem.Config{
			TwoItems:                v.GetFloat64("line_items.two_items"),
			ThreeItems:              v.GetFloat64("line_items.three_items"),
			FourItems:               v.GetFloat64("line_items.four_items"),
			FiveItems:               v.GetFloat64("line_items.five_items"),
			SixItems:                v.GetFloat64("line_items.six_items"),
			SevenItems:              v.GetFloat64("line_items.seven_items"),
			EightItems:              v.GetFloat64("line_items.eight_items"),
			NineItems:               v.GetFloat64("line_items.nine_items"),
			TenToNinetyNine:         v.GetFloat64("line_items.ten_to_ninety_nine"),
			HundredToNineNinetyNine: v.GetFloat64("line_items.hundred_to_nine_ninety_nine"),
			ThousandPlus:            v.GetFloat64("line_items.thousand_plus"),
			EvenProbability:         v.GetFloat64("line_items.even_probability"),
			OddProbability:          v.GetFloat64("line_items.odd_probability"),
			EqualProbability:        v.GetFloat64("line_items.equal_probability"),
			MoreDebitProbability:    v.GetFloat64("line_items.more_debit_probability"),
			MoreCreditProbability:   v.GetFloat64("line_items.more_credit_probability"),
		},
		Seasonality: temporal.SeasonalityConfig{
			WeekendActivity:      v.GetFloat64("seasonality.weekend_activity"),
			HolidayActivity:      v.GetFloat64("seasonality.holiday_activity"),
			MonthEndMultiplier:   v.GetFloat64("seasonality.month_end_multiplier"),
			QuarterEndMultiplier: v.GetFloat64("seasonality.quarter_end_multiplier"),
			YearEndMultiplier:    v.GetFloat64("seasonality.year_end_multiplier"),
			MonthEndLeadDays:     v.GetInt("seasonality.month_end_lead_days"),
			QuarterEndLeadDays:   v.GetInt("seasonality.quarter_end_lead_days"),
			YearEndLeadDays:      v.GetInt("seasonality.year_end_lead_days"),
		},
		WorkingHours: temporal.WorkingHoursConfig{
			DayStart:              v.GetInt("working_hours.day_start"),
			DayEnd:                v.GetInt("working_hours.day_end"),
			PeakHours:             v.GetIntSlice("working_hours.peak_hours"),
			AfterHoursProbability: v.GetFloat64("working_hours.after_hours_probability"),
		},
		Holidays: HolidayConfig{
			Region: strings.ToLower(v.GetString("holidays.region")),
		},
		Drift: drift.Config{
			Enabled:                v.GetBool("drift.enabled"),
			AmountMeanDrift:        v.GetFloat64("drift.amount_mean_drift"),
			AmountVarianceDrift:    v.GetFloat64("drift.amount_variance_drift"),
			AnomalyRateDrift:       v.GetFloat64("drift.anomaly_rate_drift"),
			ConceptDriftRate:       v.GetFloat64("drift.concept_drift_rate"),
			SuddenDriftProbability: v.GetFloat64("drift.sudden_drift_probability"),
			SuddenDriftMagnitude:   v.GetFloat64("drift.sudden_drift_magnitude"),
			SeasonalDrift:          v.GetBool("drift.seasonal_drift"),
			DriftStartPeriod:       v.GetInt("drift.start_period"),
			TotalPeriods:           v.GetInt("drift.total_periods"),
		},
		Benford: BenfordConfig{
			Significance: v.GetFloat64("benford.significance"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Metrics: MetricsConfig{
			Namespace: v.GetString("metrics.namespace"),
			Addr:      v.GetString("metrics.addr"),
		},
	}

	for i, day := range weekdayKeys {
		cfg.Seasonality.DayOfWeek[i] = v.GetFloat64("seasonality.day_of_week." + day)
	}

	driftType, err := drift.ParseType(v.GetString("drift.type"))
	if err != nil {
		return nil, fmt.Errorf("%w: drift.type: %w", ErrInvalidConfig, err)
	}
	cfg.Drift.Type = driftType

	if raw := v.GetString("run.start_date"); raw != "" {
		start, err := time.Parse(DateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: run.start_date: %w", ErrInvalidConfig, err)
		}
		cfg.Run.StartDate = start
	}

	for _, raw := range v.GetStringSlice("holidays.extra") {
		d, err := time.Parse(DateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: holidays.extra: %w", ErrInvalidConfig, err)
		}
		cfg.Holidays.Extra = append(cfg.Holidays.Extra, d)
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.AmountPreset == "" {
		cfg.AmountPreset = "default"
	}
	if cfg.Run.Periods == 0 {
		cfg.Run.Periods = 12
	}
	if cfg.Run.RecordsPerPeriod == 0 {
		cfg.Run.RecordsPerPeriod = 1000
	}
	if cfg.Run.Workers == 0 {
		cfg.Run.Workers = 4
	}
	if cfg.Run.StartDate.IsZero() {
		cfg.Run.StartDate = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if cfg.Run.PeriodMonths == 0 {
		cfg.Run.PeriodMonths = 1
	}
	if cfg.Holidays.Region == "" {
		cfg.Holidays.Region = "us"
	}
	// Sudden events are precomputed over the whole run unless bounded explicitly.
	if cfg.Drift.TotalPeriods == 0 {
		cfg.Drift.TotalPeriods = cfg.Run.Periods
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "synth"
	}
}

// Validate checks the run settings and every component configuration.
// It is exported so callers can re-check after applying flag overrides.
func (c *Config) Validate() error {
	sections := []struct {
		name  string
		check func() error
	}{
		{"run", func() error { return validate.Struct(c.Run) }},
		{"holidays", func() error { return validate.Struct(c.Holidays) }},
		{"benford", func() error { return validate.Struct(c.Benford) }},
		{"metrics", func() error { return validate.Struct(c.Metrics) }},
		{"amount", c.Amount.Validate},
		{"line_items", c.LineItems.Validate},
		{"seasonality", c.Seasonality.Validate},
		{"working_hours", c.WorkingHours.Validate},
		{"drift", c.Drift.Validate},
		{"log", func() error {
			_, err := logger.ParseLevel(c.Log.Level)
			return err
		}},
	}
	for _, s := range sections {
		if err := s.check(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, s.name, err)
		}
	}
	return nil
}

// PeriodRange returns the inclusive first and last day of a period.
func (r RunConfig) PeriodRange(period int) (time.Time, time.Time) {
	start := r.StartDate.AddDate(0, period*r.PeriodMonths, 0)
	end := r.StartDate.AddDate(0, (period+1)*r.PeriodMonths, -1)
	return start, end
}

// EndDate returns the last day of the run.
func (r RunConfig) EndDate() time.Time {
	_, end := r.PeriodRange(r.Periods - 1)
	return end
}

// HolidayCalendar builds the calendar for every year the run touches.
func (c *Config) HolidayCalendar() *temporal.HolidayCalendar {
	cal := temporal.NewHolidayCalendar(c.Holidays.Extra...)
	if c.Holidays.Region == "us" {
		var years []int
		for y := c.Run.StartDate.Year(); y <= c.Run.EndDate().Year(); y++ {
			years = append(years, y)
		}
		cal.Merge(temporal.USFederalHolidays(years...))
	}
	return cal
}

// LoggerConfig converts the log section for the logger package.
func (c *Config) LoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Format = c.Log.Format
	cfg.Output = c.Log.Output
	return cfg
}
