// Package metrics exposes generation progress and data-quality signals as
// Prometheus metrics on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/erp/datasynth/internal/benford"
)

// Populations compared by the quality gauges.
const (
	PopulationNormal    = "normal"
	PopulationAnomalous = "anomalous"
)

// Digit positions for the quality gauges.
const (
	DigitFirst  = "first"
	DigitSecond = "second"
)

// Config holds configuration for the collector.
type Config struct {
	// Namespace is the prefix for all metrics.
	// Default: "synth"
	Namespace string

	// Subsystem is the subsystem label.
	// Default: "" (no subsystem)
	Subsystem string

	// DurationBuckets are the histogram buckets for period duration.
	// Default: prometheus.DefBuckets
	DurationBuckets []float64
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Namespace:       "synth",
		DurationBuckets: prometheus.DefBuckets,
	}
}

// PeriodStats is what one generated period contributes to the counters.
type PeriodStats struct {
	Period      int
	Records     int
	Lines       int
	Anomalies   int
	SuddenDrift bool
	Duration    time.Duration
}

// Collector records generation metrics. A nil *Collector discards
// everything, so callers need not check whether metrics are enabled.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	recordsGenerated  *prometheus.CounterVec
	linesGenerated    prometheus.Counter
	anomaliesInjected prometheus.Counter
	suddenDriftEvents prometheus.Counter
	periodDuration    prometheus.Histogram
	activeWorkers     prometheus.Gauge
	benfordMAD        *prometheus.GaugeVec
	benfordChiSquare  *prometheus.GaugeVec
	benfordPValue     *prometheus.GaugeVec
}

// NewCollector creates a collector with its own registry.
func NewCollector(config Config) *Collector {
	if config.Namespace == "" {
		config.Namespace = "synth"
	}
	if len(config.DurationBuckets) == 0 {
		config.DurationBuckets = prometheus.DefBuckets
	}

	c := &Collector{
		config:   config,
		registry: prometheus.NewRegistry(),
	}
	c.initMetrics()
	return c
}

// initMetrics initializes and registers all metrics.
func (c *Collector) initMetrics() {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Subsystem: c.config.Subsystem,
			Name:      name,
			Help:      help,
		})
	}
	quality := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: c.config.Namespace,
			Subsystem: c.config.Subsystem,
			Name:      name,
			Help:      help,
		}, []string{"digit", "population"})
	}

	c.recordsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Subsystem: c.config.Subsystem,
			Name:      "records_generated_total",
			Help:      "Total number of records generated, by period.",
		},
		[]string{"period"},
	)
	c.linesGenerated = counter("lines_generated_total", "Total number of journal lines generated.")
	c.anomaliesInjected = counter("anomalies_injected_total", "Total number of anomalous records injected.")
	c.suddenDriftEvents = counter("sudden_drift_events_total", "Total number of periods carrying a sudden drift event.")

	c.periodDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      "period_duration_seconds",
		Help:      "Wall time spent generating one period.",
		Buckets:   c.config.DurationBuckets,
	})
	c.activeWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      "active_workers",
		Help:      "Number of generation workers currently running.",
	})

	c.benfordMAD = quality("benford_mad", "Mean absolute deviation from Benford's law.")
	c.benfordChiSquare = quality("benford_chi_square", "Chi-square statistic against Benford's law.")
	c.benfordPValue = quality("benford_p_value", "Chi-square p-value against Benford's law.")

	c.registry.MustRegister(
		c.recordsGenerated,
		c.linesGenerated,
		c.anomaliesInjected,
		c.suddenDriftEvents,
		c.periodDuration,
		c.activeWorkers,
		c.benfordMAD,
		c.benfordChiSquare,
		c.benfordPValue,
	)
}

// RecordPeriod adds one finished period to the counters.
func (c *Collector) RecordPeriod(s PeriodStats) {
	if c == nil {
		return
	}
	c.recordsGenerated.WithLabelValues(strconv.Itoa(s.Period)).Add(float64(s.Records))
	c.linesGenerated.Add(float64(s.Lines))
	c.anomaliesInjected.Add(float64(s.Anomalies))
	if s.SuddenDrift {
		c.suddenDriftEvents.Inc()
	}
	c.periodDuration.Observe(s.Duration.Seconds())
}

// SetActiveWorkers updates the active workers gauge.
func (c *Collector) SetActiveWorkers(n int) {
	if c == nil {
		return
	}
	c.activeWorkers.Set(float64(n))
}

// ObserveFirstDigit publishes a first-digit report for a population.
func (c *Collector) ObserveFirstDigit(population string, r *benford.Report) {
	if c == nil || r == nil {
		return
	}
	c.benfordMAD.WithLabelValues(DigitFirst, population).Set(r.MAD)
	c.benfordChiSquare.WithLabelValues(DigitFirst, population).Set(r.ChiSquare)
	c.benfordPValue.WithLabelValues(DigitFirst, population).Set(r.PValue)
}

// ObserveSecondDigit publishes a second-digit report for a population.
func (c *Collector) ObserveSecondDigit(population string, r *benford.SecondDigitReport) {
	if c == nil || r == nil {
		return
	}
	c.benfordMAD.WithLabelValues(DigitSecond, population).Set(r.MAD)
	c.benfordChiSquare.WithLabelValues(DigitSecond, population).Set(r.ChiSquare)
	c.benfordPValue.WithLabelValues(DigitSecond, population).Set(r.PValue)
}

// Handler returns an HTTP handler serving the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Gather collects all metrics from the registry.
func (c *Collector) Gather() ([]*dto.MetricFamily, error) {
	return c.registry.Gather()
}
