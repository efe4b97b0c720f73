package pipeline

import (
	"context"
	"encoding/json"
	"math"
	"slices"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erp/datasynth/internal/amount"
	"github.com/erp/datasynth/internal/config"
	"github.com/erp/datasynth/internal/drift"
	"github.com/erp/datasynth/internal/lineitem"
	"github.com/erp/datasynth/internal/metrics"
	"github.com/erp/datasynth/internal/seed"
	"github.com/erp/datasynth/internal/temporal"
)

func testOptions() Options {
	d := drift.DefaultConfig()
	d.Enabled = true
	d.TotalPeriods = 3

	return Options{
		Seed:             42,
		Periods:          3,
		RecordsPerPeriod: 200,
		Workers:          3,
		StartDate:        time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		PeriodMonths:     1,
		AnomalyRate:      0.05,
		AnomalyThreshold: 10_000,
		HumanShare:       0.8,
		Significance:     0.05,
		Amount:           amount.DefaultConfig(),
		LineItems:        lineitem.DefaultConfig(),
		Seasonality:      temporal.DefaultSeasonality(),
		WorkingHours:     temporal.DefaultWorkingHours(),
		Drift:            d,
		Holidays:         temporal.USFederalHolidays(2024),
	}
}

func run(t *testing.T, opts Options, options ...Option) *Result {
	t.Helper()
	p, err := New(opts, options...)
	require.NoError(t, err)
	result, err := p.Run(context.Background())
	require.NoError(t, err)
	return result
}

func recordsJSON(t *testing.T, records []Record) string {
	t.Helper()
	b, err := json.Marshal(records)
	require.NoError(t, err)
	return string(b)
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr error
	}{
		{"no workers", func(o *Options) { o.Workers = 0 }, ErrInvalidOptions},
		{"no periods", func(o *Options) { o.Periods = 0 }, ErrInvalidOptions},
		{"anomaly rate above one", func(o *Options) { o.AnomalyRate = 1.5 }, ErrInvalidOptions},
		{"missing start date", func(o *Options) { o.StartDate = time.Time{} }, ErrInvalidOptions},
		{"bad amount model", func(o *Options) { o.Amount.LognormalSigma = 0 }, amount.ErrInvalidConfig},
		{"bad line item table", func(o *Options) { o.LineItems.TwoItems = 0.9 }, lineitem.ErrInvalidConfig},
		{"bad working hours", func(o *Options) { o.WorkingHours.DayEnd = 2 }, temporal.ErrInvalidConfig},
		{"bad drift", func(o *Options) { o.Drift.SuddenDriftMagnitude = 0 }, drift.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			tt.mutate(&opts)
			_, err := New(opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	a := run(t, testOptions())
	b := run(t, testOptions())
	assert.Equal(t, recordsJSON(t, a.Records), recordsJSON(t, b.Records))

	other := testOptions()
	other.Seed = 43
	c := run(t, other)
	assert.NotEqual(t, a.Records[0].ID, c.Records[0].ID)
	assert.NotEqual(t, recordsJSON(t, a.Records), recordsJSON(t, c.Records))
}

func TestRun_RecordShape(t *testing.T) {
	opts := testOptions()
	result := run(t, opts)

	require.Len(t, result.Records, opts.Periods*opts.RecordsPerPeriod)
	require.Len(t, result.Periods, opts.Periods)

	recordIDs := make(map[string]bool)
	lineIDs := make(map[string]bool)
	lines := 0
	for i, r := range result.Records {
		assert.Equal(t, i/opts.RecordsPerPeriod, r.Period)

		assert.GreaterOrEqual(t, len(r.Lines), lineitem.MinLineItems)
		assert.True(t, r.Total(Debit).Equal(r.Amount), "record %d debits %s != %s", i, r.Total(Debit), r.Amount)
		assert.True(t, r.Total(Credit).Equal(r.Amount), "record %d credits %s != %s", i, r.Total(Credit), r.Amount)

		summary := result.Periods[r.Period]
		assert.False(t, r.PostedAt.Before(summary.Start), "record %d posted before its period", i)
		assert.True(t, r.PostedAt.Before(summary.End.AddDate(0, 0, 1)), "record %d posted after its period", i)

		assert.NotEmpty(t, r.Counterparty.Name)
		assert.Equal(t, kindFor(r.Split), r.Counterparty.Kind)

		assert.False(t, recordIDs[r.ID.String()], "duplicate record id")
		recordIDs[r.ID.String()] = true
		for _, l := range r.Lines {
			assert.False(t, lineIDs[l.ID.String()], "duplicate line id")
			lineIDs[l.ID.String()] = true
		}
		lines += len(r.Lines)
	}
	assert.Equal(t, lines, result.Lines())

	for p, s := range result.Periods {
		assert.Equal(t, p, s.Period)
		assert.Equal(t, opts.RecordsPerPeriod, s.Records)
		assert.NotEmpty(t, s.Phase)
	}
}

func TestRun_Anomalies(t *testing.T) {
	opts := testOptions()
	opts.AnomalyRate = 0.5
	result := run(t, opts)

	threshold := decimal.NewFromInt(10_000)
	floor := decimal.NewFromInt(9_000)
	anomalies := 0
	for _, r := range result.Records {
		if !r.Anomaly {
			assert.Nil(t, r.AnomalyID)
			continue
		}
		anomalies++
		require.NotNil(t, r.AnomalyID)
		assert.True(t, r.Amount.LessThan(threshold), "anomaly %s not below threshold", r.Amount)
		assert.True(t, r.Amount.GreaterThanOrEqual(floor), "anomaly %s too far below threshold", r.Amount)
	}
	assert.Equal(t, anomalies, result.Anomalies())

	share := float64(anomalies) / float64(len(result.Records))
	assert.InDelta(t, 0.5, share, 0.08)

	require.NotNil(t, result.Quality.Anomalous.FirstDigit)
	assert.Equal(t, anomalies, result.Quality.Anomalous.Amounts)
	assert.Equal(t, anomalies, result.Quality.Anomalous.FirstDigit.Counts[8], "every anomaly starts with 9")
}

func TestRun_Quality(t *testing.T) {
	opts := testOptions()
	opts.AnomalyRate = 0
	opts.Drift.Enabled = false
	opts.RecordsPerPeriod = 1000
	result := run(t, opts)

	assert.Zero(t, result.Anomalies())
	assert.Zero(t, result.Quality.Anomalous.Amounts)
	assert.Nil(t, result.Quality.Anomalous.FirstDigit, "too few anomalies to analyze")

	normal := result.Quality.Normal
	assert.Equal(t, 3000, normal.Amounts)
	require.NotNil(t, normal.FirstDigit)
	require.NotNil(t, normal.SecondDigit)
	assert.Equal(t, 3000, normal.FirstDigit.SampleSize)
	assert.Equal(t, 0.05, normal.FirstDigit.Significance)
}

func TestRun_WorkerSplitDoesNotDependOnScheduling(t *testing.T) {
	opts := testOptions()
	opts.Workers = 7
	opts.RecordsPerPeriod = 50
	for range 3 {
		a := run(t, opts)
		b := run(t, opts)
		require.Equal(t, recordsJSON(t, a.Records), recordsJSON(t, b.Records))
	}
}

func TestRun_MoreWorkersThanRecords(t *testing.T) {
	opts := testOptions()
	opts.Workers = 8
	opts.RecordsPerPeriod = 3
	result := run(t, opts)
	assert.Len(t, result.Records, 9)
}

func TestRun_Cancelled(t *testing.T) {
	p, err := New(testOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.Run(ctx)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

func sumCounter(families []*dto.MetricFamily, name string) float64 {
	total := 0.0
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestRun_Metrics(t *testing.T) {
	opts := testOptions()
	opts.Drift.Type = drift.Sudden
	opts.Drift.SuddenDriftProbability = 0.5

	collector := metrics.NewCollector(metrics.DefaultConfig())
	p, err := New(opts, WithMetrics(collector))
	require.NoError(t, err)
	result, err := p.Run(context.Background())
	require.NoError(t, err)

	families, err := collector.Gather()
	require.NoError(t, err)

	assert.Equal(t, float64(len(result.Records)), sumCounter(families, "synth_records_generated_total"))
	assert.Equal(t, float64(result.Lines()), sumCounter(families, "synth_lines_generated_total"))
	assert.Equal(t, float64(result.Anomalies()), sumCounter(families, "synth_anomalies_injected_total"))
	assert.Equal(t, float64(len(p.Controller().SuddenDriftPeriods())), sumCounter(families, "synth_sudden_drift_events_total"))

	for _, s := range result.Periods {
		assert.Equal(t, p.Controller().IsSuddenDriftPeriod(s.Period), s.Adjustments.SuddenDriftOccurred)
	}
}

func TestRun_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	run(t, testOptions(), WithLogger(zap.New(core)))

	assert.Equal(t, 3, logs.FilterMessage("period generated").Len())
	done := logs.FilterMessage("run complete").All()
	require.Len(t, done, 1)
	assert.Equal(t, uint64(42), done[0].ContextMap()["seed"])
	assert.Equal(t, int64(600), done[0].ContextMap()["records"])
}

func TestPeriodAmountConfig(t *testing.T) {
	base := amount.DefaultConfig()

	t.Run("identity leaves the model alone", func(t *testing.T) {
		assert.Equal(t, base, periodAmountConfig(base, drift.Identity()))
	})

	t.Run("mean and variance move mu and sigma", func(t *testing.T) {
		adj := drift.Identity()
		adj.MeanMultiplier = 2
		adj.SeasonalFactor = 1.5
		adj.VarianceMultiplier = 4

		got := periodAmountConfig(base, adj)
		assert.InDelta(t, base.LognormalMu+math.Log(3), got.LognormalMu, 1e-12)
		assert.InDelta(t, base.LognormalSigma*2, got.LognormalSigma, 1e-12)
		assert.Equal(t, base.MaxAmount, got.MaxAmount)
	})

	t.Run("non-positive multipliers are ignored", func(t *testing.T) {
		adj := drift.Identity()
		adj.MeanMultiplier = 0
		adj.VarianceMultiplier = 0
		assert.Equal(t, base, periodAmountConfig(base, adj))
	})
}

func TestRun_DriftMovesAmounts(t *testing.T) {
	opts := testOptions()
	opts.Periods = 2
	opts.RecordsPerPeriod = 2000
	opts.AnomalyRate = 0
	opts.Amount.RoundNumberProbability = 0
	opts.Amount.NiceNumberProbability = 0
	opts.Drift.Type = drift.Sudden
	opts.Drift.SuddenDriftProbability = 1
	opts.Drift.SuddenDriftMagnitude = 20

	result := run(t, opts)
	require.True(t, result.Periods[1].Adjustments.SuddenDriftOccurred)

	median := func(period int) float64 {
		var vals []float64
		for _, r := range result.Records {
			if r.Period == period {
				vals = append(vals, r.Amount.InexactFloat64())
			}
		}
		return quantile(vals, 0.5)
	}
	// Period 0 already carries one event; period 1 carries two.
	assert.InDelta(t, math.Log(20), math.Log(median(1)/median(0)), 1.0)
}

func quantile(vals []float64, q float64) float64 {
	sorted := slices.Clone(vals)
	slices.Sort(sorted)
	return sorted[int(q*float64(len(sorted)-1))]
}

func TestFromConfig(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	opts := FromConfig(cfg)
	assert.Equal(t, cfg.Run.Seed, opts.Seed)
	assert.Equal(t, cfg.Run.Workers, opts.Workers)
	assert.Equal(t, cfg.Amount, opts.Amount)
	assert.Equal(t, cfg.Benford.Significance, opts.Significance)
	require.NotNil(t, opts.Holidays)
	assert.True(t, opts.Holidays.Contains(time.Date(2024, time.December, 25, 0, 0, 0, 0, time.UTC)))

	start, end := opts.periodRange(1)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), end)

	_, err = New(opts)
	require.NoError(t, err)
}

func TestCounterpartyGenerator(t *testing.T) {
	newGen := func() *counterpartyGenerator {
		return newCounterpartyGenerator(seed.NewRand(7, 1), 99)
	}
	a, b := newGen(), newGen()

	for _, kind := range []CounterpartyKind{CounterpartyVendor, CounterpartyCustomer, CounterpartyEmployee} {
		pa, err := a.Generate(kind, 5)
		require.NoError(t, err)
		pb, err := b.Generate(kind, 5)
		require.NoError(t, err)
		assert.Equal(t, pa, pb)
		assert.Equal(t, kind, pa.Kind)
		assert.NotEmpty(t, pa.Name)
	}

	v, _ := a.Generate(CounterpartyVendor, 1)
	c, _ := a.Generate(CounterpartyCustomer, 1)
	assert.NotEqual(t, v.ID, c.ID, "kinds use separate identifier namespaces")

	_, err := a.Generate("bank", 1)
	assert.Error(t, err)
}

func TestKindFor(t *testing.T) {
	assert.Equal(t, CounterpartyVendor, kindFor(lineitem.MoreDebit))
	assert.Equal(t, CounterpartyCustomer, kindFor(lineitem.MoreCredit))
	assert.Equal(t, CounterpartyEmployee, kindFor(lineitem.Equal))
}
