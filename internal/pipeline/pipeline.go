// Package pipeline runs the samplers period by period: it applies drift,
// fans each period out over workers with independent seeded streams, and
// checks the resulting amounts against Benford's law.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/erp/datasynth/internal/amount"
	"github.com/erp/datasynth/internal/benford"
	"github.com/erp/datasynth/internal/drift"
	"github.com/erp/datasynth/internal/idgen"
	"github.com/erp/datasynth/internal/logger"
	"github.com/erp/datasynth/internal/metrics"
	"github.com/erp/datasynth/internal/seed"
	"github.com/erp/datasynth/internal/validate"
)

// ErrInvalidOptions is returned when run options fail validation.
var ErrInvalidOptions = errors.New("pipeline: invalid options")

// Pipeline generates records for a whole run.
//
// Thread Safety: Run may be called concurrently; each call starts from the
// same seed and produces the same result.
type Pipeline struct {
	opts       Options
	controller *drift.Controller
	threshold  decimal.Decimal

	idSeed    uint64
	journal   *idgen.Factory
	lines     *idgen.Factory
	anomalies *idgen.Factory

	logger  *zap.Logger
	metrics *metrics.Collector
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the run logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics publishes progress and quality to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Pipeline) {
		p.metrics = c
	}
}

// New validates opts and prepares a run.
func New(opts Options, options ...Option) (*Pipeline, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	threshold, err := amount.FromFloat(opts.AnomalyThreshold, opts.Amount.DecimalPlaces)
	if err != nil {
		return nil, fmt.Errorf("%w: AnomalyThreshold: %w", ErrInvalidOptions, err)
	}

	p := &Pipeline{
		opts:      opts,
		threshold: threshold,
		logger:    zap.NewNop(),
	}
	for _, opt := range options {
		opt(p)
	}

	p.controller, err = drift.NewController(seed.Derive(opts.Seed, seed.ComponentDrift), opts.Drift, drift.WithLogger(p.logger))
	if err != nil {
		return nil, err
	}

	p.idSeed = seed.Derive(opts.Seed, seed.ComponentIdentifier)
	p.journal = idgen.NewFactory(p.idSeed, idgen.NamespaceJournalEntry)
	p.lines = idgen.NewFactory(p.idSeed, idgen.NamespaceTransaction)
	p.anomalies = idgen.NewFactory(p.idSeed, idgen.NamespaceAnomaly)

	// Sampler configuration errors surface here rather than in a worker.
	if _, err := p.newWorker(0, 0, opts.Amount); err != nil {
		return nil, err
	}
	return p, nil
}

// Controller returns the drift controller of the run.
func (p *Pipeline) Controller() *drift.Controller {
	return p.controller
}

// Run generates every period in order. Cancelling ctx stops the run between
// records and returns the context error.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	ctx, log := logger.WithRun(logger.WithContext(ctx, p.logger), p.opts.Seed)
	started := time.Now()

	result := &Result{
		Records: make([]Record, 0, p.opts.Periods*p.opts.RecordsPerPeriod),
		Periods: make([]PeriodSummary, 0, p.opts.Periods),
	}
	defer p.metrics.SetActiveWorkers(0)

	for period := 0; period < p.opts.Periods; period++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		records, summary, err := p.runPeriod(ctx, period)
		if err != nil {
			return nil, fmt.Errorf("period %d: %w", period, err)
		}
		result.Records = append(result.Records, records...)
		result.Periods = append(result.Periods, summary)

		p.metrics.RecordPeriod(metrics.PeriodStats{
			Period:      period,
			Records:     summary.Records,
			Lines:       summary.Lines,
			Anomalies:   summary.Anomalies,
			SuddenDrift: summary.Adjustments.SuddenDriftOccurred,
			Duration:    summary.Duration,
		})
		log.Debug("period generated",
			zap.Int("period", period),
			zap.Int("records", summary.Records),
			zap.Int("anomalies", summary.Anomalies),
			zap.String("phase", summary.Phase),
			zap.Duration("duration", summary.Duration),
		)
	}

	quality, err := p.quality(result.Records)
	if err != nil {
		return nil, err
	}
	result.Quality = quality

	log.Info("run complete",
		zap.Int("periods", len(result.Periods)),
		zap.Int("records", len(result.Records)),
		zap.Int("lines", result.Lines()),
		zap.Int("anomalies", result.Anomalies()),
		zap.Duration("duration", time.Since(started)),
	)
	return result, nil
}

// runPeriod splits one period's records across workers. Worker w owns the
// record indices [w*n/W, (w+1)*n/W), so output order does not depend on
// scheduling.
func (p *Pipeline) runPeriod(ctx context.Context, period int) ([]Record, PeriodSummary, error) {
	started := time.Now()
	adj := p.controller.ComputeAdjustments(period)
	job := periodJob{
		period:      period,
		amount:      periodAmountConfig(p.opts.Amount, adj),
		anomalyRate: clampUnit(p.opts.AnomalyRate + adj.AnomalyRateAdjustment),
	}
	job.start, job.end = p.opts.periodRange(period)

	n, workers := p.opts.RecordsPerPeriod, p.opts.Workers
	batches := make([][]Record, workers)
	p.metrics.SetActiveWorkers(workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo, hi := w*n/workers, (w+1)*n/workers
		g.Go(func() error {
			wk, err := p.newWorker(period, w, job.amount)
			if err != nil {
				return err
			}
			batch, err := wk.generate(ctx, job, lo, hi)
			if err != nil {
				return err
			}
			batches[w] = batch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, PeriodSummary{}, err
	}

	summary := PeriodSummary{
		Period:      period,
		Start:       job.start,
		End:         job.end,
		AnomalyRate: job.anomalyRate,
		Phase:       p.controller.Phase(period),
		Adjustments: adj,
	}
	records := make([]Record, 0, n)
	for _, batch := range batches {
		for i := range batch {
			summary.Lines += len(batch[i].Lines)
			if batch[i].Anomaly {
				summary.Anomalies++
			}
		}
		records = append(records, batch...)
	}
	summary.Records = len(records)
	summary.Duration = time.Since(started)
	return records, summary, nil
}

// periodAmountConfig moves the log-normal model by the drift of a period:
// the mean multiplier (with the seasonal factor) shifts mu by its log and
// the variance multiplier scales sigma by its square root.
func periodAmountConfig(base amount.Config, adj drift.Adjustments) amount.Config {
	cfg := base
	if m := adj.MeanMultiplier * adj.SeasonalFactor; m > 0 {
		cfg.LognormalMu += math.Log(m)
	}
	if v := adj.VarianceMultiplier; v > 0 {
		cfg.LognormalSigma *= math.Sqrt(v)
	}
	return cfg
}

func clampUnit(x float64) float64 {
	return math.Min(math.Max(x, 0), 1)
}

// quality runs the Benford analyses over normal and anomalous amounts.
func (p *Pipeline) quality(records []Record) (QualityReport, error) {
	var normal, anomalous []decimal.Decimal
	for i := range records {
		if records[i].Anomaly {
			anomalous = append(anomalous, records[i].Amount)
		} else {
			normal = append(normal, records[i].Amount)
		}
	}

	var report QualityReport
	var err error
	if report.Normal, err = p.analyzePopulation(metrics.PopulationNormal, normal); err != nil {
		return QualityReport{}, err
	}
	if report.Anomalous, err = p.analyzePopulation(metrics.PopulationAnomalous, anomalous); err != nil {
		return QualityReport{}, err
	}
	return report, nil
}

func (p *Pipeline) analyzePopulation(population string, amounts []decimal.Decimal) (PopulationReport, error) {
	out := PopulationReport{Amounts: len(amounts)}
	opt := benford.WithSignificance(p.opts.Significance)

	first, err := benford.Analyze(amounts, opt)
	switch {
	case errors.Is(err, benford.ErrInsufficientData):
		return out, nil
	case err != nil:
		return PopulationReport{}, fmt.Errorf("%s amounts: %w", population, err)
	}
	second, err := benford.AnalyzeSecondDigit(amounts, opt)
	if err != nil && !errors.Is(err, benford.ErrInsufficientData) {
		return PopulationReport{}, fmt.Errorf("%s amounts: %w", population, err)
	}

	out.FirstDigit = first
	out.SecondDigit = second
	p.metrics.ObserveFirstDigit(population, first)
	p.metrics.ObserveSecondDigit(population, second)
	return out, nil
}
