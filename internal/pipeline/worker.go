package pipeline

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/datasynth/internal/amount"
	"github.com/erp/datasynth/internal/lineitem"
	"github.com/erp/datasynth/internal/seed"
	"github.com/erp/datasynth/internal/temporal"
)

// cancelCheckInterval is how many records a worker draws between context
// checks.
const cancelCheckInterval = 64

// periodJob is the drift-adjusted input shared by the workers of a period.
type periodJob struct {
	period      int
	start, end  time.Time
	amount      amount.Config
	anomalyRate float64
}

// worker owns one stream of every sampler. It is not safe for concurrent use.
type worker struct {
	p       *Pipeline
	amounts *amount.Sampler
	items   *lineitem.Sampler
	clock   *temporal.Sampler
	parties *counterpartyGenerator
	// decisions draws the human/anomaly coin flips.
	decisions *rand.Rand
}

func (p *Pipeline) newWorker(period, w int, amountCfg amount.Config) (*worker, error) {
	stream := seed.Stream(period, w)
	global := p.opts.Seed

	amounts, err := amount.NewSampler(seed.Derive(global, seed.ComponentAmount), amountCfg, amount.WithStream(stream))
	if err != nil {
		return nil, err
	}
	items, err := lineitem.NewSampler(seed.Derive(global, seed.ComponentLineItem), p.opts.LineItems, lineitem.WithStream(stream))
	if err != nil {
		return nil, err
	}
	clock, err := temporal.NewSampler(
		seed.Derive(global, seed.ComponentTemporal),
		p.opts.Seasonality,
		p.opts.WorkingHours,
		p.opts.Holidays,
		temporal.WithStream(stream),
	)
	if err != nil {
		return nil, err
	}

	return &worker{
		p:         p,
		amounts:   amounts,
		items:     items,
		clock:     clock,
		parties:   newCounterpartyGenerator(seed.NewRand(seed.Derive(global, seed.ComponentCounterparty), stream), p.idSeed),
		decisions: seed.NewRand(seed.Derive(global, seed.ComponentAnomaly), stream),
	}, nil
}

// generate draws the records with period indices [lo, hi).
func (w *worker) generate(ctx context.Context, job periodJob, lo, hi int) ([]Record, error) {
	records := make([]Record, 0, hi-lo)
	for i := lo; i < hi; i++ {
		if (i-lo)%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		counter := uint64(job.period)*uint64(w.p.opts.RecordsPerPeriod) + uint64(i)
		r, err := w.record(job, counter)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// lineCounterBits leaves room for lineitem.MaxLineItems lines per record in
// the transaction identifier counter.
const lineCounterBits = 14

func (w *worker) record(job periodJob, counter uint64) (Record, error) {
	spec := w.items.Sample()
	human := w.decisions.Float64() < w.p.opts.HumanShare
	anomalous := w.decisions.Float64() < job.anomalyRate

	var total decimal.Decimal
	var err error
	if anomalous {
		total, err = w.amounts.SampleBelowThreshold(w.p.threshold)
	} else {
		total, err = w.amounts.Sample()
	}
	if err != nil {
		return Record{}, err
	}

	debits, err := w.amounts.SampleSummingTo(spec.DebitCount, total)
	if err != nil {
		return Record{}, err
	}
	credits, err := w.amounts.SampleSummingTo(spec.CreditCount, total)
	if err != nil {
		return Record{}, err
	}

	party, err := w.parties.Generate(kindFor(spec.Type), counter)
	if err != nil {
		return Record{}, err
	}

	r := Record{
		ID:           w.p.journal.GenerateAt(counter),
		Period:       job.period,
		PostedAt:     w.clock.SampleDateTime(job.start, job.end, human),
		Human:        human,
		Counterparty: party,
		Amount:       total,
		Split:        spec.Type,
		Lines:        make([]Line, 0, spec.TotalCount),
		Anomaly:      anomalous,
	}
	if anomalous {
		id := w.p.anomalies.GenerateAt(counter)
		r.AnomalyID = &id
	}

	base := counter << lineCounterBits
	for _, a := range debits {
		r.Lines = append(r.Lines, Line{ID: w.p.lines.GenerateAt(base | uint64(len(r.Lines))), Side: Debit, Amount: a})
	}
	for _, a := range credits {
		r.Lines = append(r.Lines, Line{ID: w.p.lines.GenerateAt(base | uint64(len(r.Lines))), Side: Credit, Amount: a})
	}
	return r, nil
}
