package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/datasynth/internal/benford"
	"github.com/erp/datasynth/internal/drift"
	"github.com/erp/datasynth/internal/lineitem"
)

// Side is the posting side of a line.
type Side string

const (
	Debit  Side = "debit"
	Credit Side = "credit"
)

// Line is one posting of a record.
type Line struct {
	ID     uuid.UUID       `json:"id" yaml:"id"`
	Side   Side            `json:"side" yaml:"side"`
	Amount decimal.Decimal `json:"amount" yaml:"amount"`
}

// Record is one generated journal record. Debit and credit lines each sum
// to Amount exactly.
type Record struct {
	ID           uuid.UUID                `json:"id" yaml:"id"`
	Period       int                      `json:"period" yaml:"period"`
	PostedAt     time.Time                `json:"posted_at" yaml:"posted_at"`
	Human        bool                     `json:"human" yaml:"human"`
	Counterparty Counterparty             `json:"counterparty" yaml:"counterparty"`
	Amount       decimal.Decimal          `json:"amount" yaml:"amount"`
	Split        lineitem.DebitCreditType `json:"split" yaml:"split"`
	Lines        []Line                   `json:"lines" yaml:"lines"`
	Anomaly      bool                     `json:"anomaly" yaml:"anomaly"`
	AnomalyID    *uuid.UUID               `json:"anomaly_id,omitempty" yaml:"anomaly_id,omitempty"`
}

// Total returns the sum of the lines on one side.
func (r *Record) Total(side Side) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range r.Lines {
		if l.Side == side {
			sum = sum.Add(l.Amount)
		}
	}
	return sum
}

// PeriodSummary describes one generated period.
type PeriodSummary struct {
	Period      int               `json:"period" yaml:"period"`
	Start       time.Time         `json:"start" yaml:"start"`
	End         time.Time         `json:"end" yaml:"end"`
	Records     int               `json:"records" yaml:"records"`
	Lines       int               `json:"lines" yaml:"lines"`
	Anomalies   int               `json:"anomalies" yaml:"anomalies"`
	AnomalyRate float64           `json:"anomaly_rate" yaml:"anomaly_rate"`
	Phase       string            `json:"phase" yaml:"phase"`
	Adjustments drift.Adjustments `json:"adjustments" yaml:"adjustments"`
	Duration    time.Duration     `json:"duration" yaml:"duration"`
}

// PopulationReport is the Benford analysis of one population of record
// amounts. The reports are nil when the population is too small.
type PopulationReport struct {
	Amounts     int                        `json:"amounts" yaml:"amounts"`
	FirstDigit  *benford.Report            `json:"first_digit,omitempty" yaml:"first_digit,omitempty"`
	SecondDigit *benford.SecondDigitReport `json:"second_digit,omitempty" yaml:"second_digit,omitempty"`
}

// QualityReport compares normal records against injected anomalies.
type QualityReport struct {
	Normal    PopulationReport `json:"normal" yaml:"normal"`
	Anomalous PopulationReport `json:"anomalous" yaml:"anomalous"`
}

// Result is the output of a run.
type Result struct {
	Records []Record        `json:"records" yaml:"records"`
	Periods []PeriodSummary `json:"periods" yaml:"periods"`
	Quality QualityReport   `json:"quality" yaml:"quality"`
}

// Lines returns the number of lines across all records.
func (r *Result) Lines() int {
	n := 0
	for _, p := range r.Periods {
		n += p.Lines
	}
	return n
}

// Anomalies returns the number of anomalous records.
func (r *Result) Anomalies() int {
	n := 0
	for _, p := range r.Periods {
		n += p.Anomalies
	}
	return n
}
