// Package lineitem draws how many postings a record carries and how those
// postings split between the debit and credit side.
package lineitem

import (
	"errors"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/erp/datasynth/internal/seed"
)

// ErrInvalidConfig is returned when a Config cannot define a distribution.
var ErrInvalidConfig = errors.New("lineitem: invalid configuration")

// MaxLineItems caps the open-ended 1000+ bin.
const MaxLineItems = 10000

// MinLineItems is the smallest count a record can carry.
const MinLineItems = 2

// moreSideShare is the fraction of lines given to the heavier side.
const moreSideShare = 0.6

// DebitCreditType describes how lines split between the two sides.
type DebitCreditType int

// Debit/credit split kinds.
const (
	Equal DebitCreditType = iota
	MoreDebit
	MoreCredit
)

// String returns the split name.
func (t DebitCreditType) String() string {
	switch t {
	case Equal:
		return "equal"
	case MoreDebit:
		return "more_debit"
	case MoreCredit:
		return "more_credit"
	default:
		return "unknown"
	}
}

// MarshalText encodes the split kind by name.
func (t DebitCreditType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Spec is the full structural shape of one record.
type Spec struct {
	TotalCount  int             `json:"total_count"`
	DebitCount  int             `json:"debit_count"`
	CreditCount int             `json:"credit_count"`
	Type        DebitCreditType `json:"split_type"`
}

// countBin is one entry of the cumulative count table.
type countBin struct {
	low, high  int
	cumulative float64
}

// Sampler draws line-item specifications for one stream. It is not safe for
// concurrent use.
type Sampler struct {
	cfg    Config
	seed   uint64
	stream uint64
	rng    *rand.Rand

	bins            []countBin
	evenProbability float64
	equalCut        float64
	moreDebitCut    float64
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithStream selects an independent stream of the same seed.
func WithStream(stream uint64) Option {
	return func(s *Sampler) {
		s.stream = stream
	}
}

// NewSampler validates cfg and returns a sampler seeded with s.
func NewSampler(s uint64, cfg Config, opts ...Option) (*Sampler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sampler := &Sampler{
		cfg:  cfg,
		seed: s,
	}
	for _, opt := range opts {
		opt(sampler)
	}
	sampler.buildTables()
	sampler.rng = seed.NewRand(sampler.seed, sampler.stream)
	return sampler, nil
}

// buildTables normalizes the configured tables into cumulative cut points.
func (s *Sampler) buildTables() {
	ranges := [][2]int{
		{2, 2}, {3, 3}, {4, 4}, {5, 5}, {6, 6}, {7, 7}, {8, 8}, {9, 9},
		{10, 99}, {100, 999}, {1000, MaxLineItems},
	}
	weights := s.cfg.countWeights()

	var total float64
	for _, w := range weights {
		total += w
	}

	s.bins = make([]countBin, 0, len(weights))
	var running float64
	for i, w := range weights {
		if w == 0 {
			continue
		}
		running += w / total
		s.bins = append(s.bins, countBin{
			low:        ranges[i][0],
			high:       ranges[i][1],
			cumulative: running,
		})
	}
	s.bins[len(s.bins)-1].cumulative = 1.0

	s.evenProbability = s.cfg.EvenProbability / (s.cfg.EvenProbability + s.cfg.OddProbability)

	dcTotal := s.cfg.EqualProbability + s.cfg.MoreDebitProbability + s.cfg.MoreCreditProbability
	s.equalCut = s.cfg.EqualProbability / dcTotal
	s.moreDebitCut = s.equalCut + s.cfg.MoreDebitProbability/dcTotal
}

// Config returns a copy of the sampler configuration.
func (s *Sampler) Config() Config {
	return s.cfg
}

// Reset rewinds the sampler to its construction seed.
func (s *Sampler) Reset() {
	s.rng = seed.NewRand(s.seed, s.stream)
}

// SampleCount draws a line-item count of at least two.
func (s *Sampler) SampleCount() int {
	u := s.rng.Float64()
	i := sort.Search(len(s.bins), func(i int) bool {
		return s.bins[i].cumulative > u
	})
	if i == len(s.bins) {
		i = len(s.bins) - 1
	}

	bin := s.bins[i]
	if bin.low == bin.high {
		return bin.low
	}
	return bin.low + s.rng.IntN(bin.high-bin.low+1)
}

// SampleCountWithParity draws a count and nudges it by one when its parity
// disagrees with an independently drawn even/odd target. The nudge goes down
// unless the count is already at the floor of two.
func (s *Sampler) SampleCountWithParity() int {
	count := s.SampleCount()
	wantEven := s.rng.Float64() < s.evenProbability

	if (count%2 == 0) == wantEven {
		return count
	}
	if count > MinLineItems {
		return count - 1
	}
	return count + 1
}

// SampleDebitCreditType draws the debit/credit split kind.
func (s *Sampler) SampleDebitCreditType() DebitCreditType {
	u := s.rng.Float64()
	switch {
	case u < s.equalCut:
		return Equal
	case u < s.moreDebitCut:
		return MoreDebit
	default:
		return MoreCredit
	}
}

// Sample draws a complete specification: a parity-adjusted total split into
// debit and credit counts, each side holding at least one line.
func (s *Sampler) Sample() Spec {
	total := s.SampleCountWithParity()
	kind := s.SampleDebitCreditType()
	debit, credit := Split(total, kind)
	return Spec{
		TotalCount:  total,
		DebitCount:  debit,
		CreditCount: credit,
		Type:        kind,
	}
}

// Split partitions total lines by kind. The heavier side of a "more" split
// gets 60% of the lines. Both sides get at least one line when total >= 2.
func Split(total int, kind DebitCreditType) (debit, credit int) {
	var heavy int
	switch kind {
	case MoreDebit, MoreCredit:
		heavy = int(math.Round(float64(total) * moreSideShare))
	default:
		heavy = total / 2
	}
	heavy = max(heavy, 1)
	heavy = min(heavy, total-1)
	light := total - heavy

	if kind == MoreCredit {
		return light, heavy
	}
	return heavy, light
}
