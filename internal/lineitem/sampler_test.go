package lineitem

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultSampler(t *testing.T, s uint64) *Sampler {
	t.Helper()
	sampler, err := NewSampler(s, DefaultConfig())
	require.NoError(t, err)
	return sampler
}

func TestConfig_Validate(t *testing.T) {
	t.Run("default sums to one", func(t *testing.T) {
		require.NoError(t, DefaultConfig().Validate())
	})

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"count table too low", func(c *Config) { c.TwoItems = 0.5 }, "line item count probabilities"},
		{"count table too high", func(c *Config) { c.FourItems = 0.3 }, "line item count probabilities"},
		{"negative bin", func(c *Config) { c.NineItems = -0.01 }, "NineItems"},
		{"even odd table", func(c *Config) { c.OddProbability = 0.5 }, "even/odd"},
		{"debit credit table", func(c *Config) { c.EqualProbability = 0.5 }, "debit/credit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)

			_, err = NewSampler(1, cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	t.Run("within tolerance is accepted", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TwoItems += ProbabilitySumTolerance / 2
		assert.NoError(t, cfg.Validate())
	})
}

func TestSampler_SampleCount(t *testing.T) {
	sampler := newDefaultSampler(t, 42)

	const draws = 20000
	twos := 0
	for range draws {
		c := sampler.SampleCount()
		require.GreaterOrEqual(t, c, MinLineItems)
		require.LessOrEqual(t, c, MaxLineItems)
		if c == 2 {
			twos++
		}
	}
	assert.InDelta(t, 0.6068, float64(twos)/draws, 0.02)
}

func TestSampler_SampleCount_OpenRanges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TwoItems, cfg.ThreeItems, cfg.FourItems, cfg.FiveItems = 0, 0, 0, 0
	cfg.SixItems, cfg.SevenItems, cfg.EightItems, cfg.NineItems = 0, 0, 0, 0
	cfg.TenToNinetyNine = 0.5
	cfg.HundredToNineNinetyNine = 0.3
	cfg.ThousandPlus = 0.2

	sampler, err := NewSampler(3, cfg)
	require.NoError(t, err)

	var mid, large, huge int
	for range 5000 {
		c := sampler.SampleCount()
		switch {
		case c >= 10 && c <= 99:
			mid++
		case c >= 100 && c <= 999:
			large++
		case c >= 1000 && c <= MaxLineItems:
			huge++
		default:
			t.Fatalf("count %d outside configured ranges", c)
		}
	}
	assert.InDelta(t, 0.5, float64(mid)/5000, 0.05)
	assert.InDelta(t, 0.3, float64(large)/5000, 0.05)
	assert.InDelta(t, 0.2, float64(huge)/5000, 0.05)
}

func TestSampler_Parity(t *testing.T) {
	sampler := newDefaultSampler(t, 7)

	const draws = 20000
	even := 0
	for range draws {
		c := sampler.SampleCountWithParity()
		require.GreaterOrEqual(t, c, MinLineItems)
		if c%2 == 0 {
			even++
		}
	}
	assert.InDelta(t, 0.88, float64(even)/draws, 0.02)
}

func TestSampler_DebitCreditType(t *testing.T) {
	sampler := newDefaultSampler(t, 8)

	counts := make(map[DebitCreditType]int)
	const draws = 20000
	for range draws {
		counts[sampler.SampleDebitCreditType()]++
	}
	assert.InDelta(t, 0.82, float64(counts[Equal])/draws, 0.02)
	assert.InDelta(t, 0.07, float64(counts[MoreDebit])/draws, 0.02)
	assert.InDelta(t, 0.11, float64(counts[MoreCredit])/draws, 0.02)
}

func TestSampler_SampleInvariants(t *testing.T) {
	sampler := newDefaultSampler(t, 42)

	for range 20000 {
		spec := sampler.Sample()
		require.GreaterOrEqual(t, spec.TotalCount, 2)
		require.GreaterOrEqual(t, spec.DebitCount, 1)
		require.GreaterOrEqual(t, spec.CreditCount, 1)
		require.Equal(t, spec.TotalCount, spec.DebitCount+spec.CreditCount)

		switch spec.Type {
		case MoreDebit:
			require.GreaterOrEqual(t, spec.DebitCount, spec.CreditCount)
		case MoreCredit:
			require.GreaterOrEqual(t, spec.CreditCount, spec.DebitCount)
		}
	}
}

func TestSampler_Determinism(t *testing.T) {
	a := newDefaultSampler(t, 42)
	b := newDefaultSampler(t, 42)

	specs := make([]Spec, 500)
	for i := range specs {
		specs[i] = a.Sample()
		require.Equal(t, specs[i], b.Sample())
	}

	a.Reset()
	for i := range specs {
		require.Equal(t, specs[i], a.Sample())
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		total         int
		kind          DebitCreditType
		debit, credit int
	}{
		{2, Equal, 1, 1},
		{2, MoreDebit, 1, 1},
		{2, MoreCredit, 1, 1},
		{3, Equal, 1, 2},
		{4, Equal, 2, 2},
		{5, MoreDebit, 3, 2},
		{5, MoreCredit, 2, 3},
		{10, MoreDebit, 6, 4},
		{10, MoreCredit, 4, 6},
		{11, MoreDebit, 7, 4},
	}
	for _, tt := range tests {
		debit, credit := Split(tt.total, tt.kind)
		assert.Equal(t, tt.debit, debit, "total=%d kind=%s", tt.total, tt.kind)
		assert.Equal(t, tt.credit, credit, "total=%d kind=%s", tt.total, tt.kind)
	}
}

func TestSpec_JSON(t *testing.T) {
	data, err := json.Marshal(Spec{TotalCount: 4, DebitCount: 2, CreditCount: 2, Type: Equal})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_count":4,"debit_count":2,"credit_count":2,"split_type":"equal"}`, string(data))
}
