package benford

import (
	"math/rand/v2"
	"sort"

	"github.com/shopspring/decimal"
)

// fixtureScales spread fixture amounts over five orders of magnitude.
var fixtureScales = [...]int64{1, 10, 100, 1_000, 10_000}

// GenerateConforming returns n amounts whose leading digit pairs follow
// Benford's law as closely as integer counts allow. Counts per pair are
// allotted by largest remainder; r only picks magnitudes, trailing digits
// and order.
func GenerateConforming(r *rand.Rand, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}

	type slot struct {
		first, second int
		count         int
		remainder     float64
	}
	slots := make([]slot, 0, 90)
	assigned := 0
	for first := 1; first <= 9; first++ {
		for second := range 10 {
			exact := pairProbability(first, second) * float64(n)
			count := int(exact)
			slots = append(slots, slot{
				first:     first,
				second:    second,
				count:     count,
				remainder: exact - float64(count),
			})
			assigned += count
		}
	}

	order := make([]int, len(slots))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return slots[order[a]].remainder > slots[order[b]].remainder
	})
	for i := 0; assigned < n; i++ {
		slots[order[i%len(order)]].count++
		assigned++
	}

	out := make([]decimal.Decimal, 0, n)
	for _, s := range slots {
		for range s.count {
			out = append(out, pairValue(r, s.first, s.second))
		}
	}
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// GenerateUniformFirstDigit returns n amounts whose first digits are spread
// evenly over 1..9, the classic signature of invented figures.
func GenerateUniformFirstDigit(r *rand.Rand, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}

	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = pairValue(r, 1+i%9, r.IntN(10))
	}
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// pairValue returns a two-decimal amount starting with the digits first and
// second.
func pairValue(r *rand.Rand, first, second int) decimal.Decimal {
	scale := fixtureScales[r.IntN(len(fixtureScales))]
	whole := int64(10*first+second)*scale + r.Int64N(scale)
	return decimal.New(whole*100+int64(r.IntN(100)), -2)
}
