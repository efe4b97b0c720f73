package benford

import (
	"math"

	"github.com/shopspring/decimal"
)

// ExpectedFirstDigit holds log10(1 + 1/d) for d = 1..9, indexed by d-1.
var ExpectedFirstDigit = func() [9]float64 {
	var p [9]float64
	for d := 1; d <= 9; d++ {
		p[d-1] = math.Log10(1 + 1/float64(d))
	}
	return p
}()

// ExpectedSecondDigit holds the Benford probability of each second digit
// d = 0..9, summed over every possible first digit.
var ExpectedSecondDigit = func() [10]float64 {
	var p [10]float64
	for d := range 10 {
		for k := 1; k <= 9; k++ {
			p[d] += math.Log10(1 + 1/float64(10*k+d))
		}
	}
	return p
}()

// pairProbability is the Benford probability of a leading digit pair.
func pairProbability(first, second int) float64 {
	return math.Log10(1 + 1/float64(10*first+second))
}

// FirstDigit returns the first significant digit of v, ignoring sign and
// leading zeros. It returns false for zero.
func FirstDigit(v decimal.Decimal) (int, bool) {
	first, _, ok := leadingDigits(v)
	return first, ok
}

// SecondDigit returns the digit after the first significant digit of v,
// skipping the decimal point. A value with no further digits has second
// digit 0. It returns false for zero.
func SecondDigit(v decimal.Decimal) (int, bool) {
	_, second, ok := leadingDigits(v)
	return second, ok
}

// leadingDigits scans the plain decimal rendering of |v|.
func leadingDigits(v decimal.Decimal) (first, second int, ok bool) {
	if v.IsZero() {
		return 0, 0, false
	}

	s := v.Abs().String()
	i := 0
	for ; i < len(s); i++ {
		if s[i] >= '1' && s[i] <= '9' {
			first = int(s[i] - '0')
			break
		}
	}
	if first == 0 {
		return 0, 0, false
	}

	for i++; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return first, int(s[i] - '0'), true
		}
	}
	return first, 0, true
}
