package benford

import "math"

const (
	gammaMaxIterations = 500
	gammaEpsilon       = 1e-15
	gammaTiny          = 1e-300
)

// ChiSquarePValue returns P(X >= stat) for a chi-square distribution with df
// degrees of freedom. It returns NaN for df <= 0 or a NaN statistic.
func ChiSquarePValue(stat float64, df int) float64 {
	if df <= 0 || math.IsNaN(stat) {
		return math.NaN()
	}
	if stat <= 0 {
		return 1
	}
	if math.IsInf(stat, 1) {
		return 0
	}
	return upperRegularizedGamma(float64(df)/2, stat/2)
}

// upperRegularizedGamma computes Q(a, x) = Γ(a, x) / Γ(a).
func upperRegularizedGamma(a, x float64) float64 {
	if x < a+1 {
		return 1 - lowerGammaSeries(a, x)
	}
	return upperGammaFraction(a, x)
}

// gammaPrefix returns x^a e^-x / Γ(a).
func gammaPrefix(a, x float64) float64 {
	lg, _ := math.Lgamma(a)
	return math.Exp(a*math.Log(x) - x - lg)
}

// lowerGammaSeries evaluates P(a, x) by its power series. Converges fast
// for x < a+1.
func lowerGammaSeries(a, x float64) float64 {
	ap := a
	term := 1 / a
	sum := term
	for range gammaMaxIterations {
		ap++
		term *= x / ap
		sum += term
		if math.Abs(term) < math.Abs(sum)*gammaEpsilon {
			break
		}
	}
	return sum * gammaPrefix(a, x)
}

// upperGammaFraction evaluates Q(a, x) by its continued fraction using the
// modified Lentz method. Converges fast for x >= a+1.
func upperGammaFraction(a, x float64) float64 {
	b := x + 1 - a
	c := 1 / gammaTiny
	d := 1 / b
	h := d
	for i := 1; i <= gammaMaxIterations; i++ {
		an := -float64(i) * (float64(i) - a)
		b += 2
		d = an*d + b
		if math.Abs(d) < gammaTiny {
			d = gammaTiny
		}
		c = b + an/c
		if math.Abs(c) < gammaTiny {
			c = gammaTiny
		}
		d = 1 / d
		delta := d * c
		h *= delta
		if math.Abs(delta-1) < gammaEpsilon {
			break
		}
	}
	return gammaPrefix(a, x) * h
}
