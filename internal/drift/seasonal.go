package drift

// seasonalFactors is the monthly multiplier table: a post-holiday dip in
// January and February, recovery through mid-year, a summer dip, and a
// ramp into the fourth quarter.
var seasonalFactors = [12]float64{
	0.85, 0.88, 0.95, 1.00, 1.02, 1.00,
	0.92, 0.90, 1.00, 1.10, 1.20, 1.35,
}

// SeasonalFactor returns the multiplier for a zero-based month. Values
// outside [0, 12) wrap.
func SeasonalFactor(month int) float64 {
	m := month % 12
	if m < 0 {
		m += 12
	}
	return seasonalFactors[m]
}
