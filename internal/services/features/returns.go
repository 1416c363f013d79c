package features

// MonthlyReturns returns the percent change of each close against the previous one.
// The result has len(closes)-1 entries; a non-positive previous close yields 0.
func MonthlyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		out = append(out, PercentChange(closes[i-1], closes[i]))
	}
	return out
}

// PercentChange is (cur/prev - 1) * 100, or 0 when prev is not positive.
func PercentChange(prev, cur float64) float64 {
	if prev <= 0 {
		return 0
	}
	return (cur/prev - 1) * 100
}
