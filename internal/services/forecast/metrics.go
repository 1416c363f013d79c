package forecast

import "math"

// MAE returns the mean absolute error over the aligned prefix of actual and predicted.
// Empty input yields 0.
func MAE(actual, predicted []float64) float64 {
	n := alignedLen(actual, predicted)
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(n)
}

// RMSE returns the root mean square error over the aligned prefix of actual and predicted.
// Empty input yields 0.
func RMSE(actual, predicted []float64) float64 {
	n := alignedLen(actual, predicted)
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

func alignedLen(a, b []float64) int {
	if len(a) < len(b) {
		return len(a)
	}
	return len(b)
}
