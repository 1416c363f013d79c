package forecast

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"StockSim/internal/domain/models"
)

// AggregateScenarios combines already-fitted models into per-month bands: the most
// pessimistic model is bearish, the most optimistic bullish, and the cross-model median
// stable. Only Predict is called. startDate is the period preceding the first step.
func AggregateScenarios(ms []Model, steps int, startDate string) ([]models.ScenarioStep, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("steps must be positive, got %d: %w", steps, ErrInvalidArgument)
	}
	year, month, err := ParseMonth(startDate)
	if err != nil {
		return nil, err
	}

	predictions := make([][]float64, len(ms))
	for i, m := range ms {
		predictions[i] = m.Predict(steps)
	}

	out := make([]models.ScenarioStep, 0, steps)
	stepPreds := make([]float64, 0, len(ms))
	for i := 0; i < steps; i++ {
		stepPreds = stepPreds[:0]
		for _, p := range predictions {
			if i < len(p) {
				stepPreds = append(stepPreds, p[i])
			}
		}
		lo, mid, hi := spread(stepPreds)
		out = append(out, models.ScenarioStep{
			Month:   MonthLabel(year, month, i+1),
			Bearish: Round2(lo),
			Stable:  Round2(mid),
			Bullish: Round2(hi),
		})
	}
	return out, nil
}

// spread returns min, median and max. The median of an even count is the mean of the
// two central values. Empty input is all zeros.
func spread(xs []float64) (lo, mid, hi float64) {
	if len(xs) == 0 {
		return 0, 0, 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	lo, hi = sorted[0], sorted[n-1]
	if n%2 == 0 {
		mid = (sorted[n/2-1] + sorted[n/2]) / 2
	} else {
		mid = sorted[n/2]
	}
	return lo, mid, hi
}

// Median of xs; 0 when empty.
func Median(xs []float64) float64 {
	_, mid, _ := spread(xs)
	return mid
}

// Round2 rounds to cents, half away from zero.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
