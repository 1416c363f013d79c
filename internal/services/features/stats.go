package features

import (
	"math"

	"StockSim/internal/domain/models"
	"StockSim/internal/services/forecast"
)

// PriceStats builds one row per month for the last n points. Open is the previous
// month's close within the window, so the first row opens at its own close.
func PriceStats(points []models.PricePoint, n int) []models.PriceStat {
	tail := lastN(points, n)
	out := make([]models.PriceStat, 0, len(tail))
	for i, p := range tail {
		open := p.Close
		if i > 0 {
			open = tail[i-1].Close
		}
		change := p.Close - open
		out = append(out, models.PriceStat{
			Period:    p.Month,
			Open:      forecast.Round2(open),
			Close:     forecast.Round2(p.Close),
			High:      forecast.Round2(math.Max(open, p.Close)),
			Low:       forecast.Round2(math.Min(open, p.Close)),
			Change:    forecast.Round2(change),
			ChangePct: forecast.Round2(PercentChange(open, p.Close)),
		})
	}
	return out
}

// HistoricalTail returns the last n closes rounded to cents.
func HistoricalTail(points []models.PricePoint, n int) []models.HistoricalPrice {
	tail := lastN(points, n)
	out := make([]models.HistoricalPrice, len(tail))
	for i, p := range tail {
		out[i] = models.HistoricalPrice{Month: p.Month, Price: forecast.Round2(p.Close)}
	}
	return out
}

// WithReturns fills ReturnPct on every point after the first.
func WithReturns(points []models.PricePoint) []models.PricePoint {
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}
	for i, r := range MonthlyReturns(closes) {
		points[i+1].ReturnPct = r
	}
	return points
}

func lastN(points []models.PricePoint, n int) []models.PricePoint {
	if n <= 0 {
		return nil
	}
	if n > len(points) {
		n = len(points)
	}
	return points[len(points)-n:]
}
