package forecast

import "math"

// HistoricalAverageModel forecasts the mean of the training series for every step.
type HistoricalAverageModel struct {
	mean float64
}

func NewHistoricalAverageModel() Model { return &HistoricalAverageModel{} }

func (m *HistoricalAverageModel) Name() string { return "Historical Average" }

func (m *HistoricalAverageModel) Fit(train []float64) {
	m.mean = mean(train)
}

func (m *HistoricalAverageModel) Predict(steps int) []float64 {
	return repeat(m.mean, steps)
}

// LastPriceHoldModel is the no-change forecast: the last observed price repeated.
type LastPriceHoldModel struct {
	last float64
}

func NewLastPriceHoldModel() Model { return &LastPriceHoldModel{} }

func (m *LastPriceHoldModel) Name() string { return "Last Price Hold" }

func (m *LastPriceHoldModel) Fit(train []float64) {
	m.last = 0
	if len(train) > 0 {
		m.last = train[len(train)-1]
	}
}

func (m *LastPriceHoldModel) Predict(steps int) []float64 {
	return repeat(m.last, steps)
}

// TrendProjectionModel extends the average month-over-month change of the training
// series from its last price. Forecasts are floored at 0.
type TrendProjectionModel struct {
	lastPrice float64
	drift     float64
}

func NewTrendProjectionModel() Model { return &TrendProjectionModel{} }

func (m *TrendProjectionModel) Name() string { return "Trend Projection" }

func (m *TrendProjectionModel) Fit(train []float64) {
	n := len(train)
	if n < 2 {
		m.lastPrice = 0
		if n == 1 {
			m.lastPrice = train[0]
		}
		m.drift = 0
		return
	}
	m.lastPrice = train[n-1]
	m.drift = (train[n-1] - train[0]) / float64(n-1)
}

func (m *TrendProjectionModel) Predict(steps int) []float64 {
	if steps <= 0 {
		return []float64{}
	}
	out := make([]float64, steps)
	for k := range out {
		out[k] = math.Max(0, m.lastPrice+float64(k+1)*m.drift)
	}
	return out
}

// Drift exposes the fitted per-period change.
func (m *TrendProjectionModel) Drift() float64 { return m.drift }

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

var (
	_ Model = (*HistoricalAverageModel)(nil)
	_ Model = (*LastPriceHoldModel)(nil)
	_ Model = (*TrendProjectionModel)(nil)
)
