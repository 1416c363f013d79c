package forecast

import (
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
)

// DefaultEMAPeriod is one year of monthly closes.
const DefaultEMAPeriod = 12

// ExponentialSmoothingModel forecasts the last exponential moving average of the
// training series, flat. Series shorter than the period fall back to the plain mean.
type ExponentialSmoothingModel struct {
	period int
	level  float64
}

// NewExponentialSmoothingModel returns a factory for EMA models with the given period.
func NewExponentialSmoothingModel(period int) Factory {
	if period <= 1 {
		period = DefaultEMAPeriod
	}
	return func() Model { return &ExponentialSmoothingModel{period: period} }
}

func (m *ExponentialSmoothingModel) Name() string { return "Exponential Smoothing" }

func (m *ExponentialSmoothingModel) Fit(train []float64) {
	if len(train) < m.period {
		m.level = mean(train)
		return
	}
	ema := trend.NewEmaWithPeriod[float64](m.period)
	values := helper.ChanToSlice(ema.Compute(helper.SliceToChan(train)))
	if len(values) == 0 {
		m.level = mean(train)
		return
	}
	m.level = values[len(values)-1]
}

func (m *ExponentialSmoothingModel) Predict(steps int) []float64 {
	return repeat(m.level, steps)
}

var _ Model = (*ExponentialSmoothingModel)(nil)
