package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExponentialSmoothingConstantSeries(t *testing.T) {
	train := make([]float64, 30)
	for i := range train {
		train[i] = 75
	}
	m := NewExponentialSmoothingModel(12)()
	m.Fit(train)
	for _, v := range m.Predict(4) {
		assert.InDelta(t, 75.0, v, 1e-9)
	}
}

func TestExponentialSmoothingShortSeriesFallsBackToMean(t *testing.T) {
	m := NewExponentialSmoothingModel(12)()
	m.Fit([]float64{10, 20, 30})
	assert.Equal(t, []float64{20, 20}, m.Predict(2))
}

func TestExponentialSmoothingTracksRecentPrices(t *testing.T) {
	train := make([]float64, 40)
	for i := range train {
		train[i] = float64(i + 1)
	}
	m := NewExponentialSmoothingModel(6)()
	m.Fit(train)
	level := m.Predict(1)[0]

	// Weighted toward the tail, so above the plain mean but never past the last close.
	assert.Greater(t, level, mean(train))
	assert.LessOrEqual(t, level, train[len(train)-1])
}

func TestExponentialSmoothingDefaultPeriod(t *testing.T) {
	m := NewExponentialSmoothingModel(0)().(*ExponentialSmoothingModel)
	assert.Equal(t, DefaultEMAPeriod, m.period)
	assert.Equal(t, "Exponential Smoothing", m.Name())
	assert.Equal(t, []float64{0}, m.Predict(1))
}
