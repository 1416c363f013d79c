package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMAEAndRMSE(t *testing.T) {
	tests := []struct {
		name      string
		actual    []float64
		predicted []float64
		mae       float64
		rmse      float64
	}{
		{"empty", nil, nil, 0, 0},
		{"one side empty", []float64{1, 2}, nil, 0, 0},
		{"exact", []float64{1, 2, 3}, []float64{1, 2, 3}, 0, 0},
		{"uniform error", []float64{10, 20}, []float64{12, 18}, 2, 2},
		{"mixed error", []float64{0, 0}, []float64{3, 4}, 3.5, math.Sqrt(12.5)},
		{"aligned prefix", []float64{1, 1, 1}, []float64{2, 2}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.mae, MAE(tt.actual, tt.predicted), 1e-9)
			assert.InDelta(t, tt.rmse, RMSE(tt.actual, tt.predicted), 1e-9)
		})
	}
}

func TestRMSENeverBelowMAE(t *testing.T) {
	actual := []float64{101.5, 98.2, 110.4, 95.0, 120.3}
	predicted := []float64{100, 100, 100, 100, 100}

	mae := MAE(actual, predicted)
	rmse := RMSE(actual, predicted)
	assert.GreaterOrEqual(t, mae, 0.0)
	assert.Greater(t, rmse, mae)
}

func TestMetricsInvariantUnderJointReordering(t *testing.T) {
	a := []float64{1, 5, 9}
	p := []float64{2, 2, 2}
	ra := []float64{9, 1, 5}
	rp := []float64{2, 2, 2}

	assert.InDelta(t, MAE(a, p), MAE(ra, rp), 1e-12)
	assert.InDelta(t, RMSE(a, p), RMSE(ra, rp), 1e-12)
}
