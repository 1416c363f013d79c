package forecast

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rampSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func TestWalkForwardBacktestFoldCount(t *testing.T) {
	tests := []struct {
		n, horizon, minTrain, want int
	}{
		{40, 6, 36, 0},
		{42, 6, 36, 1},
		{47, 6, 36, 1},
		{48, 6, 36, 2},
		{120, 12, 36, 7},
		{10, 6, 36, 0},
	}

	for _, tt := range tests {
		res, err := WalkForwardBacktest(rampSeries(tt.n), NewLastPriceHoldModel, tt.horizon, tt.minTrain)
		require.NoError(t, err)
		assert.Len(t, res.Folds, tt.want, "n=%d horizon=%d", tt.n, tt.horizon)
		assert.Equal(t, tt.want, FoldCount(tt.n, tt.horizon, tt.minTrain))
	}
}

func TestWalkForwardBacktestFoldsAreContiguous(t *testing.T) {
	prices := rampSeries(60)
	res, err := WalkForwardBacktest(prices, NewHistoricalAverageModel, 6, 36)
	require.NoError(t, err)
	require.Len(t, res.Folds, 4)

	for i, f := range res.Folds {
		assert.Equal(t, f.TrainEnd, f.Start)
		assert.Len(t, f.Actual, 6)
		assert.Len(t, f.Predicted, 6)
		assert.Equal(t, prices[f.Start:f.Start+6], f.Actual)
		if i > 0 {
			assert.Equal(t, res.Folds[i-1].Start+6, f.Start)
		}
	}
}

func TestWalkForwardBacktestScoresFlattenedFolds(t *testing.T) {
	// Last-price-hold on a +1 ramp misses by 1..h in every fold.
	res, err := WalkForwardBacktest(rampSeries(48), NewLastPriceHoldModel, 6, 36)
	require.NoError(t, err)

	assert.Equal(t, "Last Price Hold", res.ModelName)
	assert.InDelta(t, 3.5, res.MAE, 1e-9)
	assert.InDelta(t, 3.8944, res.RMSE, 1e-4)
	assert.Equal(t, []float64{135, 135, 135, 135, 135, 135}, res.Folds[0].Predicted)
	assert.Equal(t, []float64{141, 141, 141, 141, 141, 141}, res.Folds[1].Predicted)
}

func TestWalkForwardBacktestUsesFreshModelPerFold(t *testing.T) {
	var built int
	factory := func() Model {
		built++
		return &countingModel{}
	}

	res, err := WalkForwardBacktest(rampSeries(54), factory, 6, 36)
	require.NoError(t, err)
	require.Len(t, res.Folds, 3)
	for _, f := range res.Folds {
		// Each instance is fitted exactly once.
		assert.Equal(t, []float64{1, 1, 1, 1, 1, 1}, f.Predicted)
	}
	assert.GreaterOrEqual(t, built, 3)
}

func TestWalkForwardBacktestZeroFolds(t *testing.T) {
	res, err := WalkForwardBacktest(rampSeries(20), NewTrendProjectionModel, 6, 36)
	require.NoError(t, err)
	assert.Empty(t, res.Folds)
	assert.Zero(t, res.MAE)
	assert.Zero(t, res.RMSE)
	assert.Equal(t, "Trend Projection", res.ModelName)
}

func TestWalkForwardBacktestInvalidArguments(t *testing.T) {
	prices := rampSeries(60)

	_, err := WalkForwardBacktest(prices, NewLastPriceHoldModel, 0, 36)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = WalkForwardBacktest(prices, NewLastPriceHoldModel, -6, 36)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = WalkForwardBacktest(prices, NewLastPriceHoldModel, 6, -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = WalkForwardBacktest(prices, nil, 6, 36)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestWalkForwardBacktestZeroMinTrainSize(t *testing.T) {
	prices := rampSeries(60)
	res, err := WalkForwardBacktest(prices, NewLastPriceHoldModel, 6, 0)
	require.NoError(t, err)
	require.Len(t, res.Folds, 10)
	assert.Equal(t, 10, FoldCount(60, 6, 0))

	first := res.Folds[0]
	assert.Equal(t, 0, first.TrainEnd)
	assert.Equal(t, prices[:6], first.Actual)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0}, first.Predicted)
	assert.Equal(t, []float64{105, 105, 105, 105, 105, 105}, res.Folds[1].Predicted)
}

func TestWalkForwardBacktestContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var fits int
	factory := func() Model {
		return &ctxModel{onFit: func() { fits++ }}
	}
	_, err := WalkForwardBacktestContext(ctx, rampSeries(60), factory, 6, 36)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fits)
}

func TestWalkForwardBacktestContextStopsBetweenFolds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fits int
	factory := func() Model {
		return &ctxModel{onFit: func() {
			fits++
			if fits == 2 {
				cancel()
			}
		}}
	}
	_, err := WalkForwardBacktestContext(ctx, rampSeries(60), factory, 6, 36)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 2, fits)
}

func TestWithContextBindsModels(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "run-1")

	m := WithContext(ctx, func() Model { return &ctxModel{} })()
	require.IsType(t, &ctxModel{}, m)
	assert.Equal(t, "run-1", m.(*ctxModel).ctx.Value(key{}))

	plain := WithContext(ctx, NewLastPriceHoldModel)()
	assert.IsType(t, &LastPriceHoldModel{}, plain)
}

func TestWalkForwardBacktestLeavesInputUntouched(t *testing.T) {
	prices := rampSeries(48)
	before := append([]float64(nil), prices...)

	res, err := WalkForwardBacktest(prices, NewHistoricalAverageModel, 6, 36)
	require.NoError(t, err)
	res.Folds[0].Actual[0] = -1

	assert.Equal(t, before, prices)
}

// countingModel predicts how many times it has been fitted.
type countingModel struct{ fits int }

func (m *countingModel) Name() string        { return "counting" }
func (m *countingModel) Fit(train []float64) { m.fits++ }
func (m *countingModel) Predict(steps int) []float64 {
	return repeat(float64(m.fits), steps)
}

// ctxModel records the context it was bound to.
type ctxModel struct {
	ctx   context.Context
	onFit func()
}

func (m *ctxModel) Name() string                    { return "ctx" }
func (m *ctxModel) BindContext(ctx context.Context) { m.ctx = ctx }
func (m *ctxModel) Predict(steps int) []float64     { return repeat(0, steps) }
func (m *ctxModel) Fit(train []float64) {
	if m.onFit != nil {
		m.onFit()
	}
}
