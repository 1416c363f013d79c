package forecast

import (
	"context"
	"fmt"

	"StockSim/internal/domain/models"
)

// DefaultMinTrainSize is three years of monthly closes.
const DefaultMinTrainSize = 36

// WalkForwardBacktest scores a model with expanding-window, non-overlapping folds.
// Every fold trains a fresh instance from factory on prices[0:split] and predicts the
// next horizon prices; split then advances by horizon. MAE and RMSE are computed over
// the concatenation of all folds, in fold order. Too short a series yields zero folds
// and zero metrics. A minTrainSize of 0 fits the first fold on an empty series.
func WalkForwardBacktest(prices []float64, factory Factory, horizon, minTrainSize int) (models.BacktestResult, error) {
	return WalkForwardBacktestContext(context.Background(), prices, factory, horizon, minTrainSize)
}

// WalkForwardBacktestContext is WalkForwardBacktest with ctx bound to every model
// instance and checked before each fold.
func WalkForwardBacktestContext(ctx context.Context, prices []float64, factory Factory, horizon, minTrainSize int) (models.BacktestResult, error) {
	if horizon <= 0 {
		return models.BacktestResult{}, fmt.Errorf("horizon must be positive, got %d: %w", horizon, ErrInvalidArgument)
	}
	if minTrainSize < 0 {
		return models.BacktestResult{}, fmt.Errorf("min train size must not be negative, got %d: %w", minTrainSize, ErrInvalidArgument)
	}
	if factory == nil {
		return models.BacktestResult{}, fmt.Errorf("model factory is nil: %w", ErrInvalidArgument)
	}
	factory = WithContext(ctx, factory)

	folds := make([]models.Fold, 0, FoldCount(len(prices), horizon, minTrainSize))
	for split := minTrainSize; split+horizon <= len(prices); split += horizon {
		if err := ctx.Err(); err != nil {
			return models.BacktestResult{}, fmt.Errorf("backtest fold at %d: %w", split, err)
		}
		actual := make([]float64, horizon)
		copy(actual, prices[split:split+horizon])

		m := factory()
		m.Fit(prices[:split])
		folds = append(folds, models.Fold{
			TrainEnd:  split,
			Start:     split,
			Actual:    actual,
			Predicted: m.Predict(horizon),
		})
	}

	allActual := make([]float64, 0, len(folds)*horizon)
	allPredicted := make([]float64, 0, len(folds)*horizon)
	for _, f := range folds {
		allActual = append(allActual, f.Actual...)
		allPredicted = append(allPredicted, f.Predicted...)
	}

	return models.BacktestResult{
		ModelName: factory().Name(),
		MAE:       MAE(allActual, allPredicted),
		RMSE:      RMSE(allActual, allPredicted),
		Folds:     folds,
	}, nil
}

// FoldCount is the number of folds WalkForwardBacktest produces for a series of length n.
func FoldCount(n, horizon, minTrainSize int) int {
	if horizon <= 0 || n < minTrainSize+horizon {
		return 0
	}
	return (n - minTrainSize) / horizon
}
