package service

import "context"

// ModelService produces a forecast path from an externally hosted model identified by key.
type ModelService interface {
	Forecast(ctx context.Context, key string, train []float64, horizon int) ([]float64, error)
}
