package repository

import (
	"context"

	"StockSim/internal/domain/models"
)

// PriceSource provides monthly close histories.
type PriceSource interface {
	FetchMonthly(ctx context.Context, ticker string, years int) (models.PriceSeries, error)
}

// PriceStore is a PriceSource backed by a database that can also be written to.
type PriceStore interface {
	PriceSource
	Init(ctx context.Context) error // ensure tables
	StoreMonthly(ctx context.Context, series models.PriceSeries) error
	Health(ctx context.Context) error // ping
	Close() error
}

// ResultPublisher announces completed simulations.
type ResultPublisher interface {
	PublishResult(ctx context.Context, result *models.SimulationResult) error
	Close() error
}

type Metrics interface {
	RecordSimulation(ticker, outcome string)
	RecordModelError(ticker, model string, mae float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
