//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"StockSim/pkg/config"
	"StockSim/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideKafkaProducer,
		ProvideLogDigest,

		// Repositories and services
		ProvidePriceSource,
		ProvideResultPublisher,
		ProvideModelRegistry,

		// Use cases
		ProvideSimulateUseCase,

		// Transport
		ProvideRateLimiter,
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideKafkaConsumer,

		server.New,
	)
	return nil, nil, nil
}
