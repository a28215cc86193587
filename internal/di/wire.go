//go:build wireinject
// +build wireinject

package di

import (
	"QuantBack/pkg/config"
	"QuantBack/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,

		// Repositories
		ProvideMarketStore,
		ProvideFeatureStore,

		// Services
		ProvideEnsemble,
		ProvideBacktestService,

		// Use cases
		ProvideBacktestUseCase,
		ProvideTimeseriesUseCase,

		// HTTP
		ProvideCache,
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
