//go:build wireinject
// +build wireinject

package di

import (
	"TradeSense/pkg/config"
	"TradeSense/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Market data services
		ProvideMarketFeed,
		ProvideReferencePrices,

		// Use cases
		ProvideCandleStore,
		ProvideSynthesizer,
		ProvideQuoteFetcher,
		ProvideSignalDeriver,
		ProvideProjector,
		ProvideSequencer,

		// Delivery
		ProvideHub,
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
