//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"ETFWatch/pkg/config"
	"ETFWatch/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config, opts RunOptions) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideMetricsRecorder,
		ProvideCache,

		// Providers and delivery
		ProvidePriceFetcher,
		ProvidePEFetcher,
		ProvideGateway,

		// Use cases
		ProvidePriceJob,
		ProvidePEJob,

		// HTTP and application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
