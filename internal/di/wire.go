//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"FlatPull/internal/domain/repository"
	"FlatPull/pkg/config"
	"FlatPull/pkg/metrics"
	"FlatPull/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),
		ProvideRetryPolicy,

		// Infrastructure clients
		ProvideFingerprintMemo,
		ProvideDayFileSource,
		ProvideAggregateSource,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideCacheStore,
		ProvideTickerStore,
		ProvideBarMirror,
		ProvideEventPublisher,

		// Use cases
		ProvideDayReconciler,
		ProvideNormalizer,
		ProvideProgressBoard,
		ProvideRetriever,
		ProvideAggregateRetriever,
		ProvideSeries,

		// Application server
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
