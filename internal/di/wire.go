//go:build wireinject
// +build wireinject

package di

import (
	"CrediPulse/pkg/config"
	"CrediPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Foundation
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvidePostgresPool,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCacheService,

		// Repositories
		ProvideSignalStore,
		ProvideTransactionStore,
		ProvideOfferStore,
		ProvideEventArchive,
		ProvideSignalPublisher,
		ProvideEventBus,

		// Services
		ProvideScorer,
		ProvideDecisionCache,
		ProvideSignalStream,

		// Use cases
		ProvideAnalyzer,
		ProvideEmotionHandler,
		ProvideTransactionHandler,
		ProvideOfferActivationHandler,
		ProvideSignalCollector,

		// HTTP API
		ProvideCreditHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
