package di

import (
	"context"
	"fmt"
	"time"

	"CrediPulse/internal/domain/repository"
	"CrediPulse/internal/handler/api"
	internalrepo "CrediPulse/internal/repository"
	icache "CrediPulse/internal/service/cache"
	"CrediPulse/internal/service/scoring"
	"CrediPulse/internal/service/stream"
	"CrediPulse/internal/usecase"
	pkgcache "CrediPulse/pkg/cache"
	pkgch "CrediPulse/pkg/clickhouse"
	"CrediPulse/pkg/config"
	pkgkafka "CrediPulse/pkg/kafka"
	applogger "CrediPulse/pkg/logger"
	"CrediPulse/pkg/metrics"
	"CrediPulse/pkg/server"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := cfg.Logging.Level
	if level == "" {
		level = "info"
	}
	format := cfg.Logging.Format
	if format == "" {
		format = "json"
	}
	output := cfg.Logging.Output
	if output == "" {
		output = "stdout"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: output})
}

// ProvidePostgresPool creates the Postgres pool and initializes the schema.
func ProvidePostgresPool(cfg *config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := internalrepo.NewPostgresPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := internalrepo.InitSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return pool, nil
}

// ProvideClickHouseClient creates the raw-event archive client. Returns nil
// when the archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".emotion_events_raw (" +
			"ts DateTime, user_id String, trace_id String, event_type String, " +
			"positivity Float64, intensity Float64, stress_level Float64" +
			") ENGINE=MergeTree ORDER BY (user_id, ts)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideEventArchive creates the ClickHouse archive repository, or nil when
// the archive is disabled.
func ProvideEventArchive(chClient *pkgch.Client, cfg *config.Config) repository.EventArchive {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseArchive(chClient.DB(), cfg.ClickHouse.Database+".emotion_events_raw")
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.RetryDelay, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideCacheService selects the decision cache backend: Redis when
// configured, an in-process cache otherwise.
func ProvideCacheService(cfg *config.Config) (pkgcache.Service, error) {
	if cfg.Redis.Enabled {
		svc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(cfg.Redis.Host),
			pkgcache.WithRedisPort(cfg.Redis.Port),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
			pkgcache.WithRedisPrefix("credipulse"),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return svc, nil
	}
	return pkgcache.NewMemoryCache(), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideSignalStore creates the Postgres signal rollup repository.
func ProvideSignalStore(pool *pgxpool.Pool) repository.SignalStore {
	return internalrepo.NewPostgresSignalStore(pool)
}

// ProvideTransactionStore creates the Postgres transaction repository.
func ProvideTransactionStore(pool *pgxpool.Pool) repository.TransactionStore {
	return internalrepo.NewPostgresTransactionStore(pool)
}

// ProvideOfferStore creates the Postgres offer repository.
func ProvideOfferStore(pool *pgxpool.Pool) repository.OfferStore {
	return internalrepo.NewPostgresOfferStore(pool)
}

// ProvideSignalPublisher creates the Kafka publisher for collected signals.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SignalPublisher {
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topics.Emotions)
}

// ProvideEventBus creates the Kafka bus for lifecycle and notification events.
func ProvideEventBus(producer *pkgkafka.Producer, cfg *config.Config) repository.EventBus {
	return internalrepo.NewKafkaEventBus(producer, cfg.Kafka.Topics.OffersAccepted, cfg.Kafka.Topics.Notifications)
}

// ProvideScorer wraps the scoring HTTP client in a circuit breaker.
func ProvideScorer(cfg *config.Config, m repository.Metrics) repository.RiskScorer {
	client := scoring.NewClient(cfg.Scoring.URL, cfg.Scoring.Timeout)
	return scoring.NewBreaker(client,
		cfg.Scoring.Breaker.FailureThreshold,
		cfg.Scoring.Breaker.Cooldown,
		scoring.WithMetrics(m),
	)
}

// ProvideDecisionCache creates the advisory decision cache.
func ProvideDecisionCache(svc pkgcache.Service, logger *applogger.Logger, m repository.Metrics) *icache.DecisionCache {
	return icache.NewDecisionCache(svc, logger, m)
}

// ProvideAnalyzer creates the credit analysis use case.
func ProvideAnalyzer(
	cache *icache.DecisionCache,
	signals repository.SignalStore,
	txs repository.TransactionStore,
	offers repository.OfferStore,
	scorer repository.RiskScorer,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.CreditAnalyzer {
	return usecase.NewCreditAnalyzer(cache, signals, txs, offers, scorer, m, logger, usecase.AnalyzerConfig{
		DecisionTTL:      cfg.Analysis.DecisionTTL,
		SignalWindowDays: cfg.Analysis.SignalWindowDays,
		TxWindowDays:     cfg.Analysis.TxWindowDays,
		OfferValidity:    cfg.Analysis.OfferValidity,
	})
}

// ProvideEmotionHandler registers the handler for the emotions topic.
func ProvideEmotionHandler(
	store repository.SignalStore,
	archive repository.EventArchive,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.KafkaEmotionHandler {
	return usecase.NewKafkaEmotionHandler(cfg.Kafka.Topics.Emotions, store, archive, m, logger)
}

// ProvideTransactionHandler registers the handler for the transactions topic.
func ProvideTransactionHandler(
	store repository.TransactionStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.KafkaTransactionHandler {
	return usecase.NewKafkaTransactionHandler(cfg.Kafka.Topics.Transactions, store, m)
}

// ProvideOfferActivationHandler registers the handler for accepted offers.
func ProvideOfferActivationHandler(
	offers repository.OfferStore,
	bus repository.EventBus,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.KafkaOfferActivationHandler {
	return usecase.NewKafkaOfferActivationHandler(cfg.Kafka.Topics.OffersAccepted, offers, bus, m, logger)
}

// ProvideSignalStream creates the upstream WebSocket feed, or nil when the
// collector is disabled.
func ProvideSignalStream(cfg *config.Config) repository.SignalStream {
	if !cfg.Stream.Enabled {
		return nil
	}
	return stream.New(cfg.Stream.APIKey, cfg.Stream.URL, cfg.Stream.ReconnectDelay, cfg.Stream.PingInterval)
}

// ProvideSignalCollector creates the stream-to-Kafka collector, or nil when
// the stream is disabled.
func ProvideSignalCollector(
	s repository.SignalStream,
	pub repository.SignalPublisher,
	m repository.Metrics,
) *usecase.SignalCollector {
	if s == nil {
		return nil
	}
	return usecase.NewSignalCollector(s, pub, m)
}

// ProvideCreditHandler creates the Echo handler for the credit API.
func ProvideCreditHandler(
	logger *applogger.Logger,
	analyzer *usecase.CreditAnalyzer,
	offers repository.OfferStore,
	bus repository.EventBus,
	cfg *config.Config,
) *api.CreditEchoHandler {
	return api.NewCreditEchoHandler(logger, analyzer, offers, bus, cfg.Analysis.RequestsPerMinute)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	collector *usecase.SignalCollector,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	emotions *usecase.KafkaEmotionHandler,
	txs *usecase.KafkaTransactionHandler,
	activations *usecase.KafkaOfferActivationHandler,
	creditAPI *api.CreditEchoHandler,
	pool *pgxpool.Pool,
	chClient *pkgch.Client,
) *server.App {
	consumer.WithConsumerHook(pkgkafka.TracingHook{})
	consumer.RegisterHandler(emotions)
	consumer.RegisterHandler(txs)
	consumer.RegisterHandler(activations)

	if cfg.Kafka.Topics.OpsLogs != "" {
		logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.Topics.OpsLogs,
			Publisher:      internalrepo.NewKafkaLogPublisher(producer),
		})
	}

	return server.New(cfg, logger, collector, consumer, producer, creditAPI, pool, chClient)
}
