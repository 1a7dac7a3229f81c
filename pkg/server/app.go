package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"CrediPulse/internal/usecase"
	pkgch "CrediPulse/pkg/clickhouse"
	"CrediPulse/pkg/config"
	xhttp "CrediPulse/pkg/http"
	pkgkafka "CrediPulse/pkg/kafka"
	applogger "CrediPulse/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	collector   *usecase.SignalCollector
	consumer    *pkgkafka.Consumer
	producer    *pkgkafka.Producer
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
	pool        *pgxpool.Pool
	chClient    *pkgch.Client
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	collector *usecase.SignalCollector,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	httpHandler xhttp.Handler,
	pool *pgxpool.Pool,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:         cfg,
		logger:      logger,
		collector:   collector,
		consumer:    consumer,
		producer:    producer,
		httpHandler: httpHandler,
		pool:        pool,
		chClient:    chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(true),
	)

	// Consumer handlers are registered in DI; start the worker pool here.
	go func() {
		if err := a.consumer.Start(); err != nil {
			a.logger.Error("kafka consumer error", applogger.Error(err))
		}
	}()
	a.logger.Info("kafka consumer started",
		applogger.String("group", a.cfg.Kafka.Consumer.GroupID),
		applogger.Strings("brokers", a.cfg.Kafka.Brokers))

	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				a.logger.Error("signal collector error", applogger.Error(err))
			}
		}()
		a.logger.Info("signal collector started", applogger.String("url", a.cfg.Stream.URL))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.logger.Warn("collector stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.consumer.Stop(shutdownCtx); err != nil {
		a.logger.Warn("kafka consumer stop error", applogger.Error(err))
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Warn("kafka producer close error", applogger.Error(err))
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	a.logger.RemoveCollector()
	a.logger.Info("shutdown complete")
	return nil
}
