// Package app собирает зависимости и запускает сервис целиком:
// хранилище, сервисы, outbox worker и HTTP с метриками и health checks.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/commerce/internal/health"
	"github.com/vladislavdragonenkov/commerce/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/commerce/internal/service/catalog"
	"github.com/vladislavdragonenkov/commerce/internal/service/directory"
	"github.com/vladislavdragonenkov/commerce/internal/service/orders"
	"github.com/vladislavdragonenkov/commerce/internal/service/outbox"
	"github.com/vladislavdragonenkov/commerce/internal/version"
)

// App агрегирует собранные сервисы и фоновые компоненты.
type App struct {
	Catalog   catalog.Service
	Directory directory.Service
	Orders    orders.Service

	cfg           Config
	deps          *Dependencies
	kafkaProducer *kafka.Producer
	worker        *outbox.Worker
	logger        *log.Entry
}

// New собирает приложение по конфигурации. Kafka опционален: без брокеров
// события копятся в outbox, а прямая публикация пропускается.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	kafkaProducer := initKafkaProducer(cfg.KafkaBrokers, logger)

	var worker *outbox.Worker
	if kafkaProducer != nil {
		worker = outbox.NewWorker(
			deps.Outbox,
			kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents),
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
	} else {
		logger.Info("kafka is not configured, outbox worker is disabled")
	}

	return &App{
		Catalog:       createCatalogService(deps, kafkaProducer, logger.WithField("component", "catalog")),
		Directory:     directory.NewService(deps.Customers, logger.WithField("component", "directory")),
		Orders:        createOrderService(deps, kafkaProducer),
		cfg:           cfg,
		deps:          deps,
		kafkaProducer: kafkaProducer,
		worker:        worker,
		logger:        logger,
	}, nil
}

// Run запускает фоновые компоненты и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", healthcheck.NewSimpleChecker("storage", func() error {
		checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return a.deps.PingStorage(checkCtx)
	}))

	metricsSrv := a.startMetricsServer(ctx, healthHandler)

	workerDone := make(chan struct{})
	if a.worker != nil {
		go func() {
			defer close(workerDone)
			a.worker.Run(ctx)
		}()
	} else {
		close(workerDone)
	}

	a.logger.WithField("storage", a.cfg.StorageDriver).Info("service started")

	<-ctx.Done()
	a.logger.Info("получен сигнал остановки, завершаем работу")

	select {
	case <-workerDone:
	case <-time.After(5 * time.Second):
		a.logger.Warn("outbox worker did not stop in time")
	}

	shutdownHTTP(metricsSrv, a.logger)
	closeKafka(a.kafkaProducer, a.logger)

	if err := a.deps.Close(); err != nil {
		a.logger.WithError(err).Warn("failed to close storage")
	}

	return ctx.Err()
}

// startMetricsServer запускает HTTP-обработчики /metrics и health checks.
func (a *App) startMetricsServer(ctx context.Context, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux}
	go func() {
		a.logger.Infof("метрики доступны по адресу %s/metrics", a.cfg.MetricsAddr)
		a.logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", a.cfg.MetricsAddr, a.cfg.MetricsAddr, a.cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, a.logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}

// Run собирает приложение и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	a, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
