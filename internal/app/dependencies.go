package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/storage/memory"
	"github.com/vladislavdragonenkov/commerce/internal/storage/postgres"
	"github.com/vladislavdragonenkov/commerce/internal/storage/sqlite"
)

// Dependencies содержит репозитории выбранного бэкенда и хук завершения.
type Dependencies struct {
	Products  domain.ProductRepository
	Customers domain.CustomerRepository
	Orders    domain.OrderRepository
	Items     domain.OrderItemRepository
	Timeline  domain.TimelineRepository
	Outbox    domain.OutboxRepository
	Logger    *log.Entry

	// PingStorage проверяет доступность хранилища; для memory всегда nil error.
	PingStorage func(ctx context.Context) error

	closeFn func() error
}

// Close освобождает ресурсы бэкенда (соединения с БД).
func (d *Dependencies) Close() error {
	if d.closeFn == nil {
		return nil
	}
	return d.closeFn()
}

// NewDependencies собирает репозитории для бэкенда из конфигурации.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		store := memory.NewStore()
		logger.Info("using in-memory storage")
		return &Dependencies{
			Products:    memory.NewProductRepository(store),
			Customers:   memory.NewCustomerRepository(store),
			Orders:      memory.NewOrderRepository(store),
			Items:       memory.NewOrderItemRepository(store),
			Timeline:    memory.NewTimelineRepository(store),
			Outbox:      memory.NewOutboxRepository(store),
			Logger:      logger,
			PingStorage: func(context.Context) error { return nil },
		}, nil

	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		logger.Info("using postgres storage")
		return &Dependencies{
			Products:    postgres.NewProductRepository(store),
			Customers:   postgres.NewCustomerRepository(store),
			Orders:      postgres.NewOrderRepository(store),
			Items:       postgres.NewOrderItemRepository(store),
			Timeline:    postgres.NewTimelineRepository(store),
			Outbox:      postgres.NewOutboxRepository(store),
			Logger:      logger,
			PingStorage: store.Ping,
			closeFn:     store.Close,
		}, nil

	case StorageDriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.WithField("path", cfg.SQLitePath).Info("using sqlite storage")
		return &Dependencies{
			Products:    sqlite.NewProductRepository(store),
			Customers:   sqlite.NewCustomerRepository(store),
			Orders:      sqlite.NewOrderRepository(store),
			Items:       sqlite.NewOrderItemRepository(store),
			Timeline:    sqlite.NewTimelineRepository(store),
			Outbox:      sqlite.NewOutboxRepository(store),
			Logger:      logger,
			PingStorage: store.Ping,
			closeFn:     store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
