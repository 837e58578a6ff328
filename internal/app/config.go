package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StorageDriver перечисляет поддерживаемые бэкенды хранения.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
	StorageDriverSQLite   StorageDriver = "sqlite"
)

// Config описывает настройки запуска приложения.
type Config struct {
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool
	SQLitePath          string

	KafkaBrokers string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию: in-memory хранилище
// и HTTP-метрики на :9090.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		OutboxPollInterval:  1 * time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    50 * time.Millisecond,
	}
}

// ConfigFromEnv строит конфигурацию из переменных окружения поверх значений
// по умолчанию.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("COMMERCE_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("COMMERCE_STORAGE"); v != "" {
		driver, err := parseStorageDriver(v)
		if err != nil {
			return Config{}, err
		}
		cfg.StorageDriver = driver
	}
	cfg.PostgresDSN = os.Getenv("COMMERCE_POSTGRES_DSN")
	cfg.SQLitePath = os.Getenv("COMMERCE_SQLITE_PATH")
	cfg.KafkaBrokers = os.Getenv("KAFKA_BROKERS")

	if v := os.Getenv("COMMERCE_POSTGRES_AUTO_MIGRATE"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse COMMERCE_POSTGRES_AUTO_MIGRATE: %w", err)
		}
		cfg.PostgresAutoMigrate = enabled
	}

	if v := os.Getenv("COMMERCE_OUTBOX_POLL_INTERVAL"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse COMMERCE_OUTBOX_POLL_INTERVAL: %w", err)
		}
		cfg.OutboxPollInterval = interval
	}
	if v := os.Getenv("COMMERCE_OUTBOX_BATCH_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse COMMERCE_OUTBOX_BATCH_SIZE: %w", err)
		}
		cfg.OutboxBatchSize = size
	}
	if v := os.Getenv("COMMERCE_OUTBOX_MAX_ATTEMPTS"); v != "" {
		attempts, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse COMMERCE_OUTBOX_MAX_ATTEMPTS: %w", err)
		}
		cfg.OutboxMaxAttempts = attempts
	}
	if v := os.Getenv("COMMERCE_OUTBOX_RETRY_DELAY"); v != "" {
		delay, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse COMMERCE_OUTBOX_RETRY_DELAY: %w", err)
		}
		cfg.OutboxRetryDelay = delay
	}

	return cfg, nil
}

// Validate проверяет согласованность конфигурации перед запуском.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("storage driver %q requires COMMERCE_POSTGRES_DSN", c.StorageDriver)
		}
	case StorageDriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("storage driver %q requires COMMERCE_SQLITE_PATH", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	return nil
}

func parseStorageDriver(raw string) (StorageDriver, error) {
	switch StorageDriver(strings.ToLower(strings.TrimSpace(raw))) {
	case StorageDriverMemory:
		return StorageDriverMemory, nil
	case StorageDriverPostgres:
		return StorageDriverPostgres, nil
	case StorageDriverSQLite:
		return StorageDriverSQLite, nil
	default:
		return "", fmt.Errorf("unknown storage driver %q", raw)
	}
}
