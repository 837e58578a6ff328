package app

import (
	"context"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

func TestNewDependencies_Memory(t *testing.T) {
	cfg := DefaultConfig()

	deps, err := NewDependencies(context.Background(), cfg, log.WithField("test", t.Name()))
	if err != nil {
		t.Fatalf("new dependencies: %v", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			t.Errorf("close dependencies: %v", err)
		}
	}()

	if deps.Products == nil || deps.Customers == nil || deps.Orders == nil ||
		deps.Items == nil || deps.Timeline == nil || deps.Outbox == nil {
		t.Fatal("expected all repositories to be wired")
	}

	if err := deps.PingStorage(context.Background()); err != nil {
		t.Fatalf("memory ping should not fail: %v", err)
	}

	// Репозитории работают поверх одного store
	product, err := deps.Products.Create(domain.Product{Name: "Widget", PriceMinor: 100, Stock: 1})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	exists, err := deps.Products.Exists(product.ID)
	if err != nil || !exists {
		t.Fatalf("expected product to exist, got %v %v", exists, err)
	}
}

func TestNewDependencies_SQLite(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "commerce.db")

	deps, err := NewDependencies(context.Background(), cfg, log.WithField("test", t.Name()))
	if err != nil {
		t.Fatalf("new dependencies: %v", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			t.Errorf("close dependencies: %v", err)
		}
	}()

	if err := deps.PingStorage(context.Background()); err != nil {
		t.Fatalf("sqlite ping: %v", err)
	}

	product, err := deps.Products.Create(domain.Product{Name: "Widget", PriceMinor: 100, Stock: 5})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	got, err := deps.Products.Get(product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Name != "Widget" {
		t.Fatalf("unexpected product %+v", got)
	}
}

func TestNewDependencies_UnknownDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "cassandra"

	if _, err := NewDependencies(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
