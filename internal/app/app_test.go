package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

func TestNew_MemoryWiring(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricsAddr = "127.0.0.1:0"

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	if a.Catalog == nil || a.Directory == nil || a.Orders == nil {
		t.Fatal("expected all services to be wired")
	}
	if a.worker != nil {
		t.Fatal("expected no outbox worker without kafka")
	}

	// Сервисы разделяют одно хранилище
	customer, err := a.Directory.Create(domain.Customer{Name: "Alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	product, err := a.Catalog.Create(domain.Product{Name: "Widget", PriceMinor: 500, Stock: 3})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	order, err := a.Orders.Create(customer.ID, []domain.OrderItem{{ProductID: product.ID, Qty: 2}})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.TotalMinor != 1000 {
		t.Fatalf("expected total 1000, got %d", order.TotalMinor)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres // без DSN

	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricsAddr = "127.0.0.1:0"

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop on context cancel")
	}
}
