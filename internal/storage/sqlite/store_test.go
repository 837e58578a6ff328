package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

func openStoreForTest(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "commerce.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func seedProduct(t *testing.T, store *Store, name string, priceMinor int64, stock int32) domain.Product {
	t.Helper()

	product, err := NewProductRepository(store).Create(domain.Product{
		Name:       name,
		PriceMinor: priceMinor,
		Stock:      stock,
		Category:   "test",
	})
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return product
}

func seedCustomer(t *testing.T, store *Store, name, email string) domain.Customer {
	t.Helper()

	customer, err := NewCustomerRepository(store).Create(domain.Customer{
		Name:  name,
		Email: email,
	})
	if err != nil {
		t.Fatalf("create customer %s: %v", email, err)
	}
	return customer
}

func TestStore_OpenAndPing(t *testing.T) {
	store := openStoreForTest(t)

	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestProductRepository_SQLiteAdjustStock(t *testing.T) {
	store := openStoreForTest(t)
	repo := NewProductRepository(store)

	product := seedProduct(t, store, "Lamp", 1200, 3)

	updated, err := repo.AdjustStock(product.ID, -2)
	if err != nil {
		t.Fatalf("adjust stock: %v", err)
	}
	if updated.Stock != 1 {
		t.Fatalf("expected stock 1, got %d", updated.Stock)
	}

	if _, err := repo.AdjustStock(product.ID, -2); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	after, err := repo.Get(product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 1 {
		t.Fatalf("failed adjust must not change stock, got %d", after.Stock)
	}

	if _, err := repo.AdjustStock("missing", -1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCustomerRepository_SQLiteEmailUniqueness(t *testing.T) {
	store := openStoreForTest(t)
	repo := NewCustomerRepository(store)

	seedCustomer(t, store, "Anna", "anna@example.com")
	other := seedCustomer(t, store, "Boris", "boris@example.com")

	if _, err := repo.Create(domain.Customer{Name: "Clone", Email: "anna@example.com"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken on duplicate create, got %v", err)
	}

	other.Email = "anna@example.com"
	if err := repo.Update(other); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken on duplicate update, got %v", err)
	}
}

func TestOrderRepository_SQLiteCreateAndCancel(t *testing.T) {
	store := openStoreForTest(t)
	orders := NewOrderRepository(store)
	products := NewProductRepository(store)
	items := NewOrderItemRepository(store)

	customer := seedCustomer(t, store, "Ivan", "ivan@example.com")
	product := seedProduct(t, store, "Keyboard", 4500, 10)

	created, err := orders.Create(domain.Order{
		CustomerID: customer.ID,
		Status:     domain.OrderStatusPending,
		TotalMinor: 9000,
		Items: []domain.OrderItem{
			{ProductID: product.ID, Qty: 2, UnitPriceMinor: 4500, SubtotalMinor: 9000},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	after, err := products.Get(product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 8 {
		t.Fatalf("expected stock 8 after create, got %d", after.Stock)
	}

	stored, err := items.ListByOrder(created.ID)
	if err != nil {
		t.Fatalf("list order items: %v", err)
	}
	if len(stored) != 1 || stored[0].Qty != 2 {
		t.Fatalf("unexpected stored items: %+v", stored)
	}

	if err := orders.Cancel(created); err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	restored, err := products.Get(product.ID)
	if err != nil {
		t.Fatalf("get product after cancel: %v", err)
	}
	if restored.Stock != 10 {
		t.Fatalf("expected stock restored to 10, got %d", restored.Stock)
	}

	got, err := orders.Get(created.ID)
	if err != nil {
		t.Fatalf("get cancelled order: %v", err)
	}
	if got.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", got.Status)
	}
}

func TestOrderRepository_SQLiteInsufficientStockRollsBack(t *testing.T) {
	store := openStoreForTest(t)
	orders := NewOrderRepository(store)
	products := NewProductRepository(store)

	customer := seedCustomer(t, store, "Olga", "olga@example.com")
	plenty := seedProduct(t, store, "Mouse", 2000, 10)
	scarce := seedProduct(t, store, "Monitor", 30000, 1)

	_, err := orders.Create(domain.Order{
		CustomerID: customer.ID,
		Status:     domain.OrderStatusPending,
		TotalMinor: 64000,
		Items: []domain.OrderItem{
			{ProductID: plenty.ID, Qty: 2, UnitPriceMinor: 2000, SubtotalMinor: 4000},
			{ProductID: scarce.ID, Qty: 2, UnitPriceMinor: 30000, SubtotalMinor: 60000},
		},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	listed, err := orders.List(0)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("failed create must not leave orders, got %d", len(listed))
	}

	p, err := products.Get(plenty.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if p.Stock != 10 {
		t.Fatalf("failed create must not touch stock, got %d", p.Stock)
	}
}

func TestOrderRepository_SQLiteSaveVersionConflict(t *testing.T) {
	store := openStoreForTest(t)
	orders := NewOrderRepository(store)

	customer := seedCustomer(t, store, "Dina", "dina@example.com")
	product := seedProduct(t, store, "Webcam", 5500, 5)

	created, err := orders.Create(domain.Order{
		CustomerID: customer.ID,
		Status:     domain.OrderStatusPending,
		TotalMinor: 5500,
		Items: []domain.OrderItem{
			{ProductID: product.ID, Qty: 1, UnitPriceMinor: 5500, SubtotalMinor: 5500},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	created.Status = domain.OrderStatusProcessing
	if err := orders.Save(created); err != nil {
		t.Fatalf("save order: %v", err)
	}

	stale := created
	if err := orders.Save(stale); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected ErrOrderVersionConflict on stale save, got %v", err)
	}
	if err := orders.Save(domain.Order{ID: "missing", Status: domain.OrderStatusPending}); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOutboxRepository_SQLiteLifecycle(t *testing.T) {
	store := openStoreForTest(t)
	repo := NewOutboxRepository(store)

	msg, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "order.created",
		Payload:       []byte(`{"order_id":"order-1"}`),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != msg.ID {
		t.Fatalf("unexpected pending messages: %+v", pending)
	}

	if err := repo.MarkFailed(msg.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Fatalf("expected empty backlog, got %d", stats.PendingCount)
	}
}
