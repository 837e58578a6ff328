package memory_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/storage/memory"
)

func seedProduct(t *testing.T, store *memory.Store, name string, priceMinor int64, stock int32) domain.Product {
	t.Helper()

	products := memory.NewProductRepository(store)
	product, err := products.Create(domain.Product{
		Name:       name,
		PriceMinor: priceMinor,
		Stock:      stock,
		Category:   "test",
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func newOrderFor(product domain.Product, qty int32) domain.Order {
	return domain.Order{
		CustomerID: "customer-1",
		Status:     domain.OrderStatusPending,
		TotalMinor: int64(qty) * product.PriceMinor,
		Items: []domain.OrderItem{
			{ProductID: product.ID, Qty: qty, UnitPriceMinor: product.PriceMinor, SubtotalMinor: int64(qty) * product.PriceMinor},
		},
	}
}

func TestOrderRepository_CreateDeductsStock(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, "Widget", 100, 10)
	repo := memory.NewOrderRepository(store)

	order, err := repo.Create(newOrderFor(product, 3))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if order.ID == "" {
		t.Fatal("expected assigned order id")
	}
	if len(order.Items) != 1 || order.Items[0].OrderID != order.ID {
		t.Fatalf("expected items linked to order, got %+v", order.Items)
	}

	stored, err := memory.NewProductRepository(store).Get(product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if stored.Stock != 7 {
		t.Fatalf("expected stock 7, got %d", stored.Stock)
	}
}

func TestOrderRepository_CreateInsufficientStock(t *testing.T) {
	store := memory.NewStore()
	cheap := seedProduct(t, store, "Cheap", 100, 10)
	scarce := seedProduct(t, store, "Scarce", 200, 5)
	repo := memory.NewOrderRepository(store)

	order := domain.Order{
		CustomerID: "customer-1",
		Status:     domain.OrderStatusPending,
		TotalMinor: 100*2 + 200*1000,
		Items: []domain.OrderItem{
			{ProductID: cheap.ID, Qty: 2, UnitPriceMinor: 100, SubtotalMinor: 200},
			{ProductID: scarce.ID, Qty: 1000, UnitPriceMinor: 200, SubtotalMinor: 200000},
		},
	}

	if _, err := repo.Create(order); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// Первая позиция не должна быть списана: создание атомарно целиком.
	products := memory.NewProductRepository(store)
	stored, _ := products.Get(cheap.ID)
	if stored.Stock != 10 {
		t.Fatalf("expected stock untouched at 10, got %d", stored.Stock)
	}

	orders, err := repo.List(0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected no orders persisted, got %d", len(orders))
	}
}

func TestOrderRepository_CancelRestoresStock(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, "Widget", 100, 10)
	repo := memory.NewOrderRepository(store)

	order, err := repo.Create(newOrderFor(product, 4))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	header, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if err := repo.Cancel(header); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	stored, _ := memory.NewProductRepository(store).Get(product.ID)
	if stored.Stock != 10 {
		t.Fatalf("expected stock restored to 10, got %d", stored.Stock)
	}

	cancelled, _ := repo.Get(order.ID)
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}
	if cancelled.Version != header.Version+1 {
		t.Fatalf("expected version bump, got %d", cancelled.Version)
	}
}

func TestOrderRepository_SaveVersionConflict(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, "Widget", 100, 10)
	repo := memory.NewOrderRepository(store)

	order, err := repo.Create(newOrderFor(product, 1))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stale := order
	stale.Version = 42
	if err := repo.Save(stale); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	fresh, _ := repo.Get(order.ID)
	fresh.Status = domain.OrderStatusProcessing
	if err := repo.Save(fresh); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	updated, _ := repo.Get(order.ID)
	if updated.Status != domain.OrderStatusProcessing {
		t.Fatalf("expected processing, got %s", updated.Status)
	}
	if updated.Version != fresh.Version+1 {
		t.Fatalf("expected version increment, got %d", updated.Version)
	}
}

func TestOrderRepository_DeleteRemovesItems(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, "Widget", 100, 10)
	repo := memory.NewOrderRepository(store)
	items := memory.NewOrderItemRepository(store)

	order, err := repo.Create(newOrderFor(product, 2))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.Delete(order.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := repo.Delete(order.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	left, err := items.ListByOrder(order.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("expected items removed, got %d", len(left))
	}

	// Удаление не возвращает остатки: это не отмена.
	stored, _ := memory.NewProductRepository(store).Get(product.ID)
	if stored.Stock != 8 {
		t.Fatalf("expected stock 8 after delete, got %d", stored.Stock)
	}
}

func TestOrderRepository_ListByStatus(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, "Widget", 100, 100)
	repo := memory.NewOrderRepository(store)

	first, err := repo.Create(newOrderFor(product, 1))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := repo.Create(newOrderFor(product, 2)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	header, _ := repo.Get(first.ID)
	header.Status = domain.OrderStatusProcessing
	if err := repo.Save(header); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	pending, err := repo.ListByStatus(domain.OrderStatusPending, 0)
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending order, got %d", len(pending))
	}
}
