package orders

import (
	"errors"
	"strings"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/storage/memory"
)

type fixture struct {
	svc       Service
	store     *memory.Store
	products  domain.ProductRepository
	customers domain.CustomerRepository
	outbox    domain.OutboxRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	products := memory.NewProductRepository(store)
	customers := memory.NewCustomerRepository(store)
	outbox := memory.NewOutboxRepository(store)

	svc := NewServiceWithoutMetrics(
		memory.NewOrderRepository(store),
		memory.NewOrderItemRepository(store),
		products,
		customers,
		outbox,
		memory.NewTimelineRepository(store),
		log.New().WithField("test", t.Name()),
	)

	return &fixture{
		svc:       svc,
		store:     store,
		products:  products,
		customers: customers,
		outbox:    outbox,
	}
}

func (f *fixture) seedProduct(t *testing.T, name string, priceMinor int64, stock int32) domain.Product {
	t.Helper()

	product, err := f.products.Create(domain.Product{
		Name:       name,
		PriceMinor: priceMinor,
		Stock:      stock,
		Category:   "test",
	})
	if err != nil {
		t.Fatalf("seed product %s: %v", name, err)
	}
	return product
}

func (f *fixture) seedCustomer(t *testing.T) domain.Customer {
	t.Helper()

	customer, err := f.customers.Create(domain.Customer{
		Name:  "Alice",
		Email: "alice@example.com",
	})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return customer
}

func (f *fixture) stock(t *testing.T, productID string) int32 {
	t.Helper()

	product, err := f.products.Get(productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	return product.Stock
}

func (f *fixture) collectOutbox(t *testing.T) []domain.OutboxMessage {
	t.Helper()

	type allPending interface {
		AllPending() []domain.OutboxMessage
	}

	repo, ok := f.outbox.(allPending)
	if !ok {
		t.Fatalf("outbox repository does not support AllPending")
	}
	return repo.AllPending()
}

func TestCreate_SnapshotsPricesAndDeductsStock(t *testing.T) {
	f := newFixture(t)
	customer := f.seedCustomer(t)
	widget := f.seedProduct(t, "Widget", 1500, 10)
	gadget := f.seedProduct(t, "Gadget", 700, 4)

	order, err := f.svc.Create(customer.ID, []domain.OrderItem{
		{ProductID: widget.ID, Qty: 2},
		{ProductID: gadget.ID, Qty: 3},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected status pending, got %s", order.Status)
	}
	if order.TotalMinor != 2*1500+3*700 {
		t.Fatalf("expected total %d, got %d", 2*1500+3*700, order.TotalMinor)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(order.Items))
	}
	for _, item := range order.Items {
		if item.ID == "" || item.OrderID != order.ID {
			t.Fatalf("expected item bound to order, got %+v", item)
		}
		if item.SubtotalMinor != int64(item.Qty)*item.UnitPriceMinor {
			t.Fatalf("subtotal mismatch: %+v", item)
		}
	}

	if got := f.stock(t, widget.ID); got != 8 {
		t.Fatalf("expected widget stock 8, got %d", got)
	}
	if got := f.stock(t, gadget.ID); got != 1 {
		t.Fatalf("expected gadget stock 1, got %d", got)
	}

	// Событие создания ушло в outbox
	events := f.collectOutbox(t)
	if len(events) != 1 || events[0].EventType != "order.created" {
		t.Fatalf("expected single order.created event, got %+v", events)
	}
}

func TestCreate_PriceChangeDoesNotAffectStoredOrder(t *testing.T) {
	f := newFixture(t)
	customer := f.seedCustomer(t)
	widget := f.seedProduct(t, "Widget", 1500, 10)

	order, err := f.svc.Create(customer.ID, []domain.OrderItem{{ProductID: widget.ID, Qty: 1}})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	// Повышаем цену после оформления заказа
	widget.PriceMinor = 9999
	if err := f.products.Update(widget); err != nil {
		t.Fatalf("update product: %v", err)
	}

	reloaded, err := f.svc.Get(order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if reloaded.TotalMinor != 1500 {
		t.Fatalf("expected total 1500, got %d", reloaded.TotalMinor)
	}
	if reloaded.Items[0].UnitPriceMinor != 1500 {
		t.Fatalf("expected snapshot price 1500, got %d", reloaded.Items[0].UnitPriceMinor)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	customer := f.seedCustomer(t)
	widget := f.seedProduct(t, "Widget", 1500, 10)

	if _, err := f.svc.Create("  ", []domain.OrderItem{{ProductID: widget.ID, Qty: 1}}); !errors.Is(err, domain.ErrCustomerRequired) {
		t.Fatalf("expected ErrCustomerRequired, got %v", err)
	}
	if _, err := f.svc.Create(customer.ID, nil); !errors.Is(err, domain.ErrItemsRequired) {
		t.Fatalf("expected ErrItemsRequired, got %v", err)
	}
	if _, err := f.svc.Create(customer.ID, []domain.OrderItem{{ProductID: widget.ID, Qty: 0}}); !errors.Is(err, domain.ErrItemQtyInvalid) {
		t.Fatalf("expected ErrItemQtyInvalid, got %v", err)
	}
	if _, err := f.svc.Create("ghost", []domain.OrderItem{{ProductID: widget.ID, Qty: 1}}); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
	if _, err := f.svc.Create(customer.ID, []domain.OrderItem{{ProductID: "missing", Qty: 1}}); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	// Ни одна из попыток не должна была тронуть склад
	if got := f.stock(t, widget.ID); got != 10 {
		t.Fatalf("expected stock unchanged at 10, got %d", got)
	}
}

func TestCreate_InsufficientStockLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	customer := f.seedCustomer(t)
	widget := f.seedProduct(t, "Widget", 1500, 10)
	scarce := f.seedProduct(t, "Scarce", 700, 1)

	_, err := f.svc.Create(customer.ID, []domain.OrderItem{
		{ProductID: widget.ID, Qty: 2},
		{ProductID: scarce.ID, Qty: 5},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	// Имя товара попадает в текст ошибки
	if !strings.Contains(err.Error(), "Scarce") {
		t.Fatalf("expected product name in error, got %v", err)
	}

	if got := f.stock(t, widget.ID); got != 10 {
		t.Fatalf("expected widget stock unchanged at 10, got %d", got)
	}
	if got := f.stock(t, scarce.ID); got != 1 {
		t.Fatalf("expected scarce stock unchanged at 1, got %d", got)
	}

	orders, err := f.svc.List(0)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected no orders persisted, got %d", len(orders))
	}
	if events := f.collectOutbox(t); len(events) != 0 {
		t.Fatalf("expected no outbox events, got %d", len(events))
	}
}

func TestGetAndList_AttachItems(t *testing.T) {
	f := newFixture(t)
	customer := f.seedCustomer(t)
	widget := f.seedProduct(t, "Widget", 1500, 10)

	created, err := f.svc.Create(customer.ID, []domain.OrderItem{{ProductID: widget.ID, Qty: 2}})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	got, err := f.svc.Get(created.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if len(got.Items) != 1 {
		t.Fatalf("expected items attached on get, got %d", len(got.Items))
	}

	listed, err := f.svc.List(0)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(listed) != 1 || len(listed[0].Items) != 1 {
		t.Fatalf("expected items attached on list, got %+v", listed)
	}

	byCustomer, err := f.svc.ListByCustomer(customer.ID, 0)
	if err != nil {
		t.Fatalf("list by customer: %v", err)
	}
	if len(byCustomer) != 1 || len(byCustomer[0].Items) != 1 {
		t.Fatalf("expected items attached by customer, got %+v", byCustomer)
	}

	pending, err := f.svc.ListByStatus("pending", 0)
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending order, got %d", len(pending))
	}

	if _, err := f.svc.ListByStatus("bogus", 0); !errors.Is(err, domain.ErrStatusUnknown) {
		t.Fatalf("expected ErrStatusUnknown, got %v", err)
	}
}

func TestUpdateStatus_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	customer := f.seedCustomer(t)
	widget := f.seedProduct(t, "Widget", 1500, 10)

	created, err := f.svc.Create(customer.ID, []domain.OrderItem{{ProductID: widget.ID, Qty: 1}})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	for _, status := range []string{"processing", "shipped", "delivered"} {
		updated, err := f.svc.UpdateStatus(created.ID, status)
		if err != nil {
			t.Fatalf("update to %s: %v", status, err)
		}
		if string(updated.Status) != status {
			t.Fatalf("expected status %s, got %s", status, updated.Status)
		}
	}

	// Доставленный заказ закрыт для изменений
	if _, err := f.svc.UpdateStatus(created.ID, "processing"); !errors.Is(err, domain.ErrOrderDelivered) {
		t.Fatalf("expected ErrOrderDelivered, got %v", err)
	}

	// Версия росла на каждом переходе
	final, err := f.svc.Get(created.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if final.Version != 3 {
		t.Fatalf("expected version 3, got %d", final.Version)
	}

	// История: created + три смены статуса
	history, err := f.svc.History(created.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("expected 4 timeline events, got %d", len(history))
	}
	if history[0].Type != "order.created" {
		t.Fatalf("expected first event order.created, got %s", history[0].Type)
	}
}

func TestUpdateStatus_RejectsInvalidTransitions(t *testing.T) {
	f := newFixture(t)
	customer := f.seedCustomer(t)
	widget := f.seedProduct(t, "Widget", 1500, 10)

	created, err := f.svc.Create(customer.ID, []domain.OrderItem{{ProductID: widget.ID, Qty: 1}})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if _, err := f.svc.UpdateStatus(created.ID, "shipped"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for pending->shipped, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(created.ID, "delivered"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for pending->delivered, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(created.ID, "bogus"); !errors.Is(err, domain.ErrStatusUnknown) {
		t.Fatalf("expected ErrStatusUnknown, got %v", err)
	}
	if _, err := f.svc.UpdateStatus("missing", "processing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	// Заказ остался как был
	got, err := f.svc.Get(created.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != domain.OrderStatusPending || got.Version != 0 {
		t.Fatalf("expected untouched pending order, got %+v", got)
	}
}

func TestUpdateStatus_CancelledGoesThroughCancel(t *testing.T) {
	f := newFixture(t)
	customer := f.seedCustomer(t)
	widget := f.seedProduct(t, "Widget", 1500, 10)

	created, err := f.svc.Create(customer.ID, []domain.OrderItem{{ProductID: widget.ID, Qty: 4}})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if got := f.stock(t, widget.ID); got != 6 {
		t.Fatalf("expected stock 6 after create, got %d", got)
	}

	updated, err := f.svc.UpdateStatus(created.ID, "cancelled")
	if err != nil {
		t.Fatalf("update to cancelled: %v", err)
	}
	if updated.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}

	// Остатки вернулись на склад
	if got := f.stock(t, widget.ID); got != 10 {
		t.Fatalf("expected stock restored to 10, got %d", got)
	}
}

func TestCancel_RestoresStockOnce(t *testing.T) {
	f := newFixture(t)
	customer := f.seedCustomer(t)
	widget := f.seedProduct(t, "Widget", 1500, 10)

	created, err := f.svc.Create(customer.ID, []domain.OrderItem{{ProductID: widget.ID, Qty: 3}})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	cancelled, err := f.svc.Cancel(created.ID)
	if err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if got := f.stock(t, widget.ID); got != 10 {
		t.Fatalf("expected stock restored to 10, got %d", got)
	}

	// Повторная отмена не возвращает остатки второй раз
	if _, err := f.svc.Cancel(created.ID); !errors.Is(err, domain.ErrOrderAlreadyCancelled) {
		t.Fatalf("expected ErrOrderAlreadyCancelled, got %v", err)
	}
	if got := f.stock(t, widget.ID); got != 10 {
		t.Fatalf("expected stock still 10, got %d", got)
	}
}

func TestCancel_DeliveredOrderIsRejected(t *testing.T) {
	f := newFixture(t)
	customer := f.seedCustomer(t)
	widget := f.seedProduct(t, "Widget", 1500, 10)

	created, err := f.svc.Create(customer.ID, []domain.OrderItem{{ProductID: widget.ID, Qty: 1}})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	for _, status := range []string{"processing", "shipped", "delivered"} {
		if _, err := f.svc.UpdateStatus(created.ID, status); err != nil {
			t.Fatalf("update to %s: %v", status, err)
		}
	}

	if _, err := f.svc.Cancel(created.ID); !errors.Is(err, domain.ErrOrderDelivered) {
		t.Fatalf("expected ErrOrderDelivered, got %v", err)
	}
	// Склад не трогали
	if got := f.stock(t, widget.ID); got != 9 {
		t.Fatalf("expected stock 9, got %d", got)
	}
}

func TestDelete_DoesNotRestoreStock(t *testing.T) {
	f := newFixture(t)
	customer := f.seedCustomer(t)
	widget := f.seedProduct(t, "Widget", 1500, 10)

	created, err := f.svc.Create(customer.ID, []domain.OrderItem{{ProductID: widget.ID, Qty: 4}})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := f.svc.Delete(created.ID); err != nil {
		t.Fatalf("delete order: %v", err)
	}

	if _, err := f.svc.Get(created.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	// Удаление — очистка, остатки не возвращаются
	if got := f.stock(t, widget.ID); got != 6 {
		t.Fatalf("expected stock 6 after delete, got %d", got)
	}

	if err := f.svc.Delete(created.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound on repeated delete, got %v", err)
	}
}

func TestHistory_UnknownOrder(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.History("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOutboxEventsPerOperation(t *testing.T) {
	f := newFixture(t)
	customer := f.seedCustomer(t)
	widget := f.seedProduct(t, "Widget", 1500, 10)

	created, err := f.svc.Create(customer.ID, []domain.OrderItem{{ProductID: widget.ID, Qty: 1}})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := f.svc.UpdateStatus(created.ID, "processing"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if _, err := f.svc.Cancel(created.ID); err != nil {
		t.Fatalf("cancel order: %v", err)
	}

	events := f.collectOutbox(t)
	if len(events) != 3 {
		t.Fatalf("expected 3 outbox events, got %d", len(events))
	}

	types := map[string]bool{}
	for _, event := range events {
		types[event.EventType] = true
		if event.AggregateType != "order" || event.AggregateID != created.ID {
			t.Fatalf("unexpected aggregate: %+v", event)
		}
	}
	for _, want := range []string{"order.created", "order.status_changed", "order.cancelled"} {
		if !types[want] {
			t.Fatalf("missing %s event in %v", want, types)
		}
	}
}

// Восемь параллельных заказов по 2 штуки при остатке 5: пройти могут
// только два, остаток не уходит в минус.
func TestCreate_ConcurrentOrdersDoNotOversell(t *testing.T) {
	f := newFixture(t)
	customer := f.seedCustomer(t)
	limited := f.seedProduct(t, "Limited", 1000, 5)

	const workers = 8
	results := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(customer.ID, []domain.OrderItem{{ProductID: limited.ID, Qty: 2}})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientStock):
			rejected++
		default:
			t.Fatalf("unexpected create error: %v", err)
		}
	}

	if succeeded != 2 || rejected != workers-2 {
		t.Fatalf("expected 2 successes and %d rejections, got %d/%d", workers-2, succeeded, rejected)
	}
	if got := f.stock(t, limited.ID); got != 1 {
		t.Fatalf("expected remaining stock 1, got %d", got)
	}

	orders, err := f.svc.ListByCustomer(customer.ID, 0)
	if err != nil {
		t.Fatalf("list by customer: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 stored orders, got %d", len(orders))
	}
}
