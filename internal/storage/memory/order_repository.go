package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// orderRepository — in-memory реализация OrderRepository поверх общего Store.
// Создание и отмена выполняются под общим write lock, так что списание и
// возврат остатков атомарны вместе с записью заказа.
type orderRepository struct {
	store *Store
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{store: store}
}

// Create сохраняет шапку, позиции и списывает остатки одним юнитом работы.
// Нехватка остатка по любой позиции откатывает всё целиком.
func (r *orderRepository) Create(order domain.Order) (domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if _, exists := r.store.orders[order.ID]; exists {
		return domain.Order{}, domain.ErrOrderVersionConflict
	}

	// Сначала проверяем достаточность остатков по всем позициям,
	// чтобы частичное списание было невозможно.
	for _, item := range order.Items {
		product, ok := r.store.products[item.ProductID]
		if !ok {
			return domain.Order{}, domain.ErrProductNotFound
		}
		if product.Stock < item.Qty {
			return domain.Order{}, insufficientStock(product.Name)
		}
	}

	now := time.Now().UTC()
	for _, item := range order.Items {
		if _, err := r.store.adjustStockLocked(item.ProductID, -item.Qty); err != nil {
			// Недостижимо после проверки выше; общий замок исключает гонку.
			return domain.Order{}, err
		}
	}

	order.Version = 0
	order.CreatedAt = now
	order.UpdatedAt = now

	items := make([]domain.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.OrderID = order.ID
		item.CreatedAt = now
		r.store.items[item.ID] = item
		items = append(items, item)
	}
	order.Items = items

	header := order
	header.Items = nil
	r.store.orders[order.ID] = header

	return order, nil
}

// Get возвращает шапку заказа или ErrOrderNotFound.
func (r *orderRepository) Get(id string) (domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	order, ok := r.store.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// List возвращает заказы, новые первыми, с опциональным лимитом.
func (r *orderRepository) List(limit int) ([]domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.collectLocked(func(domain.Order) bool { return true }, limit), nil
}

// ListByCustomer возвращает заказы клиента, новые первыми.
func (r *orderRepository) ListByCustomer(customerID string, limit int) ([]domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.collectLocked(func(o domain.Order) bool { return o.CustomerID == customerID }, limit), nil
}

// ListByStatus возвращает заказы в заданном статусе, новые первыми.
func (r *orderRepository) ListByStatus(status domain.OrderStatus, limit int) ([]domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.collectLocked(func(o domain.Order) bool { return o.Status == status }, limit), nil
}

// Save перезаписывает шапку заказа, проверяя версию (optimistic locking).
func (r *orderRepository) Save(order domain.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}

	order.Version++
	order.UpdatedAt = time.Now().UTC()
	order.Items = nil
	r.store.orders[order.ID] = order
	return nil
}

// Cancel возвращает остатки по позициям заказа и переводит его в cancelled
// одним юнитом работы; версия проверяется как в Save.
func (r *orderRepository) Cancel(order domain.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}

	// Возвращаем ровно те количества, что были списаны при создании.
	for _, item := range r.itemsLocked(order.ID) {
		if product, ok := r.store.products[item.ProductID]; ok {
			product.Stock += item.Qty
			product.UpdatedAt = time.Now().UTC()
			r.store.products[item.ProductID] = product
		}
	}

	current.Status = domain.OrderStatusCancelled
	current.Version++
	current.UpdatedAt = time.Now().UTC()
	r.store.orders[current.ID] = current
	return nil
}

// Delete удаляет позиции, затем шапку. Остатки не трогает.
func (r *orderRepository) Delete(id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}

	for itemID, item := range r.store.items {
		if item.OrderID == id {
			delete(r.store.items, itemID)
		}
	}
	delete(r.store.orders, id)
	return nil
}

// Exists сообщает, существует ли заказ.
func (r *orderRepository) Exists(id string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	_, ok := r.store.orders[id]
	return ok, nil
}

func (r *orderRepository) collectLocked(match func(domain.Order) bool, limit int) []domain.Order {
	result := make([]domain.Order, 0)
	for _, order := range r.store.orders {
		if match(order) {
			result = append(result, order)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func (r *orderRepository) itemsLocked(orderID string) []domain.OrderItem {
	items := make([]domain.OrderItem, 0)
	for _, item := range r.store.items {
		if item.OrderID == orderID {
			items = append(items, item)
		}
	}
	return items
}

var _ domain.OrderRepository = (*orderRepository)(nil)
