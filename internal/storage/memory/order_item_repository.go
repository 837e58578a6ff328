package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// orderItemRepository — in-memory реализация OrderItemRepository поверх общего Store.
type orderItemRepository struct {
	store *Store
}

// NewOrderItemRepository возвращает in-memory репозиторий позиций заказа.
func NewOrderItemRepository(store *Store) domain.OrderItemRepository {
	return &orderItemRepository{store: store}
}

// Create сохраняет позицию, назначая идентификатор и отметку времени.
func (r *orderItemRepository) Create(item domain.OrderItem) (domain.OrderItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = time.Now().UTC()
	r.store.items[item.ID] = item
	return item, nil
}

// Get возвращает позицию или ErrOrderItemNotFound.
func (r *orderItemRepository) Get(id string) (domain.OrderItem, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	item, ok := r.store.items[id]
	if !ok {
		return domain.OrderItem{}, domain.ErrOrderItemNotFound
	}
	return item, nil
}

// ListByOrder возвращает позиции заказа в порядке добавления.
func (r *orderItemRepository) ListByOrder(orderID string) ([]domain.OrderItem, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	items := make([]domain.OrderItem, 0)
	for _, item := range r.store.items {
		if item.OrderID == orderID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// Update перезаписывает позицию или возвращает ErrOrderItemNotFound.
func (r *orderItemRepository) Update(item domain.OrderItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.items[item.ID]
	if !ok {
		return domain.ErrOrderItemNotFound
	}

	item.OrderID = current.OrderID
	item.CreatedAt = current.CreatedAt
	r.store.items[item.ID] = item
	return nil
}

// Delete удаляет позицию или возвращает ErrOrderItemNotFound.
func (r *orderItemRepository) Delete(id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.items[id]; !ok {
		return domain.ErrOrderItemNotFound
	}
	delete(r.store.items, id)
	return nil
}

// DeleteByOrder удаляет все позиции заказа. Отсутствие позиций не ошибка.
func (r *orderItemRepository) DeleteByOrder(orderID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for id, item := range r.store.items {
		if item.OrderID == orderID {
			delete(r.store.items, id)
		}
	}
	return nil
}

var _ domain.OrderItemRepository = (*orderItemRepository)(nil)
