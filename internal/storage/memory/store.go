package memory

import (
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// insufficientStock дополняет sentinel-ошибку именем товара для вызывающего.
func insufficientStock(productName string) error {
	return fmt.Errorf("%w: %s", domain.ErrInsufficientStock, productName)
}

// Store — общее in-memory хранилище всех сущностей. Один мьютекс на весь
// store делает создание и отмену заказа (шапка + позиции + остатки)
// атомарными; репозитории пакета являются представлениями поверх него.
type Store struct {
	mu        sync.RWMutex
	products  map[string]domain.Product
	customers map[string]domain.Customer
	orders    map[string]domain.Order
	items     map[string]domain.OrderItem
	timeline  map[string][]domain.TimelineEvent
	outbox    map[string]*outboxRecord
}

// NewStore создаёт пустое хранилище для локальной разработки и тестов.
func NewStore() *Store {
	return &Store{
		products:  make(map[string]domain.Product),
		customers: make(map[string]domain.Customer),
		orders:    make(map[string]domain.Order),
		items:     make(map[string]domain.OrderItem),
		timeline:  make(map[string][]domain.TimelineEvent),
		outbox:    make(map[string]*outboxRecord),
	}
}
