package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, обработка ещё не началась.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing — заказ взят в обработку.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен клиенту; терминальный статус.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён, остатки возвращены на склад; терминальный статус.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ParseOrderStatus приводит строку к статусу и отклоняет неизвестные значения на границе.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	switch OrderStatus(raw) {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return OrderStatus(raw), nil
	default:
		return "", ErrStatusUnknown
	}
}

// Terminal сообщает, закрыт ли статус для любых дальнейших переходов.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo проверяет переход по графу:
// pending → processing → shipped → delivered, отмена из любого нетерминального статуса.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	switch s {
	case OrderStatusPending:
		return next == OrderStatusProcessing
	case OrderStatusProcessing:
		return next == OrderStatusShipped
	case OrderStatusShipped:
		return next == OrderStatusDelivered
	default:
		return false
	}
}

// OrderItem представляет одну позицию заказа. Цена и сумма фиксируются
// в момент создания заказа и не пересчитываются при изменении цены товара.
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	// Qty — количество единиц товара.
	Qty int32
	// UnitPriceMinor — цена за единицу на момент заказа, в минимальных единицах.
	UnitPriceMinor int64
	// SubtotalMinor — qty * unit_price, в минимальных единицах.
	SubtotalMinor int64
	CreatedAt     time.Time
}

// Order агрегирует шапку заказа и его позиции.
type Order struct {
	ID         string
	CustomerID string
	Status     OrderStatus
	// TotalMinor — сумма всех позиций, в минимальных единицах.
	TotalMinor int64
	Items      []OrderItem
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}

	// Сверяем сумму заказа с суммой позиций: qty * unit_price.
	var calc int64
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += int64(item.Qty) * item.UnitPriceMinor
	}
	if calc != o.TotalMinor {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}
