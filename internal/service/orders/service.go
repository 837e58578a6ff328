// Package orders реализует оркестратор заказов: создание со снимком цен,
// жизненный цикл статусов и события для outbox и timeline.
package orders

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/commerce/internal/metrics"
)

// Service описывает операции оркестратора заказов.
type Service interface {
	Create(customerID string, requested []domain.OrderItem) (domain.Order, error)
	Get(id string) (domain.Order, error)
	List(limit int) ([]domain.Order, error)
	ListByCustomer(customerID string, limit int) ([]domain.Order, error)
	ListByStatus(status string, limit int) ([]domain.Order, error)
	UpdateStatus(orderID, status string) (domain.Order, error)
	Cancel(orderID string) (domain.Order, error)
	Delete(orderID string) error
	History(orderID string) ([]domain.TimelineEvent, error)
}

type service struct {
	orders        domain.OrderRepository
	items         domain.OrderItemRepository
	products      domain.ProductRepository
	customers     domain.CustomerRepository
	outbox        domain.OutboxRepository
	timeline      domain.TimelineRepository
	logger        *log.Entry
	metrics       *metrics.OrderMetrics
	kafkaProducer *kafka.Producer // опциональный Kafka producer для event-driven архитектуры
}

// NewService создаёт рабочий экземпляр оркестратора заказов.
func NewService(
	orders domain.OrderRepository,
	items domain.OrderItemRepository,
	products domain.ProductRepository,
	customers domain.CustomerRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) Service {
	if logger == nil {
		logger = log.New().WithField("component", "orders")
	}
	return &service{
		orders:    orders,
		items:     items,
		products:  products,
		customers: customers,
		outbox:    outbox,
		timeline:  timeline,
		logger:    logger,
		metrics:   metrics.NewOrderMetrics(),
	}
}

// NewServiceWithKafka создаёт оркестратор с Kafka producer для event-driven архитектуры.
func NewServiceWithKafka(
	orders domain.OrderRepository,
	items domain.OrderItemRepository,
	products domain.ProductRepository,
	customers domain.CustomerRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	kafkaProducer *kafka.Producer,
	logger *log.Entry,
) Service {
	if logger == nil {
		logger = log.New().WithField("component", "orders")
	}
	return &service{
		orders:        orders,
		items:         items,
		products:      products,
		customers:     customers,
		outbox:        outbox,
		timeline:      timeline,
		logger:        logger,
		metrics:       metrics.NewOrderMetrics(),
		kafkaProducer: kafkaProducer,
	}
}

// NewServiceWithoutMetrics создаёт оркестратор без метрик (для тестов).
func NewServiceWithoutMetrics(
	orders domain.OrderRepository,
	items domain.OrderItemRepository,
	products domain.ProductRepository,
	customers domain.CustomerRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) Service {
	if logger == nil {
		logger = log.New().WithField("component", "orders")
	}
	return &service{
		orders:    orders,
		items:     items,
		products:  products,
		customers: customers,
		outbox:    outbox,
		timeline:  timeline,
		logger:    logger,
		metrics:   nil, // Отключаем метрики для тестов
	}
}

// Create собирает заказ в два прохода: сначала проверяет клиента, товары и
// остатки и фиксирует цены, затем одним юнитом работы пишет заказ и
// списывает остатки. Частичное списание исключено.
func (s *service) Create(customerID string, requested []domain.OrderItem) (domain.Order, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordCreateDuration(time.Since(start))
		}
	}()

	if strings.TrimSpace(customerID) == "" {
		return domain.Order{}, domain.ErrCustomerRequired
	}
	if len(requested) == 0 {
		return domain.Order{}, domain.ErrItemsRequired
	}

	exists, err := s.customers.Exists(customerID)
	if err != nil {
		return domain.Order{}, err
	}
	if !exists {
		return domain.Order{}, domain.ErrCustomerNotFound
	}

	// Первый проход: проверяем позиции и снимаем цены из каталога.
	// Цена фиксируется на момент заказа и дальше не пересчитывается.
	items := make([]domain.OrderItem, 0, len(requested))
	var totalMinor int64
	for _, req := range requested {
		if req.Qty <= 0 {
			return domain.Order{}, domain.ErrItemQtyInvalid
		}

		product, err := s.products.Get(req.ProductID)
		if err != nil {
			return domain.Order{}, err
		}
		if product.Stock < req.Qty {
			if s.metrics != nil {
				s.metrics.RecordInsufficientStock()
			}
			return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrInsufficientStock, product.Name)
		}

		item := domain.OrderItem{
			ProductID:      product.ID,
			Qty:            req.Qty,
			UnitPriceMinor: product.PriceMinor,
			SubtotalMinor:  int64(req.Qty) * product.PriceMinor,
		}
		totalMinor += item.SubtotalMinor
		items = append(items, item)
	}

	order := domain.Order{
		CustomerID: customerID,
		Status:     domain.OrderStatusPending,
		TotalMinor: totalMinor,
		Items:      items,
	}

	// Второй проход: запись шапки, позиций и списание остатков атомарно.
	created, err := s.orders.Create(order)
	if err != nil {
		if s.metrics != nil {
			if errors.Is(err, domain.ErrInsufficientStock) {
				s.metrics.RecordInsufficientStock()
			} else {
				s.metrics.RecordOrderFailed()
			}
		}
		s.logger.WithError(err).WithField("customer_id", customerID).Warn("order create failed")
		return domain.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}
	s.logger.WithFields(log.Fields{
		"order_id":    created.ID,
		"customer_id": created.CustomerID,
		"total_minor": created.TotalMinor,
		"items":       len(created.Items),
	}).Info("order created")

	s.emitEvent(&created, string(kafka.EventTypeOrderCreated), map[string]interface{}{
		"customer_id": created.CustomerID,
		"total_minor": created.TotalMinor,
		"items_count": len(created.Items),
		"ts":          created.CreatedAt.Format(time.RFC3339Nano),
	})
	s.publishOrderEvent(kafka.EventTypeOrderCreated, &created, nil)

	return created, nil
}

// Get возвращает заказ вместе с позициями.
func (s *service) Get(id string) (domain.Order, error) {
	order, err := s.orders.Get(id)
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.attachItems(&order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// List возвращает заказы с позициями, новые первыми.
func (s *service) List(limit int) ([]domain.Order, error) {
	orders, err := s.orders.List(limit)
	if err != nil {
		return nil, err
	}
	return s.attachItemsAll(orders)
}

// ListByCustomer возвращает заказы клиента с позициями, новые первыми.
func (s *service) ListByCustomer(customerID string, limit int) ([]domain.Order, error) {
	orders, err := s.orders.ListByCustomer(customerID, limit)
	if err != nil {
		return nil, err
	}
	return s.attachItemsAll(orders)
}

// ListByStatus возвращает заказы в заданном статусе с позициями.
// Неизвестное значение статуса отклоняется на границе.
func (s *service) ListByStatus(status string, limit int) ([]domain.Order, error) {
	parsed, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.ListByStatus(parsed, limit)
	if err != nil {
		return nil, err
	}
	return s.attachItemsAll(orders)
}

// UpdateStatus переводит заказ по графу статусов. Переход в cancelled
// делегируется Cancel, чтобы возврат остатков не потерялся.
func (s *service) UpdateStatus(orderID, status string) (domain.Order, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration("update_status", time.Since(start))
		}
	}()

	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return domain.Order{}, err
	}
	if next == domain.OrderStatusCancelled {
		return s.Cancel(orderID)
	}

	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}

	const maxRetries = 3
	const baseDelay = 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := checkTransition(order.Status, next); err != nil {
			return domain.Order{}, err
		}

		prevVersion := order.Version
		order.Status = next
		order.UpdatedAt = time.Now().UTC()

		if err := s.orders.Save(order); err != nil {
			if domain.IsVersionConflict(err) && attempt < maxRetries-1 {
				s.logger.WithFields(log.Fields{
					"order_id": order.ID,
					"attempt":  attempt + 1,
					"version":  order.Version,
				}).Warn("version conflict detected, retrying")

				// Перезагружаем свежую версию заказа и проверяем переход заново
				fresh, loadErr := s.orders.Get(order.ID)
				if loadErr != nil {
					return domain.Order{}, loadErr
				}
				order = fresh

				delay := baseDelay * time.Duration(1<<uint(attempt))
				time.Sleep(delay)
				continue
			}

			if s.metrics != nil {
				s.metrics.RecordOrderFailed()
			}
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"attempt":  attempt + 1,
			}).Error("failed to persist status")
			return domain.Order{}, err
		}

		order.Version = prevVersion + 1
		if s.metrics != nil && next == domain.OrderStatusDelivered {
			s.metrics.RecordOrderDelivered()
		}
		s.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"status":   order.Status,
		}).Info("order status updated")

		s.emitEvent(&order, string(kafka.EventTypeOrderStatusChanged), map[string]interface{}{
			"status": string(order.Status),
			"ts":     order.UpdatedAt.Format(time.RFC3339Nano),
		})
		s.publishOrderEvent(kafka.EventTypeOrderStatusChanged, &order, nil)

		if err := s.attachItems(&order); err != nil {
			return domain.Order{}, err
		}
		return order, nil
	}

	return domain.Order{}, domain.ErrOrderVersionConflict
}

// Cancel отменяет заказ и возвращает остатки на склад одним юнитом работы.
func (s *service) Cancel(orderID string) (domain.Order, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration("cancel", time.Since(start))
		}
	}()

	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}

	const maxRetries = 3
	const baseDelay = 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		switch order.Status {
		case domain.OrderStatusDelivered:
			return domain.Order{}, domain.ErrOrderDelivered
		case domain.OrderStatusCancelled:
			return domain.Order{}, domain.ErrOrderAlreadyCancelled
		}

		if err := s.orders.Cancel(order); err != nil {
			if domain.IsVersionConflict(err) && attempt < maxRetries-1 {
				s.logger.WithFields(log.Fields{
					"order_id": order.ID,
					"attempt":  attempt + 1,
				}).Warn("version conflict on cancel, retrying")

				fresh, loadErr := s.orders.Get(order.ID)
				if loadErr != nil {
					return domain.Order{}, loadErr
				}
				order = fresh

				delay := baseDelay * time.Duration(1<<uint(attempt))
				time.Sleep(delay)
				continue
			}

			if s.metrics != nil {
				s.metrics.RecordOrderFailed()
			}
			s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to cancel order")
			return domain.Order{}, err
		}

		order.Status = domain.OrderStatusCancelled
		order.Version++
		order.UpdatedAt = time.Now().UTC()

		if s.metrics != nil {
			s.metrics.RecordOrderCancelled()
		}
		s.logger.WithField("order_id", order.ID).Info("order cancelled, stock restored")

		s.emitEvent(&order, string(kafka.EventTypeOrderCancelled), map[string]interface{}{
			"status": string(order.Status),
			"ts":     order.UpdatedAt.Format(time.RFC3339Nano),
		})
		s.publishOrderEvent(kafka.EventTypeOrderCancelled, &order, nil)

		if err := s.attachItems(&order); err != nil {
			return domain.Order{}, err
		}
		return order, nil
	}

	return domain.Order{}, domain.ErrOrderVersionConflict
}

// Delete удаляет заказ вместе с позициями. Остатки не возвращаются:
// удаление — операция очистки, а не отмена.
func (s *service) Delete(orderID string) error {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return err
	}

	if err := s.orders.Delete(order.ID); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordOrderDeleted()
	}
	s.logger.WithField("order_id", order.ID).Info("order deleted")

	s.emitEvent(&order, string(kafka.EventTypeOrderDeleted), map[string]interface{}{
		"status": string(order.Status),
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
	})
	s.publishOrderEvent(kafka.EventTypeOrderDeleted, &order, nil)

	return nil
}

// History возвращает события жизненного цикла заказа, старые первыми.
func (s *service) History(orderID string) ([]domain.TimelineEvent, error) {
	exists, err := s.orders.Exists(orderID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrOrderNotFound
	}
	return s.timeline.List(orderID)
}

// checkTransition переводит отказ графа статусов в типизированную ошибку.
func checkTransition(current, next domain.OrderStatus) error {
	switch current {
	case domain.OrderStatusDelivered:
		return domain.ErrOrderDelivered
	case domain.OrderStatusCancelled:
		return domain.ErrOrderCancelled
	}
	if !current.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, next)
	}
	return nil
}

func (s *service) attachItems(order *domain.Order) error {
	items, err := s.items.ListByOrder(order.ID)
	if err != nil {
		return err
	}
	order.Items = items
	return nil
}

func (s *service) attachItemsAll(orders []domain.Order) ([]domain.Order, error) {
	for i := range orders {
		if err := s.attachItems(&orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// emitEvent кладёт событие в transactional outbox и в timeline заказа.
func (s *service) emitEvent(order *domain.Order, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = order.ID
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("enqueue event failed")
	} else if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}

	if s.timeline != nil {
		var occurred time.Time
		if ts, ok := payload["ts"].(string); ok {
			if parsed, parseErr := time.Parse(time.RFC3339Nano, ts); parseErr == nil {
				occurred = parsed
			}
		}
		if occurred.IsZero() {
			occurred = time.Now().UTC()
		}
		event := domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     eventType,
			Occurred: occurred,
		}
		if err := s.timeline.Append(event); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Warn("append timeline event failed")
		} else if s.metrics != nil {
			s.metrics.RecordTimelineEvent()
		}
	}
}

// publishOrderEvent публикует событие заказа в Kafka (если producer настроен).
func (s *service) publishOrderEvent(eventType kafka.EventType, order *domain.Order, metadata map[string]interface{}) {
	if s.kafkaProducer == nil {
		return // Kafka не настроен, пропускаем
	}

	event := kafka.NewOrderEvent(eventType, order.ID, order.CustomerID, string(order.Status), order.TotalMinor, metadata)
	if err := s.kafkaProducer.PublishEvent(kafka.TopicOrderEvents, order.ID, event); err != nil {
		// Логируем ошибку, но не прерываем операцию - Kafka опциональный
		s.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"order_id":   order.ID,
		}).Warn("failed to publish order event to kafka")
	}
}

var _ Service = (*service)(nil)
