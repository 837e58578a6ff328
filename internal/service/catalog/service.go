// Package catalog реализует товарный реестр: CRUD по товарам и единственную
// точку изменения остатков.
package catalog

import (
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/commerce/internal/metrics"
)

// Service описывает операции товарного реестра.
type Service interface {
	Create(product domain.Product) (domain.Product, error)
	Get(id string) (domain.Product, error)
	List() ([]domain.Product, error)
	ListByCategory(category string) ([]domain.Product, error)
	ListByPriceRange(minMinor, maxMinor int64) ([]domain.Product, error)
	Update(id string, product domain.Product) (domain.Product, error)
	Delete(id string) error
	IsAvailable(id string, qty int32) (bool, error)
	AdjustStock(id string, delta int32) (domain.Product, error)
}

type service struct {
	products      domain.ProductRepository
	logger        *log.Entry
	metrics       *metrics.OrderMetrics
	kafkaProducer *kafka.Producer // опциональный Kafka producer для event-driven архитектуры
}

// NewService создаёт сервис товарного реестра.
func NewService(products domain.ProductRepository, logger *log.Entry) Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &service{
		products: products,
		logger:   logger,
		metrics:  metrics.NewOrderMetrics(),
	}
}

// NewServiceWithKafka создаёт реестр с Kafka producer: каждое успешное
// изменение остатка публикуется как событие stock.adjusted.
func NewServiceWithKafka(products domain.ProductRepository, kafkaProducer *kafka.Producer, logger *log.Entry) Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &service{
		products:      products,
		logger:        logger,
		metrics:       metrics.NewOrderMetrics(),
		kafkaProducer: kafkaProducer,
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(products domain.ProductRepository, logger *log.Entry) Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &service{
		products: products,
		logger:   logger,
	}
}

func (s *service) Create(product domain.Product) (domain.Product, error) {
	if errs := product.Validate(); len(errs) > 0 {
		return domain.Product{}, errors.Join(errs...)
	}

	created, err := s.products.Create(product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": created.ID,
		"name":       created.Name,
	}).Info("product created")
	return created, nil
}

func (s *service) Get(id string) (domain.Product, error) {
	return s.products.Get(id)
}

func (s *service) List() ([]domain.Product, error) {
	return s.products.List()
}

func (s *service) ListByCategory(category string) ([]domain.Product, error) {
	if strings.TrimSpace(category) == "" {
		return nil, domain.ErrCategoryRequired
	}
	return s.products.ListByCategory(category)
}

func (s *service) ListByPriceRange(minMinor, maxMinor int64) ([]domain.Product, error) {
	if minMinor < 0 || maxMinor < 0 {
		return nil, domain.ErrPriceRangeNegative
	}
	if minMinor > maxMinor {
		return nil, domain.ErrPriceRangeInverted
	}
	return s.products.ListByPriceRange(minMinor, maxMinor)
}

// Update перезаписывает изменяемые поля существующего товара. Остаток
// через Update не меняется, для него есть AdjustStock.
func (s *service) Update(id string, product domain.Product) (domain.Product, error) {
	if errs := product.Validate(); len(errs) > 0 {
		return domain.Product{}, errors.Join(errs...)
	}

	product.ID = id
	if err := s.products.Update(product); err != nil {
		return domain.Product{}, err
	}
	return s.products.Get(id)
}

func (s *service) Delete(id string) error {
	if err := s.products.Delete(id); err != nil {
		return err
	}
	s.logger.WithField("product_id", id).Info("product deleted")
	return nil
}

func (s *service) IsAvailable(id string, qty int32) (bool, error) {
	product, err := s.products.Get(id)
	if err != nil {
		return false, err
	}
	return product.Stock >= qty, nil
}

// AdjustStock делегирует атомарному примитиву хранилища.
func (s *service) AdjustStock(id string, delta int32) (domain.Product, error) {
	product, err := s.products.AdjustStock(id, delta)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) && s.metrics != nil {
			s.metrics.RecordInsufficientStock()
		}
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": id,
		"delta":      delta,
		"stock":      product.Stock,
	}).Debug("stock adjusted")

	s.publishStockEvent(id, delta, product.Stock)
	return product, nil
}

// publishStockEvent публикует событие stock.adjusted в Kafka (если producer настроен).
func (s *service) publishStockEvent(productID string, delta, stock int32) {
	if s.kafkaProducer == nil {
		return // Kafka не настроен, пропускаем
	}

	event := kafka.NewStockEvent(productID, delta, stock)
	if err := s.kafkaProducer.PublishEvent(kafka.TopicOrderEvents, productID, event); err != nil {
		// Логируем ошибку, но не прерываем операцию - Kafka опциональный
		s.logger.WithError(err).WithField("product_id", productID).
			Warn("failed to publish stock event to kafka")
	}
}

var _ Service = (*service)(nil)
