package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/commerce/internal/service/catalog"
	"github.com/vladislavdragonenkov/commerce/internal/service/orders"
)

// createCatalogService создаёт товарный реестр. С producer'ом каждое
// изменение остатка публикуется как событие stock.adjusted.
func createCatalogService(deps *Dependencies, kafkaProducer *kafka.Producer, logger *log.Entry) catalog.Service {
	if kafkaProducer != nil {
		return catalog.NewServiceWithKafka(deps.Products, kafkaProducer, logger)
	}
	return catalog.NewService(deps.Products, logger)
}

// createOrderService создаёт оркестратор заказов с или без Kafka в
// зависимости от наличия kafka producer.
func createOrderService(deps *Dependencies, kafkaProducer *kafka.Producer) orders.Service {
	if kafkaProducer != nil {
		return orders.NewServiceWithKafka(
			deps.Orders,
			deps.Items,
			deps.Products,
			deps.Customers,
			deps.Outbox,
			deps.Timeline,
			kafkaProducer,
			deps.Logger,
		)
	}

	return orders.NewService(
		deps.Orders,
		deps.Items,
		deps.Products,
		deps.Customers,
		deps.Outbox,
		deps.Timeline,
		deps.Logger,
	)
}
