package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/messaging/kafka"
)

// initKafkaProducer поднимает producer, если в конфигурации заданы брокеры.
// Возвращает nil и при пустом списке брокеров, и при недоступной Kafka:
// в обоих случаях сервис работает дальше, события копятся в outbox.
func initKafkaProducer(brokers string, logger *log.Entry) *kafka.Producer {
	if strings.TrimSpace(brokers) == "" {
		return nil
	}

	brokerList := strings.Split(brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}

	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("kafka producer unavailable, continuing without kafka")
		return nil
	}

	logger.WithField("brokers", brokerList).Info("kafka producer готов")
	return producer
}

func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer закрыт")
}
