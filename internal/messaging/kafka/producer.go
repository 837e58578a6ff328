package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// Producer — синхронный Kafka producer для доменных событий.
// Работает в идемпотентном режиме, поэтому повторная отправка
// одного сообщения не приводит к дублям в topic.
type Producer struct {
	inner  sarama.SyncProducer
	logger *log.Entry
}

// producerConfig собирает конфигурацию sarama для идемпотентной записи.
// MaxOpenRequests=1 обязателен при включённой идемпотентности.
func producerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

// NewProducer подключается к брокерам и возвращает готовый producer.
func NewProducer(brokers []string) (*Producer, error) {
	inner, err := sarama.NewSyncProducer(brokers, producerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &Producer{
		inner:  inner,
		logger: log.WithField("component", "kafka-producer"),
	}, nil
}

// NewProducerFromSyncProducer оборачивает готовый sarama.SyncProducer.
// Используется там, где соединение уже установлено, и в тестах с sarama mocks.
func NewProducerFromSyncProducer(inner sarama.SyncProducer) *Producer {
	return &Producer{
		inner:  inner,
		logger: log.WithField("component", "kafka-producer"),
	}
}

// PublishEvent сериализует событие в JSON и синхронно публикует его.
// Key определяет партицию, поэтому события одного заказа сохраняют порядок.
func (p *Producer) PublishEvent(topic string, key string, event interface{}) error {
	encoded, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for topic %s: %w", topic, err)
	}

	partition, offset, err := p.inner.SendMessage(&sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(encoded),
		Timestamp: time.Now(),
	})
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": topic,
			"key":   key,
		}).Error("kafka publish failed")
		return fmt.Errorf("send message to %s: %w", topic, err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("событие опубликовано")

	return nil
}

// Close останавливает producer и дожидается отправки буферизованных сообщений.
func (p *Producer) Close() error {
	if err := p.inner.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
