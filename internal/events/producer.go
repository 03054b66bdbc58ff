package events

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// Topics carrying commerce domain events. Publishing is best effort
// everywhere: a failed publish is logged, never surfaced to the shopper.
const (
	OrderReconciledTopic    = "order.reconciled"
	OrderStatusChangedTopic = "order.status_changed"
	CatalogImportedTopic    = "catalog.imported"
	SyncCycleCompletedTopic = "intelligence.cycle_completed"
)

type OrderReconciledEvent struct {
	OrderID     string    `json:"order_id"`
	SessionID   string    `json:"session_id"`
	TotalAmount int64     `json:"total_amount"`
	FirstSeen   bool      `json:"first_seen"`
	EventTime   time.Time `json:"event_time"`
}

type OrderStatusChangedEvent struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	EventTime time.Time `json:"event_time"`
}

type CatalogImportedEvent struct {
	Processed int       `json:"processed"`
	Errors    int       `json:"errors"`
	EventTime time.Time `json:"event_time"`
}

type SyncCycleCompletedEvent struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	EventTime time.Time `json:"event_time"`
}

// KafkaProducer publishes domain events. A nil *KafkaProducer is valid
// and drops everything, so wiring Kafka stays optional.
type KafkaProducer struct {
	producer sarama.SyncProducer
	logger   *logrus.Logger
}

func NewKafkaProducer(brokers string, logger *logrus.Logger) (*KafkaProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(strings.Split(brokers, ","), config)
	if err != nil {
		return nil, err
	}

	return &KafkaProducer{
		producer: producer,
		logger:   logger,
	}, nil
}

func (p *KafkaProducer) PublishOrderReconciled(event OrderReconciledEvent) error {
	event.EventTime = time.Now()
	return p.publish(OrderReconciledTopic, event.OrderID, event)
}

func (p *KafkaProducer) PublishOrderStatusChanged(event OrderStatusChangedEvent) error {
	event.EventTime = time.Now()
	return p.publish(OrderStatusChangedTopic, event.OrderID, event)
}

func (p *KafkaProducer) PublishCatalogImported(event CatalogImportedEvent) error {
	event.EventTime = time.Now()
	return p.publish(CatalogImportedTopic, "catalog", event)
}

func (p *KafkaProducer) PublishSyncCycleCompleted(event SyncCycleCompletedEvent) error {
	event.EventTime = time.Now()
	return p.publish(SyncCycleCompletedTopic, "intelligence", event)
}

func (p *KafkaProducer) publish(topic, key string, event interface{}) error {
	if p == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithField("topic", topic).Error("Failed to send message to Kafka")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"topic":     topic,
		"partition": partition,
		"offset":    offset,
		"key":       key,
	}).Info("Event published to Kafka")

	return nil
}

func (p *KafkaProducer) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
