package app

import (
	"log"

	"rideintel/internal/config"
	"rideintel/internal/events"
	"rideintel/internal/service"
)

// AnomalyPublisher publishes anomaly events and releases its connections on Close.
type AnomalyPublisher interface {
	service.EventPublisher
	Close() error
}

// NewAnomalyPublisher returns a Kafka publisher when Kafka is enabled,
// otherwise a publisher that drops events.
func NewAnomalyPublisher(cfg config.KafkaConfig) AnomalyPublisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		return events.NoopPublisher{}
	}

	log.Printf("Publishing anomaly events to Kafka topic %s (brokers=%v)", cfg.AnomalyTopic, cfg.Brokers)
	return events.NewKafkaPublisher(cfg.Brokers, cfg.AnomalyTopic)
}
