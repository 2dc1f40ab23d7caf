// Package events publishes ride anomaly events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// AnomalyEvent is the message published when a completed ride is flagged.
type AnomalyEvent struct {
	FlagID       string    `json:"flag_id"`
	RideID       string    `json:"ride_id"`
	CaptainID    string    `json:"captain_id"`
	CustomerID   string    `json:"customer_id"`
	PickupCity   string    `json:"pickup_city"`
	Type         string    `json:"type"`
	AnomalyScore float64   `json:"anomaly_score"`
	Reason       string    `json:"reason"`
	FlaggedAt    time.Time `json:"flagged_at"`
}

// messageWriter is the subset of *kafka.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes anomaly events to a Kafka topic.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a publisher writing to topic on the given brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// PublishAnomaly publishes the event keyed by ride ID so all events for a
// ride land on the same partition.
func (p *KafkaPublisher) PublishAnomaly(ctx context.Context, event AnomalyEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal anomaly event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RideID),
		Value: payload,
		Time:  event.FlaggedAt,
	}); err != nil {
		return fmt.Errorf("publish anomaly event for ride %s: %w", event.RideID, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops every event. Used when Kafka is disabled.
type NoopPublisher struct{}

// PublishAnomaly implements the publisher contract without doing anything.
func (NoopPublisher) PublishAnomaly(context.Context, AnomalyEvent) error { return nil }

// Close implements io.Closer.
func (NoopPublisher) Close() error { return nil }
