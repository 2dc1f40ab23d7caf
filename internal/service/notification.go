package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"rideintel/internal/domain"
	"rideintel/internal/events"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationRideCompleted  NotificationType = "RIDE_COMPLETED"
	NotificationRideCancelled  NotificationType = "RIDE_CANCELLED"
	NotificationAnomalyFlagged NotificationType = "ANOMALY_FLAGGED"
)

// fraudOpsRecipient receives every anomaly notification.
const fraudOpsRecipient = "fraud-ops"

// anomalyCustomEvent is the New Relic custom event type for flagged rides.
const anomalyCustomEvent = "RideAnomaly"

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string // Customer ID or team
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// EventPublisher publishes anomaly events to downstream consumers.
type EventPublisher interface {
	PublishAnomaly(ctx context.Context, event events.AnomalyEvent) error
}

// NotificationService handles notification delivery.
type NotificationService struct {
	publisher EventPublisher
	nrApp     *newrelic.Application
}

// NewNotificationService creates a new NotificationService.
// publisher and nrApp may be nil.
func NewNotificationService(publisher EventPublisher, nrApp *newrelic.Application) *NotificationService {
	return &NotificationService{
		publisher: publisher,
		nrApp:     nrApp,
	}
}

// NotifyRideCompleted notifies the customer that the ride has completed.
func (s *NotificationService) NotifyRideCompleted(ctx context.Context, ride *domain.Ride) error {
	notification := Notification{
		Type:        NotificationRideCompleted,
		RecipientID: ride.CustomerID,
		Title:       "Ride Completed",
		Message:     fmt.Sprintf("Your ride from %s to %s has ended. Total fare: %.2f PKR", ride.PickupCity, ride.DropoffCity, ride.FareAmount),
		Data: map[string]interface{}{
			"ride_id":      ride.ID,
			"fare":         ride.FareAmount,
			"completed_at": ride.CompletedAt,
		},
		CreatedAt: time.Now(),
	}
	return s.send(ctx, notification)
}

// NotifyRideCancelled notifies the captain that the ride was cancelled.
func (s *NotificationService) NotifyRideCancelled(ctx context.Context, ride *domain.Ride) error {
	notification := Notification{
		Type:        NotificationRideCancelled,
		RecipientID: ride.CaptainID,
		Title:       "Ride Cancelled",
		Message:     "The ride has been cancelled",
		Data: map[string]interface{}{
			"ride_id": ride.ID,
		},
		CreatedAt: time.Now(),
	}
	return s.send(ctx, notification)
}

// NotifyAnomalyFlagged alerts fraud operations about a flagged ride, publishes
// the anomaly event and records it in New Relic. Delivery failures are logged
// and never returned.
func (s *NotificationService) NotifyAnomalyFlagged(ctx context.Context, ride *domain.Ride, flag *domain.AnomalyFlag) error {
	notification := Notification{
		Type:        NotificationAnomalyFlagged,
		RecipientID: fraudOpsRecipient,
		Title:       "Suspicious Ride",
		Message:     fmt.Sprintf("Ride %s flagged as %s (score %.2f): %s", ride.ID, flag.Type, flag.AnomalyScore, flag.Reason),
		Data: map[string]interface{}{
			"ride_id":       ride.ID,
			"captain_id":    ride.CaptainID,
			"anomaly_type":  string(flag.Type),
			"anomaly_score": flag.AnomalyScore,
		},
		CreatedAt: time.Now(),
	}
	_ = s.send(ctx, notification)

	if s.publisher != nil {
		event := events.AnomalyEvent{
			FlagID:       flag.ID,
			RideID:       ride.ID,
			CaptainID:    ride.CaptainID,
			CustomerID:   ride.CustomerID,
			PickupCity:   ride.PickupCity,
			Type:         string(flag.Type),
			AnomalyScore: flag.AnomalyScore,
			Reason:       flag.Reason,
			FlaggedAt:    flag.FlaggedAt,
		}
		if err := s.publisher.PublishAnomaly(ctx, event); err != nil {
			log.Printf("[NOTIFICATION] failed to publish anomaly for ride %s: %v", ride.ID, err)
		}
	}

	if s.nrApp != nil {
		s.nrApp.RecordCustomEvent(anomalyCustomEvent, map[string]interface{}{
			"rideId":       ride.ID,
			"captainId":    ride.CaptainID,
			"pickupCity":   ride.PickupCity,
			"type":         string(flag.Type),
			"anomalyScore": flag.AnomalyScore,
		})
	}

	return nil
}

// send delivers a notification by logging it.
func (s *NotificationService) send(ctx context.Context, notification Notification) error {
	log.Printf("[NOTIFICATION] Type=%s, Recipient=%s, Title=%s, Message=%s",
		notification.Type, notification.RecipientID, notification.Title, notification.Message)

	return nil
}
