package services

import (
	"context"
	"log"

	"ministry-assetloan/internal/adapters/messaging"
)

// NotificationService hands workflow events to the notification and
// audit consumers. Delivery failures are logged and never fail the caller.
type NotificationService struct {
	publisher messaging.Publisher
}

// NewNotificationService creates a new notification service
func NewNotificationService(publisher messaging.Publisher) *NotificationService {
	return &NotificationService{publisher: publisher}
}

// IsEnabled checks if a publisher is wired
func (s *NotificationService) IsEnabled() bool {
	return s != nil && s.publisher != nil
}

// Publish sends a single event
func (s *NotificationService) Publish(ctx context.Context, routingKey string, payload any) {
	if !s.IsEnabled() {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		log.Printf("❌ Failed to publish %s: %v", routingKey, err)
	}
}

// dispatch publishes everything collected in o, in order
func (s *NotificationService) dispatch(ctx context.Context, o *outbox) {
	if o == nil {
		return
	}
	for _, ev := range o.events {
		s.Publish(ctx, ev.routingKey, ev.payload)
	}
}
