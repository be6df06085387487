package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/ciby9833/xspace-sub000/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing ledger domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// Publish routes a domain event to Kafka keyed by its order, so one
// order's ledger history stays ordered for consumers.
func (ep *EventPublisher) Publish(ctx context.Context, event interface{}) error {
	var orderID int64
	switch e := event.(type) {
	case *models.OrderBookedEvent:
		orderID = e.OrderID
	case *models.OrderSettledEvent:
		orderID = e.OrderID
	case *models.PaymentConfirmedEvent:
		orderID = e.OrderID
	case *models.PaymentCancelledEvent:
		orderID = e.OrderID
	case *models.PaymentsMergedEvent:
		orderID = e.OrderID
	case *models.PaymentSplitEvent:
		orderID = e.OrderID
	default:
		return fmt.Errorf("unknown event type %T", event)
	}

	key := fmt.Sprintf("order-%d", orderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onPaymentConfirmed func(context.Context, *models.PaymentConfirmedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnPaymentConfirmed registers a handler for PaymentConfirmed events
func (eh *EventHandler) OnPaymentConfirmed(handler func(context.Context, *models.PaymentConfirmedEvent) error) {
	eh.onPaymentConfirmed = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypePaymentConfirmed:
		if eh.onPaymentConfirmed != nil {
			var event models.PaymentConfirmedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PaymentConfirmed event: %w", err)
			}
			return eh.onPaymentConfirmed(ctx, &event)
		}

	default:
		// other event types have no in-process consumers
	}

	return nil
}
