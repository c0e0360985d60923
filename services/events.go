package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/stitchwise-api/models"
)

// OrderEvent is the body of every event published about an order
type OrderEvent struct {
	EventID        string             `json:"event_id"`
	Type           string             `json:"type"`
	OrderID        uint               `json:"order_id"`
	OrderNumber    string             `json:"order_number"`
	CustomerID     uint               `json:"customer_id"`
	TailorID       uint               `json:"tailor_id"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previous_status,omitempty"`
	RevisionNumber int                `json:"revision_number,omitempty"`
	Badge          models.BadgeType   `json:"badge,omitempty"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

func newOrderEvent(eventType string, order *models.Order, at time.Time) OrderEvent {
	return OrderEvent{
		EventID:     uuid.NewString(),
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		TailorID:    order.TailorID,
		Status:      order.Status,
		OccurredAt:  at,
	}
}

// outboxRow serializes the event into an outbox row
func (e OrderEvent) outboxRow() (models.OutboxEvent, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("failed to encode %s event: %w", e.Type, err)
	}
	return models.OutboxEvent{
		EventID:   e.EventID,
		Type:      e.Type,
		OrderID:   e.OrderID,
		Payload:   string(payload),
		CreatedAt: e.OccurredAt,
	}, nil
}
