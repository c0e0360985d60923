package models

import "time"

// Event types written to the outbox
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCompleted     = "order.completed"
	EventRevisionRequested  = "revision.requested"
	EventBadgeAwarded       = "badge.awarded"
)

// OutboxEvent is a domain event stored in the same transaction as the change
// that produced it and relayed to the message broker afterwards
type OutboxEvent struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	EventID     string     `gorm:"uniqueIndex;not null;size:36" json:"event_id"`
	Type        string     `gorm:"not null;size:64;index" json:"type"`
	OrderID     uint       `gorm:"not null;index" json:"order_id"`
	Payload     string     `gorm:"type:text;not null" json:"payload"`
	Attempts    int        `gorm:"not null;default:0" json:"attempts"`
	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`
	PublishedAt *time.Time `gorm:"index" json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TableName specifies the table name for the OutboxEvent model
func (OutboxEvent) TableName() string {
	return "outbox_events"
}
