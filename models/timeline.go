package models

import "time"

// TimelineEntry is one append-only audit record of an order status change
type TimelineEntry struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderID     uint        `gorm:"not null;index" json:"order_id"`
	Status      OrderStatus `gorm:"not null" json:"status"`
	Description string      `gorm:"type:text" json:"description"`
	UpdatedByID *uint       `json:"updated_by_id"`
	RecordedAt  time.Time   `gorm:"not null;index" json:"updated_at"`
}

// TableName specifies the table name for the TimelineEntry model
func (TimelineEntry) TableName() string {
	return "order_timeline"
}
