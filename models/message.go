package models

import (
	"time"
)

// Message represents a message in an order conversation
type Message struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	OrderID     uint       `gorm:"not null;index" json:"order_id"`  // foreign key to orders table
	SenderID    uint       `gorm:"not null;index" json:"sender_id"` // foreign key to users table
	Sender      User       `gorm:"foreignKey:SenderID" json:"sender"`
	Text        string     `gorm:"type:text;not null" json:"text"`
	Attachments []string   `gorm:"serializer:json;type:text" json:"attachments"` // storage keys
	Read        bool       `gorm:"not null;default:false" json:"read"`
	ReadAt      *time.Time `json:"read_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the Message model
func (Message) TableName() string {
	return "messages"
}

// MarkRead flags the message as read by readerID. Senders never mark their own
// messages; the return value reports whether anything changed.
func (m *Message) MarkRead(readerID uint, at time.Time) bool {
	if m.SenderID == readerID || m.Read {
		return false
	}
	m.Read = true
	m.ReadAt = &at
	return true
}
