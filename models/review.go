package models

import "time"

// Review is a customer's rating of a tailor after an order.
// Reviews are written elsewhere; the order workflow only reads them.
type Review struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	OrderID             uint      `gorm:"not null;index" json:"order_id"`
	TailorID            uint      `gorm:"not null;index" json:"tailor_id"`
	CustomerID          uint      `gorm:"not null;index" json:"customer_id"`
	Rating              float64   `gorm:"not null" json:"rating"`
	QualityRating       float64   `json:"quality_rating"`
	CommunicationRating float64   `json:"communication_rating"`
	TimelinessRating    float64   `json:"timeliness_rating"`
	Comment             string    `gorm:"type:text" json:"comment"`
	CreatedAt           time.Time `json:"created_at"`
}

// TableName specifies the table name for the Review model
func (Review) TableName() string {
	return "reviews"
}
