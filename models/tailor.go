package models

import "time"

// BadgeType names a reputation marker awarded to a tailor
type BadgeType string

const (
	BadgeTopRated         BadgeType = "top_rated"
	BadgeReliableTailor   BadgeType = "reliable_tailor"
	BadgeMasterCraftsman  BadgeType = "master_craftsman"
	BadgeCustomerFavorite BadgeType = "customer_favorite"
)

// TailorProfile holds the reputation record of a tailor user.
// Counters are only changed by the reputation ledger.
type TailorProfile struct {
	ID                  uint          `gorm:"primaryKey" json:"id"`
	UserID              uint          `gorm:"uniqueIndex;not null" json:"user_id"`
	User                User          `gorm:"foreignKey:UserID" json:"-"`
	Active              bool          `gorm:"not null;default:true" json:"active"`
	TotalOrders         int           `gorm:"not null;default:0" json:"total_orders"`
	CompletedOrders     int           `gorm:"not null;default:0" json:"completed_orders"`
	CompletionRate      float64       `gorm:"not null;default:0" json:"completion_rate"`
	AverageRating       float64       `gorm:"not null;default:0" json:"average_rating"`
	AverageResponseTime float64       `gorm:"not null;default:0" json:"average_response_time"` // hours
	Badges              []TailorBadge `gorm:"foreignKey:TailorProfileID" json:"badges"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// TableName specifies the table name for the TailorProfile model
func (TailorProfile) TableName() string {
	return "tailor_profiles"
}

// HasBadge reports whether the badge type was already awarded
func (p *TailorProfile) HasBadge(badgeType BadgeType) bool {
	for _, badge := range p.Badges {
		if badge.Type == badgeType {
			return true
		}
	}
	return false
}

// TailorBadge is a badge awarded to a tailor. A type appears at most once per tailor.
type TailorBadge struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	TailorProfileID uint      `gorm:"not null;uniqueIndex:idx_tailor_badge_type" json:"-"`
	Type            BadgeType `gorm:"not null;size:64;uniqueIndex:idx_tailor_badge_type" json:"type"`
	OrderID         *uint     `json:"order_id,omitempty"` // order whose completion earned it
	AwardedAt       time.Time `gorm:"not null" json:"awarded_at"`
}

// TableName specifies the table name for the TailorBadge model
func (TailorBadge) TableName() string {
	return "tailor_badges"
}
