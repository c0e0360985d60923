package models

import (
	"time"
)

// FabricDetails describes the fabric chosen for an order
type FabricDetails struct {
	Type       string  `json:"type"`
	Color      string  `json:"color"`
	Quantity   float64 `json:"quantity"` // meters
	SupplierID *uint   `json:"supplier_id,omitempty"`
}

// Consultation holds the consultation booking of an order
type Consultation struct {
	Date   *time.Time         `json:"date"`
	Type   string             `json:"type"` // in_person, video, phone
	Status ConsultationStatus `json:"status"`
	Link   string             `json:"link"`
	Notes  string             `gorm:"type:text" json:"notes"`
}

// QualityCheck records the final sign-off before completion
type QualityCheck struct {
	Passed      bool       `gorm:"not null;default:false" json:"passed"`
	CheckedByID *uint      `json:"checked_by_id"`
	CheckedAt   *time.Time `json:"checked_at"`
	Notes       string     `gorm:"type:text" json:"notes"`
}

// Order represents a custom garment order between a customer and a tailor
type Order struct {
	ID                      uint            `gorm:"primaryKey" json:"id"`
	OrderNumber             string          `gorm:"uniqueIndex;not null;size:32" json:"order_number"`
	CustomerID              uint            `gorm:"not null;index" json:"customer_id"`
	Customer                User            `gorm:"foreignKey:CustomerID" json:"customer"`
	TailorID                uint            `gorm:"not null;index" json:"tailor_id"`
	Tailor                  User            `gorm:"foreignKey:TailorID" json:"tailor"`
	Status                  OrderStatus     `gorm:"not null;default:'pending';index" json:"status"`
	ServiceType             string          `gorm:"not null" json:"service_type"`
	GarmentType             string          `gorm:"not null" json:"garment_type"`
	Quantity                int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	MeasurementID           *uint           `json:"measurement_id,omitempty"`
	BasePrice               float64         `gorm:"not null" json:"base_price"`
	FabricCost              float64         `gorm:"not null;default:0" json:"fabric_cost"`
	AdditionalCharges       float64         `gorm:"not null;default:0" json:"additional_charges"`
	Discount                float64         `gorm:"not null;default:0" json:"discount"`
	TotalPrice              float64         `gorm:"not null" json:"total_price"`
	FabricSelected          bool            `gorm:"not null;default:false" json:"fabric_selected"`
	Fabric                  FabricDetails   `gorm:"embedded;embeddedPrefix:fabric_" json:"fabric_details"`
	Consultation            Consultation    `gorm:"embedded;embeddedPrefix:consultation_" json:"consultation"`
	CurrentRevision         int             `gorm:"not null;default:0" json:"current_revision"`
	QualityCheck            QualityCheck    `gorm:"embedded;embeddedPrefix:quality_check_" json:"quality_check"`
	Notes                   string          `gorm:"type:text" json:"notes"`
	EstimatedCompletionDate *time.Time      `json:"estimated_completion_date"`
	ActualCompletionDate    *time.Time      `json:"actual_completion_date"`
	Version                 int             `gorm:"not null;default:1" json:"version"`
	Revisions               []Revision      `gorm:"foreignKey:OrderID" json:"revisions"`
	Messages                []Message       `gorm:"foreignKey:OrderID" json:"messages,omitempty"`
	Timeline                []TimelineEntry `gorm:"foreignKey:OrderID" json:"timeline,omitempty"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsParty reports whether the user is the customer or the tailor of the order
func (o *Order) IsParty(userID uint) bool {
	return o.CustomerID == userID || o.TailorID == userID
}

// IsClosed reports whether the order reached a terminal status
func (o *Order) IsClosed() bool {
	return o.Status.IsTerminal()
}

// SetStatus moves the order to status and appends a timeline entry.
// It returns false when the order already had that status.
func (o *Order) SetStatus(status OrderStatus, description string, updatedBy *uint, at time.Time) bool {
	if o.Status == status {
		return false
	}
	o.Status = status
	o.Timeline = append(o.Timeline, TimelineEntry{
		OrderID:     o.ID,
		Status:      status,
		Description: description,
		UpdatedByID: updatedBy,
		RecordedAt:  at,
	})
	return true
}

// AddRevision issues the next revision number and appends a pending revision
func (o *Order) AddRevision(requestedBy Role, description string, images []string, at time.Time) *Revision {
	o.CurrentRevision++
	o.Revisions = append(o.Revisions, Revision{
		OrderID:        o.ID,
		RevisionNumber: o.CurrentRevision,
		RequestedBy:    requestedBy,
		Description:    description,
		Images:         images,
		Status:         RevisionStatusPending,
		CreatedAt:      at,
	})
	return &o.Revisions[len(o.Revisions)-1]
}

// RevisionByNumber returns the revision with the given number, or nil
func (o *Order) RevisionByNumber(number int) *Revision {
	for i := range o.Revisions {
		if o.Revisions[i].RevisionNumber == number {
			return &o.Revisions[i]
		}
	}
	return nil
}

// HasRevisionIn reports whether any revision is in one of the statuses
func (o *Order) HasRevisionIn(statuses ...RevisionStatus) bool {
	for _, revision := range o.Revisions {
		if revision.Status.In(statuses...) {
			return true
		}
	}
	return false
}

// AllRevisionsIn reports whether every revision is in one of the statuses.
// It is false for an order without revisions.
func (o *Order) AllRevisionsIn(statuses ...RevisionStatus) bool {
	if len(o.Revisions) == 0 {
		return false
	}
	for _, revision := range o.Revisions {
		if !revision.Status.In(statuses...) {
			return false
		}
	}
	return true
}

// ComputeTotalPrice derives the order total from its price components
func ComputeTotalPrice(basePrice float64, quantity int, fabricCost, additionalCharges, discount float64) float64 {
	total := basePrice*float64(quantity) + fabricCost + additionalCharges - discount
	if total < 0 {
		return 0
	}
	return total
}
