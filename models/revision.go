package models

import (
	"strings"
	"time"

	"github.com/kendall-kelly/stitchwise-api/utils"
)

// RevisionStatus is the state of a single change request
type RevisionStatus string

const (
	RevisionStatusPending          RevisionStatus = "pending"
	RevisionStatusApproved         RevisionStatus = "approved"
	RevisionStatusRejected         RevisionStatus = "rejected"
	RevisionStatusInProgress       RevisionStatus = "in_progress"
	RevisionStatusCompleted        RevisionStatus = "completed"
	RevisionStatusCustomerApproved RevisionStatus = "customer_approved"
	RevisionStatusCustomerRejected RevisionStatus = "customer_rejected"
)

// In reports whether s is one of statuses
func (s RevisionStatus) In(statuses ...RevisionStatus) bool {
	for _, status := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsFrozen reports whether the revision can never change again.
// A customer_rejected revision is frozen because a new revision replaces it.
func (s RevisionStatus) IsFrozen() bool {
	return s.In(RevisionStatusRejected, RevisionStatusCustomerApproved, RevisionStatusCustomerRejected)
}

// Revision is a change request nested inside an order
type Revision struct {
	ID                      uint           `gorm:"primaryKey" json:"id"`
	OrderID                 uint           `gorm:"not null;uniqueIndex:idx_order_revision_number" json:"order_id"`
	RevisionNumber          int            `gorm:"not null;uniqueIndex:idx_order_revision_number" json:"revision_number"`
	RequestedBy             Role           `gorm:"not null" json:"requested_by"`
	Description             string         `gorm:"type:text;not null" json:"description"`
	Images                  []string       `gorm:"serializer:json;type:text" json:"images"`
	Status                  RevisionStatus `gorm:"not null;default:'pending'" json:"status"`
	TailorNotes             string         `gorm:"type:text" json:"tailor_notes"`
	ApprovedByID            *uint          `json:"approved_by_id,omitempty"`
	ApprovedAt              *time.Time     `json:"approved_at,omitempty"`
	RejectedByID            *uint          `json:"rejected_by_id,omitempty"`
	RejectedAt              *time.Time     `json:"rejected_at,omitempty"`
	RejectionReason         string         `gorm:"type:text" json:"rejection_reason,omitempty"`
	StartedAt               *time.Time     `json:"started_at,omitempty"`
	CompletedByID           *uint          `json:"completed_by_id,omitempty"`
	CompletedAt             *time.Time     `json:"completed_at,omitempty"`
	CompletionImages        []string       `gorm:"serializer:json;type:text" json:"completion_images"`
	CompletionNotes         string         `gorm:"type:text" json:"completion_notes,omitempty"`
	CustomerApprovedAt      *time.Time     `json:"customer_approved_at,omitempty"`
	CustomerRejectedAt      *time.Time     `json:"customer_rejected_at,omitempty"`
	CustomerRejectionReason string         `gorm:"type:text" json:"customer_rejection_reason,omitempty"`
	SupersededBy            *int           `json:"superseded_by,omitempty"` // revision number spawned by a customer rejection
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
}

// TableName specifies the table name for the Revision model
func (Revision) TableName() string {
	return "order_revisions"
}

// transition checks that the revision may move from one status to another
func (r *Revision) transition(from, to RevisionStatus) error {
	if r.Status == to {
		return utils.NewConflictError("REVISION_ALREADY_"+strings.ToUpper(string(to)),
			"revision #%d is already %s", r.RevisionNumber, to)
	}
	if r.Status != from {
		return utils.NewValidationError("REVISION_NOT_"+strings.ToUpper(string(from)),
			"revision #%d must be %s, current status is %s", r.RevisionNumber, from, r.Status)
	}
	r.Status = to
	return nil
}

// Approve accepts a pending revision
func (r *Revision) Approve(tailorID uint, notes string, at time.Time) error {
	if err := r.transition(RevisionStatusPending, RevisionStatusApproved); err != nil {
		return err
	}
	r.ApprovedByID = &tailorID
	r.ApprovedAt = &at
	if notes != "" {
		r.TailorNotes = notes
	}
	return nil
}

// Reject declines a pending revision
func (r *Revision) Reject(tailorID uint, reason string, at time.Time) error {
	if err := r.transition(RevisionStatusPending, RevisionStatusRejected); err != nil {
		return err
	}
	r.RejectedByID = &tailorID
	r.RejectedAt = &at
	r.RejectionReason = reason
	return nil
}

// Start begins work on an approved revision
func (r *Revision) Start(at time.Time) error {
	if err := r.transition(RevisionStatusApproved, RevisionStatusInProgress); err != nil {
		return err
	}
	r.StartedAt = &at
	return nil
}

// Complete marks the revision work as done
func (r *Revision) Complete(tailorID uint, images []string, notes string, at time.Time) error {
	if err := r.transition(RevisionStatusInProgress, RevisionStatusCompleted); err != nil {
		return err
	}
	r.CompletedByID = &tailorID
	r.CompletedAt = &at
	r.CompletionImages = images
	r.CompletionNotes = notes
	return nil
}

// CustomerApprove accepts the completed work
func (r *Revision) CustomerApprove(at time.Time) error {
	if err := r.transition(RevisionStatusCompleted, RevisionStatusCustomerApproved); err != nil {
		return err
	}
	r.CustomerApprovedAt = &at
	return nil
}

// CustomerReject refuses the completed work. The caller spawns the replacement revision.
func (r *Revision) CustomerReject(reason string, at time.Time) error {
	if err := r.transition(RevisionStatusCompleted, RevisionStatusCustomerRejected); err != nil {
		return err
	}
	r.CustomerRejectedAt = &at
	r.CustomerRejectionReason = reason
	return nil
}
