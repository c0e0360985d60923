package models

import (
	"time"

	"gorm.io/gorm"
)

// Role identifies what a user may do on the marketplace
type Role string

const (
	RoleCustomer Role = "customer"
	RoleTailor   Role = "tailor"
	RoleAdmin    Role = "admin"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleTailor, RoleAdmin:
		return true
	}
	return false
}

// User represents a user in the system (customer, tailor or admin)
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Auth0ID   string         `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Role      Role           `gorm:"not null;default:'customer'" json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// Actor is the verified identity behind a request
type Actor struct {
	UserID uint
	Role   Role
}
