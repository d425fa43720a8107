package models

import (
	"time"

	"gorm.io/gorm"
)

// User status values. Only active users receive permissions.
const (
	UserStatusActive   = "active"
	UserStatusPending  = "pending"
	UserStatusInactive = "inactive"
)

// User represents a member account of the church application.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string         `gorm:"size:255" json:"name,omitempty"`
	// Role is a built-in role key or the key of a stored custom role.
	Role   string `gorm:"size:50;not null;default:member;index" json:"role"`
	Status string `gorm:"size:20;not null;default:pending" json:"status"`
}
