package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Notification statuses. Transitions only move forward:
// unread -> read, and any status -> archived.
const (
	StatusUnread   = "unread"
	StatusRead     = "read"
	StatusArchived = "archived"
)

// Notification is a message delivered to a single user.
type Notification struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;index:idx_notif_user_status" json:"user_id"`
	Type       string         `gorm:"size:64;not null" json:"type"`
	Title      string         `gorm:"size:255;not null" json:"title"`
	Message    string         `gorm:"type:text" json:"message"`
	Priority   string         `gorm:"size:16;not null;default:normal" json:"priority"`
	Status     string         `gorm:"size:16;not null;default:unread;index:idx_notif_user_status" json:"status"`
	ActionURL  string         `gorm:"size:500" json:"action_url,omitempty"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"`
	CreatedBy  *uint          `json:"created_by,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
	ReadAt     *time.Time     `json:"read_at,omitempty"`
	ArchivedAt *time.Time     `json:"archived_at,omitempty"`
}

// BeforeCreate assigns an id and the initial status.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = StatusUnread
	}
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	return nil
}

// CanTransition reports whether moving from the current status to next is allowed.
func (n Notification) CanTransition(next string) bool {
	switch next {
	case StatusArchived:
		return true
	case StatusRead:
		return n.Status == StatusUnread || n.Status == StatusRead
	default:
		return false
	}
}
