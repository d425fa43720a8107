package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is a stored role definition grouping permissions.
// A stored role whose Key matches a built-in role overrides its defaults.
type Role struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Key         string         `gorm:"uniqueIndex;size:50;not null" json:"key"`
	DisplayName string         `gorm:"size:100;not null" json:"display_name"`
	Description string         `gorm:"size:500" json:"description,omitempty"`
	IsSystem    bool           `gorm:"default:false" json:"is_system"`
	// Permissions holds the set of permissions this role grants.
	// Many-to-many relationship via role_permissions join table.
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
}

// Codes returns the role's permissions in "module:action" format.
func (r Role) Codes() []string {
	codes := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		codes = append(codes, p.Code())
	}
	return codes
}

// Permission represents a single action allowed on a module.
// Format: "module:action" (e.g., "events:create", "settings:update").
type Permission struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Module      string    `gorm:"size:50;not null;uniqueIndex:idx_perm_module_action" json:"module"`
	Action      string    `gorm:"size:50;not null;uniqueIndex:idx_perm_module_action" json:"action"`
	Description string    `gorm:"size:200" json:"description,omitempty"`
}

// Code returns the permission in "module:action" format for matching.
func (p Permission) Code() string {
	return p.Module + ":" + p.Action
}
