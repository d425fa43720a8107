package models

import (
	"time"

	"gorm.io/datatypes"
)

// Document is a JSON document addressed by collection and id.
// It backs the gorm implementation of the document store.
type Document struct {
	Collection string         `gorm:"primaryKey;size:100"`
	DocID      string         `gorm:"primaryKey;size:100;column:doc_id"`
	Data       datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
