package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a per-user inbox entry
type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"userId" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Body      string           `json:"body" db:"body"`
	Link      *string          `json:"link,omitempty" db:"link"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
}

// NotificationDraft is the payload of one fan-out event before targets are resolved
type NotificationDraft struct {
	Type  NotificationType
	Title string
	Body  string
	Link  *string
}
