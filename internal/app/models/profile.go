package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the public face of an authenticated user
type Profile struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	AvatarURL *string   `json:"avatarUrl,omitempty" db:"avatar_url"`
	BikeModel *string   `json:"bikeModel,omitempty" db:"bike_model"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
