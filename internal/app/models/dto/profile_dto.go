package dto

import (
	"time"

	"github.com/google/uuid"
)

// UpdateProfileRequest edits the caller's own profile.
// Brand and model are stored as one "Brand Model" string.
type UpdateProfileRequest struct {
	Username  string  `json:"username" binding:"required,max=40"`
	BikeBrand string  `json:"bikeBrand" binding:"max=40"`
	BikeModel string  `json:"bikeModel" binding:"max=60"`
	AvatarURL *string `json:"avatarUrl" binding:"omitempty,url"`
}

// ProfileResponse represents a profile with the bike split back into parts
type ProfileResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatarUrl,omitempty"`
	Bike      *string   `json:"bike,omitempty" example:"Ducati Monster 821"`
	BikeBrand string    `json:"bikeBrand,omitempty" example:"Ducati"`
	BikeModel string    `json:"bikeModel,omitempty" example:"Monster 821"`
	BrandLogo string    `json:"brandLogo,omitempty" example:"/brands/ducati.svg"`
	CreatedAt time.Time `json:"createdAt"`
}
