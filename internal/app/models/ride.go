package models

import (
	"time"

	"github.com/google/uuid"
)

// Ride is a scheduled group outing
type Ride struct {
	ID               uuid.UUID `json:"id" db:"id"`
	GroupID          uuid.UUID `json:"groupId" db:"group_id"`
	CreatedBy        uuid.UUID `json:"createdBy" db:"created_by"`
	Title            string    `json:"title" db:"title"`
	Description      *string   `json:"description,omitempty" db:"description"`
	DateTime         time.Time `json:"dateTime" db:"date_time"`
	StartLat         float64   `json:"startLat" db:"start_lat"`
	StartLon         float64   `json:"startLon" db:"start_lon"`
	MeetingPointName *string   `json:"meetingPointName,omitempty" db:"meeting_point_name"`
	GPXURL           *string   `json:"gpxUrl,omitempty" db:"gpx_url"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
}

// IsPast reports whether the ride started before now.
func (r *Ride) IsPast(now time.Time) bool {
	return r.DateTime.Before(now)
}

// Participant is a stored RSVP
type Participant struct {
	RideID    uuid.UUID  `json:"rideId" db:"ride_id"`
	UserID    uuid.UUID  `json:"userId" db:"user_id"`
	Status    RSVPStatus `json:"status" db:"status"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`

	// Related entities
	Profile *Profile `json:"profile,omitempty" db:"-"`
}

// RideSummary is a ride row enriched for list views
type RideSummary struct {
	Ride
	GroupName      string `json:"groupName" db:"group_name"`
	AttendingCount int    `json:"attendingCount" db:"attending_count"`
	MaybeCount     int    `json:"maybeCount" db:"maybe_count"`
}
