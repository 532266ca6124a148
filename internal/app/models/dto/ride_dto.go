package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/yigit/motobuddies/internal/app/models"
)

// --- Request DTOs ---

// CreateRideRequest represents ride creation data. The GPX file travels in
// the same multipart form under the "gpx" key.
type CreateRideRequest struct {
	GroupID          string   `json:"groupId" form:"groupId" binding:"required,uuid"`
	Title            string   `json:"title" form:"title" binding:"required,max=120"`
	Description      string   `json:"description" form:"description" binding:"max=2000"`
	DateTime         string   `json:"dateTime" form:"dateTime" binding:"required" example:"2025-06-14T08:30:00+02:00"`
	StartLat         *float64 `json:"startLat" form:"startLat" binding:"required,min=-90,max=90"`
	StartLon         *float64 `json:"startLon" form:"startLon" binding:"required,min=-180,max=180"`
	MeetingPointName string   `json:"meetingPointName" form:"meetingPointName" binding:"max=200"`
}

// RSVPRequest selects a status; selecting the current one clears it
type RSVPRequest struct {
	Status models.RSVPStatus `json:"status" binding:"required,oneof=attending maybe declined"`
}

// --- Response DTOs ---

// RSVPResponse reports the state after a toggle
type RSVPResponse struct {
	Status  models.RSVPStatus `json:"status" example:"attending"`
	Cleared bool              `json:"cleared"`
}

// ParticipantResponse is one RSVP row with the rider's profile
type ParticipantResponse struct {
	UserID    uuid.UUID         `json:"userId"`
	Username  string            `json:"username"`
	AvatarURL *string           `json:"avatarUrl,omitempty"`
	BikeModel *string           `json:"bikeModel,omitempty"`
	Status    models.RSVPStatus `json:"status"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// RideDetailResponse is the ride page payload
type RideDetailResponse struct {
	Ride            models.Ride           `json:"ride"`
	GroupName       string                `json:"groupName"`
	CreatorUsername string                `json:"creatorUsername"`
	Participants    []ParticipantResponse `json:"participants"`
	AttendingCount  int                   `json:"attendingCount"`
	MaybeCount      int                   `json:"maybeCount"`
	MyStatus        models.RSVPStatus     `json:"myStatus"`
	IsCreator       bool                  `json:"isCreator"`
	IsPast          bool                  `json:"isPast"`
}

// GPXSummaryResponse describes a parsed track
type GPXSummaryResponse struct {
	Found          bool         `json:"found"`
	DistanceKm     float64      `json:"distanceKm" example:"142.7"`
	ElevationGainM float64      `json:"elevationGainM" example:"1830"`
	ElevationLossM float64      `json:"elevationLossM" example:"1790"`
	PointCount     int          `json:"pointCount"`
	Points         [][2]float64 `json:"points,omitempty"`
	Bounds         *[4]float64  `json:"bounds,omitempty"`
}

// WeatherResponse is the forecast widget payload
type WeatherResponse struct {
	Available                bool    `json:"available"`
	Reason                   string  `json:"reason,omitempty" example:"WEATHER_OUT_OF_RANGE"`
	Message                  string  `json:"message,omitempty"`
	TemperatureC             int     `json:"temperatureC,omitempty"`
	PrecipitationProbability int     `json:"precipitationProbability,omitempty"`
	WeatherCode              int     `json:"weatherCode,omitempty"`
	Description              string  `json:"description,omitempty" example:"Partly cloudy"`
	WindSpeedKmh             int     `json:"windSpeedKmh,omitempty"`
	Rainy                    bool    `json:"rainy"`
	Hour                     string  `json:"hour,omitempty" example:"2025-06-14T08:00"`
	DaysAhead                float64 `json:"daysAhead"`
}

// GeocodeResult is one ranked place
type GeocodeResult struct {
	DisplayName string  `json:"displayName"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// DashboardResponse lists upcoming rides across the caller's groups
type DashboardResponse struct {
	HasGroup bool                 `json:"hasGroup"`
	Rides    []DashboardRideEntry `json:"rides"`
}

// DashboardRideEntry is one upcoming ride
type DashboardRideEntry struct {
	models.RideSummary
	Attendees []ParticipantResponse `json:"attendees"`
	MyStatus  models.RSVPStatus     `json:"myStatus"`
}

// CalendarResponse is a Monday-first month grid
type CalendarResponse struct {
	Year  int              `json:"year"`
	Month int              `json:"month"`
	Weeks [][]*CalendarDay `json:"weeks"`
}

// CalendarDay is one cell of the grid; nil cells are leading or trailing blanks
type CalendarDay struct {
	Day   int                  `json:"day"`
	Date  string               `json:"date" example:"2025-06-14"`
	Rides []models.RideSummary `json:"rides,omitempty"`
}

// NewParticipantResponse maps a participant with its profile.
func NewParticipantResponse(p *models.Participant) ParticipantResponse {
	resp := ParticipantResponse{UserID: p.UserID, Status: p.Status, UpdatedAt: p.UpdatedAt}
	if p.Profile != nil {
		resp.Username = p.Profile.Username
		resp.AvatarURL = p.Profile.AvatarURL
		resp.BikeModel = p.Profile.BikeModel
	}
	return resp
}
