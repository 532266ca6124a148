package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yigit/motobuddies/internal/app/models"
	"github.com/yigit/motobuddies/internal/pkg/geocode"
	"github.com/yigit/motobuddies/internal/pkg/gpx"
	"github.com/yigit/motobuddies/internal/pkg/weather"
)

// The services depend on these interfaces; the repositories package provides
// the PostgreSQL implementations and the tests provide in-memory ones.

// GroupStore persists groups
type GroupStore interface {
	CreateWithAdmin(ctx context.Context, group *models.Group, adminID uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error)
	GetByInviteCode(ctx context.Context, code string) (*models.Group, error)
	Rename(ctx context.Context, id uuid.UUID, name string) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.GroupWithRole, error)
}

// MembershipStore persists group memberships
type MembershipStore interface {
	Add(ctx context.Context, groupID, userID uuid.UUID, role models.MemberRole) (*models.GroupMembership, error)
	Remove(ctx context.Context, groupID, userID uuid.UUID) error
	Get(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMembership, error)
	CountForUser(ctx context.Context, userID uuid.UUID) (int, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]*models.GroupMembership, error)
	ListMemberIDs(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error)
}

// RideStore persists rides
type RideStore interface {
	Create(ctx context.Context, ride *models.Ride) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RideSummary, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetGPXURL(ctx context.Context, id uuid.UUID, url *string) error
	ListUpcomingForUser(ctx context.Context, userID uuid.UUID, from time.Time, limit int) ([]*models.RideSummary, error)
	ListForUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.RideSummary, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.RideSummary, error)
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]*models.RideSummary, error)
}

// ParticipantStore persists RSVPs. Get returns nil, nil when there is no row.
type ParticipantStore interface {
	Get(ctx context.Context, rideID, userID uuid.UUID) (*models.Participant, error)
	Upsert(ctx context.Context, rideID, userID uuid.UUID, status models.RSVPStatus) (*models.Participant, error)
	Delete(ctx context.Context, rideID, userID uuid.UUID) error
	ListByRides(ctx context.Context, rideIDs ...uuid.UUID) ([]*models.Participant, error)
	ListUserIDsByStatus(ctx context.Context, rideID uuid.UUID, statuses ...models.RSVPStatus) ([]uuid.UUID, error)
}

// NotificationStore persists notifications
type NotificationStore interface {
	InsertBatch(ctx context.Context, rows []*models.Notification) ([]*models.Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// ProfileStore persists profiles
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, p *models.Profile) error
	GetEmail(ctx context.Context, id uuid.UUID) (string, error)
}

// Publisher receives every notification after it is stored. The websocket
// hub and the NATS bridge implement it.
type Publisher interface {
	Publish(ctx context.Context, n *models.Notification) error
}

// TrackFetcher downloads and summarizes a stored GPX file
type TrackFetcher interface {
	FetchAndSummarize(ctx context.Context, url string) (gpx.Summary, error)
}

// Forecaster returns the forecast hour of a ride
type Forecaster interface {
	ForecastAt(ctx context.Context, lat, lon float64, at time.Time) (*weather.Forecast, error)
	DaysAhead(at time.Time) float64
}

// PlaceSearcher resolves free text to places
type PlaceSearcher interface {
	Search(ctx context.Context, key, query string) ([]geocode.Place, error)
}
