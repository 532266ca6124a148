package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/motobuddies/internal/app/models"
	"github.com/yigit/motobuddies/internal/app/models/dto"
	"github.com/yigit/motobuddies/internal/pkg/apperrors"
)

// RSVPService toggles a rider's answer to a ride
type RSVPService interface {
	// Toggle stores status, or clears the answer when status is already stored
	Toggle(ctx context.Context, rideID, userID uuid.UUID, status models.RSVPStatus) (*dto.RSVPResponse, error)
}

type rsvpServiceImpl struct {
	rideRepo        RideStore
	participantRepo ParticipantStore
	profileRepo     ProfileStore
	membership      MembershipService
	notifications   NotificationService
	logger          zerolog.Logger
}

// NewRSVPService creates a new RSVPService
func NewRSVPService(
	rideRepo RideStore,
	participantRepo ParticipantStore,
	profileRepo ProfileStore,
	membership MembershipService,
	notifications NotificationService,
	logger zerolog.Logger,
) RSVPService {
	return &rsvpServiceImpl{
		rideRepo:        rideRepo,
		participantRepo: participantRepo,
		profileRepo:     profileRepo,
		membership:      membership,
		notifications:   notifications,
		logger:          logger,
	}
}

// NextRSVP returns the state after selecting status while current is stored.
func NextRSVP(current, selected models.RSVPStatus) models.RSVPStatus {
	if current == selected {
		return models.RSVPNone
	}
	return selected
}

func (s *rsvpServiceImpl) Toggle(ctx context.Context, rideID, userID uuid.UUID, status models.RSVPStatus) (*dto.RSVPResponse, error) {
	if !status.Valid() {
		return nil, apperrors.ErrInvalidRSVP
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if _, err := s.membership.RequireMember(ctx, ride.GroupID, userID); err != nil {
		return nil, err
	}

	current := models.RSVPNone
	existing, err := s.participantRepo.Get(ctx, rideID, userID)
	if err != nil {
		return nil, fmt.Errorf("error reading rsvp: %w", err)
	}
	if existing != nil {
		current = existing.Status
	}

	next := NextRSVP(current, status)
	if next == models.RSVPNone {
		if err := s.participantRepo.Delete(ctx, rideID, userID); err != nil {
			return nil, fmt.Errorf("error clearing rsvp: %w", err)
		}
		s.logger.Info().Str("rideID", rideID.String()).Str("userID", userID.String()).Msg("RSVP cleared")
		return &dto.RSVPResponse{Status: models.RSVPNone, Cleared: true}, nil
	}

	if _, err := s.participantRepo.Upsert(ctx, rideID, userID, next); err != nil {
		return nil, fmt.Errorf("error saving rsvp: %w", err)
	}

	s.logger.Info().
		Str("rideID", rideID.String()).
		Str("userID", userID.String()).
		Str("status", string(next)).
		Msg("RSVP saved")

	if s.notifications != nil {
		draft := models.NotificationDraft{
			Type:  models.NotificationRSVP,
			Title: "New RSVP",
			Body:  fmt.Sprintf("%s answered %s to %s", usernameOf(ctx, s.profileRepo, userID), rsvpLabel(next), ride.Title),
			Link:  linkTo("/rides/%s", rideID),
		}
		if _, err := s.notifications.NotifyRideCreator(ctx, rideID, userID, draft); err != nil {
			s.logger.Error().Err(err).Str("rideID", rideID.String()).Msg("rsvp fan-out failed")
		}
	}

	return &dto.RSVPResponse{Status: next}, nil
}

func rsvpLabel(s models.RSVPStatus) string {
	switch s {
	case models.RSVPAttending:
		return "yes"
	case models.RSVPMaybe:
		return "maybe"
	default:
		return "no"
	}
}
