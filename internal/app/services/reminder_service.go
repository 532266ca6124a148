package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/motobuddies/internal/app/models"
	"github.com/yigit/motobuddies/internal/pkg/email"
)

// ReminderResult counts what one reminder run did
type ReminderResult struct {
	Rides         int `json:"rides"`
	Notifications int `json:"notifications"`
	Emails        int `json:"emails"`
}

// ReminderService reminds riders of rides starting soon
type ReminderService interface {
	// SendReminders handles every ride starting within the next window
	SendReminders(ctx context.Context, window time.Duration) (*ReminderResult, error)
}

type reminderServiceImpl struct {
	rideRepo        RideStore
	participantRepo ParticipantStore
	profileRepo     ProfileStore
	notifications   NotificationService
	mailer          email.EmailService
	location        *time.Location
	now             func() time.Time
	logger          zerolog.Logger
}

// NewReminderService creates a new ReminderService. A nil mailer disables emails.
func NewReminderService(
	rideRepo RideStore,
	participantRepo ParticipantStore,
	profileRepo ProfileStore,
	notifications NotificationService,
	mailer email.EmailService,
	location *time.Location,
	logger zerolog.Logger,
) ReminderService {
	if location == nil {
		location = time.UTC
	}
	return &reminderServiceImpl{
		rideRepo:        rideRepo,
		participantRepo: participantRepo,
		profileRepo:     profileRepo,
		notifications:   notifications,
		mailer:          mailer,
		location:        location,
		now:             time.Now,
		logger:          logger,
	}
}

func (s *reminderServiceImpl) SendReminders(ctx context.Context, window time.Duration) (*ReminderResult, error) {
	if window <= 0 {
		return nil, fmt.Errorf("reminder window must be positive, got %s", window)
	}

	from := s.now()
	rides, err := s.rideRepo.ListStartingBetween(ctx, from, from.Add(window))
	if err != nil {
		return nil, fmt.Errorf("error listing upcoming rides: %w", err)
	}

	result := &ReminderResult{}
	for _, ride := range rides {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Rides++

		starts := ride.DateTime.In(s.location)
		draft := models.NotificationDraft{
			Type:  models.NotificationRideReminder,
			Title: "Ride reminder",
			Body:  fmt.Sprintf("%s starts %s", ride.Title, starts.Format("Mon 2 Jan at 15:04")),
			Link:  linkTo("/rides/%s", ride.ID),
		}
		count, err := s.notifications.NotifyRideParticipants(ctx, ride.ID, draft)
		if err != nil {
			s.logger.Error().Err(err).Str("rideID", ride.ID.String()).Msg("ride_reminder fan-out failed")
			continue
		}
		result.Notifications += count

		if s.mailer != nil {
			result.Emails += s.emailParticipants(ctx, ride, starts)
		}
	}

	s.logger.Info().
		Int("rides", result.Rides).
		Int("notifications", result.Notifications).
		Int("emails", result.Emails).
		Msg("Ride reminders sent")
	return result, nil
}

func (s *reminderServiceImpl) emailParticipants(ctx context.Context, ride *models.RideSummary, starts time.Time) int {
	participants, err := s.participantRepo.ListByRides(ctx, ride.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("rideID", ride.ID.String()).Msg("Failed to list participants for reminder emails")
		return 0
	}

	meeting := ""
	if ride.MeetingPointName != nil {
		meeting = *ride.MeetingPointName
	}

	sent := 0
	for _, p := range participants {
		if p.Status != models.RSVPAttending && p.Status != models.RSVPMaybe {
			continue
		}
		address, err := s.profileRepo.GetEmail(ctx, p.UserID)
		if err != nil || address == "" {
			s.logger.Warn().Err(err).Str("userID", p.UserID.String()).Msg("No email address for reminder")
			continue
		}

		msg := email.RideReminder{
			ToEmail:   address,
			ToName:    participantName(p),
			RideTitle: ride.Title,
			GroupName: ride.GroupName,
			StartsAt:  starts,
			Meeting:   meeting,
			Link:      fmt.Sprintf("/rides/%s", ride.ID),
		}
		if err := s.mailer.SendRideReminder(msg); err != nil {
			s.logger.Error().Err(err).Str("userID", p.UserID.String()).Msg("Failed to send reminder email")
			continue
		}
		sent++
	}
	return sent
}

func participantName(p *models.Participant) string {
	if p.Profile != nil && p.Profile.Username != "" {
		return p.Profile.Username
	}
	return "rider"
}

