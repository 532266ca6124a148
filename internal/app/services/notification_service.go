package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/motobuddies/internal/app/models"
	"github.com/yigit/motobuddies/internal/pkg/apperrors"
)

// inboxLimit is how many notifications the inbox shows
const inboxLimit = 20

// DispatchRequest is a server-side fan-out request. GroupID wins over RideID.
// SenderID is nil for API key callers; a signed-in sender may only notify
// groups it belongs to and only as itself.
type DispatchRequest struct {
	GroupID      *uuid.UUID
	RideID       *uuid.UUID
	ExceptUserID uuid.UUID
	SenderID     *uuid.UUID
	Draft        models.NotificationDraft
}

// NotificationService decides who is notified about an event, stores one
// row per target and publishes the stored rows.
type NotificationService interface {
	// NotifyGroup targets every member of groupID except exceptUserID
	NotifyGroup(ctx context.Context, groupID, exceptUserID uuid.UUID, draft models.NotificationDraft) (int, error)
	// NotifyRideCreator targets the creator of rideID unless the creator is authorID
	NotifyRideCreator(ctx context.Context, rideID, authorID uuid.UUID, draft models.NotificationDraft) (int, error)
	// NotifyRideParticipants targets users attending or maybe attending rideID
	NotifyRideParticipants(ctx context.Context, rideID uuid.UUID, draft models.NotificationDraft) (int, error)
	Dispatch(ctx context.Context, req DispatchRequest) (int, error)

	List(ctx context.Context, userID uuid.UUID) ([]*models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationServiceImpl struct {
	notificationRepo NotificationStore
	groupRepo        GroupStore
	membershipRepo   MembershipStore
	rideRepo         RideStore
	participantRepo  ParticipantStore
	publisher        Publisher
	logger           zerolog.Logger
}

// NewNotificationService creates a new notification service. A nil publisher disables realtime delivery.
func NewNotificationService(
	notificationRepo NotificationStore,
	groupRepo GroupStore,
	membershipRepo MembershipStore,
	rideRepo RideStore,
	participantRepo ParticipantStore,
	publisher Publisher,
	logger zerolog.Logger,
) NotificationService {
	return &notificationServiceImpl{
		notificationRepo: notificationRepo,
		groupRepo:        groupRepo,
		membershipRepo:   membershipRepo,
		rideRepo:         rideRepo,
		participantRepo:  participantRepo,
		publisher:        publisher,
		logger:           logger,
	}
}

func (s *notificationServiceImpl) NotifyGroup(ctx context.Context, groupID, exceptUserID uuid.UUID, draft models.NotificationDraft) (int, error) {
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		return 0, err
	}

	memberIDs, err := s.membershipRepo.ListMemberIDs(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("error resolving group members: %w", err)
	}

	targets := make([]uuid.UUID, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id != exceptUserID {
			targets = append(targets, id)
		}
	}
	return s.fanOut(ctx, targets, draft)
}

func (s *notificationServiceImpl) NotifyRideCreator(ctx context.Context, rideID, authorID uuid.UUID, draft models.NotificationDraft) (int, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return 0, err
	}
	if ride.CreatedBy == authorID {
		return 0, nil
	}
	return s.fanOut(ctx, []uuid.UUID{ride.CreatedBy}, draft)
}

func (s *notificationServiceImpl) NotifyRideParticipants(ctx context.Context, rideID uuid.UUID, draft models.NotificationDraft) (int, error) {
	if _, err := s.rideRepo.GetByID(ctx, rideID); err != nil {
		return 0, err
	}

	targets, err := s.participantRepo.ListUserIDsByStatus(ctx, rideID, models.RSVPAttending, models.RSVPMaybe)
	if err != nil {
		return 0, fmt.Errorf("error resolving ride participants: %w", err)
	}
	return s.fanOut(ctx, targets, draft)
}

func (s *notificationServiceImpl) Dispatch(ctx context.Context, req DispatchRequest) (int, error) {
	if req.SenderID != nil {
		if err := s.authorizeSender(ctx, req); err != nil {
			return 0, err
		}
	}

	switch {
	case req.GroupID != nil:
		return s.NotifyGroup(ctx, *req.GroupID, req.ExceptUserID, req.Draft)
	case req.RideID != nil:
		return s.NotifyRideCreator(ctx, *req.RideID, req.ExceptUserID, req.Draft)
	default:
		return 0, nil
	}
}

func (s *notificationServiceImpl) authorizeSender(ctx context.Context, req DispatchRequest) error {
	sender := *req.SenderID
	if req.ExceptUserID != sender {
		return apperrors.ErrSenderMismatch
	}

	var groupID uuid.UUID
	switch {
	case req.GroupID != nil:
		if _, err := s.groupRepo.GetByID(ctx, *req.GroupID); err != nil {
			return err
		}
		groupID = *req.GroupID
	case req.RideID != nil:
		ride, err := s.rideRepo.GetByID(ctx, *req.RideID)
		if err != nil {
			return err
		}
		groupID = ride.GroupID
	default:
		return nil
	}

	if _, err := s.membershipRepo.Get(ctx, groupID, sender); err != nil {
		if errors.Is(err, apperrors.ErrMembershipNotFound) {
			return apperrors.ErrNotMember
		}
		return err
	}
	return nil
}

// fanOut writes one row per target in a single batch, then publishes each row.
func (s *notificationServiceImpl) fanOut(ctx context.Context, targets []uuid.UUID, draft models.NotificationDraft) (int, error) {
	if !draft.Type.Valid() {
		return 0, apperrors.NewValidationError("type", fmt.Sprintf("unknown notification type %q", draft.Type))
	}
	if len(targets) == 0 {
		return 0, nil
	}

	rows := make([]*models.Notification, 0, len(targets))
	for _, userID := range targets {
		rows = append(rows, &models.Notification{
			UserID: userID,
			Type:   draft.Type,
			Title:  draft.Title,
			Body:   draft.Body,
			Link:   draft.Link,
		})
	}

	inserted, err := s.notificationRepo.InsertBatch(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("error storing %d notifications: %w", len(rows), err)
	}

	s.logger.Info().
		Str("type", string(draft.Type)).
		Int("count", len(inserted)).
		Msg("Notifications fanned out")

	if s.publisher != nil {
		for _, n := range inserted {
			if err := s.publisher.Publish(ctx, n); err != nil {
				s.logger.Warn().Err(err).Str("notificationID", n.ID.String()).Msg("Failed to publish notification")
			}
		}
	}
	return len(inserted), nil
}

func (s *notificationServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]*models.Notification, int, error) {
	items, err := s.notificationRepo.ListForUser(ctx, userID, inboxLimit)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing notifications: %w", err)
	}
	unread, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting unread notifications: %w", err)
	}
	return items, unread, nil
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.notificationRepo.MarkRead(ctx, id, userID)
}

func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notificationRepo.MarkAllRead(ctx, userID)
}
