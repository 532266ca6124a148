package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/yigit/motobuddies/internal/app/models"
	"github.com/yigit/motobuddies/internal/app/models/dto"
	"github.com/yigit/motobuddies/internal/pkg/apperrors"
)

const (
	inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	inviteCodeLength   = 6
	// total insert attempts before giving up on a fresh code
	inviteCodeAttempts = 5
)

// MembershipService manages groups and who belongs to them
type MembershipService interface {
	CreateGroup(ctx context.Context, name string, creatorID uuid.UUID) (*dto.GroupResponse, error)
	JoinGroup(ctx context.Context, inviteCode string, userID uuid.UUID) (*dto.GroupResponse, error)
	LeaveGroup(ctx context.Context, groupID, userID uuid.UUID) (*dto.LeaveGroupResponse, error)
	RenameGroup(ctx context.Context, groupID, userID uuid.UUID, name string) (*dto.GroupResponse, error)
	ListMyGroups(ctx context.Context, userID uuid.UUID) ([]dto.GroupResponse, error)
	GetGroup(ctx context.Context, groupID, userID uuid.UUID) (*dto.GroupDetailResponse, error)
	HasAnyGroup(ctx context.Context, userID uuid.UUID) (bool, error)
	// RequireMember returns the caller's membership or ErrNotMember
	RequireMember(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMembership, error)
}

type membershipServiceImpl struct {
	groupRepo      GroupStore
	membershipRepo MembershipStore
	profileRepo    ProfileStore
	notifications  NotificationService
	newCode        func() (string, error)
	retryWait      time.Duration
	logger         zerolog.Logger
}

// NewMembershipService creates a new MembershipService
func NewMembershipService(
	groupRepo GroupStore,
	membershipRepo MembershipStore,
	profileRepo ProfileStore,
	notifications NotificationService,
	logger zerolog.Logger,
) MembershipService {
	return &membershipServiceImpl{
		groupRepo:      groupRepo,
		membershipRepo: membershipRepo,
		profileRepo:    profileRepo,
		notifications:  notifications,
		newCode:        GenerateInviteCode,
		retryWait:      10 * time.Millisecond,
		logger:         logger,
	}
}

// GenerateInviteCode draws a code uniformly from [A-Z0-9].
func GenerateInviteCode() (string, error) {
	base := big.NewInt(int64(len(inviteCodeAlphabet)))
	var sb strings.Builder
	sb.Grow(inviteCodeLength)
	for i := 0; i < inviteCodeLength; i++ {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("error generating invite code: %w", err)
		}
		sb.WriteByte(inviteCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NormalizeInviteCode trims and upper-cases a user supplied code.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *membershipServiceImpl) CreateGroup(ctx context.Context, name string, creatorID uuid.UUID) (*dto.GroupResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.ErrGroupNameRequired
	}

	var group *models.Group
	backoff := retry.WithMaxRetries(inviteCodeAttempts-1, retry.NewConstant(s.retryWait))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		code, err := s.newCode()
		if err != nil {
			return err
		}
		candidate := &models.Group{Name: name, InviteCode: code}
		if err := s.groupRepo.CreateWithAdmin(ctx, candidate, creatorID); err != nil {
			if errors.Is(err, apperrors.ErrInviteCodeCollision) {
				s.logger.Warn().Str("inviteCode", code).Msg("Invite code collision, retrying")
				return retry.RetryableError(err)
			}
			return err
		}
		group = candidate
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInviteCodeCollision) {
			s.logger.Error().Str("creatorID", creatorID.String()).Msg("Invite code attempts exhausted")
			return nil, apperrors.ErrInviteCodeExhausted.Wrap(err)
		}
		return nil, err
	}

	s.logger.Info().
		Str("groupID", group.ID.String()).
		Str("creatorID", creatorID.String()).
		Msg("Group created")

	resp := dto.NewGroupResponse(group)
	resp.Role = models.RoleAdmin
	resp.MemberCount = 1
	return &resp, nil
}

func (s *membershipServiceImpl) JoinGroup(ctx context.Context, inviteCode string, userID uuid.UUID) (*dto.GroupResponse, error) {
	code := NormalizeInviteCode(inviteCode)
	if code == "" {
		return nil, apperrors.ErrInviteCodeRequired
	}

	group, err := s.groupRepo.GetByInviteCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if _, err := s.membershipRepo.Add(ctx, group.ID, userID, models.RoleMember); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("groupID", group.ID.String()).
		Str("userID", userID.String()).
		Msg("User joined group")

	// the join is committed; fan-out problems are only logged
	if s.notifications != nil {
		draft := models.NotificationDraft{
			Type:  models.NotificationNewMember,
			Title: "New member",
			Body:  fmt.Sprintf("%s joined %s", s.displayName(ctx, userID), group.Name),
			Link:  linkTo("/groups/%s", group.ID),
		}
		if _, err := s.notifications.NotifyGroup(ctx, group.ID, userID, draft); err != nil {
			s.logger.Error().Err(err).Str("groupID", group.ID.String()).Msg("new_member fan-out failed")
		}
	}

	resp := dto.NewGroupResponse(group)
	resp.Role = models.RoleMember
	return &resp, nil
}

func (s *membershipServiceImpl) LeaveGroup(ctx context.Context, groupID, userID uuid.UUID) (*dto.LeaveGroupResponse, error) {
	count, err := s.membershipRepo.CountForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error counting memberships: %w", err)
	}

	if err := s.membershipRepo.Remove(ctx, groupID, userID); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("groupID", groupID.String()).
		Str("userID", userID.String()).
		Msg("User left group")

	return &dto.LeaveGroupResponse{WasLastGroup: count <= 1}, nil
}

func (s *membershipServiceImpl) RenameGroup(ctx context.Context, groupID, userID uuid.UUID, name string) (*dto.GroupResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.ErrGroupNameRequired
	}

	membership, err := s.RequireMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if membership.Role != models.RoleAdmin {
		return nil, apperrors.ErrAdminRequired
	}

	if err := s.groupRepo.Rename(ctx, groupID, name); err != nil {
		return nil, err
	}
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	resp := dto.NewGroupResponse(group)
	resp.Role = membership.Role
	return &resp, nil
}

func (s *membershipServiceImpl) ListMyGroups(ctx context.Context, userID uuid.UUID) ([]dto.GroupResponse, error) {
	groups, err := s.groupRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing groups: %w", err)
	}

	responses := make([]dto.GroupResponse, 0, len(groups))
	for _, g := range groups {
		responses = append(responses, dto.NewGroupWithRoleResponse(g))
	}
	return responses, nil
}

func (s *membershipServiceImpl) GetGroup(ctx context.Context, groupID, userID uuid.UUID) (*dto.GroupDetailResponse, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	membership, err := s.RequireMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	members, err := s.membershipRepo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("error listing members: %w", err)
	}

	count, err := s.membershipRepo.CountForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error counting memberships: %w", err)
	}

	resp := &dto.GroupDetailResponse{
		GroupResponse: dto.NewGroupResponse(group),
		Members:       make([]dto.MemberResponse, 0, len(members)),
		MyRole:        membership.Role,
		IsLastGroup:   count <= 1,
	}
	resp.Role = membership.Role
	resp.MemberCount = len(members)
	for _, m := range members {
		resp.Members = append(resp.Members, dto.NewMemberResponse(m))
	}
	return resp, nil
}

func (s *membershipServiceImpl) HasAnyGroup(ctx context.Context, userID uuid.UUID) (bool, error) {
	count, err := s.membershipRepo.CountForUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("error counting memberships: %w", err)
	}
	return count > 0, nil
}

func (s *membershipServiceImpl) RequireMember(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMembership, error) {
	membership, err := s.membershipRepo.Get(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrMembershipNotFound) {
			return nil, apperrors.ErrNotMember
		}
		return nil, err
	}
	return membership, nil
}

// displayName falls back to a neutral label when the profile is missing.
func (s *membershipServiceImpl) displayName(ctx context.Context, userID uuid.UUID) string {
	return usernameOf(ctx, s.profileRepo, userID)
}
