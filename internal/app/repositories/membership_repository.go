package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/yigit/motobuddies/internal/app/models"
	"github.com/yigit/motobuddies/internal/db"
	"github.com/yigit/motobuddies/internal/pkg/apperrors"
	"github.com/yigit/motobuddies/internal/pkg/dberrors"
	"github.com/yigit/motobuddies/internal/pkg/logger"
)

// MembershipRepository handles group_members rows
type MembershipRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewMembershipRepository creates a new MembershipRepository
func NewMembershipRepository(database *db.PostgresDB) *MembershipRepository {
	return &MembershipRepository{
		db: database,
		sb: statementBuilder(),
	}
}

// Add inserts a membership. A second insert for the same pair fails with ErrAlreadyMember.
func (r *MembershipRepository) Add(ctx context.Context, groupID, userID uuid.UUID, role models.MemberRole) (*models.GroupMembership, error) {
	sql, args, err := r.sb.Insert("group_members").
		Columns("group_id", "user_id", "role").
		Values(groupID, userID, role).
		Suffix("RETURNING joined_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build add member query: %w", err)
	}

	m := &models.GroupMembership{GroupID: groupID, UserID: userID, Role: role}
	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&m.JoinedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, dberrors.ConstraintGroupMembersPK) {
			return nil, apperrors.ErrAlreadyMember.Wrap(err)
		}
		if dberrors.IsForeignKeyConstraintError(err, dberrors.ConstraintGroupMembersUserFK) {
			return nil, apperrors.ErrProfileNotFound.Wrap(err)
		}
		if dberrors.IsForeignKeyViolation(err) {
			return nil, apperrors.ErrGroupNotFound.Wrap(err)
		}
		logger.Error().Err(err).Str("groupID", groupID.String()).Msg("Error adding group member")
		return nil, fmt.Errorf("error adding member: %w", err)
	}
	return m, nil
}

// Remove deletes the membership; ErrMembershipNotFound if there was none.
func (r *MembershipRepository) Remove(ctx context.Context, groupID, userID uuid.UUID) error {
	sql, args, err := r.sb.Delete("group_members").
		Where(squirrel.Eq{"group_id": groupID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build remove member query: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("groupID", groupID.String()).Msg("Error removing group member")
		return fmt.Errorf("error removing member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMembershipNotFound
	}
	return nil
}

// Get returns the membership of userID in groupID or ErrMembershipNotFound
func (r *MembershipRepository) Get(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMembership, error) {
	sql, args, err := r.sb.Select("group_id", "user_id", "role", "joined_at").
		From("group_members").
		Where(squirrel.Eq{"group_id": groupID, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get member query: %w", err)
	}

	var m models.GroupMembership
	if err := pgxscan.Get(ctx, r.db.Pool, &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperrors.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("error getting member: %w", err)
	}
	return &m, nil
}

// CountForUser returns how many groups userID belongs to
func (r *MembershipRepository) CountForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	sql, args, err := r.sb.Select("COUNT(*)").
		From("group_members").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count memberships query: %w", err)
	}

	var count int
	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting memberships: %w", err)
	}
	return count, nil
}

type memberRow struct {
	GroupID   uuid.UUID         `db:"group_id"`
	UserID    uuid.UUID         `db:"user_id"`
	Role      models.MemberRole `db:"role"`
	JoinedAt  time.Time         `db:"joined_at"`
	Username  string            `db:"username"`
	AvatarURL *string           `db:"avatar_url"`
	BikeModel *string           `db:"bike_model"`
	CreatedAt time.Time         `db:"created_at"`
}

// ListMembers returns the members of groupID with their profiles, admins first
func (r *MembershipRepository) ListMembers(ctx context.Context, groupID uuid.UUID) ([]*models.GroupMembership, error) {
	sql, args, err := r.sb.Select(
		"gm.group_id", "gm.user_id", "gm.role", "gm.joined_at",
		"p.username", "p.avatar_url", "p.bike_model", "p.created_at",
	).
		From("group_members gm").
		Join("profiles p ON p.id = gm.user_id").
		Where(squirrel.Eq{"gm.group_id": groupID}).
		OrderBy("gm.role ASC", "gm.joined_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list members query: %w", err)
	}

	var rows []memberRow
	if err := pgxscan.Select(ctx, r.db.Pool, &rows, sql, args...); err != nil {
		logger.Error().Err(err).Str("groupID", groupID.String()).Msg("Error listing group members")
		return nil, fmt.Errorf("error listing members: %w", err)
	}

	members := make([]*models.GroupMembership, 0, len(rows))
	for _, row := range rows {
		members = append(members, &models.GroupMembership{
			GroupID:  row.GroupID,
			UserID:   row.UserID,
			Role:     row.Role,
			JoinedAt: row.JoinedAt,
			Profile: &models.Profile{
				ID:        row.UserID,
				Username:  row.Username,
				AvatarURL: row.AvatarURL,
				BikeModel: row.BikeModel,
				CreatedAt: row.CreatedAt,
			},
		})
	}
	return members, nil
}

// ListMemberIDs returns the user ids of every member of groupID
func (r *MembershipRepository) ListMemberIDs(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	sql, args, err := r.sb.Select("user_id").
		From("group_members").
		Where(squirrel.Eq{"group_id": groupID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list member ids query: %w", err)
	}

	ids := []uuid.UUID{}
	if err := pgxscan.Select(ctx, r.db.Pool, &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("error listing member ids: %w", err)
	}
	return ids, nil
}
