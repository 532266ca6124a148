package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/motobuddies/internal/app/models"
	"github.com/yigit/motobuddies/internal/db"
	"github.com/yigit/motobuddies/internal/pkg/apperrors"
	"github.com/yigit/motobuddies/internal/pkg/dberrors"
	"github.com/yigit/motobuddies/internal/pkg/logger"
)

// GroupRepository handles group database operations
type GroupRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewGroupRepository creates a new GroupRepository
func NewGroupRepository(database *db.PostgresDB) *GroupRepository {
	return &GroupRepository{
		db: database,
		sb: statementBuilder(),
	}
}

var groupColumns = []string{"id", "name", "invite_code", "created_at"}

// CreateWithAdmin inserts the group and the creator's admin membership in one
// transaction. A clash on the invite code returns ErrInviteCodeCollision.
func (r *GroupRepository) CreateWithAdmin(ctx context.Context, group *models.Group, adminID uuid.UUID) error {
	groupSQL, groupArgs, err := r.sb.Insert("groups").
		Columns("name", "invite_code").
		Values(group.Name, group.InviteCode).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create group query: %w", err)
	}

	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, groupSQL, groupArgs...).Scan(&group.ID, &group.CreatedAt); err != nil {
			if dberrors.IsDuplicateConstraintError(err, dberrors.ConstraintGroupsInviteCode) {
				return apperrors.ErrInviteCodeCollision.Wrap(err)
			}
			logger.Error().Err(err).Msg("Error executing create group query")
			return fmt.Errorf("error creating group: %w", err)
		}

		memberSQL, memberArgs, err := r.sb.Insert("group_members").
			Columns("group_id", "user_id", "role").
			Values(group.ID, adminID, models.RoleAdmin).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build admin membership query: %w", err)
		}
		if _, err := tx.Exec(ctx, memberSQL, memberArgs...); err != nil {
			if dberrors.IsForeignKeyConstraintError(err, dberrors.ConstraintGroupMembersUserFK) {
				return apperrors.ErrProfileNotFound.Wrap(err)
			}
			logger.Error().Err(err).Str("groupID", group.ID.String()).Msg("Error inserting admin membership")
			return fmt.Errorf("error adding group admin: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a group by ID
func (r *GroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id}, apperrors.ErrGroupNotFound)
}

// GetByInviteCode retrieves a group by its exact invite code
func (r *GroupRepository) GetByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	return r.getOne(ctx, squirrel.Eq{"invite_code": code}, apperrors.ErrInviteCodeNotFound)
}

func (r *GroupRepository) getOne(ctx context.Context, where squirrel.Sqlizer, notFound error) (*models.Group, error) {
	sql, args, err := r.sb.Select(groupColumns...).
		From("groups").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get group query: %w", err)
	}

	var group models.Group
	if err := pgxscan.Get(ctx, r.db.Pool, &group, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, notFound
		}
		logger.Error().Err(err).Msg("Error scanning group row")
		return nil, fmt.Errorf("error getting group: %w", err)
	}
	return &group, nil
}

// Rename updates the only mutable column of a group
func (r *GroupRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	sql, args, err := r.sb.Update("groups").
		Set("name", name).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build rename group query: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("groupID", id.String()).Msg("Error renaming group")
		return fmt.Errorf("error renaming group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrGroupNotFound
	}
	return nil
}

// ListForUser returns the groups userID belongs to with role and member count
func (r *GroupRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.GroupWithRole, error) {
	sql, args, err := r.sb.Select(
		"g.id", "g.name", "g.invite_code", "g.created_at", "gm.role",
		"(SELECT COUNT(*) FROM group_members c WHERE c.group_id = g.id) AS member_count",
	).
		From("groups g").
		Join("group_members gm ON gm.group_id = g.id").
		Where(squirrel.Eq{"gm.user_id": userID}).
		OrderBy("gm.joined_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list groups query: %w", err)
	}

	groups := []*models.GroupWithRole{}
	if err := pgxscan.Select(ctx, r.db.Pool, &groups, sql, args...); err != nil {
		logger.Error().Err(err).Str("userID", userID.String()).Msg("Error listing groups")
		return nil, fmt.Errorf("error listing groups: %w", err)
	}
	return groups, nil
}
