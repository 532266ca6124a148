package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/yigit/motobuddies/internal/app/models"
	"github.com/yigit/motobuddies/internal/db"
	"github.com/yigit/motobuddies/internal/pkg/apperrors"
	"github.com/yigit/motobuddies/internal/pkg/logger"
)

// ProfileRepository handles profile rows. Profiles are created by a
// database trigger when the auth provider inserts a user.
type ProfileRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(database *db.PostgresDB) *ProfileRepository {
	return &ProfileRepository{
		db: database,
		sb: statementBuilder(),
	}
}

// GetByID retrieves a profile by user ID
func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	sql, args, err := r.sb.Select("id", "username", "avatar_url", "bike_model", "created_at").
		From("profiles").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get profile query: %w", err)
	}

	var p models.Profile
	if err := pgxscan.Get(ctx, r.db.Pool, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperrors.ErrProfileNotFound
		}
		logger.Error().Err(err).Str("userID", id.String()).Msg("Error scanning profile row")
		return nil, fmt.Errorf("error getting profile: %w", err)
	}
	return &p, nil
}

// Update writes the owner-editable columns
func (r *ProfileRepository) Update(ctx context.Context, p *models.Profile) error {
	sql, args, err := r.sb.Update("profiles").
		SetMap(map[string]interface{}{
			"username":   p.Username,
			"avatar_url": p.AvatarURL,
			"bike_model": p.BikeModel,
		}).
		Where(squirrel.Eq{"id": p.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update profile query: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("userID", p.ID.String()).Msg("Error updating profile")
		return fmt.Errorf("error updating profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrProfileNotFound
	}
	return nil
}

// GetEmail reads the address of userID from the auth schema
func (r *ProfileRepository) GetEmail(ctx context.Context, id uuid.UUID) (string, error) {
	sql, args, err := r.sb.Select("COALESCE(email, '')").
		From("auth.users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build get email query: %w", err)
	}

	var email string
	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&email); err != nil {
		if pgxscan.NotFound(err) {
			return "", apperrors.ErrProfileNotFound
		}
		return "", fmt.Errorf("error getting email: %w", err)
	}
	return email, nil
}
