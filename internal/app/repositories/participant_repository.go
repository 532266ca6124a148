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
	"github.com/yigit/motobuddies/internal/pkg/logger"
)

// ParticipantRepository handles RSVP rows
type ParticipantRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewParticipantRepository creates a new ParticipantRepository
func NewParticipantRepository(database *db.PostgresDB) *ParticipantRepository {
	return &ParticipantRepository{
		db: database,
		sb: statementBuilder(),
	}
}

// Get returns the stored RSVP or nil when the user has not responded
func (r *ParticipantRepository) Get(ctx context.Context, rideID, userID uuid.UUID) (*models.Participant, error) {
	sql, args, err := r.sb.Select("ride_id", "user_id", "status", "updated_at").
		From("participants").
		Where(squirrel.Eq{"ride_id": rideID, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get participant query: %w", err)
	}

	var p models.Participant
	if err := pgxscan.Get(ctx, r.db.Pool, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting participant: %w", err)
	}
	return &p, nil
}

// Upsert stores status for the pair, overwriting any previous answer
func (r *ParticipantRepository) Upsert(ctx context.Context, rideID, userID uuid.UUID, status models.RSVPStatus) (*models.Participant, error) {
	sql, args, err := r.sb.Insert("participants").
		Columns("ride_id", "user_id", "status", "updated_at").
		Values(rideID, userID, status, squirrel.Expr("now()")).
		Suffix("ON CONFLICT ON CONSTRAINT participants_pkey DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at RETURNING updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build upsert participant query: %w", err)
	}

	p := &models.Participant{RideID: rideID, UserID: userID, Status: status}
	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&p.UpdatedAt); err != nil {
		logger.Error().Err(err).Str("rideID", rideID.String()).Msg("Error upserting participant")
		return nil, fmt.Errorf("error saving rsvp: %w", err)
	}
	return p, nil
}

// Delete clears the RSVP of userID. Deleting a missing row is not an error.
func (r *ParticipantRepository) Delete(ctx context.Context, rideID, userID uuid.UUID) error {
	sql, args, err := r.sb.Delete("participants").
		Where(squirrel.Eq{"ride_id": rideID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete participant query: %w", err)
	}
	if _, err := r.db.Pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error clearing rsvp: %w", err)
	}
	return nil
}

type participantRow struct {
	RideID    uuid.UUID         `db:"ride_id"`
	UserID    uuid.UUID         `db:"user_id"`
	Status    models.RSVPStatus `db:"status"`
	UpdatedAt time.Time         `db:"updated_at"`
	Username  string            `db:"username"`
	AvatarURL *string           `db:"avatar_url"`
	BikeModel *string           `db:"bike_model"`
	CreatedAt time.Time         `db:"created_at"`
}

func (row participantRow) toModel() *models.Participant {
	return &models.Participant{
		RideID:    row.RideID,
		UserID:    row.UserID,
		Status:    row.Status,
		UpdatedAt: row.UpdatedAt,
		Profile: &models.Profile{
			ID:        row.UserID,
			Username:  row.Username,
			AvatarURL: row.AvatarURL,
			BikeModel: row.BikeModel,
			CreatedAt: row.CreatedAt,
		},
	}
}

// ListByRides returns the RSVPs of the given rides with profiles
func (r *ParticipantRepository) ListByRides(ctx context.Context, rideIDs ...uuid.UUID) ([]*models.Participant, error) {
	if len(rideIDs) == 0 {
		return []*models.Participant{}, nil
	}

	sql, args, err := r.sb.Select(
		"pa.ride_id", "pa.user_id", "pa.status", "pa.updated_at",
		"p.username", "p.avatar_url", "p.bike_model", "p.created_at",
	).
		From("participants pa").
		Join("profiles p ON p.id = pa.user_id").
		Where(squirrel.Eq{"pa.ride_id": rideIDs}).
		OrderBy("pa.updated_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list participants query: %w", err)
	}

	var rows []participantRow
	if err := pgxscan.Select(ctx, r.db.Pool, &rows, sql, args...); err != nil {
		logger.Error().Err(err).Msg("Error listing participants")
		return nil, fmt.Errorf("error listing participants: %w", err)
	}

	participants := make([]*models.Participant, 0, len(rows))
	for _, row := range rows {
		participants = append(participants, row.toModel())
	}
	return participants, nil
}

// ListUserIDsByStatus returns the users whose RSVP on rideID is one of statuses
func (r *ParticipantRepository) ListUserIDsByStatus(ctx context.Context, rideID uuid.UUID, statuses ...models.RSVPStatus) ([]uuid.UUID, error) {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}

	sql, args, err := r.sb.Select("user_id").
		From("participants").
		Where(squirrel.Eq{"ride_id": rideID, "status": values}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list participant ids query: %w", err)
	}

	ids := []uuid.UUID{}
	if err := pgxscan.Select(ctx, r.db.Pool, &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("error listing participant ids: %w", err)
	}
	return ids, nil
}
