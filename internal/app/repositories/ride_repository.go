package repositories

import (
	"context"
	"fmt"
	"time"

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

// RideRepository handles ride database operations
type RideRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewRideRepository creates a new RideRepository
func NewRideRepository(database *db.PostgresDB) *RideRepository {
	return &RideRepository{
		db: database,
		sb: statementBuilder(),
	}
}

var rideColumns = []string{
	"r.id", "r.group_id", "r.created_by", "r.title", "r.description", "r.date_time",
	"r.start_lat", "r.start_lon", "r.meeting_point_name", "r.gpx_url", "r.created_at",
}

// summaryBuilder selects rides joined with their group name and RSVP counts
func (r *RideRepository) summaryBuilder() squirrel.SelectBuilder {
	cols := append([]string{}, rideColumns...)
	cols = append(cols,
		"g.name AS group_name",
		"(SELECT COUNT(*) FROM participants p WHERE p.ride_id = r.id AND p.status = 'attending') AS attending_count",
		"(SELECT COUNT(*) FROM participants p WHERE p.ride_id = r.id AND p.status = 'maybe') AS maybe_count",
	)
	return r.sb.Select(cols...).
		From("rides r").
		Join("groups g ON g.id = r.group_id")
}

// Create inserts a ride and fills its id and created_at
func (r *RideRepository) Create(ctx context.Context, ride *models.Ride) error {
	sql, args, err := r.sb.Insert("rides").
		Columns("group_id", "created_by", "title", "description", "date_time",
			"start_lat", "start_lon", "meeting_point_name", "gpx_url").
		Values(ride.GroupID, ride.CreatedBy, ride.Title, ride.Description, ride.DateTime,
			ride.StartLat, ride.StartLon, ride.MeetingPointName, ride.GPXURL).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create ride query: %w", err)
	}

	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&ride.ID, &ride.CreatedAt); err != nil {
		if dberrors.IsCheckViolation(err) {
			return apperrors.ErrInvalidCoordinate.Wrap(err)
		}
		if dberrors.IsForeignKeyConstraintError(err, dberrors.ConstraintRidesCreatorFK) {
			return apperrors.ErrProfileNotFound.Wrap(err)
		}
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrGroupNotFound.Wrap(err)
		}
		logger.Error().Err(err).Msg("Error executing create ride query")
		return fmt.Errorf("error creating ride: %w", err)
	}
	return nil
}

// GetByID retrieves a ride with its group name and counts
func (r *RideRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RideSummary, error) {
	sql, args, err := r.summaryBuilder().
		Where(squirrel.Eq{"r.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get ride query: %w", err)
	}

	var ride models.RideSummary
	if err := pgxscan.Get(ctx, r.db.Pool, &ride, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperrors.ErrRideNotFound
		}
		logger.Error().Err(err).Str("rideID", id.String()).Msg("Error scanning ride row")
		return nil, fmt.Errorf("error getting ride: %w", err)
	}
	return &ride, nil
}

// Delete removes the ride and its participants in one transaction.
func (r *RideRepository) Delete(ctx context.Context, id uuid.UUID) error {
	participantsSQL, participantsArgs, err := r.sb.Delete("participants").
		Where(squirrel.Eq{"ride_id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete participants query: %w", err)
	}
	rideSQL, rideArgs, err := r.sb.Delete("rides").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete ride query: %w", err)
	}

	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, participantsSQL, participantsArgs...); err != nil {
			return fmt.Errorf("error deleting participants: %w", err)
		}
		tag, err := tx.Exec(ctx, rideSQL, rideArgs...)
		if err != nil {
			logger.Error().Err(err).Str("rideID", id.String()).Msg("Error deleting ride")
			return fmt.Errorf("error deleting ride: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrRideNotFound
		}
		return nil
	})
}

// SetGPXURL replaces or clears the track URL of a ride
func (r *RideRepository) SetGPXURL(ctx context.Context, id uuid.UUID, url *string) error {
	sql, args, err := r.sb.Update("rides").
		Set("gpx_url", url).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build set gpx query: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating gpx url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRideNotFound
	}
	return nil
}

// ListUpcomingForUser returns rides in the user's groups starting at or after from
func (r *RideRepository) ListUpcomingForUser(ctx context.Context, userID uuid.UUID, from time.Time, limit int) ([]*models.RideSummary, error) {
	q := r.summaryBuilder().
		Join("group_members gm ON gm.group_id = r.group_id").
		Where(squirrel.Eq{"gm.user_id": userID}).
		Where(squirrel.GtOrEq{"r.date_time": from}).
		OrderBy("r.date_time ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return r.selectSummaries(ctx, q)
}

// ListForUserBetween returns rides in the user's groups with from <= date_time < to
func (r *RideRepository) ListForUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.RideSummary, error) {
	q := r.summaryBuilder().
		Join("group_members gm ON gm.group_id = r.group_id").
		Where(squirrel.Eq{"gm.user_id": userID}).
		Where(squirrel.GtOrEq{"r.date_time": from}).
		Where(squirrel.Lt{"r.date_time": to}).
		OrderBy("r.date_time ASC")
	return r.selectSummaries(ctx, q)
}

// ListByGroup returns all rides of a group, soonest first
func (r *RideRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.RideSummary, error) {
	q := r.summaryBuilder().
		Where(squirrel.Eq{"r.group_id": groupID}).
		OrderBy("r.date_time ASC")
	return r.selectSummaries(ctx, q)
}

// ListStartingBetween returns every ride with from <= date_time < to
func (r *RideRepository) ListStartingBetween(ctx context.Context, from, to time.Time) ([]*models.RideSummary, error) {
	q := r.summaryBuilder().
		Where(squirrel.GtOrEq{"r.date_time": from}).
		Where(squirrel.Lt{"r.date_time": to}).
		OrderBy("r.date_time ASC")
	return r.selectSummaries(ctx, q)
}

func (r *RideRepository) selectSummaries(ctx context.Context, q squirrel.SelectBuilder) ([]*models.RideSummary, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list rides query: %w", err)
	}

	rides := []*models.RideSummary{}
	if err := pgxscan.Select(ctx, r.db.Pool, &rides, sql, args...); err != nil {
		logger.Error().Err(err).Msg("Error listing rides")
		return nil, fmt.Errorf("error listing rides: %w", err)
	}
	return rides, nil
}
