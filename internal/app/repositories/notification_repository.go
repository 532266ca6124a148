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

// NotificationRepository handles notification rows
type NotificationRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(database *db.PostgresDB) *NotificationRepository {
	return &NotificationRepository{
		db: database,
		sb: statementBuilder(),
	}
}

var notificationColumns = []string{"id", "user_id", "type", "title", "body", "link", "read", "created_at"}

// InsertBatch writes all rows in a single statement and returns them as stored.
func (r *NotificationRepository) InsertBatch(ctx context.Context, rows []*models.Notification) ([]*models.Notification, error) {
	if len(rows) == 0 {
		return []*models.Notification{}, nil
	}

	q := r.sb.Insert("notifications").
		Columns("user_id", "type", "title", "body", "link")
	for _, n := range rows {
		q = q.Values(n.UserID, n.Type, n.Title, n.Body, n.Link)
	}
	sql, args, err := q.Suffix("RETURNING id, user_id, type, title, body, link, read, created_at").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert notifications query: %w", err)
	}

	inserted := make([]*models.Notification, 0, len(rows))
	if err := pgxscan.Select(ctx, r.db.Pool, &inserted, sql, args...); err != nil {
		logger.Error().Err(err).Int("rows", len(rows)).Msg("Error inserting notifications")
		return nil, fmt.Errorf("error inserting notifications: %w", err)
	}
	return inserted, nil
}

// ListForUser returns the latest notifications of userID, newest first
func (r *NotificationRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Notification, error) {
	sql, args, err := r.sb.Select(notificationColumns...).
		From("notifications").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list notifications query: %w", err)
	}

	items := []*models.Notification{}
	if err := pgxscan.Select(ctx, r.db.Pool, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("error listing notifications: %w", err)
	}
	return items, nil
}

// CountUnread returns how many notifications of userID are unread
func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	sql, args, err := r.sb.Select("COUNT(*)").
		From("notifications").
		Where(squirrel.Eq{"user_id": userID, "read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count unread query: %w", err)
	}

	var count int
	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flips one notification owned by userID to read
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	sql, args, err := r.sb.Update("notifications").
		Set("read", true).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build mark read query: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error marking notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of userID and returns how many changed
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	sql, args, err := r.sb.Update("notifications").
		Set("read", true).
		Where(squirrel.Eq{"user_id": userID, "read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build mark all read query: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error marking notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}
