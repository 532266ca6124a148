package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/motobuddies/internal/app/models"
)

// Sink receives notifications relayed from the bus; the websocket hub is one.
type Sink interface {
	Publish(ctx context.Context, n *models.Notification) error
}

// NotificationPublisher publishes inserted notifications to a subject so
// every API instance can push them to its own websocket clients.
type NotificationPublisher struct {
	bus     *Bus
	subject string
}

func NewNotificationPublisher(b *Bus, subject string) *NotificationPublisher {
	return &NotificationPublisher{bus: b, subject: subject}
}

func (p *NotificationPublisher) Publish(ctx context.Context, n *models.Notification) error {
	if err := p.bus.Publish(ctx, p.subject, n); err != nil {
		return fmt.Errorf("publish notification %s: %w", n.ID, err)
	}
	return nil
}

// RelayNotifications forwards every notification on subject into sink.
func RelayNotifications(ctx context.Context, b *Bus, subject string, sink Sink, logger zerolog.Logger) (io.Closer, error) {
	return b.Subscribe(ctx, subject, func(ctx context.Context, data []byte) error {
		n, err := decodeNotification(data)
		if err != nil {
			logger.Warn().Err(err).Str("subject", subject).Msg("Dropping malformed notification event")
			return err
		}
		if err := sink.Publish(ctx, n); err != nil {
			logger.Error().Err(err).Str("notificationID", n.ID.String()).Msg("Failed to relay notification")
			return err
		}
		return nil
	})
}

func decodeNotification(data []byte) (*models.Notification, error) {
	var n models.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}
	if n.UserID == uuid.Nil {
		return nil, errors.New("decode notification: missing userId")
	}
	return &n, nil
}
