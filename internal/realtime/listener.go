package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/yakoovad/scanhub/internal/model"
	"go.uber.org/zap"
)

// NotifyChannel is the Postgres channel the scans insert trigger notifies.
const NotifyChannel = "scans_insert"

// Listener holds a dedicated connection in LISTEN mode and publishes each
// notified insert to the hub. It does not reconnect on its own; the caller
// decides whether a transport failure is worth restarting for.
type Listener struct {
	dsn    string
	hub    *Hub
	logger *zap.Logger
}

func NewListener(dsn string, hub *Hub, logger *zap.Logger) *Listener {
	return &Listener{
		dsn:    dsn,
		hub:    hub,
		logger: logger,
	}
}

// notifyPayload mirrors row_to_json(NEW) emitted by the trigger.
type notifyPayload struct {
	ID        int64     `json:"id"`
	Code      int       `json:"code"`
	OwnerID   *string   `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Run blocks until ctx is cancelled or the connection fails.
func (l *Listener) Run(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return errors.Wrap(err, "failed to open listen connection")
	}
	defer conn.Close(context.Background())

	if _, err = conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		return errors.Wrap(err, "failed to listen on "+NotifyChannel)
	}

	l.logger.Info("realtime listener attached", zap.String("channel", NotifyChannel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "notification wait failed")
		}

		var payload notifyPayload
		if err = json.Unmarshal([]byte(n.Payload), &payload); err != nil {
			l.logger.Error("bad notification payload",
				zap.String("payload", n.Payload),
				zap.Error(err))
			continue
		}

		l.hub.Publish(&model.Scan{
			ID:        payload.ID,
			Code:      payload.Code,
			OwnerID:   payload.OwnerID,
			CreatedAt: payload.CreatedAt,
		})
	}
}
