// Package events publishes account lifecycle events so resource servers can
// drop grants that were revoked here.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	TokenRevoked       = "token.revoked"
	ConnectionRevoked  = "connection.revoked"
	ApplicationDeleted = "application.deleted"
)

type Event struct {
	Type          string    `json:"type"`
	UserID        uuid.UUID `json:"user_id"`
	ApplicationID uuid.UUID `json:"application_id"`
	TokenID       uuid.UUID `json:"token_id,omitzero"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func New(eventType string, userID, applicationID uuid.UUID) Event {
	return Event{
		Type:          eventType,
		UserID:        userID,
		ApplicationID: applicationID,
		OccurredAt:    time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher only logs events. Used when no broker is configured.
type NopPublisher struct {
	Logger *slog.Logger
}

func NewNopPublisher(logger *slog.Logger) *NopPublisher {
	return &NopPublisher{Logger: logger}
}

func (p *NopPublisher) Publish(ctx context.Context, event Event) error {
	p.Logger.DebugContext(ctx, "Event not published, no broker configured", "type", event.Type, "user_id", event.UserID)
	return nil
}

func (p *NopPublisher) Close() error {
	return nil
}

// PublishLogged publishes event and logs a failure instead of returning it.
func PublishLogged(ctx context.Context, publisher Publisher, logger *slog.Logger, event Event) {
	if err := publisher.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "type", event.Type, "error", err)
	}
}
