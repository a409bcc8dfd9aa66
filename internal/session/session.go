package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID        uuid.UUID
	Token     string
	UserID    uuid.UUID
	Data      map[string]any
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsAuthenticated reports whether a user is bound to the session.
func (s Session) IsAuthenticated() bool {
	return s.UserID != uuid.Nil
}

// CSRFToken returns the token stored by the CSRF middleware, if any.
func (s Session) CSRFToken() string {
	token, _ := s.Data[csrfKey].(string)
	return token
}

// Repository persists sessions. Store is the Postgres implementation; the
// cache package decorates it with Redis.
type Repository interface {
	NewSession() (Session, error)
	GetSessionByToken(ctx context.Context, token string) (Session, error)
	SaveSession(ctx context.Context, sess Session) (Session, error)
	RegenerateSession(ctx context.Context, sess Session) (Session, error)
	DeleteSession(ctx context.Context, token string) error
}

type contextKey string

const ContextKey contextKey = "session"

func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, ContextKey, sess)
}

func FromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(ContextKey).(Session)
	return sess, ok
}
