package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/freekieb7/neurovault-users/internal/session"
)

// SessionStore caches sessions in Redis in front of a persistent repository.
type SessionStore struct {
	cache      *Service
	baseStore  session.Repository
	logger     *slog.Logger
	sessionTTL time.Duration
}

func NewSessionStore(cache *Service, baseStore session.Repository, logger *slog.Logger, sessionTTL time.Duration) *SessionStore {
	if sessionTTL <= 0 {
		sessionTTL = 30 * time.Minute
	}

	return &SessionStore{
		cache:      cache,
		baseStore:  baseStore,
		logger:     logger,
		sessionTTL: sessionTTL,
	}
}

func (s *SessionStore) NewSession() (session.Session, error) {
	return s.baseStore.NewSession()
}

// GetSessionByToken retrieves a session by token, checking cache first
func (s *SessionStore) GetSessionByToken(ctx context.Context, token string) (session.Session, error) {
	cacheKey := sessionCacheKey(token)

	var cached session.Session
	err := s.cache.Get(ctx, cacheKey, &cached)
	if err == nil && cached.ExpiresAt.After(time.Now()) {
		if cached.Data == nil {
			cached.Data = map[string]any{}
		}
		return cached, nil
	}
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		s.logger.WarnContext(ctx, "Session cache error", "error", err, "token", maskToken(token))
	}

	sess, err := s.baseStore.GetSessionByToken(ctx, token)
	if err != nil {
		return session.Session{}, err
	}

	s.store(ctx, sess)
	return sess, nil
}

// SaveSession saves a session and refreshes the cache
func (s *SessionStore) SaveSession(ctx context.Context, sess session.Session) (session.Session, error) {
	saved, err := s.baseStore.SaveSession(ctx, sess)
	if err != nil {
		return session.Session{}, err
	}

	s.store(ctx, saved)
	return saved, nil
}

// RegenerateSession swaps the token and drops the entry cached under the old one
func (s *SessionStore) RegenerateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	oldToken := sess.Token

	regenerated, err := s.baseStore.RegenerateSession(ctx, sess)
	if err != nil {
		return session.Session{}, err
	}

	if err := s.cache.Delete(ctx, sessionCacheKey(oldToken)); err != nil {
		s.logger.WarnContext(ctx, "Failed to evict regenerated session", "error", err, "token", maskToken(oldToken))
	}
	s.store(ctx, regenerated)
	return regenerated, nil
}

// DeleteSession deletes a session from both the base store and the cache
func (s *SessionStore) DeleteSession(ctx context.Context, token string) error {
	if err := s.baseStore.DeleteSession(ctx, token); err != nil {
		return err
	}

	if err := s.cache.Delete(ctx, sessionCacheKey(token)); err != nil {
		s.logger.WarnContext(ctx, "Failed to delete session from cache", "error", err, "token", maskToken(token))
	}
	return nil
}

func (s *SessionStore) store(ctx context.Context, sess session.Session) {
	ttl := s.sessionTTL
	if remaining := time.Until(sess.ExpiresAt); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}

	if err := s.cache.Set(ctx, sessionCacheKey(sess.Token), sess, ttl); err != nil {
		s.logger.WarnContext(ctx, "Failed to cache session", "error", err, "token", maskToken(sess.Token))
	}
}

func sessionCacheKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

// maskToken masks a token for logging (shows only first 8 characters)
func maskToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "***"
}
