package cache

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/freekieb7/neurovault-users/internal/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryClient struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryClient() *memoryClient {
	return &memoryClient{items: map[string][]byte{}}
}

func (m *memoryClient) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *memoryClient) get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (m *memoryClient) del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}

func (m *memoryClient) ping(ctx context.Context) error { return nil }

type countingRepository struct {
	sessions map[string]session.Session
	gets     int
}

func (r *countingRepository) NewSession() (session.Session, error) {
	return session.Session{Token: "new", Data: map[string]any{}, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (r *countingRepository) GetSessionByToken(ctx context.Context, token string) (session.Session, error) {
	r.gets++
	sess, ok := r.sessions[token]
	if !ok {
		return session.Session{}, session.ErrSessionNotFound
	}
	return sess, nil
}

func (r *countingRepository) SaveSession(ctx context.Context, sess session.Session) (session.Session, error) {
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	r.sessions[sess.Token] = sess
	return sess, nil
}

func (r *countingRepository) RegenerateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	delete(r.sessions, sess.Token)
	sess.Token = sess.Token + "-regenerated"
	r.sessions[sess.Token] = sess
	return sess, nil
}

func (r *countingRepository) DeleteSession(ctx context.Context, token string) error {
	delete(r.sessions, token)
	return nil
}

func newTestSessionStore() (*SessionStore, *countingRepository, *memoryClient) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := newMemoryClient()
	svc := &Service{client: client, logger: logger, prefix: "test:"}
	repo := &countingRepository{sessions: map[string]session.Session{}}
	return NewSessionStore(svc, repo, logger, time.Minute), repo, client
}

func TestSessionStoreReadsThroughCache(t *testing.T) {
	store, repo, _ := newTestSessionStore()
	ctx := context.Background()

	saved, err := store.SaveSession(ctx, session.Session{Token: "abc", Data: map[string]any{"k": "v"}, ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	got, err := store.GetSessionByToken(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "v", got.Data["k"])
	assert.Equal(t, 0, repo.gets, "expected a cache hit")
}

func TestSessionStoreFallsBackToRepository(t *testing.T) {
	store, repo, client := newTestSessionStore()
	ctx := context.Background()

	repo.sessions["xyz"] = session.Session{ID: uuid.New(), Token: "xyz", Data: map[string]any{}, ExpiresAt: time.Now().Add(time.Hour)}

	_, err := store.GetSessionByToken(ctx, "xyz")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.gets)

	_, cached := client.items["test:session:xyz"]
	assert.True(t, cached)

	_, err = store.GetSessionByToken(ctx, "xyz")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.gets)
}

func TestSessionStoreRegenerateEvictsOldToken(t *testing.T) {
	store, _, client := newTestSessionStore()
	ctx := context.Background()

	saved, err := store.SaveSession(ctx, session.Session{Token: "old", Data: map[string]any{}, ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	regenerated, err := store.RegenerateSession(ctx, saved)
	require.NoError(t, err)

	_, oldCached := client.items["test:session:old"]
	_, newCached := client.items["test:session:"+regenerated.Token]
	assert.False(t, oldCached)
	assert.True(t, newCached)
}

func TestSessionStoreDelete(t *testing.T) {
	store, repo, client := newTestSessionStore()
	ctx := context.Background()

	_, err := store.SaveSession(ctx, session.Session{Token: "gone", Data: map[string]any{}, ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	require.NoError(t, store.DeleteSession(ctx, "gone"))
	assert.Empty(t, client.items)

	_, err = store.GetSessionByToken(ctx, "gone")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.Equal(t, 1, repo.gets)
}

func TestDisabledServiceAlwaysMisses(t *testing.T) {
	svc, err := NewService(context.Background(), &Config{Enabled: false}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	require.NoError(t, svc.Set(context.Background(), "k", "v", time.Minute))
	var out string
	assert.ErrorIs(t, svc.Get(context.Background(), "k", &out), ErrCacheMiss)
	assert.NoError(t, svc.Health(context.Background()))
}
