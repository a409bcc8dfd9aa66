package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/freekieb7/neurovault-users/internal/session"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreNewSession(t *testing.T) {
	store := session.NewStore(nil)

	sess, err := store.NewSession()
	require.NoError(t, err)
	assert.Len(t, sess.Token, 64)
	assert.NotNil(t, sess.Data)
	assert.True(t, sess.ExpiresAt.After(time.Now()))
	assert.False(t, sess.IsAuthenticated())
}

func TestStoreSaveSession(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := session.NewStore(mock)
	ctx := context.Background()

	t.Run("insert new session", func(t *testing.T) {
		id := uuid.New()
		createdAt := time.Now()
		sess := session.Session{Token: "token", Data: map[string]any{}, ExpiresAt: createdAt.Add(time.Hour)}

		mock.ExpectQuery("INSERT INTO tbl_session").
			WithArgs("token", pgxmock.AnyArg(), pgxmock.AnyArg(), sess.ExpiresAt).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(id, createdAt))

		saved, err := store.SaveSession(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, id, saved.ID)
		assert.Equal(t, createdAt, saved.CreatedAt)
	})

	t.Run("update existing session", func(t *testing.T) {
		sess := session.Session{ID: uuid.New(), Token: "token", UserID: uuid.New(), Data: map[string]any{"k": "v"}}

		mock.ExpectExec("UPDATE tbl_session SET user_id").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), sess.ExpiresAt, sess.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		_, err := store.SaveSession(ctx, sess)
		require.NoError(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetSessionByToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := session.NewStore(mock)

	mock.ExpectQuery("SELECT id, user_id, data, expires_at, created_at FROM tbl_session").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.GetSessionByToken(context.Background(), "missing")
	assert.True(t, errors.Is(err, session.ErrSessionNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRegenerateSession(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := session.NewStore(mock)
	ctx := context.Background()

	t.Run("unsaved session", func(t *testing.T) {
		_, err := store.RegenerateSession(ctx, session.Session{Token: "old"})
		assert.Error(t, err)
	})

	t.Run("new token", func(t *testing.T) {
		sess := session.Session{ID: uuid.New(), Token: "old"}
		mock.ExpectExec("UPDATE tbl_session SET token").
			WithArgs(pgxmock.AnyArg(), sess.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		regenerated, err := store.RegenerateSession(ctx, sess)
		require.NoError(t, err)
		assert.NotEqual(t, "old", regenerated.Token)
		assert.Equal(t, sess.ID, regenerated.ID)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreDeleteExpired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := session.NewStore(mock)

	mock.ExpectExec("DELETE FROM tbl_session WHERE expires_at").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := store.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
