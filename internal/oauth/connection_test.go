package oauth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/freekieb7/neurovault-users/internal/oauth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListConnections(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	service := oauth.NewConnectionService(mock)
	userID := uuid.New()

	rows := pgxmock.NewRows([]string{"id", "application_id", "name", "is_revoked", "created_at"}).
		AddRow(uuid.New(), uuid.New(), "Viewer", false, time.Now()).
		AddRow(uuid.New(), uuid.New(), "Uploader", true, time.Now())

	mock.ExpectQuery("SELECT DISTINCT ON").WithArgs(userID).WillReturnRows(rows)

	connections, err := service.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, connections, 2)
	assert.Equal(t, "Viewer", connections[0].ApplicationName)
	assert.True(t, connections[1].IsRevoked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFirstConnectionNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	service := oauth.NewConnectionService(mock)
	userID, appID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT rt.id").WithArgs(userID, appID).WillReturnError(pgx.ErrNoRows)

	_, err = service.FirstForApplication(context.Background(), userID, appID)
	assert.ErrorIs(t, err, oauth.ErrConnectionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeAllConnections(t *testing.T) {
	userID, appID := uuid.New(), uuid.New()
	first, second := uuid.New(), uuid.New()

	t.Run("revokes every token", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT id FROM tbl_refresh_token").
			WithArgs(userID, appID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(first).AddRow(second))
		for _, id := range []uuid.UUID{first, second} {
			mock.ExpectExec("UPDATE tbl_refresh_token").
				WithArgs(pgxmock.AnyArg(), id, userID).
				WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			mock.ExpectExec("UPDATE tbl_access_token").
				WithArgs(pgxmock.AnyArg(), id).
				WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		}

		revoked, err := oauth.NewConnectionService(mock).RevokeAll(context.Background(), userID, appID)
		require.NoError(t, err)
		assert.Equal(t, 2, revoked)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure leaves earlier tokens revoked", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT id FROM tbl_refresh_token").
			WithArgs(userID, appID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(first).AddRow(second))
		mock.ExpectExec("UPDATE tbl_refresh_token").
			WithArgs(pgxmock.AnyArg(), first, userID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("UPDATE tbl_access_token").
			WithArgs(pgxmock.AnyArg(), first).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("UPDATE tbl_refresh_token").
			WithArgs(pgxmock.AnyArg(), second, userID).
			WillReturnError(errors.New("connection reset"))

		revoked, err := oauth.NewConnectionService(mock).RevokeAll(context.Background(), userID, appID)
		assert.Error(t, err)
		assert.Equal(t, 1, revoked)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
