package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freekieb7/neurovault-users/internal/database"
	apperrors "github.com/freekieb7/neurovault-users/internal/errors"
	"github.com/google/uuid"
)

var ErrConnectionNotFound = apperrors.NotFoundError("No application connection found.", nil)

// Connection is a refresh token grant a user gave to an application.
type Connection struct {
	ID              uuid.UUID
	ApplicationID   uuid.UUID
	ApplicationName string
	IsRevoked       bool
	CreatedAt       time.Time
}

type ConnectionService struct {
	DB database.DBTX
}

func NewConnectionService(db database.DBTX) *ConnectionService {
	return &ConnectionService{
		DB: db,
	}
}

// List returns one refresh token per application the user has authorized.
func (s *ConnectionService) List(ctx context.Context, userID uuid.UUID) ([]Connection, error) {
	query := `
		SELECT DISTINCT ON (rt.application_id) rt.id, rt.application_id, a.name, rt.is_revoked, rt.created_at
		FROM tbl_refresh_token rt
		JOIN tbl_application a ON a.id = rt.application_id
		WHERE rt.user_id = $1
		ORDER BY rt.application_id, rt.created_at
	`
	rows, err := s.DB.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var connections []Connection
	for rows.Next() {
		var c Connection
		if err := rows.Scan(&c.ID, &c.ApplicationID, &c.ApplicationName, &c.IsRevoked, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		connections = append(connections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate connections: %w", err)
	}

	return connections, nil
}

func (s *ConnectionService) FirstForApplication(ctx context.Context, userID, applicationID uuid.UUID) (Connection, error) {
	query := `
		SELECT rt.id, rt.application_id, a.name, rt.is_revoked, rt.created_at
		FROM tbl_refresh_token rt
		JOIN tbl_application a ON a.id = rt.application_id
		WHERE rt.user_id = $1 AND rt.application_id = $2
		ORDER BY rt.created_at
		LIMIT 1
	`
	var c Connection
	err := s.DB.QueryRow(ctx, query, userID, applicationID).
		Scan(&c.ID, &c.ApplicationID, &c.ApplicationName, &c.IsRevoked, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return Connection{}, ErrConnectionNotFound
		}
		return Connection{}, fmt.Errorf("failed to get connection: %w", err)
	}
	return c, nil
}

// RevokeAll revokes every refresh token the user holds for the application, one
// statement per token and outside a transaction. A failure part way through leaves
// the earlier tokens revoked. It returns how many tokens were revoked.
func (s *ConnectionService) RevokeAll(ctx context.Context, userID, applicationID uuid.UUID) (int, error) {
	rows, err := s.DB.Query(ctx, `SELECT id FROM tbl_refresh_token WHERE user_id = $1 AND application_id = $2`, userID, applicationID)
	if err != nil {
		return 0, fmt.Errorf("failed to list refresh tokens: %w", err)
	}

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan refresh token: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate refresh tokens: %w", err)
	}

	revoked := 0
	for _, id := range ids {
		_, err := s.DB.Exec(ctx,
			`UPDATE tbl_refresh_token SET is_revoked = TRUE, revoked_at = COALESCE(revoked_at, $1) WHERE id = $2 AND user_id = $3`,
			time.Now().UTC(), id, userID)
		if err != nil {
			return revoked, fmt.Errorf("failed to revoke refresh token %s: %w", id, err)
		}

		// Access tokens issued alongside the refresh token go with it.
		_, err = s.DB.Exec(ctx,
			`UPDATE tbl_access_token SET is_revoked = TRUE, revoked_at = COALESCE(revoked_at, $1) WHERE id = (SELECT access_token_id FROM tbl_refresh_token WHERE id = $2)`,
			time.Now().UTC(), id)
		if err != nil {
			return revoked, fmt.Errorf("failed to revoke access token of refresh token %s: %w", id, err)
		}
		revoked++
	}

	return revoked, nil
}
