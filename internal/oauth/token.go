package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freekieb7/neurovault-users/internal/database"
	apperrors "github.com/freekieb7/neurovault-users/internal/errors"
	"github.com/freekieb7/neurovault-users/internal/util"
	"github.com/google/uuid"
)

const PersonalTokenScope = "read write"

// PersonalTokenExpiry is far enough in the future that personal tokens never expire in practice.
var PersonalTokenExpiry = time.Date(9999, time.December, 30, 0, 0, 0, 0, time.UTC)

var ErrTokenNotFound = apperrors.NotFoundError("token not found", nil)

type AccessToken struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	ApplicationID uuid.UUID
	Token         string
	Scope         string
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

type TokenService struct {
	DB          database.DBTX
	TokenLength int
}

func NewTokenService(db database.DBTX, tokenLength int) *TokenService {
	return &TokenService{
		DB:          db,
		TokenLength: tokenLength,
	}
}

// ListPersonal returns the user's active tokens for applicationID, newest first.
func (s *TokenService) ListPersonal(ctx context.Context, userID, applicationID uuid.UUID) ([]AccessToken, error) {
	query := `
		SELECT id, user_id, application_id, token, scope, expires_at, created_at
		FROM tbl_access_token
		WHERE user_id = $1 AND application_id = $2 AND is_revoked = FALSE
		ORDER BY created_at DESC
	`
	rows, err := s.DB.Query(ctx, query, userID, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []AccessToken
	for rows.Next() {
		var t AccessToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.ApplicationID, &t.Token, &t.Scope, &t.ExpiresAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tokens: %w", err)
	}

	return tokens, nil
}

func (s *TokenService) CreatePersonal(ctx context.Context, userID, applicationID uuid.UUID) (AccessToken, error) {
	value, err := util.RandomAlphanumeric(s.TokenLength)
	if err != nil {
		return AccessToken{}, fmt.Errorf("failed to generate token: %w", err)
	}

	token := AccessToken{
		UserID:        userID,
		ApplicationID: applicationID,
		Token:         value,
		Scope:         PersonalTokenScope,
		ExpiresAt:     PersonalTokenExpiry,
	}

	query := `
		INSERT INTO tbl_access_token (user_id, application_id, token, scope, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err = s.DB.QueryRow(ctx, query,
		token.UserID,
		token.ApplicationID,
		token.Token,
		token.Scope,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return AccessToken{}, fmt.Errorf("failed to save token: %w", err)
	}

	return token, nil
}

// GetPersonal loads an active token owned by userID under applicationID.
func (s *TokenService) GetPersonal(ctx context.Context, id, userID, applicationID uuid.UUID) (AccessToken, error) {
	query := `
		SELECT id, user_id, application_id, token, scope, expires_at, created_at
		FROM tbl_access_token
		WHERE id = $1 AND user_id = $2 AND application_id = $3 AND is_revoked = FALSE
	`
	var t AccessToken
	err := s.DB.QueryRow(ctx, query, id, userID, applicationID).
		Scan(&t.ID, &t.UserID, &t.ApplicationID, &t.Token, &t.Scope, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return AccessToken{}, ErrTokenNotFound
		}
		return AccessToken{}, fmt.Errorf("failed to get token: %w", err)
	}
	return t, nil
}

// Revoke marks the token revoked. Revoking twice keeps the first revoked_at.
func (s *TokenService) Revoke(ctx context.Context, id, userID, applicationID uuid.UUID) error {
	query := `
		UPDATE tbl_access_token
		SET is_revoked = TRUE, revoked_at = COALESCE(revoked_at, $1)
		WHERE id = $2 AND user_id = $3 AND application_id = $4
	`
	tag, err := s.DB.Exec(ctx, query, time.Now().UTC(), id, userID, applicationID)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}
