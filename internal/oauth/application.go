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

const (
	ClientTypeConfidential = "confidential"
	ClientTypePublic       = "public"

	GrantAuthorizationCode = "authorization-code"
	GrantImplicit          = "implicit"
	GrantPassword          = "password"
	GrantClientCredentials = "client-credentials"

	clientIDLength     = 40
	clientSecretLength = 128
)

var ErrApplicationNotFound = apperrors.NotFoundError("application not found", nil)

type Application struct {
	ID                     uuid.UUID
	UserID                 uuid.UUID
	Name                   string
	ClientID               string
	ClientSecret           string
	ClientType             string
	AuthorizationGrantType string
	RedirectURIs           []string
	WebsiteURL             string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

type ApplicationService struct {
	DB database.DBTX
}

func NewApplicationService(db database.DBTX) *ApplicationService {
	return &ApplicationService{
		DB: db,
	}
}

const applicationColumns = `id, user_id, name, client_id, client_secret, client_type, authorization_grant_type, redirect_uris, website_url, created_at, updated_at`

func scanApplication(row interface{ Scan(dest ...any) error }) (Application, error) {
	var app Application
	err := row.Scan(
		&app.ID,
		&app.UserID,
		&app.Name,
		&app.ClientID,
		&app.ClientSecret,
		&app.ClientType,
		&app.AuthorizationGrantType,
		&app.RedirectURIs,
		&app.WebsiteURL,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	return app, err
}

// Create registers a new application owned by ownerID with fresh client credentials.
func (s *ApplicationService) Create(ctx context.Context, ownerID uuid.UUID, form ApplicationForm) (Application, error) {
	clientID, err := util.RandomAlphanumeric(clientIDLength)
	if err != nil {
		return Application{}, fmt.Errorf("failed to generate client id: %w", err)
	}
	clientSecret, err := util.RandomAlphanumeric(clientSecretLength)
	if err != nil {
		return Application{}, fmt.Errorf("failed to generate client secret: %w", err)
	}

	app := Application{
		UserID:                 ownerID,
		Name:                   form.Name,
		ClientID:               clientID,
		ClientSecret:           clientSecret,
		ClientType:             form.ClientType,
		AuthorizationGrantType: form.AuthorizationGrantType,
		RedirectURIs:           form.RedirectURIList(),
		WebsiteURL:             form.WebsiteURL,
	}

	query := `
		INSERT INTO tbl_application (user_id, name, client_id, client_secret, client_type, authorization_grant_type, redirect_uris, website_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err = s.DB.QueryRow(ctx, query,
		app.UserID,
		app.Name,
		app.ClientID,
		app.ClientSecret,
		app.ClientType,
		app.AuthorizationGrantType,
		app.RedirectURIs,
		app.WebsiteURL,
	).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return Application{}, fmt.Errorf("failed to create application: %w", err)
	}

	return app, nil
}

func (s *ApplicationService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Application, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+applicationColumns+` FROM tbl_application WHERE user_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applications: %w", err)
	}

	return apps, nil
}

// GetByIDAndOwner returns ErrApplicationNotFound both for missing applications
// and for applications owned by someone else.
func (s *ApplicationService) GetByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (Application, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+applicationColumns+` FROM tbl_application WHERE id = $1 AND user_id = $2`, id, ownerID)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return Application{}, ErrApplicationNotFound
		}
		return Application{}, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// Exists reports whether an application with the given id is registered, regardless of owner.
func (s *ApplicationService) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := s.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tbl_application WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check application: %w", err)
	}
	return exists, nil
}

func (s *ApplicationService) Update(ctx context.Context, app Application, form ApplicationForm) (Application, error) {
	app.Name = form.Name
	app.ClientType = form.ClientType
	app.AuthorizationGrantType = form.AuthorizationGrantType
	app.RedirectURIs = form.RedirectURIList()
	app.WebsiteURL = form.WebsiteURL

	query := `
		UPDATE tbl_application
		SET name = $1, client_type = $2, authorization_grant_type = $3, redirect_uris = $4, website_url = $5, updated_at = NOW()
		WHERE id = $6 AND user_id = $7
		RETURNING updated_at
	`
	err := s.DB.QueryRow(ctx, query,
		app.Name,
		app.ClientType,
		app.AuthorizationGrantType,
		app.RedirectURIs,
		app.WebsiteURL,
		app.ID,
		app.UserID,
	).Scan(&app.UpdatedAt)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return Application{}, ErrApplicationNotFound
		}
		return Application{}, fmt.Errorf("failed to update application: %w", err)
	}

	return app, nil
}

// Delete removes the application. Tokens issued for it cascade.
func (s *ApplicationService) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM tbl_application WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

// EnsureDefault registers the ownerless application personal tokens are issued under.
// It is a no-op when the application already exists.
func (s *ApplicationService) EnsureDefault(ctx context.Context, id uuid.UUID, name string) error {
	clientID, err := util.RandomAlphanumeric(clientIDLength)
	if err != nil {
		return fmt.Errorf("failed to generate client id: %w", err)
	}
	clientSecret, err := util.RandomAlphanumeric(clientSecretLength)
	if err != nil {
		return fmt.Errorf("failed to generate client secret: %w", err)
	}

	query := `
		INSERT INTO tbl_application (id, name, client_id, client_secret, client_type, authorization_grant_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.DB.Exec(ctx, query, id, name, clientID, clientSecret, ClientTypeConfidential, GrantPassword); err != nil {
		return fmt.Errorf("failed to ensure default application: %w", err)
	}
	return nil
}
