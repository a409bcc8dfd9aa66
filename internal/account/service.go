package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/freekieb7/neurovault-users/internal/database"
	apperrors "github.com/freekieb7/neurovault-users/internal/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

const uniqueViolation = "23505"

var (
	ErrUserNotFound       = apperrors.NotFoundError("user not found", nil)
	ErrUsernameTaken      = apperrors.ConflictError("A user with that username already exists.", nil)
	ErrInvalidCredentials = apperrors.UnauthorizedError("invalid credentials", nil)
)

type Service struct {
	DB database.DBTX
}

func NewService(db database.DBTX) *Service {
	return &Service{
		DB: db,
	}
}

// CreateUser hashes the password and stores a new user.
func (s *Service) CreateUser(ctx context.Context, username, email, password string) (User, error) {
	if username == "" {
		return User{}, apperrors.ValidationError("username cannot be empty", nil)
	}

	passwordHash, err := s.HashPassword(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return User{}, apperrors.ValidationError("password is longer than 72 bytes", err)
	}
	if err != nil {
		return User{}, apperrors.InternalError("failed to hash password", err)
	}

	user := User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	}

	query := `INSERT INTO tbl_user (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id, created_at`
	if err := s.DB.QueryRow(ctx, query, user.Username, user.Email, user.PasswordHash).Scan(&user.ID, &user.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrUsernameTaken
		}
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	var user User

	query := `SELECT id, username, email, first_name, last_name, created_at FROM tbl_user WHERE id = $1`
	row := s.DB.QueryRow(ctx, query, id)
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName, &user.CreatedAt); err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

func (s *Service) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var user User

	query := `SELECT id, username, email, first_name, last_name, created_at FROM tbl_user WHERE username = $1`
	row := s.DB.QueryRow(ctx, query, username)
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName, &user.CreatedAt); err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("failed to get user by username: %w", err)
	}

	return user, nil
}

// UpdateUser persists the editable profile fields.
func (s *Service) UpdateUser(ctx context.Context, user User) (User, error) {
	tag, err := s.DB.Exec(ctx, `UPDATE tbl_user SET email = $1, first_name = $2, last_name = $3 WHERE id = $4`, user.Email, user.FirstName, user.LastName, user.ID)
	if err != nil {
		return User{}, fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return User{}, ErrUserNotFound
	}

	return user, nil
}

func (s *Service) AuthenticateUser(ctx context.Context, username, password string) (User, error) {
	var user User

	query := `SELECT id, username, email, first_name, last_name, password_hash, created_at FROM tbl_user WHERE username = $1`
	row := s.DB.QueryRow(ctx, query, username)
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("failed to get user by username: %w", err)
	}

	if err := s.CheckPasswordHash(password, user.PasswordHash); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}

func (s *Service) HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedPassword), nil
}

func (s *Service) CheckPasswordHash(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
