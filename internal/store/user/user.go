package user

import (
	"context"
	"errors"
	"fmt"

	"gcal-connect-api/internal/database"
	"gcal-connect-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrUserNotFound is returned when no user row matches.
var ErrUserNotFound = domain.ErrUserNotFound

// UserStorer defines the interface for user operations
type UserStorer interface {
	CreateUser(ctx context.Context, email, name string) (domain.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	ListConnectedUsers(ctx context.Context) ([]domain.User, error)
}

// UserStore handles user-related database operations
type UserStore struct {
	db database.Querier
}

// NewUserStore creates a new UserStore
func NewUserStore(db database.Querier) UserStorer {
	return &UserStore{db: db}
}

const userColumns = `id, email, name, google_connected, created_at, updated_at`

// CreateUser inserts a user, or updates the name when the email already exists.
func (s *UserStore) CreateUser(ctx context.Context, email, name string) (domain.User, error) {
	query := `
    INSERT INTO users (email, name)
    VALUES ($1, $2)
    ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, updated_at = now()
    RETURNING ` + userColumns + `;
    `

	u, err := scanUser(s.db.QueryRow(ctx, query, email, name))
	if err != nil {
		return domain.User{}, fmt.Errorf("db scan error: %w", err)
	}
	return u, nil
}

// GetUserByID fetches a single user.
func (s *UserStore) GetUserByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("db scan error: %w", err)
	}
	return u, nil
}

// ListUsers returns every user ordered by creation time.
func (s *UserStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at`
	return s.queryUsers(ctx, query)
}

// ListConnectedUsers returns users with a stored Google token.
func (s *UserStore) ListConnectedUsers(ctx context.Context) ([]domain.User, error) {
	query := `
    SELECT ` + userColumns + `
    FROM users
    WHERE google_connected = TRUE AND google_access_token IS NOT NULL
    ORDER BY created_at;
    `
	return s.queryUsers(ctx, query)
}

func (s *UserStore) queryUsers(ctx context.Context, query string) ([]domain.User, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}

	return users, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.GoogleConnected,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}
