package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gcal-connect-api/internal/crypto"
	"gcal-connect-api/internal/database"
	"gcal-connect-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

var (
	// ErrNoToken is returned when the user is not connected or has no stored token.
	ErrNoToken = errors.New("no google token stored for user")
	// ErrUserNotFound is returned when an update matched no user row.
	ErrUserNotFound = domain.ErrUserNotFound
)

// TokenStorer persists the durable copy of a user's Google token.
type TokenStorer interface {
	SaveGoogleToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) error
	UpdateGoogleToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) error
	ClearGoogleToken(ctx context.Context, userID uuid.UUID) error
	GetGoogleToken(ctx context.Context, userID uuid.UUID) (*oauth2.Token, error)
	ListConnectedTokens(ctx context.Context) ([]domain.ConnectedToken, error)
}

// TokenStore keeps the token blob sealed in users.google_access_token.
type TokenStore struct {
	db     database.Querier
	box    *crypto.Box
	logger *zap.Logger
}

// NewTokenStore creates a new TokenStore
func NewTokenStore(db database.Querier, box *crypto.Box, logger *zap.Logger) TokenStorer {
	return &TokenStore{
		db:     db,
		box:    box,
		logger: logger.With(zap.String("component", "token-store")),
	}
}

// SaveGoogleToken stores the token and marks the user connected.
func (s *TokenStore) SaveGoogleToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) error {
	sealed, err := s.seal(tok)
	if err != nil {
		return err
	}

	query := `
    UPDATE users
    SET google_access_token = $1, google_connected = TRUE, updated_at = now()
    WHERE id = $2;
    `
	return s.exec(ctx, query, sealed, userID)
}

// UpdateGoogleToken replaces the stored token and leaves the connected flag alone.
func (s *TokenStore) UpdateGoogleToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) error {
	sealed, err := s.seal(tok)
	if err != nil {
		return err
	}

	query := `
    UPDATE users
    SET google_access_token = $1, updated_at = now()
    WHERE id = $2;
    `
	return s.exec(ctx, query, sealed, userID)
}

// ClearGoogleToken removes the token and marks the user disconnected.
func (s *TokenStore) ClearGoogleToken(ctx context.Context, userID uuid.UUID) error {
	query := `
    UPDATE users
    SET google_access_token = NULL, google_connected = FALSE, updated_at = now()
    WHERE id = $1;
    `
	return s.exec(ctx, query, userID)
}

// GetGoogleToken loads and decrypts the stored token.
func (s *TokenStore) GetGoogleToken(ctx context.Context, userID uuid.UUID) (*oauth2.Token, error) {
	query := `SELECT google_connected, google_access_token FROM users WHERE id = $1`

	var connected bool
	var sealed []byte
	if err := s.db.QueryRow(ctx, query, userID).Scan(&connected, &sealed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("db scan error: %w", err)
	}

	if !connected || len(sealed) == 0 {
		return nil, ErrNoToken
	}

	return s.open(sealed)
}

// ListConnectedTokens returns every connected user's token. Rows that fail to decrypt are skipped.
func (s *TokenStore) ListConnectedTokens(ctx context.Context) ([]domain.ConnectedToken, error) {
	query := `
    SELECT id, google_access_token
    FROM users
    WHERE google_connected = TRUE AND google_access_token IS NOT NULL;
    `

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	defer rows.Close()

	var out []domain.ConnectedToken
	for rows.Next() {
		var id uuid.UUID
		var sealed []byte
		if err := rows.Scan(&id, &sealed); err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}

		tok, err := s.open(sealed)
		if err != nil {
			s.logger.Warn("skipping unreadable token", zap.String("user_id", id.String()), zap.Error(err))
			continue
		}
		out = append(out, domain.ConnectedToken{UserID: id, Token: tok})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}

	return out, nil
}

func (s *TokenStore) exec(ctx context.Context, query string, args ...any) error {
	cmdTag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *TokenStore) seal(tok *oauth2.Token) ([]byte, error) {
	if tok == nil {
		return nil, fmt.Errorf("token is nil")
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return nil, fmt.Errorf("could not marshal token: %w", err)
	}
	sealed, err := s.box.Seal(raw)
	if err != nil {
		return nil, fmt.Errorf("could not encrypt token: %w", err)
	}
	return sealed, nil
}

func (s *TokenStore) open(sealed []byte) (*oauth2.Token, error) {
	raw, err := s.box.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("could not decrypt token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("could not unmarshal token: %w", err)
	}
	return &tok, nil
}
