package store

import (
	"gcal-connect-api/internal/crypto"
	"gcal-connect-api/internal/database"
	"gcal-connect-api/internal/store/token"
	"gcal-connect-api/internal/store/user"

	"go.uber.org/zap"
)

var (
	ErrNoToken      = token.ErrNoToken
	ErrUserNotFound = user.ErrUserNotFound
)

// Storer is the interface for all database interactions.
type Storer interface {
	user.UserStorer
	token.TokenStorer
}

// DBStore composes the user and token stores.
type DBStore struct {
	user.UserStorer
	token.TokenStorer
}

// NewStore builds a DBStore over any pgx-compatible querier.
func NewStore(db database.Querier, box *crypto.Box, logger *zap.Logger) Storer {
	return &DBStore{
		UserStorer:  user.NewUserStore(db),
		TokenStorer: token.NewTokenStore(db, box, logger),
	}
}
