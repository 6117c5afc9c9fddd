// Package session is the fast tier for per-user Google tokens and in-flight
// OAuth states. The durable copy of each token lives in the users table.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// ErrStateNotFound is returned for unknown, expired or already consumed states.
var ErrStateNotFound = errors.New("oauth state not found or expired")

// FlowState is what an OAuth state nonce resolves to on callback.
type FlowState struct {
	UserID   uuid.UUID `json:"user_id"`
	Redirect string    `json:"redirect"`
}

// Store is implemented by MemoryStore and RedisStore.
type Store interface {
	// GetToken returns nil, nil when nothing is cached for the user.
	GetToken(ctx context.Context, userID uuid.UUID) (*oauth2.Token, error)
	PutToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) error
	ForgetToken(ctx context.Context, userID uuid.UUID) error

	PutState(ctx context.Context, state string, fs FlowState, ttl time.Duration) error
	// TakeState returns the flow state and deletes it.
	TakeState(ctx context.Context, state string) (FlowState, error)

	Close() error
}
