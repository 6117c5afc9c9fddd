package store

import (
	"context"

	"gcal-connect-api/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"
)

// MockStore is a mock implementation of the Storer interface for testing
type MockStore struct {
	mock.Mock
}

// CreateUser mocks the CreateUser method
func (m *MockStore) CreateUser(ctx context.Context, email, name string) (domain.User, error) {
	args := m.Called(ctx, email, name)
	return args.Get(0).(domain.User), args.Error(1)
}

// GetUserByID mocks the GetUserByID method
func (m *MockStore) GetUserByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.User), args.Error(1)
}

// ListUsers mocks the ListUsers method
func (m *MockStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

// ListConnectedUsers mocks the ListConnectedUsers method
func (m *MockStore) ListConnectedUsers(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

// SaveGoogleToken mocks the SaveGoogleToken method
func (m *MockStore) SaveGoogleToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) error {
	args := m.Called(ctx, userID, tok)
	return args.Error(0)
}

// UpdateGoogleToken mocks the UpdateGoogleToken method
func (m *MockStore) UpdateGoogleToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) error {
	args := m.Called(ctx, userID, tok)
	return args.Error(0)
}

// ClearGoogleToken mocks the ClearGoogleToken method
func (m *MockStore) ClearGoogleToken(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// GetGoogleToken mocks the GetGoogleToken method
func (m *MockStore) GetGoogleToken(ctx context.Context, userID uuid.UUID) (*oauth2.Token, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

// ListConnectedTokens mocks the ListConnectedTokens method
func (m *MockStore) ListConnectedTokens(ctx context.Context) ([]domain.ConnectedToken, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ConnectedToken), args.Error(1)
}
