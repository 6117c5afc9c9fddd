package gcal

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"google.golang.org/api/calendar/v3"
)

// MockService is a testify mock of the calendar operations used by the HTTP handlers.
type MockService struct {
	mock.Mock
}

func (m *MockService) AuthURL(ctx context.Context, userID uuid.UUID, redirect string) (string, error) {
	args := m.Called(ctx, userID, redirect)
	return args.String(0), args.Error(1)
}

func (m *MockService) ValidateRedirect(redirect string) error {
	args := m.Called(redirect)
	return args.Error(0)
}

func (m *MockService) HandleCallback(ctx context.Context, state, code string) (string, error) {
	args := m.Called(ctx, state, code)
	return args.String(0), args.Error(1)
}

func (m *MockService) IsAuthed(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockService) RevokeToken(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockService) ListCalendars(ctx context.Context, userID uuid.UUID) ([]*calendar.CalendarListEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*calendar.CalendarListEntry), args.Error(1)
}

func (m *MockService) ListEvents(ctx context.Context, userID uuid.UUID, p ListEventsParams) (*EventList, error) {
	args := m.Called(ctx, userID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*EventList), args.Error(1)
}

func (m *MockService) CreateEvent(ctx context.Context, userID uuid.UUID, req EventRequest) (*MutationResult, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MutationResult), args.Error(1)
}

func (m *MockService) UpdateEvent(ctx context.Context, userID uuid.UUID, req EventRequest) (*MutationResult, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MutationResult), args.Error(1)
}

func (m *MockService) DeleteEvent(ctx context.Context, userID uuid.UUID, calendarID, eventID string) (*MutationResult, error) {
	args := m.Called(ctx, userID, calendarID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MutationResult), args.Error(1)
}
