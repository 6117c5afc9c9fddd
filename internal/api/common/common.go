package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"gcal-connect-api/internal/gcal"
	"gcal-connect-api/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// contextKey for user ID
type contextKey string

var UserContextKey contextKey = "user_id"

// CalendarService is what the handlers need from gcal.Service.
type CalendarService interface {
	AuthURL(ctx context.Context, userID uuid.UUID, redirect string) (string, error)
	ValidateRedirect(redirect string) error
	HandleCallback(ctx context.Context, state, code string) (string, error)
	IsAuthed(ctx context.Context, userID uuid.UUID) (bool, error)
	RevokeToken(ctx context.Context, userID uuid.UUID) error
	ListCalendars(ctx context.Context, userID uuid.UUID) ([]*calendar.CalendarListEntry, error)
	ListEvents(ctx context.Context, userID uuid.UUID, p gcal.ListEventsParams) (*gcal.EventList, error)
	CreateEvent(ctx context.Context, userID uuid.UUID, req gcal.EventRequest) (*gcal.MutationResult, error)
	UpdateEvent(ctx context.Context, userID uuid.UUID, req gcal.EventRequest) (*gcal.MutationResult, error)
	DeleteEvent(ctx context.Context, userID uuid.UUID, calendarID, eventID string) (*gcal.MutationResult, error)
}

// GetUserIDFromContext haalt de user ID op die door de middleware in de context is gezet
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	userID, ok := ctx.Value(UserContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("missing or invalid user ID in context")
	}
	return userID, nil
}

// WriteJSON schrijft een standaard JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error(
			"failed to write JSON response",
			zap.Error(err),
			zap.Int("status", status),
			zap.String("component", "api"),
		)
	}
}

// WriteJSONError schrijft een standaard JSON error response
func WriteJSONError(w http.ResponseWriter, status int, message string, logger *zap.Logger) {
	WriteJSON(w, status, map[string]string{"error": message}, logger)
}

// WriteServiceError maps service and Google errors onto an HTTP status.
func WriteServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	status, message := StatusForError(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err), zap.String("component", "api"))
	} else {
		logger.Debug("request rejected", zap.Error(err), zap.Int("status", status), zap.String("component", "api"))
	}
	WriteJSONError(w, status, message, logger)
}

// StatusForError returns the status code and client-facing message for err.
func StatusForError(err error) (int, string) {
	switch {
	case errors.Is(err, gcal.ErrNotAuthenticated):
		return http.StatusUnauthorized, "Access token required"
	case errors.Is(err, gcal.ErrTokenRevoked):
		return http.StatusUnauthorized, gcal.ErrTokenRevoked.Error()
	case errors.Is(err, gcal.ErrInvalidState),
		errors.Is(err, gcal.ErrMissingCode),
		errors.Is(err, gcal.ErrInvalidRedirect),
		errors.Is(err, gcal.ErrInvalidEvent):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound, "Gebruiker niet gevonden"
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code >= 400 && gerr.Code < 600 {
		message := gerr.Message
		if message == "" {
			message = http.StatusText(gerr.Code)
		}
		return gerr.Code, message
	}

	return http.StatusInternalServerError, "Interne serverfout"
}
