package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gcal-connect-api/internal/api/common"
	"gcal-connect-api/internal/gcal"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func withUser(req *http.Request, userID uuid.UUID) *http.Request {
	ctx := context.WithValue(req.Context(), common.UserContextKey, userID)
	return req.WithContext(ctx)
}

func TestGenerateJWT(t *testing.T) {
	userID := uuid.New()

	tokenString, err := GenerateJWT("test-secret-key", userID, time.Hour)
	require.NoError(t, err)

	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret-key"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)

	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, userID.String(), claims["user_id"])
	assert.Equal(t, jwtIssuer, claims["iss"])
}

func TestGenerateJWT_NoSecret(t *testing.T) {
	_, err := GenerateJWT("", uuid.New(), time.Hour)
	assert.Error(t, err)
}

func TestHandleAuthURL(t *testing.T) {
	svc := new(gcal.MockService)
	userID := uuid.New()
	svc.On("AuthURL", mock.Anything, userID, "/calendar").Return("https://accounts.google.com/o/oauth2/auth?state=x", nil)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/google/auth-url?redirect=/calendar", nil), userID)
	rr := httptest.NewRecorder()

	HandleAuthURL(svc, zap.NewNop()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "https://accounts.google.com/o/oauth2/auth?state=x", body["url"])
	svc.AssertExpectations(t)
}

func TestHandleAuthURL_BadRedirect(t *testing.T) {
	svc := new(gcal.MockService)
	userID := uuid.New()
	svc.On("AuthURL", mock.Anything, userID, "https://evil.example.com").Return("", gcal.ErrInvalidRedirect)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/google/auth-url?redirect=https://evil.example.com", nil), userID)
	rr := httptest.NewRecorder()

	HandleAuthURL(svc, zap.NewNop()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleAuthURL_NoUser(t *testing.T) {
	rr := httptest.NewRecorder()

	HandleAuthURL(new(gcal.MockService), zap.NewNop()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandleStatus(t *testing.T) {
	svc := new(gcal.MockService)
	userID := uuid.New()
	svc.On("IsAuthed", mock.Anything, userID).Return(false, nil)

	rr := httptest.NewRecorder()
	HandleStatus(svc, zap.NewNop()).ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/google/status", nil), userID))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"authenticated":false}`, rr.Body.String())
}

func TestHandleStatus_Error(t *testing.T) {
	svc := new(gcal.MockService)
	userID := uuid.New()
	svc.On("IsAuthed", mock.Anything, userID).Return(false, errors.New("db down"))

	rr := httptest.NewRecorder()
	HandleStatus(svc, zap.NewNop()).ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/google/status", nil), userID))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestHandleRevoke(t *testing.T) {
	t.Run("JSON response", func(t *testing.T) {
		svc := new(gcal.MockService)
		userID := uuid.New()
		svc.On("ValidateRedirect", "").Return(nil)
		svc.On("RevokeToken", mock.Anything, userID).Return(nil)

		rr := httptest.NewRecorder()
		HandleRevoke(svc, zap.NewNop()).ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodPost, "/api/v1/google/revoke", nil), userID))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"message":"success"}`, rr.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("Redirect", func(t *testing.T) {
		svc := new(gcal.MockService)
		userID := uuid.New()
		svc.On("ValidateRedirect", "/settings").Return(nil)
		svc.On("RevokeToken", mock.Anything, userID).Return(nil)

		rr := httptest.NewRecorder()
		HandleRevoke(svc, zap.NewNop()).ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodPost, "/api/v1/google/revoke?redirect=/settings", nil), userID))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/settings", rr.Header().Get("Location"))
	})

	t.Run("Rejected redirect does not revoke", func(t *testing.T) {
		svc := new(gcal.MockService)
		userID := uuid.New()
		svc.On("ValidateRedirect", "https://evil.example.com").Return(gcal.ErrInvalidRedirect)

		rr := httptest.NewRecorder()
		HandleRevoke(svc, zap.NewNop()).ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodPost, "/api/v1/google/revoke?redirect=https://evil.example.com", nil), userID))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertNotCalled(t, "RevokeToken", mock.Anything, mock.Anything)
	})
}

func TestHandleOAuthCallback(t *testing.T) {
	t.Run("Success redirects", func(t *testing.T) {
		svc := new(gcal.MockService)
		svc.On("HandleCallback", mock.Anything, "s1", "c1").Return("/calendar", nil)

		rr := httptest.NewRecorder()
		HandleOAuthCallback(svc, zap.NewNop()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/oauth2callback?state=s1&code=c1", nil))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/calendar", rr.Header().Get("Location"))
	})

	t.Run("Missing code still redirects", func(t *testing.T) {
		svc := new(gcal.MockService)
		svc.On("HandleCallback", mock.Anything, "s1", "").Return("/", gcal.ErrMissingCode)

		rr := httptest.NewRecorder()
		HandleOAuthCallback(svc, zap.NewNop()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/oauth2callback?state=s1&error=access_denied", nil))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/", rr.Header().Get("Location"))
	})

	t.Run("Invalid state", func(t *testing.T) {
		svc := new(gcal.MockService)
		svc.On("HandleCallback", mock.Anything, "forged", "c1").Return("/", gcal.ErrInvalidState)

		rr := httptest.NewRecorder()
		HandleOAuthCallback(svc, zap.NewNop()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/oauth2callback?state=forged&code=c1", nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), `"error"`)
	})
}
