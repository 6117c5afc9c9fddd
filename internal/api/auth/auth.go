package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"gcal-connect-api/internal/api/common"
	"gcal-connect-api/internal/gcal"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	jwtIssuer     = "gcal-connect-api"
	DefaultJWTTTL = 7 * 24 * time.Hour
)

// GenerateJWT creert een HS256 token met de user_id claim.
func GenerateJWT(secret string, userID uuid.UUID, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT_SECRET_KEY is niet ingesteld")
	}
	if ttl <= 0 {
		ttl = DefaultJWTTTL
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"iss":     jwtIssuer,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("kon token niet ondertekenen: %w", err)
	}

	return tokenString, nil
}

// HandleAuthURL geeft de Google consent URL terug.
func HandleAuthURL(svc common.CalendarService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		authURL, err := svc.AuthURL(r.Context(), userID, r.URL.Query().Get("redirect"))
		if err != nil {
			common.WriteServiceError(w, err, log)
			return
		}

		common.WriteJSON(w, http.StatusOK, map[string]string{"url": authURL}, log)
	}
}

// HandleStatus meldt of de gebruiker een bruikbaar Google token heeft.
func HandleStatus(svc common.CalendarService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		authed, err := svc.IsAuthed(r.Context(), userID)
		if err != nil {
			common.WriteServiceError(w, err, log)
			return
		}

		common.WriteJSON(w, http.StatusOK, map[string]bool{"authenticated": authed}, log)
	}
}

// HandleRevoke trekt de toegang in. Met ?redirect= volgt een 303.
func HandleRevoke(svc common.CalendarService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		redirect := r.URL.Query().Get("redirect")
		if err := svc.ValidateRedirect(redirect); err != nil {
			common.WriteServiceError(w, err, log)
			return
		}

		if err := svc.RevokeToken(r.Context(), userID); err != nil {
			common.WriteServiceError(w, err, log)
			return
		}

		if redirect != "" {
			http.Redirect(w, r, redirect, http.StatusSeeOther)
			return
		}
		common.WriteJSON(w, http.StatusOK, map[string]string{"message": "success"}, log)
	}
}

// HandleOAuthCallback handles the redirect back from Google's consent screen.
func HandleOAuthCallback(svc common.CalendarService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if errParam := q.Get("error"); errParam != "" {
			log.Info("google consent denied", zap.String("error", errParam))
		}

		redirect, err := svc.HandleCallback(r.Context(), q.Get("state"), q.Get("code"))
		switch {
		case err == nil:
		case errors.Is(err, gcal.ErrMissingCode):
			// Consent was denied or aborted; nothing is stored.
			log.Info("oauth callback without code", zap.String("redirect", redirect))
		default:
			common.WriteServiceError(w, err, log)
			return
		}

		http.Redirect(w, r, redirect, http.StatusSeeOther)
	}
}
