package gcal

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"gcal-connect-api/internal/metrics"
	"gcal-connect-api/internal/session"
	"gcal-connect-api/internal/store/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// AuthURL starts the consent flow. The redirect is handed back by HandleCallback.
func (s *Service) AuthURL(ctx context.Context, userID uuid.UUID, redirect string) (string, error) {
	if err := s.ValidateRedirect(redirect); err != nil {
		return "", err
	}

	state, err := newState()
	if err != nil {
		return "", fmt.Errorf("could not generate state: %w", err)
	}

	if err := s.sessions.PutState(ctx, state, session.FlowState{UserID: userID, Redirect: redirect}, s.stateTTL); err != nil {
		return "", fmt.Errorf("could not store oauth state: %w", err)
	}

	return s.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

// HandleCallback consumes the state, exchanges the code and stores the token in both tiers.
// The returned redirect is valid even when err is ErrMissingCode.
func (s *Service) HandleCallback(ctx context.Context, state, code string) (string, error) {
	fs, err := s.sessions.TakeState(ctx, state)
	if err != nil {
		if errors.Is(err, session.ErrStateNotFound) {
			return "/", ErrInvalidState
		}
		return "/", fmt.Errorf("could not load oauth state: %w", err)
	}

	redirect := fs.Redirect
	if redirect == "" {
		redirect = "/"
	}

	if code == "" {
		return redirect, ErrMissingCode
	}

	tok, err := s.oauth.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return redirect, fmt.Errorf("could not exchange authorization code: %w", err)
	}

	// Persist before caching.
	if err := s.tokens.SaveGoogleToken(ctx, fs.UserID, tok); err != nil {
		return redirect, fmt.Errorf("could not save token: %w", err)
	}
	if err := s.sessions.PutToken(ctx, fs.UserID, tok); err != nil {
		s.logger.Warn("could not cache token in session", zap.String("user_id", fs.UserID.String()), zap.Error(err))
	}

	s.logger.Info("google account connected", zap.String("user_id", fs.UserID.String()))
	return redirect, nil
}

// IsAuthed reports whether the user has a usable token, refreshing it if needed.
func (s *Service) IsAuthed(ctx context.Context, userID uuid.UUID) (bool, error) {
	_, err := s.authorizedToken(ctx, userID)
	if errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrTokenRevoked) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// authorizedToken checks the session first, then the database, and keeps the session warm.
func (s *Service) authorizedToken(ctx context.Context, userID uuid.UUID) (*oauth2.Token, error) {
	tok, err := s.sessions.GetToken(ctx, userID)
	if err != nil {
		s.logger.Warn("session lookup failed, falling back to database", zap.String("user_id", userID.String()), zap.Error(err))
		tok = nil
	}
	fromSession := tok != nil

	if tok == nil {
		tok, err = s.tokens.GetGoogleToken(ctx, userID)
		if errors.Is(err, token.ErrNoToken) {
			return nil, ErrNotAuthenticated
		}
		if err != nil {
			return nil, fmt.Errorf("could not load token: %w", err)
		}
	}

	checked, err := s.CheckToken(ctx, userID, tok)
	if err != nil {
		return nil, err
	}

	if !fromSession && checked == tok {
		if err := s.sessions.PutToken(ctx, userID, checked); err != nil {
			s.logger.Warn("could not cache token in session", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}
	return checked, nil
}

// CheckToken returns tok when it is still valid, otherwise a refreshed token.
func (s *Service) CheckToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) (*oauth2.Token, error) {
	if tok == nil {
		return nil, ErrNotAuthenticated
	}
	if tok.Valid() {
		return tok, nil
	}
	return s.RefreshToken(ctx, userID, tok)
}

// RefreshToken exchanges the refresh token and writes the result to session and database.
// An invalid_grant answer disconnects the user and returns ErrTokenRevoked.
func (s *Service) RefreshToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) (*oauth2.Token, error) {
	log := s.logger.With(zap.String("user_id", userID.String()))

	if tok.RefreshToken == "" {
		log.Warn("token expired and no refresh token is stored, disconnecting")
		if err := s.disconnect(ctx, userID); err != nil {
			return nil, err
		}
		return nil, ErrNotAuthenticated
	}

	// Only the refresh token is passed so the source always hits the token endpoint.
	src := s.oauth.TokenSource(s.oauthContext(ctx), &oauth2.Token{RefreshToken: tok.RefreshToken})
	newTok, err := src.Token()
	if err != nil {
		if isInvalidGrant(err) {
			log.Warn("refresh token revoked, disconnecting", zap.Error(err))
			s.metrics.TokenRefreshed(metrics.ResultRevoked)
			if derr := s.disconnect(ctx, userID); derr != nil {
				return nil, derr
			}
			return nil, ErrTokenRevoked
		}
		s.metrics.TokenRefreshed(metrics.ResultError)
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	if newTok.RefreshToken == "" {
		newTok.RefreshToken = tok.RefreshToken
	}

	if err := s.tokens.UpdateGoogleToken(ctx, userID, newTok); err != nil {
		s.metrics.TokenRefreshed(metrics.ResultError)
		return nil, fmt.Errorf("could not persist refreshed token: %w", err)
	}
	if err := s.sessions.PutToken(ctx, userID, newTok); err != nil {
		log.Warn("could not cache refreshed token in session", zap.Error(err))
	}

	s.metrics.TokenRefreshed(metrics.ResultSuccess)
	log.Debug("token refreshed", zap.Time("expiry", newTok.Expiry))
	return newTok, nil
}

// RevokeToken revokes at Google (best effort) and clears both tiers.
func (s *Service) RevokeToken(ctx context.Context, userID uuid.UUID) error {
	log := s.logger.With(zap.String("user_id", userID.String()))

	tok, err := s.sessions.GetToken(ctx, userID)
	if err != nil || tok == nil {
		tok, err = s.tokens.GetGoogleToken(ctx, userID)
		if err != nil && !errors.Is(err, token.ErrNoToken) {
			log.Warn("could not load token for revocation", zap.Error(err))
		}
	}

	if tok != nil {
		s.revokeAtGoogle(ctx, tok, log)
	}

	if err := s.disconnect(ctx, userID); err != nil {
		return err
	}

	log.Info("google account disconnected")
	return nil
}

func (s *Service) revokeAtGoogle(ctx context.Context, tok *oauth2.Token, log *zap.Logger) {
	value := tok.RefreshToken
	if value == "" {
		value = tok.AccessToken
	}
	if value == "" {
		return
	}

	form := url.Values{}
	form.Set("token", value)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		log.Warn("could not build revoke request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client().Do(req)
	if err != nil {
		// Local state is cleared regardless.
		log.Warn("failed to revoke token at Google", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Warn("google rejected token revocation",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
	}
}

// disconnect clears the session slot and the stored token.
func (s *Service) disconnect(ctx context.Context, userID uuid.UUID) error {
	if err := s.sessions.ForgetToken(ctx, userID); err != nil {
		s.logger.Warn("could not clear session token", zap.String("user_id", userID.String()), zap.Error(err))
	}
	if err := s.tokens.ClearGoogleToken(ctx, userID); err != nil {
		return fmt.Errorf("could not clear stored token: %w", err)
	}
	return nil
}

// ValidateRedirect accepts empty, relative paths and URLs under the application URL.
// Backslashes are refused since browsers read them as slashes.
func (s *Service) ValidateRedirect(redirect string) error {
	if redirect == "" {
		return nil
	}
	if strings.Contains(redirect, `\`) {
		return ErrInvalidRedirect
	}
	if strings.HasPrefix(redirect, "/") && !strings.HasPrefix(redirect, "//") {
		u, err := url.Parse(redirect)
		if err != nil || u.Scheme != "" || u.Host != "" {
			return ErrInvalidRedirect
		}
		return nil
	}
	if s.appURL != "" && (redirect == s.appURL || strings.HasPrefix(redirect, s.appURL+"/")) {
		return nil
	}
	return ErrInvalidRedirect
}

func isInvalidGrant(err error) bool {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorCode == "invalid_grant" {
		return true
	}
	return strings.Contains(err.Error(), "invalid_grant")
}

func newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
