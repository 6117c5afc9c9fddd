// Package gcal wraps the Google OAuth2 and Calendar clients for a single
// application user. It keeps the session tier and the durable token column
// in sync on every exchange, refresh and revocation.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gcal-connect-api/internal/metrics"
	"gcal-connect-api/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	defaultCalendarID = "primary"
	defaultRevokeURL  = "https://oauth2.googleapis.com/revoke"
	defaultStateTTL   = 10 * time.Minute

	// FormatFullCalendar selects the FullCalendar list shape.
	FormatFullCalendar = "fullcalendar"
)

var (
	ErrNotAuthenticated = errors.New("access token required")
	ErrTokenRevoked     = errors.New("token access has been revoked by user")
	ErrInvalidState     = errors.New("invalid or expired oauth state")
	ErrMissingCode      = errors.New("authorization code missing")
	ErrInvalidRedirect  = errors.New("redirect must be relative or point at the application")
	ErrInvalidEvent     = errors.New("invalid event request")
)

// TokenStore is the durable token tier. store.Storer satisfies it.
type TokenStore interface {
	SaveGoogleToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) error
	UpdateGoogleToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) error
	ClearGoogleToken(ctx context.Context, userID uuid.UUID) error
	GetGoogleToken(ctx context.Context, userID uuid.UUID) (*oauth2.Token, error)
}

// Config carries the settings the service reads from the environment.
type Config struct {
	OAuth    *oauth2.Config
	Format   string
	AppURL   string
	StateTTL time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithHTTPClient sets the base client for token and Calendar calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

// WithCalendarEndpoint points the Calendar client at another base URL.
func WithCalendarEndpoint(endpoint string) Option {
	return func(s *Service) { s.calendarEndpoint = endpoint }
}

// WithRevokeURL overrides Google's token revocation endpoint.
func WithRevokeURL(u string) Option {
	return func(s *Service) { s.revokeURL = u }
}

// WithMetrics records Google calls and refreshes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service performs OAuth and Calendar operations on behalf of a user.
type Service struct {
	oauth    *oauth2.Config
	format   string
	appURL   string
	stateTTL time.Duration

	tokens   TokenStore
	sessions session.Store
	logger   *zap.Logger
	metrics  *metrics.Metrics

	httpClient       *http.Client
	calendarEndpoint string
	revokeURL        string
}

// NewService builds a Service.
func NewService(cfg Config, tokens TokenStore, sessions session.Store, logger *zap.Logger, opts ...Option) (*Service, error) {
	if cfg.OAuth == nil {
		return nil, fmt.Errorf("oauth config is required")
	}
	if cfg.Format != "" && cfg.Format != FormatFullCalendar {
		return nil, fmt.Errorf("unknown calendar format %q", cfg.Format)
	}

	s := &Service{
		oauth:     cfg.OAuth,
		format:    cfg.Format,
		appURL:    cfg.AppURL,
		stateTTL:  cfg.StateTTL,
		tokens:    tokens,
		sessions:  sessions,
		logger:    logger.With(zap.String("component", "gcal")),
		revokeURL: defaultRevokeURL,
	}
	if s.stateTTL <= 0 {
		s.stateTTL = defaultStateTTL
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Format reports the configured list format.
func (s *Service) Format() string {
	return s.format
}

// oauthContext carries the custom HTTP client into x/oauth2.
func (s *Service) oauthContext(ctx context.Context) context.Context {
	if s.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

func (s *Service) client() *http.Client {
	if s.httpClient != nil {
		return s.httpClient
	}
	return http.DefaultClient
}

// calendarService builds a Calendar client for an already validated token.
// The static source keeps refreshes inside CheckToken, where they are persisted.
func (s *Service) calendarService(ctx context.Context, tok *oauth2.Token) (*calendar.Service, error) {
	httpClient := oauth2.NewClient(s.oauthContext(ctx), oauth2.StaticTokenSource(tok))

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if s.calendarEndpoint != "" {
		opts = append(opts, option.WithEndpoint(s.calendarEndpoint))
	}

	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create calendar service: %w", err)
	}
	return srv, nil
}

// authorizedCalendar resolves the user's token and returns a ready client.
func (s *Service) authorizedCalendar(ctx context.Context, userID uuid.UUID) (*calendar.Service, error) {
	tok, err := s.authorizedToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.calendarService(ctx, tok)
}

func (s *Service) observe(operation string, started time.Time, err error) {
	s.metrics.ObserveGoogleCall(operation, started, err)
}
