package gcal

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"gcal-connect-api/internal/metrics"
	"gcal-connect-api/internal/session"
	"gcal-connect-api/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
)

const (
	validCode       = "good-code"
	revokedRefresh  = "1//revoked"
	activeRefresh   = "1//refresh"
	exchangedAccess = "ya29.exchanged"
	refreshedAccess = "ya29.refreshed"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Auth   string
	Body   []byte
}

// fakeGoogle serves the token, revoke and Calendar endpoints the service talks to.
type fakeGoogle struct {
	t      *testing.T
	server *httptest.Server

	mu          sync.Mutex
	requests    []recordedRequest
	revoked     []string
	revokeFails bool
	events      map[string]*calendar.Event
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{t: t, events: map[string]*calendar.Event{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", f.handleToken)
	mux.HandleFunc("POST /revoke", f.handleRevoke)
	mux.HandleFunc("GET /calendar/v3/users/me/calendarList", f.record(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, calendar.CalendarList{Items: []*calendar.CalendarListEntry{
			{Id: "primary", Summary: "Me", Primary: true},
			{Id: "team@group.calendar.google.com", Summary: "Team"},
		}})
	}))
	mux.HandleFunc("GET /calendar/v3/calendars/{cal}/events", f.record(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, calendar.Events{Items: []*calendar.Event{
			{Id: "evt1", Summary: "Lunch", Start: &calendar.EventDateTime{Date: "2024-06-01"}, End: &calendar.EventDateTime{Date: "2024-06-02"}},
		}})
	}))
	mux.HandleFunc("POST /calendar/v3/calendars/{cal}/events", f.record(func(w http.ResponseWriter, r *http.Request) {
		var ev calendar.Event
		require.NoError(f.t, json.Unmarshal(f.lastBody(), &ev))
		ev.Id = "created1"
		writeJSON(w, http.StatusOK, ev)
	}))
	mux.HandleFunc("GET /calendar/v3/calendars/{cal}/events/{id}", f.record(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		ev, ok := f.events[r.PathValue("id")]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": 404, "message": "Not Found"}})
			return
		}
		writeJSON(w, http.StatusOK, ev)
	}))
	mux.HandleFunc("PUT /calendar/v3/calendars/{cal}/events/{id}", f.record(func(w http.ResponseWriter, r *http.Request) {
		var ev calendar.Event
		require.NoError(f.t, json.Unmarshal(f.lastBody(), &ev))
		writeJSON(w, http.StatusOK, ev)
	}))
	mux.HandleFunc("DELETE /calendar/v3/calendars/{cal}/events/{id}", f.record(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGoogle) record(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Auth:   r.Header.Get("Authorization"),
			Body:   body,
		})
		f.mu.Unlock()
		next(w, r)
	}
}

func (f *fakeGoogle) handleToken(w http.ResponseWriter, r *http.Request) {
	require.NoError(f.t, r.ParseForm())

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		if r.PostForm.Get("code") != validCode {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  exchangedAccess,
			"token_type":    "Bearer",
			"refresh_token": activeRefresh,
			"expires_in":    3600,
		})
	case "refresh_token":
		if r.PostForm.Get("refresh_token") == revokedRefresh {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "invalid_grant",
				"error_description": "Token has been expired or revoked.",
			})
			return
		}
		// Google omits the refresh token on refresh.
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": refreshedAccess,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *fakeGoogle) handleRevoke(w http.ResponseWriter, r *http.Request) {
	require.NoError(f.t, r.ParseForm())
	f.mu.Lock()
	f.revoked = append(f.revoked, r.PostForm.Get("token"))
	fails := f.revokeFails
	f.mu.Unlock()

	if fails {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_token"})
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (f *fakeGoogle) lastBody() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1].Body
}

func (f *fakeGoogle) lastRequest() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(f.t, f.requests)
	return f.requests[len(f.requests)-1]
}

func (f *fakeGoogle) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://app.example.com/oauth2callback",
		Scopes:       []string{calendar.CalendarScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:   f.server.URL + "/auth",
			TokenURL:  f.server.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type testEnv struct {
	svc      *Service
	google   *fakeGoogle
	store    *store.MockStore
	sessions *session.MemoryStore
	metrics  *metrics.Metrics
}

func newTestEnv(t *testing.T, format string) *testEnv {
	t.Helper()

	google := newFakeGoogle(t)
	mockStore := new(store.MockStore)
	sessions := session.NewMemoryStore(time.Hour, time.Hour, zap.NewNop())
	t.Cleanup(func() { _ = sessions.Close() })
	m := metrics.New()

	svc, err := NewService(Config{
		OAuth:  google.oauthConfig(),
		Format: format,
		AppURL: "https://app.example.com",
	}, mockStore, sessions, zap.NewNop(),
		WithHTTPClient(google.server.Client()),
		WithCalendarEndpoint(google.server.URL+"/calendar/v3/"),
		WithRevokeURL(google.server.URL+"/revoke"),
		WithMetrics(m),
	)
	require.NoError(t, err)

	return &testEnv{svc: svc, google: google, store: mockStore, sessions: sessions, metrics: m}
}

func validToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  "ya29.valid",
		TokenType:    "Bearer",
		RefreshToken: activeRefresh,
		Expiry:       time.Now().Add(time.Hour),
	}
}

func expiredToken(refresh string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  "ya29.expired",
		TokenType:    "Bearer",
		RefreshToken: refresh,
		Expiry:       time.Now().Add(-time.Hour),
	}
}
