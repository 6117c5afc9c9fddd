package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gcal-connect-api/internal/api/auth"
	"gcal-connect-api/internal/api/calendar"
	"gcal-connect-api/internal/api/common"
	"gcal-connect-api/internal/api/health"
	"gcal-connect-api/internal/api/user"
	"gcal-connect-api/internal/metrics"
	"gcal-connect-api/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configure the HTTP surface.
type Options struct {
	JWTSecret      string
	AllowedOrigins []string
}

type Server struct {
	Router  *chi.Mux
	store   store.Storer
	service common.CalendarService
	Logger  *zap.Logger
	metrics *metrics.Metrics
	jwtKey  []byte
	origins []string
}

func NewServer(s store.Storer, svc common.CalendarService, opts Options, logger *zap.Logger, m *metrics.Metrics) *Server {
	server := &Server{
		Router:  chi.NewRouter(),
		store:   s,
		service: svc,
		Logger:  logger.With(zap.String("component", "api")),
		metrics: m,
		jwtKey:  []byte(opts.JWTSecret),
		origins: opts.AllowedOrigins,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.RealIP)
	s.Router.Use(s.requestLogger)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(s.metrics.Middleware)

	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.Router.Get("/health", health.HandleHealth(s.Logger))
	s.Router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	s.Router.Get("/oauth2callback", auth.HandleOAuthCallback(s.service, s.Logger))

	s.Router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/me", user.HandleGetMe(s.store, s.Logger))

		r.Get("/google/auth-url", auth.HandleAuthURL(s.service, s.Logger))
		r.Get("/google/status", auth.HandleStatus(s.service, s.Logger))
		r.Post("/google/revoke", auth.HandleRevoke(s.service, s.Logger))

		r.Get("/calendars", calendar.HandleListCalendars(s.service, s.Logger))
		r.Get("/events", calendar.HandleListEvents(s.service, s.Logger))
		r.Post("/events", calendar.HandleCreateEvent(s.service, s.Logger))
		r.Put("/events/{eventId}", calendar.HandleUpdateEvent(s.service, s.Logger))
		r.Delete("/events/{eventId}", calendar.HandleDeleteEvent(s.service, s.Logger))
	})
}

// requestLogger logt elke request op debug niveau.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()

		next.ServeHTTP(ww, r)

		s.Logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(started)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// authMiddleware valideert JWT en zet user ID in context
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			common.WriteJSONError(w, http.StatusUnauthorized, "Geen authenticatie header", s.Logger)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("ongeldige signing method")
			}
			return s.jwtKey, nil
		})

		if err != nil || !token.Valid {
			common.WriteJSONError(w, http.StatusUnauthorized, "Ongeldige token", s.Logger)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			common.WriteJSONError(w, http.StatusUnauthorized, "Ongeldige claims", s.Logger)
			return
		}

		userIDStr, ok := claims["user_id"].(string)
		if !ok {
			common.WriteJSONError(w, http.StatusUnauthorized, "Geen user ID in token", s.Logger)
			return
		}

		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, "Ongeldig user ID", s.Logger)
			return
		}

		ctx := context.WithValue(r.Context(), common.UserContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
