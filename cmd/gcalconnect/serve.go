package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gcal-connect-api/internal/api"
	"gcal-connect-api/internal/config"
	"gcal-connect-api/internal/crypto"
	"gcal-connect-api/internal/database"
	"gcal-connect-api/internal/gcal"
	"gcal-connect-api/internal/logger"
	"gcal-connect-api/internal/metrics"
	"gcal-connect-api/internal/session"
	"gcal-connect-api/internal/store"
	"gcal-connect-api/internal/worker"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	shutdownTimeout        = 10 * time.Second
	sessionCleanupInterval = time.Minute
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the token keeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			log, err := logger.NewLogger(logger.OptionsFromEnv())
			if err != nil {
				return fmt.Errorf("could not initialize logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pool, err := database.ConnectDB(ctx, cfg.DatabaseURL, log)
			if err != nil {
				log.Error("could not connect to the database", zap.Error(err))
				return err
			}
			defer pool.Close()

			server, err := run(ctx, cfg, log, pool)
			if err != nil {
				log.Error("could not start application", zap.Error(err))
				return err
			}

			return serve(ctx, server, log)
		},
	}
}

// run wires every component and returns a configured, not yet listening, server.
// Background work stops when ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger, db database.Querier) (*http.Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := database.RunMigrations(ctx, db, cfg.RunMigrations, log); err != nil {
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	box, err := crypto.NewBox([]byte(cfg.EncryptionKey))
	if err != nil {
		return nil, err
	}

	dbStore := store.NewStore(db, box, log)

	sessions, err := newSessionStore(ctx, cfg, box, log)
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		if err := sessions.Close(); err != nil {
			log.Warn("could not close session store", zap.Error(err))
		}
	}()

	m := metrics.New()

	svc, err := gcal.NewService(gcal.Config{
		OAuth:  cfg.OAuthConfig(),
		Format: cfg.CalendarFormat,
		AppURL: cfg.AppURL,
	}, dbStore, sessions, log, gcal.WithMetrics(m))
	if err != nil {
		return nil, err
	}

	keeper, err := worker.NewWorker(dbStore, svc, log, cfg.TokenRefreshInterval, cfg.TokenRefreshWindow)
	if err != nil {
		return nil, fmt.Errorf("could not initialize worker: %w", err)
	}
	keeper.Start(ctx)

	apiServer := api.NewServer(dbStore, svc, api.Options{
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
	}, log, m)

	logger.Component(log, "main").Info("application configured",
		zap.String("app", cfg.AppName),
		zap.String("port", cfg.Port),
		zap.String("calendar_format", cfg.CalendarFormat),
		zap.Bool("redis_sessions", cfg.RedisURL != ""))

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      apiServer.Router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}, nil
}

func newSessionStore(ctx context.Context, cfg *config.Config, box *crypto.Box, log *zap.Logger) (session.Store, error) {
	if cfg.RedisURL == "" {
		return session.NewMemoryStore(cfg.SessionTTL, sessionCleanupInterval, log), nil
	}

	client, err := session.DialRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("could not connect to redis: %w", err)
	}
	return session.NewRedisStore(client, box, cfg.SessionTTL, log), nil
}

// serve blocks until ctx is cancelled, then shuts the server down gracefully.
func serve(ctx context.Context, server *http.Server, log *zap.Logger) error {
	log = logger.Component(log, "main")
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting API server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("could not start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
