package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gcal-connect-api/internal/domain"
	"gcal-connect-api/internal/gcal"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	defaultInterval = 5 * time.Minute
	defaultWindow   = 10 * time.Minute
	maxConcurrent   = 8
	cycleTimeout    = 50 * time.Second
)

// TokenLister yields every user with a stored Google token.
type TokenLister interface {
	ListConnectedTokens(ctx context.Context) ([]domain.ConnectedToken, error)
}

// Refresher renews a token and writes it back to session and database.
type Refresher interface {
	RefreshToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) (*oauth2.Token, error)
}

// CycleStats summarizes one pass over the connected users.
type CycleStats struct {
	Checked   int
	Refreshed int
	Revoked   int
	Failed    int
}

// Worker is de struct voor onze achtergrond-processor
type Worker struct {
	store     TokenLister
	refresher Refresher
	logger    *zap.Logger
	interval  time.Duration
	window    time.Duration
	now       func() time.Time
}

// NewWorker refreshes tokens that expire within window, every interval.
func NewWorker(s TokenLister, r Refresher, logger *zap.Logger, interval, window time.Duration) (*Worker, error) {
	if s == nil {
		return nil, fmt.Errorf("token store mag niet nil zijn")
	}
	if r == nil {
		return nil, fmt.Errorf("refresher mag niet nil zijn")
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	if window <= 0 {
		window = defaultWindow
	}

	return &Worker{
		store:     s,
		refresher: r,
		logger:    logger.With(zap.String("component", "worker")),
		interval:  interval,
		window:    window,
		now:       time.Now,
	}, nil
}

// Start lanceert de worker in een aparte goroutine. Stops when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	w.logger.Info("starting token keeper",
		zap.Duration("interval", w.interval),
		zap.Duration("window", w.window))

	go func() {
		defer close(done)
		w.run(ctx)
	}()

	return done
}

// run is de hoofdloop
func (w *Worker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Draai één keer direct bij het opstarten
	w.doWork(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("token keeper stopped")
			return
		case <-ticker.C:
			w.doWork(ctx)
		}
	}
}

func (w *Worker) doWork(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	stats, err := w.RunCycle(ctx)
	if errors.Is(err, context.Canceled) {
		w.logger.Info("token keeper cycle cancelled", zap.Int("refreshed", stats.Refreshed))
		return
	}
	if err != nil {
		w.logger.Error("token keeper cycle failed", zap.Error(err))
		return
	}

	w.logger.Debug("token keeper cycle finished",
		zap.Int("checked", stats.Checked),
		zap.Int("refreshed", stats.Refreshed),
		zap.Int("revoked", stats.Revoked),
		zap.Int("failed", stats.Failed))
}

// RunCycle checks all connected users once.
func (w *Worker) RunCycle(ctx context.Context) (CycleStats, error) {
	tokens, err := w.store.ListConnectedTokens(ctx)
	if err != nil {
		return CycleStats{}, fmt.Errorf("could not list connected tokens: %w", err)
	}

	var (
		mu    sync.Mutex
		stats = CycleStats{Checked: len(tokens)}
		wg    sync.WaitGroup
		sem   = make(chan struct{}, maxConcurrent)
	)

	for _, ct := range tokens {
		if !w.needsRefresh(ct.Token) {
			continue
		}

		if ctx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(ct domain.ConnectedToken) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := w.refresh(ctx, ct)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeRefreshed:
				stats.Refreshed++
			case outcomeRevoked:
				stats.Revoked++
			case outcomeFailed:
				stats.Failed++
			}
		}(ct)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("cycle interrupted: %w", err)
	}
	return stats, nil
}

// needsRefresh is true for tokens that expire within the window.
// Tokens without an expiry never expire.
func (w *Worker) needsRefresh(tok *oauth2.Token) bool {
	if tok == nil || tok.Expiry.IsZero() {
		return false
	}
	return tok.Expiry.Before(w.now().Add(w.window))
}

type outcome int

const (
	outcomeRefreshed outcome = iota
	outcomeRevoked
	outcomeFailed
)

func (w *Worker) refresh(ctx context.Context, ct domain.ConnectedToken) outcome {
	log := w.logger.With(zap.String("user_id", ct.UserID.String()))

	_, err := w.refresher.RefreshToken(ctx, ct.UserID, ct.Token)
	switch {
	case err == nil:
		log.Debug("token refreshed ahead of expiry")
		return outcomeRefreshed
	case errors.Is(err, gcal.ErrTokenRevoked), errors.Is(err, gcal.ErrNotAuthenticated):
		log.Info("user disconnected during refresh", zap.Error(err))
		return outcomeRevoked
	default:
		log.Warn("token refresh failed", zap.Error(err))
		return outcomeFailed
	}
}
