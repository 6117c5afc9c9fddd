package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type tokenEntry struct {
	token     *oauth2.Token
	expiresAt time.Time
}

type stateEntry struct {
	flow      FlowState
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Used when REDIS_URL is empty.
type MemoryStore struct {
	mu       sync.RWMutex
	tokens   map[uuid.UUID]tokenEntry
	states   map[string]stateEntry
	tokenTTL time.Duration
	logger   *zap.Logger

	now  func() time.Time
	done chan struct{}
	once sync.Once
}

// NewMemoryStore creates a MemoryStore and starts its cleanup goroutine.
func NewMemoryStore(tokenTTL, cleanupInterval time.Duration, logger *zap.Logger) *MemoryStore {
	s := &MemoryStore{
		tokens:   make(map[uuid.UUID]tokenEntry),
		states:   make(map[string]stateEntry),
		tokenTTL: tokenTTL,
		logger:   logger.With(zap.String("component", "session-memory")),
		now:      time.Now,
		done:     make(chan struct{}),
	}

	go s.cleanup(cleanupInterval)

	return s
}

func (s *MemoryStore) GetToken(_ context.Context, userID uuid.UUID) (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.tokens[userID]
	if !ok || s.now().After(e.expiresAt) {
		return nil, nil
	}
	tok := *e.token
	return &tok, nil
}

func (s *MemoryStore) PutToken(_ context.Context, userID uuid.UUID, tok *oauth2.Token) error {
	copied := *tok

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[userID] = tokenEntry{token: &copied, expiresAt: s.now().Add(s.tokenTTL)}
	return nil
}

func (s *MemoryStore) ForgetToken(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, userID)
	return nil
}

func (s *MemoryStore) PutState(_ context.Context, state string, fs FlowState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[state] = stateEntry{flow: fs, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) TakeState(_ context.Context, state string) (FlowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.states[state]
	if !ok {
		return FlowState{}, ErrStateNotFound
	}
	delete(s.states, state)

	if s.now().After(e.expiresAt) {
		return FlowState{}, ErrStateNotFound
	}
	return e.flow, nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *MemoryStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanupExpired()
		}
	}
}

func (s *MemoryStore) cleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	tokensDeleted, statesDeleted := 0, 0

	for id, e := range s.tokens {
		if now.After(e.expiresAt) {
			delete(s.tokens, id)
			tokensDeleted++
		}
	}
	for state, e := range s.states {
		if now.After(e.expiresAt) {
			delete(s.states, state)
			statesDeleted++
		}
	}

	if tokensDeleted > 0 || statesDeleted > 0 {
		s.logger.Debug("cleaned up expired sessions",
			zap.Int("tokens_deleted", tokensDeleted),
			zap.Int("states_deleted", statesDeleted))
	}
}
