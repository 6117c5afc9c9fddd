package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gcal-connect-api/internal/crypto"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	tokenKeyPrefix = "gcal:token:"
	stateKeyPrefix = "gcal:state:"
)

// RedisStore shares sessions between API instances. Tokens are sealed before they are written.
type RedisStore struct {
	client   *redis.Client
	box      *crypto.Box
	tokenTTL time.Duration
	logger   *zap.Logger
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, box *crypto.Box, tokenTTL time.Duration, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client:   client,
		box:      box,
		tokenTTL: tokenTTL,
		logger:   logger.With(zap.String("component", "session-redis")),
	}
}

// DialRedis parses a redis:// URL and pings the server.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}
	return client, nil
}

func tokenKey(userID uuid.UUID) string { return tokenKeyPrefix + userID.String() }
func stateKey(state string) string     { return stateKeyPrefix + state }

func (s *RedisStore) GetToken(ctx context.Context, userID uuid.UUID) (*oauth2.Token, error) {
	sealed, err := s.client.Get(ctx, tokenKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	raw, err := s.box.Open(sealed)
	if err != nil {
		// An unreadable entry is treated as a miss; the caller falls back to the database.
		s.logger.Warn("dropping unreadable session token", zap.String("user_id", userID.String()), zap.Error(err))
		_ = s.client.Del(ctx, tokenKey(userID)).Err()
		return nil, nil
	}

	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("could not unmarshal session token: %w", err)
	}
	return &tok, nil
}

func (s *RedisStore) PutToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("could not marshal session token: %w", err)
	}
	sealed, err := s.box.Seal(raw)
	if err != nil {
		return fmt.Errorf("could not encrypt session token: %w", err)
	}

	if err := s.client.Set(ctx, tokenKey(userID), sealed, s.tokenTTL).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (s *RedisStore) ForgetToken(ctx context.Context, userID uuid.UUID) error {
	if err := s.client.Del(ctx, tokenKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del error: %w", err)
	}
	return nil
}

func (s *RedisStore) PutState(ctx context.Context, state string, fs FlowState, ttl time.Duration) error {
	raw, err := json.Marshal(fs)
	if err != nil {
		return fmt.Errorf("could not marshal flow state: %w", err)
	}
	if err := s.client.Set(ctx, stateKey(state), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (s *RedisStore) TakeState(ctx context.Context, state string) (FlowState, error) {
	raw, err := s.client.GetDel(ctx, stateKey(state)).Bytes()
	if errors.Is(err, redis.Nil) {
		return FlowState{}, ErrStateNotFound
	}
	if err != nil {
		return FlowState{}, fmt.Errorf("redis getdel error: %w", err)
	}

	var fs FlowState
	if err := json.Unmarshal(raw, &fs); err != nil {
		return FlowState{}, fmt.Errorf("could not unmarshal flow state: %w", err)
	}
	return fs, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
