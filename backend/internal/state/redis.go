package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "fortune-master/backend/pkg/errors"
	"fortune-master/backend/pkg/logger"
)

const redisKeyPrefix = "fortune-master:session:"

// RedisStore keeps each session as a capped Redis list whose TTL is the
// idle timeout, so eviction is left to Redis.
type RedisStore struct {
	client      redis.UniversalClient
	idleTimeout time.Duration
	maxTurns    int
	logger      *zap.Logger
}

// NewRedisStore wraps an existing client
func NewRedisStore(client redis.UniversalClient, idleTimeout time.Duration, maxTurns int) *RedisStore {
	return &RedisStore{
		client:      client,
		idleTimeout: idleTimeout,
		maxTurns:    maxTurns,
		logger:      logger.Get(),
	}
}

// NewRedisStoreFromURL parses a redis:// URL and verifies the connection
func NewRedisStoreFromURL(ctx context.Context, url string, idleTimeout time.Duration, maxTurns int) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis options: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.NewStoreUnavailable("redis", err)
	}
	return NewRedisStore(client, idleTimeout, maxTurns), nil
}

func sessionKey(sessionID string) string {
	return redisKeyPrefix + sessionID
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]Turn, error) {
	raw, err := s.client.LRange(ctx, sessionKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("redis", err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var turn Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			s.logger.Warn("Skipping malformed session turn",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, turn Turn) error {
	encoded, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to encode turn: %w", err)
	}

	key := sessionKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, encoded)
	if s.maxTurns > 0 {
		pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
	}
	if s.idleTimeout > 0 {
		pipe.Expire(ctx, key, s.idleTimeout)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.NewStoreUnavailable("redis", err)
	}
	return nil
}

// Close releases the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
