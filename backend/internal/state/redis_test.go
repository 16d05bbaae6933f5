package state

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "fortune-master/backend/pkg/errors"
)

func newTestRedisStore(t *testing.T, idle time.Duration, maxTurns int) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, idle, maxTurns), mr
}

func TestRedisStore_AppendAndLoad(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t, time.Minute, 0)

	turns, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, turns)

	require.NoError(t, s.Append(ctx, "a", Turn{Query: "今年运势如何", Answer: "大吉", Mood: "default"}))
	require.NoError(t, s.Append(ctx, "a", Turn{Query: "q2"}))

	turns, err = s.Load(ctx, "a")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "今年运势如何", turns[0].Query)
	assert.Equal(t, "大吉", turns[0].Answer)
	assert.Equal(t, "q2", turns[1].Query)
}

func TestRedisStore_MaxTurnsAndTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t, time.Minute, 3)

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Append(ctx, "a", Turn{Query: fmt.Sprintf("q%d", i)}))
	}

	turns, err := s.Load(ctx, "a")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "q3", turns[0].Query)
	assert.Equal(t, time.Minute, mr.TTL(sessionKey("a")))

	mr.FastForward(2 * time.Minute)
	turns, err = s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestRedisStore_SkipsMalformedEntries(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t, time.Minute, 0)

	_, err := mr.Push(sessionKey("a"), "{broken")
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, "a", Turn{Query: "ok"}))

	turns, err := s.Load(ctx, "a")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "ok", turns[0].Query)
}

func TestRedisStore_Unavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	s := NewRedisStore(client, time.Minute, 0)

	_, err := s.Load(context.Background(), "a")
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeStore))
}

func TestNewRedisStoreFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedisStoreFromURL(context.Background(), "redis://"+mr.Addr(), time.Minute, 0)
	require.NoError(t, err)
	defer s.Close()

	_, err = NewRedisStoreFromURL(context.Background(), "not a url", time.Minute, 0)
	assert.Error(t, err)
}
