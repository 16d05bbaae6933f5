package state

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMemoryStore(idle time.Duration, maxTurns int) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 29, 8, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(idle, maxTurns)
	s.now = clock.Now
	return s, clock
}

func TestMemoryStore_AppendAndLoad(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestMemoryStore(time.Minute, 0)

	turns, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, turns)

	require.NoError(t, s.Append(ctx, "a", Turn{Query: "q1", Answer: "a1"}))
	require.NoError(t, s.Append(ctx, "a", Turn{Query: "q2", Answer: "a2"}))
	require.NoError(t, s.Append(ctx, "b", Turn{Query: "other"}))

	turns, err = s.Load(ctx, "a")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "q1", turns[0].Query)
	assert.Equal(t, "q2", turns[1].Query)

	turns[0].Query = "mutated"
	again, _ := s.Load(ctx, "a")
	assert.Equal(t, "q1", again[0].Query)
}

func TestMemoryStore_MaxTurns(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestMemoryStore(time.Minute, 2)

	for i := 1; i <= 4; i++ {
		require.NoError(t, s.Append(ctx, "a", Turn{Query: fmt.Sprintf("q%d", i)}))
	}

	turns, err := s.Load(ctx, "a")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "q3", turns[0].Query)
	assert.Equal(t, "q4", turns[1].Query)
}

func TestMemoryStore_IdleExpiry(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestMemoryStore(time.Minute, 0)

	require.NoError(t, s.Append(ctx, "a", Turn{Query: "q1"}))
	clock.Advance(30 * time.Second)
	require.NoError(t, s.Append(ctx, "b", Turn{Query: "q1"}))

	clock.Advance(45 * time.Second)
	turns, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, turns)

	turns, err = s.Load(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestMemoryStore(time.Minute, 0)

	require.NoError(t, s.Append(ctx, "a", Turn{}))
	require.NoError(t, s.Append(ctx, "b", Turn{}))
	clock.Advance(2 * time.Minute)
	require.NoError(t, s.Append(ctx, "c", Turn{}))

	assert.Equal(t, 2, s.Sweep())
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_RunStopsOnCancel(t *testing.T) {
	s, _ := newTestMemoryStore(time.Minute, 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, time.Millisecond) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMemoryStore_ConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestMemoryStore(time.Minute, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = s.Append(ctx, id, Turn{Query: id})
			}
		}(fmt.Sprintf("s%d", i))
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("s%d", i)
		turns, err := s.Load(ctx, id)
		require.NoError(t, err)
		require.Len(t, turns, 10)
		for _, turn := range turns {
			assert.Equal(t, id, turn.Query)
		}
	}
}
