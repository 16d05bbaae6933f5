package state

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"fortune-master/backend/pkg/logger"
)

type memorySession struct {
	turns    []Turn
	lastSeen time.Time
}

// MemoryStore keeps sessions in process memory and forgets them after an
// idle timeout.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*memorySession
	idleTimeout time.Duration
	maxTurns    int
	now         func() time.Time
	logger      *zap.Logger
}

// NewMemoryStore creates an in-process store. maxTurns caps the history
// kept per session; zero or less keeps everything.
func NewMemoryStore(idleTimeout time.Duration, maxTurns int) *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]*memorySession),
		idleTimeout: idleTimeout,
		maxTurns:    maxTurns,
		now:         time.Now,
		logger:      logger.Get(),
	}
}

func (s *MemoryStore) expired(sess *memorySession, now time.Time) bool {
	return s.idleTimeout > 0 && now.Sub(sess.lastSeen) > s.idleTimeout
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return []Turn{}, nil
	}
	if s.expired(sess, s.now()) {
		delete(s.sessions, sessionID)
		return []Turn{}, nil
	}

	out := make([]Turn, len(sess.turns))
	copy(out, sess.turns)
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.sessions[sessionID]
	if !ok || s.expired(sess, now) {
		sess = &memorySession{}
		s.sessions[sessionID] = sess
	}

	sess.turns = append(sess.turns, turn)
	if s.maxTurns > 0 && len(sess.turns) > s.maxTurns {
		sess.turns = append([]Turn(nil), sess.turns[len(sess.turns)-s.maxTurns:]...)
	}
	sess.lastSeen = now
	return nil
}

// Len returns the number of sessions currently held, expired or not
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep evicts every idle session and returns how many were removed
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps on every tick until ctx is done
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("Evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}
