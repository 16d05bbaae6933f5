package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fortune-master/backend/internal/state"
	"fortune-master/backend/internal/tools"
	"fortune-master/backend/pkg/logger"
)

// Master is the entry point used by the transports. It owns the shared,
// read-only pieces and builds a fresh Session for every request.
type Master struct {
	classifier   MoodClassifier
	orchestrator *Orchestrator
	registry     *tools.Registry
	store        state.Store
	logger       *zap.Logger
}

// NewMaster wires the agent together. store may be nil, in which case no
// history is kept between requests.
func NewMaster(classifier MoodClassifier, orchestrator *Orchestrator, registry *tools.Registry, store state.Store) *Master {
	return &Master{
		classifier:   classifier,
		orchestrator: orchestrator,
		registry:     registry,
		store:        store,
		logger:       logger.Get(),
	}
}

// Chat answers query within the given session. An empty sessionID starts a
// new session; the generated ID is returned in the result.
func (m *Master) Chat(ctx context.Context, sessionID, query string) *Result {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	var history []state.Turn
	if m.store != nil {
		turns, err := m.store.Load(ctx, sessionID)
		if err != nil {
			m.logger.Warn("Failed to load session history, continuing without it",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		} else {
			history = turns
		}
	}

	session := NewSession(sessionID, m.classifier, m.orchestrator, m.registry, history)
	result := session.Run(ctx, query)

	if result.Final != nil && m.store != nil {
		turn := state.Turn{
			Query:  query,
			Answer: result.Final.Text,
			Mood:   result.Mood.String(),
			At:     time.Now().UTC(),
		}
		// Saving is detached from request cancellation
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := m.store.Append(saveCtx, sessionID, turn); err != nil {
			m.logger.Warn("Failed to save session turn",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}

	return result
}
