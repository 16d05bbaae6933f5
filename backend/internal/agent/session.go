package agent

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"fortune-master/backend/internal/metrics"
	"fortune-master/backend/internal/mood"
	"fortune-master/backend/internal/state"
	"fortune-master/backend/internal/tools"
	apperrors "fortune-master/backend/pkg/errors"
	"fortune-master/backend/pkg/logger"
)

// MoodClassifier picks a mood for a query
type MoodClassifier interface {
	Classify(ctx context.Context, query string) (mood.Mood, error)
}

// ErrorResult is a failed run as the caller sees it
type ErrorResult struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Result is the outcome of Session.Run. Exactly one of Final and Error is
// set.
type Result struct {
	SessionID  string       `json:"session_id"`
	Mood       mood.Mood    `json:"mood"`
	VoiceStyle string       `json:"voice_style"`
	Final      *FinalResult `json:"final,omitempty"`
	Error      *ErrorResult `json:"error,omitempty"`
}

// Output returns the answer text, or empty on failure
func (r *Result) Output() string {
	if r.Final == nil {
		return ""
	}
	return r.Final.Text
}

// Session is one request's view of the agent. It is not safe for
// concurrent use; build one per request.
type Session struct {
	ID   string
	Mood mood.Mood

	classifier   MoodClassifier
	orchestrator *Orchestrator
	registry     *tools.Registry
	history      []state.Turn
	logger       *zap.Logger
}

// NewSession creates a session starting in the default mood
func NewSession(id string, classifier MoodClassifier, orchestrator *Orchestrator, registry *tools.Registry, history []state.Turn) *Session {
	return &Session{
		ID:           id,
		Mood:         mood.Default,
		classifier:   classifier,
		orchestrator: orchestrator,
		registry:     registry,
		history:      history,
		logger:       logger.Get().With(zap.String("session_id", id)),
	}
}

// Run classifies the query's mood, assembles the prompt for that mood and
// executes the dispatch loop. It never panics and never returns nil.
func (s *Session) Run(ctx context.Context, query string) (result *Result) {
	start := time.Now()
	result = &Result{SessionID: s.ID}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Session run panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			result.Final = nil
			result.Error = &ErrorResult{
				Kind:    apperrors.KindInternal,
				Message: fmt.Sprintf("internal error: %v", r),
			}
		}
		result.Mood = s.Mood
		result.VoiceStyle = s.Mood.Profile().VoiceStyle

		outcome := "ok"
		if result.Error != nil {
			outcome = result.Error.Kind
		}
		metrics.RunTotal.WithLabelValues(outcome).Inc()
		s.logger.Info("Session run finished",
			zap.String("mood", s.Mood.String()),
			zap.String("outcome", outcome),
			zap.Duration("elapsed", time.Since(start)),
		)
	}()

	m, err := s.classifier.Classify(ctx, query)
	if err != nil {
		// Classification failures fall back to the default mood
		s.logger.Warn("Mood classification failed, continuing with default", zap.Error(err))
		m = mood.Default
	}
	s.Mood = mood.ParseOrDefault(m.String())

	prompt := AssemblePrompt(s.Mood)

	final, err := s.orchestrator.Execute(ctx, prompt, query, s.history, s.registry)
	if err != nil {
		s.logger.Warn("Dispatch loop failed", zap.Error(err))
		result.Error = &ErrorResult{
			Kind:    apperrors.Kind(err),
			Message: err.Error(),
		}
		return result
	}
	if final == nil || final.Text == "" {
		result.Error = &ErrorResult{
			Kind:    apperrors.KindModelCommunication,
			Message: apperrors.ErrAgentNoResponse.Error(),
		}
		return result
	}

	result.Final = final
	return result
}
