package tools

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fortune-master/backend/internal/adapter"
	"fortune-master/backend/internal/constants"
	"fortune-master/backend/internal/metrics"
	apperrors "fortune-master/backend/pkg/errors"
	"fortune-master/backend/pkg/logger"
)

// Executor runs one tool call at a time against a registry
type Executor struct {
	registry *Registry
	timeout  time.Duration
	logger   *zap.Logger
}

// NewExecutor creates a tool executor with a per-call timeout
func NewExecutor(registry *Registry, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = constants.DefaultToolTimeout
	}
	return &Executor{
		registry: registry,
		timeout:  timeout,
		logger:   logger.Get(),
	}
}

type invokeOutcome struct {
	output string
	err    error
}

// Execute runs a tool call and returns its text output. Errors are always
// typed: *ErrToolNotFound for names outside the registry,
// *ErrContextCancelled when the caller's context ends, and
// *ErrToolExecutionFailed for everything the tool itself got wrong.
func (e *Executor) Execute(ctx context.Context, toolCall adapter.ToolCall) (string, error) {
	e.logger.Debug("Executing tool",
		zap.String("tool", toolCall.Name),
		zap.String("call_id", toolCall.ID),
	)

	tool, ok := e.registry.Lookup(toolCall.Name)
	if !ok {
		metrics.ToolInvocations.WithLabelValues("unknown", "unknown").Inc()
		e.logger.Warn("Unknown tool", zap.String("tool", toolCall.Name))
		return "", apperrors.NewToolNotFound(toolCall.Name)
	}

	if err := e.registry.Validate(toolCall.Name, toolCall.Arguments); err != nil {
		metrics.ToolInvocations.WithLabelValues(toolCall.Name, "invalid").Inc()
		return "", apperrors.NewToolExecutionFailed(toolCall.Name, "invalid arguments", err)
	}

	toolCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan invokeOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- invokeOutcome{err: fmt.Errorf("tool panicked: %v", r)}
			}
		}()
		out, err := tool.Invoke(toolCtx, toolCall.Arguments)
		done <- invokeOutcome{output: out, err: err}
	}()

	var outcome invokeOutcome
	select {
	case outcome = <-done:
	case <-toolCtx.Done():
	}
	// A result that lands after the deadline still counts as a timeout
	if toolCtx.Err() != nil {
		if ctx.Err() != nil {
			return "", apperrors.NewContextCancelled("tool "+toolCall.Name, ctx.Err())
		}
		metrics.ToolInvocations.WithLabelValues(toolCall.Name, "timeout").Inc()
		e.logger.Warn("Tool timed out",
			zap.String("tool", toolCall.Name),
			zap.Duration("timeout", e.timeout),
		)
		return "", apperrors.NewToolExecutionFailed(toolCall.Name, "timeout",
			apperrors.NewContextTimeout("tool "+toolCall.Name, e.timeout))
	}
	metrics.ToolDuration.WithLabelValues(toolCall.Name).Observe(time.Since(start).Seconds())

	if outcome.err != nil {
		metrics.ToolInvocations.WithLabelValues(toolCall.Name, "error").Inc()
		e.logger.Warn("Tool execution failed",
			zap.String("tool", toolCall.Name),
			zap.Error(outcome.err),
		)
		return "", apperrors.NewToolExecutionFailed(toolCall.Name, outcome.err.Error(), outcome.err)
	}

	metrics.ToolInvocations.WithLabelValues(toolCall.Name, "ok").Inc()
	return truncateRunes(outcome.output, constants.MaxToolOutputRunes), nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "...(truncated)"
}
