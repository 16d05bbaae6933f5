package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"fortune-master/backend/internal/adapter"
	"fortune-master/backend/internal/constants"
	"fortune-master/backend/internal/metrics"
	"fortune-master/backend/internal/state"
	"fortune-master/backend/internal/tools"
	"fortune-master/backend/pkg/config"
	apperrors "fortune-master/backend/pkg/errors"
	"fortune-master/backend/pkg/logger"
)

// LLM is the decision-making model call the dispatch loop needs
type LLM interface {
	Generate(ctx context.Context, messages []adapter.Message, tools []adapter.Tool) (*adapter.Response, error)
}

// DispatchStep is one iteration of the dispatch loop: either a tool call
// and the text it produced, or the final answer.
type DispatchStep struct {
	Call   *adapter.ToolCall `json:"call,omitempty"`
	Result string            `json:"result,omitempty"`
	// Failed marks a Result that reports an error back to the model
	Failed bool   `json:"failed,omitempty"`
	Answer string `json:"answer,omitempty"`
}

// FinalResult is a completed run
type FinalResult struct {
	Text  string         `json:"text"`
	Trace []DispatchStep `json:"trace"`
}

// Orchestrator drives the decide → invoke → decide loop. It holds no
// per-run state and can serve any number of sessions concurrently.
type Orchestrator struct {
	llm    LLM
	cfg    config.AgentConfig
	logger *zap.Logger
}

// NewOrchestrator creates a new agent orchestrator
func NewOrchestrator(llm LLM, cfg config.AgentConfig) *Orchestrator {
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = constants.DefaultMaxIterations
	}
	if cfg.MaxUnknownToolRetries < 0 {
		cfg.MaxUnknownToolRetries = 0
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = constants.DefaultToolTimeout
	}
	return &Orchestrator{
		llm:    llm,
		cfg:    cfg,
		logger: logger.Get(),
	}
}

// Execute runs the dispatch loop for one query until the model gives a
// final answer or the run fails. Tool failures and unknown tool names are
// reported back to the model; the run only fails on budget exhaustion,
// model errors or cancellation.
func (o *Orchestrator) Execute(
	ctx context.Context,
	prompt SystemPrompt,
	query string,
	history []state.Turn,
	registry *tools.Registry,
) (*FinalResult, error) {
	executor := tools.NewExecutor(registry, o.cfg.ToolTimeout)
	definitions := registry.Definitions()

	var (
		scratchpad []DispatchStep
		cycles     int
		unknown    int
	)
	defer func() {
		metrics.DispatchCycles.Observe(float64(cycles))
	}()

	for {
		// Deciding
		if err := ctx.Err(); err != nil {
			return nil, apperrors.NewContextCancelled("dispatch loop", err)
		}

		resp, err := o.llm.Generate(ctx, prompt.Messages(history, query, scratchpad), definitions)
		if err != nil {
			return nil, normalizeModelError(ctx, err)
		}

		if len(resp.ToolCalls) == 0 {
			text := strings.TrimSpace(resp.Content)
			if text == "" {
				return nil, apperrors.ErrAgentNoResponse
			}
			o.logger.Debug("Dispatch loop finished",
				zap.Int("cycles", cycles),
				zap.String("mood", prompt.Mood.String()),
			)
			return &FinalResult{
				Text:  text,
				Trace: append(scratchpad, DispatchStep{Answer: text}),
			}, nil
		}

		// Invoking, one cycle per requested call
		for i := range resp.ToolCalls {
			call := resp.ToolCalls[i]
			if cycles >= o.cfg.MaxIterations {
				o.logger.Warn("Dispatch loop budget exhausted",
					zap.Int("max_iterations", o.cfg.MaxIterations),
					zap.String("pending_tool", call.Name),
				)
				return nil, apperrors.NewLoopBudgetExceeded(o.cfg.MaxIterations)
			}
			if err := ctx.Err(); err != nil {
				return nil, apperrors.NewContextCancelled("dispatch loop", err)
			}
			cycles++
			if call.ID == "" {
				call.ID = fmt.Sprintf("call_%d", cycles)
			}

			step, err := o.invoke(ctx, executor, registry, call, &unknown)
			if err != nil {
				return nil, err
			}
			scratchpad = append(scratchpad, step)
		}
	}
}

// invoke runs one tool call and turns recoverable failures into an error
// result for the scratchpad. Only cancellation and an exhausted unknown-tool
// budget are returned as errors.
func (o *Orchestrator) invoke(
	ctx context.Context,
	executor *tools.Executor,
	registry *tools.Registry,
	call adapter.ToolCall,
	unknown *int,
) (DispatchStep, error) {
	step := DispatchStep{Call: &call}

	out, err := executor.Execute(ctx, call)
	if err == nil {
		step.Result = out
		if call.Name == tools.ToolBaziCesuan {
			o.logger.Info("八字排盘工具已触发",
				zap.String("call_id", call.ID),
				zap.Any("arguments", call.Arguments),
			)
		}
		return step, nil
	}

	var (
		notFound  *apperrors.ErrToolNotFound
		cancelled *apperrors.ErrContextCancelled
	)
	switch {
	case errors.As(err, &cancelled):
		return step, err
	case errors.As(err, &notFound):
		*unknown++
		if *unknown > o.cfg.MaxUnknownToolRetries {
			return step, notFound
		}
		step.Result = fmt.Sprintf("ERROR: tool %q does not exist. Available tools: %s",
			call.Name, strings.Join(registry.Names(), ", "))
	default:
		step.Result = "ERROR: " + err.Error()
	}
	step.Failed = true
	return step, nil
}

func normalizeModelError(ctx context.Context, err error) error {
	var (
		model     *apperrors.ErrModelCommunication
		cancelled *apperrors.ErrContextCancelled
	)
	if errors.As(err, &model) || errors.As(err, &cancelled) {
		return err
	}
	if ctx.Err() != nil {
		return apperrors.NewContextCancelled("dispatch loop", ctx.Err())
	}
	return apperrors.NewModelCommunication("", 1, err)
}
