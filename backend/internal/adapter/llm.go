package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"fortune-master/backend/pkg/config"
	apperrors "fortune-master/backend/pkg/errors"
	"fortune-master/backend/pkg/logger"
)

// Message roles
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
	RoleTool      = openai.ChatMessageRoleTool
)

// LLMAdapter talks to an OpenAI-compatible chat endpoint (DeepSeek by default).
// Its settings are fixed at construction, so one adapter is safe to share
// between concurrent sessions.
type LLMAdapter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxRetries  int
	backoff     time.Duration
	logger      *zap.Logger
}

// NewLLMAdapter creates a new LLM adapter from explicit configuration
func NewLLMAdapter(cfg config.LLMConfig) *LLMAdapter {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL

	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &LLMAdapter{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxRetries:  maxRetries,
		backoff:     time.Second,
		logger:      logger.Get(),
	}
}

// Model returns the configured model identifier
func (a *LLMAdapter) Model() string {
	return a.model
}

// Tool represents a function that can be called by the LLM
type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition defines a function that can be called
type FunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Message is one entry of a chat transcript
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall // assistant messages that request tools
	ToolCallID string     // tool messages answering a call
	Name       string
}

// Response represents the LLM's response
type Response struct {
	Content   string
	ToolCalls []ToolCall
}

// ToolCall represents a function call from the LLM
type ToolCall struct {
	ID           string
	Name         string
	Arguments    map[string]interface{}
	RawArguments string
}

// Complete runs a single plain completion with no tools and returns the text
func (a *LLMAdapter) Complete(ctx context.Context, systemPrompt string, messages []Message) (string, error) {
	all := make([]Message, 0, len(messages)+1)
	all = append(all, Message{Role: RoleSystem, Content: systemPrompt})
	all = append(all, messages...)

	resp, err := a.Generate(ctx, all, nil)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Generate sends a request to the LLM and returns the response
func (a *LLMAdapter) Generate(ctx context.Context, messages []Message, tools []Tool) (*Response, error) {
	openaiTools := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		openaiTools = append(openaiTools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			},
		})
	}

	req := openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: wireTemperature(a.temperature),
	}
	if len(openaiTools) > 0 {
		// ToolChoice defaults to "auto" when tools are provided
		req.Tools = openaiTools
	}

	var resp openai.ChatCompletionResponse
	var err error
	var failure *apperrors.ErrModelCommunication
	attempts := 0
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * a.backoff
			a.logger.Warn("Retrying LLM request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil, apperrors.NewContextCancelled("llm request", ctx.Err())
			case <-time.After(backoff):
			}
		}

		attempts++
		resp, err = a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}

		errMsg := err.Error()
		a.logger.Error("LLM request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", a.model),
		)

		if ctx.Err() != nil {
			return nil, apperrors.NewContextCancelled("llm request", ctx.Err())
		}
		if strings.Contains(errMsg, "invalid character") || strings.Contains(errMsg, "json") {
			a.logger.Warn("LLM service returned non-JSON error response - this may be a transient server issue",
				zap.String("error", errMsg),
			)
		}

		failure = apperrors.NewModelCommunication(a.model, attempts, err)
		failure.StatusCode = statusCode(err)
		if !apperrors.IsRetryable(failure) {
			a.logger.Warn("LLM request failed with a non-retryable status",
				zap.Int("status", failure.StatusCode),
			)
			break
		}
	}

	if err != nil {
		return nil, failure
	}

	if len(resp.Choices) == 0 {
		return nil, apperrors.NewModelCommunication(a.model, attempts, fmt.Errorf("no choices in LLM response"))
	}

	choice := resp.Choices[0]
	response := &Response{
		Content:   choice.Message.Content,
		ToolCalls: make([]ToolCall, 0, len(choice.Message.ToolCalls)),
	}

	for _, tc := range choice.Message.ToolCalls {
		toolCall := ToolCall{
			ID:           tc.ID,
			Name:         tc.Function.Name,
			RawArguments: tc.Function.Arguments,
		}

		// Unparseable arguments stay nil; schema validation reports them to the model.
		args, err := parseJSONArguments(tc.Function.Arguments)
		if err != nil {
			a.logger.Warn("Failed to parse tool call arguments",
				zap.String("tool_id", tc.ID),
				zap.String("tool", tc.Function.Name),
				zap.Error(err),
			)
		}
		toolCall.Arguments = args

		response.ToolCalls = append(response.ToolCalls, toolCall)
	}

	a.logger.Debug("LLM response generated",
		zap.String("model", a.model),
		zap.Int("tool_calls", len(response.ToolCalls)),
		zap.Bool("has_content", response.Content != ""),
	)

	return response, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			raw := tc.RawArguments
			if raw == "" {
				if encoded, err := json.Marshal(tc.Arguments); err == nil {
					raw = string(encoded)
				}
			}
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: raw,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

// wireTemperature maps 0 to the smallest positive float: go-openai drops a
// zero temperature from the request, which would select the server default.
func wireTemperature(t float32) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// statusCode extracts the HTTP status from a go-openai error, 0 if none
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// parseJSONArguments parses the JSON string arguments into a map
func parseJSONArguments(jsonStr string) (map[string]interface{}, error) {
	if strings.TrimSpace(jsonStr) == "" {
		return make(map[string]interface{}), nil
	}

	var args map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &args); err != nil {
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}
	if args == nil {
		args = make(map[string]interface{})
	}

	return args, nil
}
