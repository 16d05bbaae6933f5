package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortune-master/backend/pkg/config"
	apperrors "fortune-master/backend/pkg/errors"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *LLMAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a := NewLLMAdapter(config.LLMConfig{
		BaseURL:    srv.URL,
		APIKey:     "sk-test",
		Model:      "deepseek-chat",
		MaxRetries: 2,
	})
	a.backoff = time.Millisecond
	return a
}

func writeCompletion(t *testing.T, w http.ResponseWriter, msg map[string]interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "deepseek-chat",
		"choices": []map[string]interface{}{
			{"index": 0, "message": msg, "finish_reason": "stop"},
		},
	}))
}

func TestLLMAdapter_Complete(t *testing.T) {
	var got openai.ChatCompletionRequest
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(t, w, map[string]interface{}{"role": "assistant", "content": "cheerful"})
	})

	text, err := a.Complete(context.Background(), "classify", []Message{{Role: RoleUser, Content: "我今天好开心"}})
	require.NoError(t, err)
	assert.Equal(t, "cheerful", text)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
	assert.Equal(t, "我今天好开心", got.Messages[1].Content)
	assert.Empty(t, got.Tools)
	assert.Less(t, got.Temperature, float32(0.0001))
}

func TestLLMAdapter_Generate_ToolCalls(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "search", req.Tools[0].Function.Name)

		writeCompletion(t, w, map[string]interface{}{
			"role":    "assistant",
			"content": "",
			"tool_calls": []map[string]interface{}{
				{
					"id":       "call_1",
					"type":     "function",
					"function": map[string]interface{}{"name": "search", "arguments": `{"query":"蛇年"}`},
				},
				{
					"id":       "call_2",
					"type":     "function",
					"function": map[string]interface{}{"name": "search", "arguments": `{not json`},
				},
			},
		})
	})

	tools := []Tool{{
		Type: "function",
		Function: FunctionDefinition{
			Name:        "search",
			Description: "search the web",
			Parameters:  map[string]interface{}{"type": "object"},
		},
	}}

	resp, err := a.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, tools)
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 2)

	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "蛇年", resp.ToolCalls[0].Arguments["query"])
	assert.Nil(t, resp.ToolCalls[1].Arguments)
	assert.Equal(t, `{not json`, resp.ToolCalls[1].RawArguments)
}

func TestLLMAdapter_Generate_RetriesThenFails(t *testing.T) {
	var calls int32
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	})

	_, err := a.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	require.Error(t, err)

	var modelErr *apperrors.ErrModelCommunication
	require.True(t, errors.As(err, &modelErr))
	assert.Equal(t, 2, modelErr.Attempts)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestLLMAdapter_Generate_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"authentication_error"}}`))
	})

	_, err := a.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	require.Error(t, err)

	var modelErr *apperrors.ErrModelCommunication
	require.True(t, errors.As(err, &modelErr))
	assert.Equal(t, http.StatusUnauthorized, modelErr.StatusCode)
	assert.Equal(t, 1, modelErr.Attempts)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLLMAdapter_Generate_RateLimitIsRetried(t *testing.T) {
	var calls int32
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
			return
		}
		writeCompletion(t, w, map[string]interface{}{"role": "assistant", "content": "default"})
	})

	text, err := a.Complete(context.Background(), "classify", []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "default", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestToOpenAIMessages_Scratchpad(t *testing.T) {
	msgs := toOpenAIMessages([]Message{
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "yaoyigua", Arguments: map[string]interface{}{}}}},
		{Role: RoleTool, ToolCallID: "c1", Name: "yaoyigua", Content: "乾卦"},
	})

	require.Len(t, msgs, 2)
	require.Len(t, msgs[0].ToolCalls, 1)
	assert.Equal(t, "{}", msgs[0].ToolCalls[0].Function.Arguments)
	assert.Equal(t, openai.ToolTypeFunction, msgs[0].ToolCalls[0].Type)
	assert.Equal(t, "c1", msgs[1].ToolCallID)
}

func TestParseJSONArguments(t *testing.T) {
	args, err := parseJSONArguments("")
	require.NoError(t, err)
	assert.Empty(t, args)

	args, err = parseJSONArguments("null")
	require.NoError(t, err)
	assert.NotNil(t, args)

	_, err = parseJSONArguments("[1,2]")
	assert.Error(t, err)
}
