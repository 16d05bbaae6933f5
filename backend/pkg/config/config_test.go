package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortune-master/backend/internal/constants"
	apperrors "fortune-master/backend/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	t.Setenv("DEEPSEEK_API_BASE", "https://example.test/v1/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, float32(0), cfg.LLM.Temperature)
	assert.Equal(t, constants.DefaultMaxIterations, cfg.Agent.MaxIterations)
	assert.Equal(t, constants.DefaultToolTimeout, cfg.Agent.ToolTimeout)
	assert.False(t, cfg.KnowledgeBaseEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	t.Setenv("AGENT_MAX_ITERATIONS", "3")
	t.Setenv("TOOL_TIMEOUT", "2s")
	t.Setenv("SESSION_IDLE_TIMEOUT", "5m")
	t.Setenv("DEEPSEEK_TEMPERATURE", "0.3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Agent.MaxIterations)
	assert.Equal(t, 2*time.Second, cfg.Agent.ToolTimeout)
	assert.Equal(t, 5*time.Minute, cfg.SessionIdleTimeout)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 0.0001)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")

	_, err := Load()
	require.Error(t, err)

	var missing *apperrors.ErrConfigMissingRequired
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "DEEPSEEK_API_KEY", missing.Field)
}

func TestValidate_Bounds(t *testing.T) {
	base := func() *Config {
		return &Config{
			LLM:   LLMConfig{BaseURL: "http://x", APIKey: "k", Model: "m"},
			Agent: AgentConfig{MaxIterations: 1, ToolTimeout: time.Second},
		}
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Agent.MaxIterations = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.LLM.Temperature = 3
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Neo4jURI = "bolt://localhost:7687"
	assert.Error(t, cfg.Validate())
}
