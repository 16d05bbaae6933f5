package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"fortune-master/backend/internal/constants"
	apperrors "fortune-master/backend/pkg/errors"
)

// Config holds all application configuration. It is built once at startup
// and handed to components by pointer; nothing in the core reads the
// environment directly.
type Config struct {
	// App
	Port string
	Env  string

	LLM   LLMConfig
	Agent AgentConfig

	// Tools
	SerpAPIKey       string
	YuanfenjuAPIKey  string
	YuanfenjuBaseURL string

	// Knowledge base (disabled when Neo4jURI is empty)
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// Session history (in-memory when RedisURL is empty)
	RedisURL           string
	SessionIdleTimeout time.Duration
	SessionMaxTurns    int
}

// LLMConfig describes the OpenAI-compatible chat endpoint
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxRetries  int
}

// AgentConfig bounds the tool dispatch loop
type AgentConfig struct {
	MaxIterations         int
	MaxUnknownToolRetries int
	ToolTimeout           time.Duration
}

// Load reads configuration from the environment, after merging .env and
// deepseek.env when present.
func Load() (*Config, error) {
	// Missing env files are fine; real deployments set the environment.
	for _, file := range []string{".env", "deepseek.env"} {
		_ = godotenv.Load(file)
	}

	cfg := &Config{
		Port: getEnv("PORT", "8000"),
		Env:  getEnv("ENV", "development"),
		LLM: LLMConfig{
			BaseURL:     strings.TrimRight(getEnv("DEEPSEEK_API_BASE", "https://api.deepseek.com/v1"), "/"),
			APIKey:      getEnv("DEEPSEEK_API_KEY", ""),
			Model:       getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
			Temperature: float32(getEnvFloat("DEEPSEEK_TEMPERATURE", 0)),
			MaxRetries:  getEnvInt("LLM_MAX_RETRIES", constants.DefaultLLMMaxRetries),
		},
		Agent: AgentConfig{
			MaxIterations:         getEnvInt("AGENT_MAX_ITERATIONS", constants.DefaultMaxIterations),
			MaxUnknownToolRetries: getEnvInt("AGENT_MAX_UNKNOWN_TOOL_RETRIES", constants.DefaultMaxUnknownToolRetries),
			ToolTimeout:           getEnvDuration("TOOL_TIMEOUT", constants.DefaultToolTimeout),
		},
		SerpAPIKey:         getEnv("SERPAPI_API_KEY", ""),
		YuanfenjuAPIKey:    getEnv("YUANFENJU_API_KEY", ""),
		YuanfenjuBaseURL:   getEnv("YUANFENJU_BASE_URL", "https://api.yuanfenju.com/index.php/v1"),
		Neo4jURI:           getEnv("NEO4J_URI", ""),
		Neo4jUser:          getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:      getEnv("NEO4J_PASSWORD", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		SessionIdleTimeout: getEnvDuration("SESSION_IDLE_TIMEOUT", constants.DefaultSessionIdleTimeout),
		SessionMaxTurns:    getEnvInt("SESSION_MAX_TURNS", constants.DefaultSessionMaxTurns),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.LLM.BaseURL == "" {
		return apperrors.NewConfigMissingRequired("DEEPSEEK_API_BASE")
	}
	if c.LLM.APIKey == "" {
		return apperrors.NewConfigMissingRequired("DEEPSEEK_API_KEY")
	}
	if c.LLM.Model == "" {
		return apperrors.NewConfigMissingRequired("DEEPSEEK_MODEL")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return apperrors.NewConfigValidationFailed("DEEPSEEK_TEMPERATURE", "must be between 0 and 2")
	}
	if c.Agent.MaxIterations < 1 {
		return apperrors.NewConfigValidationFailed("AGENT_MAX_ITERATIONS", "must be at least 1")
	}
	if c.Agent.MaxUnknownToolRetries < 0 {
		return apperrors.NewConfigValidationFailed("AGENT_MAX_UNKNOWN_TOOL_RETRIES", "cannot be negative")
	}
	if c.Agent.ToolTimeout <= 0 {
		return apperrors.NewConfigValidationFailed("TOOL_TIMEOUT", "must be positive")
	}
	if c.Neo4jURI != "" && c.Neo4jPassword == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_PASSWORD")
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// KnowledgeBaseEnabled reports whether a Neo4j knowledge base is configured
func (c *Config) KnowledgeBaseEnabled() bool {
	return c.Neo4jURI != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
