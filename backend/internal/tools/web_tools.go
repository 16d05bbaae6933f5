package tools

import (
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"fortune-master/backend/pkg/logger"
)

const (
	defaultSerpAPIURL    = "https://serpapi.com/search.json"
	defaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"
	maxSearchResults     = 5
)

// SearchTool answers questions about real-time or unknown facts. It uses
// SerpAPI when a key is configured and DuckDuckGo's HTML endpoint otherwise.
type SearchTool struct {
	client        *resty.Client
	serpAPIKey    string
	serpAPIURL    string
	duckDuckGoURL string
	logger        *zap.Logger
}

// NewSearchTool creates the web search tool
func NewSearchTool(serpAPIKey string) *SearchTool {
	client := resty.New().
		SetTimeout(20*time.Second).
		SetRetryCount(1).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	return &SearchTool{
		client:        client,
		serpAPIKey:    serpAPIKey,
		serpAPIURL:    defaultSerpAPIURL,
		duckDuckGoURL: defaultDuckDuckGoURL,
		logger:        logger.Get(),
	}
}

func (t *SearchTool) Name() string { return ToolSearch }

func (t *SearchTool) Description() string {
	return "只有需要了解实时信息或不知道的事情的时候才会使用这个工具。Search the web for current information or unfamiliar concepts."
}

func (t *SearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"minLength":   1,
				"description": "An optimized search query with keywords, not the user's full sentence",
			},
		},
		"required": []string{"query"},
	}
}
