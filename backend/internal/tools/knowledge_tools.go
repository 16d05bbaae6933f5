package tools

import (
	"context"
	"fmt"
	"strings"

	"fortune-master/backend/internal/constants"
	"fortune-master/backend/internal/graph"
)

// KnowledgeSearcher is the read side of the local knowledge base
type KnowledgeSearcher interface {
	SearchKnowledge(ctx context.Context, query string, limit int) ([]graph.Passage, error)
}

// KnowledgeTool looks up passages about folk customs and divination lore
// that were ingested through the knowledge endpoints.
type KnowledgeTool struct {
	store KnowledgeSearcher
}

// NewKnowledgeTool creates the local knowledge lookup tool. A nil store is
// allowed; invocations then fail with a not-configured error.
func NewKnowledgeTool(store KnowledgeSearcher) *KnowledgeTool {
	return &KnowledgeTool{store: store}
}

func (t *KnowledgeTool) Name() string { return ToolLocalKnowledge }

func (t *KnowledgeTool) Description() string {
	return "这个工具可以帮助你回答与2025年运势或蛇年运势相关的问题，以及本地知识库中收录的民俗与占卜知识。"
}

func (t *KnowledgeTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"minLength":   1,
				"description": "The question or keywords to look up",
			},
		},
		"required": []string{"query"},
	}
}

func (t *KnowledgeTool) Invoke(ctx context.Context, args map[string]interface{}) (string, error) {
	if t.store == nil {
		return "", fmt.Errorf("local knowledge base is not configured")
	}

	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return "", fmt.Errorf("query is required")
	}

	passages, err := t.store.SearchKnowledge(ctx, query, constants.KnowledgeSearchLimit)
	if err != nil {
		return "", fmt.Errorf("knowledge search failed: %w", err)
	}
	if len(passages) == 0 {
		return fmt.Sprintf("本地知识库中没有找到与“%s”相关的内容。", query), nil
	}

	var b strings.Builder
	for i, p := range passages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if p.Source != "" {
			fmt.Fprintf(&b, "[%s]\n", p.Source)
		}
		b.WriteString(p.Content)
	}
	return b.String(), nil
}
