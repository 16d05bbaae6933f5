package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"fortune-master/backend/pkg/logger"
)

// Repository stores and searches knowledge passages in Neo4j
type Repository struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewRepository creates a new graph repository
func NewRepository(driver neo4j.DriverWithContext) *Repository {
	return &Repository{
		driver: driver,
		logger: logger.Get(),
	}
}

// Close closes the Neo4j driver connection
func (r *Repository) Close() error {
	return r.driver.Close(context.Background())
}

// EnsureSchema creates the passage constraint and index if missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	statements := []string{
		"CREATE CONSTRAINT passage_id IF NOT EXISTS FOR (p:Passage) REQUIRE p.id IS UNIQUE",
		"CREATE INDEX passage_source IF NOT EXISTS FOR (p:Passage) ON (p.source)",
	}
	for _, stmt := range statements {
		result, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// AddPassage stores a chunk of text and returns it with its new ID
func (r *Repository) AddPassage(ctx context.Context, content, source string) (*Passage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("passage content is empty")
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	passage := &Passage{
		ID:        uuid.New().String(),
		Content:   content,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}

	query := `
		CREATE (p:Passage {id: $id, content: $content, source: $source, created_at: $createdAt})
		RETURN p.id as id
	`
	result, err := session.Run(ctx, query, map[string]interface{}{
		"id":        passage.ID,
		"content":   passage.Content,
		"source":    passage.Source,
		"createdAt": passage.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add passage: %w", err)
	}
	if _, err := result.Consume(ctx); err != nil {
		return nil, fmt.Errorf("failed to add passage: %w", err)
	}

	r.logger.Debug("Passage stored",
		zap.String("id", passage.ID),
		zap.String("source", source),
		zap.Int("runes", len([]rune(content))),
	)
	return passage, nil
}

// SearchKnowledge returns up to limit passages ranked by how many query
// terms they contain, newest first on ties.
func (r *Repository) SearchKnowledge(ctx context.Context, query string, limit int) ([]Passage, error) {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return []Passage{}, nil
	}
	if limit < 1 {
		limit = 5
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	searchQuery := `
		MATCH (p:Passage)
		WITH p, size([t IN $terms WHERE toLower(p.content) CONTAINS t]) as hits
		WHERE hits > 0
		RETURN p.id as id, p.content as content, p.source as source, p.created_at as created_at, hits
		ORDER BY hits DESC, p.created_at DESC
		LIMIT $limit
	`

	result, err := session.Run(ctx, searchQuery, map[string]interface{}{
		"terms": terms,
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge: %w", err)
	}

	passages := make([]Passage, 0, limit)
	for result.Next(ctx) {
		record := result.Record()
		passages = append(passages, Passage{
			ID:        getStringFromRecord(record, "id"),
			Content:   getStringFromRecord(record, "content"),
			Source:    getStringFromRecord(record, "source"),
			CreatedAt: getTimeFromRecord(record, "created_at"),
			Hits:      getIntFromRecord(record, "hits"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}

	return passages, nil
}

// DeleteBySource removes every passage ingested from source
func (r *Repository) DeleteBySource(ctx context.Context, source string) (int, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (p:Passage {source: $source})
		DETACH DELETE p
	`, map[string]interface{}{"source": source})
	if err != nil {
		return 0, fmt.Errorf("failed to delete passages: %w", err)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete passages: %w", err)
	}
	return summary.Counters().NodesDeleted(), nil
}
