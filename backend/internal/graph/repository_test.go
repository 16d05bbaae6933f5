package graph

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchTerms(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"蛇年运势", []string{"蛇年", "年运", "运势"}},
		{"Snake year", []string{"snake", "year"}},
		{"2025年 运势", []string{"2025", "年", "运势"}},
		{"龙", []string{"龙"}},
		{"运势，运势！", []string{"运势"}},
		{"  ", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, searchTerms(tt.query), tt.query)
	}
}

// The tests below require a running Neo4j instance.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD to point at it.
func TestRepository_AddAndSearch(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Skipf("Neo4j not available: %v", err)
	}
	defer driver.Close(ctx)

	repo := NewRepository(driver)
	require.NoError(t, repo.EnsureSchema(ctx))

	source := "test-" + time.Now().Format("20060102150405.000")
	defer func() {
		_, _ = repo.DeleteBySource(ctx, source)
	}()

	_, err = repo.AddPassage(ctx, "2025年是乙巳蛇年，属蛇的人本命年需注意。", source)
	require.NoError(t, err)
	_, err = repo.AddPassage(ctx, "周公解梦：梦见蛇主财运。", source)
	require.NoError(t, err)

	passages, err := repo.SearchKnowledge(ctx, "蛇年运势", 5)
	require.NoError(t, err)
	require.NotEmpty(t, passages)
	assert.Contains(t, passages[0].Content, "蛇年")
	assert.Equal(t, source, passages[0].Source)
}

func TestRepository_AddPassageRejectsEmpty(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Skipf("Neo4j not available: %v", err)
	}
	defer driver.Close(ctx)

	_, err = NewRepository(driver).AddPassage(ctx, "   ", "test")
	assert.Error(t, err)
}

func createTestDriver() (neo4j.DriverWithContext, error) {
	uri := envOr("NEO4J_URI", "bolt://localhost:7687")
	user := envOr("NEO4J_USER", "neo4j")
	password := envOr("NEO4J_PASSWORD", "password")

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(context.Background())
		return nil, err
	}

	return driver, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
