package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"fortune-master/backend/internal/graph"
	"fortune-master/backend/internal/knowledge"
	"fortune-master/backend/pkg/config"
	"fortune-master/backend/pkg/logger"
)

// defaultPassages seed the knowledge base when no input is given
var defaultPassages = []string{
	"2025年为乙巳蛇年，天干乙木，地支巳火，木火相生，整体运势偏向积极进取，但需防急躁冒进。",
	"属蛇之人逢本命年，俗称“犯太岁”，宜低调行事、稳中求进，可佩戴红色饰物以求平安。",
	"属猪之人与巳蛇相冲，2025年宜谨慎投资，注意身体健康，凡事三思而后行。",
	"属猴、属牛、属鸡之人与蛇年相合，贵人运旺，事业与财运多有助力。",
}

func main() {
	file := flag.String("file", "", "Text file to ingest; paragraphs are split into passages")
	urls := flag.String("urls", "", "Comma-separated web pages to ingest")
	reset := flag.String("reset", "", "Delete all passages from this source before seeding")
	flag.Parse()

	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting knowledge base seeding...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if !cfg.KnowledgeBaseEnabled() {
		log.Fatal("NEO4J_URI is not set")
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	repo := graph.NewRepository(driver)

	log.Info("Creating constraints and indexes...")
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Warn("Failed to apply schema (may already exist)", zap.Error(err))
	}

	if *reset != "" {
		deleted, err := repo.DeleteBySource(ctx, *reset)
		if err != nil {
			log.Fatal("Failed to reset source", zap.Error(err))
		}
		log.Info("Removed passages", zap.String("source", *reset), zap.Int("count", deleted))
	}

	ingester := knowledge.NewIngestor(repo)

	texts := defaultPassages
	if *file != "" {
		raw, err := os.ReadFile(*file)
		if err != nil {
			log.Fatal("Failed to read input file", zap.Error(err))
		}
		texts = []string{string(raw)}
	}

	if *urls == "" || *file != "" {
		report, err := ingester.IngestTexts(ctx, texts)
		if err != nil {
			log.Fatal("Failed to ingest texts", zap.Error(err))
		}
		log.Info("Texts seeded", zap.Int("passages", report.Passages))
	}

	if *urls != "" {
		report, err := ingester.IngestURLs(ctx, strings.Split(*urls, ","))
		if err != nil {
			log.Fatal("Failed to ingest urls", zap.Error(err))
		}
		for u, reason := range report.Failed {
			log.Warn("Page skipped", zap.String("url", u), zap.String("reason", reason))
		}
		log.Info("Pages seeded", zap.Int("passages", report.Passages))
	}

	log.Info("Seeding complete")
}
