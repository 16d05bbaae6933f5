package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fortune-master/backend/internal/adapter"
	"fortune-master/backend/internal/agent"
	"fortune-master/backend/internal/graph"
	"fortune-master/backend/internal/knowledge"
	"fortune-master/backend/internal/mood"
	"fortune-master/backend/internal/state"
	"fortune-master/backend/internal/tools"
	"fortune-master/backend/pkg/config"
	"fortune-master/backend/pkg/logger"
)

func main() {
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatal("Server stopped with error", zap.Error(err))
	}
}

func run() error {
	log := logger.Get()
	log.Info("Starting HTTP API server...")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Knowledge base is optional
	var (
		knowledgeStore tools.KnowledgeSearcher
		ingester       Ingester
	)
	if cfg.KnowledgeBaseEnabled() {
		driver, err := neo4j.NewDriverWithContext(
			cfg.Neo4jURI,
			neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
		)
		if err != nil {
			return fmt.Errorf("failed to create Neo4j driver: %w", err)
		}
		defer driver.Close(context.Background())

		if err := driver.VerifyConnectivity(ctx); err != nil {
			return fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
		}

		repo := graph.NewRepository(driver)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Warn("Failed to apply knowledge base schema", zap.Error(err))
		}
		knowledgeStore = repo
		ingester = knowledge.NewIngestor(repo)
		log.Info("Knowledge base enabled", zap.String("uri", cfg.Neo4jURI))
	} else {
		log.Warn("NEO4J_URI not set, local knowledge base disabled")
	}

	// Session history
	var (
		store       state.Store
		memoryStore *state.MemoryStore
	)
	if cfg.RedisURL != "" {
		redisStore, err := state.NewRedisStoreFromURL(ctx, cfg.RedisURL, cfg.SessionIdleTimeout, cfg.SessionMaxTurns)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisStore.Close()
		store = redisStore
		log.Info("Session history stored in redis")
	} else {
		memoryStore = state.NewMemoryStore(cfg.SessionIdleTimeout, cfg.SessionMaxTurns)
		store = memoryStore
	}

	registry, err := tools.NewDefaultRegistry(tools.Dependencies{
		SerpAPIKey: cfg.SerpAPIKey,
		Knowledge:  knowledgeStore,
		Yuanfenju:  tools.NewYuanfenjuClient(cfg.YuanfenjuBaseURL, cfg.YuanfenjuAPIKey),
	})
	if err != nil {
		return fmt.Errorf("failed to build tool registry: %w", err)
	}

	llm := adapter.NewLLMAdapter(cfg.LLM)
	master := agent.NewMaster(
		mood.NewClassifier(llm),
		agent.NewOrchestrator(llm, cfg.Agent),
		registry,
		store,
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(log, master, ingester),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server started",
			zap.String("port", cfg.Port),
			zap.String("model", llm.Model()),
			zap.Strings("tools", registry.Names()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	if memoryStore != nil {
		g.Go(func() error {
			return memoryStore.Run(gctx, time.Minute)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	log.Info("Server exited")
	return err
}
