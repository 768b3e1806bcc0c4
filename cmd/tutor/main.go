package main

import (
	"context"
	"time"

	"github.com/courseloom/tutor/internal/catalog"
	"github.com/courseloom/tutor/internal/chat"
	"github.com/courseloom/tutor/internal/config"
	"github.com/courseloom/tutor/internal/database"
	"github.com/courseloom/tutor/internal/ingest"
	"github.com/courseloom/tutor/internal/llm"
	"github.com/courseloom/tutor/internal/logging"
	"github.com/courseloom/tutor/internal/monitoring"
	"github.com/courseloom/tutor/internal/server"
)

var version = "dev"

func main() {
	// Env files load before the logger so LOG_LEVEL from .env applies.
	config.LoadEnv(nil)
	logger := logging.NewLoggerWithService("tutor")
	cfg := config.LoadConfig().Sanitize()

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	db := database.MustConnect(dbCfg, logger)
	defer db.Close()

	llmClient, err := llm.NewClient(llm.Config{
		Provider:  cfg.LLMProvider,
		Model:     cfg.LLMModel,
		APIKey:    cfg.LLMAPIKey,
		APIURL:    cfg.LLMAPIURL,
		MaxTokens: cfg.LLMMaxTokens,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create LLM client")
	}
	embedder, err := llm.NewEmbeddingClient(llm.Config{
		Provider: cfg.EmbeddingProvider,
		Model:    cfg.EmbeddingModel,
		APIKey:   cfg.EmbeddingAPIKey,
		APIURL:   cfg.EmbeddingAPIURL,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create embedding client")
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dimensions := cfg.EmbeddingDimensions
	if dimensions == 0 {
		dimensions, err = llm.ProbeEmbeddingDimensions(startupCtx, embedder)
		if err != nil {
			logger.WithError(err).Fatal("Failed to probe embedding dimensions")
		}
		logger.WithFields(logging.Fields{"dimensions": dimensions}).Info("Probed embedding dimensions")
	}
	if err := catalog.EnsureSchema(startupCtx, db, dimensions); err != nil {
		logger.WithError(err).Fatal("Failed to ensure database schema")
	}
	if rebuilt, err := catalog.EnsureEmbeddingDimensions(startupCtx, db, dimensions); err != nil {
		logger.WithError(err).Fatal("Failed to verify embedding dimensions")
	} else if rebuilt {
		logger.WithFields(logging.Fields{"dimensions": dimensions}).Warn("Embedding dimensions changed, vector tables rebuilt")
	}

	store := catalog.NewStore(db, embedder, catalog.WithSearchLimit(cfg.SearchLimit))

	if cfg.IngestOnStartup {
		chunker := ingest.NewChunker(cfg.ChunkCharLimit, cfg.ChunkCharOverlap)
		ingestor := ingest.NewIngestor(store, embedder, chunker, logger)
		if added, err := ingestor.IngestDirectory(startupCtx, cfg.DocsDir, false); err != nil {
			logger.WithError(err).Error("Startup ingestion failed")
		} else if added > 0 {
			logger.WithFields(logging.Fields{"courses": added}).Info("Startup ingestion added courses")
		}
	}

	registry := chat.NewRegistry()
	if err := registry.Register(chat.NewSearchCourseTool(store)); err != nil {
		logger.WithError(err).Fatal("Failed to register search tool")
	}
	if err := registry.Register(chat.NewCourseOutlineTool(store)); err != nil {
		logger.WithError(err).Fatal("Failed to register outline tool")
	}

	generator := chat.NewGenerator(llmClient, logger)
	sessions := chat.NewSessionStore(cfg.MaxHistoryExchanges)
	orchestrator := chat.NewOrchestrator(generator, registry, sessions, logger)
	handler := chat.NewHandler(orchestrator, store, cfg.MaxQueryRunes, logger)

	health := monitoring.NewHealthChecker("tutor", version)
	health.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	health.AddCheck("configuration", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
		"LLM_API_KEY":  cfg.LLMAPIKey,
	}))

	router := server.SetupRouter(logger)
	router.GET("/health", health.Handler())
	handler.RegisterRoutes(router)

	srvCfg := server.DefaultConfig("tutor", cfg.Port)
	if err := server.Start(srvCfg, router, logger); err != nil {
		logger.WithError(err).Fatal("Server shutdown failed")
	}
}
