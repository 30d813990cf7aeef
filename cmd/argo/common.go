package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/longregen/argo/internal/adapters/embedding"
	"github.com/longregen/argo/internal/adapters/id"
	"github.com/longregen/argo/internal/adapters/postgres"
	"github.com/longregen/argo/internal/adapters/tools"
	"github.com/longregen/argo/internal/application/executor"
	"github.com/longregen/argo/internal/application/ingest"
	"github.com/longregen/argo/internal/application/memory"
	"github.com/longregen/argo/internal/application/orchestrator"
	"github.com/longregen/argo/internal/application/parse"
	"github.com/longregen/argo/internal/application/registry"
	"github.com/longregen/argo/internal/application/session"
	"github.com/longregen/argo/internal/config"
	"github.com/longregen/argo/internal/llm"
)

// Version information (set via ldflags)
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var cfg *config.Config

// initDB opens the pool and makes sure the schema exists.
func initDB(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Force UTC to keep TIMESTAMP columns timezone-stable.
	poolConfig.ConnConfig.RuntimeParams["timezone"] = "UTC"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := postgres.EnsureSchema(ctx, pool, cfg.Embedding.Dimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return pool, nil
}

// app holds the wired application graph for one process.
type app struct {
	orch     *orchestrator.Orchestrator
	store    *session.Store
	ingestor *ingest.Manager
	registry *registry.Registry
	executor *executor.Executor
}

func buildApp(pool *pgxpool.Pool) *app {
	ids := id.New()
	llmClient := llm.NewClient(cfg.LLM.URL, cfg.LLM.APIKey, cfg.LLM.Model, time.Duration(cfg.LLM.TimeoutSeconds)*time.Second)
	embedder := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)

	txManager := postgres.NewTransactionManager(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	messageRepo := postgres.NewMessageRepository(pool)
	summaryRepo := postgres.NewSummaryRepository(pool, txManager)
	factRepo := postgres.NewFactRepository(pool)
	toolRunRepo := postgres.NewToolRunRepository(pool)
	chunkStore := postgres.NewChunkStore(pool)

	ingestor := ingest.NewManager(embedder, chunkStore, ids)

	store := session.NewStore(
		sessionRepo, messageRepo, summaryRepo, factRepo, toolRunRepo,
		ids, llmClient,
		cfg.Memory.ShortTermMessages, cfg.Memory.SummaryInterval,
	)
	assembler := memory.NewAssembler(embedder, chunkStore, summaryRepo, cfg.Memory.TopPerLayer, cfg.Memory.ShortTermMessages)

	reg := registry.New(
		tools.NewWebSearchTool(),
		tools.NewWebAccessTool(),
		tools.NewMemoryQueryTool(embedder, chunkStore),
		tools.NewMemoryWriteTool(ingestor),
		tools.NewRetrieveContextTool(embedder, chunkStore, cfg.Memory.TopPerLayer),
	)

	exec := executor.New(reg, toolRunRepo, ids, ingestor, executor.Timeouts{
		Web:    time.Duration(cfg.Tools.WebTimeoutSeconds) * time.Second,
		Memory: time.Duration(cfg.Tools.MemTimeoutSeconds) * time.Second,
	}, cfg.Tools.MaxParallel)

	var parser parse.Parser
	format := registry.FormatXML
	if cfg.LLM.Family == "json" {
		parser = parse.NewJSONParser()
		format = registry.FormatJSON
	} else {
		parser = parse.NewXMLParser()
	}

	orch := orchestrator.New(
		store, assembler, reg, exec, parser, llmClient, format,
		time.Duration(cfg.Tools.TurnTimeoutSeconds)*time.Second,
	)
	orch.SetIngestExtraction(cfg.Memory.ExtractOnIngest)

	return &app{
		orch:     orch,
		store:    store,
		ingestor: ingestor,
		registry: reg,
		executor: exec,
	}
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "(set)"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
