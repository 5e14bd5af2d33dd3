package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/markdave123-py/ParseBench/internal/config"
	"github.com/markdave123-py/ParseBench/internal/core"
	db "github.com/markdave123-py/ParseBench/internal/core/database"
	"github.com/markdave123-py/ParseBench/internal/core/ingestion_engine"
	"github.com/markdave123-py/ParseBench/internal/core/layout"
	"github.com/markdave123-py/ParseBench/internal/core/llm"
	objectclient "github.com/markdave123-py/ParseBench/internal/core/object-client"
	"github.com/markdave123-py/ParseBench/internal/core/parseservice"
	"github.com/markdave123-py/ParseBench/internal/services"
)

type App struct {
	DBClient core.DbClient
	Pipeline *ingestion_engine.Pipeline
	Server   *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	initCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(initCtx, cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("database initialized and ready")

	objClient, err := objectclient.NewS3Client(initCtx, cfg)
	if err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(initCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
	}

	geminiLLM, err := llm.NewGeminiLLM(initCtx, cfg.GeminiAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the gemini model: %w", err)
	}
	openaiLLM, err := llm.NewOpenAILLM(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the openai model: %w", err)
	}

	layoutClient := layout.NewAzureClient(cfg.AzureDIEndpoint, cfg.AzureDIKey)
	doclingClient := parseservice.NewDoclingClient(cfg.ParsingServiceURL)

	queue := ingestion_engine.NewQueue(64)
	pipeline := ingestion_engine.NewPipeline(dbClient, objClient, embedder, layoutClient, doclingClient, &ingestion_engine.IngestConfig{
		Bucket:         cfg.BucketName,
		ChunkMaxWords:  cfg.ChunkMaxWords,
		EmbedBatchSize: cfg.EmbedBatchSize,
		AzureMaxBytes:  cfg.AzureDIMaxBytes,
	}, queue)
	pipeline.Start(ctx, cfg.QueueWorkers)

	docService := services.NewDocumentService(dbClient, objClient, pipeline, cfg.BucketName)
	retrieval := services.NewRetrievalService(dbClient, embedder)
	chatService := services.NewChatService(retrieval, geminiLLM, openaiLLM, cfg.RetrievalTopK)

	server := NewServer(cfg, docService, chatService)

	return &App{DBClient: dbClient, Pipeline: pipeline, Server: server}, nil
}

func newEmbedder(ctx context.Context, cfg *config.Config) (core.EmbeddingProvider, error) {
	switch cfg.EmbedProvider {
	case "gemini":
		return llm.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbedModel)
	case "openai":
		return llm.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbedModel, cfg.EmbedDim)
	default:
		return nil, fmt.Errorf("unknown embed provider: %s", cfg.EmbedProvider)
	}
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
