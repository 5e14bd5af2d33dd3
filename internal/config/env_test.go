package config

import (
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/parsebench")

	cfg := LoadConfig()

	if cfg.BucketName != "parsebench-docs" {
		t.Errorf("BucketName = %q", cfg.BucketName)
	}
	if cfg.ParsingServiceURL != "http://localhost:8000" {
		t.Errorf("ParsingServiceURL = %q", cfg.ParsingServiceURL)
	}
	if cfg.AzureDIMaxBytes != 4<<20 {
		t.Errorf("AzureDIMaxBytes = %d", cfg.AzureDIMaxBytes)
	}
	if cfg.EmbedProvider != "openai" {
		t.Errorf("EmbedProvider = %q", cfg.EmbedProvider)
	}
	if cfg.EmbedDim != 1536 {
		t.Errorf("EmbedDim = %d", cfg.EmbedDim)
	}
	if cfg.ChunkMaxWords != 1000 {
		t.Errorf("ChunkMaxWords = %d", cfg.ChunkMaxWords)
	}
	if cfg.EmbedBatchSize != 10 {
		t.Errorf("EmbedBatchSize = %d", cfg.EmbedBatchSize)
	}
	if cfg.RetrievalTopK != 5 {
		t.Errorf("RetrievalTopK = %d", cfg.RetrievalTopK)
	}
	if cfg.QueueWorkers != 4 {
		t.Errorf("QueueWorkers = %d", cfg.QueueWorkers)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db:5432/x")
	t.Setenv("EMBED_PROVIDER", "gemini")
	t.Setenv("EMBED_DIM", "768")
	t.Setenv("CHUNK_MAX_WORDS", "500")
	t.Setenv("AZURE_DI_MAX_BYTES", "1048576")

	cfg := LoadConfig()

	if cfg.EmbedProvider != "gemini" {
		t.Errorf("EmbedProvider = %q", cfg.EmbedProvider)
	}
	if cfg.EmbedDim != 768 {
		t.Errorf("EmbedDim = %d", cfg.EmbedDim)
	}
	if cfg.ChunkMaxWords != 500 {
		t.Errorf("ChunkMaxWords = %d", cfg.ChunkMaxWords)
	}
	if cfg.AzureDIMaxBytes != 1<<20 {
		t.Errorf("AzureDIMaxBytes = %d", cfg.AzureDIMaxBytes)
	}
}

func TestGetEnvIntRejectsGarbage(t *testing.T) {
	t.Setenv("EMBED_DIM", "not-a-number")
	if got := getEnvInt("EMBED_DIM", 1536); got != 1536 {
		t.Errorf("getEnvInt = %d, want default", got)
	}
}
