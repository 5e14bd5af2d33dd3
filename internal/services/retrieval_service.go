package services

import (
	"context"
	"fmt"

	"github.com/markdave123-py/ParseBench/internal/core"
	"github.com/markdave123-py/ParseBench/internal/models"
)

// RetrievalService embeds a query and runs a similarity search scoped to
// one parser's chunks. An empty result is a valid state, not an error.
type RetrievalService struct {
	db       core.DbClient
	embedder core.EmbeddingProvider
}

func NewRetrievalService(db core.DbClient, embedder core.EmbeddingProvider) *RetrievalService {
	return &RetrievalService{db: db, embedder: embedder}
}

func (s *RetrievalService) Retrieve(ctx context.Context, query, parser string, topK int) ([]models.RetrievedChunk, error) {
	if !models.ValidParser(parser) {
		return nil, fmt.Errorf("unknown parser: %s", parser)
	}
	if topK <= 0 {
		topK = 5
	}

	queryVec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := s.db.SearchChunks(ctx, parser, queryVec, topK)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	return chunks, nil
}
