package ingestion_engine

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/ParseBench/internal/models"
)

// runEmbed fills in embeddings for every chunk of (document, parser)
// that does not have one yet. Re-deriving the work set from the
// null-embedding predicate makes the stage safely re-runnable: chunks
// embedded by an earlier run are left untouched.
func (p *Pipeline) runEmbed(ctx context.Context, docID, parser string) error {
	chunks, err := p.db.GetChunksMissingEmbedding(ctx, docID, parser)
	if err != nil {
		return p.failEmbed(ctx, docID, parser, fmt.Errorf("load chunks: %w", err))
	}
	if len(chunks) == 0 {
		slog.Info("no chunks to embed", "document_id", docID, "parser", parser)
		return nil
	}

	slog.Info("generating embeddings", "document_id", docID, "parser", parser, "chunks", len(chunks))

	// One concurrent burst per batch; the next batch waits for the whole
	// prior batch, which is the backpressure against provider rate limits.
	batchSize := p.cfg.EmbedBatchSize
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		g, gctx := errgroup.WithContext(ctx)
		for i := range batch {
			ch := batch[i]
			g.Go(func() error {
				vec, err := p.embedder.EmbedText(gctx, ch.Content)
				if err != nil {
					return fmt.Errorf("embed chunk %d: %w", ch.Metadata.ChunkSerial, err)
				}
				if err := p.db.SetChunkEmbedding(gctx, ch.ID, vec); err != nil {
					return fmt.Errorf("store embedding for chunk %d: %w", ch.Metadata.ChunkSerial, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return p.failEmbed(ctx, docID, parser, err)
		}

		slog.Debug("embedded batch", "document_id", docID, "parser", parser, "done", end, "total", len(chunks))
	}

	return nil
}

func (p *Pipeline) failEmbed(ctx context.Context, docID, parser string, cause error) error {
	msg := fmt.Sprintf("embedding: %v", cause)
	if err := p.db.UpdateParseStatus(ctx, docID, parser, models.StatusFailed, msg); err != nil {
		slog.Error("failed to record embedding failure", "document_id", docID, "parser", parser, "error", err)
	}
	return cause
}
