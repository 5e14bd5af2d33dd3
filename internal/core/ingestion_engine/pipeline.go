package ingestion_engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/ParseBench/internal/core"
	"github.com/markdave123-py/ParseBench/internal/models"
)

// Pipeline drives each uploaded document through two independent
// extraction pipelines, each followed by an embedding stage. Every stage
// updates only its own parser's status columns, so the two pipelines for
// one document race freely without clobbering each other.
type Pipeline struct {
	db           core.DbClient
	obj          core.ObjectClient
	embedder     core.EmbeddingProvider
	layoutClient core.LayoutProvider
	parseService core.ParseService
	cfg          *IngestConfig
	queue        *Queue
}

func NewPipeline(
	db core.DbClient,
	obj core.ObjectClient,
	emb core.EmbeddingProvider,
	layoutClient core.LayoutProvider,
	parseService core.ParseService,
	cfg *IngestConfig,
	queue *Queue,
) *Pipeline {
	return &Pipeline{
		db:           db,
		obj:          obj,
		embedder:     emb,
		layoutClient: layoutClient,
		parseService: parseService,
		cfg:          cfg,
		queue:        queue,
	}
}

// EnqueueDocument schedules both parse jobs for a freshly uploaded
// document. The two pipelines run independently from here on.
func (p *Pipeline) EnqueueDocument(docID string) {
	p.queue.Submit(Job{DocumentID: docID, Parser: models.ParserDocling, Stage: StageParse})
	p.queue.Submit(Job{DocumentID: docID, Parser: models.ParserAzureDI, Stage: StageParse})
}

// Start runs numWorkers goroutines draining the job queue. A failing job
// is recorded and logged; it never takes down a worker or a sibling job.
func (p *Pipeline) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					slog.Info("pipeline worker shutting down", "worker", w)
					return
				case job := <-p.queue.jobs:
					log := slog.With("worker", w, "document_id", job.DocumentID, "parser", job.Parser, "stage", job.Stage)
					log.Info("processing job")
					if err := p.runJob(ctx, job); err != nil {
						log.Error("job failed", "error", err)
					} else {
						log.Info("job completed")
					}
				}
			}
		}(w)
	}
}

func (p *Pipeline) runJob(ctx context.Context, job Job) error {
	// Fresh timeout per job; stage timeouts beyond this belong to the
	// individual provider clients.
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Minute)
	defer cancel()

	switch job.Stage {
	case StageParse:
		return p.runParse(jobCtx, job.DocumentID, job.Parser)
	case StageEmbed:
		return p.runEmbed(jobCtx, job.DocumentID, job.Parser)
	default:
		return fmt.Errorf("unknown stage: %s", job.Stage)
	}
}

// runParse extracts, chunks and persists for one (document, parser). On
// success it enqueues the follow-on embedding job for the same pair.
func (p *Pipeline) runParse(ctx context.Context, docID, parser string) error {
	doc, err := p.db.GetDocumentByID(ctx, docID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	// Re-submitting a parsed document would duplicate its chunk set, so
	// an existing set for this parser means there is nothing to do.
	exists, err := p.db.HasChunks(ctx, docID, parser)
	if err != nil {
		return fmt.Errorf("check existing chunks: %w", err)
	}
	if exists {
		slog.Info("chunks already exist, skipping parse", "document_id", docID, "parser", parser)
		return nil
	}

	// Precondition check before any provider call: the layout provider
	// rejects oversized input, so fail the pipeline up front with a
	// message that names the cause, distinct from a mid-processing error.
	if parser == models.ParserAzureDI && doc.FileSize > p.cfg.AzureMaxBytes {
		msg := fmt.Sprintf(
			"file size (%.2f MB) exceeds the layout provider limit (%.2f MB); document was not submitted for analysis",
			float64(doc.FileSize)/1024/1024, float64(p.cfg.AzureMaxBytes)/1024/1024,
		)
		if err := p.db.UpdateParseStatus(ctx, docID, parser, models.StatusFailed, msg); err != nil {
			return fmt.Errorf("record precondition failure: %w", err)
		}
		slog.Warn("parse skipped on precondition", "document_id", docID, "parser", parser, "reason", msg)
		return nil
	}

	if err := p.db.UpdateParseStatus(ctx, docID, parser, models.StatusProcessing, ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	var drafts []core.ChunkDraft
	switch parser {
	case models.ParserDocling:
		drafts, err = p.parseService.Parse(ctx, docID, doc.StorageKey)
	case models.ParserAzureDI:
		drafts, err = p.parseWithLayout(ctx, doc)
	default:
		err = fmt.Errorf("unknown parser: %s", parser)
	}
	if err != nil {
		return p.failParse(ctx, docID, parser, err)
	}

	chunks := make([]models.DocumentChunk, len(drafts))
	for i, d := range drafts {
		chunks[i] = models.DocumentChunk{
			ID:         uuid.NewString(),
			DocumentID: docID,
			Content:    d.Content,
			Metadata: models.ChunkMetadata{
				Parser:       parser,
				FileName:     doc.Filename,
				PageNumber:   d.PageNumber,
				ChunkSerial:  d.ChunkSerial,
				SectionTitle: d.SectionTitle,
				LayoutInfo:   d.LayoutInfo,
			},
		}
	}
	if err := p.db.InsertDocumentChunks(ctx, chunks); err != nil {
		return p.failParse(ctx, docID, parser, fmt.Errorf("insert chunks: %w", err))
	}

	if err := p.db.UpdateParseStatus(ctx, docID, parser, models.StatusCompleted, ""); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	p.queue.Submit(Job{DocumentID: docID, Parser: parser, Stage: StageEmbed})
	return nil
}

// parseWithLayout runs the azure_di branch: download the bytes, analyze
// the layout, reconstruct markdown, chunk it.
func (p *Pipeline) parseWithLayout(ctx context.Context, doc *models.Document) ([]core.ChunkDraft, error) {
	data, err := p.obj.GetFile(ctx, p.cfg.Bucket, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("download document: %w", err)
	}

	result, err := p.layoutClient.Analyze(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("layout analysis: %w", err)
	}

	markdown := LayoutToMarkdown(result)
	return SemanticChunk(markdown, doc.Filename, p.cfg.ChunkMaxWords), nil
}

// failParse records a terminal failed status for this parser only; the
// sibling pipeline keeps running untouched.
func (p *Pipeline) failParse(ctx context.Context, docID, parser string, cause error) error {
	if err := p.db.UpdateParseStatus(ctx, docID, parser, models.StatusFailed, cause.Error()); err != nil {
		slog.Error("failed to record parse failure", "document_id", docID, "parser", parser, "error", err)
	}
	return cause
}
