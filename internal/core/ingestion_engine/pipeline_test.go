package ingestion_engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/ParseBench/internal/core"
	"github.com/markdave123-py/ParseBench/internal/core/layout"
	"github.com/markdave123-py/ParseBench/internal/models"
)

type fakeDB struct {
	mu     sync.Mutex
	docs   map[string]*models.Document
	chunks []models.DocumentChunk
}

func newFakeDB() *fakeDB {
	return &fakeDB{docs: make(map[string]*models.Document)}
}

func (f *fakeDB) CreateDocument(_ context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *doc
	f.docs[doc.ID] = &cp
	return nil
}

func (f *fakeDB) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, core.ErrDocumentNotFound
	}
	cp := *doc
	return &cp, nil
}

func (f *fakeDB) ListDocuments(_ context.Context) ([]models.DocumentSummary, error) {
	return nil, nil
}

func (f *fakeDB) DeleteDocument(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return core.ErrDocumentNotFound
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeDB) UpdateParseStatus(_ context.Context, id, parser, status, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return core.ErrDocumentNotFound
	}
	switch parser {
	case models.ParserDocling:
		doc.DoclingStatus = status
		doc.DoclingError = errMsg
	case models.ParserAzureDI:
		doc.AzureDIStatus = status
		doc.AzureDIError = errMsg
	}
	return nil
}

func (f *fakeDB) InsertDocumentChunks(_ context.Context, chunks []models.DocumentChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeDB) HasChunks(_ context.Context, documentID, parser string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.chunks {
		if ch.DocumentID == documentID && ch.Metadata.Parser == parser {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDB) GetChunksMissingEmbedding(_ context.Context, documentID, parser string) ([]models.DocumentChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DocumentChunk
	for _, ch := range f.chunks {
		if ch.DocumentID == documentID && ch.Metadata.Parser == parser && ch.Embedding == nil {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *fakeDB) SetChunkEmbedding(_ context.Context, chunkID string, embedding []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.chunks {
		if f.chunks[i].ID == chunkID {
			f.chunks[i].Embedding = embedding
			return nil
		}
	}
	return errors.New("chunk not found")
}

func (f *fakeDB) SearchChunks(_ context.Context, _ string, _ []float32, _ int) ([]models.RetrievedChunk, error) {
	return nil, nil
}

func (f *fakeDB) Close() error { return nil }

func (f *fakeDB) chunksFor(documentID, parser string) []models.DocumentChunk {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DocumentChunk
	for _, ch := range f.chunks {
		if ch.DocumentID == documentID && ch.Metadata.Parser == parser {
			out = append(out, ch)
		}
	}
	return out
}

type fakeObj struct {
	data []byte
	err  error
}

func (f *fakeObj) UploadFile(_ context.Context, _, key string, _ []byte, _ string) (string, error) {
	return "https://example.test/" + key, nil
}
func (f *fakeObj) DeleteFile(_ context.Context, _, _ string) error { return nil }
func (f *fakeObj) GetFile(_ context.Context, _, _ string) ([]byte, error) {
	return f.data, f.err
}

type fakeEmbedder struct {
	calls    atomic.Int64
	inflight atomic.Int64
	maxSeen  atomic.Int64
	delay    time.Duration
	err      error
}

func (f *fakeEmbedder) EmbedText(_ context.Context, _ string) ([]float32, error) {
	cur := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		max := f.maxSeen.Load()
		if cur <= max || f.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeLayout struct {
	called atomic.Bool
	result *layout.AnalyzeResult
	err    error
}

func (f *fakeLayout) Analyze(_ context.Context, _ []byte) (*layout.AnalyzeResult, error) {
	f.called.Store(true)
	return f.result, f.err
}

type fakeParseService struct {
	called atomic.Bool
	drafts []core.ChunkDraft
	err    error
}

func (f *fakeParseService) Parse(_ context.Context, _, _ string) ([]core.ChunkDraft, error) {
	f.called.Store(true)
	return f.drafts, f.err
}

type pipelineFixture struct {
	db       *fakeDB
	obj      *fakeObj
	embedder *fakeEmbedder
	layout   *fakeLayout
	parse    *fakeParseService
	queue    *Queue
	pipeline *Pipeline
}

func newFixture() *pipelineFixture {
	fx := &pipelineFixture{
		db:       newFakeDB(),
		obj:      &fakeObj{data: []byte("%PDF-1.7")},
		embedder: &fakeEmbedder{},
		layout:   &fakeLayout{},
		parse:    &fakeParseService{},
		queue:    NewQueue(8),
	}
	cfg := &IngestConfig{
		Bucket:         "test-bucket",
		ChunkMaxWords:  1000,
		EmbedBatchSize: 10,
		AzureMaxBytes:  4 << 20,
	}
	fx.pipeline = NewPipeline(fx.db, fx.obj, fx.embedder, fx.layout, fx.parse, cfg, fx.queue)
	return fx
}

func (fx *pipelineFixture) addDocument(id string, size int64) {
	fx.db.docs[id] = &models.Document{
		ID:            id,
		Filename:      "report.pdf",
		StorageKey:    "documents/" + id + "/report.pdf",
		FileType:      "application/pdf",
		FileSize:      size,
		DoclingStatus: models.StatusPending,
		AzureDIStatus: models.StatusPending,
	}
}

func (fx *pipelineFixture) drainJob(t *testing.T) (Job, bool) {
	t.Helper()
	select {
	case job := <-fx.queue.jobs:
		return job, true
	default:
		return Job{}, false
	}
}

func TestEnqueueDocumentSchedulesBothParsers(t *testing.T) {
	fx := newFixture()
	fx.pipeline.EnqueueDocument("doc-1")

	first, ok := fx.drainJob(t)
	require.True(t, ok)
	second, ok := fx.drainJob(t)
	require.True(t, ok)

	parsers := []string{first.Parser, second.Parser}
	assert.ElementsMatch(t, []string{models.ParserDocling, models.ParserAzureDI}, parsers)
	assert.Equal(t, StageParse, first.Stage)
	assert.Equal(t, StageParse, second.Stage)
}

func TestRunParseDoclingSuccess(t *testing.T) {
	fx := newFixture()
	fx.addDocument("doc-1", 1024)
	fx.parse.drafts = []core.ChunkDraft{
		{Content: "first chunk", PageNumber: 1, ChunkSerial: 0},
		{Content: "second chunk", PageNumber: 2, ChunkSerial: 1, SectionTitle: "Results"},
	}

	err := fx.pipeline.runParse(context.Background(), "doc-1", models.ParserDocling)
	require.NoError(t, err)

	doc, _ := fx.db.GetDocumentByID(context.Background(), "doc-1")
	assert.Equal(t, models.StatusCompleted, doc.DoclingStatus)
	assert.Empty(t, doc.DoclingError)
	assert.Equal(t, models.StatusPending, doc.AzureDIStatus)

	chunks := fx.db.chunksFor("doc-1", models.ParserDocling)
	require.Len(t, chunks, 2)
	assert.Equal(t, "report.pdf", chunks[0].Metadata.FileName)
	assert.Equal(t, "Results", chunks[1].Metadata.SectionTitle)
	assert.NotEmpty(t, chunks[0].ID)

	job, ok := fx.drainJob(t)
	require.True(t, ok, "follow-on embed job must be enqueued")
	assert.Equal(t, StageEmbed, job.Stage)
	assert.Equal(t, models.ParserDocling, job.Parser)
	assert.Equal(t, "doc-1", job.DocumentID)
}

func TestRunParseFailureIsolatedPerParser(t *testing.T) {
	fx := newFixture()
	fx.addDocument("doc-1", 1024)
	fx.parse.err = errors.New("parsing service error: connection refused")

	err := fx.pipeline.runParse(context.Background(), "doc-1", models.ParserDocling)
	require.Error(t, err)

	doc, _ := fx.db.GetDocumentByID(context.Background(), "doc-1")
	assert.Equal(t, models.StatusFailed, doc.DoclingStatus)
	assert.Contains(t, doc.DoclingError, "connection refused")
	assert.Equal(t, models.StatusPending, doc.AzureDIStatus, "sibling pipeline untouched")
	assert.Empty(t, doc.AzureDIError)

	assert.Empty(t, fx.db.chunksFor("doc-1", models.ParserDocling))
	_, ok := fx.drainJob(t)
	assert.False(t, ok, "no embed job after a failed parse")
}

func TestRunParseAzureSizePrecondition(t *testing.T) {
	fx := newFixture()
	fx.addDocument("doc-1", (4<<20)+1)

	err := fx.pipeline.runParse(context.Background(), "doc-1", models.ParserAzureDI)
	require.NoError(t, err, "a precondition failure is recorded, not returned")

	doc, _ := fx.db.GetDocumentByID(context.Background(), "doc-1")
	assert.Equal(t, models.StatusFailed, doc.AzureDIStatus)
	assert.Contains(t, doc.AzureDIError, "was not submitted for analysis")
	assert.False(t, fx.layout.called.Load(), "provider must not be called for oversized input")
	assert.Empty(t, fx.db.chunksFor("doc-1", models.ParserAzureDI))
}

func TestRunParseSkipsWhenChunksExist(t *testing.T) {
	fx := newFixture()
	fx.addDocument("doc-1", 1024)
	fx.db.chunks = append(fx.db.chunks, models.DocumentChunk{
		ID: "existing", DocumentID: "doc-1",
		Metadata: models.ChunkMetadata{Parser: models.ParserDocling},
	})

	err := fx.pipeline.runParse(context.Background(), "doc-1", models.ParserDocling)
	require.NoError(t, err)

	assert.False(t, fx.parse.called.Load(), "duplicate trigger must not re-parse")
	doc, _ := fx.db.GetDocumentByID(context.Background(), "doc-1")
	assert.Equal(t, models.StatusPending, doc.DoclingStatus, "status untouched on skip")
	assert.Len(t, fx.db.chunksFor("doc-1", models.ParserDocling), 1)
}

func TestRunParseAzureLayoutBranch(t *testing.T) {
	fx := newFixture()
	fx.addDocument("doc-1", 1024)
	fx.layout.result = &layout.AnalyzeResult{
		Pages: []layout.Page{{PageNumber: 1}},
		Paragraphs: []layout.Paragraph{
			{Content: "Summary", Role: layout.RoleSectionHeading, BoundingRegions: regions(1)},
			{Content: "Everything went fine.", BoundingRegions: regions(1)},
		},
	}

	err := fx.pipeline.runParse(context.Background(), "doc-1", models.ParserAzureDI)
	require.NoError(t, err)

	doc, _ := fx.db.GetDocumentByID(context.Background(), "doc-1")
	assert.Equal(t, models.StatusCompleted, doc.AzureDIStatus)
	assert.Equal(t, models.StatusPending, doc.DoclingStatus)

	chunks := fx.db.chunksFor("doc-1", models.ParserAzureDI)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Summary", chunks[0].Metadata.SectionTitle)
	assert.Equal(t, 1, chunks[0].Metadata.PageNumber)
}

func TestRunEmbedFillsOnlyMissing(t *testing.T) {
	fx := newFixture()
	fx.addDocument("doc-1", 1024)
	already := []float32{9, 9, 9}
	fx.db.chunks = []models.DocumentChunk{
		{ID: "c0", DocumentID: "doc-1", Content: "a", Metadata: models.ChunkMetadata{Parser: models.ParserDocling, ChunkSerial: 0}, Embedding: already},
		{ID: "c1", DocumentID: "doc-1", Content: "b", Metadata: models.ChunkMetadata{Parser: models.ParserDocling, ChunkSerial: 1}},
		{ID: "c2", DocumentID: "doc-1", Content: "c", Metadata: models.ChunkMetadata{Parser: models.ParserDocling, ChunkSerial: 2}},
	}

	err := fx.pipeline.runEmbed(context.Background(), "doc-1", models.ParserDocling)
	require.NoError(t, err)

	assert.EqualValues(t, 2, fx.embedder.calls.Load(), "already-embedded chunks are left untouched")
	for _, ch := range fx.db.chunksFor("doc-1", models.ParserDocling) {
		assert.NotNil(t, ch.Embedding)
	}
	assert.Equal(t, already, fx.db.chunks[0].Embedding)
}

func TestRunEmbedBatchGating(t *testing.T) {
	fx := newFixture()
	fx.addDocument("doc-1", 1024)
	fx.pipeline.cfg.EmbedBatchSize = 2
	fx.embedder.delay = 5 * time.Millisecond
	for i := 0; i < 5; i++ {
		fx.db.chunks = append(fx.db.chunks, models.DocumentChunk{
			ID: string(rune('a' + i)), DocumentID: "doc-1", Content: "text",
			Metadata: models.ChunkMetadata{Parser: models.ParserDocling, ChunkSerial: i},
		})
	}

	err := fx.pipeline.runEmbed(context.Background(), "doc-1", models.ParserDocling)
	require.NoError(t, err)

	assert.EqualValues(t, 5, fx.embedder.calls.Load())
	assert.LessOrEqual(t, fx.embedder.maxSeen.Load(), int64(2), "a batch must finish before the next starts")
}

func TestRunEmbedFailureRecordsStatus(t *testing.T) {
	fx := newFixture()
	fx.addDocument("doc-1", 1024)
	fx.db.chunks = []models.DocumentChunk{
		{ID: "c0", DocumentID: "doc-1", Content: "a", Metadata: models.ChunkMetadata{Parser: models.ParserAzureDI}},
	}
	fx.embedder.err = errors.New("rate limited")

	err := fx.pipeline.runEmbed(context.Background(), "doc-1", models.ParserAzureDI)
	require.Error(t, err)

	doc, _ := fx.db.GetDocumentByID(context.Background(), "doc-1")
	assert.Equal(t, models.StatusFailed, doc.AzureDIStatus)
	assert.Contains(t, doc.AzureDIError, "embedding:")
	assert.Contains(t, doc.AzureDIError, "rate limited")
}

func TestRunEmbedNoMissingChunks(t *testing.T) {
	fx := newFixture()
	fx.addDocument("doc-1", 1024)

	err := fx.pipeline.runEmbed(context.Background(), "doc-1", models.ParserDocling)
	require.NoError(t, err)
	assert.EqualValues(t, 0, fx.embedder.calls.Load())
}

func TestRunJobUnknownStage(t *testing.T) {
	fx := newFixture()
	err := fx.pipeline.runJob(context.Background(), Job{DocumentID: "doc-1", Parser: models.ParserDocling, Stage: "compact"})
	require.Error(t, err)
}
