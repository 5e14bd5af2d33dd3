package ingestion_engine

// IngestConfig tunes the document pipeline.
//
// Bucket:          object-storage bucket holding uploaded files.
// ChunkMaxWords:   maximum words per chunk before window splitting (e.g. 1000).
// EmbedBatchSize:  chunks embedded per concurrent burst (e.g. 10).
// AzureMaxBytes:   input-size ceiling for the layout provider; larger
//                  files fail the azure_di pipeline before submission.
type IngestConfig struct {
	Bucket         string
	ChunkMaxWords  int
	EmbedBatchSize int
	AzureMaxBytes  int64
}
