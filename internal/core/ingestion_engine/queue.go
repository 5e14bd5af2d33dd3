package ingestion_engine

// Stage names one unit of work in a (document, parser) pipeline.
type Stage string

const (
	StageParse Stage = "parse"
	StageEmbed Stage = "embed"
)

// Job is one schedulable unit of work: a single stage for a single
// (document, parser) pair.
type Job struct {
	DocumentID string
	Parser     string
	Stage      Stage
}

// Queue is a bounded in-memory job queue drained by the pipeline's
// worker pool. Plain message passing; easy to swap for a broker later.
type Queue struct {
	jobs chan Job
}

// NewQueue constructs a queue with the given buffer (64 when size <= 0).
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{jobs: make(chan Job, size)}
}

// Submit schedules a job. If the queue is full, this call will block
// until space frees up.
func (q *Queue) Submit(job Job) {
	q.jobs <- job
}

// Jobs exposes the receive side of the queue.
func (q *Queue) Jobs() <-chan Job {
	return q.jobs
}
