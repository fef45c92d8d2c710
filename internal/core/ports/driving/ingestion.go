package driving

import "context"

// IngestionService drives documents through the processing state machine
// and schedules their embedding.
type IngestionService interface {
	// Process chunks a pending document synchronously, then schedules its
	// embedding in the background.
	Process(ctx context.Context, documentID string) error

	// Submit starts Process in the background. Returns domain.ErrJobActive
	// if the document already has an active job.
	Submit(ctx context.Context, documentID string) error

	// Status returns the job status for a document, or nil if it has never
	// been processed by this service.
	Status(documentID string) *JobStatus

	// Wait blocks until all background jobs have finished.
	Wait()
}

// JobStatus represents the state of a document's ingestion job.
type JobStatus struct {
	// DocumentID identifies the document.
	DocumentID string

	// Running indicates if a job is currently in progress.
	Running bool

	// Stage is "chunking", "embedding" or "done".
	Stage string

	// ChunksCreated is the number of chunks created.
	ChunksCreated int

	// ChunksEmbedded is the number of chunks embedded so far.
	ChunksEmbedded int

	// LastError is the last error message, if any.
	LastError string
}
