package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// Ensure IngestionOrchestrator implements the interface.
var _ driving.IngestionService = (*IngestionOrchestrator)(nil)

// Job stages reported in driving.JobStatus.
const (
	StageChunking  = "chunking"
	StageEmbedding = "embedding"
	StageDone      = "done"
)

var errNoText = errors.New("document has no extractable text")

// Chunker turns a document's extracted text into chunk records.
// *chunker.Processor satisfies it.
type Chunker interface {
	Process(doc *domain.Document, totalPages int) ([]domain.Chunk, error)
}

// IngestionOrchestrator moves documents through
// pending -> processing -> completed|failed and then embeds their chunks
// in the background. At most one job runs per document.
type IngestionOrchestrator struct {
	docs      driven.DocumentStore
	chunks    driven.ChunkStore
	chunker   Chunker
	pages     driven.PageEstimator
	retriever driving.Retriever
	metrics   driven.PipelineMetrics
	now       func() time.Time

	retryAttempts int
	retryDelay    time.Duration

	// Background jobs outlive the request that submitted them.
	bgCtx  context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.RWMutex
	jobs map[string]*driving.JobStatus
}

// IngestionOption configures an IngestionOrchestrator.
type IngestionOption func(*IngestionOrchestrator)

// WithPipelineMetrics reports pipeline events to m.
func WithPipelineMetrics(m driven.PipelineMetrics) IngestionOption {
	return func(o *IngestionOrchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithEmbedRetry sets how many embedding passes a document gets and the
// base delay of the exponential backoff between them.
func WithEmbedRetry(attempts int, delay time.Duration) IngestionOption {
	return func(o *IngestionOrchestrator) {
		o.retryAttempts = attempts
		o.retryDelay = delay
	}
}

// WithClock overrides the time source used for ProcessedAt.
func WithClock(now func() time.Time) IngestionOption {
	return func(o *IngestionOrchestrator) {
		o.now = now
	}
}

// NewIngestionOrchestrator creates an orchestrator. retriever may be nil,
// in which case documents are chunked but never embedded.
func NewIngestionOrchestrator(
	store driven.RecordStore,
	chunkr Chunker,
	pages driven.PageEstimator,
	retriever driving.Retriever,
	opts ...IngestionOption,
) *IngestionOrchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &IngestionOrchestrator{
		docs:          store.Documents(),
		chunks:        store.Chunks(),
		chunker:       chunkr,
		pages:         pages,
		retriever:     retriever,
		metrics:       NopMetrics{},
		now:           time.Now,
		retryAttempts: 3,
		retryDelay:    2 * time.Second,
		bgCtx:         ctx,
		cancel:        cancel,
		jobs:          make(map[string]*driving.JobStatus),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.pages == nil {
		o.pages = NewPageEstimators()
	}
	return o
}

// Process chunks a pending document and schedules its embedding.
// It returns once the document is completed or failed; embedding
// continues in the background.
func (o *IngestionOrchestrator) Process(ctx context.Context, documentID string) error {
	if err := o.begin(documentID); err != nil {
		return err
	}

	created, err := o.process(ctx, documentID)
	if err != nil {
		o.finish(documentID, err)
		return err
	}

	o.scheduleEmbedding(documentID, created)
	return nil
}

// Submit validates the document and runs Process in the background.
func (o *IngestionOrchestrator) Submit(ctx context.Context, documentID string) error {
	doc, err := o.docs.Get(ctx, documentID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	if doc.State != domain.StatePending {
		return fmt.Errorf("%w: document %s is %s", domain.ErrInvalidTransition, documentID, doc.State)
	}
	if err := o.begin(documentID); err != nil {
		return err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		created, err := o.process(o.bgCtx, documentID)
		if err != nil {
			logger.Warn("process document %s: %v", documentID, err)
			o.finish(documentID, err)
			return
		}
		o.scheduleEmbedding(documentID, created)
	}()
	return nil
}

// Status returns a copy of the document's job status, or nil.
func (o *IngestionOrchestrator) Status(documentID string) *driving.JobStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()

	status, ok := o.jobs[documentID]
	if !ok {
		return nil
	}
	statusCopy := *status
	return &statusCopy
}

// Wait blocks until every background job, including embedding follow-ons, has finished.
func (o *IngestionOrchestrator) Wait() {
	o.wg.Wait()
}

// Close cancels background jobs and waits for them to stop.
func (o *IngestionOrchestrator) Close() error {
	o.cancel()
	o.wg.Wait()
	return nil
}

// process runs the state machine for one document and returns the number
// of chunks created.
func (o *IngestionOrchestrator) process(ctx context.Context, documentID string) (int, error) {
	logger.Section("Processing Document")
	logger.Debug("Document: %s", documentID)

	// 1. Claim the document. Only one writer wins pending -> processing.
	claim := domain.StateChange{From: domain.StatePending, To: domain.StateProcessing}
	if err := o.docs.UpdateState(ctx, documentID, claim); err != nil {
		return 0, fmt.Errorf("claim document: %w", err)
	}

	// 2. Load the extracted text
	doc, err := o.docs.Get(ctx, documentID)
	if err != nil {
		return 0, o.fail(ctx, documentID, fmt.Errorf("load document: %w", err))
	}

	// 3. Chunk
	pages := o.pages.EstimatePages(doc)
	chunks, err := o.chunker.Process(doc, pages)
	if err != nil {
		return 0, o.fail(ctx, documentID, &domain.ExtractionError{DocumentID: documentID, Err: err})
	}
	if len(chunks) == 0 {
		return 0, o.fail(ctx, documentID, &domain.ExtractionError{DocumentID: documentID, Err: errNoText})
	}
	logger.Debug("Split into %d chunks over %d pages", len(chunks), pages)

	// 4. Persist chunks
	for i := range chunks {
		if err := o.chunks.Create(ctx, &chunks[i]); err != nil {
			return 0, o.fail(ctx, documentID, fmt.Errorf("store chunk %d: %w", chunks[i].Index, err))
		}
	}
	o.update(documentID, func(s *driving.JobStatus) {
		s.ChunksCreated = len(chunks)
	})

	// 5. Complete
	done := domain.StateChange{
		From:        domain.StateProcessing,
		To:          domain.StateCompleted,
		PageCount:   pages,
		WordCount:   chunker.CountWords(doc.ExtractedText),
		ProcessedAt: o.now(),
	}
	if err := o.docs.UpdateState(ctx, documentID, done); err != nil {
		return 0, o.fail(ctx, documentID, fmt.Errorf("complete document: %w", err))
	}
	o.metrics.DocumentProcessed(domain.StateCompleted)

	logger.Info("Processed %q: %d chunks, %d pages, %d words",
		doc.Title, len(chunks), done.PageCount, done.WordCount)
	return len(chunks), nil
}

// fail discards partial chunks and moves the document to failed with the
// cause's message. It returns the cause.
func (o *IngestionOrchestrator) fail(ctx context.Context, documentID string, cause error) error {
	// Record the failure even when the job's context is already cancelled.
	ctx = context.WithoutCancel(ctx)

	if err := o.chunks.DeleteByDocument(ctx, documentID); err != nil {
		logger.Warn("discard chunks of document %s: %v", documentID, err)
	}

	change := domain.StateChange{
		From:         domain.StateProcessing,
		To:           domain.StateFailed,
		ErrorMessage: cause.Error(),
	}
	if err := o.docs.UpdateState(ctx, documentID, change); err != nil {
		return errors.Join(cause, fmt.Errorf("record failure: %w", err))
	}
	o.metrics.DocumentProcessed(domain.StateFailed)
	return cause
}

// scheduleEmbedding starts the embedding follow-on for a completed document.
func (o *IngestionOrchestrator) scheduleEmbedding(documentID string, created int) {
	if o.retriever == nil || created == 0 {
		logger.Debug("No embedding scheduled for document %s", documentID)
		o.finish(documentID, nil)
		return
	}

	o.update(documentID, func(s *driving.JobStatus) {
		s.Stage = StageEmbedding
	})

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		err := o.embedWithRetry(o.bgCtx, documentID)
		if err != nil {
			logger.Warn("embed document %s: %v", documentID, err)
		}
		o.finish(documentID, err)
	}()
}

// embedWithRetry runs embedding passes with exponential backoff until every
// chunk has a vector or the attempts run out. The document state is never
// changed here.
func (o *IngestionOrchestrator) embedWithRetry(ctx context.Context, documentID string) error {
	attempts := max(o.retryAttempts, 1)
	delay := o.retryDelay
	if delay <= 0 {
		delay = time.Millisecond
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(delay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		summary, err := o.retriever.EmbedPendingChunks(ctx, documentID)
		if err != nil {
			if errors.Is(err, domain.ErrEmbeddingUnavailable) {
				return err
			}
			return retry.RetryableError(err)
		}

		o.metrics.ChunksEmbedded(summary.Embedded, summary.Failed())
		o.update(documentID, func(s *driving.JobStatus) {
			s.ChunksEmbedded += summary.Embedded
		})

		if !summary.Complete() {
			return retry.RetryableError(fmt.Errorf("%d of %d chunks not embedded: %w",
				summary.Failed(), summary.Attempted, summary.Failures[0].Err))
		}
		return nil
	})
}

// ==================== Job tracking ====================

func (o *IngestionOrchestrator) begin(documentID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if status, ok := o.jobs[documentID]; ok && status.Running {
		return fmt.Errorf("%w: %s", domain.ErrJobActive, documentID)
	}
	o.jobs[documentID] = &driving.JobStatus{
		DocumentID: documentID,
		Running:    true,
		Stage:      StageChunking,
	}
	return nil
}

func (o *IngestionOrchestrator) update(documentID string, fn func(*driving.JobStatus)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if status, ok := o.jobs[documentID]; ok {
		fn(status)
	}
}

func (o *IngestionOrchestrator) finish(documentID string, err error) {
	o.update(documentID, func(s *driving.JobStatus) {
		s.Running = false
		s.Stage = StageDone
		if err != nil {
			s.LastError = err.Error()
		}
	})
}
