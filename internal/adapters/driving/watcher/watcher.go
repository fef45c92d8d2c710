// Package watcher ingests files dropped into an inbox directory.
package watcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// DefaultDebounce is how long a file must stay unchanged before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// Loader reads and normalises a file.
type Loader interface {
	Supports(path string) bool
	Load(ctx context.Context, path string) (*driven.NormaliseResult, error)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long writes to a file must settle before ingestion.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithInitialScan ingests the files already in the directory when Run starts.
func WithInitialScan() Option {
	return func(w *Watcher) {
		w.initialScan = true
	}
}

// WithOnIngest registers a callback invoked after each document is submitted.
func WithOnIngest(fn func(doc *domain.Document)) Option {
	return func(w *Watcher) {
		w.onIngest = fn
	}
}

// Watcher registers and submits every supported file written to a directory.
// A file is ingested again only when its content changes, and the document
// it replaces is deleted with its chunks.
type Watcher struct {
	dir         string
	userID      string
	loader      Loader
	documents   driving.DocumentService
	ingestion   driving.IngestionService
	debounce    time.Duration
	initialScan bool
	onIngest    func(doc *domain.Document)

	mu      sync.Mutex
	timers  map[string]*time.Timer
	digests map[string][sha256.Size]byte
	docIDs  map[string]string
	wg      sync.WaitGroup
}

// New creates a watcher for dir. Documents are owned by userID.
func New(
	dir, userID string,
	loader Loader,
	documents driving.DocumentService,
	ingestion driving.IngestionService,
	opts ...Option,
) (*Watcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: watch directory is required", domain.ErrInvalidInput)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is required", domain.ErrInvalidInput)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve watch directory: %w", err)
	}

	w := &Watcher{
		dir:       abs,
		userID:    userID,
		loader:    loader,
		documents: documents,
		ingestion: ingestion,
		debounce:  DefaultDebounce,
		timers:    make(map[string]*time.Timer),
		digests:   make(map[string][sha256.Size]byte),
		docIDs:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Dir returns the absolute path of the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run watches the directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return fmt.Errorf("create watch directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	logger.Info("Watching %s for new documents", w.dir)

	if w.initialScan {
		w.scan(ctx)
	}

	defer w.drain()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if w.loader.Supports(event.Name) {
				w.schedule(ctx, event.Name)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: %v", err)
		}
	}
}

// scan schedules every supported file already present, in name order.
func (w *Watcher) scan(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Warn("watcher: scan %s: %v", w.dir, err)
		return
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(w.dir, name)
		if w.loader.Supports(path) {
			w.schedule(ctx, path)
		}
	}
}

// schedule (re)starts the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok && t.Stop() {
		w.wg.Done()
	}

	w.wg.Add(1)
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()

		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if err := w.ingest(ctx, path); err != nil {
			logger.Warn("watcher: %s: %v", filepath.Base(path), err)
		}
	})
}

// drain stops pending timers and waits for running ingestions.
func (w *Watcher) drain() {
	w.mu.Lock()
	for path, t := range w.timers {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.timers, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
}

// ingest registers the file as a document and submits it for processing.
func (w *Watcher) ingest(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	digest := sha256.Sum256(content)
	w.mu.Lock()
	if prev, ok := w.digests[path]; ok && prev == digest {
		w.mu.Unlock()
		logger.Debug("watcher: %s unchanged, skipping", filepath.Base(path))
		return nil
	}
	w.mu.Unlock()

	normalised, err := w.loader.Load(ctx, path)
	if err != nil {
		return err
	}

	doc, err := w.documents.Register(ctx, driving.NewDocument{
		UserID:    w.userID,
		Title:     normalised.Title,
		FileType:  normalised.FileType,
		Text:      normalised.Text,
		PageCount: normalised.PageCount,
	})
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	if err := w.ingestion.Submit(ctx, doc.ID); err != nil {
		return fmt.Errorf("submit %s: %w", doc.ID, err)
	}

	w.mu.Lock()
	w.digests[path] = digest
	previous := w.docIDs[path]
	w.docIDs[path] = doc.ID
	w.mu.Unlock()

	logger.Info("Queued %s as document %s", filepath.Base(path), doc.ID)
	if previous != "" {
		w.retire(ctx, path, previous)
	}
	if w.onIngest != nil {
		w.onIngest(doc)
	}
	return nil
}

// retire deletes the document an edited file superseded. A job still
// running for it fails on its own once the document is gone.
func (w *Watcher) retire(ctx context.Context, path, documentID string) {
	err := w.documents.Delete(ctx, w.userID, documentID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("watcher: delete superseded document %s of %s: %v", documentID, filepath.Base(path), err)
		return
	}
	logger.Debug("watcher: %s replaced document %s", filepath.Base(path), documentID)
}
