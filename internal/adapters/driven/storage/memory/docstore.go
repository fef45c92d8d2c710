package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	s *Store
}

// Save creates a document.
func (d *DocumentStore) Save(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	if _, ok := d.s.documents[doc.ID]; ok {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrAlreadyExists)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = d.s.now()
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	if doc.State == "" {
		doc.State = domain.StatePending
	}
	d.s.documents[doc.ID] = &docRecord{doc: *doc, seq: d.s.next()}
	return nil
}

// Get retrieves a document by ID.
func (d *DocumentStore) Get(_ context.Context, id string) (*domain.Document, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	rec, ok := d.s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	doc := rec.doc
	return &doc, nil
}

// List returns a user's documents, newest first.
func (d *DocumentStore) List(_ context.Context, userID string) ([]domain.Document, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	recs := d.s.filterDocuments(func(doc *domain.Document) bool { return doc.UserID == userID })
	result := make([]domain.Document, len(recs))
	for i, rec := range recs {
		result[len(recs)-1-i] = rec.doc
	}
	return result, nil
}

// ListByState returns documents in the given state, oldest first.
func (d *DocumentStore) ListByState(_ context.Context, state domain.ProcessingState) ([]domain.Document, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	recs := d.s.filterDocuments(func(doc *domain.Document) bool { return doc.State == state })
	result := make([]domain.Document, len(recs))
	for i, rec := range recs {
		result[i] = rec.doc
	}
	return result, nil
}

// UpdateState applies change if the document is currently in change.From.
func (d *DocumentStore) UpdateState(_ context.Context, id string, change domain.StateChange) error {
	if err := change.Validate(); err != nil {
		return err
	}
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	rec, ok := d.s.documents[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if rec.doc.State != change.From {
		return fmt.Errorf("%w: document %s is %s, not %s",
			domain.ErrInvalidTransition, id, rec.doc.State, change.From)
	}
	change.Apply(&rec.doc, d.s.now())
	return nil
}

// Delete removes a document and its chunks.
func (d *DocumentStore) Delete(_ context.Context, id string) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	if _, ok := d.s.documents[id]; !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	delete(d.s.documents, id)
	d.s.deleteChunks(id)
	return nil
}

// filterDocuments returns matching records ordered by creation time.
// Callers hold the lock.
func (s *Store) filterDocuments(match func(*domain.Document) bool) []*docRecord {
	var recs []*docRecord
	for _, rec := range s.documents {
		if match(&rec.doc) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.doc.CreatedAt.Equal(b.doc.CreatedAt) {
			return a.doc.CreatedAt.Before(b.doc.CreatedAt)
		}
		return a.seq < b.seq
	})
	return recs
}
