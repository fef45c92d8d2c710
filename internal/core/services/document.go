package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages a user's documents and their chunks.
type DocumentService struct {
	docs   driven.DocumentStore
	chunks driven.ChunkStore
	now    func() time.Time
}

// NewDocumentService creates a new document service.
func NewDocumentService(store driven.RecordStore) *DocumentService {
	return &DocumentService{
		docs:   store.Documents(),
		chunks: store.Chunks(),
		now:    time.Now,
	}
}

// Register stores an extracted document in the pending state.
func (s *DocumentService) Register(ctx context.Context, in driving.NewDocument) (*domain.Document, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("%w: user ID is required", domain.ErrInvalidInput)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if !in.FileType.IsValid() {
		return nil, fmt.Errorf("%w: file type %q", domain.ErrUnsupportedType, in.FileType)
	}
	if in.PageCount < 0 {
		return nil, fmt.Errorf("%w: page count must not be negative", domain.ErrInvalidInput)
	}

	now := s.now()
	doc := &domain.Document{
		ID:            uuid.New().String(),
		UserID:        in.UserID,
		Title:         title,
		FileType:      in.FileType,
		ExtractedText: in.Text,
		PageCount:     in.PageCount,
		State:         domain.StatePending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.docs.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return doc, nil
}

// Get retrieves one of the user's documents.
func (s *DocumentService) Get(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

// List returns the user's documents, newest first.
func (s *DocumentService) List(ctx context.Context, userID string) ([]domain.Document, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is required", domain.ErrInvalidInput)
	}
	return s.docs.List(ctx, userID)
}

// Chunks returns the chunks of one of the user's documents.
func (s *DocumentService) Chunks(ctx context.Context, userID, documentID string) ([]domain.Chunk, error) {
	if _, err := s.Get(ctx, userID, documentID); err != nil {
		return nil, err
	}
	return s.chunks.List(ctx, documentID)
}

// Delete removes one of the user's documents and its chunks.
func (s *DocumentService) Delete(ctx context.Context, userID, documentID string) error {
	if _, err := s.Get(ctx, userID, documentID); err != nil {
		return err
	}
	return s.docs.Delete(ctx, documentID)
}
