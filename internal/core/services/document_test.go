package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

func TestNewDocumentService(t *testing.T) {
	svc := NewDocumentService(memory.NewStore())
	require.NotNil(t, svc)
}

func TestDocumentService_Register(t *testing.T) {
	store := memory.NewStore()
	svc := NewDocumentService(store)
	ctx := context.Background()

	doc, err := svc.Register(ctx, driving.NewDocument{
		UserID:    "alice",
		Title:     "  report.pdf ",
		FileType:  domain.FileTypePDF,
		Text:      "Quarterly numbers.",
		PageCount: 12,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "report.pdf", doc.Title)
	assert.Equal(t, domain.StatePending, doc.State)
	assert.Equal(t, 12, doc.PageCount)
	assert.False(t, doc.CreatedAt.IsZero())

	stored, err := store.Documents().Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly numbers.", stored.ExtractedText)
	assert.Equal(t, domain.StatePending, stored.State)
}

func TestDocumentService_Register_Validation(t *testing.T) {
	svc := NewDocumentService(memory.NewStore())
	ctx := context.Background()

	tests := []struct {
		name    string
		in      driving.NewDocument
		wantErr error
	}{
		{
			name:    "missing user",
			in:      driving.NewDocument{Title: "a.txt", FileType: domain.FileTypeText},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "blank title",
			in:      driving.NewDocument{UserID: "alice", Title: "  ", FileType: domain.FileTypeText},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "unknown file type",
			in:      driving.NewDocument{UserID: "alice", Title: "a.odt", FileType: "odt"},
			wantErr: domain.ErrUnsupportedType,
		},
		{
			name: "negative page count",
			in: driving.NewDocument{
				UserID: "alice", Title: "a.pdf", FileType: domain.FileTypePDF, PageCount: -1,
			},
			wantErr: domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDocumentService_OwnershipIsEnforced(t *testing.T) {
	store := memory.NewStore()
	svc := NewDocumentService(store)
	ctx := context.Background()

	doc := register(t, svc, driving.NewDocument{UserID: "alice", Text: "secret"})

	_, err := svc.Get(ctx, "bob", doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Chunks(ctx, "bob", doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = svc.Delete(ctx, "bob", doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := svc.Get(ctx, "alice", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
}

func TestDocumentService_ListAndDelete(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	first := p.ingest(t, "alice", "first.txt", "The sky is blue.")
	second := p.ingest(t, "alice", "second.txt", "Water is wet.")
	p.ingest(t, "bob", "bob.txt", "Not yours.")

	docs, err := p.documents.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, second.ID, docs[0].ID, "newest first")
	assert.Equal(t, first.ID, docs[1].ID)

	chunks, err := p.documents.Chunks(ctx, "alice", first.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	require.NoError(t, p.documents.Delete(ctx, "alice", first.ID))

	_, err = p.documents.Get(ctx, "alice", first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	count, err := p.store.Chunks().CountEmbedded(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = p.documents.List(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentService_Get_Missing(t *testing.T) {
	svc := NewDocumentService(memory.NewStore())
	_, err := svc.Get(context.Background(), "alice", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
