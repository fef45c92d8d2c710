package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestExtensions(t *testing.T) {
	exts := New().Extensions()
	assert.Contains(t, exts, ".txt")
	assert.Contains(t, exts, ".text")
}

func TestNormalise_Success(t *testing.T) {
	result, err := New().Normalise(context.Background(), &driven.RawFile{
		Path:    "/path/to/meeting-notes_2025.txt",
		Content: []byte("This is plain text content.\r\nSecond line.\n"),
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "meeting notes 2025", result.Title)
	assert.Equal(t, domain.FileTypeText, result.FileType)
	assert.Equal(t, "This is plain text content.\nSecond line.", result.Text)
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_EmptyContent(t *testing.T) {
	result, err := New().Normalise(context.Background(), &driven.RawFile{Path: "/empty.txt"})
	require.NoError(t, err)
	assert.Empty(t, result.Text)
}

func TestNormalise_BinaryContent(t *testing.T) {
	result, err := New().Normalise(context.Background(), &driven.RawFile{
		Path:    "/image.txt",
		Content: []byte{0xff, 0xfe, 0x00, 0x81},
	})
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Nil(t, result)
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/a/b/readme.txt", "readme"},
		{"notes", "notes"},
		{"/x/quarterly_report-final.txt", "quarterly report final"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, extractTitle(tc.path))
		})
	}
}
