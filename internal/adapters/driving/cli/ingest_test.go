package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestIngestCmd_RequiresArgs(t *testing.T) {
	_, err := execute("ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestIngestCmd_IngestsFiles(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	notes := writeFile(t, dir, "meeting_notes.txt", "The launch moved to March.")
	guide := writeFile(t, dir, "guide.md", "# Setup Guide\n\nInstall the tool first.")

	out, err := execute("ingest", notes, guide)
	require.NoError(t, err)

	assert.Contains(t, out, "Ingested 2 of 2 files.")
	assert.Contains(t, out, "stage: done")

	docs, err := testStore.Documents().List(context.Background(), defaultUser)
	require.NoError(t, err)
	require.Len(t, docs, 4)

	titles := make(map[string]domain.ProcessingState)
	for i := range docs {
		titles[docs[i].Title] = docs[i].State
	}
	assert.Equal(t, domain.StateCompleted, titles["meeting notes"])
	assert.Equal(t, domain.StateCompleted, titles["Setup Guide"])

	count, err := testStore.Chunks().CountEmbedded(context.Background(), defaultUser)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestIngestCmd_ReportsFailures(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", "Some text.")
	empty := writeFile(t, dir, "empty.txt", "   ")
	unsupported := writeFile(t, dir, "scan.png", "not text")

	out, err := execute("ingest", good, empty, unsupported)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "2 files failed")
	assert.Contains(t, out, "FAILED "+unsupported)
	assert.Contains(t, out, "FAILED "+empty)
	assert.Contains(t, out, "Ingested 1 of 3 files.")
}

func TestProcessCmd_CompletedDocumentIsRejected(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("process", testRefundDocID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestProcessCmd_ForeignDocumentIsNotFound(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("process", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEmbedCmd_NothingPending(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("embed", testRefundDocID)
	require.NoError(t, err)
	assert.Contains(t, out, "Embedded 0 of 0 pending chunks for Refund Policy.")
}
