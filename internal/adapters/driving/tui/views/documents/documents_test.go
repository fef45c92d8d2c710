package documents

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// MockDocumentService implements driving.DocumentService for testing.
type MockDocumentService struct {
	ListFunc func(ctx context.Context, userID string) ([]domain.Document, error)
}

func (m *MockDocumentService) Register(_ context.Context, _ driving.NewDocument) (*domain.Document, error) {
	return nil, errors.New("not implemented")
}

func (m *MockDocumentService) Get(_ context.Context, _, _ string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (m *MockDocumentService) List(ctx context.Context, userID string) ([]domain.Document, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID)
	}
	return []domain.Document{}, nil
}

func (m *MockDocumentService) Chunks(_ context.Context, _, _ string) ([]domain.Chunk, error) {
	return nil, nil
}

func (m *MockDocumentService) Delete(_ context.Context, _, _ string) error {
	return nil
}

func testDocuments() []domain.Document {
	return []domain.Document{
		{ID: "doc-1", Title: "Handbook", FileType: domain.FileTypePDF, State: domain.StateCompleted, PageCount: 12},
		{ID: "doc-2", Title: "Notes", FileType: domain.FileTypeMarkdown, State: domain.StatePending},
		{ID: "doc-3", Title: "Broken", FileType: domain.FileTypeDOCX, State: domain.StateFailed},
	}
}

func loadedView(t *testing.T) *View {
	t.Helper()
	view := NewView(nil, nil, &MockDocumentService{}, "alice")
	view.SetDimensions(100, 30)
	view.Update(messages.DocumentsLoaded{Documents: testDocuments()})
	return view
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// collect runs a command and flattens batches into their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func TestNewView(t *testing.T) {
	view := NewView(nil, nil, nil, "alice")

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.NotNil(t, view.keymap)
	assert.Nil(t, view.Init())
	assert.Nil(t, view.Scope())
}

func TestView_Load(t *testing.T) {
	var gotUser string
	svc := &MockDocumentService{
		ListFunc: func(_ context.Context, userID string) ([]domain.Document, error) {
			gotUser = userID
			return testDocuments(), nil
		},
	}
	view := NewView(nil, nil, svc, "alice")

	cmd := view.Load()
	assert.True(t, view.loading)

	msg, ok := cmd().(messages.DocumentsLoaded)
	require.True(t, ok)
	require.NoError(t, msg.Err)
	assert.Equal(t, "alice", gotUser)
	assert.Len(t, msg.Documents, 3)

	view.Update(msg)
	assert.False(t, view.loading)
	assert.Len(t, view.Documents(), 3)
}

func TestView_Load_NoService(t *testing.T) {
	view := NewView(nil, nil, nil, "alice")

	msg, ok := view.Load()().(messages.DocumentsLoaded)
	require.True(t, ok)
	assert.Error(t, msg.Err)
}

func TestView_Load_Error(t *testing.T) {
	view := NewView(nil, nil, &MockDocumentService{}, "alice")
	view.SetDimensions(80, 24)

	view.Update(messages.DocumentsLoaded{Err: errors.New("database locked")})

	assert.Contains(t, view.View(), "Error: database locked")
}

func TestView_Navigation(t *testing.T) {
	view := loadedView(t)

	view.Update(keyPress("j"))
	view.Update(keyPress("j"))
	view.Update(keyPress("j"))
	assert.Equal(t, 2, view.Selected())

	view.Update(keyPress("k"))
	assert.Equal(t, 1, view.Selected())
}

func TestView_ToggleScope(t *testing.T) {
	view := loadedView(t)

	// Select the third and first documents; scope follows list order
	view.Update(keyPress("j"))
	view.Update(keyPress("j"))
	view.Update(keyPress(" "))
	view.Update(keyPress("k"))
	view.Update(keyPress("k"))
	_, cmd := view.Update(keyPress("x"))

	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	assert.Equal(t, messages.ScopeChanged{DocumentIDs: []string{"doc-1", "doc-3"}}, msgs[0])

	// Toggling again removes it
	_, cmd = view.Update(keyPress(" "))
	assert.Equal(t, []tea.Msg{messages.ScopeChanged{DocumentIDs: []string{"doc-3"}}}, collect(cmd))

	// "a" clears the scope back to all documents
	_, cmd = view.Update(keyPress("a"))
	assert.Equal(t, []tea.Msg{messages.ScopeChanged{}}, collect(cmd))
	assert.Nil(t, view.Scope())
}

func TestView_ReloadPrunesMissingDocuments(t *testing.T) {
	view := loadedView(t)
	view.Update(keyPress(" "))
	view.Update(keyPress("j"))
	view.Update(keyPress("j"))
	view.Update(keyPress(" "))
	require.Equal(t, []string{"doc-1", "doc-3"}, view.Scope())

	view.Update(messages.DocumentsLoaded{Documents: testDocuments()[:1]})

	assert.Equal(t, []string{"doc-1"}, view.Scope())
	assert.Equal(t, 0, view.Selected())
}

func TestView_EnterOpensChat(t *testing.T) {
	view := loadedView(t)
	view.Update(keyPress(" "))

	_, cmd := view.Update(keyPress("enter"))

	msgs := collect(cmd)
	assert.Contains(t, msgs, messages.ScopeChanged{DocumentIDs: []string{"doc-1"}})
	assert.Contains(t, msgs, messages.ViewChanged{View: messages.ViewChat})
}

func TestView_EscReturnsToMenu(t *testing.T) {
	view := loadedView(t)

	_, cmd := view.Update(keyPress("esc"))

	assert.Equal(t, []tea.Msg{messages.ViewChanged{View: messages.ViewMenu}}, collect(cmd))
}

func TestView_Render(t *testing.T) {
	view := loadedView(t)
	view.Update(keyPress(" "))

	out := view.View()

	assert.Contains(t, out, "Documents (3)")
	assert.Contains(t, out, "[x] Handbook")
	assert.Contains(t, out, "[ ] Notes")
	assert.Contains(t, out, "pdf · completed · 12 pages")
	assert.Contains(t, out, "md · pending")
	assert.Contains(t, out, "docx · failed")
}

func TestView_RenderEmpty(t *testing.T) {
	view := NewView(nil, nil, &MockDocumentService{}, "alice")
	view.Update(messages.DocumentsLoaded{Documents: []domain.Document{}})

	assert.Contains(t, view.View(), "No documents yet")
}

func TestView_ScrollKeepsSelectionVisible(t *testing.T) {
	docs := make([]domain.Document, 20)
	for i := range docs {
		docs[i] = domain.Document{ID: string(rune('a' + i)), Title: "Doc"}
	}
	view := NewView(nil, nil, &MockDocumentService{}, "alice")
	view.SetDimensions(80, 10) // two visible rows
	view.Update(messages.DocumentsLoaded{Documents: docs})

	for range 5 {
		view.Update(keyPress("j"))
	}

	assert.Equal(t, 5, view.Selected())
	assert.Equal(t, 4, view.scrollOffset)
	assert.Contains(t, view.View(), "[5-6 of 20]")
}
