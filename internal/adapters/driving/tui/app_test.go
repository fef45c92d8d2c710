package tui

import (
	"errors"
	"reflect"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(newTestPorts(), "alice")
	require.NoError(t, err)
	app.SetDimensions(100, 30)
	return app
}

// drain runs a command and feeds the application messages it produces back
// into the app, following batches. Component messages such as cursor blinks
// are dropped.
func drain(app *App, cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if msg == nil || reflect.TypeOf(msg).PkgPath() != messagesPkg {
			continue
		}
		_, next := app.Update(msg)
		queue = append(queue, next)
	}
}

var messagesPkg = reflect.TypeOf(messages.Quit{}).PkgPath()

func TestNewApp(t *testing.T) {
	app, err := NewApp(newTestPorts(), "alice")
	require.NoError(t, err)

	assert.Equal(t, messages.ViewMenu, app.CurrentView())
	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())
	assert.NotNil(t, app.Init())
}

func TestNewApp_Validation(t *testing.T) {
	_, err := NewApp(&Ports{}, "alice")
	assert.ErrorIs(t, err, ErrMissingQAService)

	_, err = NewApp(newTestPorts(), " ")
	assert.ErrorIs(t, err, ErrMissingUser)
}

func TestApp_WindowSize(t *testing.T) {
	app, err := NewApp(newTestPorts(), "alice")
	require.NoError(t, err)

	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.True(t, app.Ready())
	assert.Contains(t, app.View(), "docqa")
}

func TestApp_MenuToChatAndAsk(t *testing.T) {
	app := newTestApp(t)

	// Menu: enter on "Ask"
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(app, cmd)
	require.Equal(t, messages.ViewChat, app.CurrentView())

	for _, r := range "What is in the handbook?" {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(app, cmd)

	view := app.View()
	assert.Contains(t, view, "Answer [Source 1].")
	assert.Contains(t, view, "[1] Handbook, page 1")
	assert.Equal(t, "conv-1", app.chatView.ConversationID())

	// Esc returns to the menu
	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	drain(app, cmd)
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_DocumentsScopeFlowsToChat(t *testing.T) {
	app := newTestApp(t)

	drain(app, func() tea.Msg { return messages.ViewChanged{View: messages.ViewDocuments} })
	require.Equal(t, messages.ViewDocuments, app.CurrentView())
	assert.Contains(t, app.View(), "Handbook")

	// Toggle the second document then open the chat
	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	drain(app, cmd)
	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(app, cmd)

	assert.Equal(t, messages.ViewChat, app.CurrentView())
	assert.Equal(t, []string{"doc-2"}, app.chatView.Scope())
	assert.Contains(t, app.View(), "1 document")
}

func TestApp_DocumentsLoadError(t *testing.T) {
	ports := newTestPorts()
	ports.Document = &mockDocumentService{listErr: errors.New("database locked")}
	app, err := NewApp(ports, "alice")
	require.NoError(t, err)
	app.SetDimensions(100, 30)

	drain(app, func() tea.Msg { return messages.ViewChanged{View: messages.ViewDocuments} })

	assert.EqualError(t, app.Err(), "database locked")
	assert.Contains(t, app.View(), "Error: database locked")
}

func TestApp_ResumeConversation(t *testing.T) {
	ports := newTestPorts()
	ports.QA = &mockQAService{
		conversations: []domain.Conversation{{ID: "conv-7", Title: "Refunds"}},
		history:       []domain.Question{{ID: "q-1", Text: "How do refunds work?", Answer: "Within 30 days."}},
	}
	app, err := NewApp(ports, "alice")
	require.NoError(t, err)
	app.SetDimensions(100, 30)

	drain(app, func() tea.Msg { return messages.ViewChanged{View: messages.ViewConversations} })
	assert.Contains(t, app.View(), "Refunds")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(app, cmd)

	assert.Equal(t, messages.ViewChat, app.CurrentView())
	assert.Equal(t, "conv-7", app.chatView.ConversationID())
	assert.Contains(t, app.View(), "Within 30 days.")
}

func TestApp_HelpView(t *testing.T) {
	app := newTestApp(t)

	app.Update(messages.ViewChanged{View: messages.ViewHelp})
	view := app.View()
	assert.Contains(t, view, "Help")
	assert.Contains(t, view, "ctrl+n")
	assert.Contains(t, view, "new conversation")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_CtrlCQuits(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_QuitMessage(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(messages.Quit{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_ErrorOccurred(t *testing.T) {
	app := newTestApp(t)

	app.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.EqualError(t, app.Err(), "boom")
}
