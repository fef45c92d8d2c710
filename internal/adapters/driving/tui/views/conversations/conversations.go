// Package conversations provides the view listing a user's earlier conversations.
package conversations

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

const timeLayout = "2006-01-02 15:04"

// View lists conversations, most recent first.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	qa     driving.QAService
	userID string

	conversations []domain.Conversation
	selected      int
	scrollOffset  int
	width         int
	height        int
	loading       bool
	err           error
}

// NewView creates a new conversations view for one user.
func NewView(s *styles.Styles, km *keymap.KeyMap, qa driving.QAService, userID string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles: s,
		keymap: km,
		qa:     qa,
		userID: userID,
		width:  80,
		height: 24,
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Load returns a command that fetches the user's conversations.
func (v *View) Load() tea.Cmd {
	v.loading = true
	qa, userID := v.qa, v.userID
	return func() tea.Msg {
		if qa == nil {
			return messages.ConversationsLoaded{Err: fmt.Errorf("QA service not available")}
		}
		convs, err := qa.Conversations(context.Background(), userID)
		return messages.ConversationsLoaded{Conversations: convs, Err: err}
	}
}

// Update handles messages for the conversations view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case messages.ConversationsLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.conversations = msg.Conversations
			v.selected = 0
			v.scrollOffset = 0
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, v.keymap.Up):
			if v.selected > 0 {
				v.selected--
				v.adjustScroll()
			}
		case key.Matches(msg, v.keymap.Down):
			if v.selected < len(v.conversations)-1 {
				v.selected++
				v.adjustScroll()
			}
		case key.Matches(msg, v.keymap.Select):
			if len(v.conversations) == 0 {
				return v, nil
			}
			conv := v.conversations[v.selected]
			return v, func() tea.Msg {
				return messages.ConversationSelected{Conversation: conv}
			}
		case key.Matches(msg, v.keymap.Back):
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewMenu}
			}
		case msg.String() == "r":
			return v, v.Load()
		}
	}
	return v, nil
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

func (v *View) visibleItemCount() int {
	return max(v.height-6, 1)
}

// View renders the conversation list.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Conversations"))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading conversations..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.conversations) == 0:
		b.WriteString(v.styles.Muted.Render("No conversations yet."))
	default:
		end := min(v.scrollOffset+v.visibleItemCount(), len(v.conversations))
		for i := v.scrollOffset; i < end; i++ {
			c := &v.conversations[i]
			line := fmt.Sprintf("%s  %s", c.UpdatedAt.Local().Format(timeLayout), c.Title)
			if i == v.selected {
				b.WriteString("> " + v.styles.Selected.Render(line))
			} else {
				b.WriteString("  " + v.styles.Normal.Render(line))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[enter] resume  [r] reload  [esc] back"))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// Selected returns the currently selected index.
func (v *View) Selected() int {
	return v.selected
}
