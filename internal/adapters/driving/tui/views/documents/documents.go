// Package documents provides the documents view, which lists the user's
// documents and lets them choose which ones questions are asked about.
package documents

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

// View is the documents scope picker.
type View struct {
	styles          *styles.Styles
	keymap          *keymap.KeyMap
	documentService driving.DocumentService
	userID          string

	documents    []domain.Document
	scope        map[string]bool
	selected     int
	scrollOffset int
	width        int
	height       int
	ready        bool
	loading      bool
	err          error
}

// NewView creates a new documents view for one user.
func NewView(s *styles.Styles, km *keymap.KeyMap, documentService driving.DocumentService, userID string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles:          s,
		keymap:          km,
		documentService: documentService,
		userID:          userID,
		scope:           make(map[string]bool),
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Load returns a command that fetches the user's documents.
func (v *View) Load() tea.Cmd {
	v.loading = true
	svc, userID := v.documentService, v.userID
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentsLoaded{Err: fmt.Errorf("document service not available")}
		}
		docs, err := svc.List(context.Background(), userID)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.documents = msg.Documents
		v.pruneScope()
		if v.selected >= len(v.documents) {
			v.selected = max(len(v.documents)-1, 0)
		}
		v.adjustScroll()
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case key.Matches(msg, v.keymap.Down):
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	case key.Matches(msg, v.keymap.Toggle):
		if len(v.documents) == 0 {
			return v, nil
		}
		id := v.documents[v.selected].ID
		if v.scope[id] {
			delete(v.scope, id)
		} else {
			v.scope[id] = true
		}
		return v, v.scopeChanged()
	case key.Matches(msg, v.keymap.Select):
		return v, tea.Batch(v.scopeChanged(), func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewChat}
		})
	case key.Matches(msg, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case msg.String() == "r":
		return v, v.Load()
	case msg.String() == "a":
		clear(v.scope)
		return v, v.scopeChanged()
	}
	return v, nil
}

func (v *View) scopeChanged() tea.Cmd {
	ids := v.Scope()
	return func() tea.Msg {
		return messages.ScopeChanged{DocumentIDs: ids}
	}
}

// pruneScope drops scoped documents that no longer exist.
func (v *View) pruneScope() {
	present := make(map[string]bool, len(v.documents))
	for i := range v.documents {
		present[v.documents[i].ID] = true
	}
	for id := range v.scope {
		if !present[id] {
			delete(v.scope, id)
		}
	}
}

// Scope returns the selected document IDs in list order. Nil means all documents.
func (v *View) Scope() []string {
	var ids []string
	for i := range v.documents {
		if v.scope[v.documents[i].ID] {
			ids = append(ids, v.documents[i].ID)
		}
	}
	return ids
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
	// Title, blank line, scroll indicator, help
	return max(v.height-8, 1)
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.documents))))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
	case len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("No documents yet. Add some with 'docqa ingest <file>'."))
	default:
		visible := v.visibleItemCount()
		end := min(v.scrollOffset+visible, len(v.documents))
		for i := v.scrollOffset; i < end; i++ {
			b.WriteString(v.renderDocument(i, &v.documents[i]))
			b.WriteString("\n")
		}
		if len(v.documents) > visible {
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]", v.scrollOffset+1, end, len(v.documents))))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())
	return b.String()
}

func (v *View) renderDocument(index int, doc *domain.Document) string {
	cursor := "  "
	if index == v.selected {
		cursor = "> "
	}
	check := "[ ]"
	if v.scope[doc.ID] {
		check = "[x]"
	}

	title := doc.Title
	maxTitle := max(v.width/2, 10)
	if len([]rune(title)) > maxTitle {
		title = string([]rune(title)[:maxTitle-3]) + "..."
	}

	line := fmt.Sprintf("%s%s %s", cursor, check, title)
	if index == v.selected {
		line = v.styles.Selected.Render(line)
	} else {
		line = v.styles.Normal.Render(line)
	}
	return line + "  " + v.renderState(doc)
}

func (v *View) renderState(doc *domain.Document) string {
	label := fmt.Sprintf("%s · %s", doc.FileType, doc.State)
	switch doc.State {
	case domain.StateCompleted:
		return v.styles.Success.Render(fmt.Sprintf("%s · %d pages", label, doc.PageCount))
	case domain.StateFailed:
		return v.styles.Error.Render(label)
	case domain.StateProcessing:
		return v.styles.Warning.Render(label)
	default:
		return v.styles.Muted.Render(label)
	}
}

func (v *View) renderHelp() string {
	return v.styles.Help.Render("[space] toggle  [a] all documents  [enter] ask  [r] reload  [esc] back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Selected returns the currently selected index.
func (v *View) Selected() int {
	return v.selected
}

// Documents returns the loaded documents.
func (v *View) Documents() []domain.Document {
	return v.documents
}
