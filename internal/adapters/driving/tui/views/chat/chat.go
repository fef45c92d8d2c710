// Package chat provides the question and answer view for the TUI.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// chromeHeight is the number of lines used by everything except the transcript.
const chromeHeight = 7

// turn is one question and its answer in the transcript.
type turn struct {
	questionID string
	question   string
	answer     string
	citations  []domain.Citation
	err        error
	helpful    *bool
}

// View is the chat view: a scrolling transcript above a question input.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.QuestionInput
	transcript viewport.Model
	statusbar  *status.Bar

	qa     driving.QAService
	userID string
	ctx    context.Context

	conversationID string
	scope          []string
	turns          []turn
	pending        bool

	width  int
	height int
	ready  bool
}

// NewView creates a new chat view for one user.
func NewView(s *styles.Styles, km *keymap.KeyMap, qa driving.QAService, userID string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		transcript: viewport.New(80, 24-chromeHeight),
		statusbar:  status.NewBar(s, km),
		qa:         qa,
		userID:     userID,
		ctx:        context.Background(),
		width:      80,
		height:     24,
	}
	v.refresh()
	return v
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init focuses the input and starts the cursor blinking.
func (v *View) Init() tea.Cmd {
	v.input.Focus()
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case messages.FeedbackSaved:
		v.handleFeedback(msg)
		return v, nil

	case messages.ScopeChanged:
		v.scope = msg.DocumentIDs
		v.statusbar.SetScope(len(msg.DocumentIDs))
		return v, nil

	case messages.HistoryLoaded:
		v.handleHistory(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case key.Matches(msg, v.keymap.Send):
		question := v.input.Question()
		if question == "" || v.pending {
			return v, nil
		}
		v.pending = true
		v.turns = append(v.turns, turn{question: question})
		v.input.Reset()
		v.statusbar.SetState(status.StateThinking)
		v.statusbar.SetMessage("")
		v.refresh()
		return v, v.ask(question)

	case key.Matches(msg, v.keymap.NewConversation):
		if !v.pending {
			v.NewConversation()
		}
		return v, nil

	case key.Matches(msg, v.keymap.Helpful):
		return v, v.feedback(true)

	case key.Matches(msg, v.keymap.NotHelpful):
		return v, v.feedback(false)

	case key.Matches(msg, v.keymap.ScrollUp), key.Matches(msg, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// ask returns a command that sends the question to the QA service.
func (v *View) ask(question string) tea.Cmd {
	ctx, qa := v.ctx, v.qa
	req := driving.AskRequest{
		Question:       question,
		UserID:         v.userID,
		DocumentIDs:    v.scope,
		ConversationID: v.conversationID,
	}
	return func() tea.Msg {
		if qa == nil {
			return messages.AnswerReceived{Question: question, Err: fmt.Errorf("QA service not available")}
		}
		resp, err := qa.Ask(ctx, req)
		return messages.AnswerReceived{Question: question, Response: resp, Err: err}
	}
}

// feedback returns a command rating the most recent answer, or nil when
// there is nothing to rate.
func (v *View) feedback(helpful bool) tea.Cmd {
	if v.pending || len(v.turns) == 0 || v.qa == nil {
		return nil
	}
	last := v.turns[len(v.turns)-1]
	if last.questionID == "" {
		return nil
	}
	ctx, qa, userID, id := v.ctx, v.qa, v.userID, last.questionID
	return func() tea.Msg {
		err := qa.Feedback(ctx, userID, id, helpful)
		return messages.FeedbackSaved{QuestionID: id, Helpful: helpful, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.pending = false
	if len(v.turns) == 0 {
		v.turns = append(v.turns, turn{question: msg.Question})
	}
	last := &v.turns[len(v.turns)-1]

	if msg.Err != nil {
		last.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		v.refresh()
		return
	}

	resp := msg.Response
	last.questionID = resp.QuestionID
	last.answer = resp.Answer
	last.citations = resp.Citations
	v.conversationID = resp.ConversationID

	v.statusbar.SetState(status.StateAnswered)
	v.statusbar.SetMessage("")
	v.statusbar.SetElapsed(resp.ProcessingTime)
	v.refresh()
}

func (v *View) handleFeedback(msg messages.FeedbackSaved) {
	if msg.Err != nil {
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return
	}
	for i := range v.turns {
		if v.turns[i].questionID == msg.QuestionID {
			helpful := msg.Helpful
			v.turns[i].helpful = &helpful
		}
	}
	if msg.Helpful {
		v.statusbar.SetMessage("marked helpful")
	} else {
		v.statusbar.SetMessage("marked not helpful")
	}
	v.refresh()
}

func (v *View) handleHistory(msg messages.HistoryLoaded) {
	if msg.Err != nil {
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return
	}
	v.conversationID = msg.ConversationID
	v.turns = v.turns[:0]
	for i := range msg.Questions {
		q := &msg.Questions[i]
		v.turns = append(v.turns, turn{
			questionID: q.ID,
			question:   q.Text,
			answer:     q.Answer,
			citations:  q.Citations,
			helpful:    q.Helpful,
		})
	}
	v.statusbar.Clear()
	v.refresh()
}

// Resume returns a command that loads an earlier conversation's history.
func (v *View) Resume(conv domain.Conversation) tea.Cmd {
	ctx, qa, userID := v.ctx, v.qa, v.userID
	return func() tea.Msg {
		if qa == nil {
			return messages.HistoryLoaded{ConversationID: conv.ID, Err: fmt.Errorf("QA service not available")}
		}
		questions, err := qa.History(ctx, userID, conv.ID)
		return messages.HistoryLoaded{ConversationID: conv.ID, Questions: questions, Err: err}
	}
}

// NewConversation clears the transcript; the next question starts a new conversation.
func (v *View) NewConversation() {
	v.conversationID = ""
	v.turns = nil
	v.statusbar.Clear()
	v.refresh()
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (v *View) refresh() {
	v.transcript.SetContent(v.renderTranscript())
	v.transcript.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.turns) == 0 {
		return v.styles.Muted.Render("Ask anything about your documents. Answers cite the passages they use.")
	}

	wrap := max(v.width-6, 20)
	var b strings.Builder
	for i := range v.turns {
		t := &v.turns[i]
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(v.styles.Question.Render("You: " + t.question))
		b.WriteString("\n")

		switch {
		case t.err != nil:
			b.WriteString(v.styles.Error.PaddingLeft(2).Render("Error: " + t.err.Error()))
			b.WriteString("\n")
			continue
		case t.questionID == "" && t.answer == "":
			b.WriteString(v.styles.Muted.PaddingLeft(2).Render("Thinking..."))
			b.WriteString("\n")
			continue
		}

		b.WriteString(v.styles.Answer.Width(wrap).Render(t.answer))
		b.WriteString("\n")
		for n, c := range t.citations {
			b.WriteString(v.styles.Citation.Render(formatCitation(n+1, c)))
			b.WriteString("\n")
		}
		if t.helpful != nil {
			label := "rated helpful"
			if !*t.helpful {
				label = "rated not helpful"
			}
			b.WriteString(v.styles.Muted.PaddingLeft(2).Render(label))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatCitation(n int, c domain.Citation) string {
	return fmt.Sprintf("[%d] %s, page %d (%.2f)", n, c.DocumentTitle, c.PageNumber, c.Score)
}

// View renders the chat view.
func (v *View) View() string {
	title := v.styles.Title.Render("Ask")
	if v.conversationID != "" {
		title += v.styles.Muted.Render("  conversation " + shortID(v.conversationID))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		v.transcript.View(),
		"",
		v.input.View(),
		v.statusbar.View(),
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.transcript.Width = width
	v.transcript.Height = max(height-chromeHeight, 1)
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// ConversationID returns the conversation the next question continues.
func (v *View) ConversationID() string {
	return v.conversationID
}

// Scope returns the documents questions are restricted to.
func (v *View) Scope() []string {
	return v.scope
}

// Pending reports whether a question is awaiting its answer.
func (v *View) Pending() bool {
	return v.pending
}

// Transcript returns the rendered transcript text.
func (v *View) Transcript() string {
	return v.renderTranscript()
}
