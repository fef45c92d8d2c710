package status

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 0, bar.Scope())
	assert.Equal(t, 80, bar.Width())
}

func TestNewBar_NilDependencies(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
}

func TestStatusBar_InitAndUpdate(t *testing.T) {
	bar := NewBar(nil, nil)

	assert.Nil(t, bar.Init())

	updated, cmd := bar.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, bar, updated)
	assert.Nil(t, cmd)
}

func TestStatusBar_View(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*Bar)
		contains []string
	}{
		{
			name:     "ready over all documents",
			setup:    func(_ *Bar) {},
			contains: []string{"Ready", "all documents", "enter: ask"},
		},
		{
			name: "thinking",
			setup: func(b *Bar) {
				b.SetState(StateThinking)
				b.SetScope(1)
			},
			contains: []string{"Thinking...", "1 document"},
		},
		{
			name: "answered shows time and feedback hints",
			setup: func(b *Bar) {
				b.SetState(StateAnswered)
				b.SetElapsed(1234567 * time.Microsecond)
				b.SetScope(3)
			},
			contains: []string{"Answered in 1.235s", "3 documents", "ctrl+y: helpful"},
		},
		{
			name: "answered with confirmation",
			setup: func(b *Bar) {
				b.SetState(StateAnswered)
				b.SetMessage("feedback saved")
			},
			contains: []string{"feedback saved"},
		},
		{
			name: "error with message",
			setup: func(b *Bar) {
				b.SetState(StateError)
				b.SetMessage("generation failed")
			},
			contains: []string{"Error: generation failed"},
		},
		{
			name:     "error without message",
			setup:    func(b *Bar) { b.SetState(StateError) },
			contains: []string{"Error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(200)
			tt.setup(bar)

			view := bar.View()
			for _, want := range tt.contains {
				assert.Contains(t, view, want)
			}
		})
	}
}

func TestStatusBar_NarrowWidthStillRenders(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(5)

	assert.NotEmpty(t, bar.View())
}

func TestStatusBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMessage("boom")
	bar.SetElapsed(time.Second)
	bar.SetScope(2)

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Equal(t, time.Duration(0), bar.elapsed)
	assert.Equal(t, 2, bar.Scope(), "scope survives clear")
}
