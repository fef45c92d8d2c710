package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreview(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		assert.Equal(t, "The sky is blue.", Preview("The sky is blue."))
	})

	t.Run("exact length unchanged", func(t *testing.T) {
		text := strings.Repeat("a", PreviewLength)
		assert.Equal(t, text, Preview(text))
	})

	t.Run("long text truncated with marker", func(t *testing.T) {
		text := strings.Repeat("b", PreviewLength+1)
		got := Preview(text)
		assert.Equal(t, strings.Repeat("b", PreviewLength)+"...", got)
	})

	t.Run("counts characters not bytes", func(t *testing.T) {
		text := strings.Repeat("é", PreviewLength)
		assert.Equal(t, text, Preview(text))
	})
}

func TestConversationTitle(t *testing.T) {
	assert.Equal(t, "What color is the sky?", ConversationTitle("What color is the sky?"))

	long := strings.Repeat("q", 150)
	assert.Equal(t, strings.Repeat("q", ConversationTitleLength), ConversationTitle(long))
}
