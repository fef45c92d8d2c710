package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProcessingState_IsValid(t *testing.T) {
	for _, s := range []ProcessingState{StatePending, StateProcessing, StateCompleted, StateFailed} {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, ProcessingState("done").IsValid())
	assert.False(t, ProcessingState("").IsValid())
}

func TestProcessingState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to ProcessingState
		want     bool
	}{
		{StatePending, StateProcessing, true},
		{StatePending, StateCompleted, false},
		{StatePending, StateFailed, false},
		{StateProcessing, StateCompleted, true},
		{StateProcessing, StateFailed, true},
		{StateProcessing, StatePending, false},
		{StateCompleted, StateProcessing, false},
		{StateCompleted, StateFailed, false},
		{StateFailed, StatePending, false},
		{StateFailed, StateProcessing, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestProcessingState_IsTerminal(t *testing.T) {
	assert.False(t, StatePending.IsTerminal())
	assert.False(t, StateProcessing.IsTerminal())
	assert.True(t, StateCompleted.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
}

func TestStateChange_Validate(t *testing.T) {
	t.Run("legal transition", func(t *testing.T) {
		c := StateChange{From: StatePending, To: StateProcessing}
		assert.NoError(t, c.Validate())
	})

	t.Run("illegal transition", func(t *testing.T) {
		c := StateChange{From: StateCompleted, To: StateProcessing}
		err := c.Validate()
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})

	t.Run("completed requires timestamp", func(t *testing.T) {
		c := StateChange{From: StateProcessing, To: StateCompleted}
		err := c.Validate()
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})
}

func TestStateChange_Apply(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("completed sets counts", func(t *testing.T) {
		doc := &Document{State: StateProcessing}
		StateChange{
			From:        StateProcessing,
			To:          StateCompleted,
			PageCount:   4,
			WordCount:   812,
			ProcessedAt: now,
		}.Apply(doc, now)

		assert.Equal(t, StateCompleted, doc.State)
		assert.Equal(t, 4, doc.PageCount)
		assert.Equal(t, 812, doc.WordCount)
		assert.Equal(t, now, doc.ProcessedAt)
		assert.Equal(t, now, doc.UpdatedAt)
	})

	t.Run("failed keeps message verbatim", func(t *testing.T) {
		doc := &Document{State: StateProcessing}
		StateChange{From: StateProcessing, To: StateFailed, ErrorMessage: "bad: input\n"}.Apply(doc, now)

		assert.Equal(t, StateFailed, doc.State)
		assert.Equal(t, "bad: input\n", doc.ErrorMessage)
	})
}

func TestFileType_IsValid(t *testing.T) {
	assert.True(t, FileTypePDF.IsValid())
	assert.True(t, FileTypeDOCX.IsValid())
	assert.True(t, FileTypeText.IsValid())
	assert.True(t, FileTypeMarkdown.IsValid())
	assert.False(t, FileType("xlsx").IsValid())
}

func TestChunk_HasEmbedding(t *testing.T) {
	c := Chunk{}
	assert.False(t, c.HasEmbedding())
	c.Embedding = []float32{}
	assert.False(t, c.HasEmbedding())
	c.Embedding = []float32{0.1}
	assert.True(t, c.HasEmbedding())
}
