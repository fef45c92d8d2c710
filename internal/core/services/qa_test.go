package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

func TestQAService_Ask_EndToEnd(t *testing.T) {
	p := newPipeline(t)
	sky := p.ingest(t, "alice", "Sky", "The sky is blue.")
	p.ingest(t, "alice", "Water", "Water is wet.")
	ctx := context.Background()

	resp, err := p.qa.Ask(ctx, driving.AskRequest{Question: "What colour is the sky?", UserID: "alice"})
	require.NoError(t, err)

	assert.Equal(t, "The sky is blue [Source 1].", resp.Answer)
	assert.Equal(t, "stub-model", resp.Model)
	assert.NotEmpty(t, resp.ConversationID)
	assert.NotEmpty(t, resp.QuestionID)
	require.Len(t, resp.Citations, 2)
	assert.Equal(t, sky.ID, resp.Citations[0].DocumentID)
	assert.Equal(t, "Sky", resp.Citations[0].DocumentTitle)
	assert.Equal(t, "The sky is blue.", resp.Citations[0].TextPreview)
	assert.Greater(t, resp.Citations[0].Score, resp.Citations[1].Score)

	// Sky context comes first in the prompt
	require.Equal(t, 1, p.llm.calls())
	prompt := p.llm.prompts[0]
	assert.Less(t, strings.Index(prompt, "[Source 1 - Sky, Page 1]"), strings.Index(prompt, "[Source 2 - Water, Page 1]"))
	assert.True(t, strings.HasSuffix(prompt, "Question: What colour is the sky?\n\nAnswer:"))

	// The question is recorded in a new conversation titled after it
	conv, err := p.store.Conversations().GetConversation(ctx, resp.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "alice", conv.UserID)
	assert.Equal(t, "What colour is the sky?", conv.Title)

	history, err := p.qa.History(ctx, "alice", resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, resp.QuestionID, history[0].ID)
	assert.Equal(t, resp.Answer, history[0].Answer)
	assert.Equal(t, resp.Citations, history[0].Citations)
	assert.Nil(t, history[0].Helpful)

	assert.Equal(t, []bool{true}, p.metrics.answered)
}

func TestQAService_Ask_NoDocuments(t *testing.T) {
	p := newPipeline(t)
	p.ingest(t, "alice", "Sky", "The sky is blue.")
	ctx := context.Background()

	resp, err := p.qa.Ask(ctx, driving.AskRequest{Question: "What colour is the sky?", UserID: "bob"})
	require.NoError(t, err)

	assert.Equal(t, domain.NoDocumentsAnswer, resp.Answer)
	assert.Empty(t, resp.Citations)
	assert.NotNil(t, resp.Citations)
	assert.Empty(t, resp.Model)
	assert.Equal(t, 0, p.llm.calls())

	history, err := p.qa.History(ctx, "bob", resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.NoDocumentsAnswer, history[0].Answer)
	assert.Empty(t, history[0].Citations)

	assert.Equal(t, []bool{false}, p.metrics.answered)
}

func TestQAService_Ask_DocumentFilter(t *testing.T) {
	p := newPipeline(t)
	p.ingest(t, "alice", "Sky", "The sky is blue.")
	water := p.ingest(t, "alice", "Water", "Water is wet.")

	resp, err := p.qa.Ask(context.Background(), driving.AskRequest{
		Question:    "What colour is the sky?",
		UserID:      "alice",
		DocumentIDs: []string{water.ID},
	})
	require.NoError(t, err)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, water.ID, resp.Citations[0].DocumentID)
}

func TestQAService_Ask_ContinuesConversation(t *testing.T) {
	p := newPipeline(t)
	p.ingest(t, "alice", "Sky", "The sky is blue.")
	ctx := context.Background()

	first, err := p.qa.Ask(ctx, driving.AskRequest{Question: "Is the sky blue?", UserID: "alice"})
	require.NoError(t, err)
	second, err := p.qa.Ask(ctx, driving.AskRequest{
		Question:       "And the water?",
		UserID:         "alice",
		ConversationID: first.ConversationID,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	history, err := p.qa.History(ctx, "alice", first.ConversationID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Is the sky blue?", history[0].Text)
	assert.Equal(t, "And the water?", history[1].Text)

	convs, err := p.qa.Conversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "Is the sky blue?", convs[0].Title)

	// Another user cannot continue it
	_, err = p.qa.Ask(ctx, driving.AskRequest{
		Question:       "Hello?",
		UserID:         "bob",
		ConversationID: first.ConversationID,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = p.qa.History(ctx, "bob", first.ConversationID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQAService_Ask_LongQuestionTitle(t *testing.T) {
	p := newPipeline(t)
	question := strings.Repeat("why ", 40)

	resp, err := p.qa.Ask(context.Background(), driving.AskRequest{Question: question, UserID: "alice"})
	require.NoError(t, err)

	conv, err := p.store.Conversations().GetConversation(context.Background(), resp.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationTitle(strings.TrimSpace(question)), conv.Title)
	assert.Len(t, []rune(conv.Title), domain.ConversationTitleLength)
}

func TestQAService_Ask_Validation(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	_, err := p.qa.Ask(ctx, driving.AskRequest{Question: "  ", UserID: "alice"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = p.qa.Ask(ctx, driving.AskRequest{Question: "Why?"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQAService_Ask_GenerationFailureRecordsNothing(t *testing.T) {
	p := newPipeline(t)
	p.ingest(t, "alice", "Sky", "The sky is blue.")
	p.llm.err = errors.New("model overloaded")
	ctx := context.Background()

	_, err := p.qa.Ask(ctx, driving.AskRequest{Question: "What colour is the sky?", UserID: "alice"})
	assert.ErrorIs(t, err, domain.ErrGeneration)

	convs, err := p.qa.Conversations(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, convs)

	count, err := p.store.Conversations().CountQuestions(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestQAService_Ask_ProcessingTime(t *testing.T) {
	p := newPipeline(t)
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		return start.Add(time.Duration(calls-1) * 250 * time.Millisecond)
	}
	qa := NewQAService(p.store, p.retriever, nil, WithQAClock(clock))

	resp, err := qa.Ask(context.Background(), driving.AskRequest{Question: "Anything?", UserID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, resp.ProcessingTime)
}

func TestQAService_Feedback(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	resp, err := p.qa.Ask(ctx, driving.AskRequest{Question: "Anything?", UserID: "alice"})
	require.NoError(t, err)

	require.NoError(t, p.qa.Feedback(ctx, "alice", resp.QuestionID, true))
	q, err := p.store.Conversations().GetQuestion(ctx, resp.QuestionID)
	require.NoError(t, err)
	require.NotNil(t, q.Helpful)
	assert.True(t, *q.Helpful)

	require.NoError(t, p.qa.Feedback(ctx, "alice", resp.QuestionID, false))
	q, err = p.store.Conversations().GetQuestion(ctx, resp.QuestionID)
	require.NoError(t, err)
	assert.False(t, *q.Helpful)

	assert.ErrorIs(t, p.qa.Feedback(ctx, "bob", resp.QuestionID, true), domain.ErrNotFound)
	assert.ErrorIs(t, p.qa.Feedback(ctx, "alice", "missing", true), domain.ErrNotFound)
}

func TestQAService_Stats(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	p.ingest(t, "alice", "Sky", "The sky is blue. Clouds are white.")
	register(t, p.documents, driving.NewDocument{UserID: "alice", Text: "still pending"})
	p.ingest(t, "bob", "Water", "Water is wet.")

	_, err := p.qa.Ask(ctx, driving.AskRequest{Question: "Sky?", UserID: "alice"})
	require.NoError(t, err)

	stats, err := p.qa.Stats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, &domain.UserStats{
		TotalDocuments:     2,
		CompletedDocuments: 1,
		EmbeddedChunks:     1,
		TotalQuestions:     1,
	}, stats)

	stats, err = p.qa.Stats(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, &domain.UserStats{}, stats)

	_, err = p.qa.Stats(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
