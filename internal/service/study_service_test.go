package service

import (
	"context"
	"testing"

	"studymate-be/internal/constant"
	"studymate-be/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudyService_SummaryUsesFixedPromptAndSkipsTurns(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "Ecology basics.")
	provider := newFakeLLM("<h3>Summary</h3>")
	study := env.studyService(provider)

	book, err := env.bookService().Upload(ctx, "sid", pdfBytes, "eco.pdf")
	require.NoError(t, err)
	_, err = env.chatService(newFakeLLM("earlier answer"), 0).CompleteTurn(ctx, "sid", book.Id, "earlier question")
	require.NoError(t, err)

	res, err := study.Summary(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "<h3>Summary</h3>", res.Content)
	assert.False(t, res.Degraded)

	p := provider.lastPrompt()
	assert.Contains(t, p, "Summarize the book 'eco.pdf'")
	assert.Contains(t, p, "Ecology basics.")
	assert.NotContains(t, p, "earlier question")

	// derived artifacts are never recorded as turns
	assert.Len(t, storedTurns(t, env, "sid", book.Id), 1)
}

func TestStudyService_DegradesOnFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "text")
	provider := newFakeLLM()
	provider.err = errBackendDown
	study := env.studyService(provider)

	_, err := env.bookService().Upload(ctx, "sid", pdfBytes, "a.pdf")
	require.NoError(t, err)

	res, err := study.Quiz(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, constant.PlaceholderAnswer, res.Content)

	res, err = study.Flashcards(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
}

func TestStudyService_NoCurrentBook(t *testing.T) {
	env := newTestEnv(t, "text")
	_, err := env.studyService(newFakeLLM("x")).Summary(context.Background(), "sid")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
