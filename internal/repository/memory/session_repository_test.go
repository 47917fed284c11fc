package memory

import (
	"context"
	"testing"
	"time"

	"studymate-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(time.Hour)

	_, found, err := repo.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	s := store.NewSession("sess-1", time.Now())
	s.BookHistory["b1"] = &store.BookRecord{ID: "b1", OriginalName: "intro.pdf"}
	require.NoError(t, repo.Save(ctx, s))

	got, found, err := repo.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "intro.pdf", got.BookHistory["b1"].OriginalName)

	require.NoError(t, repo.Delete(ctx, "sess-1"))
	_, found, _ = repo.Get(ctx, "sess-1")
	assert.False(t, found)
}

func TestSessionRepository_IsolatesCallerMutations(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(time.Hour)

	s := store.NewSession("sess-2", time.Now())
	require.NoError(t, repo.Save(ctx, s))

	s.RecentBooks = append(s.RecentBooks, "unsaved")

	got, _, _ := repo.Get(ctx, "sess-2")
	assert.Empty(t, got.RecentBooks)

	got.RecentBooks = append(got.RecentBooks, "also-unsaved")
	again, _, _ := repo.Get(ctx, "sess-2")
	assert.Empty(t, again.RecentBooks)
}
