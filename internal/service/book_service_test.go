package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"studymate-be/internal/repository/filestore"
	"studymate-be/internal/repository/memory"
	"studymate-be/pkg/apperr"
	"studymate-be/pkg/rag/session"
	"studymate-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookService_UploadListCurrent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "Chapter 1. Cells.")
	svc := env.bookService()

	first, err := svc.Upload(ctx, "sid", pdfBytes, "intro.pdf")
	require.NoError(t, err)
	assert.True(t, first.IsCurrent)
	assert.Equal(t, 0, first.TurnCount)

	second, err := svc.Upload(ctx, "sid", pdfBytes, "intro.pdf")
	require.NoError(t, err)
	assert.NotEqual(t, first.Id, second.Id)

	list, err := svc.List(ctx, "sid")
	require.NoError(t, err)
	assert.Len(t, list.Books, 2)
	require.NotNil(t, list.CurrentBookId)
	assert.Equal(t, second.Id, *list.CurrentBookId)
	assert.Equal(t, []string{second.Id, first.Id}, list.RecentBooks)

	current, err := svc.Current(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, second.Id, current.Id)
}

func TestBookService_RejectedUploadLeavesSessionUntouched(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "text")
	svc := env.bookService()

	_, err := svc.Upload(ctx, "sid", []byte("hello"), "notes.txt")
	assert.True(t, apperr.Is(err, apperr.KindInvalidUpload))

	_, found, _ := env.repo.Get(ctx, "sid")
	assert.False(t, found)
}

func TestBookService_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "text")
	svc := env.bookService()

	_, err := svc.Upload(ctx, "alice", pdfBytes, "a.pdf")
	require.NoError(t, err)

	list, err := svc.List(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, list.Books)
	assert.Nil(t, list.CurrentBookId)

	_, err = svc.Current(ctx, "bob")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestBookService_SwitchDeleteReconcile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "text")
	svc := env.bookService()

	a, err := svc.Upload(ctx, "sid", pdfBytes, "a.pdf")
	require.NoError(t, err)
	b, err := svc.Upload(ctx, "sid", pdfBytes, "b.pdf")
	require.NoError(t, err)

	switched, err := svc.Switch(ctx, "sid", a.Id)
	require.NoError(t, err)
	assert.True(t, switched.IsCurrent)

	_, err = svc.Switch(ctx, "sid", "20000101_000000.000000_ghost.pdf")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, svc.Delete(ctx, "sid", a.Id))
	_, err = svc.Current(ctx, "sid")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	// file vanishes behind the session's back
	require.NoError(t, env.uploads.Remove(b.Id))
	res, err := svc.Reconcile(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, []string{b.Id}, res.Removed)

	res, err = svc.Reconcile(ctx, "sid")
	require.NoError(t, err)
	assert.Empty(t, res.Removed)
}

func TestBookService_SwitchReimportsFromStorage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "text")
	svc := env.bookService()

	book, err := svc.Upload(ctx, "alice", pdfBytes, "shared.pdf")
	require.NoError(t, err)

	// a different session knows the id but has no record of it
	res, err := svc.Switch(ctx, "bob", book.Id)
	require.NoError(t, err)
	assert.Equal(t, "shared.pdf", res.Title)
	assert.True(t, res.IsCurrent)
}

func TestBookService_ClearUnknownBook(t *testing.T) {
	env := newTestEnv(t, "text")
	err := env.bookService().Clear(context.Background(), "sid", "nope")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

type flakySessionRepo struct {
	*memory.SessionRepository
	failSave bool
}

func (r *flakySessionRepo) Save(ctx context.Context, s *store.Session) error {
	if r.failSave {
		return errors.New("redis: connection reset by peer")
	}
	return r.SessionRepository.Save(ctx, s)
}

type stuckUploads struct {
	*filestore.UploadStore
}

func (stuckUploads) Remove(string) error {
	return errors.New("permission denied")
}

func TestBookService_DeleteKeepsFileWhenSessionSaveFails(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "text")
	repo := &flakySessionRepo{SessionRepository: env.repo}
	svc := NewBookService(NewSessionStore(repo, env.log, env.metrics), env.manager, env.uploads, env.log, env.metrics)

	book, err := svc.Upload(ctx, "sid", pdfBytes, "a.pdf")
	require.NoError(t, err)

	repo.failSave = true
	err = svc.Delete(ctx, "sid", book.Id)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
	assert.True(t, env.uploads.Exists(book.Id))

	repo.failSave = false
	current, err := svc.Current(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, book.Id, current.Id)
}

func TestBookService_DeleteRestoresRecordWhenFileRemovalFails(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "text")
	manager := session.NewManager(&fakeExtractor{text: "text"}, stuckUploads{env.uploads}, env.log)
	svc := NewBookService(env.sessions, manager, env.uploads, env.log, env.metrics)

	book, err := svc.Upload(ctx, "sid", pdfBytes, "a.pdf")
	require.NoError(t, err)

	err = svc.Delete(ctx, "sid", book.Id)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
	assert.True(t, env.uploads.Exists(book.Id))

	list, err := svc.List(ctx, "sid")
	require.NoError(t, err)
	require.Len(t, list.Books, 1)
	require.NotNil(t, list.CurrentBookId)
	assert.Equal(t, book.Id, *list.CurrentBookId)
	assert.Equal(t, []string{book.Id}, list.RecentBooks)
}

func TestBookService_FailedExtractionCanBeRetried(t *testing.T) {
	ctx := context.Background()
	ext := &fakeExtractor{err: errors.New("xref table truncated")}
	env := newTestEnvWithExtractor(t, ext)
	svc := env.bookService()

	_, err := svc.Upload(ctx, "sid", pdfBytes, "scan.pdf")
	require.True(t, apperr.Is(err, apperr.KindExtractionFailed))

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	bookID := appErr.Details["book_id"]
	require.NotEmpty(t, bookID)
	assert.True(t, env.uploads.Exists(bookID))

	ext.err = nil
	ext.text = "Recovered text."
	book, err := svc.Switch(ctx, "sid", bookID)
	require.NoError(t, err)
	assert.Equal(t, bookID, book.Id)
	assert.True(t, book.IsCurrent)
}

func TestBookService_UploadWithVeryLongName(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "text")
	name := strings.Repeat("chapter-", 40) + ".pdf"

	book, err := env.bookService().Upload(ctx, "sid", pdfBytes, name)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(book.Id), 255)
	assert.True(t, strings.HasSuffix(book.Id, ".pdf"))
	assert.True(t, env.uploads.Exists(book.Id))
	assert.Equal(t, name, book.Title)
}
