package service

import (
	"context"

	"studymate-be/internal/constant"
	"studymate-be/internal/dto"
	"studymate-be/internal/mapper"
	"studymate-be/internal/pkg/logger"
	"studymate-be/internal/pkg/monitoring"
	"studymate-be/pkg/apperr"
	"studymate-be/pkg/rag/session"
	"studymate-be/pkg/store"
)

// BookLister enumerates the ids of every stored upload
type BookLister interface {
	List() (map[string]struct{}, error)
}

type IBookService interface {
	Upload(ctx context.Context, sid string, data []byte, originalName string) (*dto.BookResponse, error)
	List(ctx context.Context, sid string) (*dto.BookListResponse, error)
	Current(ctx context.Context, sid string) (*dto.BookResponse, error)
	Switch(ctx context.Context, sid string, bookID string) (*dto.BookResponse, error)
	Delete(ctx context.Context, sid string, bookID string) error
	Clear(ctx context.Context, sid string, bookID string) error
	Reconcile(ctx context.Context, sid string) (*dto.ReconcileResponse, error)
}

type bookService struct {
	sessions *SessionStore
	manager  *session.Manager
	files    BookLister
	mapper   *mapper.BookMapper
	logger   logger.ILogger
	metrics  *monitoring.Metrics
}

func NewBookService(
	sessions *SessionStore,
	manager *session.Manager,
	files BookLister,
	log logger.ILogger,
	metrics *monitoring.Metrics,
) IBookService {
	return &bookService{
		sessions: sessions,
		manager:  manager,
		files:    files,
		mapper:   mapper.NewBookMapper(),
		logger:   log,
		metrics:  metrics,
	}
}

func (bs *bookService) Upload(ctx context.Context, sid string, data []byte, originalName string) (*dto.BookResponse, error) {
	var book *store.BookRecord
	sess, err := bs.sessions.update(ctx, sid, func(s *store.Session) error {
		var err error
		book, err = bs.manager.RegisterUpload(s, data, originalName)
		return err
	})
	if err != nil {
		bs.metrics.RecordUpload(monitoring.OutcomeFailed)
		bs.logger.Warn(constant.ModuleBook, "Upload rejected", map[string]interface{}{
			"session_id": sid,
			"file_name":  originalName,
			"kind":       string(apperr.KindOf(err)),
			"error":      err.Error(),
		})
		return nil, err
	}

	bs.metrics.RecordUpload(monitoring.OutcomeOK)
	bs.logger.Info(constant.ModuleBook, "Book uploaded", map[string]interface{}{
		"session_id": sid,
		"book_id":    book.ID,
		"size_bytes": len(data),
	})
	return bs.mapper.BookToResponse(book, sess.CurrentBook), nil
}

func (bs *bookService) List(ctx context.Context, sid string) (*dto.BookListResponse, error) {
	sess, err := bs.sessions.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	return bs.mapper.ListToResponse(bs.manager.ListBooks(sess), sess), nil
}

func (bs *bookService) Current(ctx context.Context, sid string) (*dto.BookResponse, error) {
	sess, err := bs.sessions.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	book, err := bs.manager.GetCurrent(sess)
	if err != nil {
		return nil, err
	}
	return bs.mapper.BookToResponse(book, sess.CurrentBook), nil
}

func (bs *bookService) Switch(ctx context.Context, sid string, bookID string) (*dto.BookResponse, error) {
	var book *store.BookRecord
	sess, err := bs.sessions.update(ctx, sid, func(s *store.Session) error {
		var err error
		book, err = bs.manager.SwitchCurrent(s, bookID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bs.mapper.BookToResponse(book, sess.CurrentBook), nil
}

// Delete stores the session without the book before removing its file. If the file cannot be
// removed the record is put back, so the two never disagree.
func (bs *bookService) Delete(ctx context.Context, sid string, bookID string) error {
	_, err := bs.sessions.updateAndCommit(ctx, sid, func(s *store.Session) error {
		bs.manager.ForgetBook(s, bookID)
		return nil
	}, func() error {
		return bs.manager.RemoveUpload(bookID)
	})
	if err != nil {
		bs.logger.Error(constant.ModuleBook, "Failed to delete book", map[string]interface{}{
			"session_id": sid,
			"book_id":    bookID,
			"error":      err,
		})
		return err
	}
	bs.logger.Info(constant.ModuleBook, "Book deleted", map[string]interface{}{"session_id": sid, "book_id": bookID})
	return nil
}

func (bs *bookService) Clear(ctx context.Context, sid string, bookID string) error {
	_, err := bs.sessions.update(ctx, sid, func(s *store.Session) error {
		return bs.manager.ClearHistory(s, bookID)
	})
	return err
}

func (bs *bookService) Reconcile(ctx context.Context, sid string) (*dto.ReconcileResponse, error) {
	existing, err := bs.files.List()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list stored books", err)
	}

	var removed []string
	_, err = bs.sessions.update(ctx, sid, func(s *store.Session) error {
		removed = bs.manager.ReconcileWithStorage(s, existing)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(removed) > 0 {
		bs.logger.Info(constant.ModuleBook, "Dropped books without backing files", map[string]interface{}{
			"session_id": sid,
			"removed":    removed,
		})
	}
	return &dto.ReconcileResponse{Status: "cleaned", Removed: removed}, nil
}
