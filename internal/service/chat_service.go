package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"studymate-be/internal/constant"
	"studymate-be/internal/dto"
	"studymate-be/internal/mapper"
	"studymate-be/internal/pkg/logger"
	"studymate-be/internal/pkg/monitoring"
	"studymate-be/pkg/apperr"
	"studymate-be/pkg/llm"
	"studymate-be/pkg/rag/prompt"
	"studymate-be/pkg/rag/session"
	"studymate-be/pkg/store"
)

// ErrStreamAborted reports that the caller went away before the answer completed.
// Nothing was persisted.
var ErrStreamAborted = errors.New("stream aborted by client")

// FragmentFunc receives each piece of a streamed answer. Returning an error means the
// receiver is gone.
type FragmentFunc func(fragment string) error

type ChatSettings struct {
	ContextMaxChars  int
	InferenceTimeout time.Duration
}

type IChatService interface {
	// ResolveBook returns bookID when set, otherwise the session's current book.
	ResolveBook(ctx context.Context, sid string, bookID string) (string, error)
	CompleteTurn(ctx context.Context, sid string, bookID string, question string) (*dto.AskResponse, error)
	StreamTurn(ctx context.Context, sid string, bookID string, question string, onFragment FragmentFunc) (*dto.AskResponse, error)
	GetTranscript(ctx context.Context, sid string) (*dto.TranscriptResponse, error)
}

type chatService struct {
	sessions    *SessionStore
	manager     *session.Manager
	llmProvider llm.LLMProvider
	mapper      *mapper.BookMapper
	settings    ChatSettings
	logger      logger.ILogger
	llmLogger   logger.ILogger
	metrics     *monitoring.Metrics
}

func NewChatService(
	sessions *SessionStore,
	manager *session.Manager,
	llmProvider llm.LLMProvider,
	settings ChatSettings,
	log logger.ILogger,
	llmLogger logger.ILogger,
	metrics *monitoring.Metrics,
) IChatService {
	if settings.InferenceTimeout <= 0 {
		settings.InferenceTimeout = 60 * time.Second
	}
	return &chatService{
		sessions:    sessions,
		manager:     manager,
		llmProvider: llmProvider,
		mapper:      mapper.NewBookMapper(),
		settings:    settings,
		logger:      log,
		llmLogger:   llmLogger,
		metrics:     metrics,
	}
}

func (cs *chatService) ResolveBook(ctx context.Context, sid string, bookID string) (string, error) {
	sess, err := cs.sessions.load(ctx, sid)
	if err != nil {
		return "", err
	}
	book, err := cs.lookup(sess, bookID)
	if err != nil {
		return "", err
	}
	return book.ID, nil
}

func (cs *chatService) lookup(sess *store.Session, bookID string) (*store.BookRecord, error) {
	if bookID == "" {
		return cs.manager.GetCurrent(sess)
	}
	book, ok := sess.BookHistory[bookID]
	if !ok {
		return nil, apperr.NotFound("book " + bookID + " not found")
	}
	return book, nil
}

// buildPrompt snapshots the session and renders the tutor prompt for one question.
func (cs *chatService) buildPrompt(ctx context.Context, sid string, bookID string, question string) (*store.BookRecord, string, error) {
	sess, err := cs.sessions.load(ctx, sid)
	if err != nil {
		return nil, "", err
	}
	book, err := cs.lookup(sess, bookID)
	if err != nil {
		return nil, "", err
	}
	window, err := cs.manager.BuildContextWindow(sess, book.ID, cs.settings.ContextMaxChars)
	if err != nil {
		return nil, "", err
	}

	p := prompt.NewTutorBuilder(book.OriginalName, window, question).Build()
	cs.llmLogger.Debug(constant.ModuleChat, "Prompt built", map[string]interface{}{
		"session_id":  sid,
		"book_id":     book.ID,
		"window_len":  len([]rune(window)),
		"prompt_text": p,
	})
	return book, p, nil
}

func (cs *chatService) CompleteTurn(ctx context.Context, sid string, bookID string, question string) (*dto.AskResponse, error) {
	book, p, err := cs.buildPrompt(ctx, sid, bookID, question)
	if err != nil {
		return nil, err
	}

	inferCtx, cancel := context.WithTimeout(ctx, cs.settings.InferenceTimeout)
	defer cancel()

	start := time.Now()
	answer, err := cs.llmProvider.Generate(inferCtx, p)
	turn := store.Turn{Question: question, Answer: answer, Status: store.TurnStatusOK}
	if err != nil {
		err = llm.ClassifyError(inferCtx, "blocking inference failed", err)
		cs.recordInference("blocking", monitoring.OutcomeDegraded, start)
		cs.logger.Error(constant.ModuleChat, "Inference failed, answering with placeholder", map[string]interface{}{
			"session_id": sid,
			"book_id":    book.ID,
			"kind":       string(apperr.KindOf(err)),
			"error":      err,
		})
		turn.Answer = constant.PlaceholderAnswer
		turn.Status = store.TurnStatusDegraded
	} else {
		cs.recordInference("blocking", monitoring.OutcomeOK, start)
	}

	if err := cs.persistTurn(ctx, sid, book.ID, &turn); err != nil {
		return nil, err
	}
	cs.llmLogger.Debug(constant.ModuleChat, "Answer recorded", map[string]interface{}{
		"book_id": book.ID,
		"status":  turn.Status,
		"answer":  turn.Answer,
	})

	return &dto.AskResponse{
		BookId:   book.ID,
		Turn:     cs.mapper.TurnToResponse(turn),
		Degraded: turn.Status == store.TurnStatusDegraded,
	}, nil
}

// StreamTurn forwards fragments as they arrive and records the turn only once the source has
// signalled completion. A receiver error or cancellation of ctx discards the partial answer.
func (cs *chatService) StreamTurn(ctx context.Context, sid string, bookID string, question string, onFragment FragmentFunc) (*dto.AskResponse, error) {
	book, p, err := cs.buildPrompt(ctx, sid, bookID, question)
	if err != nil {
		return nil, err
	}

	inferCtx, cancel := context.WithTimeout(ctx, cs.settings.InferenceTimeout)
	defer cancel()

	var accumulated strings.Builder
	receiverGone := false

	start := time.Now()
	_, err = cs.llmProvider.GenerateStream(inferCtx, p, func(token string) error {
		accumulated.WriteString(token)
		if ferr := onFragment(token); ferr != nil {
			receiverGone = true
			return ferr
		}
		return nil
	})

	if receiverGone || ctx.Err() != nil {
		cs.recordInference("stream", monitoring.OutcomeFailed, start)
		cs.logger.Warn(constant.ModuleChat, "Client left mid-stream, discarding partial answer", map[string]interface{}{
			"session_id":    sid,
			"book_id":       book.ID,
			"partial_chars": accumulated.Len(),
		})
		return nil, ErrStreamAborted
	}

	turn := store.Turn{Question: question, Answer: accumulated.String(), Status: store.TurnStatusOK}
	if err != nil {
		err = llm.ClassifyError(inferCtx, "streaming inference failed", err)
		cs.recordInference("stream", monitoring.OutcomeDegraded, start)
		cs.logger.Error(constant.ModuleChat, "Streaming inference failed, answering with placeholder", map[string]interface{}{
			"session_id":    sid,
			"book_id":       book.ID,
			"kind":          string(apperr.KindOf(err)),
			"partial_chars": accumulated.Len(),
			"error":         err,
		})
		if ferr := onFragment(constant.PlaceholderAnswer); ferr != nil {
			return nil, ErrStreamAborted
		}
		turn.Answer = constant.PlaceholderAnswer
		turn.Status = store.TurnStatusDegraded
	} else {
		cs.recordInference("stream", monitoring.OutcomeOK, start)
	}

	if err := cs.persistTurn(ctx, sid, book.ID, &turn); err != nil {
		return nil, err
	}

	return &dto.AskResponse{
		BookId:   book.ID,
		Turn:     cs.mapper.TurnToResponse(turn),
		Degraded: turn.Status == store.TurnStatusDegraded,
	}, nil
}

// persistTurn appends to the freshest stored session, not the snapshot the prompt was built
// from, so changes made while inference was running survive.
func (cs *chatService) persistTurn(ctx context.Context, sid string, bookID string, turn *store.Turn) error {
	_, err := cs.sessions.update(ctx, sid, func(s *store.Session) error {
		if err := cs.manager.AppendTurn(s, bookID, *turn); err != nil {
			return err
		}
		history := s.BookHistory[bookID].ChatHistory
		*turn = history[len(history)-1]
		return nil
	})
	if err != nil {
		cs.logger.Warn(constant.ModuleChat, "Turn not recorded", map[string]interface{}{
			"session_id": sid,
			"book_id":    bookID,
			"error":      err,
		})
	}
	return err
}

func (cs *chatService) GetTranscript(ctx context.Context, sid string) (*dto.TranscriptResponse, error) {
	sess, err := cs.sessions.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	book, err := cs.manager.GetCurrent(sess)
	if err != nil {
		return nil, err
	}
	return cs.mapper.TranscriptToResponse(book, sess.CurrentBook), nil
}

func (cs *chatService) recordInference(mode, outcome string, start time.Time) {
	cs.metrics.RecordInference(cs.llmProvider.Name(), mode, outcome, time.Since(start))
}
