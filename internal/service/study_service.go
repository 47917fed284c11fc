package service

import (
	"context"
	"fmt"
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

type IStudyService interface {
	Summary(ctx context.Context, sid string) (*dto.StudyResponse, error)
	Flashcards(ctx context.Context, sid string) (*dto.StudyResponse, error)
	Quiz(ctx context.Context, sid string) (*dto.StudyResponse, error)
	// SpokenSummary returns plain text meant for speech synthesis
	SpokenSummary(ctx context.Context, sid string) (*dto.StudyResponse, error)
}

// studyService runs fixed prompts over the current book's text. Nothing it produces is
// recorded as a turn.
type studyService struct {
	sessions    *SessionStore
	manager     *session.Manager
	llmProvider llm.LLMProvider
	mapper      *mapper.BookMapper
	settings    ChatSettings
	logger      logger.ILogger
	metrics     *monitoring.Metrics
}

func NewStudyService(
	sessions *SessionStore,
	manager *session.Manager,
	llmProvider llm.LLMProvider,
	settings ChatSettings,
	log logger.ILogger,
	metrics *monitoring.Metrics,
) IStudyService {
	if settings.InferenceTimeout <= 0 {
		settings.InferenceTimeout = 60 * time.Second
	}
	return &studyService{
		sessions:    sessions,
		manager:     manager,
		llmProvider: llmProvider,
		mapper:      mapper.NewBookMapper(),
		settings:    settings,
		logger:      log,
		metrics:     metrics,
	}
}

func (ss *studyService) Summary(ctx context.Context, sid string) (*dto.StudyResponse, error) {
	return ss.run(ctx, sid, dto.StudyKindSummary, func(book *store.BookRecord) string {
		return fmt.Sprintf(constant.SummaryPrompt, book.OriginalName)
	}, true)
}

func (ss *studyService) Flashcards(ctx context.Context, sid string) (*dto.StudyResponse, error) {
	return ss.run(ctx, sid, dto.StudyKindFlashcards, func(*store.BookRecord) string {
		return constant.FlashcardsPrompt
	}, true)
}

func (ss *studyService) Quiz(ctx context.Context, sid string) (*dto.StudyResponse, error) {
	return ss.run(ctx, sid, dto.StudyKindQuiz, func(*store.BookRecord) string {
		return constant.QuizPrompt
	}, true)
}

func (ss *studyService) SpokenSummary(ctx context.Context, sid string) (*dto.StudyResponse, error) {
	return ss.run(ctx, sid, "spoken_summary", func(*store.BookRecord) string {
		return constant.SpokenSummaryPrompt
	}, false)
}

func (ss *studyService) run(ctx context.Context, sid string, kind string, task func(*store.BookRecord) string, html bool) (*dto.StudyResponse, error) {
	sess, err := ss.sessions.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	book, err := ss.manager.GetCurrent(sess)
	if err != nil {
		return nil, err
	}

	// Turns are left out on purpose: derived artifacts describe the book, not the conversation
	window := session.Truncate(book.ExtractedText, ss.settings.ContextMaxChars)
	p := prompt.NewTutorBuilder(book.OriginalName, window, task(book)).Build()

	inferCtx, cancel := context.WithTimeout(ctx, ss.settings.InferenceTimeout)
	defer cancel()

	start := time.Now()
	content, err := ss.llmProvider.Generate(inferCtx, p)
	res := &dto.StudyResponse{BookId: book.ID, Title: book.OriginalName, Kind: kind}
	if err != nil {
		err = llm.ClassifyError(inferCtx, kind+" generation failed", err)
		ss.metrics.RecordInference(ss.llmProvider.Name(), kind, monitoring.OutcomeDegraded, time.Since(start))
		ss.logger.Error(constant.ModuleStudy, "Study generation failed, answering with placeholder", map[string]interface{}{
			"session_id": sid,
			"book_id":    book.ID,
			"study_kind": kind,
			"kind":       string(apperr.KindOf(err)),
			"error":      err,
		})
		res.Content = constant.PlaceholderAnswer
		res.Degraded = true
		return res, nil
	}
	ss.metrics.RecordInference(ss.llmProvider.Name(), kind, monitoring.OutcomeOK, time.Since(start))

	if html {
		content = ss.mapper.SanitizeHTML(content)
	}
	res.Content = content
	return res, nil
}
