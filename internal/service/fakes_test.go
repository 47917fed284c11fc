package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"studymate-be/internal/pkg/logger"
	"studymate-be/internal/pkg/monitoring"
	"studymate-be/internal/repository/filestore"
	"studymate-be/internal/repository/memory"
	"studymate-be/pkg/llm"
	"studymate-be/pkg/rag/session"

	"github.com/stretchr/testify/require"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(string, int) (string, error) {
	return f.text, f.err
}

// fakeLLM replays tokens. failAfter >= 0 makes it fail once that many tokens were sent.
type fakeLLM struct {
	mu        sync.Mutex
	tokens    []string
	err       error
	failAfter int
	hang      bool
	prompts   []string
}

func newFakeLLM(tokens ...string) *fakeLLM {
	return &fakeLLM{tokens: tokens, failAfter: -1}
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.GenerateStream(ctx, prompt, nil, options...)
}

func (f *fakeLLM) GenerateStream(ctx context.Context, prompt string, onToken llm.TokenFunc, _ ...llm.Option) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil && f.failAfter < 0 {
		return "", f.err
	}

	out := ""
	for i, tok := range f.tokens {
		if i == f.failAfter {
			return out, f.err
		}
		out += tok
		if onToken != nil {
			if err := onToken(tok); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

var errBackendDown = errors.New("connection refused")

type testEnv struct {
	repo     *memory.SessionRepository
	sessions *SessionStore
	uploads  *filestore.UploadStore
	manager  *session.Manager
	metrics  *monitoring.Metrics
	log      logger.ILogger
}

func newTestEnv(t *testing.T, text string) *testEnv {
	t.Helper()
	return newTestEnvWithExtractor(t, &fakeExtractor{text: text})
}

func newTestEnvWithExtractor(t *testing.T, extractor session.Extractor) *testEnv {
	t.Helper()
	uploads, err := filestore.NewUploadStore(t.TempDir())
	require.NoError(t, err)

	log := logger.NewNopLogger()
	metrics := monitoring.NewMetrics()
	repo := memory.NewSessionRepository(time.Hour)
	return &testEnv{
		repo:     repo,
		sessions: NewSessionStore(repo, log, metrics),
		uploads:  uploads,
		manager:  session.NewManager(extractor, uploads, log),
		metrics:  metrics,
		log:      log,
	}
}

func (e *testEnv) bookService() IBookService {
	return NewBookService(e.sessions, e.manager, e.uploads, e.log, e.metrics)
}

func (e *testEnv) chatService(provider llm.LLMProvider, timeout time.Duration) IChatService {
	return NewChatService(e.sessions, e.manager, provider, ChatSettings{ContextMaxChars: 3500, InferenceTimeout: timeout}, e.log, e.log, e.metrics)
}

func (e *testEnv) studyService(provider llm.LLMProvider) IStudyService {
	return NewStudyService(e.sessions, e.manager, provider, ChatSettings{ContextMaxChars: 3500, InferenceTimeout: time.Second}, e.log, e.metrics)
}
