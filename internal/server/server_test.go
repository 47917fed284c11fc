package server

import (
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"studymate-be/internal/bootstrap"
	"studymate-be/internal/config"
	"studymate-be/internal/constant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		App: config.AppConfig{
			Port:               "0",
			Environment:        "test",
			LogFilePath:        filepath.Join(dir, "app.log"),
			LLMLogFilePath:     filepath.Join(dir, "llm.log"),
			CorsAllowedOrigins: "http://localhost:5173",
			UploadDir:          filepath.Join(dir, "uploads"),
			AudioDir:           filepath.Join(dir, "audio"),
			SessionStore:       "memory",
			SessionSecret:      "test-secret",
			SessionTTL:         time.Hour,
			BodyLimitMB:        1,
		},
		Ai: config.AIConfig{
			LLMProvider:      "ollama",
			LLMModel:         "llama3",
			OllamaBaseURL:    "http://127.0.0.1:1",
			InferenceTimeout: time.Second,
			ContextMaxChars:  3500,
			RecentTurns:      4,
			MaxPages:         100,
		},
		Speech: config.SpeechConfig{AssumedChunks: 10, JobTimeout: time.Second},
	}
}

func TestServer_HealthMetricsAndSessionCookie(t *testing.T) {
	container, err := bootstrap.NewContainer(testConfig(t))
	require.NoError(t, err)
	defer container.Close()

	app := New(testConfig(t), container).GetApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/books", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	found := false
	for _, c := range resp.Cookies() {
		found = found || c.Name == constant.SessionCookieName
	}
	assert.True(t, found)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/books/current", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), "studymate_http_requests_total"))
}

func TestServer_UnknownSessionStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.App.SessionStore = "memcached"

	_, err := bootstrap.NewContainer(cfg)
	assert.ErrorContains(t, err, "unsupported SESSION_STORE")
}
