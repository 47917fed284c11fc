package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"studymate-be/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_ReturnsFirstChoice(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"mistralai/mistral-7b-instruct",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"<b>Cells</b>"}}]}`)
	}))
	defer srv.Close()

	p := NewOpenRouterProvider(srv.URL, "test-key", "mistralai/mistral-7b-instruct")
	answer, err := p.Generate(context.Background(), "What is chapter 1 about?")

	require.NoError(t, err)
	assert.Equal(t, "<b>Cells</b>", answer)
	assert.Equal(t, "mistralai/mistral-7b-instruct", body["model"])
	assert.Equal(t, "openrouter", p.Name())
}

func TestGenerateStream_YieldsDeltas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, piece := range []string{"Hel", "lo"} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", piece)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	var fragments []string
	p := NewOpenRouterProvider(srv.URL, "k", "m")
	full, err := p.GenerateStream(context.Background(), "hi", func(token string) error {
		fragments = append(fragments, token)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, fragments)
	assert.Equal(t, "Hello", full)
}

func TestGenerate_HTTPErrorIsInferenceFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid key","type":"auth"}}`)
	}))
	defer srv.Close()

	_, err := NewOpenRouterProvider(srv.URL, "bad", "m").Generate(context.Background(), "hi")

	assert.True(t, apperr.Is(err, apperr.KindInferenceFailed), "got %v", err)
}
