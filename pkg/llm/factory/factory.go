package factory

import (
	"fmt"

	"studymate-be/pkg/llm"
	"studymate-be/pkg/llm/ollama"
	"studymate-be/pkg/llm/openrouter"
)

type Settings struct {
	Provider      string // "ollama" | "openrouter"
	Model         string
	OllamaBaseURL string
	RouterBaseURL string
	RouterAPIKey  string
}

func NewLLMProvider(s Settings) (llm.LLMProvider, error) {
	switch s.Provider {
	case "ollama", "":
		baseURL := s.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, s.Model), nil
	case "openrouter":
		if s.RouterAPIKey == "" {
			return nil, fmt.Errorf("openrouter provider requires an API key")
		}
		return openrouter.NewOpenRouterProvider(s.RouterBaseURL, s.RouterAPIKey, s.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", s.Provider)
	}
}
