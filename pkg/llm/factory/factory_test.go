package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		wantName string
		wantErr  bool
	}{
		{name: "ollama default", settings: Settings{Provider: "ollama", Model: "granite3.3:2b"}, wantName: "ollama"},
		{name: "empty means ollama", settings: Settings{Model: "m"}, wantName: "ollama"},
		{name: "openrouter", settings: Settings{Provider: "openrouter", Model: "m", RouterAPIKey: "k"}, wantName: "openrouter"},
		{name: "openrouter without key", settings: Settings{Provider: "openrouter", Model: "m"}, wantErr: true},
		{name: "unknown", settings: Settings{Provider: "gpt-local"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewLLMProvider(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}
