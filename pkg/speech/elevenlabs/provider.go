package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studymate-be/pkg/apperr"
	"studymate-be/pkg/speech"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModel   = "eleven_multilingual_v2"
	chunkSize      = 4096
)

type Provider struct {
	APIKey       string
	BaseURL      string
	ModelID      string
	DefaultVoice string
	HTTPClient   *http.Client
}

var _ speech.Provider = &Provider{}

func NewProvider(baseURL, apiKey, defaultVoice string) *Provider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{
		APIKey:       strings.TrimSpace(apiKey),
		BaseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		ModelID:      defaultModel,
		DefaultVoice: strings.TrimSpace(defaultVoice),
		// No client timeout: long texts stream for minutes, the caller's context bounds it
		HTTPClient: &http.Client{Transport: &http.Transport{ResponseHeaderTimeout: 60 * time.Second}},
	}
}

type synthesizeRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

// Synthesize streams audio/mpeg from the /stream endpoint, forwarding each read as a chunk.
func (p *Provider) Synthesize(ctx context.Context, text, voice string, onChunk speech.ChunkFunc) error {
	if p.APIKey == "" {
		return apperr.New(apperr.KindSynthesisFailed, "missing ElevenLabs API key")
	}

	voice = strings.TrimSpace(voice)
	if voice == "" {
		voice = p.DefaultVoice
	}
	if voice == "" {
		return apperr.New(apperr.KindSynthesisFailed, "voice is required")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return apperr.New(apperr.KindSynthesisFailed, "text is required")
	}

	payload, err := json.Marshal(synthesizeRequest{Text: text, ModelID: p.ModelID})
	if err != nil {
		return apperr.Wrap(apperr.KindSynthesisFailed, "failed to marshal TTS request", err)
	}

	reqURL := p.BaseURL + "/v1/text-to-speech/" + url.PathEscape(voice) + "/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return apperr.Wrap(apperr.KindSynthesisFailed, "failed to build TTS request", err)
	}
	req.Header.Set("xi-api-key", p.APIKey)
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindSynthesisFailed, "tts request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		message := strings.TrimSpace(string(body))
		if message == "" {
			message = fmt.Sprintf("elevenlabs tts returned status %d", resp.StatusCode)
		}
		return mapStatusError(resp.StatusCode, message)
	}

	buf := make([]byte, chunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if err := onChunk(chunk); err != nil {
				return err
			}
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return apperr.Wrap(apperr.KindSynthesisFailed, "failed to read TTS stream", readErr)
		}
	}
}

func mapStatusError(statusCode int, message string) error {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return apperr.New(apperr.KindSynthesisFailed, "elevenlabs auth: "+message)
	case statusCode == http.StatusTooManyRequests:
		return apperr.New(apperr.KindSynthesisFailed, "elevenlabs rate limit: "+message)
	default:
		return apperr.New(apperr.KindSynthesisFailed, fmt.Sprintf("elevenlabs status %d: %s", statusCode, message))
	}
}
