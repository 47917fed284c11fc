package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studymate-be/pkg/apperr"
	"studymate-be/pkg/llm"

	"github.com/hashicorp/go-retryablehttp"
)

const generateEndpoint = "/api/generate"

type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

// Ensure OllamaProvider implements LLMProvider
var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	// Retries only cover connection errors and 5xx before any body is read;
	// the per-call deadline comes from the caller's context.
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil

	return &OllamaProvider{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		ModelName: modelName,
		Client:    retryClient.StandardClient(),
	}
}

// --- Request/Response structs (Internal to this package) ---

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// One line of the newline-delimited JSON stream
type ollamaGenerateChunk struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// --- Interface Implementation ---

func (o *OllamaProvider) Name() string {
	return "ollama"
}

// Generate concatenates the streamed fragments before returning.
func (o *OllamaProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return o.GenerateStream(ctx, prompt, nil, opts...)
}

func (o *OllamaProvider) GenerateStream(ctx context.Context, prompt string, onToken llm.TokenFunc, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(opts...)

	model := o.ModelName
	if options.Model != "" {
		model = options.Model
	}

	reqPayload := ollamaGenerateRequest{
		Model:  model,
		Prompt: prompt,
		System: options.System,
		Stream: true,
		Options: &ollamaOptions{
			Temperature: options.Temperature,
		},
	}
	if options.MaxTokens > 0 {
		reqPayload.Options.NumPredict = options.MaxTokens
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInferenceFailed, "marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+generateEndpoint, bytes.NewReader(payloadBytes))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInferenceFailed, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return "", llm.ClassifyError(ctx, "ollama request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", apperr.New(apperr.KindInferenceFailed,
			fmt.Sprintf("ollama error: status %d, body: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))))
	}

	var output strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk ollamaGenerateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return output.String(), apperr.Wrap(apperr.KindInferenceFailed, "decode stream fragment", err)
		}
		if chunk.Error != "" {
			return output.String(), apperr.New(apperr.KindInferenceFailed, "ollama error: "+chunk.Error)
		}

		if chunk.Response != "" {
			output.WriteString(chunk.Response)
			if onToken != nil {
				if err := onToken(chunk.Response); err != nil {
					return output.String(), err
				}
			}
		}

		if chunk.Done {
			return output.String(), nil
		}
	}

	if err := scanner.Err(); err != nil {
		return output.String(), llm.ClassifyError(ctx, "read stream", err)
	}

	// Body ended without a done marker
	return output.String(), apperr.New(apperr.KindInferenceFailed, "ollama stream ended before completion")
}
