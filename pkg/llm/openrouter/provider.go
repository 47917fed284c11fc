package openrouter

import (
	"context"
	"strings"

	"studymate-be/pkg/apperr"
	"studymate-be/pkg/llm"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider talks to any OpenAI-compatible chat completions endpoint.
type OpenRouterProvider struct {
	client    openai.Client
	ModelName string
}

var _ llm.LLMProvider = &OpenRouterProvider{}

func NewOpenRouterProvider(baseURL, apiKey, modelName string, extra ...option.RequestOption) *OpenRouterProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimRight(baseURL, "/") + "/"),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(1),
	}
	opts = append(opts, extra...)

	return &OpenRouterProvider{
		client:    openai.NewClient(opts...),
		ModelName: modelName,
	}
}

func (p *OpenRouterProvider) Name() string {
	return "openrouter"
}

func (p *OpenRouterProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	params := p.buildParams(prompt, llm.ApplyOptions(opts...))

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", llm.ClassifyError(ctx, "openrouter request failed", err)
	}
	if len(completion.Choices) == 0 {
		return "", apperr.New(apperr.KindInferenceFailed, "no response choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}

func (p *OpenRouterProvider) GenerateStream(ctx context.Context, prompt string, onToken llm.TokenFunc, opts ...llm.Option) (string, error) {
	params := p.buildParams(prompt, llm.ApplyOptions(opts...))

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	var output strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		token := chunk.Choices[0].Delta.Content
		output.WriteString(token)
		if onToken != nil {
			if err := onToken(token); err != nil {
				return output.String(), err
			}
		}
	}

	if err := stream.Err(); err != nil {
		return output.String(), llm.ClassifyError(ctx, "openrouter stream failed", err)
	}
	return output.String(), nil
}

func (p *OpenRouterProvider) buildParams(prompt string, options *llm.Options) openai.ChatCompletionNewParams {
	model := p.ModelName
	if options.Model != "" {
		model = options.Model
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if options.System != "" {
		messages = append(messages, openai.SystemMessage(options.System))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(options.Temperature),
	}
	if options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(options.MaxTokens))
	}
	return params
}
