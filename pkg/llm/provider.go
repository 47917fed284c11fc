package llm

import (
	"context"
	"errors"

	"studymate-be/pkg/apperr"
)

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	System      string // Optional system instruction
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithSystem(system string) Option {
	return func(o *Options) {
		o.System = system
	}
}

// ApplyOptions folds opts over the defaults shared by every provider
func ApplyOptions(opts ...Option) *Options {
	options := &Options{
		Temperature: 0.7,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// TokenFunc receives each generated fragment as soon as it arrives.
// Returning an error stops generation.
type TokenFunc func(token string) error

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Name identifies the backend in logs and metrics
	Name() string

	// Generate sends a single prompt and waits for the full answer
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)

	// GenerateStream hands every fragment to onToken in arrival order and returns
	// the concatenation once the backend signals completion
	GenerateStream(ctx context.Context, prompt string, onToken TokenFunc, options ...Option) (string, error)
}

// ClassifyError maps transport failures onto InferenceTimeout / InferenceFailed.
// Errors that already carry a kind are passed through untouched.
func ClassifyError(ctx context.Context, message string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindInferenceTimeout, message, err)
	}
	return apperr.Wrap(apperr.KindInferenceFailed, message, err)
}
