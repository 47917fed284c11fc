package speech

import (
	"context"
)

// ChunkFunc receives audio bytes as they arrive. Returning an error aborts synthesis.
type ChunkFunc func(chunk []byte) error

// Provider turns text into audio, delivered incrementally
type Provider interface {
	Synthesize(ctx context.Context, text, voice string, onChunk ChunkFunc) error
}
