package core

import "context"

// EmbeddingProvider converts free text into a fixed-dimension vector.
// One call per text; batching is the caller's concern.
type EmbeddingProvider interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// LLMProvider generates an answer from a system prompt and a user prompt.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}
