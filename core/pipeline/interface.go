package pipeline

import "context"

// EmbedFunc is a function that generates an embedding vector for text.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// GenerateFunc is a function that produces a text completion for a prompt.
type GenerateFunc func(ctx context.Context, prompt string) (string, error)
