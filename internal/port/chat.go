package port

import (
	"context"

	"docanalyser/internal/domain"
)

// ChatRequest is a single-message, schema-constrained chat completion request.
type ChatRequest struct {
	Blocks     []domain.ContentBlock
	SchemaName string
	Schema     map[string]any
}

// ChatCompleter abstracts an OpenAI-compatible chat completions endpoint.
// CompleteJSON returns the message content of the first choice.
type ChatCompleter interface {
	CompleteJSON(ctx context.Context, req ChatRequest) (string, error)
	Model() string
}

// KeyUsageChecker reports usage and limits for the configured API key.
type KeyUsageChecker interface {
	KeyUsage(ctx context.Context) (map[string]any, error)
}
