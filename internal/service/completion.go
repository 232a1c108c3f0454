package service

import (
	"context"
)

// CompletionClient is the interface to the text-completion capability.
// The formalizer treats whatever it returns as untrusted data.
type CompletionClient interface {
	// Complete sends a system prompt plus the user's question and returns
	// the raw text of the model's reply.
	Complete(ctx context.Context, system, user string) (string, error)

	// IsEnabled returns whether the client is configured and ready
	IsEnabled() bool
}

// Ensure OpenAIClient implements CompletionClient
var _ CompletionClient = (*OpenAIClient)(nil)
