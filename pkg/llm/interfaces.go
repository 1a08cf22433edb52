// Package llm provides completion clients for SQL generation and
// natural-language answer rendering.
package llm

import (
	"context"
)

// CompletionResult holds the completion text plus token accounting.
type CompletionResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// CompletionClient is the opaque text-completion collaborator: prompt in,
// completion out. Failure is signalled through the error return, never as
// empty output. Use this interface for dependency injection to enable
// mocking in tests.
type CompletionClient interface {
	// Complete generates a completion for the prompt. The call is bounded
	// by the caller-supplied context; temperature 0 is used for SQL
	// generation (determinism over creativity).
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (*CompletionResult, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Ensure implementations satisfy CompletionClient at compile time.
var (
	_ CompletionClient = (*Client)(nil)
	_ CompletionClient = (*AnthropicClient)(nil)
)
