package llm

import (
	"context"
	"time"
)

// timeoutClient bounds every completion call with a fixed deadline so a
// slow provider cannot hang a chat turn.
type timeoutClient struct {
	inner   CompletionClient
	timeout time.Duration
}

// WithTimeout wraps client so each Complete call runs under deadline d.
// A non-positive d returns the client unchanged.
func WithTimeout(client CompletionClient, d time.Duration) CompletionClient {
	if d <= 0 {
		return client
	}
	return &timeoutClient{inner: client, timeout: d}
}

// Complete implements CompletionClient.
func (c *timeoutClient) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (*CompletionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.inner.Complete(ctx, prompt, temperature, maxTokens)
}

// GetModel implements CompletionClient.
func (c *timeoutClient) GetModel() string {
	return c.inner.GetModel()
}

var _ CompletionClient = (*timeoutClient)(nil)
