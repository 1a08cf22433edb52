package llm

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/datachat-inc/datachat-engine/pkg/config"
)

// NewClientFromConfig creates the configured completion client.
// Provider selects the implementation: "openai" (any OpenAI-compatible
// endpoint) or "anthropic".
func NewClientFromConfig(cfg *config.LLMConfig, logger *zap.Logger) (CompletionClient, error) {
	clientCfg := &Config{
		Endpoint: cfg.Endpoint,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
	}

	var (
		client CompletionClient
		err    error
	)
	switch cfg.Provider {
	case "openai":
		client, err = NewClient(clientCfg, logger)
	case "anthropic":
		client, err = NewAnthropicClient(clientCfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return WithTimeout(client, time.Duration(cfg.TimeoutSeconds)*time.Second), nil
}
