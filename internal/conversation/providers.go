package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/premiumdental/dental-ai-platform/internal/config"
	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

// Provider chain order when every key is configured. DeepSeek is the
// cheapest backend, so it goes first; Gemini and OpenAI back it up, and
// Bedrock joins the tail when a model id is configured.
const (
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderBedrock  = "bedrock"
)

// BuildProviders assembles the fallback chain from configuration. Backends
// without credentials are skipped. bedrockAPI may be nil when the deployment
// has no AWS wiring. The returned closer releases provider connections.
func BuildProviders(ctx context.Context, cfg *config.Config, bedrockAPI bedrockConverseAPI, logger *logging.Logger) ([]Provider, func() error, error) {
	if logger == nil {
		logger = logging.Default()
	}

	var (
		providers []Provider
		closers   []func() error
	)
	closeAll := func() error {
		var first error
		for _, c := range closers {
			if err := c(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	if cfg.DeepSeekAPIKey != "" {
		client, err := NewDeepSeekLLMClient(cfg.DeepSeekAPIKey, cfg.DeepSeekBaseURL, cfg.DeepSeekModel)
		if err != nil {
			return nil, nil, err
		}
		providers = append(providers, Provider{Name: ProviderDeepSeek, Client: client})
	}
	if cfg.GoogleAPIKey != "" {
		client, err := NewGeminiLLMClient(ctx, cfg.GoogleAPIKey, cfg.GeminiModel)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, client.Close)
		providers = append(providers, Provider{Name: ProviderGemini, Client: client})
	}
	if cfg.OpenAIAPIKey != "" {
		client, err := NewOpenAILLMClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		providers = append(providers, Provider{Name: ProviderOpenAI, Client: client})
	}
	if bedrockAPI != nil && cfg.BedrockModelID != "" {
		providers = append(providers, Provider{Name: ProviderBedrock, Client: NewBedrockLLMClient(bedrockAPI, cfg.BedrockModelID)})
	}

	if len(providers) == 0 {
		closeAll()
		return nil, nil, fmt.Errorf("conversation: no llm provider configured")
	}

	if preferred := strings.ToLower(strings.TrimSpace(cfg.LLMProvider)); preferred != "" {
		providers = pinProvider(providers, preferred)
	}

	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name
	}
	logger.Info("llm provider chain assembled", "providers", names)
	return providers, closeAll, nil
}

// pinProvider moves the named provider to the front, keeping the rest of
// the chain as fallbacks in their original order.
func pinProvider(providers []Provider, name string) []Provider {
	for i, p := range providers {
		if p.Name != name {
			continue
		}
		pinned := append([]Provider{p}, providers[:i]...)
		return append(pinned, providers[i+1:]...)
	}
	return providers
}
