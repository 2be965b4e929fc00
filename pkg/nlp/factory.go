package nlp

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/config"
)

// ProviderOpenAI is the only supported model provider. OpenAI-compatible
// services are reached through base_url.
const ProviderOpenAI = "openai"

// NewClientFromConfig builds the client stack for every configured model:
// OpenAI client, circuit breaker (when enabled) and retry, joined by a
// RouterClient. When recorders are given the router is wrapped so every
// completion reports its token usage.
func NewClientFromConfig(cfg *config.Config, logger *slog.Logger, recorders ...UsageRecorder) (Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.NLP.Models) == 0 {
		return nil, fmt.Errorf("no language models configured")
	}

	names := make([]string, 0, len(cfg.NLP.Models))
	for name := range cfg.NLP.Models {
		names = append(names, name)
	}
	sort.Strings(names)

	providers := make(map[string]Client, len(names))
	for _, name := range names {
		m := cfg.NLP.Models[name]
		if m.Provider != "" && m.Provider != ProviderOpenAI {
			return nil, fmt.Errorf("model %q: unsupported provider %q", name, m.Provider)
		}
		if m.APIKey == "" && m.BaseURL == "" {
			return nil, fmt.Errorf("model %q: missing API key", name)
		}

		base, err := NewOpenAIClient(m.APIKey, ConfigFromModel(m))
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", name, err)
		}

		var client Client = base
		if cfg.CircuitBreaker.Enabled {
			client = NewCircuitBreakerClient(client, cfg.CircuitBreaker, "nlp-"+name, logger)
		}
		providers[name] = NewRetryClient(client, cfg.NLP.Retry, logger)
	}

	router, err := NewRouterClient(providers, cfg.NLP.RouterRules, logger)
	if err != nil {
		return nil, err
	}

	if len(recorders) == 0 {
		return router, nil
	}
	return NewTokenTrackingClient(router, logger, recorders...), nil
}
