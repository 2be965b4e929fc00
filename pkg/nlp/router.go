package nlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/config"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// DefaultProvider is the provider key used when no rule matches.
const DefaultProvider = "default"

// RouterClient routes requests to specific LLM providers based on rules.
// The rule is selected by the usage tag carried on the context, see WithUsage.
type RouterClient struct {
	providers     map[string]Client
	rules         []config.RouterRule
	defaultClient Client
	logger        *slog.Logger
}

// NewRouterClient creates a new router client. The "default" provider handles
// untagged requests; without one, the provider with the smallest key is used.
func NewRouterClient(providers map[string]Client, rules []config.RouterRule, logger *slog.Logger) (*RouterClient, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	defaultClient, ok := providers[DefaultProvider]
	if !ok {
		keys := make([]string, 0, len(providers))
		for k := range providers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		defaultClient = providers[keys[0]]
	}

	for _, rule := range rules {
		if _, ok := providers[rule.Provider]; !ok {
			return nil, fmt.Errorf("router rule %q references unknown provider %q", rule.Usage, rule.Provider)
		}
	}

	return &RouterClient{
		providers:     providers,
		rules:         rules,
		defaultClient: defaultClient,
		logger:        logger,
	}, nil
}

// route determines which client to use based on context
func (r *RouterClient) route(ctx context.Context) (Client, string, Client) {
	usage, ok := ctx.Value(types.ContextKeyUsage).(string)
	if !ok || usage == "" {
		return r.defaultClient, DefaultProvider, nil
	}

	for _, rule := range r.rules {
		if !strings.EqualFold(rule.Usage, usage) {
			continue
		}
		primary, ok := r.providers[rule.Provider]
		if !ok {
			continue
		}
		var fallback Client
		if rule.Fallback != "" {
			fallback = r.providers[rule.Fallback]
		}
		return primary, rule.Provider, fallback
	}

	return r.defaultClient, DefaultProvider, nil
}

// Chat implements Client with routing and fallback
func (r *RouterClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	primary, name, fallback := r.route(ctx)

	resp, err := primary.Chat(ctx, messages)
	if err != nil && fallback != nil && ctx.Err() == nil {
		r.logger.WarnContext(ctx, "routing to fallback model", "provider", name, "error", err)
		return fallback.Chat(ctx, messages)
	}
	return resp, err
}

// ChatWithStructuredOutput implements Client with routing and fallback
func (r *RouterClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema any) (*types.Response, error) {
	primary, name, fallback := r.route(ctx)

	resp, err := primary.ChatWithStructuredOutput(ctx, messages, schema)
	if err != nil && fallback != nil && ctx.Err() == nil {
		r.logger.WarnContext(ctx, "routing to fallback model", "provider", name, "error", err)
		return fallback.ChatWithStructuredOutput(ctx, messages, schema)
	}
	return resp, err
}

// Close closes all providers
func (r *RouterClient) Close() error {
	var errs []error
	for id, provider := range r.providers {
		if err := provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing providers: %w", errors.Join(errs...))
	}
	return nil
}
