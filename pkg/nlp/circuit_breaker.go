package nlp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sony/gobreaker"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/config"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// CircuitBreakerClient stops calling a failing model until the breaker's
// timeout elapses. Refusals and cancelled calls do not count as failures.
type CircuitBreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker
}

func NewCircuitBreakerClient(client Client, cfg config.CircuitBreakerConfig, name string, logger *slog.Logger) *CircuitBreakerClient {
	st := cfg.Settings(name, logger)
	st.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrRefusal)
	}
	return &CircuitBreakerClient{client: client, cb: gobreaker.NewCircuitBreaker(st)}
}

// State reports the current breaker state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.cb.State()
}

func (c *CircuitBreakerClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return c.guard(func() (*types.Response, error) { return c.client.Chat(ctx, messages) })
}

func (c *CircuitBreakerClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema any) (*types.Response, error) {
	return c.guard(func() (*types.Response, error) {
		return c.client.ChatWithStructuredOutput(ctx, messages, schema)
	})
}

func (c *CircuitBreakerClient) Close() error {
	return c.client.Close()
}

func (c *CircuitBreakerClient) guard(call func() (*types.Response, error)) (*types.Response, error) {
	out, err := c.cb.Execute(func() (any, error) { return call() })
	if err != nil {
		return nil, err
	}
	return out.(*types.Response), nil
}
