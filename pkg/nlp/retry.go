package nlp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/config"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// RetryClient repeats failed calls that Retryable accepts, waiting an
// exponentially growing delay between attempts.
type RetryClient struct {
	client Client
	policy config.RetryConfig
	logger *slog.Logger
}

// NewRetryClient wraps client. Zero fields of policy take the defaults of
// config.DefaultRetryConfig. A nil logger uses slog.Default().
func NewRetryClient(client Client, policy config.RetryConfig, logger *slog.Logger) *RetryClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryClient{
		client: client,
		policy: policy.WithDefaults(),
		logger: logger,
	}
}

func (r *RetryClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return r.do(ctx, "chat", func() (*types.Response, error) {
		return r.client.Chat(ctx, messages)
	})
}

func (r *RetryClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema any) (*types.Response, error) {
	return r.do(ctx, "structured chat", func() (*types.Response, error) {
		return r.client.ChatWithStructuredOutput(ctx, messages, schema)
	})
}

func (r *RetryClient) Close() error {
	return r.client.Close()
}

func (r *RetryClient) do(ctx context.Context, op string, call func() (*types.Response, error)) (*types.Response, error) {
	resp, err := call()
	for retry := 1; err != nil && retry <= r.policy.MaxRetries; retry++ {
		if !Retryable(err) {
			return nil, err
		}

		delay := r.policy.Delay(retry)
		r.logger.WarnContext(ctx, "retrying language model call",
			"operation", op,
			"retry", retry,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("cancelled while waiting to retry %s: %w", op, ctx.Err())
		}
		resp, err = call()
	}
	if err != nil {
		if r.policy.MaxRetries > 0 && Retryable(err) {
			return nil, fmt.Errorf("%s failed after %d retries: %w", op, r.policy.MaxRetries, err)
		}
		return nil, err
	}
	return resp, nil
}
