// Package nlp provides language model clients used for answer generation
// and statement generation.
//
// The Client interface has one implementation that talks to a service,
// OpenAIClient, which also serves OpenAI-compatible APIs through a custom
// base URL. The other clients wrap a Client:
//   - RetryClient: retry with exponential backoff on transient errors
//   - CircuitBreakerClient: stops calling a failing service for a while
//   - RouterClient: picks a model per request from the usage tag on the context
//   - TokenTrackingClient: reports token usage to Parquet files or metrics
//
// NewClientFromConfig assembles the usual stack from configuration:
//
//	client, err := nlp.NewClientFromConfig(cfg, logger, tracker)
//	resp, err := client.Chat(nlp.WithUsage(ctx, "text2cypher"), messages)
//
// Provider failures are reported through ErrRateLimit, ErrRefusal and
// ErrEmptyResponse; Retryable decides which of them are worth repeating.
// Chains wrap failed calls in a GenerationServiceError naming their stage.
package nlp
