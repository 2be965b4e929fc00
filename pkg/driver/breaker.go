package driver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sony/gobreaker"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/config"
)

// ErrReadOnly is returned for writes through an executor that cannot write.
var ErrReadOnly = errors.New("executor is read-only")

// BreakerExecutor wraps a QueryExecutor with a circuit breaker. Client errors
// reported by the server (syntax errors, missing indexes) do not count as
// failures; only connectivity and server-side failures trip the breaker.
type BreakerExecutor struct {
	next QueryExecutor
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerExecutor creates a new circuit breaking executor
func NewBreakerExecutor(next QueryExecutor, cfg config.CircuitBreakerConfig, name string, logger *slog.Logger) *BreakerExecutor {
	st := cfg.Settings(name, logger)
	st.IsSuccessful = func(err error) bool {
		return err == nil || IsClientError(err) || errors.Is(err, context.Canceled)
	}
	return &BreakerExecutor{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(st),
	}
}

// ExecuteQuery implements QueryExecutor
func (b *BreakerExecutor) ExecuteQuery(ctx context.Context, cypher string, params map[string]any) ([]Row, error) {
	rows, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.ExecuteQuery(ctx, cypher, params)
	})
	if err != nil {
		return nil, err
	}
	return rows.([]Row), nil
}

// ExecuteWrite implements WriteExecutor when the wrapped executor does.
func (b *BreakerExecutor) ExecuteWrite(ctx context.Context, cypher string, params map[string]any) ([]Row, error) {
	w, ok := b.next.(WriteExecutor)
	if !ok {
		return nil, ErrReadOnly
	}
	rows, err := b.cb.Execute(func() (interface{}, error) {
		return w.ExecuteWrite(ctx, cypher, params)
	})
	if err != nil {
		return nil, err
	}
	return rows.([]Row), nil
}

// State returns the current breaker state.
func (b *BreakerExecutor) State() gobreaker.State {
	return b.cb.State()
}

// IsClientError reports whether err is a Neo4j client error, i.e. a problem
// with the statement rather than with the store.
func IsClientError(err error) bool {
	var nerr *neo4j.Neo4jError
	if errors.As(err, &nerr) {
		return strings.HasPrefix(nerr.Code, "Neo.ClientError")
	}
	return false
}
