package driver

import (
	"context"
)

// GraphProvider represents the type of graph database provider
type GraphProvider string

const (
	GraphProviderNeo4j GraphProvider = "neo4j"
)

// Row is one result record keyed by column name. Values are normalized to
// plain Go types by NormalizeValue.
type Row = map[string]any

// QueryExecutor runs read-only statements. Consumers that only search the
// graph should depend on this interface.
type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, cypher string, params map[string]any) ([]Row, error)
}

// WriteExecutor runs statements that may modify the graph.
type WriteExecutor interface {
	QueryExecutor
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) ([]Row, error)
}

// GraphDriver is a closable store connection.
type GraphDriver interface {
	WriteExecutor
	VerifyConnectivity(ctx context.Context) error
	Provider() GraphProvider
	Close() error
}
