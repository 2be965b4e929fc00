package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jDriver implements GraphDriver with the official Neo4j driver. Queries
// go through neo4j.ExecuteQuery, which retries transient failures and routes
// reads to followers in a cluster.
type Neo4jDriver struct {
	client   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// Neo4jOption configures a Neo4jDriver.
type Neo4jOption func(*Neo4jDriver)

// WithLogger sets the logger used for query diagnostics.
func WithLogger(logger *slog.Logger) Neo4jOption {
	return func(n *Neo4jDriver) { n.logger = logger }
}

// NewNeo4jDriver connects lazily; call VerifyConnectivity to check the
// server. An empty database selects "neo4j".
func NewNeo4jDriver(uri, username, password, database string, opts ...Neo4jOption) (*Neo4jDriver, error) {
	client, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if database == "" {
		database = "neo4j"
	}

	n := &Neo4jDriver{client: client, database: database, logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// ExecuteQuery runs a read-only statement and returns every row.
func (n *Neo4jDriver) ExecuteQuery(ctx context.Context, cypher string, params map[string]any) ([]Row, error) {
	return n.execute(ctx, cypher, params, neo4j.ExecuteQueryWithReadersRouting())
}

// ExecuteWrite runs a statement on the leader.
func (n *Neo4jDriver) ExecuteWrite(ctx context.Context, cypher string, params map[string]any) ([]Row, error) {
	return n.execute(ctx, cypher, params, neo4j.ExecuteQueryWithWritersRouting())
}

func (n *Neo4jDriver) execute(ctx context.Context, cypher string, params map[string]any, routing neo4j.ExecuteQueryConfigurationOption) ([]Row, error) {
	result, err := neo4j.ExecuteQuery(ctx, n.client, cypher, params, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database), routing)
	if err != nil {
		n.logger.DebugContext(ctx, "query failed", "database", n.database, "error", err)
		return nil, err
	}

	rows := make([]Row, len(result.Records))
	for i, record := range result.Records {
		rows[i] = RecordToRow(record)
	}
	return rows, nil
}

// Database returns the database name queries run against.
func (n *Neo4jDriver) Database() string {
	return n.database
}

func (n *Neo4jDriver) Provider() GraphProvider {
	return GraphProviderNeo4j
}

func (n *Neo4jDriver) Close() error {
	return n.client.Close(context.Background())
}

func (n *Neo4jDriver) VerifyConnectivity(ctx context.Context) error {
	return n.client.VerifyConnectivity(ctx)
}
