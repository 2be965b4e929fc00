// Package driver provides the graph store connection used by retrievers and
// chains.
//
// Retrieval code depends on the small QueryExecutor interface, which runs a
// parameterised Cypher statement in a read transaction and returns rows as
// plain maps. Neo4jDriver implements it on top of the official Neo4j Go
// driver; BreakerExecutor wraps any executor with a circuit breaker.
//
// # Usage
//
//	d, err := driver.NewNeo4jDriver(uri, username, password, "neo4j")
//	if err != nil {
//		return err
//	}
//	defer d.Close()
//
//	rows, err := d.ExecuteQuery(ctx, "MATCH (p:Product) RETURN p.name AS name LIMIT $n",
//		map[string]any{"n": 5})
//
// # Thread Safety
//
// Neo4jDriver is safe for concurrent use from multiple goroutines. Each call
// opens its own session; connections are pooled by the underlying driver.
//
// # Type Helpers
//
// type_helpers.go converts driver values (nodes, relationships, temporal
// values) into maps, strings and numbers so rows can be serialized and
// decoded without type assertions on driver types.
package driver
