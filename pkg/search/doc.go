// Package search implements retrieval and ranking over a Neo4j vector index.
//
// A QueryBuilder composes a Cypher statement from typed clauses (vector
// scan, hybrid vector and fulltext scan, pre-filtered cosine scan, and a
// projection) and binds the query embedding, k and caller parameters
// separately from the statement text. A VectorRetriever embeds the question,
// runs the statement and maps each row to a types.ScoredRecord.
//
// # Strategies
//
// Retrievers come in three shapes:
//   - Vector: similarity search on one index, optionally followed by a graph
//     retrieval clause that gathers context around each hit.
//   - Pre-filter: a graph pattern selects the candidate nodes first; only
//     those are scored.
//   - Post-filter: unrestricted similarity search whose rows carry an
//     auxiliary count that boosts the score (see ApplyAuxiliaryBoost).
//
// # Usage
//
//	builder := search.NewQueryBuilder("product_text_embeddings",
//	    search.WithEmbeddingProperty("textEmbedding"))
//	retriever := search.NewVectorRetriever("products", emb, exec, builder,
//	    search.WithIdentityKey("productCode"))
//
//	res, err := retriever.Search(ctx, "warm socks for hiking", 5, nil)
//
// # Fusion
//
// Fuse merges the result sets of several strategies: scores are normalized
// (max-normalized per set, or multiplied by sum-normalized weights), records
// are grouped by identity and ranked by summed score. MultiRetriever runs the
// strategies concurrently and fuses whatever succeeded, reporting failed
// strategies alongside the candidates.
package search
