// Package datasets holds the index names, Cypher fragments and prompt
// instructions of the demo graphs: the Northwind order graph, the H&M
// customer graph, the resume graph and the retail customer graph.
//
// Retrieval fragments are written against the clause contract of
// search.QueryBuilder: projections see `node` and `score` and return
// `text, score, metadata`; pre-filters end with
// `WITH <node> AS node, <map> AS prefilterMetadata`.
package datasets
