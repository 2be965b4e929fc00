// Package graphrag answers questions from Neo4j graphs by combining vector
// search, graph context and language model generation.
//
// A Client connects the demo datasets named in the configuration and
// registers one chain per retrieval pattern:
//
//   - northwind-vector: plain vector search over product text
//   - northwind-graph: vector search enriched with suppliers, customers and
//     co-purchased products
//   - northwind-text2cypher: the model writes the Cypher statement
//   - hm-prefilter: candidates restricted to a customer's neighbourhood
//     before similarity is computed
//   - hm-postfilter: vector search re-ranked by the customer's purchases
//   - resume: person, skill and position searches fused into one ranking
//   - retail-text2cypher: free-form questions over the retail customer graph
//
// # Basic Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := graphrag.NewClient(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	answer, err := client.Invoke(ctx, graphrag.ChainNorthwindGraph, chain.Request{
//		Prompt: "Which products are frequently bought with Chai?",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(answer.Answer)
//
// Every answer carries the context it was grounded on and the statements
// issued to produce it, with their parameters.
//
// # Customer-scoped chains
//
// The H&M chains read the customer from the request parameters and usually
// search on a different text than the one they answer:
//
//	answer, err := client.Invoke(ctx, graphrag.ChainHMPostfilter, chain.Request{
//		Prompt:       datasets.EmailInstructions("Alex", "late autumn"),
//		SearchText:   "warm knitwear",
//		Params:       map[string]any{datasets.ParamCustomerID: "daae10780ecd14990ea190a1e9917da33fe96cd8cfa5e80b67b4600171aa77e0"},
//	})
//
// # Retail analytics
//
// When the retail dataset is configured, Client.Retail returns a
// RetailService with typed operations for similar products,
// recommendations, customer segmentation and order statistics.
//
// # Architecture
//
//   - pkg/search: statement building, retrievers, normalization and fusion
//   - pkg/assembler: context documents handed to generation
//   - pkg/chain: retrieval followed by generation
//   - pkg/driver, pkg/embedder, pkg/nlp: store, embedding and model clients
//   - pkg/server: the HTTP API over the registered chains
package graphrag
