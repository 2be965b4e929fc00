// Package embedder provides text embedding clients for vector search.
//
// Query text must be embedded with the same model that produced the vectors
// stored in the graph's vector indexes. The example datasets were embedded
// with text-embedding-ada-002, which is the default model.
//
// # Usage
//
//	client := embedder.NewOpenAIEmbedder(apiKey, embedder.Config{
//	    Model:     "text-embedding-ada-002",
//	    BatchSize: 100,
//	})
//
//	vector, err := client.EmbedSingle(ctx, "socks for running")
//
// # Caching
//
// CachedClient stores embeddings in a badger database keyed by model and
// text, so repeated questions do not reach the provider. The cache can live
// on disk or in memory.
package embedder
