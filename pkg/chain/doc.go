// Package chain composes retrieval, context assembly and text generation
// into single invocations.
//
// Three chains are provided:
//   - GraphRAG searches with one retriever (vector, graph context,
//     pre-filter or post-filter) and answers from the assembled records.
//   - Text2Cypher has the model write a statement for a described schema,
//     runs it and summarises the rows, retrying with the error appended to
//     the question.
//   - WeightedSearch fuses several strategies into ranked candidates and
//     can answer from them.
//
// Every invocation returns its context and the statements it issued in the
// Answer; chains keep no per-call state and may be shared between
// goroutines.
//
//	rag := chain.NewGraphRAG("vector", retriever, llm,
//	    chain.WithInstructions(datasets.ProductExpertInstructions),
//	    chain.WithTopK(5))
//	answer, err := rag.Invoke(ctx, chain.Request{Prompt: "Which teas are popular?"})
package chain
