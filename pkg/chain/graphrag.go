package chain

import (
	"context"
	"fmt"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/nlp"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/prompts"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/search"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// GraphRAG answers a question from the records of a single retriever. The
// retriever decides the shape of the search: plain vector search, vector
// search with graph context, a pre-filter or a post-filter.
type GraphRAG struct {
	name      string
	retriever search.Retriever
	llm       nlp.Client
	opts      options
}

// NewGraphRAG creates a chain over retriever. llm may be nil for a chain
// that only retrieves.
func NewGraphRAG(name string, retriever search.Retriever, llm nlp.Client, opts ...Option) *GraphRAG {
	return &GraphRAG{
		name:      name,
		retriever: retriever,
		llm:       llm,
		opts:      newOptions(opts),
	}
}

// Name returns the chain name.
func (c *GraphRAG) Name() string {
	return c.name
}

// Retrieve runs the search and assembles the context without generating an
// answer.
func (c *GraphRAG) Retrieve(ctx context.Context, req Request) (*Answer, error) {
	text := req.searchText()
	if text == "" {
		return nil, ErrEmptyPrompt
	}

	res, err := c.retriever.Search(ctx, text, c.opts.topK, req.Params)
	if err != nil {
		return nil, err
	}

	docs, err := c.opts.assembler.AssembleRecords(res.Records)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble context: %w", err)
	}

	return &Answer{
		Context: docs,
		Queries: []*types.RetrievalQuery{res.Query},
	}, nil
}

// Invoke retrieves the context and asks the language model to answer the
// prompt from it.
func (c *GraphRAG) Invoke(ctx context.Context, req Request) (*Answer, error) {
	return c.opts.observe(ctx, c.name, func(ctx context.Context) (*Answer, error) {
		if c.llm == nil {
			return nil, ErrNoLanguageModel
		}
		if req.Prompt == "" {
			return nil, ErrEmptyPrompt
		}

		answer, err := c.Retrieve(ctx, req)
		if err != nil {
			return nil, err
		}

		text, err := generateAnswer(ctx, c.llm, c.instructions(req), req.Prompt, answer.Context)
		if err != nil {
			return nil, err
		}
		answer.Answer = text
		return answer, nil
	})
}

func (c *GraphRAG) instructions(req Request) string {
	if req.Instructions != "" {
		return req.Instructions
	}
	return c.opts.instructions
}

// generateAnswer renders instructions, question and context into one prompt
// and completes it.
func generateAnswer(ctx context.Context, llm nlp.Client, instructions, question string, docs *types.Context) (string, error) {
	prompt, err := prompts.ContextTemplate.WithPrefix(instructions).Format(map[string]string{
		prompts.VarInput:   question,
		prompts.VarContext: docs.Document,
	})
	if err != nil {
		return "", err
	}
	return complete(ctx, llm, UsageAnswer, "answer", prompt)
}
