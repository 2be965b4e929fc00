package chain

import (
	"context"
	"fmt"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/nlp"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/search"
)

// WeightedSearch fuses several strategies into one ranked candidate list,
// optionally answering a question from the fused context.
type WeightedSearch struct {
	name  string
	multi *search.MultiRetriever
	llm   nlp.Client
	opts  options
}

// NewWeightedSearch creates a chain over multi. llm may be nil when only
// Search is used.
func NewWeightedSearch(name string, multi *search.MultiRetriever, llm nlp.Client, opts ...Option) *WeightedSearch {
	return &WeightedSearch{
		name:  name,
		multi: multi,
		llm:   llm,
		opts:  newOptions(opts),
	}
}

// Name returns the chain name.
func (c *WeightedSearch) Name() string {
	return c.name
}

// Strategies returns the names of the fused strategies, in fusion order.
func (c *WeightedSearch) Strategies() []string {
	strategies := c.multi.Strategies()
	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = s.Retriever.Name()
	}
	return names
}

// Search ranks candidates for the request's search text. weights, when not
// nil, replace the configured strategy weights; topK <= 0 uses the chain's.
func (c *WeightedSearch) Search(ctx context.Context, req Request, weights []float64, topK int) (*Answer, error) {
	text := req.searchText()
	if text == "" {
		return nil, ErrEmptyPrompt
	}
	if topK <= 0 {
		topK = c.opts.topK
	}

	res, err := c.multi.SearchWeighted(ctx, text, weights, topK, req.Params)
	if err != nil {
		return nil, err
	}

	docs, err := c.opts.assembler.Assemble(res.Candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble context: %w", err)
	}

	return &Answer{
		Context:    docs,
		Queries:    res.Queries,
		Candidates: res.Candidates,
		Warnings:   res.Warnings(),
	}, nil
}

// Invoke searches with the configured weights and answers the prompt from
// the fused context.
func (c *WeightedSearch) Invoke(ctx context.Context, req Request) (*Answer, error) {
	return c.opts.observe(ctx, c.name, func(ctx context.Context) (*Answer, error) {
		if c.llm == nil {
			return nil, ErrNoLanguageModel
		}
		if req.Prompt == "" {
			return nil, ErrEmptyPrompt
		}

		answer, err := c.Search(ctx, req, nil, 0)
		if err != nil {
			return nil, err
		}

		instructions := c.opts.instructions
		if req.Instructions != "" {
			instructions = req.Instructions
		}
		text, err := generateAnswer(ctx, c.llm, instructions, req.Prompt, answer.Context)
		if err != nil {
			return nil, err
		}
		answer.Answer = text
		return answer, nil
	})
}
