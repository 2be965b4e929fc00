package dto

import (
	"fmt"
	"strings"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// InvokeRequest asks a chain to answer a prompt.
type InvokeRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	// SearchText replaces the prompt as the retrieval text.
	SearchText string `json:"search_text,omitempty"`
	// Instructions replace the chain's configured instructions for this call.
	Instructions string         `json:"instructions,omitempty"`
	Params       map[string]any `json:"params,omitempty"`
}

// Validate performs validation on InvokeRequest
func (r *InvokeRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrEmptyPrompt
	}
	if len(r.Prompt)+len(r.SearchText)+len(r.Instructions) > MaxPromptLength {
		return ErrPromptTooLong
	}
	if len(r.Params) > MaxParamCount {
		return ErrTooManyParams
	}
	return nil
}

// SearchRequest asks a chain for ranked context without generating an answer.
type SearchRequest struct {
	Query  string         `json:"query" binding:"required"`
	Params map[string]any `json:"params,omitempty"`
	// Weights replace the configured strategy weights of a weighted chain.
	Weights []float64 `json:"weights,omitempty"`
	TopK    int       `json:"top_k,omitempty"`
}

// Validate performs validation on SearchRequest
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}
	if len(r.Query) > MaxPromptLength {
		return ErrPromptTooLong
	}
	if len(r.Params) > MaxParamCount {
		return ErrTooManyParams
	}
	if r.TopK < 0 {
		return ErrNegativeTopK
	}
	if r.TopK > MaxTopK {
		return ErrTopKTooLarge
	}
	if len(r.Weights) > MaxWeightCount {
		return ErrTooManyWeights
	}
	for i, w := range r.Weights {
		if w < 0 {
			return fmt.Errorf("weight %d: %w", i, ErrNegativeWeight)
		}
	}
	return nil
}

// CandidateResult is one fused candidate of a weighted search.
type CandidateResult struct {
	Identity   string   `json:"identity"`
	Score      float64  `json:"score"`
	Strategies []string `json:"strategies"`
}

// QueryResult is a statement issued by a chain, with browser-ready forms.
type QueryResult struct {
	*types.RetrievalQuery
	Browser *types.BrowserQueries `json:"browser,omitempty"`
}

// AnswerResponse is the outcome of a chain invocation or search.
type AnswerResponse struct {
	Chain      string            `json:"chain"`
	Answer     string            `json:"answer,omitempty"`
	Context    string            `json:"context"`
	Records    []*types.Metadata `json:"records"`
	Queries    []QueryResult     `json:"queries"`
	Candidates []CandidateResult `json:"candidates,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// ChainInfo describes a registered chain.
type ChainInfo struct {
	Name       string   `json:"name"`
	Searchable bool     `json:"searchable"`
	Strategies []string `json:"strategies,omitempty"`
}

// ChainList lists the registered chains.
type ChainList struct {
	Chains []ChainInfo `json:"chains"`
	Total  int         `json:"total"`
}
