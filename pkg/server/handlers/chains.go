package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/chain"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/server/dto"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// ChainProvider looks up chains by name.
type ChainProvider interface {
	ChainNames() []string
	Chain(name string) (chain.Chain, bool)
}

// weightedSearcher is implemented by chains that fuse several strategies.
type weightedSearcher interface {
	Search(ctx context.Context, req chain.Request, weights []float64, topK int) (*chain.Answer, error)
	Strategies() []string
}

// contextRetriever is implemented by single-strategy chains.
type contextRetriever interface {
	Retrieve(ctx context.Context, req chain.Request) (*chain.Answer, error)
}

// ChainHandler serves chain invocations and searches.
type ChainHandler struct {
	chains ChainProvider
}

// NewChainHandler creates a new chain handler
func NewChainHandler(chains ChainProvider) *ChainHandler {
	return &ChainHandler{chains: chains}
}

// ListChains handles GET /api/v1/chains
func (h *ChainHandler) ListChains(c *gin.Context) {
	names := h.chains.ChainNames()
	sort.Strings(names)

	list := dto.ChainList{Chains: make([]dto.ChainInfo, 0, len(names))}
	for _, name := range names {
		ch, ok := h.chains.Chain(name)
		if !ok {
			continue
		}
		info := dto.ChainInfo{Name: name}
		switch s := ch.(type) {
		case weightedSearcher:
			info.Searchable = true
			info.Strategies = s.Strategies()
		case contextRetriever:
			info.Searchable = true
		}
		list.Chains = append(list.Chains, info)
	}
	list.Total = len(list.Chains)

	c.JSON(http.StatusOK, list)
}

// Invoke handles POST /api/v1/chains/:name/invoke
func (h *ChainHandler) Invoke(c *gin.Context) {
	ch, ok := h.lookup(c)
	if !ok {
		return
	}

	var req dto.InvokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	answer, err := ch.Invoke(c.Request.Context(), chain.Request{
		Prompt:       req.Prompt,
		SearchText:   req.SearchText,
		Instructions: req.Instructions,
		Params:       req.Params,
	})
	if err != nil {
		writeChainError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAnswerResponse(ch.Name(), answer))
}

// Search handles POST /api/v1/chains/:name/search. It returns the ranked
// context without calling the language model.
func (h *ChainHandler) Search(c *gin.Context) {
	ch, ok := h.lookup(c)
	if !ok {
		return
	}

	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	chainReq := chain.Request{Prompt: req.Query, Params: req.Params}
	var (
		answer *chain.Answer
		err    error
	)
	switch s := ch.(type) {
	case weightedSearcher:
		answer, err = s.Search(c.Request.Context(), chainReq, req.Weights, req.TopK)
	case contextRetriever:
		if len(req.Weights) > 0 {
			writeError(c, http.StatusBadRequest, "invalid_request", "weights apply to multi-strategy chains only")
			return
		}
		answer, err = s.Retrieve(c.Request.Context(), chainReq)
	default:
		writeError(c, http.StatusBadRequest, "search_unsupported", "chain "+ch.Name()+" does not support search")
		return
	}
	if err != nil {
		writeChainError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAnswerResponse(ch.Name(), answer))
}

func (h *ChainHandler) lookup(c *gin.Context) (chain.Chain, bool) {
	name := c.Param("name")
	ch, ok := h.chains.Chain(name)
	if !ok {
		writeError(c, http.StatusNotFound, "chain_not_found", "no chain named "+name)
		return nil, false
	}
	return ch, true
}

func toAnswerResponse(name string, answer *chain.Answer) dto.AnswerResponse {
	resp := dto.AnswerResponse{
		Chain:    name,
		Answer:   answer.Answer,
		Records:  []*types.Metadata{},
		Queries:  make([]dto.QueryResult, 0, len(answer.Queries)),
		Warnings: answer.Warnings,
	}
	if answer.Context != nil {
		resp.Context = answer.Context.Document
		if answer.Context.Records != nil {
			resp.Records = answer.Context.Records
		}
	}
	for _, q := range answer.Queries {
		if q == nil {
			continue
		}
		result := dto.QueryResult{RetrievalQuery: q}
		if browser, err := q.BrowserQueries(); err == nil {
			result.Browser = browser
		}
		resp.Queries = append(resp.Queries, result)
	}
	for _, cand := range answer.Candidates {
		resp.Candidates = append(resp.Candidates, dto.CandidateResult{
			Identity:   cand.Identity,
			Score:      cand.Score,
			Strategies: cand.Strategies,
		})
	}
	return resp
}
