package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/chain"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/driver"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/nlp"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/search"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/server/dto"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

type stubRetriever struct {
	name    string
	records []*types.ScoredRecord
	err     error
}

func (s *stubRetriever) Name() string { return s.name }

func (s *stubRetriever) Search(_ context.Context, _ string, _ int, params map[string]any) (*search.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &search.Result{
		Records: s.records,
		Query:   types.NewRetrievalQuery(s.name, "CALL db.index.vector.queryNodes($index, $k, $embedding)", params),
	}, nil
}

type staticLLM struct {
	reply string
	err   error
}

func (s staticLLM) Chat(context.Context, []types.Message) (*types.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &types.Response{Content: s.reply}, nil
}

func (s staticLLM) ChatWithStructuredOutput(ctx context.Context, msgs []types.Message, _ any) (*types.Response, error) {
	return s.Chat(ctx, msgs)
}

func (staticLLM) Close() error { return nil }

type noRows struct{}

func (noRows) ExecuteQuery(context.Context, string, map[string]any) ([]driver.Row, error) {
	return nil, nil
}

type registry map[string]chain.Chain

func (r registry) ChainNames() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	return names
}

func (r registry) Chain(name string) (chain.Chain, bool) {
	c, ok := r[name]
	return c, ok
}

func scored(strategy, id string, score float64) *types.ScoredRecord {
	return &types.ScoredRecord{
		Identity: id,
		Text:     "text " + id,
		Score:    score,
		Strategy: strategy,
		Metadata: types.MetadataFromPairs("id", id),
	}
}

func newTestRegistry(t *testing.T, llm nlp.Client) registry {
	t.Helper()

	multi, err := search.NewMultiRetriever([]search.Strategy{
		{Retriever: &stubRetriever{name: "SKILL", records: []*types.ScoredRecord{scored("SKILL", "p1", 0.8)}}, Weight: 0.5},
		{Retriever: &stubRetriever{name: "POSITION", records: []*types.ScoredRecord{scored("POSITION", "p1", 0.6), scored("POSITION", "p2", 0.9)}}, Weight: 0.5},
	})
	require.NoError(t, err)

	return registry{
		"vector": chain.NewGraphRAG("vector",
			&stubRetriever{name: "vector", records: []*types.ScoredRecord{scored("vector", "Chai", 0.9)}}, llm),
		"broken": chain.NewGraphRAG("broken",
			&stubRetriever{name: "broken", err: search.NewRetrievalExecutionError("broken", "RETURN 1", errors.New("syntax error"))}, llm),
		"resume":      chain.NewWeightedSearch("resume", multi, llm),
		"text2cypher": chain.NewText2Cypher("text2cypher", nil, noRows{}),
	}
}

func newTestRouter(chains ChainProvider) *gin.Engine {
	h := NewChainHandler(chains)
	r := gin.New()
	r.GET("/api/v1/chains", h.ListChains)
	r.POST("/api/v1/chains/:name/invoke", h.Invoke)
	r.POST("/api/v1/chains/:name/search", h.Search)
	return r
}

func post(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListChains(t *testing.T) {
	r := newTestRouter(newTestRegistry(t, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/chains", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list dto.ChainList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 4, list.Total)

	byName := map[string]dto.ChainInfo{}
	names := make([]string, 0, len(list.Chains))
	for _, info := range list.Chains {
		byName[info.Name] = info
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"broken", "resume", "text2cypher", "vector"}, names)
	assert.Equal(t, []string{"SKILL", "POSITION"}, byName["resume"].Strategies)
	assert.True(t, byName["vector"].Searchable)
	assert.False(t, byName["text2cypher"].Searchable)
}

func TestInvokeChain(t *testing.T) {
	r := newTestRouter(newTestRegistry(t, staticLLM{reply: "Chai sells best."}))

	w := post(t, r, "/api/v1/chains/vector/invoke", dto.InvokeRequest{Prompt: "Which tea sells best?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.AnswerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "vector", resp.Chain)
	assert.Equal(t, "Chai sells best.", resp.Answer)
	assert.Contains(t, resp.Context, "Chai")
	require.Len(t, resp.Queries, 1)
	require.NotNil(t, resp.Queries[0].Browser)
	assert.Contains(t, resp.Queries[0].Browser.ParamsQuery, ":params ")
}

func TestInvokeChainErrors(t *testing.T) {
	tests := []struct {
		name     string
		llm      nlp.Client
		path     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"unknown chain", staticLLM{}, "/api/v1/chains/nope/invoke", dto.InvokeRequest{Prompt: "q"}, http.StatusNotFound, "chain_not_found"},
		{"missing prompt", staticLLM{}, "/api/v1/chains/vector/invoke", map[string]any{}, http.StatusBadRequest, "invalid_request"},
		{"blank prompt", staticLLM{}, "/api/v1/chains/vector/invoke", dto.InvokeRequest{Prompt: "   "}, http.StatusBadRequest, "invalid_request"},
		{"retrieval failure", staticLLM{}, "/api/v1/chains/broken/invoke", dto.InvokeRequest{Prompt: "q"}, http.StatusBadGateway, "retrieval_failed"},
		{"generation failure", staticLLM{err: errors.New("upstream down")}, "/api/v1/chains/vector/invoke", dto.InvokeRequest{Prompt: "q"}, http.StatusBadGateway, "generation_failed"},
		{"rate limited", staticLLM{err: nlp.NewRateLimitError()}, "/api/v1/chains/vector/invoke", dto.InvokeRequest{Prompt: "q"}, http.StatusTooManyRequests, "rate_limited"},
		{"no language model", staticLLM{}, "/api/v1/chains/text2cypher/invoke", dto.InvokeRequest{Prompt: "q"}, http.StatusNotImplemented, "generation_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(newTestRegistry(t, tt.llm))
			w := post(t, r, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())

			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErr, resp.Error)
		})
	}
}

func TestSearchWeightedChain(t *testing.T) {
	r := newTestRouter(newTestRegistry(t, nil))

	w := post(t, r, "/api/v1/chains/resume/search", dto.SearchRequest{Query: "graph engineers", TopK: 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.AnswerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Candidates, 2)
	assert.Equal(t, "p1", resp.Candidates[0].Identity)
	assert.InDelta(t, 0.7, resp.Candidates[0].Score, 1e-9)
	assert.Equal(t, []string{"SKILL", "POSITION"}, resp.Candidates[0].Strategies)
	assert.Len(t, resp.Records, 2)
	assert.Len(t, resp.Queries, 2)
	assert.Empty(t, resp.Answer)

	w = post(t, r, "/api/v1/chains/resume/search", dto.SearchRequest{Query: "graph engineers", Weights: []float64{0, 1}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "p2", resp.Candidates[0].Identity)
}

func TestSearchErrors(t *testing.T) {
	r := newTestRouter(newTestRegistry(t, nil))

	tests := []struct {
		name     string
		path     string
		body     dto.SearchRequest
		wantCode int
		wantErr  string
	}{
		{"weight count", "/api/v1/chains/resume/search", dto.SearchRequest{Query: "q", Weights: []float64{1}}, http.StatusBadRequest, "invalid_request"},
		{"all-zero weights", "/api/v1/chains/resume/search", dto.SearchRequest{Query: "q", Weights: []float64{0, 0}}, http.StatusBadRequest, "invalid_request"},
		{"negative weight", "/api/v1/chains/resume/search", dto.SearchRequest{Query: "q", Weights: []float64{-1, 1}}, http.StatusBadRequest, "invalid_request"},
		{"negative top_k", "/api/v1/chains/resume/search", dto.SearchRequest{Query: "q", TopK: -1}, http.StatusBadRequest, "invalid_request"},
		{"weights on single strategy", "/api/v1/chains/vector/search", dto.SearchRequest{Query: "q", Weights: []float64{1}}, http.StatusBadRequest, "invalid_request"},
		{"not searchable", "/api/v1/chains/text2cypher/search", dto.SearchRequest{Query: "q"}, http.StatusBadRequest, "search_unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, r, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())

			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErr, resp.Error)
		})
	}
}

func TestSearchSingleStrategyChain(t *testing.T) {
	r := newTestRouter(newTestRegistry(t, nil))

	w := post(t, r, "/api/v1/chains/vector/search", dto.SearchRequest{Query: "tea"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.AnswerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Records, 1)
	assert.Empty(t, resp.Candidates)
}
