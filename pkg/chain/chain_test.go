package chain

import (
	"context"
	"sync"
	"time"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/driver"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/search"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// fakeLLM answers call i with replies[i] (the last reply repeats) unless
// errs[i] is set.
type fakeLLM struct {
	mu         sync.Mutex
	replies    []string
	errs       []error
	prompts    []string
	usages     []string
	chains     []string
	structured int
}

func (f *fakeLLM) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return f.reply(ctx, messages)
}

func (f *fakeLLM) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, _ any) (*types.Response, error) {
	f.mu.Lock()
	f.structured++
	f.mu.Unlock()
	return f.reply(ctx, messages)
}

func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) reply(ctx context.Context, messages []types.Message) (*types.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i := len(f.prompts)
	f.prompts = append(f.prompts, messages[len(messages)-1].Content)
	usage, _ := ctx.Value(types.ContextKeyUsage).(string)
	f.usages = append(f.usages, usage)
	name, _ := ctx.Value(types.ContextKeyChain).(string)
	f.chains = append(f.chains, name)

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if len(f.replies) == 0 {
		return &types.Response{Model: "fake"}, nil
	}
	return &types.Response{Content: f.replies[min(i, len(f.replies)-1)], Model: "fake"}, nil
}

type fakeExecutor struct {
	mu     sync.Mutex
	rows   []driver.Row
	err    error
	cypher []string
	params []map[string]any
}

func (f *fakeExecutor) ExecuteQuery(_ context.Context, cypher string, params map[string]any) ([]driver.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cypher = append(f.cypher, cypher)
	f.params = append(f.params, params)
	return f.rows, f.err
}

type fakeEmbedder struct {
	vector []float32
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(context.Context, string) ([]float32, error) { return f.vector, nil }
func (f *fakeEmbedder) Dimensions() int                                        { return len(f.vector) }
func (f *fakeEmbedder) Close() error                                           { return nil }

type stubRetriever struct {
	name    string
	records []*types.ScoredRecord
	err     error

	mu     sync.Mutex
	texts  []string
	topK   []int
	params []map[string]any
	chain  string
}

func (s *stubRetriever) Name() string { return s.name }

func (s *stubRetriever) Search(ctx context.Context, queryText string, topK int, params map[string]any) (*search.Result, error) {
	s.mu.Lock()
	s.texts = append(s.texts, queryText)
	s.topK = append(s.topK, topK)
	s.params = append(s.params, params)
	s.chain, _ = ctx.Value(types.ContextKeyChain).(string)
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	return &search.Result{
		Records: s.records,
		Query:   types.NewRetrievalQuery(s.name, "CALL db.index.vector.queryNodes($index, $k, $embedding)", params),
	}, nil
}

type recordingObserver struct {
	mu     sync.Mutex
	chains []string
	errs   []error
}

func (o *recordingObserver) ObserveChain(chain string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.chains = append(o.chains, chain)
	o.errs = append(o.errs, err)
}

func record(strategy, id string, score float64, kv ...any) *types.ScoredRecord {
	return &types.ScoredRecord{
		Identity: id,
		Score:    score,
		Strategy: strategy,
		Metadata: types.MetadataFromPairs(append([]any{"id", id}, kv...)...),
	}
}
