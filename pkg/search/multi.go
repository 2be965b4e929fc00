package search

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/utils"
)

// Strategy is one retriever taking part in a multi-strategy search.
type Strategy struct {
	Retriever Retriever
	// Weight is the strategy's share in weighted fusion. When every configured
	// weight is zero the strategies are fused unweighted.
	Weight float64
	// TopK overrides the per-strategy k. Zero uses the search's topK.
	TopK int
}

// MultiResult is the outcome of a multi-strategy search.
type MultiResult struct {
	Candidates []*types.CandidateRecord `json:"candidates"`
	// Queries holds one query per successful strategy, in strategy order.
	Queries  []*types.RetrievalQuery `json:"queries"`
	Failures []StrategyFailure       `json:"failures,omitempty"`
}

// Warnings returns the failures as display strings.
func (r *MultiResult) Warnings() []string {
	out := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		out[i] = f.Message()
	}
	return out
}

// MultiRetriever runs several strategies concurrently and fuses their results.
type MultiRetriever struct {
	strategies   []Strategy
	mode         FusionMode
	maxScale     bool
	failFast     bool
	concurrency  int
	rankConstant int
	logger       *slog.Logger
}

// MultiOption configures a MultiRetriever.
type MultiOption func(*MultiRetriever)

// WithFusionMode selects weighted (default) or reciprocal rank fusion.
func WithFusionMode(mode FusionMode) MultiOption {
	return func(m *MultiRetriever) { m.mode = mode }
}

// WithMaxScale max-normalizes each strategy's scores before weighting.
func WithMaxScale() MultiOption {
	return func(m *MultiRetriever) { m.maxScale = true }
}

// WithFailFast makes any strategy failure fail the whole search. By default
// failed strategies are reported in MultiResult.Failures and the rest are
// fused.
func WithFailFast(failFast bool) MultiOption {
	return func(m *MultiRetriever) { m.failFast = failFast }
}

// WithConcurrency bounds the number of strategies searched at once.
func WithConcurrency(n int) MultiOption {
	return func(m *MultiRetriever) { m.concurrency = n }
}

// WithRankConstant sets k for reciprocal rank fusion.
func WithRankConstant(k int) MultiOption {
	return func(m *MultiRetriever) { m.rankConstant = k }
}

// WithMultiLogger sets the logger.
func WithMultiLogger(logger *slog.Logger) MultiOption {
	return func(m *MultiRetriever) { m.logger = logger }
}

// NewMultiRetriever creates a MultiRetriever over strategies.
func NewMultiRetriever(strategies []Strategy, opts ...MultiOption) (*MultiRetriever, error) {
	if len(strategies) == 0 {
		return nil, ErrNoRetrievers
	}
	m := &MultiRetriever{
		strategies:   strategies,
		mode:         FusionWeighted,
		rankConstant: DefaultRankConstant,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Strategies returns the configured strategies.
func (m *MultiRetriever) Strategies() []Strategy {
	return m.strategies
}

// Search queries every strategy and fuses the results into at most topK
// candidates. It fails when every strategy fails, or on the first failure
// in fail-fast mode.
func (m *MultiRetriever) Search(ctx context.Context, queryText string, topK int, params map[string]any) (*MultiResult, error) {
	return m.SearchWeighted(ctx, queryText, nil, topK, params)
}

// SearchWeighted is Search with per-call weights that replace the
// configured ones. weights must be nil or match the number of strategies.
// Per-call weights are always applied: an all-zero vector, or one whose
// non-zero entries belong only to failed strategies, fails with
// ErrDivisionByZero.
func (m *MultiRetriever) SearchWeighted(ctx context.Context, queryText string, weights []float64, topK int, params map[string]any) (*MultiResult, error) {
	if weights != nil && len(weights) != len(m.strategies) {
		return nil, fmt.Errorf("%w: %d weights for %d strategies", ErrWeightCountMismatch, len(weights), len(m.strategies))
	}

	results := make([]*Result, len(m.strategies))
	errs := make([]error, len(m.strategies))

	g, gctx := errgroup.WithContext(ctx)
	if m.concurrency > 0 {
		g.SetLimit(m.concurrency)
	}
	for i, s := range m.strategies {
		k := s.TopK
		if k <= 0 {
			k = topK
		}
		g.Go(func() error {
			res, err := m.searchOne(gctx, s.Retriever, queryText, k, params)
			if err != nil {
				errs[i] = err
				if m.failFast {
					return err
				}
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &MultiResult{}
	var sets [][]*types.ScoredRecord
	var setWeights []float64
	for i, s := range m.strategies {
		if errs[i] != nil {
			out.Failures = append(out.Failures, StrategyFailure{Strategy: s.Retriever.Name(), Err: errs[i]})
			m.logger.Warn("retrieval strategy failed", "strategy", s.Retriever.Name(), "error", errs[i])
			continue
		}
		out.Queries = append(out.Queries, results[i].Query)

		records := results[i].Records
		if m.maxScale {
			scaled, err := MaxScale(records)
			if err != nil {
				return nil, fmt.Errorf("failed to scale %s results: %w", s.Retriever.Name(), err)
			}
			records = scaled
		}
		sets = append(sets, records)

		w := s.Weight
		if weights != nil {
			w = weights[i]
		}
		setWeights = append(setWeights, w)
	}

	if len(out.Failures) == len(m.strategies) {
		return nil, &PartialFailureError{Failures: out.Failures}
	}

	candidates, err := m.fuse(sets, setWeights, weights != nil || m.configuredWeights(), topK)
	if err != nil {
		return nil, err
	}
	out.Candidates = candidates
	return out, nil
}

func (m *MultiRetriever) searchOne(ctx context.Context, r Retriever, queryText string, k int, params map[string]any) (res *Result, err error) {
	defer utils.RecoverAsError(&err, m.logger, r.Name())
	return r.Search(ctx, queryText, k, params)
}

// configuredWeights reports whether any strategy carries a non-zero weight.
func (m *MultiRetriever) configuredWeights() bool {
	for _, s := range m.strategies {
		if s.Weight != 0 {
			return true
		}
	}
	return false
}

// fuse combines the surviving sets. Once weighting is in effect, either from
// per-call weights or from the configured ones, the survivors are always
// fused weighted: a zero weight sum is an error, never a silent switch to
// unweighted fusion.
func (m *MultiRetriever) fuse(sets [][]*types.ScoredRecord, weights []float64, weighted bool, topK int) ([]*types.CandidateRecord, error) {
	if m.mode == FusionReciprocal {
		return FuseReciprocal(sets, m.rankConstant, topK), nil
	}
	if !weighted {
		return Fuse(sets, nil, topK)
	}
	return Fuse(sets, weights, topK)
}
