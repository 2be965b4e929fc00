package search

import (
	"fmt"
	"sort"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// DefaultRankConstant is the k of reciprocal rank fusion.
const DefaultRankConstant = 60

// FusionMode selects how MultiRetriever combines result sets.
type FusionMode string

const (
	// FusionWeighted sums normalized, weighted scores (Fuse).
	FusionWeighted FusionMode = "weighted"
	// FusionReciprocal sums reciprocal ranks (FuseReciprocal).
	FusionReciprocal FusionMode = "reciprocal"
)

// Fuse merges result sets into candidates grouped by identity and ordered by
// aggregate score, highest first.
//
// With weights, which must match the number of sets, the weights are
// sum-normalized and each set's scores are multiplied by its weight. Without
// weights (nil or empty) each set is max-normalized instead. Empty sets are
// skipped. A candidate keeps the text and metadata of its first occurrence and
// one hit per contributing record, in set order. Ties keep discovery order.
// topK <= 0 returns every candidate.
func Fuse(sets [][]*types.ScoredRecord, weights []float64, topK int) ([]*types.CandidateRecord, error) {
	var factors []float64
	if len(weights) > 0 {
		if len(weights) != len(sets) {
			return nil, fmt.Errorf("%w: %d weights for %d result sets", ErrWeightCountMismatch, len(weights), len(sets))
		}
		norm, err := SumNormalize(weights)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize weights: %w", err)
		}
		factors = norm
	}

	g := newCandidateGroups()
	for i, set := range sets {
		if len(set) == 0 {
			continue
		}

		scores := make([]float64, len(set))
		for j, rec := range set {
			scores[j] = rec.Score
		}
		if factors != nil {
			for j := range scores {
				scores[j] *= factors[i]
			}
		} else {
			norm, err := MaxNormalize(scores)
			if err != nil {
				return nil, fmt.Errorf("failed to normalize result set %d: %w", i, err)
			}
			scores = norm
		}

		for j, rec := range set {
			g.add(rec, scores[j])
		}
	}
	return g.ranked(topK), nil
}

// FuseReciprocal merges result sets by reciprocal rank: each record adds
// 1/(rank + rankConstant) to its candidate, with rank starting at 1. Raw
// scores are ignored, so no normalization is needed.
func FuseReciprocal(sets [][]*types.ScoredRecord, rankConstant int, topK int) []*types.CandidateRecord {
	if rankConstant <= 0 {
		rankConstant = DefaultRankConstant
	}

	g := newCandidateGroups()
	for _, set := range sets {
		for i, rec := range set {
			g.add(rec, 1.0/float64(i+1+rankConstant))
		}
	}
	return g.ranked(topK)
}

// MaxScale returns copies of records with scores divided by the largest
// score. An empty set is returned unchanged.
func MaxScale(records []*types.ScoredRecord) ([]*types.ScoredRecord, error) {
	if len(records) == 0 {
		return records, nil
	}
	scores := make([]float64, len(records))
	for i, rec := range records {
		scores[i] = rec.Score
	}
	norm, err := MaxNormalize(scores)
	if err != nil {
		return nil, err
	}
	out := make([]*types.ScoredRecord, len(records))
	for i, rec := range records {
		scaled := *rec
		scaled.Score = norm[i]
		out[i] = &scaled
	}
	return out, nil
}

type candidateGroups struct {
	byIdentity map[string]*types.CandidateRecord
	order      []*types.CandidateRecord
}

func newCandidateGroups() *candidateGroups {
	return &candidateGroups{byIdentity: make(map[string]*types.CandidateRecord)}
}

func (g *candidateGroups) add(rec *types.ScoredRecord, score float64) {
	c, ok := g.byIdentity[rec.Identity]
	if !ok {
		c = &types.CandidateRecord{
			Identity: rec.Identity,
			Text:     rec.Text,
			Metadata: types.CloneMetadata(rec.Metadata),
		}
		g.byIdentity[rec.Identity] = c
		g.order = append(g.order, c)
	}
	c.Score += score
	c.Hits = append(c.Hits, types.StrategyHit{
		Strategy: rec.Strategy,
		Score:    score,
		Payload:  rec.Hit,
	})
	if !c.HasStrategy(rec.Strategy) {
		c.Strategies = append(c.Strategies, rec.Strategy)
	}
}

func (g *candidateGroups) ranked(topK int) []*types.CandidateRecord {
	out := g.order
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	if out == nil {
		out = []*types.CandidateRecord{}
	}
	return out
}
