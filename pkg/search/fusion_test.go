package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

func rec(strategy, id string, score float64) *types.ScoredRecord {
	return &types.ScoredRecord{
		Identity: id,
		Score:    score,
		Strategy: strategy,
		Metadata: types.MetadataFromPairs("id", id, "strategy", strategy),
	}
}

func identities(cs []*types.CandidateRecord) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Identity
	}
	return out
}

func TestFuseWeightedScenario(t *testing.T) {
	sets := [][]*types.ScoredRecord{
		{rec("a", "id1", 0.8)},
		{rec("b", "id1", 0.6), rec("b", "id2", 0.9)},
	}

	got, err := Fuse(sets, []float64{0.5, 0.5}, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, []string{"id1", "id2"}, identities(got))
	assert.InDelta(t, 0.7, got[0].Score, 1e-12)
	assert.InDelta(t, 0.45, got[1].Score, 1e-12)

	assert.Equal(t, []string{"a", "b"}, got[0].Strategies)
	require.Len(t, got[0].Hits, 2)
	assert.Equal(t, "a", got[0].Hits[0].Strategy)
	assert.InDelta(t, 0.4, got[0].Hits[0].Score, 1e-12)
	assert.Equal(t, "b", got[0].Hits[1].Strategy)
	assert.InDelta(t, 0.3, got[0].Hits[1].Score, 1e-12)

	// First-seen metadata wins.
	v, ok := got[0].Metadata.Get("strategy")
	require.True(t, ok)
	assert.Equal(t, "a", v)
}

func TestFuseSkipsEmptySets(t *testing.T) {
	sets := [][]*types.ScoredRecord{
		{},
		{rec("b", "id1", 0.5), rec("b", "id2", 0.25)},
	}

	got, err := Fuse(sets, nil, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 1.0, got[0].Score, 1e-12)
	assert.InDelta(t, 0.5, got[1].Score, 1e-12)

	got, err = Fuse(sets, []float64{1, 1}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"id1", "id2"}, identities(got))
}

func TestFuseEmptyInput(t *testing.T) {
	got, err := Fuse(nil, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)

	got, err = Fuse([][]*types.ScoredRecord{{}, {}}, []float64{0.3, 0.7}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFuseErrors(t *testing.T) {
	sets := [][]*types.ScoredRecord{{rec("a", "id1", 1)}}

	_, err := Fuse(sets, []float64{0.5, 0.5}, 5)
	assert.ErrorIs(t, err, ErrWeightCountMismatch)

	_, err = Fuse(sets, []float64{0}, 5)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = Fuse([][]*types.ScoredRecord{{rec("a", "id1", 0)}}, nil, 5)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestFuseStableTies(t *testing.T) {
	sets := [][]*types.ScoredRecord{
		{rec("a", "x", 1), rec("a", "y", 1), rec("a", "z", 1)},
	}
	got, err := Fuse(sets, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, identities(got))
}

func TestFuseReciprocal(t *testing.T) {
	sets := [][]*types.ScoredRecord{
		{rec("a", "id1", 0.1), rec("a", "id2", 0.9)},
		{rec("b", "id2", 5), rec("b", "id3", 4)},
	}
	got := FuseReciprocal(sets, 0, 10)
	require.Len(t, got, 3)

	assert.Equal(t, "id2", got[0].Identity)
	assert.InDelta(t, 1.0/62+1.0/61, got[0].Score, 1e-12)
	assert.ElementsMatch(t, []string{"a", "b"}, got[0].Strategies)
	assert.Equal(t, []string{"id2", "id1", "id3"}, identities(got))
}

func TestMaxScale(t *testing.T) {
	records := []*types.ScoredRecord{rec("a", "x", 2), rec("a", "y", 1)}
	scaled, err := MaxScale(records)
	require.NoError(t, err)
	assert.Equal(t, 1.0, scaled[0].Score)
	assert.Equal(t, 0.5, scaled[1].Score)
	assert.Equal(t, 2.0, records[0].Score, "input must not change")

	empty, err := MaxScale(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func drawResultSets(rt *rapid.T) [][]*types.ScoredRecord {
	numSets := rapid.IntRange(1, 4).Draw(rt, "numSets")
	sets := make([][]*types.ScoredRecord, numSets)
	for i := range sets {
		n := rapid.IntRange(0, 8).Draw(rt, fmt.Sprintf("len%d", i))
		strategy := fmt.Sprintf("s%d", i)
		seen := map[string]bool{}
		for j := 0; j < n; j++ {
			id := fmt.Sprintf("id%d", rapid.IntRange(0, 9).Draw(rt, "id"))
			if seen[id] {
				continue
			}
			seen[id] = true
			score := rapid.Float64Range(0.01, 1).Draw(rt, "score")
			sets[i] = append(sets[i], rec(strategy, id, score))
		}
	}
	return sets
}

func TestFuseProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sets := drawResultSets(rt)
		weights := make([]float64, len(sets))
		for i := range weights {
			weights[i] = rapid.Float64Range(0.1, 5).Draw(rt, "weight")
		}
		topK := rapid.IntRange(1, 12).Draw(rt, "topK")

		distinct := map[string]bool{}
		for _, set := range sets {
			for _, r := range set {
				distinct[r.Identity] = true
			}
		}

		all, err := Fuse(sets, weights, 0)
		require.NoError(rt, err)

		// Completeness: every identity exactly once.
		seen := map[string]int{}
		for _, c := range all {
			seen[c.Identity]++
		}
		assert.Len(rt, seen, len(distinct))
		for id, n := range seen {
			assert.Equal(rt, 1, n, "identity %s", id)
		}

		// Scoring: aggregate is the sum of weighted member scores.
		norm, err := SumNormalize(weights)
		require.NoError(rt, err)
		expected := map[string]float64{}
		for i, set := range sets {
			for _, r := range set {
				expected[r.Identity] += r.Score * norm[i]
			}
		}
		for _, c := range all {
			assert.InDelta(rt, expected[c.Identity], c.Score, 1e-9)
		}

		// Ordering.
		for i := 1; i < len(all); i++ {
			assert.GreaterOrEqual(rt, all[i-1].Score, all[i].Score)
		}

		// Truncation.
		truncated, err := Fuse(sets, weights, topK)
		require.NoError(rt, err)
		assert.Len(rt, truncated, min(topK, len(distinct)))

		// Determinism.
		again, err := Fuse(sets, weights, topK)
		require.NoError(rt, err)
		assert.Equal(rt, identities(truncated), identities(again))
		for i := range truncated {
			assert.Equal(rt, truncated[i].Score, again[i].Score)
		}
	})
}

func TestFuseUnweightedProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sets := drawResultSets(rt)

		got, err := Fuse(sets, nil, 0)
		require.NoError(rt, err)

		nonEmpty := 0
		for _, set := range sets {
			if len(set) > 0 {
				nonEmpty++
			}
		}
		for _, c := range got {
			assert.LessOrEqual(rt, c.Score, float64(nonEmpty)+1e-9)
			assert.Greater(rt, c.Score, 0.0)
		}
	})
}
