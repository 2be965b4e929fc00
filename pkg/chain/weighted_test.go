package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/assembler"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/search"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

func candidateIDs(cs []*types.CandidateRecord) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Identity
	}
	return out
}

func newWeighted(t *testing.T, a, b *stubRetriever, llm *fakeLLM, opts ...Option) *WeightedSearch {
	t.Helper()
	multi, err := search.NewMultiRetriever([]search.Strategy{
		{Retriever: a, Weight: 0.5},
		{Retriever: b, Weight: 0.5},
	})
	require.NoError(t, err)
	if llm == nil {
		return NewWeightedSearch("resume", multi, nil, opts...)
	}
	return NewWeightedSearch("resume", multi, llm, opts...)
}

func TestWeightedSearchFusesStrategies(t *testing.T) {
	t.Parallel()

	a := &stubRetriever{name: "a", records: []*types.ScoredRecord{record("a", "1", 0.8)}}
	b := &stubRetriever{name: "b", records: []*types.ScoredRecord{record("b", "1", 0.6), record("b", "2", 0.9)}}
	c := newWeighted(t, a, b, nil, WithTopK(10))

	answer, err := c.Search(context.Background(), Request{Prompt: "graph engineers"}, nil, 0)
	require.NoError(t, err)

	require.Equal(t, []string{"1", "2"}, candidateIDs(answer.Candidates))
	assert.InDelta(t, 0.7, answer.Candidates[0].Score, 1e-9)
	assert.InDelta(t, 0.45, answer.Candidates[1].Score, 1e-9)
	assert.Equal(t, []string{"a", "b"}, answer.Candidates[0].Strategies)

	assert.Equal(t, 2, answer.Context.Len())
	assert.Len(t, answer.Queries, 2)
	assert.Empty(t, answer.Warnings)
	assert.Empty(t, answer.Answer)
	assert.Equal(t, []int{10}, a.topK)
}

func TestWeightedSearchPerCallWeights(t *testing.T) {
	t.Parallel()

	a := &stubRetriever{name: "a", records: []*types.ScoredRecord{record("a", "1", 0.8)}}
	b := &stubRetriever{name: "b", records: []*types.ScoredRecord{record("b", "1", 0.6), record("b", "2", 0.9)}}
	c := newWeighted(t, a, b, nil)

	answer, err := c.Search(context.Background(), Request{Prompt: "q"}, []float64{0, 1}, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"2"}, candidateIDs(answer.Candidates))
	assert.InDelta(t, 0.9, answer.Candidates[0].Score, 1e-9)

	_, err = c.Search(context.Background(), Request{Prompt: "q"}, []float64{1}, 1)
	assert.ErrorIs(t, err, search.ErrWeightCountMismatch)
}

func TestWeightedSearchReportsFailedStrategies(t *testing.T) {
	t.Parallel()

	a := &stubRetriever{name: "a", records: []*types.ScoredRecord{record("a", "1", 0.8)}}
	b := &stubRetriever{name: "b", err: errors.New("index offline")}
	c := newWeighted(t, a, b, nil)

	answer, err := c.Search(context.Background(), Request{Prompt: "q"}, nil, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, candidateIDs(answer.Candidates))
	assert.Equal(t, []string{"b: index offline"}, answer.Warnings)
	assert.Len(t, answer.Queries, 1)
}

func TestWeightedSearchRendersHits(t *testing.T) {
	t.Parallel()

	skill := record("SKILL", "p1", 0.9, "name", "Ada")
	skill.Hit = types.SkillsHit{Skills: []string{"Go", "Cypher"}}
	person := record("PERSON", "p1", 0.5, "name", "Ada")
	person.Hit = types.GenericHit{Fields: map[string]any{"role": "engineer"}}

	c := newWeighted(t,
		&stubRetriever{name: "SKILL", records: []*types.ScoredRecord{skill}},
		&stubRetriever{name: "PERSON", records: []*types.ScoredRecord{person}},
		nil,
		WithAssembler(assembler.New(
			assembler.WithRenderer("SKILL", assembler.RenderSkills),
			assembler.WithRenderer("PERSON", assembler.RenderNothing),
			assembler.WithStrategyKey(assembler.DefaultStrategyKey))))

	answer, err := c.Search(context.Background(), Request{Prompt: "go developers"}, nil, 10)
	require.NoError(t, err)
	require.Equal(t, 1, answer.Context.Len())

	rec := answer.Context.Records[0]
	hit, _ := rec.Get(assembler.DefaultHitKey)
	assert.Equal(t, "#### Relevant Skills:  \n*Go, Cypher*", hit)
	strategies, _ := rec.Get(assembler.DefaultStrategyKey)
	assert.Equal(t, "SKILL, PERSON", strategies)
}

func TestWeightedSearchInvoke(t *testing.T) {
	t.Parallel()

	a := &stubRetriever{name: "a", records: []*types.ScoredRecord{record("a", "1", 0.8)}}
	b := &stubRetriever{name: "b"}
	llm := &fakeLLM{replies: []string{"Candidate 1 fits."}}
	c := newWeighted(t, a, b, llm, WithInstructions("Rank the candidates."), WithTopK(3))

	answer, err := c.Invoke(context.Background(), Request{Prompt: "Who knows graphs?"})
	require.NoError(t, err)
	assert.Equal(t, "Candidate 1 fits.", answer.Answer)
	assert.Contains(t, llm.prompts[0], "Rank the candidates.\n\n# Question\nWho knows graphs?")
	assert.Equal(t, []string{"a", "b"}, c.Strategies())

	_, err = newWeighted(t, a, b, nil).Invoke(context.Background(), Request{Prompt: "q"})
	assert.ErrorIs(t, err, ErrNoLanguageModel)
}
