package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBuilderDefaultTemplate(t *testing.T) {
	b := NewQueryBuilder("product_text_embeddings")

	want := "CALL db.index.vector.queryNodes($index, $k, $embedding)\nYIELD node, score\n" +
		"RETURN node.`text` AS text, score, node {.*, `text`: Null, `embedding`: Null, id: Null } AS metadata"
	assert.Equal(t, want, b.Template())
	assert.Equal(t, "product_text_embeddings", b.Index())
}

func TestQueryBuilderBindsReservedParams(t *testing.T) {
	b := NewQueryBuilder("idx", WithRetrievalQuery("RETURN node.name AS text, score, {} AS metadata"))

	extra := map[string]any{"customerId": "c-1", "k": 99, "index": "other"}
	q := b.Build("products", QueryInput{
		K:         3,
		Embedding: []float32{0.5, 1},
		Params:    extra,
	})

	assert.Equal(t, "products", q.Strategy)
	assert.Equal(t, "idx", q.Params[ParamIndex])
	assert.Equal(t, 3, q.Params[ParamK])
	assert.Equal(t, []float32{0.5, 1}, q.Params[ParamEmbedding])
	assert.Equal(t, "c-1", q.Params["customerId"])
	assert.NotContains(t, q.Params, ParamKeywordIndex)

	// Caller map is untouched and later changes do not leak in.
	assert.Equal(t, 99, extra["k"])
	extra["customerId"] = "c-2"
	assert.Equal(t, "c-1", q.Params["customerId"])

	assert.True(t, strings.HasPrefix(q.Text, "CALL db.index.vector.queryNodes($index, $k, $embedding)"))
	assert.True(t, strings.HasSuffix(q.Text, "RETURN node.name AS text, score, {} AS metadata"))
	assert.NotContains(t, q.Text, "c-1")

	wantInline := "WITH [0.5, 1] AS queryVector\n" +
		"CALL db.index.vector.queryNodes('idx', 3, queryVector)\nYIELD node, score\n" +
		"RETURN node.name AS text, score, {} AS metadata"
	assert.Equal(t, wantInline, q.Inline)
}

func TestQueryBuilderPrefilter(t *testing.T) {
	b := NewQueryBuilder("idx",
		WithPrefilter(DefaultPrefilter),
		WithEmbeddingProperty("textEmbedding"))

	want := "MATCH(node) WITH node, {} AS prefilterMetadata\n" +
		"WITH node, prefilterMetadata, vector.similarity.cosine($embedding, node.`textEmbedding`) AS score\n" +
		"WHERE score IS NOT NULL\n" +
		"WITH node.`text` AS text,\n" +
		"    score,\n" +
		"    node {.*, `text`: Null, `textEmbedding`: Null, id: Null} AS searchMetadata,\n" +
		"    prefilterMetadata\n" +
		"RETURN text, score, apoc.map.merge(searchMetadata, prefilterMetadata) AS metadata\n" +
		"ORDER by score DESC LIMIT toInteger($k)\n"
	assert.Equal(t, want, b.Template())

	q := b.Build("prefilter", QueryInput{K: 20, Embedding: []float32{0.25}, Params: map[string]any{"customerId": "abc"}})
	assert.Contains(t, q.Inline, "vector.similarity.cosine(queryVector, node.`textEmbedding`)")
	assert.Contains(t, q.Inline, "LIMIT toInteger(20)")
	assert.Equal(t, "abc", q.Params["customerId"])
}

func TestQueryBuilderHybrid(t *testing.T) {
	b := NewQueryBuilder("person_text_embedding",
		WithKeywordIndex("person_full_text"),
		WithRetrievalQuery("RETURN '' AS text, score, {} AS metadata"))

	q := b.Build("PERSON", QueryInput{K: 10, Embedding: []float32{1}, Text: "title:engineer (go)"})

	assert.Contains(t, q.Text, "CALL db.index.fulltext.queryNodes($keyword_index, $query, {limit: $k}) YIELD node, score")
	assert.Contains(t, q.Text, "WITH node, max(score) AS score ORDER BY score DESC LIMIT $k\n")
	assert.Equal(t, "person_full_text", q.Params[ParamKeywordIndex])
	assert.Equal(t, "title engineer  go", q.Params[ParamQuery])
	assert.Contains(t, q.Inline, "CALL db.index.fulltext.queryNodes('person_full_text', 'title engineer  go', {limit: 10})")
}

func TestQueryBuilderClauses(t *testing.T) {
	tests := []struct {
		name    string
		builder *QueryBuilder
		want    []Clause
	}{
		{
			name:    "vector",
			builder: NewQueryBuilder("i"),
			want:    []Clause{VectorIndexScan{}, DefaultProjection{TextProperty: "text", EmbeddingProperty: "embedding"}},
		},
		{
			name:    "hybrid with projection",
			builder: NewQueryBuilder("i", WithKeywordIndex("f"), WithRetrievalQuery("RETURN 1")),
			want:    []Clause{HybridScan{}, Projection{Body: "RETURN 1"}},
		},
		{
			name:    "prefilter",
			builder: NewQueryBuilder("i", WithPrefilter("MATCH (n) WITH n AS node, {} AS prefilterMetadata")),
			want: []Clause{PrefilterScan{
				Fragment:          "MATCH (n) WITH n AS node, {} AS prefilterMetadata",
				TextProperty:      "text",
				EmbeddingProperty: "embedding",
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.builder.Clauses())
		})
	}
}

func TestEscapeIdentifier(t *testing.T) {
	b := NewQueryBuilder("i", WithTextProperty("we`ird"))
	assert.Contains(t, b.Template(), "node.`we``ird` AS text")
}

func TestCypherLiteral(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, "null"},
		{"string quotes", "O'Brien", `'O\'Brien'`},
		{"backslash", `a\b`, `'a\\b'`},
		{"int", 5, "5"},
		{"int64", int64(-2), "-2"},
		{"float", 0.5, "0.5"},
		{"bool", true, "true"},
		{"vector", []float32{0.1, -2}, "[0.1, -2]"},
		{"strings", []string{"a", "b"}, "['a', 'b']"},
		{"map", map[string]any{"b": 1, "a": "x"}, "{`a`: 'x', `b`: 1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cypherLiteral(tt.input))
		})
	}
}

func TestBrowserQueries(t *testing.T) {
	q := NewQueryBuilder("idx").Build("s", QueryInput{K: 2, Embedding: []float32{1, 2}})
	bq, err := q.BrowserQueries()
	require.NoError(t, err)

	assert.Equal(t, `:params {"embedding":[1,2],"index":"idx","k":2}`, bq.ParamsQuery)
	assert.Equal(t, `/browser?cmd=params&arg={"embedding":[1,2],"index":"idx","k":2}`, bq.ParamsURLQuery)
	assert.Equal(t, q.Text, bq.QueryBody)
}
