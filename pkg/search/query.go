package search

import (
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// Reserved parameter names bound by the QueryBuilder. Caller parameters with
// the same names are overridden.
const (
	ParamIndex        = "index"
	ParamK            = "k"
	ParamEmbedding    = "embedding"
	ParamKeywordIndex = "keyword_index"
	ParamQuery        = "query"
)

const (
	DefaultTextProperty      = "text"
	DefaultEmbeddingProperty = "embedding"

	// DefaultPrefilter keeps every node and contributes no metadata.
	DefaultPrefilter = "MATCH(node) WITH node, {} AS prefilterMetadata"

	inlineVectorName = "queryVector"
)

// Clause is one typed fragment of a retrieval statement. Clauses reference
// parameters through the binder so the same clause renders both the
// parameterised statement and the inline display form.
type Clause interface {
	render(b *binder) string
}

type binder struct {
	params map[string]any
	inline bool
}

func (b *binder) ref(name string) string {
	if !b.inline {
		return "$" + name
	}
	if name == ParamEmbedding {
		return inlineVectorName
	}
	v, ok := b.params[name]
	if !ok {
		return "$" + name
	}
	return cypherLiteral(v)
}

// VectorIndexScan yields `node, score` from a vector index.
type VectorIndexScan struct{}

func (VectorIndexScan) render(b *binder) string {
	return fmt.Sprintf("CALL db.index.vector.queryNodes(%s, %s, %s)\nYIELD node, score\n",
		b.ref(ParamIndex), b.ref(ParamK), b.ref(ParamEmbedding))
}

// HybridScan unions a vector index and a fulltext index, each max-scaled,
// and keeps the best score per node.
type HybridScan struct{}

func (HybridScan) render(b *binder) string {
	var sb strings.Builder
	sb.WriteString("CALL {\n")
	fmt.Fprintf(&sb, "    CALL db.index.vector.queryNodes(%s, %s, %s) YIELD node, score\n",
		b.ref(ParamIndex), b.ref(ParamK), b.ref(ParamEmbedding))
	sb.WriteString("    WITH collect({node:node, score:score}) AS nodes, max(score) AS max\n")
	sb.WriteString("    UNWIND nodes AS n\n")
	sb.WriteString("    RETURN n.node AS node, (n.score / max) AS score UNION\n")
	fmt.Fprintf(&sb, "    CALL db.index.fulltext.queryNodes(%s, %s, {limit: %s}) YIELD node, score\n",
		b.ref(ParamKeywordIndex), b.ref(ParamQuery), b.ref(ParamK))
	sb.WriteString("    WITH collect({node:node, score:score}) AS nodes, max(score) AS max\n")
	sb.WriteString("    UNWIND nodes AS n\n")
	sb.WriteString("    RETURN n.node AS node, (n.score / max) AS score\n")
	sb.WriteString("}\n")
	fmt.Fprintf(&sb, "WITH node, max(score) AS score ORDER BY score DESC LIMIT %s\n", b.ref(ParamK))
	return sb.String()
}

// PrefilterScan restricts the candidate nodes with a graph pattern and scores
// the survivors by cosine similarity. Fragment must end with
// `WITH <node> AS node, <map> AS prefilterMetadata`.
type PrefilterScan struct {
	Fragment          string
	TextProperty      string
	EmbeddingProperty string
}

func (p PrefilterScan) render(b *binder) string {
	text := escapeIdentifier(p.TextProperty)
	emb := escapeIdentifier(p.EmbeddingProperty)
	var sb strings.Builder
	sb.WriteString(p.Fragment)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "WITH node, prefilterMetadata, vector.similarity.cosine(%s, node.%s) AS score\n", b.ref(ParamEmbedding), emb)
	sb.WriteString("WHERE score IS NOT NULL\n")
	fmt.Fprintf(&sb, "WITH node.%s AS text,\n", text)
	sb.WriteString("    score,\n")
	fmt.Fprintf(&sb, "    node {.*, %s: Null, %s: Null, id: Null} AS searchMetadata,\n", text, emb)
	sb.WriteString("    prefilterMetadata\n")
	sb.WriteString("RETURN text, score, apoc.map.merge(searchMetadata, prefilterMetadata) AS metadata\n")
	fmt.Fprintf(&sb, "ORDER by score DESC LIMIT toInteger(%s)\n", b.ref(ParamK))
	return sb.String()
}

// Projection is a caller-supplied retrieval clause that follows a scan and
// returns `text, score, metadata`.
type Projection struct {
	Body string
}

func (p Projection) render(*binder) string {
	return p.Body
}

// DefaultProjection returns the node text and every other node property
// except the text, embedding and id.
type DefaultProjection struct {
	TextProperty      string
	EmbeddingProperty string
}

func (p DefaultProjection) render(*binder) string {
	text := escapeIdentifier(p.TextProperty)
	emb := escapeIdentifier(p.EmbeddingProperty)
	return fmt.Sprintf("RETURN node.%s AS text, score, node {.*, %s: Null, %s: Null, id: Null } AS metadata", text, text, emb)
}

// QueryInput carries the per-invocation values bound to a statement.
type QueryInput struct {
	K         int
	Embedding []float32
	// Text is the raw search text, bound only for hybrid searches.
	Text   string
	Params map[string]any
}

// QueryBuilder assembles retrieval statements from typed clauses. Templates
// are fixed at construction; parameter values never enter the statement text.
type QueryBuilder struct {
	index             string
	keywordIndex      string
	textProperty      string
	embeddingProperty string
	retrievalQuery    string
	prefilter         string
}

// QueryOption configures a QueryBuilder.
type QueryOption func(*QueryBuilder)

// WithTextProperty sets the node property holding the searchable text.
func WithTextProperty(name string) QueryOption {
	return func(b *QueryBuilder) { b.textProperty = name }
}

// WithEmbeddingProperty sets the node property holding the embedding.
func WithEmbeddingProperty(name string) QueryOption {
	return func(b *QueryBuilder) { b.embeddingProperty = name }
}

// WithRetrievalQuery replaces the default projection with a graph retrieval
// clause. The clause sees `node` and `score`.
func WithRetrievalQuery(body string) QueryOption {
	return func(b *QueryBuilder) { b.retrievalQuery = body }
}

// WithPrefilter switches the builder to a pre-filtered cosine scan.
func WithPrefilter(fragment string) QueryOption {
	return func(b *QueryBuilder) { b.prefilter = fragment }
}

// WithKeywordIndex switches the builder to hybrid vector and fulltext search.
func WithKeywordIndex(name string) QueryOption {
	return func(b *QueryBuilder) { b.keywordIndex = name }
}

// NewQueryBuilder creates a builder targeting the named vector index.
func NewQueryBuilder(index string, opts ...QueryOption) *QueryBuilder {
	b := &QueryBuilder{
		index:             index,
		textProperty:      DefaultTextProperty,
		embeddingProperty: DefaultEmbeddingProperty,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Index returns the vector index name.
func (b *QueryBuilder) Index() string {
	return b.index
}

// Clauses returns the clauses the builder renders, in order.
func (b *QueryBuilder) Clauses() []Clause {
	if b.prefilter != "" {
		return []Clause{PrefilterScan{
			Fragment:          b.prefilter,
			TextProperty:      b.textProperty,
			EmbeddingProperty: b.embeddingProperty,
		}}
	}

	var scan Clause = VectorIndexScan{}
	if b.keywordIndex != "" {
		scan = HybridScan{}
	}
	if b.retrievalQuery != "" {
		return []Clause{scan, Projection{Body: b.retrievalQuery}}
	}
	return []Clause{scan, DefaultProjection{
		TextProperty:      b.textProperty,
		EmbeddingProperty: b.embeddingProperty,
	}}
}

// Template returns the parameterised statement.
func (b *QueryBuilder) Template() string {
	return b.render(&binder{})
}

// Build binds the input to the template. Reserved parameters win over
// same-named entries in in.Params.
func (b *QueryBuilder) Build(strategy string, in QueryInput) *types.RetrievalQuery {
	params := make(map[string]any, len(in.Params)+5)
	maps.Copy(params, in.Params)
	params[ParamIndex] = b.index
	params[ParamK] = in.K
	params[ParamEmbedding] = in.Embedding
	if b.keywordIndex != "" && b.prefilter == "" {
		params[ParamKeywordIndex] = b.keywordIndex
		params[ParamQuery] = escapeLucene(in.Text)
	}

	q := types.NewRetrievalQuery(strategy, b.Template(), params)
	q.Inline = "WITH " + cypherLiteral(in.Embedding) + " AS " + inlineVectorName + "\n" +
		b.render(&binder{params: params, inline: true})
	return q
}

func (b *QueryBuilder) render(bd *binder) string {
	var sb strings.Builder
	for _, c := range b.Clauses() {
		sb.WriteString(c.render(bd))
	}
	return sb.String()
}

func escapeIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// escapeLucene drops characters with special meaning in fulltext queries.
func escapeLucene(text string) string {
	const special = `+-&|!(){}[]^"~*?:\/`
	out := strings.Map(func(r rune) rune {
		if strings.ContainsRune(special, r) {
			return ' '
		}
		return r
	}, text)
	return strings.TrimSpace(out)
}

func cypherLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
		return "'" + r.Replace(val) + "'"
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case []float32:
		parts := make([]string, len(val))
		for i, f := range val {
			parts[i] = strconv.FormatFloat(float64(f), 'g', -1, 32)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []float64:
		parts := make([]string, len(val))
		for i, f := range val {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []string:
		parts := make([]string, len(val))
		for i, s := range val {
			parts[i] = cypherLiteral(s)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = cypherLiteral(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = escapeIdentifier(k) + ": " + cypherLiteral(val[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return cypherLiteral(fmt.Sprint(val))
	}
}
