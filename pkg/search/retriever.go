package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/driver"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/embedder"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// DefaultTopK is used when a search asks for zero or fewer records.
const DefaultTopK = 4

// Row columns every retrieval statement must return.
const (
	ColumnText     = "text"
	ColumnScore    = "score"
	ColumnMetadata = "metadata"

	// DefaultHitKey is the metadata field holding a strategy-specific payload.
	DefaultHitKey = "hitData"
)

// Retriever is one retrieval strategy over the graph store.
type Retriever interface {
	Name() string
	Search(ctx context.Context, queryText string, topK int, params map[string]any) (*Result, error)
}

// Result is the outcome of one Retriever invocation.
type Result struct {
	Records []*types.ScoredRecord `json:"records"`
	// Query is the statement issued, with its bound parameters.
	Query *types.RetrievalQuery `json:"query"`
}

// Observer receives retrieval measurements. telemetry.Metrics implements it.
type Observer interface {
	ObserveRetrieval(strategy string, elapsed time.Duration, records int, err error)
}

// VectorRetriever embeds the query text, runs a statement built by its
// QueryBuilder and maps the rows to scored records.
type VectorRetriever struct {
	name          string
	embedder      embedder.Client
	executor      driver.QueryExecutor
	builder       *QueryBuilder
	identityKey   string
	metadataOrder []string
	hitKey        string
	decodeHit     types.HitDecoder
	boostField    string
	logger        *slog.Logger
	observer      Observer
}

// RetrieverOption configures a VectorRetriever.
type RetrieverOption func(*VectorRetriever)

// WithIdentityKey names the metadata field used as record identity. Without
// it the record text is used, then the row position.
func WithIdentityKey(key string) RetrieverOption {
	return func(r *VectorRetriever) { r.identityKey = key }
}

// WithMetadataOrder lists metadata fields that come first, in this order.
// Remaining fields follow sorted by name.
func WithMetadataOrder(keys ...string) RetrieverOption {
	return func(r *VectorRetriever) { r.metadataOrder = keys }
}

// WithHitData moves the metadata field key out of the metadata and decodes
// it into the record's HitData.
func WithHitData(key string, decode types.HitDecoder) RetrieverOption {
	return func(r *VectorRetriever) {
		r.hitKey = key
		r.decodeHit = decode
	}
}

// WithRetrieverLogger sets the logger.
func WithRetrieverLogger(logger *slog.Logger) RetrieverOption {
	return func(r *VectorRetriever) { r.logger = logger }
}

// WithObserver reports every search to o.
func WithObserver(o Observer) RetrieverOption {
	return func(r *VectorRetriever) { r.observer = o }
}

// NewVectorRetriever creates a retriever named name. The name tags every
// record it returns.
func NewVectorRetriever(name string, emb embedder.Client, exec driver.QueryExecutor, builder *QueryBuilder, opts ...RetrieverOption) *VectorRetriever {
	r := &VectorRetriever{
		name:     name,
		embedder: emb,
		executor: exec,
		builder:  builder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.hitKey != "" && r.decodeHit == nil {
		r.decodeHit = types.DecodeHit
	}
	return r
}

// Name returns the strategy name.
func (r *VectorRetriever) Name() string {
	return r.name
}

// Builder returns the query builder.
func (r *VectorRetriever) Builder() *QueryBuilder {
	return r.builder
}

// Search returns every record of the executed statement or an error; partial
// results are never returned.
func (r *VectorRetriever) Search(ctx context.Context, queryText string, topK int, params map[string]any) (res *Result, err error) {
	start := time.Now()
	defer func() {
		if r.observer != nil {
			n := 0
			if res != nil {
				n = len(res.Records)
			}
			r.observer.ObserveRetrieval(r.name, time.Since(start), n, err)
		}
	}()

	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := r.embedder.EmbedSingle(ctx, strings.ReplaceAll(queryText, "\n", " "))
	if err != nil {
		return nil, NewEmbeddingServiceError(r.name, err)
	}

	query := r.builder.Build(r.name, QueryInput{
		K:         topK,
		Embedding: vector,
		Text:      queryText,
		Params:    params,
	})

	rows, err := r.executor.ExecuteQuery(ctx, query.Text, query.Params)
	if err != nil {
		return nil, NewRetrievalExecutionError(r.name, query.Text, err)
	}

	records := make([]*types.ScoredRecord, 0, len(rows))
	for i, row := range rows {
		record, err := r.mapRow(i, row)
		if err != nil {
			return nil, NewRetrievalExecutionError(r.name, query.Text, err)
		}
		records = append(records, record)
	}

	if r.boostField != "" {
		ApplyAuxiliaryBoost(records, r.boostField)
	}

	r.logger.Debug("retrieval completed",
		"strategy", r.name,
		"index", r.builder.Index(),
		"k", topK,
		"records", len(records),
		"duration", time.Since(start))

	return &Result{Records: records, Query: query}, nil
}

func (r *VectorRetriever) mapRow(pos int, row driver.Row) (*types.ScoredRecord, error) {
	var text string
	if raw := row[ColumnText]; raw != nil {
		s, err := driver.MustString(raw, ColumnText)
		if err != nil {
			return nil, err
		}
		text = s
	}

	score, err := driver.MustFloat64(row[ColumnScore], ColumnScore)
	if err != nil {
		return nil, err
	}

	var fields map[string]any
	if raw := row[ColumnMetadata]; raw != nil {
		fields, err = driver.MustMap(raw, ColumnMetadata)
		if err != nil {
			return nil, err
		}
	}

	record := &types.ScoredRecord{
		Text:     text,
		Score:    score,
		Strategy: r.name,
	}

	if r.hitKey != "" {
		if raw, ok := fields[r.hitKey]; ok {
			hit, err := r.decodeHit(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", pos, err)
			}
			record.Hit = hit
		}
	}

	record.Metadata = r.orderedMetadata(fields)
	record.Identity = r.identity(pos, text, fields)
	return record, nil
}

func (r *VectorRetriever) orderedMetadata(fields map[string]any) *types.Metadata {
	meta := types.NewMetadata()
	seen := make(map[string]bool, len(r.metadataOrder)+1)
	seen[r.hitKey] = r.hitKey != ""

	for _, key := range r.metadataOrder {
		if v, ok := fields[key]; ok && !seen[key] {
			meta.Set(key, v)
			seen[key] = true
		}
	}

	rest := make([]string, 0, len(fields))
	for key := range fields {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		meta.Set(key, fields[key])
	}
	return meta
}

func (r *VectorRetriever) identity(pos int, text string, fields map[string]any) string {
	if r.identityKey != "" {
		if v, ok := fields[r.identityKey]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	if text != "" {
		return text
	}
	return fmt.Sprintf("%s:%d", r.name, pos)
}
