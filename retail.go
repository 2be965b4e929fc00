package graphrag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/chain"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/datasets"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/driver"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/embedder"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/nlp"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/prompts"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/search"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// Names reported in retail errors and metrics.
const (
	strategySimilarProducts = "retail-similar-products"
	strategyRecommendations = "retail-recommendations"
	strategySegmentation    = "retail-segmentation"
	strategyProductInfo     = "retail-product-info"
	strategySupplierInfo    = "retail-supplier-info"
)

var (
	// ErrNoIDs is returned when a lookup is asked for an empty id list.
	ErrNoIDs = errors.New("at least one id is required")

	// ErrNoEmbedder is returned by SimilarProducts on a service built
	// without an embedding client.
	ErrNoEmbedder = errors.New("embedding service not configured")
)

// RetailService answers retail analytics questions over the customer graph:
// product similarity, co-purchase recommendations, customer segmentation and
// order statistics, plus free-form questions through generated Cypher.
type RetailService struct {
	exec     driver.WriteExecutor
	similar  *search.VectorRetriever
	answerer *chain.Text2Cypher
	observer search.Observer
	logger   *slog.Logger
}

type retailOptions struct {
	schema    string
	logger    *slog.Logger
	observer  search.Observer
	chainOpts []chain.Option
}

// RetailOption configures a RetailService.
type RetailOption func(*retailOptions)

// WithRetailSchema replaces the schema description given to the model.
func WithRetailSchema(schema string) RetailOption {
	return func(o *retailOptions) { o.schema = schema }
}

// WithRetailLogger sets the logger.
func WithRetailLogger(logger *slog.Logger) RetailOption {
	return func(o *retailOptions) { o.logger = logger }
}

// WithRetailObserver reports every store lookup to obs.
func WithRetailObserver(obs search.Observer) RetailOption {
	return func(o *retailOptions) { o.observer = obs }
}

// WithRetailChainOptions passes extra options to the question answering chain.
func WithRetailChainOptions(opts ...chain.Option) RetailOption {
	return func(o *retailOptions) { o.chainOpts = append(o.chainOpts, opts...) }
}

// NewRetailService creates the service. emb may be nil, disabling
// SimilarProducts; llm may be nil, in which case AnswerQuestion fails with
// chain.ErrNoLanguageModel.
func NewRetailService(emb embedder.Client, exec driver.WriteExecutor, llm nlp.Client, opts ...RetailOption) *RetailService {
	o := retailOptions{schema: datasets.RetailSchema}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	builder := search.NewQueryBuilder(datasets.RetailVectorIndex,
		search.WithEmbeddingProperty(datasets.RetailEmbeddingProperty),
		search.WithRetrievalQuery(datasets.RetailProductRetrievalQuery))
	retrieverOpts := []search.RetrieverOption{
		search.WithIdentityKey(datasets.RetailIdentityKey),
		search.WithRetrieverLogger(o.logger),
	}
	if o.observer != nil {
		retrieverOpts = append(retrieverOpts, search.WithObserver(o.observer))
	}

	chainOpts := append([]chain.Option{
		chain.WithInstructions(o.schema),
		chain.WithGenerationTemplate(prompts.SchemaText2CypherTemplate),
		chain.WithRowAnswer(),
		chain.WithLogger(o.logger),
	}, o.chainOpts...)

	s := &RetailService{
		exec:     exec,
		answerer: chain.NewText2Cypher(ChainRetailText2Cypher, llm, exec, chainOpts...),
		observer: o.observer,
		logger:   o.logger,
	}
	if emb != nil {
		s.similar = search.NewVectorRetriever(strategySimilarProducts, emb, exec, builder, retrieverOpts...)
	}
	return s
}

// Answerer returns the question answering chain.
func (s *RetailService) Answerer() *chain.Text2Cypher {
	return s.answerer
}

// SimilarProducts returns the products whose text is closest to text, most
// similar first.
func (s *RetailService) SimilarProducts(ctx context.Context, text string) ([]types.Product, error) {
	if s.similar == nil {
		return nil, ErrNoEmbedder
	}
	res, err := s.similar.Search(ctx, text, datasets.RetailSimilarTopK, nil)
	if err != nil {
		return nil, err
	}

	products := make([]types.Product, 0, len(res.Records))
	for _, rec := range res.Records {
		var p types.Product
		if err := decode(metadataFields(rec.Metadata), &p); err != nil {
			return nil, search.NewRetrievalExecutionError(strategySimilarProducts, res.Query.Text, err)
		}
		if p.Text == "" {
			p.Text = rec.Text
		}
		p.Score = rec.Score
		products = append(products, p)
	}
	return products, nil
}

// Recommendations returns the products most often bought by customers who
// bought one of the given articles or products, or who belong to one of the
// given segments. The score is the number of co-purchases.
func (s *RetailService) Recommendations(ctx context.Context, ids []int64) ([]types.Product, error) {
	if len(ids) == 0 {
		return nil, ErrNoIDs
	}

	rows, err := s.read(ctx, strategyRecommendations, datasets.RetailRecommendationsQuery, map[string]any{"itemIds": ids})
	if err != nil {
		return nil, err
	}

	products := make([]types.Product, 0, len(rows))
	for i, row := range rows {
		var p types.Product
		if err := decode(row["product"], &p); err != nil {
			return nil, search.NewRetrievalExecutionError(strategyRecommendations, datasets.RetailRecommendationsQuery,
				fmt.Errorf("row %d: %w", i, err))
		}
		if score, ok := driver.AsFloat64(row["recommendationScore"]); ok {
			p.Score = score
		}
		products = append(products, p)
	}
	return products, nil
}

// CreateCustomerSegments recomputes customer segments from co-purchases and
// returns them, largest first. Existing segment ids and the projected graph
// are dropped first.
func (s *RetailService) CreateCustomerSegments(ctx context.Context) ([]types.CustomerSegment, error) {
	params := map[string]any{"graphName": datasets.RetailSegmentGraph}

	steps := []struct {
		name  string
		query string
	}{
		{"drop projection", datasets.RetailDropSegmentGraphQuery},
		{"clear segments", datasets.RetailClearSegmentsQuery},
		{"project co-purchases", datasets.RetailProjectSegmentsQuery},
		{"detect communities", datasets.RetailLeidenQuery},
	}
	for _, step := range steps {
		rows, err := s.exec.ExecuteWrite(ctx, step.query, params)
		if err != nil {
			return nil, search.NewRetrievalExecutionError(strategySegmentation, step.query,
				fmt.Errorf("%s: %w", step.name, err))
		}
		s.logger.DebugContext(ctx, "segmentation step completed", "step", step.name, "rows", len(rows))
		if step.query == datasets.RetailLeidenQuery && len(rows) > 0 {
			s.logger.InfoContext(ctx, "customer segments written",
				"communities", rows[0]["communityCount"],
				"customers", rows[0]["nodePropertiesWritten"])
		}
	}

	rows, err := s.read(ctx, strategySegmentation, datasets.RetailSegmentsQuery, nil)
	if err != nil {
		return nil, err
	}
	return decodeRows[types.CustomerSegment](strategySegmentation, datasets.RetailSegmentsQuery, rows)
}

// ProductOrderSupplierInfo returns order and return totals for the given
// products, broken down by supplier.
func (s *RetailService) ProductOrderSupplierInfo(ctx context.Context, productCodes []int64) ([]types.ProductInfo, error) {
	if len(productCodes) == 0 {
		return nil, ErrNoIDs
	}
	rows, err := s.read(ctx, strategyProductInfo, datasets.RetailProductInfoQuery, map[string]any{"productCodes": productCodes})
	if err != nil {
		return nil, err
	}
	return decodeRows[types.ProductInfo](strategyProductInfo, datasets.RetailProductInfoQuery, rows)
}

// SupplierOrderProductInfo returns order and return totals for the given
// suppliers, broken down by product.
func (s *RetailService) SupplierOrderProductInfo(ctx context.Context, supplierIDs []int64) ([]types.SupplierInfo, error) {
	if len(supplierIDs) == 0 {
		return nil, ErrNoIDs
	}
	rows, err := s.read(ctx, strategySupplierInfo, datasets.RetailSupplierInfoQuery, map[string]any{"supplierIds": supplierIDs})
	if err != nil {
		return nil, err
	}
	return decodeRows[types.SupplierInfo](strategySupplierInfo, datasets.RetailSupplierInfoQuery, rows)
}

// AnswerQuestion answers a question no other operation covers by generating
// and running a Cypher statement. The answer lists the result rows.
func (s *RetailService) AnswerQuestion(ctx context.Context, question string) (*chain.Answer, error) {
	return s.answerer.Invoke(ctx, chain.Request{Prompt: question})
}

func (s *RetailService) read(ctx context.Context, name, query string, params map[string]any) (rows []driver.Row, err error) {
	if s.observer != nil {
		start := time.Now()
		defer func() {
			s.observer.ObserveRetrieval(name, time.Since(start), len(rows), err)
		}()
	}

	rows, err = s.exec.ExecuteQuery(ctx, query, params)
	if err != nil {
		return nil, search.NewRetrievalExecutionError(name, query, err)
	}
	return rows, nil
}

func decodeRows[T any](name, query string, rows []driver.Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		var v T
		if err := decode(row, &v); err != nil {
			return nil, search.NewRetrievalExecutionError(name, query, fmt.Errorf("row %d: %w", i, err))
		}
		out = append(out, v)
	}
	return out, nil
}

func decode(input, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func metadataFields(m *types.Metadata) map[string]any {
	fields := map[string]any{}
	if m == nil {
		return fields
	}
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		fields[pair.Key] = pair.Value
	}
	return fields
}
