package graphrag

import (
	"fmt"
	"os"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/assembler"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/chain"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/config"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/datasets"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/driver"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/search"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// Registered chain names.
const (
	ChainNorthwindVector      = "northwind-vector"
	ChainNorthwindGraph       = "northwind-graph"
	ChainNorthwindText2Cypher = "northwind-text2cypher"
	ChainHMPrefilter          = "hm-prefilter"
	ChainHMPostfilter         = "hm-postfilter"
	ChainResume               = "resume"
	ChainRetailText2Cypher    = "retail-text2cypher"
)

type resumeHit struct {
	decode types.HitDecoder
	render assembler.Renderer
}

var resumeHits = map[string]resumeHit{
	datasets.StrategyPerson:   {decode: types.DecodeGeneric, render: assembler.RenderNothing},
	datasets.StrategySkill:    {decode: types.DecodeSkills, render: assembler.RenderSkills},
	datasets.StrategyPosition: {decode: types.DecodePositions, render: assembler.RenderPositions},
}

func (c *Client) registerChains() error {
	if d, ok := c.drivers[config.DatasetNorthwind]; ok {
		c.registerNorthwind(c.executor(config.DatasetNorthwind, d))
	}
	if d, ok := c.drivers[config.DatasetHM]; ok {
		c.registerHM(c.executor(config.DatasetHM, d))
	}
	if d, ok := c.drivers[config.DatasetResume]; ok {
		if err := c.registerResume(c.executor(config.DatasetResume, d)); err != nil {
			return err
		}
	}
	if d, ok := c.drivers[config.DatasetRetail]; ok {
		if err := c.registerRetail(c.executor(config.DatasetRetail, d)); err != nil {
			return err
		}
	}

	c.logger.Info("chains registered", "chains", c.ChainNames())
	return nil
}

func (c *Client) register(ch chain.Chain) {
	c.chains[ch.Name()] = ch
}

// executor puts the dataset's driver behind a circuit breaker when enabled.
func (c *Client) executor(dataset string, d driver.GraphDriver) driver.WriteExecutor {
	if !c.config.CircuitBreaker.Enabled {
		return d
	}
	return driver.NewBreakerExecutor(d, c.config.CircuitBreaker, "neo4j-"+dataset, c.logger)
}

// skipWithoutLLM reports whether a chain that only generates must be left
// out because no language model is configured.
func (c *Client) skipWithoutLLM(name string) bool {
	if c.llm != nil {
		return false
	}
	c.logger.Warn("language model not configured, chain not registered", "chain", name)
	return true
}

func (c *Client) registerNorthwind(exec driver.WriteExecutor) {
	if !c.skipWithoutLLM(ChainNorthwindText2Cypher) {
		c.register(chain.NewText2Cypher(ChainNorthwindText2Cypher, c.llm, exec,
			c.text2CypherOptions(datasets.NorthwindStripProperties,
				chain.WithInstructions(datasets.NorthwindSchemaInstructions))...))
	}

	if c.embedder == nil {
		return
	}

	topK := c.config.Retrieval.TopK
	if topK <= 0 {
		topK = datasets.NorthwindTopK
	}
	queryOpts := []search.QueryOption{
		search.WithTextProperty(c.textProperty()),
		search.WithEmbeddingProperty(datasets.NorthwindEmbeddingProperty),
	}

	vector := search.NewVectorRetriever(ChainNorthwindVector, c.embedder, exec,
		search.NewQueryBuilder(datasets.NorthwindVectorIndex, queryOpts...),
		c.retrieverOptions()...)
	c.register(chain.NewGraphRAG(ChainNorthwindVector, vector, c.llm,
		c.chainOptions(chain.WithInstructions(datasets.ProductExpertInstructions), chain.WithTopK(topK))...))

	graph := search.NewVectorRetriever(ChainNorthwindGraph, c.embedder, exec,
		search.NewQueryBuilder(datasets.NorthwindVectorIndex,
			append(queryOpts, search.WithRetrievalQuery(datasets.NorthwindGraphRetrievalQuery))...),
		c.retrieverOptions()...)
	c.register(chain.NewGraphRAG(ChainNorthwindGraph, graph, c.llm,
		c.chainOptions(chain.WithInstructions(datasets.ProductExpertInstructions), chain.WithTopK(topK))...))
}

// registerHM adds the customer-scoped chains. Both expect the customerId
// parameter and take their instructions from the request.
func (c *Client) registerHM(exec driver.WriteExecutor) {
	if c.embedder == nil {
		return
	}

	prefilter := search.NewVectorRetriever(ChainHMPrefilter, c.embedder, exec,
		search.NewQueryBuilder(datasets.HMVectorIndex,
			search.WithTextProperty(c.textProperty()),
			search.WithEmbeddingProperty(datasets.HMEmbeddingProperty),
			search.WithPrefilter(datasets.HMPrefilterQuery)),
		c.retrieverOptions()...)
	c.register(chain.NewGraphRAG(ChainHMPrefilter, prefilter, c.llm,
		c.chainOptions(chain.WithTopK(datasets.HMPrefilterTopK))...))

	postfilter := search.NewVectorRetriever(ChainHMPostfilter, c.embedder, exec,
		search.NewQueryBuilder(datasets.HMVectorIndex,
			search.WithTextProperty(c.textProperty()),
			search.WithEmbeddingProperty(datasets.HMEmbeddingProperty),
			search.WithRetrievalQuery(datasets.HMPostfilterQuery)),
		c.retrieverOptions(search.WithAuxiliaryBoost(datasets.PurchaseScoreKey))...)
	c.register(chain.NewGraphRAG(ChainHMPostfilter, postfilter, c.llm,
		c.chainOptions(chain.WithTopK(datasets.HMPostfilterTopK))...))
}

func (c *Client) registerResume(exec driver.WriteExecutor) error {
	if c.embedder == nil {
		return nil
	}

	strategies := make([]search.Strategy, 0, len(datasets.ResumeStrategies))
	assemblerOpts := []assembler.Option{assembler.WithStrategyKey(assembler.DefaultStrategyKey)}
	for _, s := range datasets.ResumeStrategies {
		hit := resumeHits[s.Name]
		builder := search.NewQueryBuilder(s.VectorIndex,
			search.WithKeywordIndex(s.KeywordIndex),
			search.WithRetrievalQuery(s.RetrievalQuery))
		r := search.NewVectorRetriever(s.Name, c.embedder, exec, builder, c.retrieverOptions(
			search.WithIdentityKey(datasets.ResumeIdentityKey),
			search.WithMetadataOrder(datasets.ResumeMetadataOrder...),
			search.WithHitData(search.DefaultHitKey, hit.decode))...)
		strategies = append(strategies, search.Strategy{Retriever: r, Weight: 1, TopK: datasets.ResumeStrategyK})
		assemblerOpts = append(assemblerOpts, assembler.WithRenderer(s.Name, hit.render))
	}

	multi, err := search.NewMultiRetriever(strategies,
		search.WithMaxScale(),
		search.WithFailFast(c.config.Retrieval.FailFast),
		search.WithConcurrency(c.config.Retrieval.MaxConcurrency),
		search.WithMultiLogger(c.logger))
	if err != nil {
		return fmt.Errorf("resume chain: %w", err)
	}

	c.register(chain.NewWeightedSearch(ChainResume, multi, c.llm, c.chainOptions(
		chain.WithInstructions(datasets.ResumeInstructions),
		chain.WithTopK(datasets.ResumeTopK),
		chain.WithAssembler(c.assembler(assemblerOpts...)))...))
	return nil
}

func (c *Client) registerRetail(exec driver.WriteExecutor) error {
	opts := []RetailOption{
		WithRetailLogger(c.logger),
		WithRetailChainOptions(c.text2CypherOptions(nil)...),
	}
	if path := c.config.Text2Cypher.SchemaFile; path != "" {
		schema, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read retail schema: %w", err)
		}
		opts = append(opts, WithRetailSchema(string(schema)))
	}
	if c.metrics != nil {
		opts = append(opts, WithRetailObserver(c.metrics))
	}

	c.retail = NewRetailService(c.embedder, exec, c.llm, opts...)
	if !c.skipWithoutLLM(ChainRetailText2Cypher) {
		c.register(c.retail.Answerer())
	}
	return nil
}

func (c *Client) textProperty() string {
	if p := c.config.Retrieval.TextProperty; p != "" {
		return p
	}
	return search.DefaultTextProperty
}

func (c *Client) assembler(opts ...assembler.Option) *assembler.Assembler {
	format := types.ContextFormat(c.config.Retrieval.ContextFormat)
	if format == "" {
		format = types.ContextFormatJSON
	}
	return assembler.New(append([]assembler.Option{assembler.WithFormat(format)}, opts...)...)
}

func (c *Client) chainOptions(extra ...chain.Option) []chain.Option {
	opts := []chain.Option{
		chain.WithLogger(c.logger),
		chain.WithAssembler(c.assembler()),
	}
	if c.metrics != nil {
		opts = append(opts, chain.WithObserver(c.metrics))
	}
	return append(opts, extra...)
}

// text2CypherOptions applies the text2cypher configuration. strip is used
// when no properties are configured.
func (c *Client) text2CypherOptions(strip []string, extra ...chain.Option) []chain.Option {
	cfg := c.config.Text2Cypher
	if len(cfg.StripProperties) > 0 {
		strip = cfg.StripProperties
	}
	opts := c.chainOptions(
		chain.WithMaxAttempts(cfg.MaxAttempts),
		chain.WithRetryDelay(cfg.RetryDelay),
		chain.WithStructuredOutput(cfg.Structured),
	)
	if len(strip) > 0 {
		opts = append(opts, chain.WithStripProperties(strip...))
	}
	return append(opts, extra...)
}

func (c *Client) retrieverOptions(extra ...search.RetrieverOption) []search.RetrieverOption {
	opts := []search.RetrieverOption{search.WithRetrieverLogger(c.logger)}
	if c.metrics != nil {
		opts = append(opts, search.WithObserver(c.metrics))
	}
	return append(opts, extra...)
}
