package graphrag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/chain"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/config"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/driver"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/embedder"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/nlp"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/telemetry"
)

var (
	// ErrNoDatabases is returned when no dataset has a connection configured.
	ErrNoDatabases = errors.New("no databases configured")

	// ErrUnknownChain is returned by Invoke for an unregistered chain name.
	ErrUnknownChain = errors.New("unknown chain")
)

// Client is the main entry point: it connects the configured datasets, the
// embedding service and the language models, and exposes the demo chains by
// name.
type Client struct {
	config   *config.Config
	drivers  map[string]driver.GraphDriver
	embedder embedder.Client
	llm      nlp.Client
	metrics  *telemetry.Metrics
	chains   map[string]chain.Chain
	retail   *RetailService
	logger   *slog.Logger
	// closers are released in reverse order by Close.
	closers []io.Closer
}

type clientOptions struct {
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	drivers  map[string]driver.GraphDriver
	embedder embedder.Client
	llm      nlp.Client
}

// Option configures a Client.
type Option func(*clientOptions)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// WithMetrics records retrieval, chain and token metrics in m instead of a
// registry created from the telemetry configuration.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *clientOptions) { o.metrics = m }
}

// WithDriver uses d for dataset instead of connecting from configuration.
// The caller keeps ownership of d.
func WithDriver(dataset string, d driver.GraphDriver) Option {
	return func(o *clientOptions) {
		if o.drivers == nil {
			o.drivers = make(map[string]driver.GraphDriver)
		}
		o.drivers[dataset] = d
	}
}

// WithEmbedder replaces the configured embedding client.
func WithEmbedder(e embedder.Client) Option {
	return func(o *clientOptions) { o.embedder = e }
}

// WithLanguageModel replaces the configured language model client.
func WithLanguageModel(llm nlp.Client) Option {
	return func(o *clientOptions) { o.llm = llm }
}

// NewClient builds a client from cfg. Datasets without a connection are
// skipped; a missing language model leaves the chains retrieval-only.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	c := &Client{
		config:  cfg,
		drivers: make(map[string]driver.GraphDriver),
		metrics: o.metrics,
		chains:  make(map[string]chain.Chain),
		logger:  o.logger,
	}
	if c.metrics == nil && cfg.Telemetry.MetricsEnabled {
		c.metrics = telemetry.NewMetrics(telemetry.DefaultNamespace)
	}

	if err := c.connect(o.drivers); err != nil {
		c.Close()
		return nil, err
	}

	c.embedder = o.embedder
	if c.embedder == nil {
		emb, err := c.newEmbedder()
		if err != nil {
			c.Close()
			return nil, err
		}
		if emb != nil {
			c.embedder = emb
			c.closers = append(c.closers, emb)
		}
	}

	c.llm = o.llm
	if c.llm == nil {
		llm, err := c.newLanguageModel()
		if err != nil {
			c.Close()
			return nil, err
		}
		if llm != nil {
			c.llm = llm
			c.closers = append(c.closers, llm)
		}
	}

	if err := c.registerChains(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) connect(provided map[string]driver.GraphDriver) error {
	for _, name := range config.Datasets {
		if d, ok := provided[name]; ok {
			c.drivers[name] = d
			continue
		}
		db, ok := c.config.Database(name)
		if !ok {
			continue
		}
		d, err := driver.NewNeo4jDriver(db.URI, db.Username, db.Password, db.Database,
			driver.WithLogger(c.logger.With("dataset", name)))
		if err != nil {
			return fmt.Errorf("dataset %s: %w", name, err)
		}
		c.drivers[name] = d
		c.closers = append(c.closers, d)
	}
	if len(c.drivers) == 0 {
		return ErrNoDatabases
	}
	return nil
}

func (c *Client) newEmbedder() (embedder.Client, error) {
	cfg := c.config.Embedding
	if cfg.Provider != "" && cfg.Provider != nlp.ProviderOpenAI {
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
	}
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		c.logger.Warn("embedding service not configured, vector search disabled")
		return nil, nil
	}

	var emb embedder.Client = embedder.NewOpenAIEmbedder(cfg.APIKey, embedder.Config{
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		BaseURL:    cfg.BaseURL,
	})
	if cfg.CachePath == "" {
		return emb, nil
	}
	cached, err := embedder.NewCachedClient(emb, cfg.Model, cfg.CachePath, c.logger)
	if err != nil {
		return nil, err
	}
	return cached, nil
}

func (c *Client) newLanguageModel() (nlp.Client, error) {
	var recorders []nlp.UsageRecorder
	if c.metrics != nil {
		recorders = append(recorders, c.metrics)
	}
	if path := c.config.Telemetry.ParquetPath; path != "" {
		tracker, err := nlp.NewTokenTracker(path)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, tracker)
		recorders = append(recorders, tracker)
	}

	llm, err := nlp.NewClientFromConfig(c.config, c.logger, recorders...)
	if err != nil {
		c.logger.Warn("language model not configured, chains are retrieval-only", "error", err)
		return nil, nil
	}
	return llm, nil
}

// ChainNames returns the registered chain names, sorted.
func (c *Client) ChainNames() []string {
	return sortedKeys(c.chains)
}

// Chain returns the chain registered under name.
func (c *Client) Chain(name string) (chain.Chain, bool) {
	ch, ok := c.chains[name]
	return ch, ok
}

// Invoke runs the named chain once.
func (c *Client) Invoke(ctx context.Context, name string, req chain.Request) (*chain.Answer, error) {
	ch, ok := c.chains[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChain, name)
	}
	return ch.Invoke(ctx, req)
}

// Retail returns the retail service, or nil when the retail dataset is not
// configured.
func (c *Client) Retail() *RetailService {
	return c.retail
}

// Metrics returns the metrics registry, or nil when metrics are disabled.
func (c *Client) Metrics() *telemetry.Metrics {
	return c.metrics
}

// HealthCheck verifies connectivity to every configured dataset.
func (c *Client) HealthCheck(ctx context.Context) error {
	var errs []error
	for _, name := range sortedKeys(c.drivers) {
		if err := c.drivers[name].VerifyConnectivity(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the connections and clients the client created. Drivers,
// embedders and language models passed as options are left open.
func (c *Client) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
