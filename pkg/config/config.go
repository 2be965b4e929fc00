package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/spf13/viper"
)

// Dataset names used as keys of Config.Databases.
const (
	DatasetNorthwind = "northwind"
	DatasetHM        = "hm"
	DatasetResume    = "resume"
	DatasetRetail    = "retail"
)

// Datasets lists every dataset name in registration order.
var Datasets = []string{DatasetNorthwind, DatasetHM, DatasetResume, DatasetRetail}

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Databases holds one connection per dataset
	Databases map[string]DatabaseConfig `mapstructure:"databases"`

	// NLP configuration
	NLP NLPConfig `mapstructure:"nlp"`

	// Text2Cypher configuration
	Text2Cypher Text2CypherConfig `mapstructure:"text2cypher"`

	// Embedding configuration
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Retrieval configuration
	Retrieval RetrievalConfig `mapstructure:"retrieval"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// Settings builds breaker settings that trip after at least three requests
// once the failure ratio reaches ReadyToTripRatio. Opening the breaker is
// logged at error level.
func (c CircuitBreakerConfig) Settings(name string, logger *slog.Logger) gobreaker.Settings {
	if logger == nil {
		logger = slog.Default()
	}
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: c.MaxRequests,
		Interval:    time.Duration(c.Interval) * time.Second,
		Timeout:     time.Duration(c.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 3 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= c.ReadyToTripRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logger.Error("circuit breaker tripped", "name", name, "from", from.String(), "to", to.String())
				return
			}
			logger.Info("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath    string `mapstructure:"parquet_path"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// DatabaseConfig holds the connection settings for one dataset
type DatabaseConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// NLPConfig holds NLP configuration
type NLPConfig struct {
	// Models is a map of model configurations (e.g. "default", "text2cypher")
	Models map[string]NLPModelConfig `mapstructure:"models"`

	// RouterRules defines how to route requests
	RouterRules []RouterRule `mapstructure:"router_rules"`

	// Retry applies to every model call
	Retry RetryConfig `mapstructure:"retry"`
}

// RetryConfig controls how failed model calls are repeated
type RetryConfig struct {
	MaxRetries   int           `mapstructure:"max_retries"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
}

// DefaultRetryConfig retries three times starting at one second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2,
	}
}

// WithDefaults fills unset fields from DefaultRetryConfig. A negative
// MaxRetries disables retries.
func (r RetryConfig) WithDefaults() RetryConfig {
	def := DefaultRetryConfig()
	switch {
	case r.MaxRetries < 0:
		r.MaxRetries = 0
	case r.MaxRetries == 0:
		r.MaxRetries = def.MaxRetries
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = def.InitialDelay
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = def.MaxDelay
	}
	if r.Multiplier <= 0 {
		r.Multiplier = def.Multiplier
	}
	return r
}

// Delay returns the wait before the given retry, counted from one, capped
// at MaxDelay.
func (r RetryConfig) Delay(retry int) time.Duration {
	delay := float64(r.InitialDelay) * math.Pow(r.Multiplier, float64(retry-1))
	if delay > float64(r.MaxDelay) {
		return r.MaxDelay
	}
	return time.Duration(delay)
}

// NLPModelConfig holds configuration for a specific model
type NLPModelConfig struct {
	Provider    string  `mapstructure:"provider"` // openai
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// RouterRule defines a rule for routing requests
type RouterRule struct {
	Usage    string `mapstructure:"usage"`    // Tag to match (e.g. "text2cypher")
	Provider string `mapstructure:"provider"` // Model key to use
	Fallback string `mapstructure:"fallback"` // Fallback model key
}

// Text2CypherConfig holds settings for generated-statement question answering
type Text2CypherConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	StripProperties []string      `mapstructure:"strip_properties"`
	Structured      bool          `mapstructure:"structured"`
	// SchemaFile replaces the built-in retail schema description when set.
	SchemaFile string `mapstructure:"schema_file"`
}

// EmbeddingConfig holds embedding configuration
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // openai
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
	// CachePath is the badger directory; "memory" keeps the cache in memory and
	// an empty value disables caching.
	CachePath string `mapstructure:"cache_path"`
}

// RetrievalConfig holds defaults shared by the retrievers
type RetrievalConfig struct {
	TopK              int    `mapstructure:"top_k"`
	TextProperty      string `mapstructure:"text_property"`
	EmbeddingProperty string `mapstructure:"embedding_property"`
	MaxConcurrency    int    `mapstructure:"max_concurrency"`
	FailFast          bool   `mapstructure:"fail_fast"`
	ContextFormat     string `mapstructure:"context_format"` // json, yaml
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	return config, nil
}

// Database returns the connection settings of a dataset.
func (c *Config) Database(name string) (DatabaseConfig, bool) {
	db, ok := c.Databases[name]
	if !ok || db.URI == "" {
		return DatabaseConfig{}, false
	}
	if db.Database == "" {
		db.Database = "neo4j"
	}
	return db, true
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	viper.SetDefault("nlp.models.default.provider", "openai")
	viper.SetDefault("nlp.models.default.model", "gpt-4o")
	viper.SetDefault("nlp.models.default.temperature", 0.5)
	viper.SetDefault("nlp.models.text2cypher.provider", "openai")
	viper.SetDefault("nlp.models.text2cypher.model", "gpt-4")
	viper.SetDefault("nlp.router_rules", []map[string]any{
		{"usage": "text2cypher", "provider": "text2cypher", "fallback": "default"},
	})

	viper.SetDefault("nlp.retry.max_retries", 3)
	viper.SetDefault("nlp.retry.initial_delay", time.Second)
	viper.SetDefault("nlp.retry.max_delay", time.Minute)
	viper.SetDefault("nlp.retry.multiplier", 2.0)

	viper.SetDefault("text2cypher.max_attempts", 3)
	viper.SetDefault("text2cypher.retry_delay", time.Second)
	viper.SetDefault("text2cypher.strip_properties", []string{"textEmbedding"})

	viper.SetDefault("embedding.provider", "openai")
	viper.SetDefault("embedding.model", "text-embedding-ada-002")
	viper.SetDefault("embedding.dimensions", 1536)

	viper.SetDefault("retrieval.top_k", 5)
	viper.SetDefault("retrieval.text_property", "text")
	viper.SetDefault("retrieval.embedding_property", "textEmbedding")
	viper.SetDefault("retrieval.max_concurrency", 3)
	viper.SetDefault("retrieval.context_format", "json")

	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	viper.SetDefault("telemetry.metrics_enabled", true)

	// Telemetry defaults
	home, err := os.UserHomeDir()
	if err == nil {
		defaultPath := fmt.Sprintf("%s/.graphrag/telemetry", home)
		viper.SetDefault("telemetry.parquet_path", defaultPath)
	}
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	// Initialize Models map if nil
	if config.NLP.Models == nil {
		config.NLP.Models = make(map[string]NLPModelConfig)
	}
	if config.Databases == nil {
		config.Databases = make(map[string]DatabaseConfig)
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		for name, model := range config.NLP.Models {
			if model.APIKey == "" {
				model.APIKey = apiKey
				config.NLP.Models[name] = model
			}
		}
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = apiKey
		}
	}

	// Unprefixed variables apply to every dataset, prefixed ones to a single dataset.
	for _, name := range Datasets {
		db := config.Databases[name]
		applyDatabaseEnv(&db, "NEO4J_")
		applyDatabaseEnv(&db, strings.ToUpper(name)+"_NEO4J_")
		if db.URI != "" {
			config.Databases[name] = db
		}
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil {
			config.Server.Port = p
		}
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}

func applyDatabaseEnv(db *DatabaseConfig, prefix string) {
	if uri := os.Getenv(prefix + "URI"); uri != "" {
		db.URI = uri
	}
	if user := os.Getenv(prefix + "USERNAME"); user != "" {
		db.Username = user
	}
	if pass := os.Getenv(prefix + "PASSWORD"); pass != "" {
		db.Password = pass
	}
	if name := os.Getenv(prefix + "DATABASE"); name != "" {
		db.Database = name
	}
}
