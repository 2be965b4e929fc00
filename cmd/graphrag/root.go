package graphrag

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	graphrag "github.com/neo4j-product-examples/graphrag-examples"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/config"
	graphragLogger "github.com/neo4j-product-examples/graphrag-examples/pkg/logger"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/telemetry"
)

var (
	cfgFile string
	envFile string
	rootCmd = &cobra.Command{
		Use:   "graphrag",
		Short: "GraphRAG: question answering over Neo4j graphs",
		Long: `graphrag answers questions from Neo4j graphs with vector search, graph
traversal and generated Cypher. It serves the demo chains over HTTP and can
invoke them from the command line.

Connections are configured per dataset (northwind, hm, resume, retail) in the
config file or with NEO4J_* and <DATASET>_NEO4J_* environment variables.`,
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.graphrag.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file to load if present")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	// Bind flags to viper
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "Failed to load env file:", err)
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".graphrag" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".graphrag")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger logs colored lines to stderr and, when a telemetry path is
// configured, keeps error records in Parquet files. The returned closer
// flushes them.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	level, err := graphragLogger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	var handler slog.Handler = graphragLogger.NewColorHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	if cfg.Telemetry.ParquetPath == "" {
		return slog.New(handler), io.NopCloser(nil), nil
	}
	parquetHandler, err := telemetry.NewParquetHandler(handler, cfg.Telemetry.ParquetPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to initialize error tracking: %v\n", err)
		return slog.New(handler), io.NopCloser(nil), nil
	}
	return slog.New(parquetHandler), parquetHandler, nil
}

// setup loads the configuration and connects the client.
func setup() (*config.Config, *graphrag.Client, *slog.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, logCloser, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	slog.SetDefault(logger)

	client, err := graphrag.NewClient(cfg, graphrag.WithLogger(logger))
	if err != nil {
		logCloser.Close()
		return nil, nil, nil, nil, fmt.Errorf("failed to create client: %w", err)
	}

	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close client", "error", err)
		}
		logCloser.Close()
	}
	return cfg, client, logger, cleanup, nil
}
