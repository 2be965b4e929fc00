package graphrag

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/config"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the GraphRAG HTTP server",
	Long: `Start the HTTP server that exposes the chains.

The server provides endpoints for:
- Listing the registered chains
- Invoking a chain, or running only its retrieval step
- Health checks and Prometheus metrics

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	// Server-specific flags
	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "debug", "Server mode (debug, release, test)")

	// Embedding flags
	serverCmd.Flags().String("embedding-model", "text-embedding-ada-002", "Embedding model")
	serverCmd.Flags().String("embedding-base-url", "", "Embedding base URL")
	serverCmd.Flags().String("embedding-cache-path", "", "Embedding cache directory, or memory")

	// Telemetry flags
	serverCmd.Flags().String("telemetry-parquet-path", "", "Path to directory for telemetry (errors and token usage)")
	serverCmd.Flags().Bool("metrics", true, "Serve Prometheus metrics on /metrics")

	// These are read when the client is created, so they go through viper
	viper.BindPFlag("embedding.model", serverCmd.Flags().Lookup("embedding-model"))
	viper.BindPFlag("embedding.base_url", serverCmd.Flags().Lookup("embedding-base-url"))
	viper.BindPFlag("embedding.cache_path", serverCmd.Flags().Lookup("embedding-cache-path"))
	viper.BindPFlag("telemetry.parquet_path", serverCmd.Flags().Lookup("telemetry-parquet-path"))
	viper.BindPFlag("telemetry.metrics_enabled", serverCmd.Flags().Lookup("metrics"))
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, client, logger, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	// Override config with command-line flags
	overrideConfigWithFlags(cmd, cfg)

	// Validate configuration
	if err := validateServerConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := client.HealthCheck(ctx); err != nil {
		logger.Warn("some datasets are unreachable", "error", err)
	}
	cancel()

	opts := []server.Option{server.WithLogger(logger)}
	if m := client.Metrics(); m != nil {
		opts = append(opts, server.WithMetrics(m))
	}
	srv := server.New(cfg, client, opts...)
	srv.Setup()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.Info("received signal", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		logger.Info("server stopped gracefully")
		return nil
	}
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	return nil
}
