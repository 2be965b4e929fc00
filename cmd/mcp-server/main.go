package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/firebase/genkit/go/genkit"
	"github.com/joho/godotenv"

	graphrag "github.com/neo4j-product-examples/graphrag-examples"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/config"
	graphragLogger "github.com/neo4j-product-examples/graphrag-examples/pkg/logger"
)

// Config holds the transport settings of the MCP server. Everything else
// comes from the shared configuration.
type Config struct {
	Transport string
	Host      string
	Port      int
	LogLevel  string
}

// MCPServer exposes the retail analytics and the chains as tools
type MCPServer struct {
	config *Config
	retail graphrag.RetailAnalytics
	chains graphrag.ChainRunner
	logger *slog.Logger
}

// NewConfig creates a new configuration from environment variables
func NewConfig() *Config {
	return &Config{
		Transport: getEnv("MCP_TRANSPORT", "stdio"),
		Host:      getEnv("MCP_HOST", "localhost"),
		Port:      getEnvInt("MCP_PORT", 3000),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewMCPServer creates a server over chains. retail may be nil when the
// retail dataset is not configured.
func NewMCPServer(config *Config, chains graphrag.ChainRunner, retail graphrag.RetailAnalytics, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MCPServer{
		config: config,
		retail: retail,
		chains: chains,
		logger: logger,
	}
}

// RegisterTools registers all MCP tools with Genkit
func (s *MCPServer) RegisterTools(g *genkit.Genkit) []string {
	tools := []string{"list_chains", "invoke_chain"}

	genkit.DefineTool(g, "list_chains",
		"List the question answering chains that can be invoked.",
		s.ListChainsTool)
	genkit.DefineTool(g, "invoke_chain",
		"Answer a prompt with one of the chains returned by list_chains. Customer-scoped chains need params.customerId.",
		s.InvokeChainTool)

	if s.retail == nil {
		s.logger.Warn("Retail dataset not configured, retail tools disabled")
		return tools
	}

	genkit.DefineTool(g, "search_products",
		"Search product text based on the user prompt and return the most semantically similar ones. Re-order or filter further based on additional context from the user.",
		s.SearchProductsTool)
	genkit.DefineTool(g, "recommend_products",
		"Retrieve product recommendations given a list of product codes, article ids, or segment ids. Re-order or filter further based on additional context from the user.",
		s.RecommendProductsTool)
	genkit.DefineTool(g, "create_customer_segments",
		"Create customer segments based on purchase behavior. Generally needs to be done just once per session.",
		s.CreateCustomerSegmentsTool)
	genkit.DefineTool(g, "get_product_order_supplier_info",
		"Do not use without explicit product codes. Given a list of product codes, get total orders and refunds, and the same by supplier for each product. Do not use for customer segment ids.",
		s.ProductOrderSupplierInfoTool)
	genkit.DefineTool(g, "get_supplier_order_product_info",
		"Do not use without explicit supplier ids. Given a list of supplier ids, get total orders and refunds, and the same by product delivered for each supplier. Do not use for customer segment ids.",
		s.SupplierOrderProductInfoTool)
	genkit.DefineTool(g, "answer_general_question",
		"Answer a question by turning it into a Cypher query over the customer graph.",
		s.AnswerGeneralQuestionTool)

	return append(tools,
		"search_products",
		"recommend_products",
		"create_customer_segments",
		"get_product_order_supplier_info",
		"get_supplier_order_product_info",
		"answer_general_question")
}

// Run starts the MCP server
func (s *MCPServer) Run(ctx context.Context) error {
	s.logger.Info("Starting Genkit MCP server", "transport", s.config.Transport)

	g := genkit.Init(ctx)
	tools := s.RegisterTools(g)

	s.logger.Info("MCP server is ready to accept requests", "tools", tools)

	<-ctx.Done()
	return ctx.Err()
}

func main() {
	var (
		transport = flag.String("transport", "", "Transport to use (stdio or sse)")
		host      = flag.String("host", "", "Host to bind the MCP server to")
		port      = flag.Int("port", 0, "Port to bind the MCP server to")
		logLevel  = flag.String("log-level", "", "Log level (debug, info, warn, error)")
		envFile   = flag.String("env-file", ".env", "Environment file to load if present")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	serverConfig := NewConfig()
	if *transport != "" {
		serverConfig.Transport = *transport
	}
	if *host != "" {
		serverConfig.Host = *host
	}
	if *port != 0 {
		serverConfig.Port = *port
	}
	if *logLevel != "" {
		serverConfig.LogLevel = *logLevel
	}

	level, err := graphragLogger.ParseLevel(serverConfig.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	// stdout carries the protocol, so logs go to stderr
	logger := slog.New(graphragLogger.NewColorHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client, err := graphrag.NewClient(cfg, graphrag.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	var retail graphrag.RetailAnalytics
	if r := client.Retail(); r != nil {
		retail = r
	}
	server := NewMCPServer(serverConfig, client, retail, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := client.HealthCheck(ctx); err != nil {
		logger.Warn("Some datasets are unreachable", "error", err)
	}

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
