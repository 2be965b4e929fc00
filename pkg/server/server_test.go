package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/chain"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/config"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/search"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/telemetry"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

type stubRetriever struct{}

func (stubRetriever) Name() string { return "vector" }

func (stubRetriever) Search(_ context.Context, _ string, _ int, params map[string]any) (*search.Result, error) {
	return &search.Result{
		Records: []*types.ScoredRecord{{Identity: "Chai", Text: "Chai", Score: 0.9, Strategy: "vector"}},
		Query:   types.NewRetrievalQuery("vector", "RETURN 1", params),
	}, nil
}

type stubBackend struct {
	chains map[string]chain.Chain
}

func newStubBackend() *stubBackend {
	return &stubBackend{chains: map[string]chain.Chain{
		"vector": chain.NewGraphRAG("vector", stubRetriever{}, nil),
	}}
}

func (b *stubBackend) ChainNames() []string {
	names := make([]string, 0, len(b.chains))
	for name := range b.chains {
		names = append(names, name)
	}
	return names
}

func (b *stubBackend) Chain(name string) (chain.Chain, bool) {
	c, ok := b.chains[name]
	return c, ok
}

func (b *stubBackend) HealthCheck(context.Context) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "localhost",
			Port: 8080,
			Mode: "test",
		},
	}
}

func TestNew(t *testing.T) {
	cfg := testConfig()

	// Test with nil backend (server should still be created)
	server := New(cfg, nil)
	if server == nil {
		t.Fatal("expected non-nil server")
	}

	if server.config != cfg {
		t.Error("expected config to be set")
	}
	if server.logger == nil {
		t.Error("expected default logger")
	}
}

func TestSetup(t *testing.T) {
	server := New(testConfig(), nil)
	server.Setup()

	if server.router == nil {
		t.Error("expected router to be initialized")
	}

	if server.server == nil {
		t.Fatal("expected http.Server to be initialized")
	}

	expectedAddr := "localhost:8080"
	if server.server.Addr != expectedAddr {
		t.Errorf("expected addr %s, got %s", expectedAddr, server.server.Addr)
	}
}

func TestHealthEndpoints(t *testing.T) {
	server := New(testConfig(), nil)
	server.Setup()

	for _, path := range []string{"/health", "/healthcheck", "/live"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			w := httptest.NewRecorder()

			server.router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", w.Code)
			}
		})
	}
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		backend  Backend
		expected int
	}{
		{"without backend", nil, http.StatusServiceUnavailable},
		{"with backend", newStubBackend(), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := New(testConfig(), tt.backend)
			server.Setup()

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()
			server.router.ServeHTTP(w, req)

			if w.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	server := New(testConfig(), nil)
	server.Setup()

	// Test OPTIONS request (CORS preflight)
	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204 for OPTIONS, got %d", w.Code)
	}

	expectedHeaders := []string{
		"Access-Control-Allow-Origin",
		"Access-Control-Allow-Credentials",
		"Access-Control-Allow-Headers",
		"Access-Control-Allow-Methods",
	}
	for _, header := range expectedHeaders {
		if w.Header().Get(header) == "" {
			t.Errorf("expected %s header to be set", header)
		}
	}
}

func TestRequestID(t *testing.T) {
	server := New(testConfig(), nil)
	server.Setup()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "req-42" {
		t.Errorf("expected request id to be echoed, got %q", got)
	}

	w = httptest.NewRecorder()
	server.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if len(w.Header().Get(RequestIDHeader)) != 36 {
		t.Errorf("expected generated request id, got %q", w.Header().Get(RequestIDHeader))
	}
}

func TestRouteExists(t *testing.T) {
	server := New(testConfig(), newStubBackend())
	server.Setup()

	// Test that routes are registered (not 404)
	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/healthcheck"},
		{http.MethodGet, "/ready"},
		{http.MethodGet, "/live"},
		{http.MethodGet, "/health/detailed"},
		{http.MethodGet, "/api/v1/chains"},
		{http.MethodPost, "/api/v1/chains/vector/invoke"},
		{http.MethodPost, "/api/v1/chains/vector/search"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			server.router.ServeHTTP(w, req)

			if w.Code == http.StatusNotFound {
				t.Errorf("route %s %s returned 404, route not registered", route.method, route.path)
			}
		})
	}
}

func TestChainRoutesRequireBackend(t *testing.T) {
	server := New(testConfig(), nil)
	server.Setup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chains", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a backend, got %d", w.Code)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	metrics := telemetry.NewMetrics("")
	server := New(testConfig(), newStubBackend(), WithMetrics(metrics))
	server.Setup()

	body := bytes.NewBufferString(`{"query":"tea"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chains/vector/search", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	server.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected metrics to be served, got %d", w.Code)
	}

	expected := `graphrag_http_requests_total{method="POST",path="/api/v1/chains/:name/search",status="200"} 1`
	if !strings.Contains(w.Body.String(), expected) {
		t.Errorf("expected %s in metrics output", expected)
	}
	if n := testutil.CollectAndCount(metrics.Registry(), "graphrag_http_requests_total"); n < 1 {
		t.Errorf("expected http request series, got %d", n)
	}
}

func TestServerConfig(t *testing.T) {
	tests := []struct {
		name         string
		host         string
		port         int
		expectedAddr string
	}{
		{"localhost:8080", "localhost", 8080, "localhost:8080"},
		{"0.0.0.0:3000", "0.0.0.0", 3000, "0.0.0.0:3000"},
		{"127.0.0.1:9090", "127.0.0.1", 9090, "127.0.0.1:9090"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Server.Host = tt.host
			cfg.Server.Port = tt.port

			server := New(cfg, nil)
			server.Setup()

			if server.server.Addr != tt.expectedAddr {
				t.Errorf("expected addr %s, got %s", tt.expectedAddr, server.server.Addr)
			}
		})
	}
}
