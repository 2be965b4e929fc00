package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "graphrag"

// Metrics collects retrieval, generation and HTTP metrics in its own
// registry. It satisfies search.Observer and nlp.UsageRecorder.
type Metrics struct {
	registry *prometheus.Registry

	retrievalTotal    *prometheus.CounterVec
	retrievalDuration *prometheus.HistogramVec
	retrievalRecords  *prometheus.HistogramVec

	llmTokensUsed *prometheus.CounterVec
	llmResponses  *prometheus.CounterVec

	chainInvocations *prometheus.CounterVec
	chainDuration    *prometheus.HistogramVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors under namespace and registers them, with
// the Go runtime and process collectors, in a fresh registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.retrievalTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_requests_total",
			Help:      "Total number of retrieval strategy searches",
		},
		[]string{"strategy", "status"},
	)

	m.retrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Retrieval strategy duration in seconds, embedding included",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"strategy"},
	)

	m.retrievalRecords = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_records",
			Help:      "Number of records returned by a successful search",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		},
		[]string{"strategy"},
	)

	m.llmTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"model", "type"}, // type: prompt, completion
	)

	m.llmResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_responses_total",
			Help:      "Total number of completions that reported usage",
		},
		[]string{"model", "usage"},
	)

	m.chainInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_invocations_total",
			Help:      "Total number of chain invocations",
		},
		[]string{"chain", "status"},
	)

	m.chainDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chain_duration_seconds",
			Help:      "Chain invocation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"chain"},
	)

	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.registry.MustRegister(
		m.retrievalTotal, m.retrievalDuration, m.retrievalRecords,
		m.llmTokensUsed, m.llmResponses,
		m.chainInvocations, m.chainDuration,
		m.httpRequestsTotal, m.httpRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRetrieval records one strategy search.
func (m *Metrics) ObserveRetrieval(strategy string, elapsed time.Duration, records int, err error) {
	m.retrievalTotal.WithLabelValues(strategy, status(err)).Inc()
	m.retrievalDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	if err == nil {
		m.retrievalRecords.WithLabelValues(strategy).Observe(float64(records))
	}
}

// AddUsage records the token usage of one completion.
func (m *Metrics) AddUsage(ctx context.Context, usage *types.TokenUsage, model string) error {
	if usage == nil {
		return nil
	}
	m.llmTokensUsed.WithLabelValues(model, "prompt").Add(float64(usage.PromptTokens))
	m.llmTokensUsed.WithLabelValues(model, "completion").Add(float64(usage.CompletionTokens))

	tag, _ := ctx.Value(types.ContextKeyUsage).(string)
	m.llmResponses.WithLabelValues(model, tag).Inc()
	return nil
}

// ObserveChain records one chain invocation.
func (m *Metrics) ObserveChain(chain string, elapsed time.Duration, err error) {
	m.chainInvocations.WithLabelValues(chain, status(err)).Inc()
	m.chainDuration.WithLabelValues(chain).Observe(elapsed.Seconds())
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path string, code int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns an HTTP handler for Prometheus metrics scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
