package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics exposes counters and histograms for scraping at /metrics
type PrometheusMetrics struct {
	registry *prometheus.Registry

	apiRequests     *prometheus.CounterVec
	apiLatency      *prometheus.HistogramVec
	analyses        *prometheus.CounterVec
	analysisLatency *prometheus.HistogramVec
	syntheses       *prometheus.CounterVec
	generations     *prometheus.CounterVec
	generationTime  *prometheus.HistogramVec
	tokens          *prometheus.CounterVec
}

// NewPrometheusMetrics registers all collectors on a fresh registry
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	m := &PrometheusMetrics{
		registry: registry,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yiyun_api_requests_total",
			Help: "HTTP requests by endpoint and status code.",
		}, []string{"endpoint", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "yiyun_api_request_duration_seconds",
			Help:    "HTTP request latency by endpoint.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yiyun_analyses_total",
			Help: "Input analyses by source (upstream, heuristic, cache).",
		}, []string{"source"}),
		analysisLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "yiyun_analysis_duration_seconds",
			Help:    "Input analysis latency by source.",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"source"}),
		syntheses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yiyun_prompt_syntheses_total",
			Help: "Final music prompts by source and interface.",
		}, []string{"source", "interface"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yiyun_generations_total",
			Help: "Music generation attempts by interface and outcome.",
		}, []string{"interface", "outcome"}),
		generationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "yiyun_generation_duration_seconds",
			Help:    "Music generation wall time by interface.",
			Buckets: []float64{5, 15, 30, 60, 120, 180, 240, 300},
		}, []string{"interface"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yiyun_llm_tokens_total",
			Help: "Upstream LLM tokens by model and direction.",
		}, []string{"model", "direction"}),
	}

	registry.MustRegister(
		m.apiRequests, m.apiLatency,
		m.analyses, m.analysisLatency,
		m.syntheses,
		m.generations, m.generationTime,
		m.tokens,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (tests and extra collectors)
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PrometheusMetrics) RecordAPIRequest(_ context.Context, endpoint string, statusCode int, duration time.Duration) {
	m.apiRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	m.apiLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordAnalysis(_ context.Context, source string, duration time.Duration) {
	m.analyses.WithLabelValues(source).Inc()
	m.analysisLatency.WithLabelValues(source).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordSynthesis(_ context.Context, source, iface string) {
	m.syntheses.WithLabelValues(source, iface).Inc()
}

func (m *PrometheusMetrics) RecordGeneration(_ context.Context, iface, outcome string, duration time.Duration) {
	m.generations.WithLabelValues(iface, outcome).Inc()
	m.generationTime.WithLabelValues(iface).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordTokenUsage(_ context.Context, model string, _, inputTokens, outputTokens int) {
	m.tokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	m.tokens.WithLabelValues(model, "output").Add(float64(outputTokens))
}
