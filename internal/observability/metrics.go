package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	meterScope         = "github.com/feedbackloop/insight/internal/observability"
	defaultServiceName = "feedbackloop-insight"
)

// latencyHistogramBoundaries are Prometheus-style buckets (seconds) for pipeline durations.
var latencyHistogramBoundaries = []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5}

// PipelineMetrics records ingestion pipeline outcomes. A nil PipelineMetrics
// means metrics are disabled; callers must nil-check.
type PipelineMetrics interface {
	RecordProcessed(ctx context.Context, outcome, stage string, duration time.Duration)
	RecordStoreError(ctx context.Context)
	RecordNLPOutcome(ctx context.Context, outcome string)
	RecordClusteringRun(ctx context.Context, outcome string, duration time.Duration)
}

// Metrics implements PipelineMetrics on OTel instruments.
type Metrics struct {
	processed       metric.Int64Counter
	processDuration metric.Float64Histogram
	storeErrors     metric.Int64Counter
	nlpOutcomes     metric.Int64Counter
	clusteringRuns  metric.Int64Counter
	clusterDuration metric.Float64Histogram
}

// MeterProviderShutdown is the subset of the SDK MeterProvider needed for shutdown.
type MeterProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// NewMeterProvider creates a MeterProvider with a Prometheus exporter and
// returns the provider, an HTTP handler for /metrics, and the pipeline metrics.
// The caller must call provider.Shutdown on exit.
func NewMeterProvider(serviceName string) (MeterProviderShutdown, http.Handler, *Metrics, error) {
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	)

	registry := prometheus.NewRegistry()

	exporter, err := prometheusexporter.New(prometheusexporter.WithRegisterer(registry))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Kind: sdkmetric.InstrumentKindHistogram},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
				Boundaries: latencyHistogramBoundaries,
			}},
		)),
	)

	metrics, err := NewMetrics(provider.Meter(meterScope))
	if err != nil {
		if shutdownErr := provider.Shutdown(context.Background()); shutdownErr != nil {
			err = fmt.Errorf("%w (shutdown: %w)", err, shutdownErr)
		}

		return nil, nil, nil, err
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return provider, handler, metrics, nil
}

// NewMetrics creates the pipeline instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	processed, err := meter.Int64Counter(
		"feedback_processed_total",
		metric.WithDescription("Feedback messages processed, by outcome and final stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("create processed counter: %w", err)
	}

	processDuration, err := meter.Float64Histogram(
		"feedback_process_duration_seconds",
		metric.WithDescription("Pipeline processing duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create process duration histogram: %w", err)
	}

	storeErrors, err := meter.Int64Counter(
		"feedback_store_errors_total",
		metric.WithDescription("Feedback store write failures"),
	)
	if err != nil {
		return nil, fmt.Errorf("create store errors counter: %w", err)
	}

	nlpOutcomes, err := meter.Int64Counter(
		"nlp_fallback_total",
		metric.WithDescription("NLP fallback invocations, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create nlp outcomes counter: %w", err)
	}

	clusteringRuns, err := meter.Int64Counter(
		"theme_clustering_runs_total",
		metric.WithDescription("Theme clustering runs, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create clustering runs counter: %w", err)
	}

	clusterDuration, err := meter.Float64Histogram(
		"theme_clustering_duration_seconds",
		metric.WithDescription("Theme clustering run duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create clustering duration histogram: %w", err)
	}

	return &Metrics{
		processed:       processed,
		processDuration: processDuration,
		storeErrors:     storeErrors,
		nlpOutcomes:     nlpOutcomes,
		clusteringRuns:  clusteringRuns,
		clusterDuration: clusterDuration,
	}, nil
}

// RecordProcessed counts one pipeline run and its duration.
func (m *Metrics) RecordProcessed(ctx context.Context, outcome, stage string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("stage", stage),
	)
	m.processed.Add(ctx, 1, attrs)
	m.processDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordStoreError counts one store write failure.
func (m *Metrics) RecordStoreError(ctx context.Context) {
	m.storeErrors.Add(ctx, 1)
}

// RecordNLPOutcome counts one NLP fallback invocation.
func (m *Metrics) RecordNLPOutcome(ctx context.Context, outcome string) {
	m.nlpOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordClusteringRun counts one clustering run and its duration.
func (m *Metrics) RecordClusteringRun(ctx context.Context, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.clusteringRuns.Add(ctx, 1, attrs)
	m.clusterDuration.Record(ctx, duration.Seconds(), attrs)
}

var _ PipelineMetrics = (*Metrics)(nil)
