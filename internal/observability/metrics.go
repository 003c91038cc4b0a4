package observability

import (
	"context"
	"net/http"
	"strings"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/zero-day-ai/graphask/internal/config"
	"github.com/zero-day-ai/graphask/internal/synth"
	"github.com/zero-day-ai/graphask/internal/types"
)

// MeterName is the instrumentation scope for engine metrics.
const MeterName = "github.com/zero-day-ai/graphask"

// Metrics is an initialized meter provider. Handler is non-nil only for the
// prometheus exporter and serves the scrape endpoint.
type Metrics struct {
	Provider metric.MeterProvider
	Handler  http.Handler
	sdk      *sdkmetric.MeterProvider
}

// Recorder returns a recorder bound to the engine meter.
func (m *Metrics) Recorder() *OpenTelemetryMetricsRecorder {
	return NewOpenTelemetryMetricsRecorder(m.Provider.Meter(MeterName))
}

// Shutdown flushes and stops the provider. A disabled provider is a no-op.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.sdk == nil {
		return nil
	}
	if err := m.sdk.Shutdown(ctx); err != nil {
		return types.WrapError(ErrShutdownTimeout, "failed to shutdown meter provider", err)
	}
	return nil
}

// InitMetrics initializes the configured metrics exporter. When metrics are
// disabled a no-op provider is returned.
func InitMetrics(ctx context.Context, cfg config.MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{Provider: noop.NewMeterProvider()}, nil
	}

	switch strings.ToLower(cfg.Exporter) {
	case "", "prometheus":
		return initPrometheusProvider()
	case "otlp":
		return initOTLPProvider(ctx, cfg)
	default:
		return nil, types.NewError(ErrExporterConnection, "unsupported metrics exporter: "+cfg.Exporter)
	}
}

// initPrometheusProvider registers the exporter on a private registry so
// repeated initialization in one process does not collide.
func initPrometheusProvider() (*Metrics, error) {
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, types.WrapError(ErrMetricsRegistration, "failed to create prometheus exporter", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	return &Metrics{
		Provider: provider,
		Handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		sdk:      provider,
	}, nil
}

func initOTLPProvider(ctx context.Context, cfg config.MetricsConfig) (*Metrics, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, NewExporterConnectionError(cfg.Endpoint, err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)
	return &Metrics{Provider: provider, sdk: provider}, nil
}

// OpenTelemetryMetricsRecorder records engine counters and histograms through
// an OpenTelemetry meter. Instruments are created on first use and cached.
type OpenTelemetryMetricsRecorder struct {
	meter      metric.Meter
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
	mu         sync.RWMutex
}

var _ synth.MetricsRecorder = (*OpenTelemetryMetricsRecorder)(nil)

// NewOpenTelemetryMetricsRecorder creates a recorder on meter.
func NewOpenTelemetryMetricsRecorder(meter metric.Meter) *OpenTelemetryMetricsRecorder {
	return &OpenTelemetryMetricsRecorder{
		meter:      meter,
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// RecordCounter adds value to the named counter.
func (r *OpenTelemetryMetricsRecorder) RecordCounter(name string, value int64, labels map[string]string) {
	counter := r.getOrCreateCounter(name)
	if counter == nil {
		return
	}
	counter.Add(context.Background(), value, metric.WithAttributes(labelsToAttributes(labels)...))
}

// RecordHistogram records value in the named histogram.
func (r *OpenTelemetryMetricsRecorder) RecordHistogram(name string, value float64, labels map[string]string) {
	histogram := r.getOrCreateHistogram(name)
	if histogram == nil {
		return
	}
	histogram.Record(context.Background(), value, metric.WithAttributes(labelsToAttributes(labels)...))
}

func (r *OpenTelemetryMetricsRecorder) getOrCreateCounter(name string) metric.Int64Counter {
	r.mu.RLock()
	counter, exists := r.counters[name]
	r.mu.RUnlock()
	if exists {
		return counter
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if counter, exists := r.counters[name]; exists {
		return counter
	}

	counter, err := r.meter.Int64Counter(name, metric.WithDescription(metricDescriptions[name]))
	if err != nil {
		return nil
	}
	r.counters[name] = counter
	return counter
}

func (r *OpenTelemetryMetricsRecorder) getOrCreateHistogram(name string) metric.Float64Histogram {
	r.mu.RLock()
	histogram, exists := r.histograms[name]
	r.mu.RUnlock()
	if exists {
		return histogram
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if histogram, exists := r.histograms[name]; exists {
		return histogram
	}

	opts := []metric.Float64HistogramOption{metric.WithDescription(metricDescriptions[name])}
	if name == synth.MetricAnswerDuration {
		opts = append(opts, metric.WithUnit("s"))
	}
	histogram, err := r.meter.Float64Histogram(name, opts...)
	if err != nil {
		return nil
	}
	r.histograms[name] = histogram
	return histogram
}

var metricDescriptions = map[string]string{
	synth.MetricAnswers:        "Questions answered, by dialect and outcome",
	synth.MetricAttempts:       "Attempts consumed per question",
	synth.MetricRejections:     "Candidates rejected by the safety guard",
	synth.MetricAnswerDuration: "Wall time per question",
}

func labelsToAttributes(labels map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}
