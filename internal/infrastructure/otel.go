package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/rinze/analisis-mesas-2011/internal/config"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts"
)

// InstrumentationName names the tracer and meter of every pipeline stage.
const InstrumentationName = "github.com/rinze/analisis-mesas-2011"

const exporterNone = "none"

// OTelConfig selects exporters and sampling for the telemetry providers.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // stdout | none
	MetricExporter string // prometheus | none
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders bundles what the rest of the process needs from telemetry.
// Tracer and Meter are always usable; the SDK providers are nil when the
// matching signal is disabled.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig keeps spans in-process and exposes metrics for scraping.
func DefaultOTelConfig() *OTelConfig {
	return &OTelConfig{
		ServiceName:    config.AppName,
		ServiceVersion: contracts.Version,
		Environment:    "development",
		TraceExporter:  exporterNone,
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0,
	}
}

// OTelConfigFrom maps the telemetry config section. Empty fields keep the
// defaults; Enabled switches both signals together.
func OTelConfigFrom(cfg config.TelemetryConfig) *OTelConfig {
	out := DefaultOTelConfig()
	for dst, src := range map[*string]string{
		&out.ServiceName:    cfg.ServiceName,
		&out.Environment:    cfg.Environment,
		&out.TraceExporter:  cfg.TraceExporter,
		&out.MetricExporter: cfg.MetricExporter,
	} {
		if src != "" {
			*dst = src
		}
	}
	if cfg.SampleRatio > 0 {
		out.SampleRatio = cfg.SampleRatio
	}
	out.EnableTracing = cfg.Enabled
	out.EnableMetrics = cfg.Enabled
	return out
}

// InitializeOTel builds the providers described by cfg and installs them as
// the global tracer and meter providers.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}
	logger = logger.With(slog.String("component", "telemetry"))

	spanExporter, err := newSpanExporter(cfg)
	if err != nil {
		return nil, err
	}
	reader, scrape, err := newMetricReader(cfg)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", NewTraceID()),
	)

	p := &OTelProviders{Logger: logger, PrometheusHTTP: scrape}

	if cfg.EnableTracing {
		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		}
		if spanExporter != nil {
			opts = append(opts, sdktrace.WithBatcher(spanExporter))
		}
		p.TracerProvider = sdktrace.NewTracerProvider(opts...)
		p.Tracer = p.TracerProvider.Tracer(InstrumentationName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
		otel.SetTracerProvider(p.TracerProvider)
	} else {
		p.Tracer = otel.Tracer(InstrumentationName)
	}

	if reader != nil {
		p.MeterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
		p.Meter = p.MeterProvider.Meter(InstrumentationName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
		otel.SetMeterProvider(p.MeterProvider)
	} else {
		p.Meter = otel.Meter(InstrumentationName)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("telemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing", cfg.EnableTracing),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.Bool("metrics", p.MeterProvider != nil),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return p, nil
}

// newSpanExporter returns nil for "none": spans are still sampled and
// propagated, they just never leave the process.
func newSpanExporter(cfg *OTelConfig) (sdktrace.SpanExporter, error) {
	switch cfg.TraceExporter {
	case "stdout":
		if !cfg.EnableTracing {
			return nil, nil
		}
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("stdout trace exporter: %w", err)
		}
		return exp, nil
	case exporterNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported trace exporter %q", cfg.TraceExporter)
	}
}

// newMetricReader registers the exporter on a private registry so that
// several providers can coexist in one process (tests build many).
func newMetricReader(cfg *OTelConfig) (sdkmetric.Reader, http.Handler, error) {
	switch cfg.MetricExporter {
	case "prometheus":
		if !cfg.EnableMetrics {
			return nil, nil, nil
		}
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		exp, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return nil, nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		return exp, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
	case exporterNone, "":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported metric exporter %q", cfg.MetricExporter)
	}
}

// Shutdown flushes pending spans and stops both providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("telemetry shutdown: %w", err)
	}
	p.Logger.DebugContext(ctx, "telemetry stopped")
	return nil
}

// StartSpan opens a span on the global tracer provider. Before
// InitializeOTel runs this is a no-op span.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(InstrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// TraceIDFromContext returns the OpenTelemetry trace ID, or "" outside a span.
func TraceIDFromContext(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// RecordError marks the current span as failed.
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
