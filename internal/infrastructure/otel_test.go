package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rinze/analisis-mesas-2011/internal/config"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(nil, testLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelUnsupportedExporter(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "jaeger"
	_, err := InitializeOTel(cfg, testLogger())
	assert.Error(t, err)

	cfg = DefaultOTelConfig()
	cfg.MetricExporter = "statsd"
	_, err = InitializeOTel(cfg, testLogger())
	assert.Error(t, err)
}

func TestOTelConfigFrom(t *testing.T) {
	cfg := OTelConfigFrom(config.TelemetryConfig{
		Enabled:       false,
		ServiceName:   "svc",
		TraceExporter: "stdout",
	})
	assert.Equal(t, "svc", cfg.ServiceName)
	assert.Equal(t, "stdout", cfg.TraceExporter)
	assert.Equal(t, "prometheus", cfg.MetricExporter)
	assert.False(t, cfg.EnableTracing)
	assert.False(t, cfg.EnableMetrics)

	providers, err := InitializeOTel(cfg, testLogger())
	require.NoError(t, err)
	assert.Nil(t, providers.PrometheusHTTP)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
}

func TestSpanTraceID(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), testLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := StartSpan(context.Background(), "detect")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.NotEmpty(t, traceID)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)

	RecordError(ctx, assert.AnError)
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestPipelineMetricsExposed(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), testLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := NewPipelineMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordAnalysis(ctx, 120, &domain.DetectionResult{
		Rule:       domain.RuleAbsoluteFraction,
		TotalBoxes: 10,
		Boxes:      []domain.SuspiciousBox{{District: "01", Section: "001", Table: "A", BadCounts: 1}},
	}, 250*time.Millisecond)
	metrics.RecordFailure(ctx, "", time.Second)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "mesas_records_ingested_total")
	assert.Contains(t, body, "mesas_boxes_flagged_total")
	assert.Contains(t, body, "mesas_analysis_errors_total")

	var nilMetrics *PipelineMetrics
	nilMetrics.RecordAnalysis(ctx, 1, nil, 0)
	nilMetrics.RecordFailure(ctx, "PARSING", 0)
}
