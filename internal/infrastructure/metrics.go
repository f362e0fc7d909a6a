package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// PipelineMetrics holds the counters and histograms of the analysis pipeline.
type PipelineMetrics struct {
	RecordsIngested  metric.Int64Counter
	BoxesAnalysed    metric.Int64Counter
	BoxesFlagged     metric.Int64Counter
	AnalysesTotal    metric.Int64Counter
	AnalysisErrors   metric.Int64Counter
	AnalysisDuration metric.Float64Histogram
}

// NewPipelineMetrics creates the pipeline instruments on meter. A nil meter
// uses the global meter provider.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	recordsIngested, err := meter.Int64Counter(
		"mesas_records_ingested_total",
		metric.WithDescription("Vote records accepted by ingestion"),
	)
	if err != nil {
		return nil, err
	}

	boxesAnalysed, err := meter.Int64Counter(
		"mesas_boxes_analysed_total",
		metric.WithDescription("Ballot boxes seen by the detector"),
	)
	if err != nil {
		return nil, err
	}

	boxesFlagged, err := meter.Int64Counter(
		"mesas_boxes_flagged_total",
		metric.WithDescription("Ballot boxes with at least one flagged record"),
	)
	if err != nil {
		return nil, err
	}

	analysesTotal, err := meter.Int64Counter(
		"mesas_analyses_total",
		metric.WithDescription("Completed analyses"),
	)
	if err != nil {
		return nil, err
	}

	analysisErrors, err := meter.Int64Counter(
		"mesas_analysis_errors_total",
		metric.WithDescription("Failed analyses by error type"),
	)
	if err != nil {
		return nil, err
	}

	analysisDuration, err := meter.Float64Histogram(
		"mesas_analysis_duration_seconds",
		metric.WithDescription("End to end analysis duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		RecordsIngested:  recordsIngested,
		BoxesAnalysed:    boxesAnalysed,
		BoxesFlagged:     boxesFlagged,
		AnalysesTotal:    analysesTotal,
		AnalysisErrors:   analysisErrors,
		AnalysisDuration: analysisDuration,
	}, nil
}

// RecordAnalysis records a successful run.
func (m *PipelineMetrics) RecordAnalysis(ctx context.Context, records int, result *domain.DetectionResult, duration time.Duration) {
	if m == nil || result == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("rule", string(result.Rule)))

	m.RecordsIngested.Add(ctx, int64(records), attrs)
	m.BoxesAnalysed.Add(ctx, int64(result.TotalBoxes), attrs)
	m.BoxesFlagged.Add(ctx, int64(result.FlaggedBoxes()), attrs)
	m.AnalysesTotal.Add(ctx, 1, attrs)
	m.AnalysisDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordFailure records a failed run under its error type.
func (m *PipelineMetrics) RecordFailure(ctx context.Context, errType string, duration time.Duration) {
	if m == nil {
		return
	}
	if errType == "" {
		errType = "UNKNOWN"
	}
	m.AnalysisErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("error.type", errType)))
	m.AnalysisDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("status", "failure")))
}
