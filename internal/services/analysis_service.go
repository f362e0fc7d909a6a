package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rinze/analisis-mesas-2011/internal/anomaly"
	"github.com/rinze/analisis-mesas-2011/internal/config"
	"github.com/rinze/analisis-mesas-2011/internal/dataprocessing"
	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
	"github.com/rinze/analisis-mesas-2011/internal/infrastructure"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// AnalysisOptions is everything one analysis run needs besides the archive.
type AnalysisOptions struct {
	Rule          domain.Rule
	Params        domain.DetectionParams
	Layout        domain.Layout
	Filter        domain.Jurisdiction
	Towns         *dataprocessing.TownLookup
	DropZeroVotes bool
}

// OptionsFromConfig builds run options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config, towns *dataprocessing.TownLookup) (AnalysisOptions, error) {
	rule, err := cfg.Detection.RuleValue()
	if err != nil {
		return AnalysisOptions{}, apperrors.NewConfigError("invalid detection rule", err)
	}
	layout, err := cfg.Ingest.LayoutValue()
	if err != nil {
		return AnalysisOptions{}, apperrors.NewConfigError("invalid results layout", err)
	}
	return AnalysisOptions{
		Rule:          rule,
		Params:        cfg.Detection.Params(),
		Layout:        layout,
		Filter:        cfg.Ingest.Jurisdiction(),
		Towns:         towns,
		DropZeroVotes: cfg.Ingest.DropZeroVotes,
	}, nil
}

// AnalysisOutcome is the result of one archive analysis.
type AnalysisOutcome struct {
	ID      string
	Result  *domain.DetectionResult
	Ingest  domain.IngestReport
	Records []domain.VoteRecord
}

// AnalysisService runs ingestion followed by detection.
type AnalysisService struct {
	ingester *dataprocessing.Ingester
	metrics  *infrastructure.PipelineMetrics
	logger   *slog.Logger
}

// NewAnalysisService creates the service. metrics may be nil.
func NewAnalysisService(metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		ingester: dataprocessing.NewIngester(logger),
		metrics:  metrics,
		logger:   infrastructure.WithComponent(logger, "analysis"),
	}
}

// AnalyzeFile analyses the archive at path.
func (s *AnalysisService) AnalyzeFile(ctx context.Context, path string, opts AnalysisOptions) (*AnalysisOutcome, error) {
	start := time.Now()
	archive, err := dataprocessing.OpenArchive(path)
	if err != nil {
		s.fail(ctx, err, start)
		return nil, err
	}
	defer archive.Close()

	return s.run(ctx, archive, opts, start)
}

// AnalyzeUpload analyses an archive held in memory or in a temporary file.
func (s *AnalysisService) AnalyzeUpload(ctx context.Context, r io.ReaderAt, size int64, name string, opts AnalysisOptions) (*AnalysisOutcome, error) {
	start := time.Now()
	archive, err := dataprocessing.ReadArchive(r, size, name)
	if err != nil {
		s.fail(ctx, err, start)
		return nil, err
	}
	defer archive.Close()

	return s.run(ctx, archive, opts, start)
}

// Analyze analyses an already opened archive. The caller closes it.
func (s *AnalysisService) Analyze(ctx context.Context, archive *dataprocessing.Archive, opts AnalysisOptions) (*AnalysisOutcome, error) {
	return s.run(ctx, archive, opts, time.Now())
}

func (s *AnalysisService) run(ctx context.Context, archive *dataprocessing.Archive, opts AnalysisOptions, start time.Time) (*AnalysisOutcome, error) {
	id := uuid.New().String()
	ctx = infrastructure.EnsureTraceID(ctx)

	ctx, span := infrastructure.StartSpan(ctx, "analysis",
		attribute.String("analysis.id", id),
		attribute.String("archive", archive.Name),
		attribute.String("rule", string(opts.Rule)))
	defer span.End()

	logger := s.logger.With(slog.String("analysis_id", id))

	detector, err := anomaly.NewDetector(opts.Params, logger)
	if err != nil {
		s.fail(ctx, err, start)
		return nil, err
	}

	ingested, err := s.ingester.Ingest(ctx, archive, dataprocessing.IngestOptions{
		Layout:        opts.Layout,
		Filter:        opts.Filter,
		Towns:         opts.Towns,
		DropZeroVotes: opts.DropZeroVotes,
	})
	if err != nil {
		s.fail(ctx, err, start)
		return nil, err
	}

	result, err := detector.Detect(ctx, ingested.Records, opts.Rule)
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok {
			appErr.WithContext("archive", archive.Name)
		}
		s.fail(ctx, err, start)
		return nil, err
	}

	elapsed := time.Since(start)
	s.metrics.RecordAnalysis(ctx, len(ingested.Records), result, elapsed)

	logger.InfoContext(ctx, "analysis complete",
		slog.String("archive", archive.Name),
		slog.String("rule", string(result.Rule)),
		slog.Int("records", len(ingested.Records)),
		slog.Int("total_boxes", result.TotalBoxes),
		slog.Int("flagged_boxes", result.FlaggedBoxes()),
		slog.Duration("duration", elapsed))

	return &AnalysisOutcome{
		ID:      id,
		Result:  result,
		Ingest:  ingested.Report,
		Records: ingested.Records,
	}, nil
}

func (s *AnalysisService) fail(ctx context.Context, err error, start time.Time) {
	infrastructure.RecordError(ctx, err)
	s.metrics.RecordFailure(ctx, string(apperrors.TypeOf(err)), time.Since(start))
	s.logger.LogAttrs(ctx, slog.LevelError, "analysis failed", apperrors.ErrorAttrs(err)...)
}
