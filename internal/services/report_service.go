package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/rinze/analisis-mesas-2011/internal/exporter"
	"github.com/rinze/analisis-mesas-2011/internal/files"
	"github.com/rinze/analisis-mesas-2011/internal/infrastructure"
)

// ReportOptions selects the optional outputs. The ranking CSV is always
// written.
type ReportOptions struct {
	Records bool
	XLSX    bool
	// RecordsBOM marks the records CSV as UTF-8 for spreadsheet imports.
	RecordsBOM bool
}

// ReportService writes the files of a finished analysis.
type ReportService struct {
	manager *files.Manager
	logger  *slog.Logger
}

// NewReportService creates a report service writing under outDir.
func NewReportService(outDir string, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "reports")
	return &ReportService{
		manager: files.NewManager(outDir),
		logger:  logger,
	}
}

// Write stores the outcome of archivePath and returns the paths written.
// Paths of outputs not requested are left empty.
func (s *ReportService) Write(ctx context.Context, archivePath string, outcome *AnalysisOutcome, opts ReportOptions) (files.ReportFiles, error) {
	if err := s.manager.EnsureOutputDir(); err != nil {
		return files.ReportFiles{}, err
	}
	planned := s.manager.ReportFiles(archivePath)
	var written files.ReportFiles
	csvWriter := exporter.NewCSVWriter(nil, s.logger).WithRecordsBOM(opts.RecordsBOM)

	path, err := csvWriter.WriteRankingCSV(planned.Ranking, outcome.Result)
	if err != nil {
		return written, err
	}
	written.Ranking = path

	if opts.Records {
		path, err := csvWriter.WriteRecordsCSV(planned.Records, outcome.Records)
		if err != nil {
			return written, err
		}
		written.Records = path
	}

	if opts.XLSX {
		ingest := outcome.Ingest
		err := exporter.WriteXLSXReport(planned.XLSX, exporter.Report{
			Result:      outcome.Result,
			Ingest:      &ingest,
			GeneratedAt: time.Now(),
		})
		if err != nil {
			return written, err
		}
		written.XLSX = planned.XLSX
	}

	s.logger.InfoContext(ctx, "reports written",
		slog.String("analysis_id", outcome.ID),
		slog.String("ranking", written.Ranking),
		slog.String("records", written.Records),
		slog.String("xlsx", written.XLSX))

	return written, nil
}
