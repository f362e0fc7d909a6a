package dataprocessing

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
	"github.com/rinze/analisis-mesas-2011/internal/infrastructure"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// IngestOptions controls how an archive is turned into vote records.
type IngestOptions struct {
	Layout        domain.Layout
	Filter        domain.Jurisdiction
	Towns         *TownLookup
	DropZeroVotes bool
}

// IngestResult is the output of one archive ingestion.
type IngestResult struct {
	Records []domain.VoteRecord
	Report  domain.IngestReport
}

// Ingester reads election archives.
type Ingester struct {
	logger *slog.Logger
}

// NewIngester creates an ingester. A nil logger uses slog.Default().
func NewIngester(logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{logger: infrastructure.WithComponent(logger, "ingest")}
}

// IngestFile opens the archive at path and ingests it.
func (i *Ingester) IngestFile(ctx context.Context, path string, opts IngestOptions) (*IngestResult, error) {
	archive, err := OpenArchive(path)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	return i.Ingest(ctx, archive, opts)
}

// Ingest parses the party lookup then the results file of archive. Any
// error aborts the whole archive.
func (i *Ingester) Ingest(ctx context.Context, archive *Archive, opts IngestOptions) (*IngestResult, error) {
	start := time.Now()

	ctx, span := infrastructure.StartSpan(ctx, "ingest",
		attribute.String("archive", archive.Name),
		attribute.String("layout", string(opts.Layout)))
	defer span.End()

	layout := opts.Layout
	if layout == "" {
		layout = domain.LayoutV2
	}

	parties, err := i.readParties(archive)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	results, err := archive.Open(RoleResults)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	defer results.Close()

	parser := &ResultsParser{
		Layout:        layout,
		Filter:        opts.Filter,
		Parties:       parties,
		Towns:         opts.Towns,
		DropZeroVotes: opts.DropZeroVotes,
		Logger:        i.logger,
	}
	parsed, err := parser.Parse(ctx, results, archive.MemberName(RoleResults))
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok {
			appErr.WithContext("archive", archive.Name)
		}
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	report := domain.IngestReport{
		Archive:     archive.Name,
		PartiesFile: archive.MemberName(RoleParties),
		ResultsFile: archive.MemberName(RoleResults),
		Layout:      layout,
		Filter:      opts.Filter,
		Parties:     parties.Len(),
		LinesRead:   parsed.LinesRead,
		Records:     len(parsed.Records),
		Filtered:    parsed.Filtered,
		ZeroVotes:   parsed.ZeroVotes,
		Duration:    time.Since(start),
	}

	span.SetAttributes(attribute.Int("records", report.Records))

	i.logger.InfoContext(ctx, "archive ingested",
		slog.String("archive", report.Archive),
		slog.String("results_file", report.ResultsFile),
		slog.Int("parties", report.Parties),
		slog.Int("records", report.Records),
		slog.Int("filtered", report.Filtered),
		slog.Int("zero_votes", report.ZeroVotes),
		slog.Duration("duration", report.Duration))

	return &IngestResult{Records: parsed.Records, Report: report}, nil
}

func (i *Ingester) readParties(archive *Archive) (PartyLookup, error) {
	rc, err := archive.Open(RoleParties)
	if err != nil {
		return PartyLookup{}, err
	}
	defer rc.Close()

	parties, err := ParsePartyLookup(rc)
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok {
			appErr.WithContext("archive", archive.Name).
				WithContext("file", archive.MemberName(RoleParties))
		}
		return PartyLookup{}, err
	}
	return parties, nil
}

// LoadTownLookup reads a town CSV from disk. An empty path returns nil.
func LoadTownLookup(path string) (*TownLookup, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewNotFoundError("towns file").WithContext("path", path)
	}
	defer f.Close()

	towns, err := ParseTownLookup(f)
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok {
			appErr.WithContext("file", path)
		}
		return nil, err
	}
	return &towns, nil
}
