package services

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/rinze/analisis-mesas-2011/internal/files"
)

// ErrNoArchivesFound is returned when a batch input directory holds no
// archives.
var ErrNoArchivesFound = errors.New("no archives found")

// BatchItem is the outcome of one archive in a batch. Exactly one of
// Outcome and Err is set; an archive whose reports fail to write counts as
// failed, and Reports then lists only the files that made it to disk.
type BatchItem struct {
	Path    string
	Outcome *AnalysisOutcome
	Reports files.ReportFiles
	Err     error
}

// Batch analyses several archives with bounded concurrency. A failing
// archive does not stop the others.
type Batch struct {
	Analysis *AnalysisService
	Reports  *ReportService
	Workers  int
	Logger   *slog.Logger
}

// Run analyses every path and writes its reports. Items are returned in
// input order. Only context cancellation is returned as an error.
func (b *Batch) Run(ctx context.Context, paths []string, opts AnalysisOptions, reportOpts ReportOptions) ([]BatchItem, error) {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := b.Workers
	if workers < 1 {
		workers = 1
	}

	items := make([]BatchItem, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		items[i].Path = path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				items[i].Err = err
				return err
			}
			outcome, err := b.Analysis.AnalyzeFile(gctx, path, opts)
			if err != nil {
				items[i].Err = err
				return nil
			}
			if b.Reports != nil {
				written, err := b.Reports.Write(gctx, path, outcome, reportOpts)
				items[i].Reports = written
				if err != nil {
					items[i].Err = err
					return nil
				}
			}
			items[i].Outcome = outcome
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return items, err
	}

	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
		}
	}
	logger.InfoContext(ctx, "batch complete",
		slog.Int("archives", len(paths)),
		slog.Int("failed", failed),
		slog.Int("workers", workers))

	return items, nil
}
