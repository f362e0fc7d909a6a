package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rinze/analisis-mesas-2011/internal/config"
	"github.com/rinze/analisis-mesas-2011/internal/dataprocessing"
	"github.com/rinze/analisis-mesas-2011/internal/files"
	"github.com/rinze/analisis-mesas-2011/internal/infrastructure"
	"github.com/rinze/analisis-mesas-2011/internal/services"
	"github.com/rinze/analisis-mesas-2011/internal/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, nil); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

type cliFlags struct {
	configFile string
	in         string
	out        string
	rule       string
	k          float64
	vmin       int
	plow       float64
	phigh      float64
	province   string
	town       string
	layout     string
	towns      string
	workers    int
	xlsx       bool
	records    bool
	recursive  bool
	bom        bool
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, map[string]bool, error) {
	fs := flag.NewFlagSet("mesas", flag.ContinueOnError)
	fs.SetOutput(stderr)

	f := &cliFlags{}
	fs.StringVar(&f.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&f.in, "in", "", "results archive (.zip) or directory of archives")
	fs.StringVar(&f.out, "out", "", "reports directory (defaults to the configured reports dir)")
	fs.StringVar(&f.rule, "rule", "", "detection rule: relative or absolute")
	fs.Float64Var(&f.k, "k", 0, "relative rule multiplier")
	fs.IntVar(&f.vmin, "vmin", 0, "relative rule minimum votes")
	fs.Float64Var(&f.plow, "plow", 0, "absolute rule mean share ceiling")
	fs.Float64Var(&f.phigh, "phigh", 0, "absolute rule box share threshold")
	fs.StringVar(&f.province, "province", "", "two digit province code; -province= -town= analyses every box")
	fs.StringVar(&f.town, "town", "", "three digit town code")
	fs.StringVar(&f.layout, "layout", "", "results layout: v1 or v2")
	fs.StringVar(&f.towns, "towns", "", "town lookup CSV")
	fs.IntVar(&f.workers, "workers", 0, "archives analysed concurrently")
	fs.BoolVar(&f.xlsx, "xlsx", false, "also write an Excel workbook")
	fs.BoolVar(&f.records, "records", false, "also write the filtered vote records")
	fs.BoolVar(&f.bom, "bom", false, "prefix the records CSV with a UTF-8 byte order mark")
	fs.BoolVar(&f.recursive, "recursive", false, "search subdirectories of -in for archives")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if f.in == "" {
		fs.Usage()
		return nil, nil, errors.New("-in is required")
	}

	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return f, set, nil
}

// applyFlags overrides configuration values with explicitly set flags.
func applyFlags(cfg *config.Config, f *cliFlags, set map[string]bool) {
	if set["rule"] {
		cfg.Detection.Rule = f.rule
	}
	if set["k"] {
		cfg.Detection.K = f.k
	}
	if set["vmin"] {
		cfg.Detection.VMin = f.vmin
	}
	if set["plow"] {
		cfg.Detection.PLow = f.plow
	}
	if set["phigh"] {
		cfg.Detection.PHigh = f.phigh
	}
	// Naming either code replaces the configured jurisdiction as a whole.
	if set["province"] || set["town"] {
		cfg.Ingest.ProvinceCode = f.province
		cfg.Ingest.TownCode = f.town
	}
	if set["layout"] {
		cfg.Ingest.Layout = f.layout
	}
	if set["towns"] {
		cfg.Ingest.TownsFile = f.towns
	}
	if set["workers"] {
		cfg.Ingest.Workers = f.workers
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func run(ctx context.Context, args []string, stdout io.Writer, logger *slog.Logger) error {
	f, set, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(f.configFile)
	if err != nil {
		return err
	}
	applyFlags(cfg, f, set)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if logger == nil {
		logger, err = infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			logger = slog.Default()
		}
	}
	logger = infrastructure.WithComponent(logger, "cli")
	ctx = infrastructure.EnsureTraceID(ctx)

	outDir := f.out
	if outDir == "" {
		paths, err := cfg.ResolvePaths()
		if err != nil {
			return err
		}
		outDir = paths.ReportsDir
	}

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateOutputDirectory(outDir); err != nil {
		return err
	}
	if err := validator.ValidateTownsFile(cfg.Ingest.TownsFile); err != nil {
		return err
	}

	archives, err := collectArchives(ctx, f.in, f.recursive, validator, logger)
	if err != nil {
		return err
	}

	towns, err := dataprocessing.LoadTownLookup(cfg.Ingest.TownsFile)
	if err != nil {
		return err
	}
	opts, err := services.OptionsFromConfig(cfg, towns)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting analysis",
		slog.String("input", f.in),
		slog.String("output_dir", outDir),
		slog.Int("archives", len(archives)),
		slog.String("rule", string(opts.Rule)))

	batch := &services.Batch{
		Analysis: services.NewAnalysisService(nil, logger),
		Reports:  services.NewReportService(outDir, logger),
		Workers:  cfg.Ingest.Workers,
		Logger:   logger,
	}
	items, err := batch.Run(ctx, archives, opts, services.ReportOptions{Records: f.records, XLSX: f.xlsx, RecordsBOM: f.bom})
	if err != nil {
		return err
	}

	var errs []error
	for _, it := range items {
		if it.Err != nil {
			logger.ErrorContext(ctx, "archive failed", slog.String("archive", it.Path), slog.String("error", it.Err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", it.Path, it.Err))
			continue
		}
		res := it.Outcome.Result
		fmt.Fprintf(stdout, "%s: %d of %d boxes flagged (%.2f%%) -> %s\n",
			it.Path, res.FlaggedBoxes(), res.TotalBoxes, 100*res.FlagRate(), it.Reports.Ranking)
	}
	return errors.Join(errs...)
}

// collectArchives expands in to the list of archives to analyse.
func collectArchives(ctx context.Context, in string, recursive bool, validator *validation.FileValidator, logger *slog.Logger) ([]string, error) {
	info, err := os.Stat(in)
	if err != nil || !info.IsDir() {
		if err := validator.ValidateArchivePath(in); err != nil {
			return nil, err
		}
		return []string{in}, nil
	}

	found, err := files.NewDiscovery("").Recursive(recursive).FindArchives(in)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w in %s", services.ErrNoArchivesFound, in)
	}
	paths := make([]string, len(found))
	for i, a := range found {
		paths[i] = a.Path
		attrs := []any{slog.String("archive", a.Path), slog.Int64("bytes", a.Size)}
		if a.Tag != nil {
			attrs = append(attrs,
				slog.String("process", a.Tag.Process),
				slog.String("election", fmt.Sprintf("%04d-%02d", a.Tag.Year, a.Tag.Month)))
		}
		logger.DebugContext(ctx, "archive discovered", attrs...)
	}
	return paths, nil
}
