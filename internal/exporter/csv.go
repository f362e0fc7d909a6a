package exporter

import (
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rinze/analisis-mesas-2011/internal/config"
	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// RankingHeaders is the header of the suspicious box ranking.
var RankingHeaders = []string{"district_code", "section_code", "table_code", "bad_counts"}

// RecordHeaders is the header of the parsed records export.
var RecordHeaders = []string{
	"prov_code", "town_code", "dist_code", "section_code", "table_code",
	"party_code", "town_name", "party_name", "votes",
}

// CSVWriter writes report CSVs. Each file is written to a temporary sibling
// and renamed into place, so readers never see a partial report.
type CSVWriter struct {
	paths      *config.Paths
	logger     *slog.Logger
	recordsBOM bool
}

// NewCSVWriter creates a CSV writer. With nil paths, relative file names
// are used as given; otherwise they resolve under the reports directory.
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{paths: paths, logger: logger}
}

// WithRecordsBOM prefixes the records export with a UTF-8 byte order mark.
// The ranking never carries one.
func (w *CSVWriter) WithRecordsBOM(on bool) *CSVWriter {
	w.recordsBOM = on
	return w
}

// WriteRankingCSV writes the suspicious boxes in ranking order. The total
// box count is not part of the file.
func (w *CSVWriter) WriteRankingCSV(filePath string, result *domain.DetectionResult) (string, error) {
	path, err := w.write(filePath, false, RankingHeaders, func(emit func([]string) error) error {
		for _, b := range result.Boxes {
			if err := emit(rankingRow(b)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	w.logger.Info("ranking written",
		slog.String("path", path),
		slog.String("rule", string(result.Rule)),
		slog.Int("flagged_boxes", len(result.Boxes)),
		slog.Int("total_boxes", result.TotalBoxes))
	return path, nil
}

// WriteRecordsCSV writes the filtered vote records in input order.
func (w *CSVWriter) WriteRecordsCSV(filePath string, records []domain.VoteRecord) (string, error) {
	path, err := w.write(filePath, w.recordsBOM, RecordHeaders, func(emit func([]string) error) error {
		for _, r := range records {
			if err := emit(recordRow(r)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	w.logger.Info("records written", slog.String("path", path), slog.Int("records", len(records)))
	return path, nil
}

// write streams headers and rows into a temp file next to the target, then
// renames it over the target.
func (w *CSVWriter) write(filePath string, bom bool, headers []string, rows func(emit func([]string) error) error) (string, error) {
	path := w.resolvePath(filePath)
	storageErr := func(msg string, err error) error {
		return apperrors.NewStorageError(msg, err).WithContext("path", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", storageErr("failed to create directory", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return "", storageErr("failed to create file", err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if bom {
		if _, err := tmp.Write(utf8BOM); err != nil {
			return "", storageErr("failed to write BOM", err)
		}
	}

	cw := csv.NewWriter(tmp)
	if err := cw.Write(headers); err != nil {
		return "", storageErr("failed to write headers", err)
	}
	if err := rows(cw.Write); err != nil {
		return "", storageErr("failed to write row", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", storageErr("failed to flush CSV", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return "", storageErr("failed to set permissions", err)
	}
	if err := tmp.Close(); err != nil {
		return "", storageErr("failed to close file", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", storageErr("failed to move file into place", err)
	}
	committed = true

	w.logger.Debug("csv committed", slog.String("path", path))
	return path, nil
}

func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return w.paths.Report(filePath)
}
