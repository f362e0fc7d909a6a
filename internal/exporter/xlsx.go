package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// Workbook sheet names.
const (
	SheetSuspicious = "Suspicious"
	SheetBaselines  = "Baselines"
	SheetSummary    = "Summary"
)

// Report is everything the spreadsheet shows for one analysis.
type Report struct {
	Result      *domain.DetectionResult
	Ingest      *domain.IngestReport
	GeneratedAt time.Time
}

// BuildWorkbook lays out the ranking, the party baselines and a summary
// sheet. The caller owns the returned file.
func BuildWorkbook(report Report) (*excelize.File, error) {
	if report.Result == nil {
		return nil, apperrors.NewAppValidationError("report has no detection result")
	}
	res := report.Result

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetSuspicious); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(SheetBaselines); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	shareStyle, err := f.NewStyle(&excelize.Style{NumFmt: 10}) // 0.00%
	if err != nil {
		f.Close()
		return nil, err
	}

	rows := [][]interface{}{{"district_code", "section_code", "table_code", "bad_counts"}}
	for _, b := range res.Boxes {
		rows = append(rows, []interface{}{b.District, b.Section, b.Table, b.BadCounts})
	}
	if err := writeRows(f, SheetSuspicious, rows); err != nil {
		f.Close()
		return nil, err
	}

	rows = [][]interface{}{{"party_name", "mean_share", "observations"}}
	for _, b := range res.Baselines {
		rows = append(rows, []interface{}{b.PartyName, b.MeanShare, b.Observations})
	}
	if err := writeRows(f, SheetBaselines, rows); err != nil {
		f.Close()
		return nil, err
	}
	if len(res.Baselines) > 0 {
		last := fmt.Sprintf("B%d", len(res.Baselines)+1)
		if err := f.SetCellStyle(SheetBaselines, "B2", last, shareStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := writeRows(f, SheetSummary, summaryRows(report)); err != nil {
		f.Close()
		return nil, err
	}

	for _, sheet := range []string{SheetSuspicious, SheetBaselines, SheetSummary} {
		f.SetRowStyle(sheet, 1, 1, headerStyle)
	}
	f.SetColWidth(SheetSuspicious, "A", "D", 14)
	f.SetColWidth(SheetBaselines, "A", "A", 40)
	f.SetColWidth(SheetBaselines, "B", "C", 14)
	f.SetColWidth(SheetSummary, "A", "A", 18)
	f.SetColWidth(SheetSummary, "B", "B", 40)
	f.SetActiveSheet(0)

	return f, nil
}

// WriteXLSXReport builds the workbook and saves it to path.
func WriteXLSXReport(path string, report Report) error {
	f, err := BuildWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err).WithContext("path", path)
	}
	if err := f.SaveAs(path); err != nil {
		return apperrors.NewStorageError("failed to save workbook", err).WithContext("path", path)
	}
	return nil
}

func summaryRows(report Report) [][]interface{} {
	res := report.Result
	rows := [][]interface{}{
		{"field", "value"},
		{"rule", string(res.Rule)},
		{"k", res.Params.K},
		{"vmin", res.Params.VMin},
		{"plow", res.Params.PLow},
		{"phigh", res.Params.PHigh},
		{"total_boxes", res.TotalBoxes},
		{"flagged_boxes", res.FlaggedBoxes()},
		{"flag_rate", percent(res.FlagRate())},
	}

	if in := report.Ingest; in != nil {
		rows = append(rows,
			[]interface{}{"archive", filepath.Base(in.Archive)},
			[]interface{}{"results_file", in.ResultsFile},
			[]interface{}{"layout", string(in.Layout)},
			[]interface{}{"province", in.Filter.ProvinceCode},
			[]interface{}{"town", in.Filter.TownCode},
			[]interface{}{"records", in.Records},
			[]interface{}{"filtered", in.Filtered},
			[]interface{}{"zero_votes", in.ZeroVotes},
		)
	}

	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	rows = append(rows,
		[]interface{}{"generated_at", generated.UTC().Format(time.RFC3339)},
		[]interface{}{"version", contracts.Build().String()},
	)
	return rows
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
