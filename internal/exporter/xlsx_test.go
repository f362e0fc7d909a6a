package exporter

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

func TestWriteXLSXReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "madrid_report.xlsx")

	err := WriteXLSXReport(path, Report{
		Result: sampleResult(),
		Ingest: &domain.IngestReport{
			Archive:     "/data/02201105_MESA.zip",
			ResultsFile: "10021105.DAT",
			Layout:      domain.LayoutV2,
			Filter:      domain.Jurisdiction{ProvinceCode: "28", TownCode: "079"},
			Records:     90,
		},
		GeneratedAt: time.Date(2011, 5, 22, 20, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSuspicious, SheetBaselines, SheetSummary}, f.GetSheetList())

	rows, err := f.GetRows(SheetSuspicious)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"district_code", "section_code", "table_code", "bad_counts"},
		{"01", "030", "A", "2"},
		{"01", "005", "B", "1"},
	}, rows)

	name, err := f.GetCellValue(SheetBaselines, "A2")
	require.NoError(t, err)
	assert.Equal(t, "ESCAÑOS EN BLANCO", name)

	raw, err := f.GetCellValue(SheetBaselines, "B2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "0.017", raw)

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	values := make(map[string]string)
	for _, r := range summary {
		if len(r) == 2 {
			values[r[0]] = r[1]
		}
	}
	assert.Equal(t, "absolute", values["rule"])
	assert.Equal(t, "30", values["total_boxes"])
	assert.Equal(t, "2", values["flagged_boxes"])
	assert.Equal(t, "6.67%", values["flag_rate"])
	assert.Equal(t, "02201105_MESA.zip", values["archive"])
	assert.Equal(t, "079", values["town"])
	assert.Equal(t, "2011-05-22T20:00:00Z", values["generated_at"])
}

func TestBuildWorkbookRequiresResult(t *testing.T) {
	_, err := BuildWorkbook(Report{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}
