package exporter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rinze/analisis-mesas-2011/internal/config"
	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
	"github.com/rinze/analisis-mesas-2011/internal/shared/testutil"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

func setupWriter(t *testing.T) (*CSVWriter, *config.Paths) {
	t.Helper()
	paths := config.NewPaths(t.TempDir(), config.PathsConfig{})
	logger, _ := testutil.NewTestLogger(t)
	return NewCSVWriter(paths, logger), paths
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func sampleResult() *domain.DetectionResult {
	return &domain.DetectionResult{
		Rule:   domain.RuleAbsoluteFraction,
		Params: domain.DefaultDetectionParams(),
		Boxes: []domain.SuspiciousBox{
			{District: "01", Section: "030", Table: "A", BadCounts: 2},
			{District: "01", Section: "005", Table: "B", BadCounts: 1},
		},
		Baselines: []domain.PartyBaseline{
			{PartyName: "ESCAÑOS EN BLANCO", MeanShare: 0.017, Observations: 30},
			{PartyName: "PARTIDO POPULAR", MeanShare: 0.51, Observations: 30},
		},
		TotalBoxes: 30,
	}
}

func TestWriteRankingCSV(t *testing.T) {
	w, paths := setupWriter(t)

	path, err := w.WriteRankingCSV("madrid_suspicious.csv", sampleResult())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.ReportsDir, "madrid_suspicious.csv"), path)

	rows := readCSV(t, path)
	assert.Equal(t, [][]string{
		{"district_code", "section_code", "table_code", "bad_counts"},
		{"01", "030", "A", "2"},
		{"01", "005", "B", "1"},
	}, rows)
}

func TestWriteRankingCSVEmpty(t *testing.T) {
	w, _ := setupWriter(t)

	path, err := w.WriteRankingCSV(filepath.Join(t.TempDir(), "none.csv"), &domain.DetectionResult{TotalBoxes: 4})
	require.NoError(t, err)
	assert.Equal(t, [][]string{RankingHeaders}, readCSV(t, path))
}

func TestWriteRecordsCSV(t *testing.T) {
	w, _ := setupWriter(t)

	rec := testutil.Record(t, "01", "001", "A", "ESCAÑOS EN BLANCO", 20).WithTownName("Madrid")
	path, err := w.WriteRecordsCSV("records.csv", []domain.VoteRecord{rec})
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, RecordHeaders, rows[0])
	assert.Equal(t, []string{"28", "079", "01", "001", "A", rec.PartyCode, "Madrid", "ESCAÑOS EN BLANCO", "20"}, rows[1])
}

func TestWriteRecordsCSVWithBOM(t *testing.T) {
	w, _ := setupWriter(t)
	w.WithRecordsBOM(true)

	rec := testutil.Record(t, "01", "001", "A", "ESCAÑOS EN BLANCO", 20)
	path, err := w.WriteRecordsCSV(filepath.Join(t.TempDir(), "nested", "records.csv"), []domain.VoteRecord{rec})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, utf8BOM, content[:3])
	assert.True(t, strings.HasPrefix(string(content[3:]), "prov_code,town_code,"))

	ranking, err := w.WriteRankingCSV(filepath.Join(filepath.Dir(path), "ranking.csv"), sampleResult())
	require.NoError(t, err)
	content, err = os.ReadFile(ranking)
	require.NoError(t, err)
	assert.Equal(t, "district_code", string(content[:len("district_code")]), "ranking never has a BOM")
}

func TestWriteReplacesExistingFile(t *testing.T) {
	w, _ := setupWriter(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "ranking.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale contents that are longer than the new file\n"), 0o644))

	_, err := w.WriteRankingCSV(path, &domain.DetectionResult{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{RankingHeaders}, readCSV(t, path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestWriteCSVStorageError(t *testing.T) {
	w, _ := setupWriter(t)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := w.WriteRankingCSV(filepath.Join(blocker, "out.csv"), sampleResult())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

func TestResolvePathWithoutPaths(t *testing.T) {
	w := NewCSVWriter(nil, nil)
	assert.Equal(t, "out.csv", w.resolvePath("out.csv"))
	assert.True(t, strings.HasSuffix(w.resolvePath("/tmp/x.csv"), "x.csv"))
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "10.00%", percent(0.1))
	assert.Equal(t, "0.00%", percent(0))
	assert.Equal(t, []string{"01", "001", "A", "42"}, rankingRow(domain.SuspiciousBox{District: "01", Section: "001", Table: "A", BadCounts: 42}))
}
