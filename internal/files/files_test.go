package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
)

func touch(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFindArchives(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "data")
	touch(t, filepath.Join(dir, "04201105_MESA.zip"), "zip")
	touch(t, filepath.Join(dir, "02201105_MESA.ZIP"), "zip")
	touch(t, filepath.Join(dir, "empty.zip"), "")
	touch(t, filepath.Join(dir, "notes.txt"), "txt")
	touch(t, filepath.Join(dir, "nested", "01201105_MESA.zip"), "zip")

	tests := []struct {
		name string
		dir  string
	}{
		{"relative to base", "data"},
		{"absolute", dir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := NewDiscovery(base).FindArchives(tt.dir)
			require.NoError(t, err)
			require.Len(t, found, 2)
			assert.Equal(t, "02201105_MESA.ZIP", found[0].Name)
			assert.Equal(t, "04201105_MESA.zip", found[1].Name)
			assert.Equal(t, filepath.Join(dir, "04201105_MESA.zip"), found[1].Path)
			assert.EqualValues(t, 3, found[1].Size)
		})
	}

	_, err := NewDiscovery(base).FindArchives("missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestFindArchivesRecursive(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "04201105_MESA.zip"), "zip")
	touch(t, filepath.Join(dir, "nested", "01201105_MESA.zip"), "zip")

	flat, err := NewDiscovery("").FindArchives(dir)
	require.NoError(t, err)
	assert.Len(t, flat, 1)

	deep, err := NewDiscovery("").Recursive(true).FindArchives(dir)
	require.NoError(t, err)
	require.Len(t, deep, 2)
	assert.Equal(t, "04201105_MESA.zip", deep[0].Name)
	assert.Equal(t, filepath.Join(dir, "nested", "01201105_MESA.zip"), deep[1].Path)
	require.NotNil(t, deep[1].Tag)
	assert.Equal(t, ArchiveTag{Process: "01", Year: 2011, Month: 5}, *deep[1].Tag)
}

func TestParseArchiveName(t *testing.T) {
	tests := []struct {
		name string
		want ArchiveTag
		ok   bool
	}{
		{"02201105_MESA.zip", ArchiveTag{Process: "02", Year: 2011, Month: 5}, true},
		{"/data/04201911_mesa.ZIP", ArchiveTag{Process: "04", Year: 2019, Month: 11}, true},
		{"02201113_MESA.zip", ArchiveTag{}, false},
		{"results.zip", ArchiveTag{}, false},
		{"0220110_MESA.zip", ArchiveTag{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseArchiveName(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestManagerReportFiles(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports")
	m := NewManager(out)

	files := m.ReportFiles("/data/02201105_MESA.zip")
	assert.Equal(t, filepath.Join(out, "02201105_MESA_suspicious.csv"), files.Ranking)
	assert.Equal(t, filepath.Join(out, "02201105_MESA_records.csv"), files.Records)
	assert.Equal(t, filepath.Join(out, "02201105_MESA_report.xlsx"), files.XLSX)

	require.NoError(t, m.EnsureOutputDir())
	assert.DirExists(t, m.OutDir())
}
