package files

import (
	"os"
	"path/filepath"

	"github.com/rinze/analisis-mesas-2011/internal/config"
	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
)

// ReportFiles names the outputs written for one archive.
type ReportFiles struct {
	Ranking string
	Records string
	XLSX    string
}

// Manager decides where reports for an archive go.
type Manager struct {
	outDir string
}

// NewManager creates a manager writing under outDir.
func NewManager(outDir string) *Manager {
	return &Manager{outDir: outDir}
}

// ReportFiles returns the output paths for archivePath:
// <name>_suspicious.csv, <name>_records.csv and <name>_report.xlsx.
func (m *Manager) ReportFiles(archivePath string) ReportFiles {
	base := filepath.Join(m.outDir, config.ReportBaseName(archivePath))
	return ReportFiles{
		Ranking: base + config.SuspiciousCSVSuffix,
		Records: base + config.RecordsCSVSuffix,
		XLSX:    base + config.ReportXLSXSuffix,
	}
}

// EnsureOutputDir creates the output directory.
func (m *Manager) EnsureOutputDir() error {
	if err := os.MkdirAll(m.outDir, 0o755); err != nil {
		return apperrors.NewStorageError("failed to create output directory", err).
			WithContext("path", m.outDir)
	}
	return nil
}

// OutDir returns the output directory.
func (m *Manager) OutDir() string {
	return m.outDir
}
