package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Paths are the resolved application directories. Relative entries are
// anchored at BaseDir, never at the working directory.
type Paths struct {
	BaseDir    string
	DataDir    string
	ReportsDir string
	LogsDir    string
}

// BaseDir is MESAS_HOME when set, otherwise the directory holding the
// executable with symlinks resolved.
func BaseDir() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return filepath.Abs(home)
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if exe, err = filepath.EvalSymlinks(exe); err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return filepath.Dir(exe), nil
}

// NewPaths anchors cfg at base. Empty entries take the defaults.
func NewPaths(base string, cfg PathsConfig) *Paths {
	p := &Paths{BaseDir: base}
	for _, d := range []struct {
		dst        *string
		configured string
		fallback   string
	}{
		{&p.DataDir, cfg.DataDir, DefaultDataDir},
		{&p.ReportsDir, cfg.ReportsDir, DefaultReportsDir},
		{&p.LogsDir, cfg.LogsDir, DefaultLogsDir},
	} {
		dir := d.configured
		if dir == "" {
			dir = d.fallback
		}
		*d.dst = p.Resolve(dir)
	}
	return p
}

// ResolvePaths anchors the configured directories at BaseDir().
func (c *Config) ResolvePaths() (*Paths, error) {
	base, err := BaseDir()
	if err != nil {
		return nil, err
	}
	return NewPaths(base, c.Paths), nil
}

// EnsureDirectories creates every directory, reporting all failures.
func (p *Paths) EnsureDirectories() error {
	var errs []error
	for _, dir := range []string{p.DataDir, p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			errs = append(errs, fmt.Errorf("create %s: %w", dir, err))
		}
	}
	return errors.Join(errs...)
}

// Resolve anchors a slash-separated relative path at BaseDir. Absolute
// paths are returned unchanged.
func (p *Paths) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.BaseDir, filepath.FromSlash(path))
}

// Report places a report file name in ReportsDir.
func (p *Paths) Report(name string) string {
	return filepath.Join(p.ReportsDir, name)
}

// ReportBaseName strips directories and the archive extension, so
// "data/04201105_MESA.zip" becomes "04201105_MESA".
func ReportBaseName(archivePath string) string {
	base := filepath.Base(archivePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Exists reports whether anything is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
