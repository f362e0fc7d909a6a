package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// isolateConfigSearch leaves Load no config file to discover: no explicit
// file, a fresh working directory and a fresh base directory.
func isolateConfigSearch(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigFileEnv, "")
	t.Setenv(HomeEnv, t.TempDir())

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		missingFile bool
		errContains string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "absolute", cfg.Detection.Rule)
				assert.Equal(t, domain.DefaultDetectionParams(), cfg.Detection.Params())
				assert.Equal(t, "v2", cfg.Ingest.Layout)
				assert.Equal(t, "28", cfg.Ingest.ProvinceCode)
				assert.Equal(t, "079", cfg.Ingest.TownCode)
				assert.True(t, cfg.Ingest.DropZeroVotes)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
		{
			name: "environment overrides",
			env: map[string]string{
				"MESAS_SERVER_PORT":          "9090",
				"MESAS_DETECTION_RULE":       "relative",
				"MESAS_DETECTION_K":          "10",
				"MESAS_INGEST_LAYOUT":        "v1",
				"MESAS_INGEST_PROVINCE_CODE": "",
				"MESAS_INGEST_TOWN_CODE":     "",
				"MESAS_SERVER_READ_TIMEOUT":  "5s",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
				rule, err := cfg.Detection.RuleValue()
				require.NoError(t, err)
				assert.Equal(t, domain.RuleRelativeRatio, rule)
				assert.Equal(t, 10.0, cfg.Detection.K)
				layout, err := cfg.Ingest.LayoutValue()
				require.NoError(t, err)
				assert.Equal(t, domain.LayoutV1, layout)
				assert.True(t, cfg.Ingest.Jurisdiction().IsZero())
			},
		},
		{
			name: "yaml file then env",
			file: `
server:
  port: 7070
  read_timeout: 20s
detection:
  rule: relative
  vmin: 5
ingest:
  province_code: "08"
  town_code: "019"
`,
			env: map[string]string{"MESAS_DETECTION_VMIN": "7"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, 20*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "relative", cfg.Detection.Rule)
				assert.Equal(t, 7, cfg.Detection.VMin)
				assert.Equal(t, domain.Jurisdiction{ProvinceCode: "08", TownCode: "019"}, cfg.Ingest.Jurisdiction())
				// untouched sections keep their defaults
				assert.Equal(t, 0.05, cfg.Detection.PHigh)
			},
		},
		{
			name:    "invalid rule",
			env:         map[string]string{"MESAS_DETECTION_RULE": "median"},
			errContains: "invalid detection rule",
		},
		{
			name:    "invalid threshold",
			env:         map[string]string{"MESAS_DETECTION_PHIGH": "2"},
			errContains: "invalid detection thresholds",
		},
		{
			name:    "invalid town code",
			env:         map[string]string{"MESAS_INGEST_TOWN_CODE": "79"},
			errContains: `town code must be three digits, got "79"`,
		},
		{
			name:    "invalid port",
			env:         map[string]string{"MESAS_SERVER_PORT": "70000"},
			errContains: "invalid server port: 70000",
		},
		{
			name:        "malformed yaml",
			file:        "server: [",
			errContains: "failed to load config from file",
		},
		{
			name:        "explicit file missing",
			missingFile: true,
			errContains: "failed to load config from file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigSearch(t)
			var configFile string
			switch {
			case tt.file != "":
				configFile = writeConfigFile(t, tt.file)
			case tt.missingFile:
				configFile = filepath.Join(t.TempDir(), "missing.yaml")
			}
			if configFile != "" {
				t.Setenv(ConfigFileEnv, configFile)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.errContains != "" {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
				assert.Contains(t, err.Error(), tt.errContains)

				var appErr *apperrors.AppError
				require.ErrorAs(t, err, &appErr)
				if configFile != "" {
					assert.Equal(t, configFile, appErr.Context["file"])
				} else {
					assert.NotContains(t, appErr.Context, "file", "env validation must not fail on a config file")
				}
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestValidateNormalisesLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, DefaultLogFile, cfg.Logging.FilePath)

	cfg.Logging.Output = "syslog"
	assert.Error(t, cfg.Validate())
}

func TestServerHelpers(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8081, MaxUploadMB: 2}
	assert.Equal(t, "127.0.0.1:8081", s.Address())
	assert.Equal(t, int64(2<<20), s.MaxUploadBytes())
}

func TestNewPaths(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(t.TempDir(), "elsewhere")

	paths := NewPaths(base, PathsConfig{ReportsDir: abs, LogsDir: "var/log"})
	assert.Equal(t, filepath.Join(base, "data"), paths.DataDir)
	assert.Equal(t, abs, paths.ReportsDir)
	assert.Equal(t, filepath.Join(base, "var", "log"), paths.LogsDir)
	assert.Equal(t, filepath.Join(abs, "x.csv"), paths.Report("x.csv"))
	assert.Equal(t, abs, paths.Resolve(abs))

	require.NoError(t, paths.EnsureDirectories())
	assert.True(t, Exists(paths.DataDir))
	assert.True(t, Exists(paths.ReportsDir))
	assert.False(t, Exists(filepath.Join(base, "nope")))
}

func TestEnsureDirectoriesReportsFailures(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	paths := NewPaths(base, PathsConfig{DataDir: "file/data", LogsDir: "file/logs"})
	err := paths.EnsureDirectories()
	require.Error(t, err)
	assert.Contains(t, err.Error(), filepath.Join(blocker, "data"))
	assert.Contains(t, err.Error(), filepath.Join(blocker, "logs"))
}

func TestBaseDir(t *testing.T) {
	t.Run("executable", func(t *testing.T) {
		t.Setenv(HomeEnv, "")
		base, err := BaseDir()
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(base))
	})

	t.Run("home override", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv(HomeEnv, home)
		paths, err := Default().ResolvePaths()
		require.NoError(t, err)
		assert.Equal(t, home, paths.BaseDir)
		assert.Equal(t, filepath.Join(home, "data", "reports"), paths.ReportsDir)
	})
}

func TestReportBaseName(t *testing.T) {
	assert.Equal(t, "04201105_MESA", ReportBaseName("data/04201105_MESA.zip"))
	assert.Equal(t, "plain", ReportBaseName("plain"))
}
