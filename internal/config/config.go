package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Detection DetectionConfig `yaml:"detection" envconfig:"DETECTION"`
	Ingest    IngestConfig    `yaml:"ingest" envconfig:"INGEST"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string          `yaml:"host" envconfig:"HOST"`
	Port            int             `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration   `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	MaxUploadMB     int64           `yaml:"max_upload_mb" envconfig:"MAX_UPLOAD_MB"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// DetectionConfig selects the anomaly rule and its thresholds
type DetectionConfig struct {
	Rule  string  `yaml:"rule" envconfig:"RULE"`
	K     float64 `yaml:"k" envconfig:"K"`
	VMin  int     `yaml:"vmin" envconfig:"VMIN"`
	PLow  float64 `yaml:"plow" envconfig:"PLOW"`
	PHigh float64 `yaml:"phigh" envconfig:"PHIGH"`
}

// IngestConfig controls how archives are read
type IngestConfig struct {
	Layout        string `yaml:"layout" envconfig:"LAYOUT"`
	ProvinceCode  string `yaml:"province_code" envconfig:"PROVINCE_CODE"`
	TownCode      string `yaml:"town_code" envconfig:"TOWN_CODE"`
	DropZeroVotes bool   `yaml:"drop_zero_votes" envconfig:"DROP_ZERO_VOTES"`
	TownsFile     string `yaml:"towns_file" envconfig:"TOWNS_FILE"`
	Workers       int    `yaml:"workers" envconfig:"WORKERS"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled        bool    `yaml:"enabled" envconfig:"ENABLED"`
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

var (
	provinceCodePattern = regexp.MustCompile(`^[0-9]{2}$`)
	townCodePattern     = regexp.MustCompile(`^[0-9]{3}$`)
)

// Load builds the configuration from defaults, then an optional YAML file,
// then MESAS_* environment variables. Later sources win.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).
				WithContext("file", configFile)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile is Load with an explicit YAML file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from file", err).
			WithContext("file", path)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overlays YAML values on cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// getConfigFilePath returns the path to the config file, or "" when none exists
func getConfigFilePath() string {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	if base, err := BaseDir(); err == nil {
		locations = append(locations, filepath.Join(base, "config.yaml"))
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Validate checks the configuration and normalises the logging section
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperrors.NewConfigError(fmt.Sprintf("invalid server port: %d", c.Server.Port), nil)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return apperrors.NewConfigError("server timeouts must be positive", nil)
	}
	if c.Server.MaxUploadMB <= 0 {
		return apperrors.NewConfigError("max upload size must be positive", nil)
	}
	if c.Server.RateLimit.Enabled && (c.Server.RateLimit.RPS <= 0 || c.Server.RateLimit.Burst <= 0) {
		return apperrors.NewConfigError("rate limit rps and burst must be positive", nil)
	}

	if _, err := c.Detection.RuleValue(); err != nil {
		return apperrors.NewConfigError("invalid detection rule", err)
	}
	if err := c.Detection.Params().Validate(); err != nil {
		return apperrors.NewConfigError("invalid detection thresholds", err)
	}

	if _, err := c.Ingest.LayoutValue(); err != nil {
		return apperrors.NewConfigError("invalid results layout", err)
	}
	if c.Ingest.ProvinceCode != "" && !provinceCodePattern.MatchString(c.Ingest.ProvinceCode) {
		return apperrors.NewConfigError(fmt.Sprintf("province code must be two digits, got %q", c.Ingest.ProvinceCode), nil)
	}
	if c.Ingest.TownCode != "" && !townCodePattern.MatchString(c.Ingest.TownCode) {
		return apperrors.NewConfigError(fmt.Sprintf("town code must be three digits, got %q", c.Ingest.TownCode), nil)
	}
	if c.Ingest.Workers < 1 {
		return apperrors.NewConfigError("ingest workers must be at least 1", nil)
	}

	// JSON is the only supported log format.
	c.Logging.Format = "json"
	switch strings.ToLower(c.Logging.Output) {
	case "stdout", "console", "file", "both":
	default:
		return apperrors.NewConfigError(fmt.Sprintf("invalid logging output %q", c.Logging.Output), nil)
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}

	return nil
}

// Params converts the detection section into domain thresholds
func (d DetectionConfig) Params() domain.DetectionParams {
	return domain.DetectionParams{
		K:     d.K,
		VMin:  d.VMin,
		PLow:  d.PLow,
		PHigh: d.PHigh,
	}
}

// RuleValue parses the configured rule name
func (d DetectionConfig) RuleValue() (domain.Rule, error) {
	return domain.ParseRule(d.Rule)
}

// LayoutValue parses the configured results layout
func (i IngestConfig) LayoutValue() (domain.Layout, error) {
	return domain.ParseLayout(i.Layout)
}

// Jurisdiction returns the configured province/town filter
func (i IngestConfig) Jurisdiction() domain.Jurisdiction {
	return domain.Jurisdiction{
		ProvinceCode: i.ProvinceCode,
		TownCode:     i.TownCode,
	}
}

// Address returns host:port for the HTTP listener
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MaxUploadBytes returns the upload limit in bytes
func (s ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

// Default returns default configuration
func Default() *Config {
	params := domain.DefaultDetectionParams()

	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  DefaultAnalysisTimeout,
			MaxUploadMB:     64,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     10,
				Burst:   20,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: DefaultLogFile,
		},
		Detection: DetectionConfig{
			Rule:  string(domain.RuleAbsoluteFraction),
			K:     params.K,
			VMin:  params.VMin,
			PLow:  params.PLow,
			PHigh: params.PHigh,
		},
		Ingest: IngestConfig{
			Layout:        string(domain.LayoutV2),
			ProvinceCode:  DefaultProvinceCode,
			TownCode:      DefaultTownCode,
			DropZeroVotes: true,
			Workers:       DefaultBatchWorkers,
		},
		Telemetry: TelemetryConfig{
			Enabled:        true,
			ServiceName:    AppName,
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
		Paths: PathsConfig{
			DataDir:    DefaultDataDir,
			ReportsDir: DefaultReportsDir,
			LogsDir:    DefaultLogsDir,
		},
	}
}
