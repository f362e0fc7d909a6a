package config

import "time"

// Application constants
const (
	AppName = "analisis-mesas"

	// EnvPrefix namespaces every environment variable, e.g. MESAS_SERVER_PORT.
	EnvPrefix = "MESAS"

	// ConfigFileEnv points at an explicit YAML config file.
	ConfigFileEnv = "MESAS_CONFIG"

	// HomeEnv overrides the base directory relative paths resolve against.
	HomeEnv = "MESAS_HOME"

	// Archive member roles are selected by basename prefix.
	PartiesMemberPrefix = "03"
	ResultsMemberPrefix = "10"

	// Default jurisdiction: Madrid (province 28, town 079).
	DefaultProvinceCode = "28"
	DefaultTownCode     = "079"

	// File paths, relative to the base directory
	DefaultDataDir    = "data"
	DefaultReportsDir = "data/reports"
	DefaultLogsDir    = "logs"
	DefaultLogFile    = "logs/mesas.log"

	// Report file suffixes
	SuspiciousCSVSuffix = "_suspicious.csv"
	RecordsCSVSuffix    = "_records.csv"
	ReportXLSXSuffix    = "_report.xlsx"
	ArchiveExtension    = ".zip"

	// Operation Timeouts
	DefaultAnalysisTimeout = 5 * time.Minute
	DefaultBatchWorkers    = 4

	// HTTP
	APIBasePath     = "/api/v1"
	AnalysesPath    = "/analyses"
	HealthEndpoint  = "/healthz"
	ReadyEndpoint   = "/readyz"
	MetricsEndpoint = "/metrics"
	VersionEndpoint = "/version"
	ArchiveFormKey  = "archive"
)
