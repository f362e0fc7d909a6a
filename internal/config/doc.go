// Package config provides centralized configuration management.
//
// # Configuration Sources
//
// Configuration is assembled in order of increasing precedence:
//
//	1. Default values (Default)
//	2. A YAML file: $MESAS_CONFIG, ./config.yaml, ./configs/config.yaml or
//	   config.yaml next to the executable
//	3. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern MESAS_<SECTION>_<FIELD>:
//
//	MESAS_SERVER_PORT=8080
//	MESAS_LOGGING_LEVEL=debug
//	MESAS_DETECTION_RULE=relative
//	MESAS_DETECTION_K=20
//	MESAS_INGEST_LAYOUT=v1
//	MESAS_INGEST_PROVINCE_CODE=28
//	MESAS_INGEST_TOWN_CODE=079
//
// Setting both jurisdiction codes to the empty string disables filtering.
//
// # Paths
//
// Paths are resolved relative to the executable directory, so the tools
// behave the same regardless of the working directory they are launched from.
package config
