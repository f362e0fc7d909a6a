// Package app wires configuration, logging, telemetry, services and the
// chi router into a runnable HTTP server.
//
// Startup order:
//
//	1. Load configuration (defaults, YAML, MESAS_* environment)
//	2. Initialise the JSON logger and OpenTelemetry providers
//	3. Build the analysis and health services
//	4. Mount handlers behind the middleware chain
//
// Run blocks until SIGINT or SIGTERM and then shuts the server down within
// the configured timeout. The package never calls os.Exit.
package app
