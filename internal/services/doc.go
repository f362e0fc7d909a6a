// Package services wires ingestion, detection and reporting into the
// operations exposed by the HTTP server and the command line tool.
//
//   - AnalysisService opens an archive, ingests it and ranks its boxes.
//   - ReportService writes the ranking CSV and optional records CSV and
//     workbook next to each other.
//   - Batch runs several archives with a bounded worker pool.
//   - HealthService backs the liveness and readiness endpoints.
//
// Every analysis gets a UUID that is attached to its logs and span and
// returned to callers.
package services
