// Package http holds the HTTP handlers of the analysis server. Handlers
// parse and validate requests, call into the services package and render
// JSON. Failures go through errors.ErrorHandler and are returned as RFC 7807
// problem documents.
//
// Routes:
//
//	POST /api/v1/analyses   upload a zip archive, get the ranked boxes
//	GET  /healthz           liveness
//	GET  /readyz            readiness
package http
