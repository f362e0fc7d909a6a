package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rinze/analisis-mesas-2011/internal/config"
	"github.com/rinze/analisis-mesas-2011/internal/shared/testutil"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *Application {
	t.Helper()
	cfg := config.Default()
	cfg.Telemetry.TraceExporter = "none"
	if mutate != nil {
		mutate(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(cfg, config.NewPaths(t.TempDir(), cfg.Paths), logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		a.OTelProviders.Shutdown(context.Background())
	})
	return a
}

func serve(a *Application, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

func postArchive(t *testing.T, query string) *http.Request {
	t.Helper()
	body := testutil.Zip(t, testutil.MadridFixture().Members())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses"+query, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/zip")
	return req
}

func TestRoutes(t *testing.T) {
	a := newTestApp(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"liveness", http.MethodGet, "/healthz", http.StatusOK},
		{"readiness", http.MethodGet, "/readyz", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"version", http.MethodGet, "/version", http.StatusOK},
		{"unknown route", http.MethodGet, "/nope", http.StatusNotFound},
		{"wrong method", http.MethodGet, "/api/v1/analyses", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(a, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestAnalysisEndToEnd(t *testing.T) {
	a := newTestApp(t, nil)

	rec := serve(a, postArchive(t, "?rule=relative&k=0.5&vmin=10"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 3, resp["flagged_boxes"])
	assert.EqualValues(t, 3, resp["total_boxes"])

	metrics := serve(a, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, metrics.Code)
	body := metrics.Body.String()
	assert.Contains(t, body, "mesas_analyses_total")
	assert.Contains(t, body, "mesas_http_requests_total")
}

func TestAnalysisUsesConfiguredDefaults(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) {
		cfg.Detection.Rule = "relative"
		cfg.Detection.K = 0.5
		cfg.Detection.VMin = 10
	})

	rec := serve(a, postArchive(t, ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "relative", resp["rule"])
	assert.EqualValues(t, 3, resp["flagged_boxes"])
}

func TestRateLimit(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) {
		cfg.Server.RateLimit.RPS = 0.001
		cfg.Server.RateLimit.Burst = 1
	})

	assert.Equal(t, http.StatusOK, serve(a, postArchive(t, "")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(a, postArchive(t, "")).Code)
	assert.Equal(t, http.StatusOK, serve(a, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code,
		"health checks are not rate limited")
}

func TestMissingTownsFile(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.Enabled = false
	cfg.Ingest.TownsFile = "/does/not/exist.csv"

	_, err := New(cfg, config.NewPaths(t.TempDir(), cfg.Paths), slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	a := newTestApp(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx, ln, cancel)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, a.Stop(context.Background()))
	assert.NoError(t, ctx.Err(), "clean shutdown does not cancel")
}
