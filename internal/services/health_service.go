package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/rinze/analisis-mesas-2011/internal/infrastructure"
)

// ReadinessFunc reports why a dependency is unusable, or nil.
type ReadinessFunc func(ctx context.Context) error

type namedCheck struct {
	name string
	fn   ReadinessFunc
}

// HealthService answers the liveness and readiness checks.
type HealthService struct {
	version   string
	startTime time.Time
	checks    []namedCheck
	logger    *slog.Logger
}

// HealthStatus is the health response body.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Checks    map[string]string      `json:"checks,omitempty"`
}

// NewHealthService creates a health service. A non-empty reportsDir is
// registered as the "reports_dir" readiness check.
func NewHealthService(version, reportsDir string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	hs := &HealthService{
		version:   version,
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "health"),
	}
	if reportsDir != "" {
		hs.WithCheck("reports_dir", DirCheck(reportsDir))
	}
	return hs
}

// WithCheck adds a readiness check. Checks run in registration order.
func (hs *HealthService) WithCheck(name string, fn ReadinessFunc) *HealthService {
	hs.checks = append(hs.checks, namedCheck{name: name, fn: fn})
	return hs
}

// DirCheck fails when path is not an existing directory.
func DirCheck(path string) ReadinessFunc {
	return func(context.Context) error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", path)
		}
		return nil
	}
}

// FileCheck fails when path is not a readable regular file.
func FileCheck(path string) ReadinessFunc {
	return func(context.Context) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
		return nil
	}
}

func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck runs every check. Any failure makes the status "not_ready";
// failed checks report "missing".
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Checks:    make(map[string]string, len(hs.checks)),
	}

	for _, c := range hs.checks {
		if err := c.fn(ctx); err != nil {
			status.Checks[c.name] = "missing"
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "readiness check failed",
				slog.String("check", c.name),
				slog.String("error", err.Error()))
			continue
		}
		status.Checks[c.name] = "ok"
	}
	return status
}

// IsReady reports whether a status is ready.
func (s HealthStatus) IsReady() bool {
	return s.Status == "ready"
}
