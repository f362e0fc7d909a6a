package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/rinze/analisis-mesas-2011/internal/config"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts"
)

var (
	loggerMu   sync.Mutex
	loggerOnce sync.Once
	logger     *slog.Logger
	logFile    *os.File
)

// InitializeLogger builds the process logger from cfg and installs it as the
// slog default. Later calls return the first logger unchanged.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var err error
	loggerOnce.Do(func() {
		var l *slog.Logger
		l, err = buildLogger(cfg)
		if err != nil {
			return
		}
		loggerMu.Lock()
		logger = l
		loggerMu.Unlock()
		slog.SetDefault(l)
	})
	return GetLogger(), err
}

// GetLogger returns the process logger, falling back to slog.Default.
func GetLogger() *slog.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func buildLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	w, err := logWriter(cfg)
	if err != nil {
		return nil, err
	}

	level := parseLogLevel(cfg.Level)
	if cfg.Development {
		level = slog.LevelDebug
	}

	return NewJSONLogger(w, &slog.HandlerOptions{
		AddSource: cfg.Development || level == slog.LevelDebug,
		Level:     level,
	}).With(
		slog.String("app", config.AppName),
		slog.String("version", contracts.Version),
	), nil
}

// logWriter resolves the configured output. "console" is an alias of stdout.
func logWriter(cfg config.LoggingConfig) (io.Writer, error) {
	output := strings.ToLower(cfg.Output)
	if output != "file" && output != "both" {
		return os.Stdout, nil
	}

	f, err := openLogFile(cfg.FilePath)
	if err != nil {
		return nil, err
	}
	loggerMu.Lock()
	logFile = f
	loggerMu.Unlock()

	if output == "file" {
		return f, nil
	}
	return io.MultiWriter(os.Stdout, f), nil
}

// NewJSONLogger returns a JSON logger whose records carry trace_id from the
// context and span_id from the active OpenTelemetry span.
func NewJSONLogger(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	return slog.New(&correlationHandler{Handler: slog.NewJSONHandler(w, opts)})
}

type correlationHandler struct {
	slog.Handler
}

func (h *correlationHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(slog.String("span_id", sc.SpanID().String()))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *correlationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &correlationHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *correlationHandler) WithGroup(name string) slog.Handler {
	return &correlationHandler{Handler: h.Handler.WithGroup(name)}
}

func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err == nil {
		return l
	}
	if strings.EqualFold(strings.TrimSpace(level), "warning") {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// CloseLogFile closes the log file opened by InitializeLogger, if any.
func CloseLogFile() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// ResetLoggerForTesting lets a test call InitializeLogger again.
func ResetLoggerForTesting() {
	CloseLogFile()
	loggerMu.Lock()
	logger = nil
	loggerMu.Unlock()
	loggerOnce = sync.Once{}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return f, nil
}
