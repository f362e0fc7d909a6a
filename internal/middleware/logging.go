package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/rinze/analisis-mesas-2011/internal/errors"
	"github.com/rinze/analisis-mesas-2011/internal/infrastructure"
)

// StructuredLogger writes one access line per request after the handler
// returns. Server errors log at Error, everything else at Info.
func StructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Int64("request_bytes", r.ContentLength),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Duration("duration", time.Since(started)),
			}
			ctx := r.Context()
			if id := infrastructure.GetTraceID(ctx); id != "" {
				attrs = append(attrs, slog.String("trace_id", id))
			}
			logger.LogAttrs(ctx, accessLevel(status), "request completed", attrs...)
		})
	}
}

func accessLevel(status int) slog.Level {
	if status >= http.StatusInternalServerError {
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Recoverer converts a handler panic into a 500 problem. http.ErrAbortHandler
// is re-raised so net/http can abort the connection.
func Recoverer(logger *slog.Logger) func(next http.Handler) http.Handler {
	errorHandler := apierrors.NewErrorHandler(logger, false)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				switch v := recover(); v {
				case nil:
				case http.ErrAbortHandler:
					panic(v)
				default:
					errorHandler.HandlePanic(w, r, v)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
