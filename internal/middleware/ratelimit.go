package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	apierrors "github.com/rinze/analisis-mesas-2011/internal/errors"
)

// RateLimiter shares one token bucket across all callers of the routes it
// wraps.
type RateLimiter struct {
	limiter      *rate.Limiter
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewRateLimiter allows rps requests per second with the given burst.
func NewRateLimiter(rps float64, burst int, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		limiter:      rate.NewLimiter(rate.Limit(rps), burst),
		logger:       logger,
		errorHandler: apierrors.NewErrorHandler(logger, false),
	}
}

// Handler answers 429 with a Retry-After hint once the bucket is empty.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}

		retry := rl.retryAfter()
		rl.logger.WarnContext(r.Context(), "rate limit exceeded",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
			slog.Int("retry_after", retry))
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		rl.errorHandler.HandleError(w, r, apierrors.ErrRateLimited)
	})
}

// retryAfter is the whole number of seconds until one token refills,
// at least 1.
func (rl *RateLimiter) retryAfter() int {
	limit := float64(rl.limiter.Limit())
	if limit <= 0 {
		return 1
	}
	secs := math.Ceil(1 / limit)
	if secs < 1 || math.IsInf(secs, 0) {
		return 1
	}
	return int(secs)
}
