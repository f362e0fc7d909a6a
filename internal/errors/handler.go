package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
)

// RFC 7807 problem type URIs for request-level failures.
const (
	TypeValidation       = "/errors/validation"
	TypeNotFound         = "/errors/not-found"
	TypeMethodNotAllowed = "/errors/method-not-allowed"
	TypeRateLimit        = "/errors/rate-limit"
	TypeInternal         = "/errors/internal"
	TypeTimeout          = "/errors/timeout"
	TypePayloadTooLarge  = "/errors/payload-too-large"
)

// Problem type URIs for archives that cannot be analysed.
const (
	TypeMalformedRecord = "/errors/data/malformed-record"
	TypeUnknownCode     = "/errors/data/unknown-code"
	TypeArchive         = "/errors/data/archive-structure"
	TypeInvariant       = "/errors/data/invariant"
)

// ErrorHandler renders every failure of the HTTP surface as an RFC 7807
// problem carrying the request ID as trace_id.
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a handler. includeStack adds the goroutine stack
// to 5xx problems and should only be set in development.
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError logs err and writes its problem. Client and data errors are
// logged at warn, server errors at error.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
		if h.includeStack {
			problem.WithExtension("stack", string(debug.Stack()))
		}
	}
	attrs := append(ErrorAttrs(err),
		slog.Int("status", problem.Status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	h.logger.LogAttrs(r.Context(), level, "request failed", attrs...)

	h.respond(w, r, problem)
}

// ErrorToProblem maps err to a problem without writing it.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"The analysis did not finish within the request timeout", r.URL.Path)
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return NewProblemDetails(http.StatusRequestEntityTooLarge, TypePayloadTooLarge, "Payload Too Large",
			fmt.Sprintf("The archive exceeds the maximum allowed size of %d bytes", maxBytesErr.Limit), r.URL.Path)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		problem := NewProblemDetails(apiErr.StatusCode, apiErr.ProblemType(),
			http.StatusText(apiErr.StatusCode), apiErr.Message, r.URL.Path).
			WithExtension("error_code", apiErr.ErrorCode)
		if apiErr.Details != nil {
			problem.WithExtension("details", apiErr.Details)
		}
		return problem
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErrorToProblem(appErr, err, r)
	}

	return internalProblem(r)
}

type problemKind struct {
	status int
	uri    string
	title  string
}

// appErrorKinds maps the election data taxonomy to HTTP. Data problems are
// 422: the request was well formed but the archive cannot be analysed.
// STORAGE and CONFIG are absent and fall through to 500.
var appErrorKinds = map[ErrorType]problemKind{
	ErrTypeValidation:  {http.StatusBadRequest, TypeValidation, "Validation Failed"},
	ErrTypeParsing:     {http.StatusUnprocessableEntity, TypeMalformedRecord, "Malformed Record"},
	ErrTypeUnknownCode: {http.StatusUnprocessableEntity, TypeUnknownCode, "Unknown Code"},
	ErrTypeArchive:     {http.StatusUnprocessableEntity, TypeArchive, "Invalid Archive Structure"},
	ErrTypeInvariant:   {http.StatusUnprocessableEntity, TypeInvariant, "Data Invariant Violated"},
	ErrTypeNotFound:    {http.StatusNotFound, TypeNotFound, "Resource Not Found"},
}

func appErrorToProblem(appErr *AppError, err error, r *http.Request) *ProblemDetails {
	kind, ok := appErrorKinds[appErr.Type]
	if !ok {
		// server-side failures expose only their type
		return internalProblem(r).WithExtension("error_type", string(appErr.Type))
	}

	problem := NewProblemDetails(kind.status, kind.uri, kind.title, err.Error(), r.URL.Path).
		WithExtension("error_type", string(appErr.Type))
	if len(appErr.Context) > 0 {
		problem.WithExtension("context", appErr.Context)
	}
	return problem
}

func internalProblem(r *http.Request) *ProblemDetails {
	return NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred while processing your request", r.URL.Path)
}

// HandlePanic logs a recovered panic and writes a 500 problem.
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	stack := string(debug.Stack())
	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", stack),
	)

	problem := internalProblem(r)
	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprint(recovered))
		problem.WithExtension("stack", stack)
	}
	h.respond(w, r, problem)
}

// NotFound is the router's 404 handler.
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found",
		"The requested resource was not found", r.URL.Path))
}

// MethodNotAllowed is the router's 405 handler.
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, NewProblemDetails(http.StatusMethodNotAllowed, TypeMethodNotAllowed, "Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method), r.URL.Path))
}

func (h *ErrorHandler) respond(w http.ResponseWriter, r *http.Request, problem *ProblemDetails) {
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		problem.WithExtension("trace_id", reqID)
	}
	problem.Write(w)
}
