package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rinze/analisis-mesas-2011/internal/config"
	apierrors "github.com/rinze/analisis-mesas-2011/internal/errors"
	"github.com/rinze/analisis-mesas-2011/internal/middleware"
	"github.com/rinze/analisis-mesas-2011/internal/services"
	v1 "github.com/rinze/analisis-mesas-2011/pkg/contracts/api/v1"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// Analyzer is the part of services.AnalysisService the handler uses.
type Analyzer interface {
	AnalyzeUpload(ctx context.Context, r io.ReaderAt, size int64, name string, opts services.AnalysisOptions) (*services.AnalysisOutcome, error)
}

// AnalysisHandler accepts archive uploads and returns the ranking.
type AnalysisHandler struct {
	service      Analyzer
	defaults     services.AnalysisOptions
	maxUpload    int64
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalysisHandler creates the handler. defaults supplies every option the
// query string leaves unset.
func NewAnalysisHandler(service Analyzer, defaults services.AnalysisOptions, maxUpload int64, logger *slog.Logger) *AnalysisHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisHandler{
		service:      service,
		defaults:     defaults,
		maxUpload:    maxUpload,
		validator:    middleware.NewValidator(),
		logger:       logger.With(slog.String("handler", "analysis")),
		errorHandler: apierrors.NewErrorHandler(logger, false),
	}
}

// RegisterRoutes registers the analysis routes
func (h *AnalysisHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.ContentTypeValidator(h.errorHandler,
		"application/zip",
		"application/x-zip-compressed",
		"application/octet-stream",
		"multipart/form-data",
	)).Post(config.AnalysesPath, h.Create)
}

// Create handles POST /api/v1/analyses
func (h *AnalysisHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := parseAnalysisRequest(r.URL.Query())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	opts, err := h.options(req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	data, name, err := h.readArchive(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "analysis requested",
		slog.String("archive", name),
		slog.Int("bytes", len(data)),
		slog.String("rule", string(opts.Rule)))

	outcome, err := h.service.AnalyzeUpload(ctx, bytes.NewReader(data), int64(len(data)), name, opts)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toResponse(outcome))
}

// readArchive returns the uploaded zip bytes and a display name.
func (h *AnalysisHandler) readArchive(r *http.Request) ([]byte, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile(config.ArchiveFormKey)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, "", err
			}
			return nil, "", apierrors.ErrMissingArchive
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", err
		}
		if len(data) == 0 {
			return nil, "", apierrors.ErrMissingArchive
		}
		return data, header.Filename, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", apierrors.ErrMissingArchive
	}
	name := r.Header.Get("X-Archive-Name")
	if name == "" {
		name = "upload" + config.ArchiveExtension
	}
	return data, name, nil
}

// options overlays the request on the configured defaults. A request naming
// either province or town replaces the configured jurisdiction as a whole;
// "?province=&town=" analyses every box in the archive.
func (h *AnalysisHandler) options(req v1.AnalysisRequest) (services.AnalysisOptions, error) {
	opts := h.defaults
	if req.Rule != "" {
		rule, err := domain.ParseRule(req.Rule)
		if err != nil {
			return opts, apierrors.ErrValidation("rule", err.Error())
		}
		opts.Rule = rule
	}
	if req.Layout != "" {
		layout, err := domain.ParseLayout(req.Layout)
		if err != nil {
			return opts, apierrors.ErrValidation("layout", err.Error())
		}
		opts.Layout = layout
	}
	if req.K != nil {
		opts.Params.K = *req.K
	}
	if req.VMin != nil {
		opts.Params.VMin = *req.VMin
	}
	if req.PLow != nil {
		opts.Params.PLow = *req.PLow
	}
	if req.PHigh != nil {
		opts.Params.PHigh = *req.PHigh
	}
	if req.Province != nil || req.Town != nil {
		opts.Filter = domain.Jurisdiction{}
		if req.Province != nil {
			opts.Filter.ProvinceCode = *req.Province
		}
		if req.Town != nil {
			opts.Filter.TownCode = *req.Town
		}
	}
	return opts, nil
}

func parseAnalysisRequest(q url.Values) (v1.AnalysisRequest, error) {
	req := v1.AnalysisRequest{
		Rule:   q.Get("rule"),
		Layout: q.Get("layout"),
	}
	stringParam := func(name string) *string {
		if !q.Has(name) {
			return nil
		}
		v := q.Get(name)
		return &v
	}
	req.Province = stringParam("province")
	req.Town = stringParam("town")

	var errs []apierrors.ValidationError
	floatParam := func(name string) *float64 {
		raw := q.Get(name)
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, apierrors.ValidationError{Field: name, Message: fmt.Sprintf("%s must be a number", name)})
			return nil
		}
		return &v
	}

	req.K = floatParam("k")
	req.PLow = floatParam("plow")
	req.PHigh = floatParam("phigh")
	if raw := q.Get("vmin"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, apierrors.ValidationError{Field: "vmin", Message: "vmin must be an integer"})
		} else {
			req.VMin = &v
		}
	}

	if len(errs) > 0 {
		return req, apierrors.NewValidationErrors(errs)
	}
	return req, nil
}

func toResponse(o *services.AnalysisOutcome) v1.AnalysisResponse {
	boxes := o.Result.Boxes
	if boxes == nil {
		boxes = []domain.SuspiciousBox{}
	}
	return v1.AnalysisResponse{
		ID:           o.ID,
		Rule:         o.Result.Rule,
		Params:       o.Result.Params,
		TotalBoxes:   o.Result.TotalBoxes,
		FlaggedBoxes: o.Result.FlaggedBoxes(),
		FlagRate:     o.Result.FlagRate(),
		Boxes:        boxes,
		Baselines:    o.Result.Baselines,
		Ingest:       o.Ingest,
	}
}
