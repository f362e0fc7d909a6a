// Package api contains the HTTP API contract definitions.
// Version v1 represents the current stable API version.
package api

import (
	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// AnalysisRequest carries the query parameters of POST /api/v1/analyses.
// Unset numeric parameters fall back to the configured detection params.
// Province and Town are pointers so that an empty value, which clears the
// configured jurisdiction, differs from an absent one.
type AnalysisRequest struct {
	Rule     string   `json:"rule,omitempty" query:"rule" validate:"omitempty,detection_rule"`
	K        *float64 `json:"k,omitempty" query:"k" validate:"omitempty,gt=0"`
	VMin     *int     `json:"vmin,omitempty" query:"vmin" validate:"omitempty,min=0"`
	PLow     *float64 `json:"plow,omitempty" query:"plow" validate:"omitempty,gt=0,lte=1"`
	PHigh    *float64 `json:"phigh,omitempty" query:"phigh" validate:"omitempty,gt=0,lte=1"`
	Province *string  `json:"province,omitempty" query:"province" validate:"omitempty,len=2,numeric"`
	Town     *string  `json:"town,omitempty" query:"town" validate:"omitempty,len=3,numeric"`
	Layout   string   `json:"layout,omitempty" query:"layout" validate:"omitempty,results_layout"`
}

// AnalysisResponse is the JSON body returned for a completed analysis.
type AnalysisResponse struct {
	ID           string                 `json:"id"`
	Rule         domain.Rule            `json:"rule"`
	Params       domain.DetectionParams `json:"params"`
	TotalBoxes   int                    `json:"total_boxes"`
	FlaggedBoxes int                    `json:"flagged_boxes"`
	FlagRate     float64                `json:"flag_rate"`
	Boxes        []domain.SuspiciousBox `json:"boxes"`
	Baselines    []domain.PartyBaseline `json:"baselines"`
	Ingest       domain.IngestReport    `json:"ingest"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
