package domain

import (
	"fmt"
	"strings"
)

// Rule selects the heuristic used to flag vote records.
type Rule string

const (
	// RuleRelativeRatio flags a record whose share exceeds K times the
	// party baseline and whose vote count exceeds VMin.
	RuleRelativeRatio Rule = "relative"

	// RuleAbsoluteFraction flags a record of a normally fringe party
	// (baseline below PLow) whose share exceeds PHigh.
	RuleAbsoluteFraction Rule = "absolute"
)

// ParseRule accepts the canonical rule names plus the short aliases used on
// the command line.
func ParseRule(s string) (Rule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "relative", "ratio", "a":
		return RuleRelativeRatio, nil
	case "absolute", "fraction", "b", "":
		return RuleAbsoluteFraction, nil
	default:
		return "", fmt.Errorf("unknown detection rule %q", s)
	}
}

// DetectionParams holds the thresholds of both rules.
type DetectionParams struct {
	K     float64 `json:"k" yaml:"k" validate:"gt=0"`
	VMin  int     `json:"vmin" yaml:"vmin" validate:"min=0"`
	PLow  float64 `json:"plow" yaml:"plow" validate:"gt=0,lte=1"`
	PHigh float64 `json:"phigh" yaml:"phigh" validate:"gt=0,lte=1"`
}

// DefaultDetectionParams returns K=20, VMin=20, PLow=0.02 and PHigh=0.05.
func DefaultDetectionParams() DetectionParams {
	return DetectionParams{
		K:     20,
		VMin:  20,
		PLow:  0.02,
		PHigh: 0.05,
	}
}

// Validate checks the parameter ranges.
func (p DetectionParams) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid detection params: %w", err)
	}
	return nil
}

// ShareRecord is a VoteRecord annotated with its box total and vote share.
type ShareRecord struct {
	VoteRecord
	TotalVotes int     `json:"total_votes"`
	PctVotes   float64 `json:"pct_votes"`
}

// PartyBaseline is the expected share of a party: the mean of its shares over
// the boxes where it has a record.
type PartyBaseline struct {
	PartyName    string  `json:"party_name"`
	MeanShare    float64 `json:"mean_share"`
	Observations int     `json:"observations"`
}

// SuspiciousBox is a ballot box with at least one flagged record.
type SuspiciousBox struct {
	District  string `json:"district_code" csv:"district_code"`
	Section   string `json:"section_code" csv:"section_code"`
	Table     string `json:"table_code" csv:"table_code"`
	BadCounts int    `json:"bad_counts" csv:"bad_counts"`
}

// Box returns the key of the suspicious box.
func (s SuspiciousBox) Box() BallotBox {
	return BallotBox{District: s.District, Section: s.Section, Table: s.Table}
}

// DetectionResult is the ranked output of a detector run. TotalBoxes counts
// every distinct box of the input and is meant as a denominator.
type DetectionResult struct {
	Rule       Rule            `json:"rule"`
	Params     DetectionParams `json:"params"`
	Boxes      []SuspiciousBox `json:"boxes"`
	Baselines  []PartyBaseline `json:"baselines,omitempty"`
	TotalBoxes int             `json:"total_boxes"`
}

// FlaggedBoxes returns the number of boxes with a positive bad count.
func (r *DetectionResult) FlaggedBoxes() int {
	return len(r.Boxes)
}

// FlagRate is FlaggedBoxes over TotalBoxes, or 0 for an empty input.
func (r *DetectionResult) FlagRate() float64 {
	if r.TotalBoxes == 0 {
		return 0
	}
	return float64(len(r.Boxes)) / float64(r.TotalBoxes)
}
