package anomaly

import (
	"fmt"

	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// Criterion decides whether a single share record is anomalous given its
// party's baseline share.
type Criterion interface {
	Rule() domain.Rule
	Flag(rec domain.ShareRecord, baseline float64) bool
}

// RelativeRatio flags a record whose share is more than K times the party
// baseline and whose vote count is above VMin. Both comparisons are strict.
type RelativeRatio struct {
	K    float64
	VMin int
}

// Rule implements Criterion.
func (RelativeRatio) Rule() domain.Rule { return domain.RuleRelativeRatio }

// Flag implements Criterion.
func (r RelativeRatio) Flag(rec domain.ShareRecord, baseline float64) bool {
	return rec.PctVotes > r.K*baseline && rec.Votes > r.VMin
}

// AbsoluteFraction only considers parties whose baseline is below PLow and
// flags their records with a share above PHigh. There is no vote floor.
type AbsoluteFraction struct {
	PLow  float64
	PHigh float64
}

// Rule implements Criterion.
func (AbsoluteFraction) Rule() domain.Rule { return domain.RuleAbsoluteFraction }

// Flag implements Criterion.
func (a AbsoluteFraction) Flag(rec domain.ShareRecord, baseline float64) bool {
	return baseline < a.PLow && rec.PctVotes > a.PHigh
}

// NewCriterion returns the criterion for rule configured from params.
func NewCriterion(rule domain.Rule, params domain.DetectionParams) (Criterion, error) {
	switch rule {
	case domain.RuleRelativeRatio:
		return RelativeRatio{K: params.K, VMin: params.VMin}, nil
	case domain.RuleAbsoluteFraction:
		return AbsoluteFraction{PLow: params.PLow, PHigh: params.PHigh}, nil
	default:
		return nil, fmt.Errorf("unsupported rule %q", rule)
	}
}
