package anomaly

import (
	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// validateParams checks the thresholds of both rules.
func validateParams(params domain.DetectionParams) error {
	if err := params.Validate(); err != nil {
		return apperrors.NewAppValidationError(err.Error()).
			WithContext("params", params)
	}
	return nil
}

func countJurisdictions(records []domain.VoteRecord) int {
	seen := make(map[[2]string]struct{})
	for _, rec := range records {
		seen[[2]string{rec.ProvinceCode, rec.TownCode}] = struct{}{}
	}
	return len(seen)
}
