package domain

import (
	"fmt"
	"strings"
	"time"
)

// Layout identifies the column layout of a results file vintage. Both
// layouts share every column except the section code width.
type Layout string

const (
	// LayoutV1 reads the section code from bytes 18-22.
	LayoutV1 Layout = "v1"
	// LayoutV2 reads the section code from bytes 18-21.
	LayoutV2 Layout = "v2"
)

// ParseLayout resolves a layout name; the empty string maps to LayoutV2.
func ParseLayout(s string) (Layout, error) {
	switch Layout(strings.ToLower(strings.TrimSpace(s))) {
	case LayoutV1:
		return LayoutV1, nil
	case LayoutV2, "":
		return LayoutV2, nil
	default:
		return "", fmt.Errorf("unknown results layout %q", s)
	}
}

// SectionEnd is the exclusive end offset of the section code.
func (l Layout) SectionEnd() int {
	if l == LayoutV1 {
		return 22
	}
	return 21
}

// Jurisdiction restricts ingestion to one province and/or town. The zero
// value matches everything.
type Jurisdiction struct {
	ProvinceCode string `json:"province_code,omitempty" yaml:"province_code"`
	TownCode     string `json:"town_code,omitempty" yaml:"town_code"`
}

// IsZero reports whether no filtering applies.
func (j Jurisdiction) IsZero() bool {
	return j.ProvinceCode == "" && j.TownCode == ""
}

// Matches reports whether a province/town pair belongs to the jurisdiction.
func (j Jurisdiction) Matches(province, town string) bool {
	if j.ProvinceCode != "" && j.ProvinceCode != province {
		return false
	}
	if j.TownCode != "" && j.TownCode != town {
		return false
	}
	return true
}

// IngestReport summarises one archive ingestion.
type IngestReport struct {
	Archive     string        `json:"archive"`
	PartiesFile string        `json:"parties_file"`
	ResultsFile string        `json:"results_file"`
	Layout      Layout        `json:"layout"`
	Filter      Jurisdiction  `json:"filter"`
	Parties     int           `json:"parties"`
	LinesRead   int           `json:"lines_read"`
	Records     int           `json:"records"`
	Filtered    int           `json:"filtered"`
	ZeroVotes   int           `json:"zero_votes"`
	Duration    time.Duration `json:"duration"`
}
