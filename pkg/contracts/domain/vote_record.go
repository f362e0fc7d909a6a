package domain

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// VoteRecord is one line of a results file: the votes a party obtained in a
// single ballot box. Records are created once during ingestion and never
// mutated afterwards.
type VoteRecord struct {
	ProvinceCode string `json:"prov_code" csv:"prov_code" validate:"required,len=2,numeric"`
	TownCode     string `json:"town_code" csv:"town_code" validate:"required,len=3,numeric"`
	DistrictCode string `json:"dist_code" csv:"dist_code" validate:"required,len=2,numeric"`
	SectionCode  string `json:"section_code" csv:"section_code" validate:"required,min=3,max=4"`
	TableCode    string `json:"table_code" csv:"table_code" validate:"required,len=1"`
	PartyCode    string `json:"party_code" csv:"party_code" validate:"required,len=6,numeric"`

	// TownName is only set when a town lookup was supplied to the ingester.
	TownName  string `json:"town_name,omitempty" csv:"town_name"`
	PartyName string `json:"party_name" csv:"party_name" validate:"required"`
	Votes     int    `json:"votes" csv:"votes" validate:"min=0"`
}

// NewVoteRecord builds a validated VoteRecord. Codes are kept verbatim since
// they are fixed-width keys; only the party and town names are trimmed.
func NewVoteRecord(province, town, district, section, table, partyCode, partyName string, votes int) (VoteRecord, error) {
	rec := VoteRecord{
		ProvinceCode: province,
		TownCode:     town,
		DistrictCode: district,
		SectionCode:  section,
		TableCode:    table,
		PartyCode:    partyCode,
		PartyName:    strings.TrimSpace(partyName),
		Votes:        votes,
	}

	if err := rec.Validate(); err != nil {
		return VoteRecord{}, err
	}
	return rec, nil
}

// Validate checks the record field constraints.
func (r VoteRecord) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid vote record: %w", err)
	}
	return nil
}

// WithTownName returns a copy of the record carrying the resolved town name.
func (r VoteRecord) WithTownName(name string) VoteRecord {
	r.TownName = strings.TrimSpace(name)
	return r
}

// Box returns the ballot box the record belongs to.
func (r VoteRecord) Box() BallotBox {
	return BallotBox{
		District: r.DistrictCode,
		Section:  r.SectionCode,
		Table:    r.TableCode,
	}
}

// BallotBox identifies a "mesa", the smallest unit of vote tabulation.
// It is only ever used as a grouping key.
type BallotBox struct {
	District string `json:"district_code"`
	Section  string `json:"section_code"`
	Table    string `json:"table_code"`
}

// String renders the box as district/section/table.
func (b BallotBox) String() string {
	return b.District + "/" + b.Section + "/" + b.Table
}

// Less orders boxes lexicographically by district, section and table.
func (b BallotBox) Less(other BallotBox) bool {
	if b.District != other.District {
		return b.District < other.District
	}
	if b.Section != other.Section {
		return b.Section < other.Section
	}
	return b.Table < other.Table
}
