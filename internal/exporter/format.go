package exporter

import (
	"strconv"

	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// Excel needs a byte order mark to read UTF-8 party names correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// percent renders a share in [0,1] with two decimals, e.g. 0.1 -> "10.00%".
func percent(f float64) string {
	return strconv.FormatFloat(f*100, 'f', 2, 64) + "%"
}

// rankingRow matches RankingHeaders.
func rankingRow(b domain.SuspiciousBox) []string {
	return []string{b.District, b.Section, b.Table, strconv.Itoa(b.BadCounts)}
}

// recordRow matches RecordHeaders.
func recordRow(r domain.VoteRecord) []string {
	return []string{
		r.ProvinceCode, r.TownCode, r.DistrictCode, r.SectionCode, r.TableCode,
		r.PartyCode, r.TownName, r.PartyName, strconv.Itoa(r.Votes),
	}
}
