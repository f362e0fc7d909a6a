package anomaly

import (
	"sort"

	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// BaselineTable maps a party name to its mean share.
type BaselineTable struct {
	byParty map[string]domain.PartyBaseline
}

// NewBaselineTable builds a table from precomputed baselines.
func NewBaselineTable(baselines []domain.PartyBaseline) *BaselineTable {
	t := &BaselineTable{byParty: make(map[string]domain.PartyBaseline, len(baselines))}
	for _, b := range baselines {
		t.byParty[b.PartyName] = b
	}
	return t
}

// ComputeBaselines averages each party's share over the boxes where it has
// a record. Boxes without a record for the party do not count as zero.
func ComputeBaselines(shares []domain.ShareRecord) *BaselineTable {
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, s := range shares {
		sums[s.PartyName] += s.PctVotes
		counts[s.PartyName]++
	}

	t := &BaselineTable{byParty: make(map[string]domain.PartyBaseline, len(sums))}
	for party, sum := range sums {
		n := counts[party]
		t.byParty[party] = domain.PartyBaseline{
			PartyName:    party,
			MeanShare:    sum / float64(n),
			Observations: n,
		}
	}
	return t
}

// Mean returns the baseline share of party.
func (t *BaselineTable) Mean(party string) (float64, bool) {
	b, ok := t.byParty[party]
	return b.MeanShare, ok
}

// Len returns the number of parties.
func (t *BaselineTable) Len() int {
	return len(t.byParty)
}

// List returns the baselines sorted by party name.
func (t *BaselineTable) List() []domain.PartyBaseline {
	out := make([]domain.PartyBaseline, 0, len(t.byParty))
	for _, b := range t.byParty {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PartyName < out[j].PartyName
	})
	return out
}
