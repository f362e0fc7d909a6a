package anomaly

import (
	"context"
	"fmt"
	"math"
	"sort"

	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// BoxTotal is the vote total of one ballot box.
type BoxTotal struct {
	Box        domain.BallotBox `json:"box"`
	TotalVotes int              `json:"total_votes"`
	Records    int              `json:"records"`
}

// Aggregation is the output of Aggregate: every record annotated with its
// box share, plus the box totals in (district, section, table) order.
type Aggregation struct {
	Shares []domain.ShareRecord
	Boxes  []BoxTotal
}

// TotalBoxes is the number of distinct boxes in the input.
func (a *Aggregation) TotalBoxes() int {
	return len(a.Boxes)
}

type partyBox struct {
	party string
	box   domain.BallotBox
}

// Aggregate groups records by ballot box and computes each record's share
// of its box total. Shares keep the input order. A (party, box) pair seen
// twice is a validation error and a box whose total is zero is an invariant
// error; neither produces a partial result.
func Aggregate(ctx context.Context, records []domain.VoteRecord) (*Aggregation, error) {
	totals := make(map[domain.BallotBox]*BoxTotal)
	seen := make(map[partyBox]struct{}, len(records))

	for i, rec := range records {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		box := rec.Box()
		key := partyBox{party: rec.PartyCode, box: box}
		if _, dup := seen[key]; dup {
			return nil, apperrors.NewAppValidationError(
				fmt.Sprintf("party %s appears twice in box %s", rec.PartyCode, box)).
				WithContext("party_code", rec.PartyCode).
				WithContext("box", box.String())
		}
		seen[key] = struct{}{}

		bt, ok := totals[box]
		if !ok {
			bt = &BoxTotal{Box: box}
			totals[box] = bt
		}
		bt.TotalVotes += rec.Votes
		bt.Records++
	}

	boxes := make([]BoxTotal, 0, len(totals))
	for _, bt := range totals {
		if bt.TotalVotes <= 0 {
			return nil, apperrors.NewInvariantError(
				fmt.Sprintf("ballot box %s has no votes", bt.Box)).
				WithContext("box", bt.Box.String())
		}
		boxes = append(boxes, *bt)
	}
	sort.Slice(boxes, func(i, j int) bool {
		return boxes[i].Box.Less(boxes[j].Box)
	})

	shares := make([]domain.ShareRecord, len(records))
	for i, rec := range records {
		total := totals[rec.Box()].TotalVotes
		pct := float64(rec.Votes) / float64(total)
		if math.IsNaN(pct) || math.IsInf(pct, 0) {
			return nil, apperrors.NewInvariantError(
				fmt.Sprintf("non-finite share for party %s in box %s", rec.PartyCode, rec.Box()))
		}
		shares[i] = domain.ShareRecord{VoteRecord: rec, TotalVotes: total, PctVotes: pct}
	}

	return &Aggregation{Shares: shares, Boxes: boxes}, nil
}
