package anomaly

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
	"github.com/rinze/analisis-mesas-2011/internal/shared/testutil"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// fringeElection builds 30 boxes of 100 votes each. Fringe party F takes 8%
// in sections 005, 020 and 030 and 1% elsewhere (baseline 0.017); fringe
// party G takes 8% in 030 and 1% elsewhere. Records are emitted in reverse
// section order.
func fringeElection(t *testing.T) []domain.VoteRecord {
	var records []domain.VoteRecord
	for sec := 30; sec >= 1; sec-- {
		f, g := 1, 1
		switch sec {
		case 5, 20:
			f = 8
		case 30:
			f, g = 8, 8
		}
		section := fmt.Sprintf("%03d", sec)
		records = append(records,
			testutil.Record(t, "01", section, "A", "BIG", 100-f-g),
			testutil.Record(t, "01", section, "A", "F", f),
			testutil.Record(t, "01", section, "A", "G", g),
		)
	}
	return records
}

func newTestDetector(t *testing.T, params domain.DetectionParams) *Detector {
	t.Helper()
	det, err := NewDetector(params, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return det
}

func TestDetectAbsoluteFraction(t *testing.T) {
	det := newTestDetector(t, domain.DefaultDetectionParams())

	result, err := det.Detect(context.Background(), fringeElection(t), domain.RuleAbsoluteFraction)
	require.NoError(t, err)

	assert.Equal(t, domain.RuleAbsoluteFraction, result.Rule)
	assert.Equal(t, 30, result.TotalBoxes)
	assert.Equal(t, []domain.SuspiciousBox{
		{District: "01", Section: "030", Table: "A", BadCounts: 2},
		{District: "01", Section: "005", Table: "A", BadCounts: 1},
		{District: "01", Section: "020", Table: "A", BadCounts: 1},
	}, result.Boxes)
	assert.InDelta(t, 0.1, result.FlagRate(), 1e-12)
	assert.Len(t, result.Baselines, 3)
}

func TestDetectRelativeRatio(t *testing.T) {
	det := newTestDetector(t, domain.DefaultDetectionParams())

	result, err := det.Detect(context.Background(), fringeElection(t), domain.RuleRelativeRatio)
	require.NoError(t, err)
	assert.Empty(t, result.Boxes)
	assert.Equal(t, 30, result.TotalBoxes)

	// K=4 puts F's threshold at 0.068; only the boxes at 8% exceed it, but
	// 8 votes is below the default floor.
	params := domain.DefaultDetectionParams()
	params.K = 4
	result, err = newTestDetector(t, params).Detect(context.Background(), fringeElection(t), domain.RuleRelativeRatio)
	require.NoError(t, err)
	assert.Empty(t, result.Boxes)

	params.VMin = 7
	result, err = newTestDetector(t, params).Detect(context.Background(), fringeElection(t), domain.RuleRelativeRatio)
	require.NoError(t, err)
	require.Len(t, result.Boxes, 3)
	assert.Equal(t, "030", result.Boxes[0].Section)
	assert.Equal(t, 2, result.Boxes[0].BadCounts)
}

func TestBoundaryScenario(t *testing.T) {
	agg, err := Aggregate(context.Background(), []domain.VoteRecord{
		testutil.Record(t, "01", "001", "A", "X", 80),
		testutil.Record(t, "01", "001", "A", "Y", 20),
	})
	require.NoError(t, err)

	baselines := NewBaselineTable([]domain.PartyBaseline{
		{PartyName: "X", MeanShare: 0.5, Observations: 40},
		{PartyName: "Y", MeanShare: 0.01, Observations: 40},
	})

	tests := []struct {
		name      string
		criterion Criterion
		flagged   bool
	}{
		{"absolute fraction flags fringe party", AbsoluteFraction{PLow: 0.02, PHigh: 0.05}, true},
		{"relative ratio at threshold", RelativeRatio{K: 20, VMin: 20}, false},
		{"relative ratio at threshold without floor", RelativeRatio{K: 20, VMin: 0}, false},
		{"relative ratio just below threshold", RelativeRatio{K: 19.9, VMin: 0}, true},
		{"relative ratio vote floor is strict", RelativeRatio{K: 19.9, VMin: 20}, false},
		{"absolute fraction baseline at plow", AbsoluteFraction{PLow: 0.01, PHigh: 0.05}, false},
	}

	det := newTestDetector(t, domain.DefaultDetectionParams())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := det.Rank(context.Background(), agg, baselines, tt.criterion)
			require.NoError(t, err)
			assert.Equal(t, 1, result.TotalBoxes)
			if tt.flagged {
				require.Len(t, result.Boxes, 1)
				assert.Equal(t, domain.SuspiciousBox{District: "01", Section: "001", Table: "A", BadCounts: 1}, result.Boxes[0])
			} else {
				assert.Empty(t, result.Boxes)
			}
		})
	}
}

func TestSingleRecordBoxNotFlagged(t *testing.T) {
	records := []domain.VoteRecord{
		testutil.Record(t, "01", "001", "A", "X", 50),
		testutil.Record(t, "01", "002", "A", "X", 97),
		testutil.Record(t, "01", "002", "A", "Y", 3),
	}

	for _, rule := range []domain.Rule{domain.RuleRelativeRatio, domain.RuleAbsoluteFraction} {
		t.Run(string(rule), func(t *testing.T) {
			params := domain.DefaultDetectionParams()
			params.VMin = 0
			result, err := newTestDetector(t, params).Detect(context.Background(), records, rule)
			require.NoError(t, err)
			for _, b := range result.Boxes {
				assert.NotEqual(t, "001", b.Section)
			}
			assert.Equal(t, 2, result.TotalBoxes)
		})
	}
}

func TestRankingOrder(t *testing.T) {
	// Bad counts per section; all boxes share district and table.
	counts := map[string]int{"001": 1, "002": 3, "003": 1, "004": 2, "005": 3, "006": 0}

	var records []domain.VoteRecord
	for _, sec := range []string{"006", "001", "005", "003", "002", "004"} {
		records = append(records, testutil.Record(t, "01", sec, "A", "BIG", 1000))
		for i := 0; i < counts[sec]; i++ {
			records = append(records, testutil.Record(t, "01", sec, "A", fmt.Sprintf("P%d", i), 100))
		}
	}

	agg, err := Aggregate(context.Background(), records)
	require.NoError(t, err)

	var baselines []domain.PartyBaseline
	for _, p := range []string{"P0", "P1", "P2"} {
		baselines = append(baselines, domain.PartyBaseline{PartyName: p, MeanShare: 0.001})
	}
	baselines = append(baselines, domain.PartyBaseline{PartyName: "BIG", MeanShare: 0.9})

	det := newTestDetector(t, domain.DefaultDetectionParams())
	result, err := det.Rank(context.Background(), agg, NewBaselineTable(baselines), AbsoluteFraction{PLow: 0.02, PHigh: 0.05})
	require.NoError(t, err)

	var got []string
	for i, b := range result.Boxes {
		got = append(got, fmt.Sprintf("%s:%d", b.Section, b.BadCounts))
		if i > 0 {
			assert.LessOrEqual(t, b.BadCounts, result.Boxes[i-1].BadCounts)
		}
	}
	assert.Equal(t, []string{"002:3", "005:3", "004:2", "001:1", "003:1"}, got)
	assert.Equal(t, 6, result.TotalBoxes)
}

func TestDetectIdempotent(t *testing.T) {
	det := newTestDetector(t, domain.DefaultDetectionParams())
	records := fringeElection(t)

	first, err := det.Detect(context.Background(), records, domain.RuleAbsoluteFraction)
	require.NoError(t, err)
	second, err := det.Detect(context.Background(), records, domain.RuleAbsoluteFraction)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDetectErrors(t *testing.T) {
	det := newTestDetector(t, domain.DefaultDetectionParams())

	_, err := det.Detect(context.Background(), fringeElection(t), domain.Rule("median"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	agg, err := Aggregate(context.Background(), []domain.VoteRecord{testutil.Record(t, "01", "001", "A", "X", 1)})
	require.NoError(t, err)
	_, err = det.Rank(context.Background(), agg, NewBaselineTable(nil), RelativeRatio{K: 20})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvariant))
}

func TestNewDetectorValidatesParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.DetectionParams)
	}{
		{"zero k", func(p *domain.DetectionParams) { p.K = 0 }},
		{"negative vmin", func(p *domain.DetectionParams) { p.VMin = -1 }},
		{"plow above one", func(p *domain.DetectionParams) { p.PLow = 1.5 }},
		{"zero phigh", func(p *domain.DetectionParams) { p.PHigh = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := domain.DefaultDetectionParams()
			tt.mutate(&params)
			_, err := NewDetector(params, nil)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
		})
	}
}

func TestDetectLogsSummary(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	det, err := NewDetector(domain.DefaultDetectionParams(), logger)
	require.NoError(t, err)

	records := append(fringeElection(t), domain.VoteRecord{
		ProvinceCode: "28", TownCode: "006", DistrictCode: "09", SectionCode: "001",
		TableCode: "A", PartyCode: "000001", PartyName: "BIG", Votes: 10,
	})
	_, err = det.Detect(context.Background(), records, domain.RuleAbsoluteFraction)
	require.NoError(t, err)

	rec := testutil.AssertLogged(t, logs, slog.LevelInfo, "detection complete")
	assert.Equal(t, int64(3), rec.Attrs["flagged_boxes"])
	assert.Equal(t, "detector", rec.Attrs["component"])
	testutil.AssertLogged(t, logs, slog.LevelWarn, "several towns")
}
