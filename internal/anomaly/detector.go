package anomaly

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
	"github.com/rinze/analisis-mesas-2011/internal/infrastructure"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// Detector ranks ballot boxes by the number of anomalous records they hold.
type Detector struct {
	params domain.DetectionParams
	logger *slog.Logger
}

// NewDetector validates params and returns a detector. A nil logger uses
// slog.Default().
func NewDetector(params domain.DetectionParams, logger *slog.Logger) (*Detector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := validateParams(params); err != nil {
		return nil, err
	}
	return &Detector{
		params: params,
		logger: infrastructure.WithComponent(logger, "detector"),
	}, nil
}

// Params returns the thresholds in use.
func (d *Detector) Params() domain.DetectionParams {
	return d.params
}

// Detect runs aggregation, baselines and ranking over records. The records
// must already be restricted to one jurisdiction.
func (d *Detector) Detect(ctx context.Context, records []domain.VoteRecord, rule domain.Rule) (*domain.DetectionResult, error) {
	start := time.Now()

	criterion, err := NewCriterion(rule, d.params)
	if err != nil {
		return nil, apperrors.NewAppValidationError(err.Error())
	}

	if towns := countJurisdictions(records); towns > 1 {
		d.logger.WarnContext(ctx, "records span several towns, boxes from different towns share keys",
			slog.Int("towns", towns))
	}

	aggCtx, span := infrastructure.StartSpan(ctx, "aggregate", attribute.Int("records", len(records)))
	agg, err := Aggregate(aggCtx, records)
	if err != nil {
		infrastructure.RecordError(aggCtx, err)
		span.End()
		return nil, err
	}
	span.SetAttributes(attribute.Int("boxes", agg.TotalBoxes()))
	span.End()

	_, span = infrastructure.StartSpan(ctx, "baseline")
	baselines := ComputeBaselines(agg.Shares)
	span.SetAttributes(attribute.Int("parties", baselines.Len()))
	span.End()

	d.logger.DebugContext(ctx, "aggregation complete",
		slog.Int("records", len(records)),
		slog.Int("boxes", agg.TotalBoxes()),
		slog.Int("parties", baselines.Len()))

	result, err := d.Rank(ctx, agg, baselines, criterion)
	if err != nil {
		return nil, err
	}

	d.logger.InfoContext(ctx, "detection complete",
		slog.String("rule", string(result.Rule)),
		slog.Int("total_boxes", result.TotalBoxes),
		slog.Int("flagged_boxes", result.FlaggedBoxes()),
		slog.Duration("duration", time.Since(start)))

	return result, nil
}

// Rank applies criterion to every share and returns the boxes with at least
// one flagged record, sorted by descending bad count. Ties keep the box key
// order.
func (d *Detector) Rank(ctx context.Context, agg *Aggregation, baselines *BaselineTable, criterion Criterion) (*domain.DetectionResult, error) {
	ctx, span := infrastructure.StartSpan(ctx, "detect", attribute.String("rule", string(criterion.Rule())))
	defer span.End()

	badCounts := make(map[domain.BallotBox]int)
	for _, s := range agg.Shares {
		mean, ok := baselines.Mean(s.PartyName)
		if !ok {
			err := apperrors.NewInvariantError(fmt.Sprintf("no baseline for party %q", s.PartyName))
			infrastructure.RecordError(ctx, err)
			return nil, err
		}
		if criterion.Flag(s, mean) {
			badCounts[s.Box()]++
		}
	}

	suspicious := make([]domain.SuspiciousBox, 0, len(badCounts))
	for _, bt := range agg.Boxes {
		n := badCounts[bt.Box]
		if n == 0 {
			continue
		}
		suspicious = append(suspicious, domain.SuspiciousBox{
			District:  bt.Box.District,
			Section:   bt.Box.Section,
			Table:     bt.Box.Table,
			BadCounts: n,
		})
	}
	sort.SliceStable(suspicious, func(i, j int) bool {
		return suspicious[i].BadCounts > suspicious[j].BadCounts
	})

	span.SetAttributes(attribute.Int("flagged", len(suspicious)))

	return &domain.DetectionResult{
		Rule:       criterion.Rule(),
		Params:     d.params,
		Boxes:      suspicious,
		Baselines:  baselines.List(),
		TotalBoxes: agg.TotalBoxes(),
	}, nil
}
