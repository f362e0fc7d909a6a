// Package anomaly flags ballot boxes whose vote distribution departs from
// each party's usual share.
//
// The pipeline has three stages, each a pure function of its input:
//
//  1. Aggregate groups vote records by ballot box (district, section,
//     table) and annotates every record with votes / box total.
//  2. ComputeBaselines averages each party's share over the boxes where
//     the party has a record. Absent boxes are not zero observations, so a
//     party seen in a single box has that box's share as its baseline.
//  3. Detector.Rank applies a Criterion to every record and counts the
//     flagged records per box.
//
// Two criteria exist. RelativeRatio flags share > K*baseline with more than
// VMin votes. AbsoluteFraction only looks at parties whose baseline is
// below PLow and flags share > PHigh. Both comparisons are strict.
//
// The ranking lists boxes with a positive bad count in descending order;
// ties keep the (district, section, table) order. DetectionResult.TotalBoxes
// counts every box of the input.
//
//	det, err := anomaly.NewDetector(domain.DefaultDetectionParams(), logger)
//	if err != nil {
//		return err
//	}
//	result, err := det.Detect(ctx, records, domain.RuleAbsoluteFraction)
//
// Baselines need the whole dataset, so Rank only runs after aggregation has
// seen every record.
package anomaly
