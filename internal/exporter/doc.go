// Package exporter writes analysis outputs to disk.
//
// CSVWriter produces the suspicious box ranking
// (district_code,section_code,table_code,bad_counts) and, on request, the
// parsed vote records. Relative paths resolve under the reports directory
// and every file is renamed into place only once it is complete.
//
// WriteXLSXReport builds a workbook with three sheets: Suspicious (the
// ranking), Baselines (mean share and observation count per party) and
// Summary (rule, thresholds, box counts and ingestion totals).
//
//	w := exporter.NewCSVWriter(paths, logger)
//	if _, err := w.WriteRankingCSV("02201105_MESA_suspicious.csv", result); err != nil {
//		return err
//	}
package exporter
