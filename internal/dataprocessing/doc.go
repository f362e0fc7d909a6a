// Package dataprocessing turns election archives into vote records.
//
// An archive is a zip holding two fixed-width members located by filename
// prefix at any depth: the party lookup ("03...") and the per-box results
// ("10..."). Party names are ISO-8859-1 and are decoded to UTF-8.
//
// Parsing is strict. A short line, a non-numeric vote count or a party code
// missing from the lookup aborts the archive with an *errors.AppError that
// carries the file name and line number.
//
//	ing := dataprocessing.NewIngester(logger)
//	res, err := ing.IngestFile(ctx, "02201105_MESA.zip", dataprocessing.IngestOptions{
//		Layout:        domain.LayoutV2,
//		Filter:        domain.Jurisdiction{ProvinceCode: "28", TownCode: "079"},
//		DropZeroVotes: true,
//	})
//
// Results layouts differ between vintages only in the width of the section
// code, see domain.Layout.
package dataprocessing
