// Package files locates input archives and names report outputs.
//
// Discovery lists the zip archives of a directory in name order, so batch
// runs process and log them deterministically. Manager maps an archive to
// its report files, e.g. data/02201105_MESA.zip to
// <out>/02201105_MESA_suspicious.csv.
package files
