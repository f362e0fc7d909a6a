package dataprocessing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// Results file columns (0-indexed byte offsets, end exclusive). The section
// end depends on the layout.
const (
	provinceStart = 11
	townStart     = 13
	districtStart = 16
	sectionStart  = 18
	tableStart    = 22
	partyStart    = 23
	votesStart    = 29
	votesEnd      = 36
)

// ResultsParser decodes a fixed-width results file into vote records.
type ResultsParser struct {
	Layout  domain.Layout
	Filter  domain.Jurisdiction
	Parties PartyLookup
	// Towns is optional; when set every kept record must resolve its town.
	Towns         *TownLookup
	DropZeroVotes bool
	Logger        *slog.Logger
}

// ParseResult holds the parsed records and line accounting.
type ParseResult struct {
	Records   []domain.VoteRecord
	LinesRead int
	Filtered  int
	ZeroVotes int
}

// Parse reads every line of r. It stops at the first malformed line or
// unknown code; there is no partial result. Lines outside the jurisdiction
// are skipped before any lookup happens.
func (p *ResultsParser) Parse(ctx context.Context, r io.Reader, source string) (*ParseResult, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	layout := p.Layout
	if layout == "" {
		layout = domain.LayoutV2
	}

	result := &ParseResult{}
	scanner := newLineScanner(r)

	for scanner.Scan() {
		result.LinesRead++
		if result.LinesRead%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := trimEOL(scanner.Bytes())
		if isBlank(line) {
			continue
		}

		rec, keep, err := p.parseLine(line, layout)
		if err != nil {
			return nil, withLine(err, source, result.LinesRead)
		}
		if !keep {
			result.Filtered++
			continue
		}
		if rec.Votes == 0 && p.DropZeroVotes {
			result.ZeroVotes++
			continue
		}

		result.Records = append(result.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, withLine(apperrors.NewParsingError("failed to read results file", err), source, result.LinesRead+1)
	}

	logger.DebugContext(ctx, "results file parsed",
		slog.String("source", source),
		slog.String("layout", string(layout)),
		slog.Int("lines", result.LinesRead),
		slog.Int("records", len(result.Records)),
		slog.Int("filtered", result.Filtered),
		slog.Int("zero_votes", result.ZeroVotes))

	return result, nil
}

func (p *ResultsParser) parseLine(line []byte, layout domain.Layout) (domain.VoteRecord, bool, error) {
	if len(line) < votesEnd {
		return domain.VoteRecord{}, false, apperrors.NewParsingError(
			fmt.Sprintf("results line too short: %d bytes, want at least %d", len(line), votesEnd), nil)
	}

	province := string(line[provinceStart:townStart])
	town := string(line[townStart:districtStart])
	if !p.Filter.Matches(province, town) {
		return domain.VoteRecord{}, false, nil
	}

	district := string(line[districtStart:sectionStart])
	section := string(line[sectionStart:layout.SectionEnd()])
	table := string(line[tableStart:partyStart])
	partyCode := string(line[partyStart:votesStart])

	votes, err := parseVotes(line[votesStart:votesEnd])
	if err != nil {
		return domain.VoteRecord{}, false, err
	}

	partyName, ok := p.Parties.Name(partyCode)
	if !ok {
		return domain.VoteRecord{}, false, apperrors.NewUnknownCodeError("party", partyCode)
	}

	rec, err := domain.NewVoteRecord(province, town, district, section, table, partyCode, partyName, votes)
	if err != nil {
		return domain.VoteRecord{}, false, apperrors.NewParsingError("invalid vote record", err)
	}

	if p.Towns != nil {
		townName, ok := p.Towns.Name(province, town)
		if !ok {
			return domain.VoteRecord{}, false, apperrors.NewUnknownCodeError("town", province+"/"+town)
		}
		rec = rec.WithTownName(townName)
	}

	return rec, true, nil
}

// parseVotes accepts ASCII digits with optional space padding on either side.
func parseVotes(field []byte) (int, error) {
	start, end := 0, len(field)
	for start < end && field[start] == ' ' {
		start++
	}
	for end > start && field[end-1] == ' ' {
		end--
	}
	if start == end {
		return 0, apperrors.NewParsingError("empty vote count", nil)
	}
	for _, c := range field[start:end] {
		if c < '0' || c > '9' {
			return 0, apperrors.NewParsingError(fmt.Sprintf("non-numeric vote count %q", field), nil)
		}
	}
	votes, err := strconv.Atoi(string(field[start:end]))
	if err != nil {
		return 0, apperrors.NewParsingError(fmt.Sprintf("invalid vote count %q", field), err)
	}
	return votes, nil
}

func withLine(err error, source string, line int) error {
	if appErr, ok := err.(*apperrors.AppError); ok {
		return appErr.WithContext("file", source).WithContext("line", line)
	}
	return fmt.Errorf("%s:%d: %w", source, line, err)
}
