package dataprocessing

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"

	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
)

// Party lookup file columns (0-indexed byte offsets, end exclusive).
const (
	partyCodeStart = 8
	partyCodeEnd   = 14
	partyNameStart = 64
	partyNameEnd   = 214
)

// maxLineBytes bounds a single fixed-width line.
const maxLineBytes = 64 * 1024

// PartyLookup maps a six-character party code to its display name.
type PartyLookup struct {
	names map[string]string
}

// NewPartyLookup copies names into a new lookup.
func NewPartyLookup(names map[string]string) PartyLookup {
	m := make(map[string]string, len(names))
	for k, v := range names {
		m[k] = v
	}
	return PartyLookup{names: m}
}

// Name returns the party name for code.
func (p PartyLookup) Name(code string) (string, bool) {
	name, ok := p.names[code]
	return name, ok
}

// Len returns the number of parties.
func (p PartyLookup) Len() int {
	return len(p.names)
}

// ParsePartyLookup reads a fixed-width party file. Names are ISO-8859-1 and
// are converted to UTF-8; a code listed twice keeps the last name.
func ParsePartyLookup(r io.Reader) (PartyLookup, error) {
	decoder := charmap.ISO8859_1.NewDecoder()
	names := make(map[string]string)

	scanner := newLineScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := trimEOL(scanner.Bytes())
		if isBlank(line) {
			continue
		}
		if len(line) < partyCodeEnd {
			return PartyLookup{}, apperrors.NewParsingError(
				fmt.Sprintf("party line too short: %d bytes", len(line)), nil).
				WithContext("line", lineNo)
		}

		code := string(line[partyCodeStart:partyCodeEnd])

		var rawName []byte
		if len(line) > partyNameStart {
			rawName = line[partyNameStart:min(len(line), partyNameEnd)]
		}
		name, err := decoder.Bytes(bytes.TrimSpace(rawName))
		if err != nil {
			return PartyLookup{}, apperrors.NewParsingError("cannot decode party name", err).
				WithContext("line", lineNo)
		}
		if len(name) == 0 {
			return PartyLookup{}, apperrors.NewParsingError(
				fmt.Sprintf("empty name for party %q", code), nil).
				WithContext("line", lineNo)
		}

		names[code] = string(name)
	}
	if err := scanner.Err(); err != nil {
		return PartyLookup{}, apperrors.NewParsingError("failed to read party file", err).
			WithContext("line", lineNo+1)
	}

	return PartyLookup{names: names}, nil
}

// TownKey identifies a town within a province.
type TownKey struct {
	Province string
	Town     string
}

// TownLookup maps (province, town) codes to the town name.
type TownLookup struct {
	names map[TownKey]string
}

// NewTownLookup copies names into a new lookup.
func NewTownLookup(names map[TownKey]string) TownLookup {
	m := make(map[TownKey]string, len(names))
	for k, v := range names {
		m[k] = v
	}
	return TownLookup{names: m}
}

// Name returns the town name for a province/town pair.
func (t TownLookup) Name(province, town string) (string, bool) {
	name, ok := t.names[TownKey{Province: province, Town: town}]
	return name, ok
}

// Len returns the number of towns.
func (t TownLookup) Len() int {
	return len(t.names)
}

// ParseTownLookup reads the municipality code CSV: a header row, then
// province, town, check digit and name columns. The first row for a key
// wins.
func ParseTownLookup(r io.Reader) (TownLookup, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return TownLookup{names: map[TownKey]string{}}, nil
		}
		return TownLookup{}, apperrors.NewParsingError("failed to read towns header", err)
	}

	names := make(map[TownKey]string)
	row := 1
	for {
		entry, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return TownLookup{}, apperrors.NewParsingError("failed to read towns row", err).
				WithContext("line", row)
		}
		if len(entry) < 4 {
			return TownLookup{}, apperrors.NewParsingError(
				fmt.Sprintf("towns row has %d columns, want at least 4", len(entry)), nil).
				WithContext("line", row)
		}

		key := TownKey{Province: strings.TrimSpace(entry[0]), Town: strings.TrimSpace(entry[1])}
		if _, seen := names[key]; !seen {
			names[key] = strings.TrimSpace(entry[3])
		}
	}

	return TownLookup{names: names}, nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	return scanner
}

func trimEOL(line []byte) []byte {
	return bytes.TrimRight(line, "\r\n")
}

func isBlank(line []byte) bool {
	return len(bytes.TrimSpace(line)) == 0
}
