package testutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"hash/fnv"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// PartyLine builds one fixed-width party lookup line: the code at bytes
// 8-14 and the ISO-8859-1 encoded name at 64-214.
func PartyLine(code, name string) []byte {
	encoded, err := charmap.ISO8859_1.NewEncoder().String(name)
	if err != nil {
		panic(fmt.Sprintf("party name %q is not latin-1: %v", name, err))
	}
	line := []byte("02201105" + code + strings.Repeat(" ", 50))
	line = append(line, encoded...)
	for len(line) < 214 {
		line = append(line, ' ')
	}
	return append(line, '\n')
}

// Result is one results file row.
type Result struct {
	Province, Town, District, Section, Table, Party string
	Votes                                            int
}

// ResultLine encodes r for layout. Section codes are padded or cut to the
// layout width.
func ResultLine(layout domain.Layout, r Result) []byte {
	width := layout.SectionEnd() - 18
	section := fmt.Sprintf("%-*s", width, r.Section)[:width]
	if layout != domain.LayoutV1 {
		section += " "
	}
	return []byte(fmt.Sprintf("10201105001%s%s%s%s%s%s%7d\n",
		r.Province, r.Town, r.District, section, r.Table, r.Party, r.Votes))
}

// Fixture is a minimal election: party lookup plus results.
type Fixture struct {
	Layout  domain.Layout
	Parties map[string]string
	Results []Result
}

// PartiesFile renders the party lookup member.
func (f Fixture) PartiesFile() []byte {
	var buf bytes.Buffer
	for _, code := range sortedKeys(f.Parties) {
		buf.Write(PartyLine(code, f.Parties[code]))
	}
	return buf.Bytes()
}

// ResultsFile renders the results member.
func (f Fixture) ResultsFile() []byte {
	var buf bytes.Buffer
	for _, r := range f.Results {
		buf.Write(ResultLine(f.Layout, r))
	}
	return buf.Bytes()
}

// Members returns the archive members under nested directories.
func (f Fixture) Members() map[string][]byte {
	return map[string][]byte{
		"02201105_MESA/03021105.DAT": f.PartiesFile(),
		"02201105_MESA/10021105.DAT": f.ResultsFile(),
	}
}

// Zip builds an archive with the given members.
func Zip(t testing.TB, members map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range sortedKeys(members) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip member %s: %v", name, err)
		}
		if _, err := w.Write(members[name]); err != nil {
			t.Fatalf("write zip member %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// WriteZip writes an archive with members into dir and returns its path.
func WriteZip(t testing.TB, dir, name string, members map[string][]byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Zip(t, members), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// MadridFixture is a small election in 28/079 plus one row from another
// town. Box 02/010/A carries a zero-vote row.
func MadridFixture() Fixture {
	return Fixture{
		Layout: domain.LayoutV2,
		Parties: map[string]string{
			"000001": "PARTIDO POPULAR",
			"000002": "PARTIDO SOCIALISTA OBRERO ESPAÑOL",
			"000003": "ESCAÑOS EN BLANCO",
		},
		Results: []Result{
			{"28", "079", "01", "001", "A", "000001", 80},
			{"28", "079", "01", "001", "A", "000003", 20},
			{"28", "079", "01", "001", "B", "000001", 60},
			{"28", "079", "01", "001", "B", "000002", 40},
			{"28", "079", "02", "010", "A", "000002", 100},
			{"28", "079", "02", "010", "A", "000001", 0},
			{"28", "006", "01", "001", "A", "000009", 5},
		},
	}
}

// Record builds a validated vote record in 28/079. The party code is
// derived from the name so distinct names get distinct codes.
func Record(t testing.TB, district, section, table, party string, votes int) domain.VoteRecord {
	t.Helper()
	h := fnv.New32a()
	h.Write([]byte(party))
	code := fmt.Sprintf("%06d", h.Sum32()%1000000)

	rec, err := domain.NewVoteRecord("28", "079", district, section, table, code, party, votes)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	return rec
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
