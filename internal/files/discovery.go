package files

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rinze/analisis-mesas-2011/internal/config"
	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
)

// ArchiveTag is the election encoded in a results archive name such as
// 02201105_MESA.zip: process code, year and month.
type ArchiveTag struct {
	Process string
	Year    int
	Month   int
}

var archiveNameRE = regexp.MustCompile(`^(\d{2})(\d{4})(\d{2})_MESA$`)

// ParseArchiveName reads the election tag from an archive file name. Names
// outside the published convention report false.
func ParseArchiveName(name string) (ArchiveTag, bool) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	m := archiveNameRE.FindStringSubmatch(strings.ToUpper(base))
	if m == nil {
		return ArchiveTag{}, false
	}
	year, _ := strconv.Atoi(m[2])
	month, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 {
		return ArchiveTag{}, false
	}
	return ArchiveTag{Process: m[1], Year: year, Month: month}, true
}

// Archive is a results archive found on disk.
type Archive struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	Tag     *ArchiveTag
}

// Discovery finds election archives on disk.
type Discovery struct {
	basePath  string
	recursive bool
}

// NewDiscovery creates a discovery rooted at basePath. Relative directories
// passed to FindArchives resolve against it.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// Recursive makes FindArchives descend into subdirectories.
func (d *Discovery) Recursive(on bool) *Discovery {
	d.recursive = on
	return d
}

// FindArchives lists the non-empty zip archives under dir, ordered by path.
func (d *Discovery) FindArchives(dir string) ([]Archive, error) {
	root := dir
	if !filepath.IsAbs(dir) && d.basePath != "" {
		root = filepath.Join(d.basePath, dir)
	}

	var found []Archive
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != root && !d.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), config.ArchiveExtension) {
			return nil
		}
		info, err := entry.Info()
		if err != nil || info.Size() == 0 {
			return nil
		}
		a := Archive{Path: path, Name: entry.Name(), Size: info.Size(), ModTime: info.ModTime()}
		if tag, ok := ParseArchiveName(a.Name); ok {
			a.Tag = &tag
		}
		found = append(found, a)
		return nil
	})
	if err != nil {
		return nil, apperrors.NewNotFoundError("archive directory").
			WithContext("path", root).
			WithContext("cause", err.Error())
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}
