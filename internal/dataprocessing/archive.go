package dataprocessing

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rinze/analisis-mesas-2011/internal/config"
	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
)

// ArchiveRole names a member an election archive must contain.
type ArchiveRole string

const (
	// RoleParties is the party code lookup file.
	RoleParties ArchiveRole = "parties"
	// RoleResults is the per-box results file.
	RoleResults ArchiveRole = "results"
)

// Roles lists every required role in resolution order.
var Roles = []ArchiveRole{RoleParties, RoleResults}

// Prefix returns the filename prefix identifying the role's member.
func (r ArchiveRole) Prefix() string {
	switch r {
	case RoleParties:
		return config.PartiesMemberPrefix
	case RoleResults:
		return config.ResultsMemberPrefix
	default:
		return ""
	}
}

// Archive is a zip container with its roles resolved to members.
type Archive struct {
	Name    string
	members map[ArchiveRole]*zip.File
	closer  io.Closer
}

// OpenArchive opens a zip file from disk and resolves its roles.
func OpenArchive(path string) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, apperrors.NewArchiveError("cannot open archive", err).WithContext("archive", path)
	}

	a, err := newArchive(path, rc.File)
	if err != nil {
		rc.Close()
		return nil, err
	}
	a.closer = rc
	return a, nil
}

// ReadArchive resolves roles from an in-memory or otherwise random-access
// zip, such as an uploaded request body.
func ReadArchive(r io.ReaderAt, size int64, name string) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	// Members are read in place, never extracted to disk.
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, apperrors.NewArchiveError("cannot read archive", err).WithContext("archive", name)
	}
	return newArchive(name, zr.File)
}

func newArchive(name string, files []*zip.File) (*Archive, error) {
	members := make(map[ArchiveRole]*zip.File, len(Roles))

	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		base := memberBase(f.Name)
		for _, role := range Roles {
			if !strings.HasPrefix(base, role.Prefix()) {
				continue
			}
			if prev, dup := members[role]; dup {
				return nil, apperrors.NewArchiveError(
					fmt.Sprintf("duplicate %s member: %s and %s", role, prev.Name, f.Name), nil).
					WithContext("archive", name)
			}
			members[role] = f
		}
	}

	for _, role := range Roles {
		if _, ok := members[role]; !ok {
			return nil, apperrors.NewArchiveError(
				fmt.Sprintf("missing %s member (prefix %q)", role, role.Prefix()), nil).
				WithContext("archive", name)
		}
	}

	return &Archive{Name: name, members: members}, nil
}

// Open opens the member resolved for role.
func (a *Archive) Open(role ArchiveRole) (io.ReadCloser, error) {
	f, ok := a.members[role]
	if !ok {
		return nil, apperrors.NewArchiveError(fmt.Sprintf("no member for role %s", role), nil).
			WithContext("archive", a.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, apperrors.NewArchiveError("cannot open member", err).
			WithContext("archive", a.Name).
			WithContext("member", f.Name)
	}
	return rc, nil
}

// MemberName returns the full in-archive path of the role's member.
func (a *Archive) MemberName(role ArchiveRole) string {
	if f, ok := a.members[role]; ok {
		return f.Name
	}
	return ""
}

// Close releases the underlying file when the archive was opened from disk.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// memberBase strips any directory part; archives built on Windows use
// backslashes.
func memberBase(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}
