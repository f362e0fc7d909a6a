package validation

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rinze/analisis-mesas-2011/internal/config"
	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
)

// zipSignatures are the leading bytes of a local file header, an empty
// archive and a spanned archive.
var zipSignatures = [][]byte{
	[]byte("PK\x03\x04"),
	[]byte("PK\x05\x06"),
	[]byte("PK\x07\x08"),
}

// FileValidator checks command inputs and outputs before a run starts.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger.With(slog.String("component", "file_validator"))}
}

// ValidateArchivePath accepts a non-empty regular file named *.zip whose
// first bytes carry a zip signature.
func (v *FileValidator) ValidateArchivePath(path string) error {
	info, err := v.regularFile(path)
	if err != nil {
		return err
	}

	switch ext := filepath.Ext(path); {
	case !strings.EqualFold(ext, config.ArchiveExtension):
		return v.invalid(path, fmt.Sprintf("%s is not a %s archive", path, config.ArchiveExtension), slog.String("extension", ext))
	case info.Size() == 0:
		return v.invalid(path, fmt.Sprintf("%s is empty", path))
	}

	ok, err := hasZipSignature(path)
	if err != nil {
		return apperrors.NewStorageError("failed to read "+path, err).WithContext("path", path)
	}
	if !ok {
		return v.invalid(path, fmt.Sprintf("%s does not start with a zip signature", path))
	}

	v.logger.Debug("archive validated", slog.String("file", path), slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory creates dir when needed and proves it writable by
// creating and removing a temporary file.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	fail := func(msg string, err error) error {
		v.logger.Error(msg, slog.String("directory", dir), slog.String("error", err.Error()))
		return apperrors.NewStorageError(msg, err).WithContext("path", dir)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail("failed to create output directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		return fail("output directory is not writable", err)
	}
	tmp.Close()
	os.Remove(tmp.Name())
	return nil
}

// ValidateTownsFile checks the optional town lookup CSV; "" means none.
func (v *FileValidator) ValidateTownsFile(path string) error {
	if path == "" {
		return nil
	}
	_, err := v.regularFile(path)
	return err
}

func (v *FileValidator) regularFile(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		v.logger.Error("path does not exist", slog.String("path", path))
		return nil, apperrors.NewNotFoundError(path).WithContext("path", path)
	case err != nil:
		return nil, apperrors.NewStorageError("failed to stat "+path, err).WithContext("path", path)
	case info.IsDir():
		return nil, v.invalid(path, fmt.Sprintf("%s is a directory", path))
	}
	return info, nil
}

func (v *FileValidator) invalid(path, msg string, attrs ...any) error {
	v.logger.Error(msg, append([]any{slog.String("path", path)}, attrs...)...)
	return apperrors.NewAppValidationError(msg).WithContext("path", path)
}

func hasZipSignature(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 4)
	if _, err := io.ReadFull(f, head); err != nil {
		if err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, err
	}
	for _, sig := range zipSignatures {
		if bytes.Equal(head, sig) {
			return true, nil
		}
	}
	return false, nil
}
