package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rinze/analisis-mesas-2011/internal/errors"
	"github.com/rinze/analisis-mesas-2011/internal/shared/testutil"
)

func TestValidateArchivePath(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		errType apperrors.ErrorType
	}{
		{
			name: "valid archive",
			setup: func(t *testing.T) string {
				return testutil.WriteZip(t, t.TempDir(), "02201105_MESA.zip", testutil.MadridFixture().Members())
			},
		},
		{
			name: "upper case extension",
			setup: func(t *testing.T) string {
				return testutil.WriteZip(t, t.TempDir(), "02201105_MESA.ZIP", testutil.MadridFixture().Members())
			},
		},
		{
			name: "missing file",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.zip")
			},
			errType: apperrors.ErrTypeNotFound,
		},
		{
			name: "directory",
			setup: func(t *testing.T) string {
				dir := filepath.Join(t.TempDir(), "archive.zip")
				require.NoError(t, os.Mkdir(dir, 0o755))
				return dir
			},
			errType: apperrors.ErrTypeValidation,
		},
		{
			name: "wrong extension",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "results.dat")
				require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
				return path
			},
			errType: apperrors.ErrTypeValidation,
		},
		{
			name: "zip extension without signature",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "fake.zip")
				require.NoError(t, os.WriteFile(path, []byte("not a zip at all"), 0o644))
				return path
			},
			errType: apperrors.ErrTypeValidation,
		},
		{
			name: "shorter than a signature",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "short.zip")
				require.NoError(t, os.WriteFile(path, []byte("PK"), 0o644))
				return path
			},
			errType: apperrors.ErrTypeValidation,
		},
		{
			name: "empty file",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "empty.zip")
				require.NoError(t, os.WriteFile(path, nil, 0o644))
				return path
			},
			errType: apperrors.ErrTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewFileValidator(nil)
			err := v.ValidateArchivePath(tt.setup(t))
			if tt.errType == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.errType, apperrors.TypeOf(err))
		})
	}
}

func TestValidateOutputDirectory(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewFileValidator(logger)

	out := filepath.Join(t.TempDir(), "reports", "2011")
	require.NoError(t, v.ValidateOutputDirectory(out))
	assert.DirExists(t, out)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries, "write-test file is removed")

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	err = v.ValidateOutputDirectory(filepath.Join(blocker, "sub"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

func TestValidateTownsFile(t *testing.T) {
	v := NewFileValidator(nil)
	assert.NoError(t, v.ValidateTownsFile(""))
	assert.True(t, apperrors.IsType(v.ValidateTownsFile(t.TempDir()), apperrors.ErrTypeValidation))
	assert.True(t, apperrors.IsType(v.ValidateTownsFile(filepath.Join(t.TempDir(), "x.csv")), apperrors.ErrTypeNotFound))
}
