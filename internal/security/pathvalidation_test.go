package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithin(t *testing.T) {
	tmpDir := t.TempDir()

	safeDir := filepath.Join(tmpDir, "safe")
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	require.NoError(t, os.MkdirAll(safeDir, 0o755))
	require.NoError(t, os.MkdirAll(unsafeDir, 0o755))
	require.NoError(t, os.Symlink(unsafeDir, filepath.Join(safeDir, "evil-symlink")))

	tests := []struct {
		name      string
		path      string
		root      string
		wantError bool
	}{
		{"file in root", filepath.Join(safeDir, "report.html"), safeDir, false},
		{"new nested dirs", filepath.Join(safeDir, "a", "b", "chart.png"), safeDir, false},
		{"root itself", safeDir, safeDir, false},
		{"dot dot escape", filepath.Join(safeDir, "..", "unsafe", "x.png"), safeDir, true},
		{"sibling directory", filepath.Join(unsafeDir, "x.png"), safeDir, true},
		{"symlinked parent", filepath.Join(safeDir, "evil-symlink", "x.png"), safeDir, true},
		{"symlinked parent with missing dirs", filepath.Join(safeDir, "evil-symlink", "new", "x.png"), safeDir, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithin(tt.path, tt.root)
			if tt.wantError {
				assert.ErrorIs(t, err, ErrOutsideAllowedDirs)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePathWithinAllowedDirs(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()

	assert.NoError(t, ValidatePathWithinAllowedDirs(filepath.Join(b, "out.db"), []string{a, b}))
	assert.ErrorIs(t, ValidatePathWithinAllowedDirs("/definitely/not/here.db", []string{a, b}), ErrOutsideAllowedDirs)
	assert.Error(t, ValidatePathWithinAllowedDirs(filepath.Join(a, "x"), nil))
}

func TestValidateExportPath(t *testing.T) {
	assert.NoError(t, ValidateExportPath(filepath.Join(os.TempDir(), "lasinfo", "report.html")))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.NoError(t, ValidateExportPath(filepath.Join(cwd, "reports")))
	assert.NoError(t, ValidateExportPath("reports/out.png"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "unknown"},
		{"tile_001.las", "tile_001.las"},
		{"../../etc/passwd", "etc_passwd"},
		{"survey 2024 (north)", "survey_2024_north"},
		{"  spaced  ", "spaced"},
		{"...", "unknown"},
		{"Ünïcödé", "n_c_d"},
		{"a///b", "a_b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}

	long := SanitizeFilename(strings.Repeat("x", 500))
	assert.Len(t, long, MAX_FILENAME_LEN)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "tile_42_zhist.png", OutputName("/data/in/tile 42.las", "_zhist.png"))
	assert.Equal(t, "cloud.html", OutputName("cloud.LAS", ".html"))
	assert.Equal(t, "unknown.html", OutputName("/", ".html"))
}
