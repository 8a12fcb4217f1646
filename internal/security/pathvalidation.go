// Package security guards filesystem paths that come from the command line.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideAllowedDirs is returned when an output path escapes every
// allowed root.
var ErrOutsideAllowedDirs = errors.New("path is outside the allowed directories")

// MAX_FILENAME_LEN caps the length of names produced by SanitizeFilename.
const MAX_FILENAME_LEN = 128

// canonical resolves symlinks in path. When path does not exist yet, the
// nearest existing ancestor is resolved and the missing tail re-attached, so
// a symlinked parent cannot smuggle a new file elsewhere.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	var tail []string
	for p := abs; ; p = filepath.Dir(p) {
		if resolved, err := filepath.EvalSymlinks(p); err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
		parent := filepath.Dir(p)
		if parent == p {
			return abs, nil
		}
		tail = append([]string{filepath.Base(p)}, tail...)
	}
}

// ValidatePathWithin reports an error unless path resolves inside root.
func ValidatePathWithin(path, root string) error {
	target, err := canonical(path)
	if err != nil {
		return err
	}
	base, err := canonical(root)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return fmt.Errorf("%s: %w", path, ErrOutsideAllowedDirs)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%s escapes %s: %w", path, root, ErrOutsideAllowedDirs)
	}
	return nil
}

// ValidatePathWithinAllowedDirs accepts path when it lies inside any of dirs.
func ValidatePathWithinAllowedDirs(path string, dirs []string) error {
	if len(dirs) == 0 {
		return errors.New("no allowed directories specified")
	}
	for _, dir := range dirs {
		if ValidatePathWithin(path, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("%s must be within one of %v: %w", path, dirs, ErrOutsideAllowedDirs)
}

// ValidateExportPath accepts report and catalog paths inside the temp
// directory or the current working directory.
func ValidateExportPath(path string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	return ValidatePathWithinAllowedDirs(path, []string{os.TempDir(), cwd})
}

// SanitizeFilename maps s onto [A-Za-z0-9._-], folding runs of other
// characters into one underscore. Leading and trailing dots and underscores
// are trimmed; an empty result becomes "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range s {
		if b.Len() >= MAX_FILENAME_LEN {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			if pending {
				b.WriteByte('_')
				pending = false
			}
			b.WriteRune(r)
		default:
			pending = b.Len() > 0
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// OutputName derives a report file name from an input path: the input's
// base name without extension, sanitised, followed by suffix.
func OutputName(input, suffix string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return SanitizeFilename(base) + suffix
}
