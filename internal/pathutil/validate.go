// Package pathutil provides utilities for safe path handling.
package pathutil

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	ErrEmptyPath = errors.New("path cannot be empty")
	ErrNullBytes = errors.New("path contains null bytes")
)

// ValidatePath cleans a configured path and rejects empty paths and paths
// containing null bytes. Existing paths have their symlinks resolved.
func ValidatePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPath
	}
	if strings.Contains(path, "\x00") {
		return "", ErrNullBytes
	}

	cleaned := filepath.Clean(path)
	realPath, err := filepath.EvalSymlinks(cleaned)
	if err != nil {
		// Not created yet; build outputs often are not.
		return cleaned, nil
	}
	return realPath, nil
}

// Anchor validates path and joins it to base when it is relative.
func Anchor(base, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPath
	}
	if strings.Contains(path, "\x00") {
		return "", ErrNullBytes
	}
	if !filepath.IsAbs(path) && base != "" {
		path = filepath.Join(base, path)
	}
	return filepath.Clean(path), nil
}

// IsPathSafe reports whether path stays inside its starting directory.
func IsPathSafe(path string) bool {
	if path == "" || strings.Contains(path, "\x00") {
		return false
	}
	cleaned := filepath.Clean(path)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}
