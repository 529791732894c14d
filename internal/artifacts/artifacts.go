// Package artifacts manages the artifacts directory and resolves artifact globs.
package artifacts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	directoryPermissionsConstant  = 0o755
	emptyDirectoryMessageConstant = "directory path required"
)

// ErrDirectoryPathMissing indicates an empty directory argument.
var ErrDirectoryPathMissing = errors.New(emptyDirectoryMessageConstant)

// EnsureCleanDirectory creates directoryPath if needed and removes everything inside it.
func EnsureCleanDirectory(directoryPath string) error {
	trimmedPath := strings.TrimSpace(directoryPath)
	if len(trimmedPath) == 0 {
		return ErrDirectoryPathMissing
	}

	if mkdirError := os.MkdirAll(trimmedPath, directoryPermissionsConstant); mkdirError != nil {
		return fmt.Errorf("create %s: %w", trimmedPath, mkdirError)
	}

	entries, readError := os.ReadDir(trimmedPath)
	if readError != nil {
		return fmt.Errorf("read %s: %w", trimmedPath, readError)
	}
	for _, entry := range entries {
		entryPath := filepath.Join(trimmedPath, entry.Name())
		if removeError := os.RemoveAll(entryPath); removeError != nil {
			return fmt.Errorf("remove %s: %w", entryPath, removeError)
		}
	}
	return nil
}

// Glob returns the sorted files in directoryPath matching pattern whose names do not end with excludedSuffix.
// An empty excludedSuffix excludes nothing.
func Glob(directoryPath string, pattern string, excludedSuffix string) ([]string, error) {
	trimmedPath := strings.TrimSpace(directoryPath)
	if len(trimmedPath) == 0 {
		return nil, ErrDirectoryPathMissing
	}

	matches, globError := filepath.Glob(filepath.Join(trimmedPath, strings.TrimSpace(pattern)))
	if globError != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, globError)
	}

	trimmedSuffix := strings.TrimSpace(excludedSuffix)
	files := make([]string, 0, len(matches))
	for _, match := range matches {
		if len(trimmedSuffix) > 0 && strings.HasSuffix(match, trimmedSuffix) {
			continue
		}
		info, statError := os.Stat(match)
		if statError != nil || info.IsDir() {
			continue
		}
		files = append(files, match)
	}
	sort.Strings(files)
	return files, nil
}

// Matches reports whether at least one filesystem entry matches pattern.
// Relative patterns are resolved against baseDirectory.
func Matches(baseDirectory string, pattern string) (bool, error) {
	trimmedPattern := strings.TrimSpace(pattern)
	if len(trimmedPattern) == 0 {
		return false, nil
	}
	if !filepath.IsAbs(trimmedPattern) && len(strings.TrimSpace(baseDirectory)) > 0 {
		trimmedPattern = filepath.Join(baseDirectory, trimmedPattern)
	}

	matches, globError := filepath.Glob(trimmedPattern)
	if globError != nil {
		return false, fmt.Errorf("glob %s: %w", pattern, globError)
	}
	for _, match := range matches {
		if _, statError := os.Stat(match); statError == nil {
			return true, nil
		} else if !errors.Is(statError, fs.ErrNotExist) {
			return false, statError
		}
	}
	return false, nil
}
