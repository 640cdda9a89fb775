package fetch

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ecgprep/internal/config"
	apperrors "ecgprep/internal/errors"
)

// LocateDatasetRoot returns the directory holding manifestFile: dataDir
// itself, or the first immediate subdirectory (in name order) whose name
// contains hint, case-insensitively.
func LocateDatasetRoot(dataDir, manifestFile, hint string) (string, error) {
	if config.FileExists(filepath.Join(dataDir, manifestFile)) {
		return dataDir, nil
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return "", apperrors.NewNotFoundError("dataset directory").WithContext("path", dataDir)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	hint = strings.ToLower(hint)
	for _, entry := range entries {
		if !entry.IsDir() || !strings.Contains(strings.ToLower(entry.Name()), hint) {
			continue
		}
		dir := filepath.Join(dataDir, entry.Name())
		if config.FileExists(filepath.Join(dir, manifestFile)) {
			return dir, nil
		}
	}
	return "", apperrors.NewNotFoundError(manifestFile).WithContext("path", dataDir)
}
