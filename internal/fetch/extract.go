package fetch

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "ecgprep/internal/errors"
)

// ExtractZip unpacks zipPath into dest and returns the number of files
// written. Entries that would land outside dest are rejected.
func ExtractZip(zipPath, dest string) (int, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, apperrors.NewStorageError("failed to open archive", err).WithContext("path", zipPath)
	}
	defer r.Close()

	if err := os.MkdirAll(dest, 0755); err != nil {
		return 0, apperrors.NewStorageError("failed to create extract directory", err)
	}

	root, err := filepath.Abs(dest)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, f := range r.File {
		target, err := safeJoin(root, f.Name)
		if err != nil {
			return count, apperrors.NewStorageError("unsafe archive entry", err).WithContext("entry", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return count, apperrors.NewStorageError("failed to create directory", err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return count, apperrors.NewStorageError("failed to extract entry", err).WithContext("entry", f.Name)
		}
		count++
	}
	return count, nil
}

func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("entry %q escapes %s", name, root)
	}
	return target, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
