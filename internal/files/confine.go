package files

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned by Confine for paths that leave their root.
var ErrOutsideRoot = errors.New("path escapes its root directory")

// Confine resolves path against root and returns the cleaned absolute
// result. Relative paths are joined to root. Absolute paths are accepted only
// when they already lie under root. Symlinks are not followed.
func Confine(root, path string) (string, error) {
	base, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	p := filepath.FromSlash(path)
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	p = filepath.Clean(p)

	rel, err := filepath.Rel(base, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is not under %s", ErrOutsideRoot, path, base)
	}
	return p, nil
}
