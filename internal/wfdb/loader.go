package wfdb

import (
	"errors"
	"log/slog"

	apperrors "ecgprep/internal/errors"
	"ecgprep/internal/files"
	"ecgprep/pkg/contracts/domain"
)

var errEmptyPath = errors.New("empty record path")

// Loader resolves manifest path fields against a dataset root and returns
// (leads, samples) signals.
type Loader struct {
	root   string
	logger *slog.Logger
}

// NewLoader creates a loader rooted at root.
func NewLoader(root string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		root:   root,
		logger: logger.With(slog.String("component", "wfdb_loader")),
	}
}

// Root is the dataset root directory.
func (l *Loader) Root() string { return l.root }

// Resolve joins a manifest path field to the dataset root. Paths that leave
// the root are rejected.
func (l *Loader) Resolve(path string) (string, error) {
	return files.Confine(l.root, path)
}

// LoadRecord reads one record and transposes it to (leads, samples). Every
// failure is reported as a record read error.
func (l *Loader) LoadRecord(path string) (domain.RawSignal, error) {
	if path == "" {
		return domain.RawSignal{}, apperrors.NewRecordReadError(path, errEmptyPath)
	}
	full, err := l.Resolve(path)
	if err != nil {
		return domain.RawSignal{}, apperrors.NewRecordReadError(path, err)
	}

	rec, err := ReadRecord(full)
	if err != nil {
		return domain.RawSignal{}, apperrors.NewRecordReadError(path, err)
	}

	samples, leads := rec.Signal.Dims()
	l.logger.Debug("record loaded",
		slog.String("path", full),
		slog.Int("leads", leads),
		slog.Int("samples", samples),
		slog.Float64("frequency", rec.Header.Frequency))

	return domain.FromDense(rec.Signal.T()), nil
}
