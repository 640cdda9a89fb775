package exporter

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
	"golang.org/x/crypto/blake2b"
	"gonum.org/v1/gonum/mat"

	apperrors "ecgprep/internal/errors"
	"ecgprep/internal/files"
	"ecgprep/pkg/contracts/domain"
)

// NPYWriter persists signals as NumPy .npy arrays.
type NPYWriter struct {
	files  *files.Manager
	logger *slog.Logger
}

// NewNPYWriter creates a writer that stores files through fm.
func NewNPYWriter(fm *files.Manager, logger *slog.Logger) *NPYWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &NPYWriter{files: fm, logger: logger.With(slog.String("component", "npy_writer"))}
}

// EnsureDir creates the output directory.
func (w *NPYWriter) EnsureDir(dir string) error {
	return w.files.EnsureDirectory(dir)
}

// WriteSignal encodes sig and atomically writes it to outputPath. The
// returned record carries the output location, shape, size and a BLAKE2b-256
// digest of the file contents. ID and SourcePath are left for the caller.
func (w *NPYWriter) WriteSignal(outputPath string, sig domain.RawSignal) (*domain.ConvertedRecord, error) {
	data, err := EncodeSignal(sig)
	if err != nil {
		return nil, err
	}

	if err := w.files.WriteFileAtomic(outputPath, data); err != nil {
		return nil, apperrors.NewStorageError("failed to write converted record", err).
			WithContext("path", outputPath)
	}

	fullPath := w.files.Resolve(outputPath)
	w.logger.Debug("Wrote array file",
		slog.String("path", fullPath),
		slog.Any("shape", sig.Shape),
		slog.Int("bytes", len(data)))

	return &domain.ConvertedRecord{
		Filename:   filepath.Base(fullPath),
		OutputPath: fullPath,
		Shape:      append([]int(nil), sig.Shape...),
		Bytes:      int64(len(data)),
		Digest:     Digest(data),
	}, nil
}

// Digest is the hex BLAKE2b-256 sum of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// EncodeSignal renders sig as a little-endian float64 .npy array with the
// signal's own shape.
func EncodeSignal(sig domain.RawSignal) ([]byte, error) {
	var buf bytes.Buffer
	switch sig.Rank() {
	case 1:
		if err := npyio.Write(&buf, sig.Data); err != nil {
			return nil, fmt.Errorf("failed to encode array: %w", err)
		}
	case 2:
		if sig.Leads() == 0 || sig.Samples() == 0 {
			return nil, apperrors.NewShapeError("cannot store empty signal with shape %v", sig.Shape)
		}
		if len(sig.Data) != sig.Leads()*sig.Samples() {
			return nil, apperrors.NewShapeError("data length %d does not match shape %v", len(sig.Data), sig.Shape)
		}
		if err := npyio.Write(&buf, sig.Dense()); err != nil {
			return nil, fmt.Errorf("failed to encode array: %w", err)
		}
	default:
		return nil, apperrors.NewShapeError("cannot store signal of rank %d", sig.Rank())
	}
	return buf.Bytes(), nil
}

// ReadSignal decodes a one or two dimensional float64 .npy array.
func ReadSignal(r io.Reader) (domain.RawSignal, error) {
	rd, err := npyio.NewReader(r)
	if err != nil {
		return domain.RawSignal{}, fmt.Errorf("failed to read npy header: %w", err)
	}

	shape := rd.Header.Descr.Shape
	switch len(shape) {
	case 1:
		var data []float64
		if err := rd.Read(&data); err != nil {
			return domain.RawSignal{}, fmt.Errorf("failed to read npy data: %w", err)
		}
		return domain.FromSamples(data), nil
	case 2:
		var m mat.Dense
		if err := rd.Read(&m); err != nil {
			return domain.RawSignal{}, fmt.Errorf("failed to read npy data: %w", err)
		}
		return domain.FromDense(&m), nil
	default:
		return domain.RawSignal{}, apperrors.NewShapeError("unsupported array shape %v", shape)
	}
}

// ReadSignalFile opens path and decodes it with ReadSignal.
func ReadSignalFile(path string) (domain.RawSignal, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.RawSignal{}, err
	}
	defer f.Close()
	return ReadSignal(f)
}
