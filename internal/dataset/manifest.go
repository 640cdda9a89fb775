package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "ecgprep/internal/errors"
	"ecgprep/pkg/contracts/domain"
)

// Columns names the identifier and path columns of a manifest.
type Columns struct {
	ID    string `json:"id" yaml:"id" validate:"required"`
	Path  string `json:"path" yaml:"path" validate:"required"`
	Sheet string `json:"sheet,omitempty" yaml:"sheet"`
}

// DefaultColumns matches the PTB-XL database index at 500 Hz.
func DefaultColumns() Columns {
	return Columns{ID: "ecg_id", Path: "filename_hr"}
}

// ReadManifest loads the manifest at path. It fails with a manifest error if
// the file cannot be read, a declared column is missing or an identifier
// repeats. Empty path fields are kept and surface later as per-row failures.
func ReadManifest(path string, cols Columns) (*domain.DatasetManifest, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewManifestError(fmt.Sprintf("manifest %q not found", path), err)
		}
		return nil, apperrors.NewManifestError(fmt.Sprintf("cannot access manifest %q", path), err)
	}

	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		records, err = readWorkbook(path, cols.Sheet)
	case ".tsv", ".tab":
		records, err = readDelimited(path, '\t')
	default:
		records, err = readDelimited(path, ',')
	}
	if err != nil {
		return nil, apperrors.NewManifestError(fmt.Sprintf("failed to parse manifest %q", path), err)
	}

	return build(path, cols, records)
}

func readDelimited(path string, comma rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func readWorkbook(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	return f.GetRows(sheet)
}

func build(source string, cols Columns, records [][]string) (*domain.DatasetManifest, error) {
	if len(records) == 0 {
		return nil, apperrors.NewManifestError(fmt.Sprintf("manifest %q is empty", source), nil)
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	idIdx := indexOf(header, cols.ID)
	if idIdx < 0 {
		return nil, apperrors.NewManifestError(fmt.Sprintf("identifier column %q not found", cols.ID), nil).
			WithContext("manifest", source)
	}
	pathIdx := indexOf(header, cols.Path)
	if pathIdx < 0 {
		return nil, apperrors.NewManifestError(fmt.Sprintf("path column %q not found", cols.Path), nil).
			WithContext("manifest", source)
	}

	rows := make([]domain.ManifestRow, 0, len(records)-1)
	seen := make(map[string]int, len(records)-1)
	for n, rec := range records[1:] {
		line := n + 2
		if isBlank(rec) {
			continue
		}
		id := strings.TrimSpace(cell(rec, idIdx))
		if id == "" {
			return nil, apperrors.NewManifestError(fmt.Sprintf("row %d has an empty identifier", line), nil).
				WithContext("manifest", source)
		}
		if prev, dup := seen[id]; dup {
			return nil, apperrors.NewManifestError(fmt.Sprintf("identifier %q repeats on rows %d and %d", id, prev, line), nil).
				WithContext("manifest", source)
		}
		seen[id] = line

		fields := make(map[string]string, len(header))
		for i, h := range header {
			fields[h] = cell(rec, i)
		}
		rows = append(rows, domain.ManifestRow{
			ID:     id,
			Path:   strings.TrimSpace(cell(rec, pathIdx)),
			Fields: fields,
		})
	}

	return domain.NewDatasetManifest(source, cols.ID, cols.Path, header, rows), nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
