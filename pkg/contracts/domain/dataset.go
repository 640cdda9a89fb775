package domain

// ManifestRow is one recording entry of a dataset manifest.
type ManifestRow struct {
	ID     string            `json:"id"`
	Path   string            `json:"path"`
	Fields map[string]string `json:"fields,omitempty"`
}

// DatasetManifest maps unique record identifiers to manifest rows. Rows keep
// the order in which they appear in the source file.
type DatasetManifest struct {
	Source     string        `json:"source"`
	IDColumn   string        `json:"id_column"`
	PathColumn string        `json:"path_column"`
	Header     []string      `json:"header"`
	Rows       []ManifestRow `json:"rows"`

	index map[string]int
}

// NewDatasetManifest builds a manifest and its identifier index. The caller
// guarantees identifier uniqueness.
func NewDatasetManifest(source, idColumn, pathColumn string, header []string, rows []ManifestRow) *DatasetManifest {
	m := &DatasetManifest{
		Source:     source,
		IDColumn:   idColumn,
		PathColumn: pathColumn,
		Header:     header,
		Rows:       rows,
		index:      make(map[string]int, len(rows)),
	}
	for i, row := range rows {
		m.index[row.ID] = i
	}
	return m
}

// Len is the number of rows.
func (m *DatasetManifest) Len() int { return len(m.Rows) }

// Lookup returns the row with the given identifier.
func (m *DatasetManifest) Lookup(id string) (ManifestRow, bool) {
	if m.index == nil {
		for _, row := range m.Rows {
			if row.ID == id {
				return row, true
			}
		}
		return ManifestRow{}, false
	}
	i, ok := m.index[id]
	if !ok {
		return ManifestRow{}, false
	}
	return m.Rows[i], true
}

// ConvertedRecord describes one persisted array file.
type ConvertedRecord struct {
	ID         string `json:"id"`
	SourcePath string `json:"source_path"`
	Filename   string `json:"filename"`
	OutputPath string `json:"output_path"`
	Shape      []int  `json:"shape"`
	Bytes      int64  `json:"bytes"`
	Digest     string `json:"digest"`
}
