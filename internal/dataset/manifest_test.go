package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "ecgprep/internal/errors"
)

const ptbxlHeader = "ecg_id,patient_id,age,sex,filename_lr,filename_hr\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestReadManifest_CSV(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "ptbxl_database.csv", ptbxlHeader+
		"3,20372.0,29.0,1,records100/00000/00003_lr,records500/00000/00003_hr\n"+
		"1,15709.0,56.0,1,records100/00000/00001_lr,records500/00000/00001_hr\n"+
		"2,13243.0,19.0,0,records100/00000/00002_lr,records500/00000/00002_hr\n")

	m, err := ReadManifest(p, DefaultColumns())
	require.NoError(t, err)

	require.Equal(t, 3, m.Len())
	assert.Equal(t, []string{"3", "1", "2"}, []string{m.Rows[0].ID, m.Rows[1].ID, m.Rows[2].ID}, "file order kept")
	assert.Equal(t, "records500/00000/00003_hr", m.Rows[0].Path)
	assert.Equal(t, "56.0", m.Rows[1].Fields["age"])
	assert.Equal(t, "ecg_id", m.IDColumn)
	assert.Equal(t, "filename_hr", m.PathColumn)
	assert.Equal(t, p, m.Source)

	row, ok := m.Lookup("2")
	require.True(t, ok)
	assert.Equal(t, "records500/00000/00002_hr", row.Path)
	_, ok = m.Lookup("99")
	assert.False(t, ok)
}

func TestReadManifest_LowResolutionColumn(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "db.csv", ptbxlHeader+"1,1,1,1,records100/00000/00001_lr,records500/00000/00001_hr\n")

	col, _, ok := Preset(ResolutionLow)
	require.True(t, ok)
	m, err := ReadManifest(p, Columns{ID: "ecg_id", Path: col})
	require.NoError(t, err)
	assert.Equal(t, "records100/00000/00001_lr", m.Rows[0].Path)
}

func TestReadManifest_TSVAndBOM(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "db.tsv", "\ufeffid\tpath\nA\ta/b_hr\n\nB\tc/d_hr\n")

	m, err := ReadManifest(p, Columns{ID: "id", Path: "path"})
	require.NoError(t, err)
	require.Equal(t, 2, m.Len())
	assert.Equal(t, "c/d_hr", m.Rows[1].Path)
}

func TestReadManifest_EmptyPathKept(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "db.csv", "ecg_id,filename_hr\n1,records500/00000/00001_hr\n2,\n")

	m, err := ReadManifest(p, DefaultColumns())
	require.NoError(t, err)
	require.Equal(t, 2, m.Len())
	assert.Equal(t, "", m.Rows[1].Path)
}

func TestReadManifest_XLSX(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "manifest.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"ecg_id", "filename_hr"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"10", "records500/00000/00010_hr"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"11", "records500/00000/00011_hr"}))
	require.NoError(t, f.SaveAs(p))
	require.NoError(t, f.Close())

	m, err := ReadManifest(p, DefaultColumns())
	require.NoError(t, err)
	require.Equal(t, 2, m.Len())
	assert.Equal(t, "10", m.Rows[0].ID)
	assert.Equal(t, "records500/00000/00011_hr", m.Rows[1].Path)
}

func TestReadManifest_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		file    string
	}{
		{"missing file", "", "absent.csv"},
		{"empty file", "", "empty.csv"},
		{"no id column", "id,filename_hr\n1,a_hr\n", "noid.csv"},
		{"no path column", "ecg_id,filename\n1,a_hr\n", "nopath.csv"},
		{"duplicate id", "ecg_id,filename_hr\n1,a_hr\n1,b_hr\n", "dup.csv"},
		{"empty id", "ecg_id,filename_hr\n,a_hr\n", "blankid.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(dir, tt.file)
			if tt.name != "missing file" {
				p = writeFile(t, dir, tt.file, tt.content)
			}

			m, err := ReadManifest(p, DefaultColumns())
			assert.Nil(t, m)
			require.Error(t, err)
			assert.True(t, apperrors.IsManifestError(err), "got %v", err)
		})
	}
}
