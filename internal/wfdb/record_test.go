package wfdb

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ecgprep/internal/errors"
	"ecgprep/internal/files"
	"ecgprep/internal/shared/testutil"
)

func TestDecodeFormats(t *testing.T) {
	tests := []struct {
		name   string
		format int
		input  []byte
		want   []int
	}{
		{"16", 16, []byte{0x01, 0x00, 0xff, 0xff, 0x00, 0x80}, []int{1, -1, -32768}},
		{"61", 61, []byte{0x00, 0x01, 0xff, 0xfe}, []int{1, -2}},
		{"80", 80, []byte{128, 0, 255}, []int{0, -128, 127}},
		{"212", 212, []byte{0x01, 0xf0, 0xff}, []int{1, -1}},
		{"212 odd", 212, []byte{0x01, 0x08, 0x00, 0xff, 0x07}, []int{-2047, 0, 2047}},
		{"24", 24, []byte{0xff, 0xff, 0xff, 0x02, 0x00, 0x00}, []int{-1, 2}},
		{"32", 32, []byte{0xfe, 0xff, 0xff, 0xff}, []int{-2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decode(tt.format, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := decode(311, []byte{0})
	assert.Error(t, err)
}

func TestReadRecord_Format16(t *testing.T) {
	root := t.TempDir()
	testutil.WriteWFDB(t, root, testutil.WFDBRecord{
		Name:     "records500/00000/00001_hr",
		Gain:     1000,
		Baseline: 0,
		Leads:    [][]int16{{1000, 2000, -500}, {0, 250, 500}},
	})

	rec, err := ReadRecord(filepath.Join(root, "records500", "00000", "00001_hr"))
	require.NoError(t, err)

	r, c := rec.Signal.Dims()
	assert.Equal(t, 3, r, "rows are samples")
	assert.Equal(t, 2, c, "columns are signals")
	assert.Equal(t, 2.0, rec.Signal.At(1, 0))
	assert.Equal(t, -0.5, rec.Signal.At(2, 0))
	assert.Equal(t, 0.25, rec.Signal.At(1, 1))
	assert.Equal(t, []string{"I", "II"}, rec.Leads())
}

func TestReadRecord_AcceptsExtensions(t *testing.T) {
	root := t.TempDir()
	testutil.WriteWFDB(t, root, testutil.WFDBRecord{Name: "a_hr", Leads: testutil.RampLeads(1, 4)})

	for _, p := range []string{"a_hr", "a_hr.hea", "a_hr.dat"} {
		rec, err := ReadRecord(filepath.Join(root, p))
		require.NoError(t, err, p)
		r, _ := rec.Signal.Dims()
		assert.Equal(t, 4, r)
	}
}

func TestReadRecord_BaselineOffsetAndSentinel(t *testing.T) {
	dir := t.TempDir()
	hea := "rec 2 100\nrec.dat 80+2 10(4)/mV\nrec.dat 80 10/mV 8 -2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rec.hea"), []byte(hea), 0644))
	// two junk bytes, then frames (sig0, sig1)
	data := []byte{0xaa, 0xbb, 128 + 24, 128 + 8, 0, 128 - 2}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rec.dat"), data, 0644))

	rec, err := ReadRecord(filepath.Join(dir, "rec"))
	require.NoError(t, err)

	r, c := rec.Signal.Dims()
	require.Equal(t, 2, r, "sample count inferred from file size")
	require.Equal(t, 2, c)
	assert.Equal(t, 2.0, rec.Signal.At(0, 0))
	assert.Equal(t, 1.0, rec.Signal.At(0, 1))
	assert.True(t, math.IsNaN(rec.Signal.At(1, 0)))
	assert.Equal(t, 0.0, rec.Signal.At(1, 1))
}

func TestReadRecord_SeparateFiles(t *testing.T) {
	dir := t.TempDir()
	hea := "rec 2 250 2\na.dat 16\nb.dat 16\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rec.hea"), []byte(hea), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.dat"), []byte{200, 0, 144, 1}, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.dat"), []byte{56, 255, 0, 0}, 0644))

	rec, err := ReadRecord(filepath.Join(dir, "rec"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, rec.Signal.At(0, 0))
	assert.Equal(t, 2.0, rec.Signal.At(1, 0))
	assert.Equal(t, -1.0, rec.Signal.At(0, 1))
}

func TestReadRecord_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	write("short.hea", "short 1 500 10\nshort.dat 16\n")
	write("short.dat", "\x01\x00")
	write("nodata.hea", "nodata 1 500 10\nnodata.dat 16\n")
	write("nosig.hea", "nosig 0 500\n")
	write("mixed.hea", "mixed 2 500 1\nmixed.dat 16\nmixed.dat 80\n")
	write("mixed.dat", "\x00\x00\x00")
	write("corrupt.hea", "corrupt x\n")

	for _, name := range []string{"missing", "short", "nodata", "nosig", "mixed", "corrupt"} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadRecord(filepath.Join(dir, name))
			assert.Error(t, err)
		})
	}
}

func TestLoader_LoadRecordTransposes(t *testing.T) {
	root := t.TempDir()
	testutil.WriteWFDB(t, root, testutil.WFDBRecord{
		Name:  "records500/00000/00007_hr",
		Gain:  1,
		Leads: testutil.RampLeads(12, 50),
	})

	loader := NewLoader(root, nil)
	sig, err := loader.LoadRecord("records500/00000/00007_hr")
	require.NoError(t, err)

	assert.Equal(t, []int{12, 50}, sig.Shape)
	assert.Equal(t, 12, sig.Leads())
	assert.Equal(t, 50, sig.Samples())
	assert.Equal(t, 0.0, sig.Lead(0)[0])
	assert.Equal(t, 49.0, sig.Lead(0)[49])
	assert.Equal(t, 1103.0, sig.Lead(11)[3])
}

func TestLoader_Errors(t *testing.T) {
	loader := NewLoader(t.TempDir(), nil)

	for _, p := range []string{"", "records500/00000/missing_hr"} {
		_, err := loader.LoadRecord(p)
		require.Error(t, err)
		assert.True(t, apperrors.IsRecordReadError(err), "path %q", p)
	}
}

func TestLoader_RejectsPathsOutsideRoot(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "ptb-xl")
	testutil.WriteWFDB(t, base, testutil.WFDBRecord{Name: "outside/00001_hr", Leads: testutil.RampLeads(1, 4)})
	testutil.WriteWFDB(t, root, testutil.WFDBRecord{Name: "records500/00001_hr", Leads: testutil.RampLeads(1, 4)})

	loader := NewLoader(root, nil)
	_, err := loader.LoadRecord("records500/00001_hr")
	require.NoError(t, err)

	for _, p := range []string{"../outside/00001_hr", filepath.Join(base, "outside", "00001_hr")} {
		_, err := loader.LoadRecord(p)
		require.Error(t, err, "path %q", p)
		assert.True(t, apperrors.IsRecordReadError(err))
		assert.ErrorIs(t, err, files.ErrOutsideRoot)
	}
}
