package exporter

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ecgprep/internal/errors"
	"ecgprep/pkg/contracts/domain"
)

func TestWriteSignalRoundTrip(t *testing.T) {
	fm, paths := setupTestEnv(t)
	w := NewNPYWriter(fm, nil)

	sig, err := domain.FromLeads([][]float64{
		{0.1, 0.2, 0.3, 0.4},
		{-1, -2, math.NaN(), -4},
		{5, 6, 7, 8},
	})
	require.NoError(t, err)

	rec, err := w.WriteSignal("processed/HR00001.hea.npy", sig)
	require.NoError(t, err)

	assert.Equal(t, "HR00001.hea.npy", rec.Filename)
	assert.Equal(t, filepath.Join(paths.ProcessedDir, "HR00001.hea.npy"), rec.OutputPath)
	assert.Equal(t, []int{3, 4}, rec.Shape)
	assert.Len(t, rec.Digest, 64)

	raw, err := os.ReadFile(rec.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, int64(len(raw)), rec.Bytes)
	assert.Equal(t, Digest(raw), rec.Digest)
	assert.True(t, bytes.HasPrefix(raw, []byte("\x93NUMPY")))

	got, err := ReadSignalFile(rec.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, sig.Shape, got.Shape)
	for i := range sig.Data {
		if math.IsNaN(sig.Data[i]) {
			assert.True(t, math.IsNaN(got.Data[i]))
			continue
		}
		assert.Equal(t, sig.Data[i], got.Data[i])
	}
}

func TestWriteSignalIsDeterministic(t *testing.T) {
	fm, _ := setupTestEnv(t)
	w := NewNPYWriter(fm, nil)
	sig, err := domain.NewRawSignal(2, 3, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	first, err := w.WriteSignal("processed/a.npy", sig)
	require.NoError(t, err)
	second, err := w.WriteSignal("processed/a.npy", sig)
	require.NoError(t, err)

	assert.Equal(t, first.Digest, second.Digest)
	names, err := fm.ListFiles("processed")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.npy"}, names)
}

func TestEncodeOneDimensional(t *testing.T) {
	data, err := EncodeSignal(domain.FromSamples([]float64{1, 2, 3}))
	require.NoError(t, err)

	got, err := ReadSignal(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []int{3}, got.Shape)
	assert.Equal(t, []float64{1, 2, 3}, got.Data)
}

func TestEncodeSignalShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		sig  domain.RawSignal
	}{
		{"rank zero", domain.RawSignal{}},
		{"rank three", domain.RawSignal{Shape: []int{1, 1, 1}, Data: []float64{1}}},
		{"no leads", domain.RawSignal{Shape: []int{0, 5}}},
		{"no samples", domain.RawSignal{Shape: []int{2, 0}}},
		{"data mismatch", domain.RawSignal{Shape: []int{2, 2}, Data: []float64{1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeSignal(tt.sig)
			require.Error(t, err)
			assert.True(t, apperrors.IsShapeError(err))
		})
	}
}

func TestReadSignalRejectsGarbage(t *testing.T) {
	_, err := ReadSignal(bytes.NewReader([]byte("not an npy file")))
	assert.Error(t, err)

	_, err = ReadSignalFile(filepath.Join(t.TempDir(), "missing.npy"))
	assert.Error(t, err)
}
