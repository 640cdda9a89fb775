package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecgprep/internal/converter"
	apperrors "ecgprep/internal/errors"
	"ecgprep/internal/exporter"
	"ecgprep/pkg/contracts/domain"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ECG_LOGGING_LEVEL", "error")
	t.Setenv("ECG_DATASET_DATA_DIR", t.TempDir())

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeSignal(t *testing.T, leads, samples int) string {
	t.Helper()
	data := make([]float64, leads*samples)
	for i := range data {
		data[i] = float64(i)
	}
	sig, err := domain.NewRawSignal(leads, samples, data)
	require.NoError(t, err)
	encoded, err := exporter.EncodeSignal(sig)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "signal.npy")
	require.NoError(t, os.WriteFile(path, encoded, 0644))
	return path
}

func TestNormalizeCommand_PrintsSequence(t *testing.T) {
	input := writeSignal(t, 2, 10)

	out, err := execute(t, "normalize", input, "--target-length", "8", "--downsampling-factor", "2")
	require.NoError(t, err)

	var got normalizeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []int{2, 10}, got.InputShape)
	assert.Equal(t, 2, got.Leads)
	assert.Equal(t, 4, got.SamplesPerLead)
	assert.Equal(t, 8, got.Length)
	assert.Equal(t, []float32{0, 2, 4, 6, 10, 12, 14, 16}, got.Values)
}

func TestNormalizeCommand_WritesBatchedArray(t *testing.T) {
	input := writeSignal(t, 2, 10)
	output := filepath.Join(t.TempDir(), "out", "normalized.npy")

	out, err := execute(t, "normalize", input, "-o", output, "--target-length", "8", "--downsampling-factor", "2")
	require.NoError(t, err)
	assert.Contains(t, out, output)
	assert.NotContains(t, out, `"values"`)

	sig, err := exporter.ReadSignalFile(output)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 8}, sig.Shape)
	assert.Equal(t, []float64{0, 2, 4, 6, 10, 12, 14, 16}, sig.Data)
}

func TestNormalizeCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
	}{
		{
			name: "missing file",
			args: func(t *testing.T) []string {
				return []string{"normalize", filepath.Join(t.TempDir(), "absent.npy")}
			},
		},
		{
			name: "invalid factor",
			args: func(t *testing.T) []string {
				return []string{"normalize", writeSignal(t, 1, 4), "--downsampling-factor", "0"}
			},
		},
		{
			name: "no argument",
			args: func(t *testing.T) []string { return []string{"normalize"} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args(t)...)
			assert.Error(t, err)
		})
	}
}

func TestInferCommand_RequiresModel(t *testing.T) {
	t.Setenv("ECG_INFERENCE_MODEL_URL", "")
	_, err := execute(t, "infer", writeSignal(t, 1, 16))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeConfig, apperrors.TypeOf(err))
}

func TestConvertCommand_RejectsUnknownResolution(t *testing.T) {
	_, err := execute(t, "convert", "--resolution", "xx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown resolution "xx"`)
}

func TestConvertCommand_MissingDataset(t *testing.T) {
	_, err := execute(t, "convert")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeNotFound, apperrors.TypeOf(err))
}

func TestSchemaCommand(t *testing.T) {
	tests := []struct {
		args     []string
		contains []string
	}{
		{args: []string{"schema"}, contains: []string{"ecgprep configuration", "preprocess", "target_length", "allowed_origins"}},
		{args: []string{"schema", "config"}, contains: []string{"downsampling_factor", "manifest_file"}},
		{args: []string{"schema", "report"}, contains: []string{"ecgprep conversion report", "run_id", "summary"}},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.True(t, json.Valid([]byte(out)))
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestSchemaCommand_UnknownTarget(t *testing.T) {
	_, err := execute(t, "schema", "bogus")
	assert.Error(t, err)
}

func TestRenderSummary(t *testing.T) {
	started := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	result := &converter.Result{
		Report: &domain.ConversionReport{
			RunID:      "run-42",
			OutputDir:  "/data/processed",
			StartedAt:  started,
			FinishedAt: started.Add(1500 * time.Millisecond),
			Summary:    domain.ConversionSummary{Total: 2, Converted: 1, Failed: 1},
			Results: []domain.RowResult{
				{Index: 0, ID: "1", Status: domain.StatusConverted},
				{Index: 1, ID: "2", Status: domain.StatusFailed, ErrorMsg: "header missing"},
			},
		},
		ReportFiles: []string{"/data/reports/conversion_report.json"},
		StoredFiles: 21799,
	}

	got := renderSummary(result)
	for _, want := range []string{"run-42", "/data/processed", "1.5s", "21799", "conversion_report.json", "2: header missing"} {
		assert.Contains(t, got, want)
	}
}
