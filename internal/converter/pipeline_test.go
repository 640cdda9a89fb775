package converter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecgprep/internal/config"
	apperrors "ecgprep/internal/errors"
	"ecgprep/internal/shared/testutil"
)

func TestPipelineRun(t *testing.T) {
	dataDir := t.TempDir()
	root := filepath.Join(dataDir, "ptb-xl-1.0.2")
	testutil.WriteWFDB(t, root, testutil.WFDBRecord{Name: "records500/00000/00001_hr", Leads: testutil.RampLeads(12, 10)})
	testutil.WriteWFDB(t, root, testutil.WFDBRecord{Name: "records500/00000/00002_hr", Leads: testutil.RampLeads(12, 10)})
	testutil.WriteManifest(t, filepath.Join(root, "ptbxl_database.csv"),
		[]string{"ecg_id", "filename_lr", "filename_hr"},
		[][]string{
			{"1", "records100/00000/00001_lr", "records500/00000/00001_hr"},
			{"2", "records100/00000/00002_lr", "records500/00000/00002_hr"},
			{"3", "records100/00000/00003_lr", "records500/00000/00003_hr"},
		})

	cfg := config.Default().Dataset
	cfg.DataDir = dataDir
	cfg.XLSXReport = true

	logger, _ := testutil.NewTestLogger(t)
	p := NewPipeline(cfg, logger)

	result, err := p.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Report.Summary.Total)
	assert.Equal(t, 2, result.Report.Summary.Converted)
	assert.Equal(t, "3", result.Report.Failures()[0].ID)
	assert.Len(t, result.ReportFiles, 3)
	for _, f := range result.ReportFiles {
		assert.FileExists(t, f)
	}
	assert.FileExists(t, filepath.Join(dataDir, "processed", "HR00001.hea.npy"))
	assert.Equal(t, 2, result.StoredFiles)
	assert.Equal(t, filepath.Join(root, "ptbxl_database.csv"), result.Report.ManifestPath)
}

func TestPipelineMissingManifest(t *testing.T) {
	cfg := config.Default().Dataset
	cfg.DataDir = t.TempDir()

	result, err := NewPipeline(cfg, nil).Run(context.Background(), cfg.DataDir)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsManifestError(err))
}

func TestPipelineStoredFilesCountsEarlierOutputs(t *testing.T) {
	dataDir := t.TempDir()
	testutil.WriteWFDB(t, dataDir, testutil.WFDBRecord{Name: "records500/00000/00001_hr", Leads: testutil.RampLeads(2, 4)})
	testutil.WriteManifest(t, filepath.Join(dataDir, "ptbxl_database.csv"),
		[]string{"ecg_id", "filename_hr"},
		[][]string{{"1", "records500/00000/00001_hr"}})

	processed := filepath.Join(dataDir, "processed")
	require.NoError(t, os.MkdirAll(processed, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(processed, "HR00009.hea.npy"), []byte("old"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(processed, ".HR00001.hea.npy.tmp-1"), nil, 0644))

	cfg := config.Default().Dataset
	cfg.DataDir = dataDir

	result, err := NewPipeline(cfg, nil).Run(context.Background(), dataDir)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Report.Summary.Converted)
	assert.Equal(t, 2, result.StoredFiles)
}
