package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures records and With attributes", func(t *testing.T) {
		logger, handler := NewTestLogger(t)
		child := logger.With(slog.String("component", "converter"))

		child.Info("row converted", slog.String("ecg_id", "7"))
		logger.Error("row failed", slog.Int("index", 3))

		require.Equal(t, 2, handler.Count())
		assert.True(t, handler.ContainsMessage("converted"))
		assert.True(t, handler.ContainsAttr("component", "converter"))
		assert.True(t, handler.ContainsAttr("ecg_id", "7"))
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
	})

	t.Run("clear", func(t *testing.T) {
		logger, handler := NewTestLogger(t)
		logger.Warn("something")
		handler.Clear()
		assert.Equal(t, 0, handler.Count())
		AssertNoErrors(t, handler)
	})
}

func TestWriteWFDB(t *testing.T) {
	root := t.TempDir()
	hea := WriteWFDB(t, root, WFDBRecord{Name: "records500/00000/00001_hr", Leads: RampLeads(2, 3)})

	assert.Equal(t, filepath.Join(root, "records500", "00000", "00001_hr.hea"), hea)
	header, err := os.ReadFile(hea)
	require.NoError(t, err)
	assert.Contains(t, string(header), "00001_hr 2 500 3\n")
	assert.Contains(t, string(header), "00001_hr.dat 16 1000(0)/mV 16 0 0 0 0 II\n")

	data, err := os.ReadFile(filepath.Join(root, "records500", "00000", "00001_hr.dat"))
	require.NoError(t, err)
	// frames interleave lead 0 and lead 1
	assert.Equal(t, []byte{0, 0, 100, 0, 1, 0, 101, 0, 2, 0, 102, 0}, data)
}
