package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths is the on-disk layout derived from the dataset configuration. It is
// the single source of truth for every file location the commands use.
//
//	<data_dir>/
//	  ├── ptbxl.zip            downloaded archive
//	  ├── ptbxl_database.csv   manifest (or inside a ptb-xl* subdirectory)
//	  ├── records500/ ...      WFDB records
//	  ├── processed/           converted .npy files
//	  └── reports/             conversion reports
type Paths struct {
	DataDir      string
	ArchivePath  string
	ExtractDir   string
	ProcessedDir string
	ReportsDir   string
	LogsDir      string
}

// NewPaths derives the layout for a dataset configuration.
func NewPaths(d DatasetConfig) *Paths {
	processed := d.ProcessedDir
	if processed == "" {
		processed = filepath.Join(d.DataDir, ProcessedDirName)
	}
	return &Paths{
		DataDir:      d.DataDir,
		ArchivePath:  filepath.Join(d.DataDir, d.ArchiveFile),
		ExtractDir:   d.DataDir,
		ProcessedDir: processed,
		ReportsDir:   filepath.Join(d.DataDir, ReportsDirName),
		LogsDir:      "logs",
	}
}

// Paths returns the layout for this configuration.
func (c *Config) Paths() *Paths {
	p := NewPaths(c.Dataset)
	if c.Logging.FilePath != "" {
		p.LogsDir = filepath.Dir(c.Logging.FilePath)
	}
	return p
}

// EnsureDirectories creates the data, processed and reports directories.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ProcessedDir, p.ReportsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetProcessedPath returns the path for a converted record file
func (p *Paths) GetProcessedPath(filename string) string {
	return filepath.Join(p.ProcessedDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// LogPathResolution logs the resolved layout.
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("data", p.DataDir),
			slog.String("extract", p.ExtractDir),
			slog.String("processed", p.ProcessedDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.String("archive", p.ArchivePath),
	)
}
