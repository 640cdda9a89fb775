package converter

import (
	"context"
	"log/slog"
	"path/filepath"

	"ecgprep/internal/config"
	"ecgprep/internal/dataset"
	"ecgprep/internal/exporter"
	"ecgprep/internal/files"
	"ecgprep/internal/infrastructure"
	"ecgprep/internal/wfdb"
	"ecgprep/pkg/contracts/domain"
)

// Pipeline wires the manifest reader, record loader, array writer and report
// exporter for a dataset configuration.
type Pipeline struct {
	cfg      config.DatasetConfig
	paths    *config.Paths
	files    *files.Manager
	observer Observer
	metrics  *infrastructure.ConversionMetrics
	logger   *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineObserver sets the observer handed to each run.
func WithPipelineObserver(o Observer) PipelineOption {
	return func(p *Pipeline) { p.observer = o }
}

// WithPipelineMetrics sets the metrics handed to each run.
func WithPipelineMetrics(m *infrastructure.ConversionMetrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline creates a pipeline for cfg.
func NewPipeline(cfg config.DatasetConfig, logger *slog.Logger, opts ...PipelineOption) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	paths := config.NewPaths(cfg)
	p := &Pipeline{
		cfg:      cfg,
		paths:    paths,
		files:    files.NewManager(paths, logger),
		observer: nopObserver{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is the outcome of a pipeline run.
type Result struct {
	Report      *domain.ConversionReport `json:"report"`
	ReportFiles []string                 `json:"report_files"`
	// StoredFiles counts the arrays present in the processed directory after
	// the run, including those left by earlier runs.
	StoredFiles int `json:"stored_files"`
}

// Run reads the manifest under root, converts every row into the processed
// directory and writes the report files. The report files are written even
// when the run was cancelled part way.
func (p *Pipeline) Run(ctx context.Context, root string) (*Result, error) {
	manifestPath := filepath.Join(root, p.cfg.ManifestFile)
	manifest, err := dataset.ReadManifest(manifestPath, p.cfg.Columns())
	if err != nil {
		return nil, err
	}

	conv := New(
		wfdb.NewLoader(root, p.logger),
		exporter.NewNPYWriter(p.files, p.logger),
		p.cfg.NamingRule(),
		WithObserver(p.observer),
		WithMetrics(p.metrics),
		WithLogger(p.logger),
	)

	outputDir, err := filepath.Abs(p.paths.ProcessedDir)
	if err != nil {
		return nil, err
	}

	report, runErr := conv.ConvertAll(ctx, manifest, outputDir)
	if report == nil {
		return nil, runErr
	}

	result := &Result{Report: report}
	result.ReportFiles, err = exporter.NewReportExporter(p.files, p.logger).WriteAll(report, p.cfg.XLSXReport)
	if err != nil {
		return result, err
	}

	stored, err := p.files.ListFiles(outputDir)
	if err != nil {
		p.logger.WarnContext(ctx, "Could not list processed directory",
			slog.String("dir", outputDir),
			slog.String("error", err.Error()))
	}
	result.StoredFiles = len(stored)
	return result, runErr
}

// Paths is the layout the pipeline writes into.
func (p *Pipeline) Paths() *config.Paths {
	return p.paths
}
