package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"ecgprep/internal/config"
	"ecgprep/internal/files"
)

// Preparer makes the dataset available on disk: download, extract and
// locate, each step skipped when its result is already present.
type Preparer struct {
	downloader *Downloader
	cfg        config.DatasetConfig
	paths      *config.Paths
	files      *files.Manager
	out        io.Writer
	logger     *slog.Logger
}

// NewPreparer creates a preparer. User-facing progress goes to out.
func NewPreparer(d *Downloader, cfg config.DatasetConfig, out io.Writer, logger *slog.Logger) *Preparer {
	if logger == nil {
		logger = slog.Default()
	}
	if out == nil {
		out = io.Discard
	}
	paths := config.NewPaths(cfg)
	return &Preparer{
		downloader: d,
		cfg:        cfg,
		paths:      paths,
		files:      files.NewManager(paths, logger),
		out:        out,
		logger:     logger.With(slog.String("component", "dataset_setup")),
	}
}

// Prepare returns the dataset root, the directory that holds the manifest.
func (p *Preparer) Prepare(ctx context.Context) (string, error) {
	if root, err := LocateDatasetRoot(p.paths.DataDir, p.cfg.ManifestFile, p.cfg.RootHint); err == nil {
		fmt.Fprintf(p.out, "Dataset already extracted to %s\n", root)
		p.logger.InfoContext(ctx, "Dataset already extracted", slog.String("root", root))
		return root, nil
	}

	if err := p.ensureArchive(ctx); err != nil {
		return "", err
	}

	fmt.Fprintf(p.out, "Extracting %s to %s\n", p.paths.ArchivePath, p.paths.ExtractDir)
	n, err := ExtractZip(p.paths.ArchivePath, p.paths.ExtractDir)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(p.out, "Extraction complete!")
	p.logger.InfoContext(ctx, "Archive extracted",
		slog.String("archive", p.paths.ArchivePath),
		slog.Int("files", n))

	root, err := LocateDatasetRoot(p.paths.DataDir, p.cfg.ManifestFile, p.cfg.RootHint)
	if err != nil {
		return "", err
	}
	if filepath.Clean(root) != filepath.Clean(p.paths.DataDir) {
		fmt.Fprintf(p.out, "Found dataset manifest in subdirectory: %s\n", root)
	}
	return root, nil
}

func (p *Preparer) ensureArchive(ctx context.Context) error {
	if p.files.FileExists(p.paths.ArchivePath) {
		fmt.Fprintf(p.out, "Dataset already downloaded to %s\n", p.paths.ArchivePath)
		return nil
	}

	url := p.cfg.ArchiveURL
	if p.cfg.ResolveLatest && p.cfg.ProjectURL != "" {
		resolved, err := p.downloader.ResolveArchiveURL(ctx, p.cfg.ProjectURL)
		if err != nil {
			p.logger.WarnContext(ctx, "Could not resolve archive link, using configured URL",
				slog.String("project_url", p.cfg.ProjectURL),
				slog.String("error", err.Error()))
		} else {
			url = resolved
		}
	}

	fmt.Fprintf(p.out, "Downloading %s to %s\n", url, p.paths.ArchivePath)
	_, err := p.downloader.EnsureArchive(ctx, url, p.paths.ArchivePath, func(pr Progress) {
		fmt.Fprintf(p.out, "\r%s", pr)
	})
	if err != nil {
		fmt.Fprintln(p.out)
		return err
	}
	fmt.Fprintln(p.out, "\nDownload complete!")
	return nil
}
