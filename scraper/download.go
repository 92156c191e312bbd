package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-book-harvester/parser"
)

// Artifact kinds used in metrics and logs.
const (
	KindText  = "text"
	KindImage = "image"
)

// Artifact describes one binary resource to persist.
type Artifact struct {
	Kind   string
	URL    string
	Name   string
	Dir    string
	Ext    string
	ItemID int
}

// Downloader fetches artifacts and writes them under collision-avoiding names.
// Target directories must already exist.
type Downloader struct {
	fetcher *Fetcher
	namer   *parser.Namer
	metrics *Metrics
}

// NewDownloader wires a downloader to a fetcher and a namer.
func NewDownloader(fetcher *Fetcher, namer *parser.Namer, metrics *Metrics) *Downloader {
	return &Downloader{
		fetcher: fetcher,
		namer:   namer,
		metrics: metrics,
	}
}

// Download fetches a.URL and returns the written file path.
func (d *Downloader) Download(ctx context.Context, a Artifact) (string, error) {
	slog.Debug("begin download", slog.String("url", a.URL), slog.String("kind", a.Kind))

	out := d.fetcher.Fetch(ctx, a.URL)
	if err := out.Err(); err != nil {
		d.metrics.IncArtifact(a.Kind, ErrorLabel(err))
		return "", err
	}

	desired := a.Name
	if parser.SanitizeFilename(desired) == "" {
		if name := parser.FilenameFromDisposition(out.Header.Get("Content-Disposition")); name != "" {
			desired = name
			if a.Ext != "" {
				desired = strings.TrimSuffix(name, filepath.Ext(name))
			}
		}
	}

	path := filepath.Join(a.Dir, d.namer.Filename(desired, a.Ext, a.ItemID))
	if err := writeFile(path, out.Body); err != nil {
		d.metrics.IncArtifact(a.Kind, ErrorLabel(err))
		return "", err
	}

	d.metrics.IncArtifact(a.Kind, "ok")
	d.metrics.AddBytes(len(out.Body))
	slog.Debug("downloaded file", slog.String("path", path), slog.Int("bytes", len(out.Body)))
	return path, nil
}

// writeFile writes through a temp file in the target directory, then renames.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*.tmp")
	if err != nil {
		return ErrIO{Path: path, Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpPath := tmp.Name()

	// CreateTemp opens with 0600.
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return ErrIO{Path: path, Err: fmt.Errorf("chmod: %w", err)}
	}
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return ErrIO{Path: path, Err: fmt.Errorf("write: %w", writeErr)}
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return ErrIO{Path: path, Err: fmt.Errorf("close: %w", closeErr)}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return ErrIO{Path: path, Err: fmt.Errorf("rename: %w", err)}
	}
	return nil
}
