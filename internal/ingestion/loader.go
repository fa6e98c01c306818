package ingestion

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"docanalyser/internal/domain"
)

// Options configures a Loader. Zero values fall back to the package defaults.
type Options struct {
	MaxSide int
	Quality int
	Logger  *slog.Logger
}

// Loader discovers input files and turns each into an IngestedFile.
// It holds no per-file state and is safe for concurrent use.
type Loader struct {
	maxSide int
	quality int
	logger  *slog.Logger
}

// NewLoader creates a Loader from opts.
func NewLoader(opts Options) *Loader {
	if opts.MaxSide <= 0 {
		opts.MaxSide = DefaultMaxSide
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultJPEGQuality
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Loader{
		maxSide: opts.MaxSide,
		quality: opts.Quality,
		logger:  opts.Logger,
	}
}

// Discover expands directories recursively, passes other inputs through and
// keeps only supported files. Unsupported and unreadable entries are dropped.
func (l *Loader) Discover(paths []string) []string {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			if IsSupported(p) {
				out = append(out, p)
			}
			continue
		}

		_ = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				l.logger.Debug("ingestion.Loader: skipping unreadable entry", "path", path, "error", err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if IsSupported(path) {
				out = append(out, path)
			}
			return nil
		})
	}
	return out
}

// IngestOne reads the file once and assembles its IngestedFile record.
func (l *Loader) IngestOne(path string) (*domain.IngestedFile, error) {
	mimeType := GuessMIME(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.IngestionIOError{Path: path, Op: "read", Err: err}
	}

	doc := &domain.IngestedFile{
		Path:      path,
		MIMEType:  mimeType,
		SizeBytes: int64(len(data)),
		SHA256:    ComputeHash(data),
		Extra:     map[string]any{},
	}

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		meta, err := imageMetaFrom(bytes.NewReader(data), path)
		if err != nil {
			return nil, err
		}
		doc.Image = meta
	case mimeType == domain.MIMETypePDF:
		doc.PDF = pdfMetaFromBytes(data)
	}

	blocks, err := blocksFromBytes(data, path, mimeType, l.maxSide, l.quality)
	if err != nil {
		return nil, err
	}
	doc.Blocks = blocks

	l.logger.Debug("ingestion.Loader: ingested file",
		"path", path, "mime", mimeType, "size_bytes", doc.SizeBytes, "sha256", doc.SHA256)
	return doc, nil
}

// Ingest discovers the inputs and ingests them in discovery order. The first
// failure aborts the batch and no partial results are returned.
func (l *Loader) Ingest(ctx context.Context, paths []string) ([]*domain.IngestedFile, error) {
	files := l.Discover(paths)
	docs := make([]*domain.IngestedFile, 0, len(files))
	for _, p := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := l.IngestOne(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
