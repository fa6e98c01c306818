package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"docanalyser/internal/analysis"
	"docanalyser/internal/domain"
	"docanalyser/internal/ingestion"
	"docanalyser/internal/metrics"
	"docanalyser/internal/port"
)

// AnalysisConfig holds batch processing settings.
type AnalysisConfig struct {
	Concurrency       int
	RequestsPerMinute int
	MaxSide           int
	JPEGQuality       int
}

// Upload is one file received from a client.
type Upload struct {
	Name string
	Body io.Reader
}

// AnalysisService runs ingestion and analysis over batches of documents.
// A failing document never aborts the rest of its batch.
type AnalysisService interface {
	AnalysePaths(ctx context.Context, paths []string) ([]domain.DocumentOutcome, error)
	AnalyseUploads(ctx context.Context, uploads []Upload) ([]domain.DocumentOutcome, error)
	KeyUsage(ctx context.Context) (map[string]any, error)
	Model() string
}

type analysisService struct {
	loader   *ingestion.Loader
	analyser *analysis.Analyser
	keys     port.KeyUsageChecker
	sink     port.ResultSink
	metrics  *metrics.Metrics
	cfg      AnalysisConfig
	logger   *slog.Logger
}

// NewAnalysisService creates a new AnalysisService. keys and m may be nil.
func NewAnalysisService(
	chat port.ChatCompleter,
	keys port.KeyUsageChecker,
	sink port.ResultSink,
	m *metrics.Metrics,
	cfg AnalysisConfig,
	logger *slog.Logger,
) AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	throttled := &throttledCompleter{next: chat, limiter: limiter, metrics: m}

	return &analysisService{
		loader: ingestion.NewLoader(ingestion.Options{
			MaxSide: cfg.MaxSide,
			Quality: cfg.JPEGQuality,
			Logger:  logger,
		}),
		analyser: analysis.NewWithCompleter(throttled, logger),
		keys:     keys,
		sink:     sink,
		metrics:  m,
		cfg:      cfg,
		logger:   logger.With("component", "service.AnalysisService"),
	}
}

// job is one unit of batch work. label is the name reported to callers;
// preErr short-circuits processing.
type job struct {
	path   string
	label  string
	preErr error
}

func (s *analysisService) Model() string {
	return s.analyser.Model()
}

func (s *analysisService) AnalysePaths(ctx context.Context, paths []string) ([]domain.DocumentOutcome, error) {
	files := s.loader.Discover(paths)
	if len(files) == 0 {
		return nil, domain.ErrNoSupportedFiles
	}
	jobs := make([]job, len(files))
	for i, f := range files {
		jobs[i] = job{path: f, label: f}
	}
	return s.run(ctx, jobs)
}

func (s *analysisService) AnalyseUploads(ctx context.Context, uploads []Upload) ([]domain.DocumentOutcome, error) {
	if len(uploads) == 0 {
		return nil, domain.ErrNoSupportedFiles
	}

	dir, err := os.MkdirTemp("", "docanalyser-upload-*")
	if err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			s.logger.Warn("removing upload dir", "dir", dir, "error", rmErr)
		}
	}()

	jobs := make([]job, len(uploads))
	supported := 0
	for i, u := range uploads {
		name := filepath.Base(filepath.Clean("/" + u.Name))
		jobs[i] = job{label: name}
		if !ingestion.IsSupported(name) {
			jobs[i].preErr = &domain.UnsupportedMimeTypeError{MIME: ingestion.GuessMIME(name), Path: name}
			continue
		}
		path, err := writeUpload(dir, i, name, u.Body)
		if err != nil {
			jobs[i].preErr = err
			continue
		}
		jobs[i].path = path
		supported++
	}
	if supported == 0 {
		s.logger.InfoContext(ctx, "no supported uploads", "count", len(uploads))
	}
	return s.run(ctx, jobs)
}

// writeUpload stores an upload in its own subdirectory so that equal names
// never collide and the original base name is kept.
func writeUpload(dir string, index int, name string, body io.Reader) (string, error) {
	sub := filepath.Join(dir, strconv.Itoa(index))
	if err := os.Mkdir(sub, 0o700); err != nil {
		return "", &domain.IngestionIOError{Path: name, Op: "mkdir", Err: err}
	}
	path := filepath.Join(sub, name)
	f, err := os.Create(path)
	if err != nil {
		return "", &domain.IngestionIOError{Path: name, Op: "create", Err: err}
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return "", &domain.IngestionIOError{Path: name, Op: "write", Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &domain.IngestionIOError{Path: name, Op: "close", Err: err}
	}
	return path, nil
}

// run processes jobs on a bounded worker pool. Outcomes keep job order.
func (s *analysisService) run(ctx context.Context, jobs []job) ([]domain.DocumentOutcome, error) {
	outcomes := make([]domain.DocumentOutcome, len(jobs))
	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup

	s.logger.InfoContext(ctx, "batch started", "documents", len(jobs), "concurrency", s.cfg.Concurrency)
	start := time.Now()

	for i := range jobs {
		if jobs[i].preErr != nil {
			outcomes[i] = domain.DocumentOutcome{Path: jobs[i].label, Err: jobs[i].preErr}
			continue
		}
		select {
		case <-ctx.Done():
			outcomes[i] = domain.DocumentOutcome{Path: jobs[i].label, Err: ctx.Err()}
			continue
		case sem <- struct{}{}: // acquire
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }() // release
			outcomes[i] = s.process(ctx, jobs[i])
		}(i)
	}
	wg.Wait()

	failed := 0
	for i := range outcomes {
		if outcomes[i].Err != nil {
			failed++
		}
	}
	s.logger.InfoContext(ctx, "batch finished",
		"documents", len(jobs), "failed", failed, "elapsed", time.Since(start).Round(time.Millisecond))

	return outcomes, ctx.Err()
}

func (s *analysisService) process(ctx context.Context, j job) domain.DocumentOutcome {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.StartDocument()
	}
	out := domain.DocumentOutcome{Path: j.label}

	defer func() {
		out.Duration = time.Since(start)
		category := ""
		if out.Result != nil {
			category = string(out.Result.Category)
		}
		if s.metrics != nil {
			s.metrics.FinishDocument(category, out.Duration, out.Err)
		}
	}()

	doc, err := s.loader.IngestOne(j.path)
	if err != nil {
		s.logger.WarnContext(ctx, "ingestion failed", "path", j.label, "error", err)
		out.Err = err
		return out
	}
	out.Document = doc

	res, err := s.analyser.Analyse(ctx, doc)
	if err != nil {
		s.logger.WarnContext(ctx, "analysis failed", "path", j.label, "error", err)
		out.Err = err
		return out
	}
	out.Result = res

	rec, err := domain.NewResultRecord(doc, res, s.analyser.Model())
	if err != nil {
		s.logger.ErrorContext(ctx, "building result record", "path", j.label, "error", err)
		return out
	}
	rec.SourcePath = j.label
	rec.FileName = filepath.Base(j.label)
	if s.sink != nil {
		if err := s.sink.Save(ctx, rec); err != nil {
			// result kept; RecordID stays nil
			s.logger.ErrorContext(ctx, "saving result", "path", j.label, "error", err)
			return out
		}
		out.RecordID = &rec.ID
	}

	s.logger.InfoContext(ctx, "document analysed",
		"path", j.label, "category", res.Category, "confidence", res.Confidence, "sha256", doc.SHA256)
	return out
}

// ErrKeyUsageUnsupported is returned when the provider cannot report key usage.
var ErrKeyUsageUnsupported = errors.New("key usage is not supported by the configured provider")

func (s *analysisService) KeyUsage(ctx context.Context) (map[string]any, error) {
	if s.keys == nil {
		return nil, ErrKeyUsageUnsupported
	}
	return s.keys.KeyUsage(ctx)
}

// throttledCompleter applies the pipeline rate limit and counts calls per
// stage before delegating.
type throttledCompleter struct {
	next    port.ChatCompleter
	limiter *rate.Limiter
	metrics *metrics.Metrics
}

func (c *throttledCompleter) Model() string {
	return c.next.Model()
}

func (c *throttledCompleter) CompleteJSON(ctx context.Context, req port.ChatRequest) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}
	out, err := c.next.CompleteJSON(ctx, req)
	if c.metrics != nil {
		c.metrics.ObserveLLMCall(req.SchemaName, err)
	}
	return out, err
}
