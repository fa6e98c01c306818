// Package bootstrap wires configuration into a ready-to-use analysis service.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"docanalyser/internal/config"
	"docanalyser/internal/llm"
	"docanalyser/internal/llm/openai"
	"docanalyser/internal/metrics"
	"docanalyser/internal/port"
	"docanalyser/internal/repository/postgres"
	"docanalyser/internal/service"
	"docanalyser/internal/sink"
	s3storage "docanalyser/internal/storage/s3"
)

// Sink names accepted by ResultsConfig.Sink.
const (
	SinkNone     = "none"
	SinkFile     = "file"
	SinkS3       = "s3"
	SinkPostgres = "postgres"
)

// App holds the wired components shared by the server and the CLI.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Service service.AnalysisService

	// DB and Results are set only for the postgres sink.
	DB      *sqlx.DB
	Results port.AnalysisResultRepository

	closeFn func()
}

// New builds the App. The caller must call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	openai.Register()

	chat, err := llm.NewFromConfig(&cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("init llm: %w", err)
	}
	// key usage always reports on the primary key
	keys := openai.NewClient(cfg.LLM.PrimaryConfig())

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	resultSink, err := app.newSink(ctx)
	if err != nil {
		return nil, err
	}

	app.Service = service.NewAnalysisService(chat, keys, resultSink, app.Metrics, service.AnalysisConfig{
		Concurrency:       cfg.Pipeline.Concurrency,
		RequestsPerMinute: cfg.Pipeline.RequestsPerMinute,
		MaxSide:           cfg.Ingest.MaxSide,
		JPEGQuality:       cfg.Ingest.JPEGQuality,
	}, logger)

	logger.Info("application initialized",
		"model", chat.Model(),
		"providers", len(cfg.LLM.Providers()),
		"sink", cfg.Results.Sink,
		"concurrency", cfg.Pipeline.Concurrency)
	return app, nil
}

func (a *App) newSink(ctx context.Context) (port.ResultSink, error) {
	cfg := a.Config
	switch cfg.Results.Sink {
	case SinkNone, "":
		// results are returned to the caller only
		return nil, nil
	case SinkFile:
		return sink.NewFileSink(cfg.Results.FilePath), nil
	case SinkS3:
		store, err := s3storage.NewS3Client(ctx, &cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("init s3 client: %w", err)
		}
		return sink.NewObjectSink(store, cfg.S3.Bucket, cfg.Results.S3Prefix), nil
	case SinkPostgres:
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.Results = postgres.NewAnalysisResultRepo(db)
		a.closeFn = func() {
			if err := db.Close(); err != nil {
				a.Logger.Warn("closing database", "error", err)
			}
		}
		return a.Results, nil
	default:
		return nil, fmt.Errorf("unknown results sink: %s", cfg.Results.Sink)
	}
}

// Close releases resources held by the App.
func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
