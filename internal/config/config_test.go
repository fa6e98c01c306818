package config_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docanalyser/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key := strings.SplitN(kv, "=", 2)[0]
		if strings.HasPrefix(key, "DOCANALYSER_") || key == "OPENROUTER_API_KEY" || key == "PORT" {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(50), cfg.Server.MaxUploadMB)
	assert.Equal(t, "openrouter", cfg.LLM.Primary.Provider)
	assert.Equal(t, "openai/gpt-4o", cfg.LLM.Primary.Model)
	assert.Equal(t, 120, cfg.LLM.Primary.TimeoutSecs)
	assert.Empty(t, cfg.LLM.Primary.APIKey)
	assert.Equal(t, 1600, cfg.Ingest.MaxSide)
	assert.Equal(t, 85, cfg.Ingest.JPEGQuality)
	assert.Equal(t, 1, cfg.Pipeline.Concurrency)
	assert.Equal(t, 0, cfg.Pipeline.RequestsPerMinute)
	assert.Equal(t, "none", cfg.Results.Sink)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.CORS.AllowedOrigins)
	assert.Len(t, cfg.LLM.Providers(), 1)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOCANALYSER_LLM_API_KEY", "sk-explicit")
	t.Setenv("DOCANALYSER_LLM_MODEL", "anthropic/claude-sonnet-4")
	t.Setenv("DOCANALYSER_LLM_SECONDARY_PROVIDER", "openai")
	t.Setenv("DOCANALYSER_LLM_SECONDARY_API_KEY", "sk-openai")
	t.Setenv("DOCANALYSER_PIPELINE_CONCURRENCY", "4")
	t.Setenv("DOCANALYSER_INGEST_MAX_SIDE", "1024")
	t.Setenv("DOCANALYSER_RESULTS_SINK", "FILE")
	t.Setenv("DOCANALYSER_CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "sk-explicit", cfg.LLM.Primary.APIKey)
	assert.Equal(t, "anthropic/claude-sonnet-4", cfg.LLM.Primary.Model)
	require.NotNil(t, cfg.LLM.SecondaryConfig())
	assert.Equal(t, "sk-openai", cfg.LLM.SecondaryConfig().APIKey)
	assert.Nil(t, cfg.LLM.TertiaryConfig())
	assert.Len(t, cfg.LLM.Providers(), 2)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.Equal(t, 1024, cfg.Ingest.MaxSide)
	assert.Equal(t, "file", cfg.Results.Sink)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_OpenRouterKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "sk-or-fallback")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "sk-or-fallback", cfg.LLM.Primary.APIKey)
}

func TestLoad_PlatformPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Port)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"DOCANALYSER_PIPELINE_CONCURRENCY": "0",
		"DOCANALYSER_INGEST_JPEG_QUALITY":  "101",
		"DOCANALYSER_INGEST_MAX_SIDE":      "0",
		"DOCANALYSER_RESULTS_SINK":         "kafka",
	}
	for env, val := range tests {
		t.Run(env, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(env, val)

			_, err := config.Load()

			assert.Error(t, err)
		})
	}
}

func TestDBConfig_DSN(t *testing.T) {
	db := config.DBConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "require"}
	assert.Equal(t, "postgres://u:p@db:5433/n?sslmode=require", db.DSN())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, config.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, config.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, config.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, config.ParseLevel("verbose"))
}

func TestSetupLoggerWithWriters_FansOut(t *testing.T) {
	var console, file bytes.Buffer
	logger := config.SetupLoggerWithWriters(&console, &file, "text", slog.LevelInfo)

	logger.Info("document analysed", "category", "invoice")
	logger.Debug("hidden")

	assert.Contains(t, console.String(), "document analysed")
	assert.Contains(t, console.String(), "category=invoice")
	assert.NotContains(t, console.String(), "hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &entry))
	assert.Equal(t, "document analysed", entry["msg"])
	assert.Equal(t, "invoice", entry["category"])
}

func TestSetupLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, cleanup := config.SetupLogger(config.LogConfig{Level: "info", Format: "json", File: path})

	logger.Info("hello")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestSetupLogger_StderrOnly(t *testing.T) {
	logger, cleanup := config.SetupLogger(config.LogConfig{Level: "warn"})

	assert.NotNil(t, logger)
	assert.NoError(t, cleanup())
}
