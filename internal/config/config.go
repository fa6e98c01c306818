package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	LLM      LLMConfig
	Ingest   IngestConfig
	Pipeline PipelineConfig
	Results  ResultsConfig
	S3       S3Config
	DB       DBConfig
	Log      LogConfig
	CORS     CORSConfig
}

// LLMProviderConfig holds settings for a single chat completion provider.
type LLMProviderConfig struct {
	Provider    string `mapstructure:"provider"`
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// LLMConfig holds chat provider settings with optional fallback providers.
type LLMConfig struct {
	Primary   LLMProviderConfig `mapstructure:"primary"`
	Secondary LLMProviderConfig `mapstructure:"secondary"`
	Tertiary  LLMProviderConfig `mapstructure:"tertiary"`
}

// PrimaryConfig returns the primary provider config.
func (l *LLMConfig) PrimaryConfig() *LLMProviderConfig {
	return &l.Primary
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (l *LLMConfig) SecondaryConfig() *LLMProviderConfig {
	if l.Secondary.Provider != "" {
		return &l.Secondary
	}
	return nil
}

// TertiaryConfig returns the tertiary provider config, or nil if not configured.
func (l *LLMConfig) TertiaryConfig() *LLMProviderConfig {
	if l.Tertiary.Provider != "" {
		return &l.Tertiary
	}
	return nil
}

// Providers returns the configured providers in fallback order.
func (l *LLMConfig) Providers() []*LLMProviderConfig {
	out := []*LLMProviderConfig{l.PrimaryConfig()}
	if s := l.SecondaryConfig(); s != nil {
		out = append(out, s)
	}
	if t := l.TertiaryConfig(); t != nil {
		out = append(out, t)
	}
	return out
}

// IngestConfig holds image normalization settings.
type IngestConfig struct {
	MaxSide     int `mapstructure:"max_side"`
	JPEGQuality int `mapstructure:"jpeg_quality"`
}

// PipelineConfig holds batch processing settings.
type PipelineConfig struct {
	Concurrency       int `mapstructure:"concurrency"`
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// ResultsConfig selects where analysis results are persisted.
type ResultsConfig struct {
	Sink     string `mapstructure:"sink"`
	FilePath string `mapstructure:"file_path"`
	S3Prefix string `mapstructure:"s3_prefix"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
	MaxUploadMB  int64         `mapstructure:"max_upload_mb"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the DOCANALYSER_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCANALYSER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.max_upload_mb", 50)

	// LLM defaults
	v.SetDefault("llm.primary.provider", "openrouter")
	v.SetDefault("llm.primary.base_url", "")
	v.SetDefault("llm.primary.api_key", "")
	v.SetDefault("llm.primary.model", "openai/gpt-4o")
	v.SetDefault("llm.primary.timeout_secs", 120)
	v.SetDefault("llm.secondary.provider", "")
	v.SetDefault("llm.secondary.timeout_secs", 120)
	v.SetDefault("llm.tertiary.provider", "")
	v.SetDefault("llm.tertiary.timeout_secs", 120)

	// Ingest defaults
	v.SetDefault("ingest.max_side", 1600)
	v.SetDefault("ingest.jpeg_quality", 85)

	// Pipeline defaults (sequential, unthrottled)
	v.SetDefault("pipeline.concurrency", 1)
	v.SetDefault("pipeline.requests_per_minute", 0)

	// Results defaults
	v.SetDefault("results.sink", "none")
	v.SetDefault("results.file_path", "analysis_results.json")
	v.SetDefault("results.s3_prefix", "results/")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "docanalyser-results")
	v.SetDefault("s3.endpoint", "")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "docanalyser")
	v.SetDefault("db.password", "docanalyser_secret")
	v.SetDefault("db.name", "docanalyser")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 10)
	v.SetDefault("db.max_idle", 5)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                  "DOCANALYSER_SERVER_PORT",
		"server.read_timeout":          "DOCANALYSER_SERVER_READ_TIMEOUT",
		"server.write_timeout":         "DOCANALYSER_SERVER_WRITE_TIMEOUT",
		"server.environment":           "DOCANALYSER_SERVER_ENVIRONMENT",
		"server.max_upload_mb":         "DOCANALYSER_SERVER_MAX_UPLOAD_MB",
		"llm.primary.provider":         "DOCANALYSER_LLM_PROVIDER",
		"llm.primary.base_url":         "DOCANALYSER_LLM_BASE_URL",
		"llm.primary.api_key":          "DOCANALYSER_LLM_API_KEY",
		"llm.primary.model":            "DOCANALYSER_LLM_MODEL",
		"llm.primary.timeout_secs":     "DOCANALYSER_LLM_TIMEOUT_SECS",
		"llm.secondary.provider":       "DOCANALYSER_LLM_SECONDARY_PROVIDER",
		"llm.secondary.base_url":       "DOCANALYSER_LLM_SECONDARY_BASE_URL",
		"llm.secondary.api_key":        "DOCANALYSER_LLM_SECONDARY_API_KEY",
		"llm.secondary.model":          "DOCANALYSER_LLM_SECONDARY_MODEL",
		"llm.secondary.timeout_secs":   "DOCANALYSER_LLM_SECONDARY_TIMEOUT_SECS",
		"llm.tertiary.provider":        "DOCANALYSER_LLM_TERTIARY_PROVIDER",
		"llm.tertiary.base_url":        "DOCANALYSER_LLM_TERTIARY_BASE_URL",
		"llm.tertiary.api_key":         "DOCANALYSER_LLM_TERTIARY_API_KEY",
		"llm.tertiary.model":           "DOCANALYSER_LLM_TERTIARY_MODEL",
		"llm.tertiary.timeout_secs":    "DOCANALYSER_LLM_TERTIARY_TIMEOUT_SECS",
		"ingest.max_side":              "DOCANALYSER_INGEST_MAX_SIDE",
		"ingest.jpeg_quality":          "DOCANALYSER_INGEST_JPEG_QUALITY",
		"pipeline.concurrency":         "DOCANALYSER_PIPELINE_CONCURRENCY",
		"pipeline.requests_per_minute": "DOCANALYSER_PIPELINE_REQUESTS_PER_MINUTE",
		"results.sink":                 "DOCANALYSER_RESULTS_SINK",
		"results.file_path":            "DOCANALYSER_RESULTS_FILE_PATH",
		"results.s3_prefix":            "DOCANALYSER_RESULTS_S3_PREFIX",
		"s3.region":                    "DOCANALYSER_S3_REGION",
		"s3.bucket":                    "DOCANALYSER_S3_BUCKET",
		"s3.endpoint":                  "DOCANALYSER_S3_ENDPOINT",
		"s3.access_key":                "DOCANALYSER_S3_ACCESS_KEY",
		"s3.secret_key":                "DOCANALYSER_S3_SECRET_KEY",
		"db.host":                      "DOCANALYSER_DB_HOST",
		"db.port":                      "DOCANALYSER_DB_PORT",
		"db.user":                      "DOCANALYSER_DB_USER",
		"db.password":                  "DOCANALYSER_DB_PASSWORD",
		"db.name":                      "DOCANALYSER_DB_NAME",
		"db.sslmode":                   "DOCANALYSER_DB_SSLMODE",
		"db.max_open":                  "DOCANALYSER_DB_MAX_OPEN",
		"db.max_idle":                  "DOCANALYSER_DB_MAX_IDLE",
		"log.level":                    "DOCANALYSER_LOG_LEVEL",
		"log.format":                   "DOCANALYSER_LOG_FORMAT",
		"log.file":                     "DOCANALYSER_LOG_FILE",
		"cors.allowed_origins":         "DOCANALYSER_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	cfg.Server = ServerConfig{
		Port:         v.GetString("server.port"),
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
		MaxUploadMB:  v.GetInt64("server.max_upload_mb"),
	}

	// Hosting platforms set a PORT env var. Use it if DOCANALYSER_SERVER_PORT is not explicitly set.
	if port := os.Getenv("PORT"); port != "" && os.Getenv("DOCANALYSER_SERVER_PORT") == "" {
		cfg.Server.Port = ":" + port
	}

	cfg.LLM = LLMConfig{
		Primary:   providerConfig(v, "llm.primary"),
		Secondary: providerConfig(v, "llm.secondary"),
		Tertiary:  providerConfig(v, "llm.tertiary"),
	}
	if cfg.LLM.Primary.APIKey == "" {
		cfg.LLM.Primary.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}

	cfg.Ingest = IngestConfig{
		MaxSide:     v.GetInt("ingest.max_side"),
		JPEGQuality: v.GetInt("ingest.jpeg_quality"),
	}
	cfg.Pipeline = PipelineConfig{
		Concurrency:       v.GetInt("pipeline.concurrency"),
		RequestsPerMinute: v.GetInt("pipeline.requests_per_minute"),
	}
	cfg.Results = ResultsConfig{
		Sink:     strings.ToLower(v.GetString("results.sink")),
		FilePath: v.GetString("results.file_path"),
		S3Prefix: v.GetString("results.s3_prefix"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
		File:   v.GetString("log.file"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func providerConfig(v *viper.Viper, prefix string) LLMProviderConfig {
	return LLMProviderConfig{
		Provider:    v.GetString(prefix + ".provider"),
		BaseURL:     v.GetString(prefix + ".base_url"),
		APIKey:      v.GetString(prefix + ".api_key"),
		Model:       v.GetString(prefix + ".model"),
		TimeoutSecs: v.GetInt(prefix + ".timeout_secs"),
	}
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline.concurrency must be >= 1, got %d", c.Pipeline.Concurrency)
	}
	if c.Pipeline.RequestsPerMinute < 0 {
		return fmt.Errorf("pipeline.requests_per_minute must be >= 0, got %d", c.Pipeline.RequestsPerMinute)
	}
	if c.Ingest.MaxSide < 1 {
		return fmt.Errorf("ingest.max_side must be >= 1, got %d", c.Ingest.MaxSide)
	}
	if c.Ingest.JPEGQuality < 1 || c.Ingest.JPEGQuality > 100 {
		return fmt.Errorf("ingest.jpeg_quality must be within 1..100, got %d", c.Ingest.JPEGQuality)
	}
	switch c.Results.Sink {
	case "none", "file", "s3", "postgres":
	default:
		return fmt.Errorf("unknown results.sink %q (want none, file, s3 or postgres)", c.Results.Sink)
	}
	return nil
}
