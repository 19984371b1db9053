// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, credentials, CORS, and the per-operation
// deadlines applied to the embedder, the vector store, and the LLM.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// TimeoutConfig bounds every outbound call the request path can make.
// A missing bound would let a stuck collaborator hold a handler open
// indefinitely, so all four are validated to be positive.
type TimeoutConfig struct {
	DBRead    time.Duration // vector-store reads
	Embedding time.Duration // embedding generation
	LLM       time.Duration // non-streaming LLM completion
	LLMStream time.Duration // streaming idle bound
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // must exceed the stream idle bound
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	Environment string // development|test|production
	APIBasePath string // base path for API routes

	// Credentials and collaborators
	DatabaseURL    string // Postgres connection string (pgvector)
	OpenAIAPIKey   string // embedder and LLM credential
	APISecretToken string // bearer secret, >= 32 bytes
	LLMModel       string // chat model id
	EmbeddingModel string // embedding model id (1536-dim output)

	// Web protection
	CORS CORSConfig

	// Outbound deadlines
	Timeouts TimeoutConfig

	// Observability
	OTEL OTELConfig
}

// minSecretLen is the minimum byte length accepted for API_SECRET_TOKEN.
// Shorter secrets make the constant-time comparison pointless.
const minSecretLen = 32

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 120*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		Environment: strings.ToLower(getenv("APP_ENV", "development")),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Credentials and collaborators
		DatabaseURL:    getenv("DATABASE_URL", ""),
		OpenAIAPIKey:   getenv("OPENAI_API_KEY", ""),
		APISecretToken: getenv("API_SECRET_TOKEN", ""),
		LLMModel:       getenv("LLM_MODEL", "gpt-5-mini"),
		EmbeddingModel: getenv("EMBEDDING_MODEL", "text-embedding-3-small"),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},

		// Outbound deadlines
		Timeouts: TimeoutConfig{
			DBRead:    getdur("DB_READ_TIMEOUT", 5*time.Second),
			Embedding: getdur("EMBEDDING_TIMEOUT", 10*time.Second),
			LLM:       getdur("LLM_TIMEOUT", 30*time.Second),
			LLMStream: getdur("LLM_STREAM_IDLE_TIMEOUT", 60*time.Second),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "hr-rag-service"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	switch cfg.Environment {
	case "development", "test", "production":
	default:
		cfg.Environment = "development"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return cfg, errors.New("DATABASE_URL must not be empty")
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return cfg, errors.New("OPENAI_API_KEY must not be empty")
	}
	if len(cfg.APISecretToken) < minSecretLen {
		return cfg, errors.New("API_SECRET_TOKEN must be at least 32 bytes")
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		return cfg, errors.New("ALLOWED_ORIGINS must list at least one origin")
	}
	if strings.TrimSpace(cfg.LLMModel) == "" {
		return cfg, errors.New("LLM_MODEL must not be empty")
	}
	if t := cfg.Timeouts; t.DBRead <= 0 || t.Embedding <= 0 || t.LLM <= 0 || t.LLMStream <= 0 {
		return cfg, errors.New("outbound timeouts must be positive durations")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
