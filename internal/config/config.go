// Package config provides client configuration loaded from environment
// variables with defaults and validation. It centralizes the settings shared
// by the API client, the session store, the upload coordinator, the terminal
// front end and the local fake backend.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "pawconnect")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// FakeAPIConfig configures the in-memory development backend.
type FakeAPIConfig struct {
	Port           string        // FAKEAPI_PORT
	JWTSecret      string        // FAKEAPI_JWT_SECRET
	TokenTTL       time.Duration // FAKEAPI_TOKEN_TTL
	AllowedOrigins []string      // FAKEAPI_CORS_ALLOWED_ORIGINS
}

// Config holds all configuration values for the client.
type Config struct {
	// API
	APIBaseURL     string        // backend root, no trailing slash
	RequestTimeout time.Duration // fixed upper bound per call
	LoginPath      string        // login entry point used on session expiry

	// Session
	DBPath     string // SQLite file holding the durable session
	SessionKey string // durable key of the serialized session

	// Uploads
	UploadMaxBytes int64

	// Outbound throttle
	RateRPS   float64 // tokens per second (0 disables)
	RateBurst int     // bucket size (>= 1)

	// Store
	StaleGuard bool // discard responses of superseded requests

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // console writer instead of JSON

	FakeAPI FakeAPIConfig
	OTEL    OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadDotEnv reads key=value pairs from the given files (".env" when none is
// given) into the process environment. Variables already set win. A missing
// file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		APIBaseURL:     normalizeBaseURL(getenv("PAWCONNECT_API_URL", "http://localhost:8081")),
		RequestTimeout: getdur("PAWCONNECT_REQUEST_TIMEOUT", 30*time.Second),
		LoginPath:      normalizePath(getenv("PAWCONNECT_LOGIN_PATH", "/login")),

		DBPath:     getenv("PAWCONNECT_DB_PATH", "pawconnect.db"),
		SessionKey: getenv("PAWCONNECT_SESSION_KEY", "userInfo"),

		UploadMaxBytes: getint64("PAWCONNECT_UPLOAD_MAX_BYTES", 10<<20),

		RateRPS:   getfloat("PAWCONNECT_RATE_RPS", 0),
		RateBurst: getint("PAWCONNECT_RATE_BURST", 5),

		StaleGuard: getbool("PAWCONNECT_STALE_GUARD", false),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		FakeAPI: FakeAPIConfig{
			Port:           getenv("FAKEAPI_PORT", "8081"),
			JWTSecret:      getenv("FAKEAPI_JWT_SECRET", "pawconnect-dev-secret"),
			TokenTTL:       getdur("FAKEAPI_TOKEN_TTL", 24*time.Hour),
			AllowedOrigins: splitCSV(getenv("FAKEAPI_CORS_ALLOWED_ORIGINS", "")),
		},

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "pawconnect"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if !strings.HasPrefix(cfg.APIBaseURL, "http://") && !strings.HasPrefix(cfg.APIBaseURL, "https://") {
		return cfg, errors.New("PAWCONNECT_API_URL must be an http(s) URL")
	}
	if cfg.RequestTimeout <= 0 {
		return cfg, errors.New("PAWCONNECT_REQUEST_TIMEOUT must be a positive duration")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("PAWCONNECT_DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.SessionKey) == "" {
		return cfg, errors.New("PAWCONNECT_SESSION_KEY must not be empty")
	}
	if cfg.UploadMaxBytes <= 0 {
		return cfg, errors.New("PAWCONNECT_UPLOAD_MAX_BYTES must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("PAWCONNECT_RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("PAWCONNECT_RATE_BURST must be >= 1")
	}
	if strings.TrimSpace(cfg.FakeAPI.Port) == "" {
		return cfg, errors.New("FAKEAPI_PORT must not be empty")
	}
	if cfg.FakeAPI.TokenTTL <= 0 {
		return cfg, errors.New("FAKEAPI_TOKEN_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

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

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
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

// normalizeBaseURL trims whitespace and trailing slashes.
func normalizeBaseURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

// normalizePath ensures leading '/' and strips trailing '/' (except root).
func normalizePath(p string) string {
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
