package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/voyago/backend-voyago/internal/circuit"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	// Default thresholds for breakers created without an explicit config.
	CircuitFailureThresholdPct float64
	CircuitSuccessThreshold    int
	CircuitOpenTimeout         time.Duration
	CircuitWindowSize          int
	CircuitVolumeThreshold     int
	CircuitSingleProbe         bool

	// Guarded upstream providers.
	ContentProviderBaseURL string
	ContentProviderAPIKey  string
	ContentProviderTimeout time.Duration
	ContentMaxAttempts     int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CircuitFailureThresholdPct: parseFloat(k.String("CIRCUIT_FAILURE_THRESHOLD_PCT"), circuit.DefaultFailureThresholdPct),
		CircuitSuccessThreshold:    parseInt(k.String("CIRCUIT_SUCCESS_THRESHOLD"), circuit.DefaultSuccessThreshold),
		CircuitOpenTimeout:         parseDuration(k.String("CIRCUIT_OPEN_TIMEOUT"), "60s"),
		CircuitWindowSize:          parseInt(k.String("CIRCUIT_WINDOW_SIZE"), circuit.DefaultWindowSize),
		CircuitVolumeThreshold:     parseInt(k.String("CIRCUIT_VOLUME_THRESHOLD"), circuit.DefaultVolumeThreshold),
		CircuitSingleProbe:         parseBool(k.String("CIRCUIT_SINGLE_PROBE")),

		ContentProviderBaseURL: valueOrDefault(k.String("CONTENT_PROVIDER_BASE_URL"), "https://content.example.com"),
		ContentProviderAPIKey:  k.String("CONTENT_PROVIDER_API_KEY"),
		ContentProviderTimeout: parseDuration(k.String("CONTENT_PROVIDER_TIMEOUT"), "5s"),
		ContentMaxAttempts:     parseInt(k.String("CONTENT_MAX_ATTEMPTS"), 3),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// CircuitDefaults maps the configured thresholds onto a breaker config.
func (c *Config) CircuitDefaults() circuit.Config {
	return circuit.Config{
		FailureThresholdPct: c.CircuitFailureThresholdPct,
		SuccessThreshold:    c.CircuitSuccessThreshold,
		OpenTimeout:         c.CircuitOpenTimeout,
		WindowSize:          c.CircuitWindowSize,
		VolumeThreshold:     c.CircuitVolumeThreshold,
		SingleProbe:         c.CircuitSingleProbe,
	}
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(env map[string]string) error {
	var joined error
	for key, value := range env {
		if err := setEnvVar(key, value); err != nil {
			joined = errors.Join(joined, err)
		}
	}
	return joined
}
