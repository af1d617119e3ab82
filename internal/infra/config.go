package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	ServiceBaseURL   string
	ServiceAPIKey    string
	PollInterval     time.Duration
	MaxWait          time.Duration
	CreateTimeout    time.Duration
	PollTimeout      time.Duration
	FetchTimeout     time.Duration
	OutputDir        string
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	MetricsAddr      string
	Concurrency      int
	Port             string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		ServiceAPIKey:    strings.TrimSpace(os.Getenv("VIDEOGEN_API_KEY")),
		PollInterval:     getEnvSeconds("VIDEOGEN_POLL_INTERVAL_SECONDS", 5),
		MaxWait:          getEnvSeconds("VIDEOGEN_MAX_WAIT_SECONDS", 600),
		CreateTimeout:    getEnvSeconds("VIDEOGEN_CREATE_TIMEOUT_SECONDS", 30),
		PollTimeout:      getEnvSeconds("VIDEOGEN_POLL_TIMEOUT_SECONDS", 10),
		FetchTimeout:     getEnvSeconds("VIDEOGEN_FETCH_TIMEOUT_SECONDS", 30),
		OutputDir:        getEnv("OUTPUT_DIR", "."),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		MetricsAddr:      os.Getenv("METRICS_ADDR"),
		Concurrency:      getEnvInt("VIDEOGEN_CONCURRENCY", 1),
		Port:             getEnv("PORT", "8000"),
		HTTPReadTimeout:  getEnvSeconds("HTTP_READ_TIMEOUT_SECONDS", 15),
		HTTPWriteTimeout: getEnvSeconds("HTTP_WRITE_TIMEOUT_SECONDS", 30),
		HTTPIdleTimeout:  getEnvSeconds("HTTP_IDLE_TIMEOUT_SECONDS", 60),
	}

	baseURL, err := resolveServiceBaseURL()
	if err != nil {
		return nil, err
	}
	cfg.ServiceBaseURL = baseURL

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("VIDEOGEN_POLL_INTERVAL_SECONDS must be positive")
	}
	if cfg.MaxWait <= 0 {
		return nil, fmt.Errorf("VIDEOGEN_MAX_WAIT_SECONDS must be positive")
	}
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("VIDEOGEN_CONCURRENCY must be positive")
	}

	return cfg, nil
}

// resolveServiceBaseURL prefers an explicit base URL and otherwise builds one
// from host and port. The CACHE_DIT_* names are accepted for compatibility
// with existing deployment scripts.
func resolveServiceBaseURL() (string, error) {
	if raw := strings.TrimSpace(os.Getenv("VIDEOGEN_BASE_URL")); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return "", fmt.Errorf("VIDEOGEN_BASE_URL is invalid: %q", raw)
		}
		return strings.TrimRight(raw, "/"), nil
	}
	host := getEnv("VIDEOGEN_HOST", getEnv("CACHE_DIT_HOST", "localhost"))
	portRaw := getEnv("VIDEOGEN_PORT", getEnv("CACHE_DIT_PORT", "8000"))
	port, err := strconv.Atoi(portRaw)
	if err != nil || port <= 0 || port > 65535 {
		return "", fmt.Errorf("service port is invalid: %q", portRaw)
	}
	return fmt.Sprintf("http://%s:%d", host, port), nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Second * time.Duration(getEnvInt(key, fallback))
}
