package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/JulianoL13/proxy-rotator/internal/proxy"
	"github.com/JulianoL13/proxy-rotator/internal/scraper/github"
	httpverifier "github.com/JulianoL13/proxy-rotator/internal/verifier/http"
	"github.com/joho/godotenv"
)

const (
	backendRedis    = "redis"
	backendPostgres = "postgres"
	backendMemory   = "memory"
)

type Config struct {
	APIPort string

	StoreBackend   string
	RedisAddr      string
	RedisPass      string
	RedisDB        int
	RedisKeyPrefix string
	PostgresDSN    string

	CheckInterval      time.Duration
	RetryBackoff       time.Duration
	ProbeTimeout       time.Duration
	MaxConcurrentTests int
	MinUptime          float64
	MaxAge             time.Duration
	FreshnessThreshold time.Duration
	TestURLs           []string
	AnonymityCheck     bool
	EchoURL            string

	GitHubToken    string
	GitHubMaxDepth int
	GitHubMaxRepos int

	EventsEnabled bool
	EventsTopic   string

	LogFormat string
	LogLevel  string
}

// usesRedis reports whether the process needs a redis connection.
func (c Config) usesRedis() bool {
	return c.StoreBackend == backendRedis || c.EventsEnabled
}

func (c Config) refreshConfig() proxy.RefreshConfig {
	return proxy.RefreshConfig{
		Interval:     c.CheckInterval,
		RetryBackoff: c.RetryBackoff,
		MinUptime:    c.MinUptime,
		MaxAge:       c.MaxAge,
	}
}

func loadConfig() (Config, error) {
	_ = godotenv.Load()

	env := &envReader{}
	cfg := Config{
		APIPort: env.getEnv("API_PORT", "8080"),

		StoreBackend:   strings.ToLower(env.getEnv("STORE_BACKEND", backendRedis)),
		RedisAddr:      env.getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:      env.getEnv("REDIS_PASSWORD", ""),
		RedisDB:        env.getEnvInt("REDIS_DB", 0),
		RedisKeyPrefix: env.getEnv("REDIS_KEY_PREFIX", "proxies"),
		PostgresDSN:    env.getEnv("POSTGRES_DSN", ""),

		CheckInterval:      env.getEnvSeconds("CHECK_INTERVAL_SECONDS", proxy.DefaultCheckInterval),
		RetryBackoff:       env.getEnvSeconds("RETRY_BACKOFF_SECONDS", proxy.DefaultRetryBackoff),
		ProbeTimeout:       env.getEnvSeconds("PROBE_TIMEOUT_SECONDS", httpverifier.DefaultTimeout),
		MaxConcurrentTests: env.getEnvInt("MAX_CONCURRENT_TESTS", 50),
		MinUptime:          env.getEnvFloat("MIN_UPTIME", proxy.DefaultMinUptime),
		MaxAge:             time.Duration(env.getEnvInt("MAX_AGE_HOURS", int(proxy.DefaultMaxAge/time.Hour))) * time.Hour,
		FreshnessThreshold: time.Duration(env.getEnvInt("FRESHNESS_THRESHOLD_MS", int(proxy.DefaultFreshnessThreshold/time.Millisecond))) * time.Millisecond,
		TestURLs:           env.getEnvList("TEST_URLS", httpverifier.DefaultTargetURLs),
		AnonymityCheck:     env.getEnvBool("ANONYMITY_CHECK", false),
		EchoURL:            env.getEnv("ECHO_URL", httpverifier.DefaultEchoURL),

		GitHubToken:    env.getEnv("GITHUB_TOKEN", ""),
		GitHubMaxDepth: env.getEnvInt("GITHUB_MAX_DEPTH", github.DefaultMaxDepth),
		GitHubMaxRepos: env.getEnvInt("GITHUB_MAX_REPOS", github.DefaultMaxRepos),

		EventsEnabled: env.getEnvBool("EVENTS_ENABLED", true),
		EventsTopic:   env.getEnv("EVENTS_TOPIC", "proxies:refreshed"),

		LogFormat: strings.ToLower(env.getEnv("LOG_FORMAT", "json")),
		LogLevel:  env.getEnv("LOG_LEVEL", "info"),
	}

	if err := errors.Join(append(env.errs, cfg.validate())...); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error

	switch c.StoreBackend {
	case backendRedis, backendMemory:
	case backendPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q is not one of redis, postgres, memory", c.StoreBackend))
	}

	if c.CheckInterval <= 0 {
		errs = append(errs, errors.New("CHECK_INTERVAL_SECONDS must be positive"))
	}
	if c.RetryBackoff <= 0 {
		errs = append(errs, errors.New("RETRY_BACKOFF_SECONDS must be positive"))
	}
	if c.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("PROBE_TIMEOUT_SECONDS must be positive"))
	}
	if c.MaxConcurrentTests <= 0 {
		errs = append(errs, errors.New("MAX_CONCURRENT_TESTS must be positive"))
	}
	if c.MinUptime < 0 || c.MinUptime > 1 {
		errs = append(errs, errors.New("MIN_UPTIME must be within [0, 1]"))
	}
	if c.FreshnessThreshold <= 0 {
		errs = append(errs, errors.New("FRESHNESS_THRESHOLD_MS must be positive"))
	}
	if len(c.TestURLs) == 0 {
		errs = append(errs, errors.New("TEST_URLS needs at least one url"))
	}
	for _, raw := range c.TestURLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("TEST_URLS entry %q is not an http(s) url", raw))
		}
	}
	if c.EventsEnabled && c.EventsTopic == "" {
		errs = append(errs, errors.New("EVENTS_TOPIC must be set when events are enabled"))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q is not json or text", c.LogFormat))
	}

	return errors.Join(errs...)
}

// envReader reads typed environment values and remembers malformed ones.
type envReader struct {
	errs []error
}

func (e *envReader) getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func (e *envReader) getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	i, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return i
}

func (e *envReader) getEnvFloat(key string, fallback float64) float64 {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func (e *envReader) getEnvBool(key string, fallback bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func (e *envReader) getEnvSeconds(key string, fallback time.Duration) time.Duration {
	return time.Duration(e.getEnvInt(key, int(fallback/time.Second))) * time.Second
}

func (e *envReader) getEnvList(key string, fallback []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
