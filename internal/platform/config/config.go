package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures everything the gateway needs at startup. Values come from
// the environment (FromEnv) with an optional YAML overlay (FromFile) so
// deployments can keep secrets in the environment and tuning in a file.
type Config struct {
	Addr          string        `yaml:"addr"`
	JWTSigningKey string        `yaml:"-"`
	PostgresURL   string        `yaml:"postgres_url"`
	KafkaBrokers  []string      `yaml:"kafka_brokers"`
	AuditTopic    string        `yaml:"audit_topic"`
	Redis         RedisConfig   `yaml:"redis"`
	CRLTimeout    time.Duration `yaml:"crl_timeout"`

	// RequireFullCoverage fails a verification when the SOD declares a data
	// group the caller did not supply. Default off: a PA session may check a
	// subset of groups.
	RequireFullCoverage bool `yaml:"require_full_coverage"`
}

// RedisConfig tunes the shared Redis client used by the CRL cache.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

const (
	// CRL lookups are the only blocking I/O inside a verification run; the
	// timeout is clamped so a misconfigured value cannot disable fail-open.
	minCRLTimeout     = 5 * time.Second
	maxCRLTimeout     = 300 * time.Second
	defaultCRLTimeout = 30 * time.Second
)

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("PA_GATEWAY_ADDR", ":8080"),
		JWTSigningKey: os.Getenv("PA_GATEWAY_JWT_KEY"),
		PostgresURL:   os.Getenv("PA_GATEWAY_POSTGRES_URL"),
		AuditTopic:    envOr("PA_GATEWAY_AUDIT_TOPIC", "pa.verifications"),
		CRLTimeout:    defaultCRLTimeout,
		Redis: RedisConfig{
			URL:          os.Getenv("PA_GATEWAY_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}

	if brokers := os.Getenv("PA_GATEWAY_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitNonEmpty(brokers)
	}
	if v := os.Getenv("PA_GATEWAY_CRL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CRLTimeout = d
		}
	}
	if v := os.Getenv("PA_GATEWAY_REQUIRE_FULL_COVERAGE"); v != "" {
		cfg.RequireFullCoverage, _ = strconv.ParseBool(v)
	}

	cfg.CRLTimeout = clampCRLTimeout(cfg.CRLTimeout)
	return cfg
}

// FromFile overlays a YAML file onto cfg. Fields absent from the file keep
// their environment-derived values.
func FromFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	cfg.CRLTimeout = clampCRLTimeout(cfg.CRLTimeout)
	return cfg, nil
}

func clampCRLTimeout(d time.Duration) time.Duration {
	switch {
	case d < minCRLTimeout:
		return minCRLTimeout
	case d > maxCRLTimeout:
		return maxCRLTimeout
	default:
		return d
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitNonEmpty(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
