// Package config provides configuration loading for tenantstore.
//
// Configuration is environment-variable driven with an optional YAML file.
// Precedence (highest to lowest):
//  1. Environment variables (REDIS_URL, QDRANT_URL, CACHE_DEFAULT_TTL, ...)
//  2. YAML config file, when a path is given
//  3. Hardcoded defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/helixdesk/tenantstore/internal/logging"
)

// Duration is a time.Duration that unmarshals from strings like "90s" or "1h".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if parsed < 0 {
		return fmt.Errorf("duration cannot be negative: %s", text)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration().String())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration for the tenant data-access layer.
type Config struct {
	Redis   RedisConfig    `koanf:"redis"`
	Qdrant  QdrantConfig   `koanf:"qdrant"`
	Cache   CacheConfig    `koanf:"cache"`
	Vector  VectorConfig   `koanf:"vector"`
	Logging logging.Config `koanf:"logging"`
}

// RedisConfig holds cache backend connection settings.
type RedisConfig struct {
	// URL is a redis:// or rediss:// connection URL.
	URL string `koanf:"url"`

	// ReadinessTimeout bounds the startup connectivity probe.
	ReadinessTimeout Duration `koanf:"readiness_timeout"`

	// DisableRetry turns off rueidis' automatic command retries.
	DisableRetry bool `koanf:"disable_retry"`
}

// QdrantConfig holds vector backend connection settings.
type QdrantConfig struct {
	// URL is the Qdrant endpoint, e.g. http://localhost:6334.
	// TLS is enabled when the scheme is https.
	URL string `koanf:"url"`

	// APIKey authenticates against Qdrant Cloud. Empty for local.
	APIKey string `koanf:"api_key"`

	// RequestTimeout is the per-call deadline.
	RequestTimeout Duration `koanf:"request_timeout"`

	// DialTimeout bounds connection establishment.
	DialTimeout Duration `koanf:"dial_timeout"`

	// MaxRetries is the retry budget for transient failures.
	MaxRetries int `koanf:"max_retries"`

	// MaxMessageSize is the gRPC message size limit in bytes.
	MaxMessageSize int `koanf:"max_message_size"`
}

// CacheConfig holds TenantCache tuning knobs.
type CacheConfig struct {
	// DefaultTTL applies when a set operation does not pass one.
	DefaultTTL Duration `koanf:"default_ttl"`

	// ScanCount is the COUNT hint for SCAN-based invalidation.
	ScanCount int `koanf:"scan_count"`
}

// VectorConfig holds TenantVectorStore tuning knobs.
type VectorConfig struct {
	// DefaultVectorSize is used when a collection is created lazily
	// and no explicit size is available.
	DefaultVectorSize uint64 `koanf:"default_vector_size"`

	// DefaultThreshold is the minimum similarity score for search hits.
	DefaultThreshold float32 `koanf:"default_threshold"`

	// ScrollLimit bounds stats scans over a tenant's points.
	ScrollLimit uint32 `koanf:"scroll_limit"`

	// MigrationBatchSize is the scroll/upsert batch size for migrations.
	MigrationBatchSize uint32 `koanf:"migration_batch_size"`
}

// NewDefaultConfig returns the built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Redis: RedisConfig{
			URL:              "redis://localhost:6379",
			ReadinessTimeout: Duration(5 * time.Second),
		},
		Qdrant: QdrantConfig{
			URL:            "http://localhost:6334",
			RequestTimeout: Duration(30 * time.Second),
			DialTimeout:    Duration(5 * time.Second),
			MaxRetries:     3,
			MaxMessageSize: 50 * 1024 * 1024,
		},
		Cache: CacheConfig{
			DefaultTTL: Duration(time.Hour),
			ScanCount:  100,
		},
		Vector: VectorConfig{
			DefaultVectorSize:  1536,
			DefaultThreshold:   0.7,
			ScrollLimit:        10000,
			MigrationBatchSize: 256,
		},
		Logging: *logging.NewDefaultConfig(),
	}
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if c.Redis.URL == "" {
		return fmt.Errorf("redis: url is required")
	}
	if _, err := url.Parse(c.Redis.URL); err != nil {
		return fmt.Errorf("redis: invalid url: %w", err)
	}
	if _, _, _, err := c.Qdrant.Endpoint(); err != nil {
		return fmt.Errorf("qdrant: %w", err)
	}
	if c.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("cache: default_ttl must be positive")
	}
	if c.Cache.ScanCount <= 0 {
		return fmt.Errorf("cache: scan_count must be positive")
	}
	if c.Vector.DefaultVectorSize == 0 {
		return fmt.Errorf("vector: default_vector_size must be positive")
	}
	if c.Vector.DefaultThreshold < 0 || c.Vector.DefaultThreshold > 1 {
		return fmt.Errorf("vector: default_threshold must be in [0,1]")
	}
	if c.Vector.MigrationBatchSize == 0 {
		return fmt.Errorf("vector: migration_batch_size must be positive")
	}
	return c.Logging.Validate()
}

// Endpoint parses the Qdrant URL into host, port and TLS flag.
func (q QdrantConfig) Endpoint() (host string, port int, useTLS bool, err error) {
	u, err := url.Parse(q.URL)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid url %q: %w", q.URL, err)
	}
	if u.Hostname() == "" {
		return "", 0, false, fmt.Errorf("invalid url %q: missing host", q.URL)
	}

	useTLS = u.Scheme == "https"

	port = 6334
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return "", 0, false, fmt.Errorf("invalid port in url %q", q.URL)
		}
	} else if useTLS {
		port = 443
	}

	return u.Hostname(), port, useTLS, nil
}
