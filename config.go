package sessionkit

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config defines sessionkit behavior. Instances are configured during
// initialization and treated as immutable after [Builder.Build].
type Config struct {
	Redis   RedisConfig
	Session SessionConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
REDIS CONFIG
====================================
*/

// RedisConfig carries the volatile store connection surface. Addr and
// Password are only used by [ConfigFromEnv] consumers that let sessionkit
// construct the client; Builder callers usually inject their own client and
// leave these empty.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetime and concurrency policy.
type SessionConfig struct {
	// Timeout is the inactivity window. ExpiresAt is always
	// LastActivityAt + Timeout; refreshing recomputes both.
	Timeout time.Duration

	// MaxConcurrent caps non-revoked, non-expired sessions per subject.
	// Enforcement is a soft cap: concurrent creates racing the count check
	// can transiently exceed it (no distributed lock by design).
	MaxConcurrent int

	// TombstoneTTL bounds how long a revoked record stays observable before
	// the volatile store drops it.
	TombstoneTTL time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

const (
	defaultTimeout       = 30 * time.Minute
	defaultMaxConcurrent = 5
	defaultTombstoneTTL  = time.Hour
	defaultKeyPrefix     = "sk"
	defaultAuditBuffer   = 256
)

func defaultConfig() Config {
	return Config{
		Redis: RedisConfig{
			KeyPrefix: defaultKeyPrefix,
		},
		Session: SessionConfig{
			Timeout:       defaultTimeout,
			MaxConcurrent: defaultMaxConcurrent,
			TombstoneTTL:  defaultTombstoneTTL,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: defaultAuditBuffer,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the Manager cannot run with.
func (c Config) Validate() error {
	if c.Session.Timeout <= 0 {
		return errors.New("session timeout must be positive")
	}
	if c.Session.MaxConcurrent <= 0 {
		return errors.New("max concurrent sessions must be positive")
	}
	if c.Session.TombstoneTTL <= 0 {
		return errors.New("tombstone ttl must be positive")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive when audit is enabled")
	}
	return nil
}

// ConfigFromEnv builds a Config from SESSIONKIT_* environment variables,
// loading a .env file first when one exists. Unset variables keep their
// defaults.
//
//	SESSIONKIT_REDIS_ADDR               volatile store endpoint
//	SESSIONKIT_REDIS_PASSWORD           volatile store credential
//	SESSIONKIT_REDIS_DB                 redis database number
//	SESSIONKIT_KEY_PREFIX               redis key namespace
//	SESSIONKIT_SESSION_TIMEOUT_MINUTES  inactivity window (default 30)
//	SESSIONKIT_MAX_CONCURRENT_SESSIONS  per-subject cap (default 5)
//	SESSIONKIT_TOMBSTONE_TTL_MINUTES    revoked-marker retention (default 60)
func ConfigFromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	cfg.Redis.Addr = os.Getenv("SESSIONKIT_REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("SESSIONKIT_REDIS_PASSWORD")

	if v := os.Getenv("SESSIONKIT_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, errors.New("SESSIONKIT_REDIS_DB must be an integer")
		}
		cfg.Redis.DB = db
	}
	if v := os.Getenv("SESSIONKIT_KEY_PREFIX"); v != "" {
		cfg.Redis.KeyPrefix = v
	}
	if v := os.Getenv("SESSIONKIT_SESSION_TIMEOUT_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return Config{}, errors.New("SESSIONKIT_SESSION_TIMEOUT_MINUTES must be a positive integer")
		}
		cfg.Session.Timeout = time.Duration(minutes) * time.Minute
	}
	if v := os.Getenv("SESSIONKIT_MAX_CONCURRENT_SESSIONS"); v != "" {
		max, err := strconv.Atoi(v)
		if err != nil || max <= 0 {
			return Config{}, errors.New("SESSIONKIT_MAX_CONCURRENT_SESSIONS must be a positive integer")
		}
		cfg.Session.MaxConcurrent = max
	}
	if v := os.Getenv("SESSIONKIT_TOMBSTONE_TTL_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return Config{}, errors.New("SESSIONKIT_TOMBSTONE_TTL_MINUTES must be a positive integer")
		}
		cfg.Session.TombstoneTTL = time.Duration(minutes) * time.Minute
	}

	return cfg, nil
}
