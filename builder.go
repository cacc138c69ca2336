package sessionkit

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/convopanel/sessionkit/mirror"
	"github.com/convopanel/sessionkit/session"
)

// Builder assembles a [Manager]. Construction is allocation-only: no I/O
// happens until the first Manager method call.
//
// The Manager is constructor-injected on purpose: there is no package-level
// singleton, and callers that need a process-wide instance guard their own
// initialization with sync.Once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	mirror    mirror.Mirror
	identity  IdentityLookup
	tenants   TenantStatusLookup
	auditSink AuditSink
	logger    *zerolog.Logger

	built bool
}

// New returns a Builder pre-loaded with defaults (30 minute timeout, cap of
// 5 concurrent sessions per subject, 1 hour revocation tombstones).
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the volatile store client. The client is shared with the
// caller and never closed by sessionkit.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithMirror sets the durable record mirror. When omitted, [mirror.NoOp] is
// used: audit mirroring and degraded-mode fallback are lost.
func (b *Builder) WithMirror(m mirror.Mirror) *Builder {
	b.mirror = m
	return b
}

// WithIdentity sets the external identity collaborator.
func (b *Builder) WithIdentity(lookup IdentityLookup) *Builder {
	b.identity = lookup
	return b
}

// WithTenants sets the external tenant status collaborator.
func (b *Builder) WithTenants(lookup TenantStatusLookup) *Builder {
	b.tenants = lookup
	return b
}

// WithAuditSink sets the audit event destination. Defaults to [NoOpSink].
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger for best-effort failure reporting.
// Defaults to a disabled logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and dependency set and returns a ready
// Manager. A Builder can be used once.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.identity == nil {
		return nil, errors.New("identity lookup required")
	}
	if b.tenants == nil {
		return nil, errors.New("tenant status lookup required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	mir := b.mirror
	if mir == nil {
		mir = mirror.NoOp{}
		logger.Warn().Msg("no durable mirror configured, degraded-mode fallback disabled")
	}

	store := session.NewStore(b.redis, b.config.Redis.KeyPrefix)
	metrics := NewMetrics(b.config.Metrics)

	m := &Manager{
		cfg:      b.config,
		store:    store,
		mirror:   mir,
		identity: b.identity,
		tenants:  b.tenants,
		backend: &failoverBackend{
			store:   store,
			mirror:  mir,
			logger:  logger,
			metrics: metrics,
		},
		audit:   newAuditDispatcher(b.config.Audit, b.auditSink),
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}

	b.built = true
	return m, nil
}
