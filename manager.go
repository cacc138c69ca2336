package sessionkit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/convopanel/sessionkit/mirror"
	"github.com/convopanel/sessionkit/session"
)

// Manager orchestrates the session lifecycle. It is stateless apart from
// injected store handles: all durable state lives in the volatile store and
// the mirror, so one Manager serves any number of concurrent request
// goroutines.
//
// Per-token operations are serialized by the store's atomic upsert (last
// writer wins). There is no cross-operation lock: two concurrent refreshes of
// the same token may interleave, each producing a self-consistent
// (LastActivityAt, ExpiresAt) pair, and concurrent creates racing the
// concurrency-limit check can transiently exceed the cap. Both relaxations
// are accepted; see [SessionConfig.MaxConcurrent].
type Manager struct {
	cfg      Config
	store    *session.Store
	mirror   mirror.Mirror
	identity IdentityLookup
	tenants  TenantStatusLookup
	backend  *failoverBackend
	audit    *auditDispatcher
	metrics  *Metrics
	logger   zerolog.Logger

	now func() time.Time
}

// Close drains and stops the audit dispatcher. The store handles are owned by
// the caller and are not closed.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	if m.audit != nil {
		m.audit.Close()
	}
}

// Health probes the volatile store and reports whether the Manager would
// currently operate in degraded mode.
func (m *Manager) Health(ctx context.Context) HealthStatus {
	if m == nil {
		return HealthStatus{}
	}

	latency, err := m.store.Health(ctx)
	status := HealthStatus{
		StoreAvailable: err == nil,
		StoreLatency:   latency,
		Degraded:       err != nil,
	}
	if err != nil {
		m.logger.Warn().Err(err).Dur("latency", latency).Msg("volatile store health probe failed")
	}
	return status
}

// AuditDropped returns the number of audit events discarded because the
// dispatcher buffer was full.
func (m *Manager) AuditDropped() uint64 {
	if m == nil || m.audit == nil {
		return 0
	}
	return m.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all metrics.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return m.metrics.Snapshot()
}

func (m *Manager) metricInc(id MetricID) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Inc(id)
}

func (m *Manager) mirrorWrite(op string, err error) {
	if err == nil {
		return
	}
	m.metricInc(MetricMirrorWriteFailure)
	m.logger.Error().Err(err).Str("op", op).Msg("durable mirror write failed")
}
