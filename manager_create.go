package sessionkit

import (
	"context"
	"errors"
	"sort"

	"github.com/convopanel/sessionkit/internal"
	"github.com/convopanel/sessionkit/session"
)

// CreateSession issues a new session for an already-authenticated subject.
// The token is high-entropy and never derived from caller input.
//
// When the subject is at its concurrency cap, the oldest session by CreatedAt
// is evicted synchronously before the new record is persisted. Eviction is
// FIFO, not LRU: predictable "oldest login drops first" semantics over
// recency heuristics.
//
// When the volatile store is unreachable the session is created mirror-only:
// the concurrency cap is not enforced for that call and the record becomes
// retrievable through degraded-mode reads. Availability of the sign-in path
// wins over strict limit enforcement during an outage.
func (m *Manager) CreateSession(ctx context.Context, subjectID, tenantID, role string, device Device) (*SessionInfo, error) {
	if m == nil {
		return nil, ErrManagerNotReady
	}
	if subjectID == "" {
		return nil, ErrSubjectRequired
	}

	token, err := internal.NewSessionToken()
	if err != nil {
		return nil, err
	}

	if device.IP == "" {
		device.IP = clientIPFromContext(ctx)
	}
	if device.UserAgent == "" {
		device.UserAgent = userAgentFromContext(ctx)
	}

	now := m.now().UTC()
	rec := &session.Record{
		SubjectID:      subjectID,
		TenantID:       tenantID,
		Token:          token,
		Device:         device,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(m.cfg.Session.Timeout),
		RoleAtIssue:    role,
	}

	active, err := m.store.ListForSubject(ctx, subjectID)
	if err != nil {
		if errors.Is(err, session.ErrUnavailable) {
			return m.createDegraded(ctx, rec, err)
		}
		return nil, err
	}

	if err := m.evictAtCap(ctx, subjectID, active); err != nil {
		if errors.Is(err, session.ErrUnavailable) {
			return m.createDegraded(ctx, rec, err)
		}
		return nil, err
	}

	if err := m.store.Put(ctx, rec, m.cfg.Session.Timeout); err != nil {
		if errors.Is(err, session.ErrUnavailable) {
			return m.createDegraded(ctx, rec, err)
		}
		return nil, err
	}

	m.mirrorWrite("insert", m.mirror.Insert(ctx, recordToEntry(rec)))

	m.metricInc(MetricSessionCreated)
	m.emitAudit(ctx, auditEventSessionCreated, true, subjectID, tenantID, token, ReasonNone, func() map[string]string {
		return map[string]string{"role_at_issue": role}
	})

	return rec, nil
}

// evictAtCap removes oldest-first until the subject has room for one more
// session. The count-check-and-evict sequence is not wrapped in a distributed
// lock, so concurrent creates can transiently exceed the cap.
func (m *Manager) evictAtCap(ctx context.Context, subjectID string, active []*session.Record) error {
	now := m.now()
	live := active[:0]
	for _, rec := range active {
		if rec.Live(now) {
			live = append(live, rec)
		}
	}
	if len(live) < m.cfg.Session.MaxConcurrent {
		return nil
	}

	sort.Slice(live, func(i, j int) bool {
		return live[i].CreatedAt.Before(live[j].CreatedAt)
	})

	evict := live[:len(live)-m.cfg.Session.MaxConcurrent+1]
	for _, victim := range evict {
		if err := m.store.Delete(ctx, subjectID, victim.Token); err != nil {
			return err
		}
		m.mirrorWrite("mark_revoked", m.mirror.MarkRevoked(ctx, victim.Token))

		m.metricInc(MetricSessionEvicted)
		m.emitAudit(ctx, auditEventSessionEvicted, true, subjectID, victim.TenantID, victim.Token, ReasonNone, func() map[string]string {
			return map[string]string{"created_at": victim.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")}
		})
	}

	return nil
}

// createDegraded persists a new session to the mirror only.
func (m *Manager) createDegraded(ctx context.Context, rec *session.Record, cause error) (*SessionInfo, error) {
	m.metricInc(MetricStoreUnavailable)
	m.logger.Warn().Err(cause).Str("subject_id", rec.SubjectID).
		Msg("volatile store unavailable, creating session in degraded mode")

	if err := m.mirror.Insert(ctx, recordToEntry(rec)); err != nil {
		m.mirrorWrite("insert", err)
		return nil, ErrSessionCreationFailed
	}

	m.metricInc(MetricSessionCreatedDegraded)
	m.emitAudit(ctx, auditEventDegradedMode, true, rec.SubjectID, rec.TenantID, rec.Token, ReasonNone, func() map[string]string {
		return map[string]string{"operation": "create_session"}
	})
	m.emitAudit(ctx, auditEventSessionCreated, true, rec.SubjectID, rec.TenantID, rec.Token, ReasonNone, func() map[string]string {
		return map[string]string{"role_at_issue": rec.RoleAtIssue, "degraded": "true"}
	})

	return rec, nil
}
