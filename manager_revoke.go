package sessionkit

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/convopanel/sessionkit/session"
)

// RevokeSession marks one session revoked. The volatile record becomes a
// bounded-TTL tombstone so "revoked" stays observable for a grace window, and
// the mirror row is flagged best-effort.
//
// Idempotent: revoking an already-revoked or already-gone token returns
// false with no error.
func (m *Manager) RevokeSession(ctx context.Context, subjectID, token string) (bool, error) {
	if m == nil {
		return false, ErrManagerNotReady
	}
	if subjectID == "" {
		return false, ErrSubjectRequired
	}
	if token == "" {
		return false, ErrTokenRequired
	}

	changed, err := m.store.MarkRevoked(ctx, subjectID, token, m.cfg.Session.TombstoneTTL)
	if err != nil {
		if !errors.Is(err, session.ErrUnavailable) {
			return false, err
		}
		// Degraded: the mirror flag is the only revocation record until the
		// store comes back, at which point the volatile copy has expired.
		m.metricInc(MetricStoreUnavailable)
		m.logger.Warn().Err(err).Str("subject_id", subjectID).
			Msg("volatile store unavailable during revoke")
		if err := m.mirror.MarkRevoked(ctx, token); err != nil {
			return false, errors.Join(ErrMirrorUnavailable, err)
		}
		changed = true
	} else {
		m.mirrorWrite("mark_revoked", m.mirror.MarkRevoked(ctx, token))
	}

	if changed {
		m.metricInc(MetricSessionRevoked)
		m.emitAudit(ctx, auditEventSessionRevoked, true, subjectID, "", token, ReasonNone, nil)
	}

	return changed, nil
}

// RevokeAllForSubject revokes every active session the subject holds,
// fanning out per-session revocations in parallel. Partial failure does not
// abort the batch; the returned count covers sessions actually revoked. One
// security_event audit record carries the count and the caller-supplied
// reason (for example "password_changed").
func (m *Manager) RevokeAllForSubject(ctx context.Context, subjectID, reason string) (int, error) {
	if m == nil {
		return 0, ErrManagerNotReady
	}
	if subjectID == "" {
		return 0, ErrSubjectRequired
	}

	records, degraded, err := m.backend.listActive(ctx, subjectID)
	if err != nil {
		return 0, err
	}

	var revoked atomic.Int64
	var wg sync.WaitGroup
	for _, rec := range records {
		wg.Add(1)
		go func(rec *session.Record) {
			defer wg.Done()

			if degraded {
				if err := m.mirror.MarkRevoked(ctx, rec.Token); err != nil {
					m.mirrorWrite("mark_revoked", err)
					return
				}
				revoked.Add(1)
				return
			}

			changed, err := m.store.MarkRevoked(ctx, subjectID, rec.Token, m.cfg.Session.TombstoneTTL)
			if err != nil {
				m.logger.Warn().Err(err).Str("subject_id", subjectID).
					Msg("revoke failed during bulk revocation")
				return
			}
			m.mirrorWrite("mark_revoked", m.mirror.MarkRevoked(ctx, rec.Token))
			if changed {
				revoked.Add(1)
			}
		}(rec)
	}
	wg.Wait()

	count := int(revoked.Load())
	m.metricInc(MetricRevokeAll)
	m.emitAudit(ctx, auditEventSecurityEvent, true, subjectID, "", "", ReasonNone, func() map[string]string {
		return map[string]string{
			"action":  "revoke_all_sessions",
			"reason":  reason,
			"revoked": strconv.Itoa(count),
		}
	})

	return count, nil
}
