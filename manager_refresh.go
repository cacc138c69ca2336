package sessionkit

import (
	"context"
	"errors"

	"github.com/convopanel/sessionkit/session"
)

// RefreshSession bumps a session's activity window: LastActivityAt moves to
// now, ExpiresAt to now plus the configured timeout, and the volatile TTL is
// refreshed to match. Validation runs first; on failure the result is
// propagated without any mutation.
//
// Intended to be called on every authenticated request. Repeated calls within
// the same instant are idempotent, and two concurrent refreshes of one token
// at worst supersede each other's TTL extension by a few milliseconds.
func (m *Manager) RefreshSession(ctx context.Context, subjectID, token string) (ValidationResult, error) {
	if m == nil {
		return ValidationResult{}, ErrManagerNotReady
	}

	res, err := m.ValidateSession(ctx, subjectID, token)
	if err != nil || !res.Valid {
		return res, err
	}

	rec := res.Record
	now := m.now().UTC()
	rec.LastActivityAt = now
	rec.ExpiresAt = now.Add(m.cfg.Session.Timeout)

	if !res.Degraded {
		if err := m.store.Touch(ctx, rec, m.cfg.Session.Timeout); err != nil {
			if !errors.Is(err, session.ErrUnavailable) {
				return ValidationResult{}, err
			}
			// Store dropped out mid-refresh; the mirror update below still
			// lands and the session stays valid through degraded reads.
			m.metricInc(MetricStoreUnavailable)
			m.logger.Warn().Err(err).Str("subject_id", subjectID).
				Msg("volatile store unavailable during refresh")
			res.Degraded = true
		}
	}

	m.mirrorWrite("update_activity", m.mirror.UpdateActivity(ctx, token, rec.LastActivityAt, rec.ExpiresAt))

	m.metricInc(MetricSessionRefreshed)
	m.emitAudit(ctx, auditEventSessionRefreshed, true, subjectID, rec.TenantID, token, ReasonNone, nil)

	return res, nil
}
