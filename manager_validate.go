package sessionkit

import (
	"context"

	"github.com/convopanel/sessionkit/internal"
)

// ValidateSession runs the full validation chain for (subjectID, token):
// presence, revocation, expiry, subject existence, tenant status. Checks
// short-circuit on the first failure and each failure carries its own
// [ReasonCode]. Every other session operation that needs a live record goes
// through this chain; it is never bypassed.
//
// Validation failures are values, not errors. The returned error is non-nil
// only when neither backend could be consulted or a collaborator lookup
// failed.
func (m *Manager) ValidateSession(ctx context.Context, subjectID, token string) (ValidationResult, error) {
	if m == nil {
		return ValidationResult{}, ErrManagerNotReady
	}

	start := m.now()
	res, err := m.validate(ctx, subjectID, token)
	if err != nil {
		return ValidationResult{}, err
	}

	if res.Valid {
		m.metricInc(MetricValidateSuccess)
		m.metrics.Observe(MetricValidateLatency, m.now().Sub(start))
		m.emitAudit(ctx, auditEventSessionValidated, true, subjectID, res.Record.TenantID, token, ReasonNone, nil)
	} else {
		m.metricInc(MetricValidateFailure)
	}

	return res, nil
}

func (m *Manager) validate(ctx context.Context, subjectID, token string) (ValidationResult, error) {
	if subjectID == "" || token == "" {
		return validationFailure(ReasonNotFound), nil
	}
	// A malformed token can never match a generated one; skip the round trip.
	if err := internal.ValidateTokenShape(token); err != nil {
		return validationFailure(ReasonNotFound), nil
	}

	rec, degraded, err := m.backend.fetch(ctx, subjectID, token)
	if err != nil {
		return ValidationResult{}, err
	}
	if rec == nil {
		return validationFailure(ReasonNotFound), nil
	}

	if rec.Revoked {
		return validationFailure(ReasonRevoked), nil
	}

	now := m.now()
	if !rec.ExpiresAt.After(now) {
		m.metricInc(MetricSessionExpired)
		m.emitAudit(ctx, auditEventSessionExpired, false, subjectID, rec.TenantID, token, ReasonExpired, nil)
		return validationFailure(ReasonExpired), nil
	}

	exists, err := m.identity.ResolveSubject(ctx, subjectID)
	if err != nil {
		return ValidationResult{}, err
	}
	if !exists {
		m.cleanupRevoke(ctx, subjectID, token, ReasonSubjectMissing)
		return validationFailure(ReasonSubjectMissing), nil
	}

	status, err := m.tenants.TenantStatus(ctx, rec.TenantID)
	if err != nil {
		return ValidationResult{}, err
	}
	if !status.Usable() {
		m.cleanupRevoke(ctx, subjectID, token, ReasonTenantInactive)
		return validationFailure(ReasonTenantInactive), nil
	}

	return ValidationResult{Valid: true, Record: rec, Degraded: degraded}, nil
}

// cleanupRevoke tears down a session whose subject or tenant is no longer
// valid. Best-effort: the validation verdict stands either way.
func (m *Manager) cleanupRevoke(ctx context.Context, subjectID, token string, reason ReasonCode) {
	if _, err := m.store.MarkRevoked(ctx, subjectID, token, m.cfg.Session.TombstoneTTL); err != nil {
		m.logger.Warn().Err(err).Str("subject_id", subjectID).
			Str("reason", reason.String()).Msg("cleanup revoke failed")
	}
	m.mirrorWrite("mark_revoked", m.mirror.MarkRevoked(ctx, token))

	m.emitAudit(ctx, auditEventSessionRevoked, true, subjectID, "", token, reason, nil)
}
