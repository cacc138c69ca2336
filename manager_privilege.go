package sessionkit

import (
	"context"
	"errors"

	"github.com/convopanel/sessionkit/mirror"
)

// CheckPrivilegeChange compares the role snapshotted when the session was
// issued against the subject's current role. Any inequality requires
// regeneration: there is no notion of a safe role change, a downgrade forces
// a new session exactly like an upgrade.
func (m *Manager) CheckPrivilegeChange(ctx context.Context, subjectID, token string) (PrivilegeCheck, error) {
	if m == nil {
		return PrivilegeCheck{}, ErrManagerNotReady
	}
	if subjectID == "" {
		return PrivilegeCheck{}, ErrSubjectRequired
	}
	if token == "" {
		return PrivilegeCheck{}, ErrTokenRequired
	}

	oldRole, err := m.roleAtIssue(ctx, subjectID, token)
	if err != nil {
		return PrivilegeCheck{}, err
	}

	newRole, err := m.identity.CurrentRole(ctx, subjectID)
	if err != nil {
		return PrivilegeCheck{}, err
	}
	if newRole == "" {
		return PrivilegeCheck{}, ErrRoleUnknown
	}

	check := PrivilegeCheck{
		OldRole: oldRole,
		NewRole: newRole,
	}
	if oldRole != newRole {
		check.Changed = true
		check.RequiresRegeneration = true

		m.metricInc(MetricPrivilegeDrift)
		m.emitAudit(ctx, auditEventPrivilegeChanged, true, subjectID, "", token, ReasonNone, func() map[string]string {
			return map[string]string{"old_role": oldRole, "new_role": newRole}
		})
	}

	return check, nil
}

// roleAtIssue reads the issue-time snapshot, preferring the mirror (its copy
// is authoritative) and falling back to the volatile record.
func (m *Manager) roleAtIssue(ctx context.Context, subjectID, token string) (string, error) {
	role, err := m.mirror.RoleAtIssue(ctx, token)
	if err == nil && role != "" {
		return role, nil
	}
	if err != nil && !errors.Is(err, mirror.ErrNotFound) {
		m.logger.Warn().Err(err).Msg("mirror role lookup failed, using volatile snapshot")
	}

	rec, _, fetchErr := m.backend.fetch(ctx, subjectID, token)
	if fetchErr != nil {
		return "", fetchErr
	}
	if rec == nil || rec.RoleAtIssue == "" {
		return "", ErrRoleAtIssueUnknown
	}
	return rec.RoleAtIssue, nil
}

// RegenerateSession replaces a session after a privilege change: the old
// token is revoked and a new session is issued for the same subject, tenant,
// and device with the subject's current role as the fresh snapshot.
//
// Callers propagate the new token to the client. In-flight requests still
// carrying the old token are rejected once their next validation runs;
// the cutoff is bounded by the tombstone TTL, not instantaneous.
func (m *Manager) RegenerateSession(ctx context.Context, subjectID, oldToken string) (*SessionInfo, error) {
	if m == nil {
		return nil, ErrManagerNotReady
	}
	if subjectID == "" {
		return nil, ErrSubjectRequired
	}
	if oldToken == "" {
		return nil, ErrTokenRequired
	}

	rec, _, err := m.backend.fetch(ctx, subjectID, oldToken)
	if err != nil {
		return nil, err
	}
	if rec == nil || !rec.Live(m.now()) {
		return nil, ErrSessionNotFound
	}

	currentRole, err := m.identity.CurrentRole(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if currentRole == "" {
		return nil, ErrRoleUnknown
	}

	if _, err := m.RevokeSession(ctx, subjectID, oldToken); err != nil {
		return nil, err
	}

	newRec, err := m.CreateSession(ctx, subjectID, rec.TenantID, currentRole, rec.Device)
	if err != nil {
		return nil, err
	}

	m.metricInc(MetricSessionRegenerated)
	m.emitAudit(ctx, auditEventSessionRegenerated, true, subjectID, rec.TenantID, newRec.Token, ReasonNone, func() map[string]string {
		return map[string]string{"old_token": oldToken, "role_at_issue": currentRole}
	})

	return newRec, nil
}
