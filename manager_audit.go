package sessionkit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	auditEventSessionCreated     = "session_created"
	auditEventSessionValidated   = "session_validated"
	auditEventSessionRefreshed   = "session_refreshed"
	auditEventSessionExpired     = "session_expired"
	auditEventSessionRevoked     = "session_revoked"
	auditEventSessionRegenerated = "session_regenerated"
	auditEventSessionEvicted     = "session_evicted"
	auditEventPrivilegeChanged   = "privilege_changed"
	auditEventSecurityEvent      = "security_event"
	auditEventDegradedMode       = "degraded_mode"
)

func (m *Manager) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subjectID string,
	tenantID string,
	token string,
	reason ReasonCode,
	metadataBuilder func() map[string]string,
) {
	if m == nil || m.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		SubjectID: subjectID,
		TenantID:  tenantID,
		Token:     token,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if reason != ReasonNone {
		event.Reason = reason.String()
	}

	m.audit.Emit(ctx, event)
}
