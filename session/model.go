package session

import "time"

// Device captures the client context observed when a session was created.
// Set once at creation, never mutated afterwards.
type Device struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Platform  string `json:"platform,omitempty"`
	Browser   string `json:"browser,omitempty"`
	OS        string `json:"os,omitempty"`
}

// Record is the volatile-store representation of one authenticated client
// context. Token is the Redis lookup key, not a bearer credential format:
// it carries no claims and is never parsed.
//
// SubjectID, TenantID, Token, and Device are immutable for the record's
// lifetime. LastActivityAt and ExpiresAt move together on every refresh;
// Revoked is monotonic (false to true, never back).
type Record struct {
	SubjectID string `json:"subject_id"`
	TenantID  string `json:"tenant_id"`
	Token     string `json:"token"`
	Device    Device `json:"device"`

	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`

	Revoked bool `json:"revoked"`

	// RoleAtIssue is the subject's role snapshotted at creation or
	// regeneration. The durable mirror is the authoritative holder; it is
	// carried here too so degraded-mode reads keep it.
	RoleAtIssue string `json:"role_at_issue,omitempty"`
}

// Live reports whether the record is neither revoked nor expired at t.
func (r *Record) Live(t time.Time) bool {
	return r != nil && !r.Revoked && r.ExpiresAt.After(t)
}
