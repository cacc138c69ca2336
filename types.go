package sessionkit

import (
	"context"
	"time"

	"github.com/convopanel/sessionkit/session"
)

// Device is the client context captured at session creation.
type Device = session.Device

// SessionInfo is the session record shape returned by Manager operations.
type SessionInfo = session.Record

// TenantStatus represents the billing/lifecycle state of a tenant
// organization as reported by the tenant collaborator.
type TenantStatus uint8

const (
	// TenantActive is a fully provisioned, paying tenant.
	TenantActive TenantStatus = iota
	// TenantTrial is a tenant inside its evaluation window. Sessions validate
	// the same as for active tenants.
	TenantTrial
	// TenantPastDue is a tenant with failed billing; sessions stop validating.
	TenantPastDue
	// TenantSuspended is an administratively suspended tenant.
	TenantSuspended
	// TenantCanceled is a tenant that terminated its subscription.
	TenantCanceled
)

// Usable reports whether sessions belonging to the tenant may validate.
func (s TenantStatus) Usable() bool {
	return s == TenantActive || s == TenantTrial
}

func (s TenantStatus) String() string {
	switch s {
	case TenantActive:
		return "active"
	case TenantTrial:
		return "trial"
	case TenantPastDue:
		return "past_due"
	case TenantSuspended:
		return "suspended"
	case TenantCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// IdentityLookup is the external identity collaborator. Implementations
// typically wrap the platform's user record store; sessionkit only asks
// whether a subject still exists and what role it holds now.
type IdentityLookup interface {
	ResolveSubject(ctx context.Context, subjectID string) (bool, error)
	CurrentRole(ctx context.Context, subjectID string) (string, error)
}

// TenantStatusLookup is the external tenant collaborator.
type TenantStatusLookup interface {
	TenantStatus(ctx context.Context, tenantID string) (TenantStatus, error)
}

// PrivilegeCheck is returned by [Manager.CheckPrivilegeChange]. Any drift
// between the issue-time role and the current role requires regeneration;
// there is no "safe" role change.
type PrivilegeCheck struct {
	Changed              bool
	OldRole              string
	NewRole              string
	RequiresRegeneration bool
}

// HealthStatus is returned by [Manager.Health].
type HealthStatus struct {
	StoreAvailable bool
	StoreLatency   time.Duration
	Degraded       bool
}
