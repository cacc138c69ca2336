// Package sessionkit provides distributed session lifecycle management for
// multi-tenant web backends: a Redis-backed volatile session store, a durable
// record mirror for audit trails and degraded-mode fallback, and a Manager
// that enforces concurrent-session caps, revocation semantics, and
// privilege-drift detection.
//
// The package is designed for concurrent server workloads: Manager methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// sessionkit is the public surface. It exposes [Manager], [Builder], [Config],
// and value types (ValidationResult, PrivilegeCheck, AuditEvent, etc.). The
// volatile store lives in the session subpackage, the durable mirror behind
// the mirror.Mirror interface, and token generation under internal/.
//
// # What this package must NOT do
//
//   - Verify credentials. Callers authenticate the subject first; sessionkit
//     only manages the post-authentication session lifecycle.
//   - Evaluate permissions. It detects that a subject's role changed since
//     the session was issued, nothing more.
//   - Treat a volatile-store outage as a logout. Backend unavailability falls
//     back to the durable mirror with relaxed guarantees; it never presents
//     as "session absent".
//
// # Availability contract
//
// Validate and Refresh are the hot path: one Redis round trip each while the
// store is healthy. Mirror writes and audit emission are fire-and-forget and
// never fail the primary operation.
package sessionkit
