package sessionkit

import "errors"

var (
	// ErrManagerNotReady is returned when a Manager method is called on a nil
	// or incompletely built Manager.
	ErrManagerNotReady = errors.New("manager not initialized")
	// ErrSessionNotFound is returned when a session record cannot be resolved
	// from either backend.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionCreationFailed is returned when neither the volatile store nor
	// the durable mirror accepted a new session record.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrStoreUnavailable indicates the volatile store could not be reached.
	// Callers must not conflate it with ErrSessionNotFound: an outage is not
	// a logout.
	ErrStoreUnavailable = errors.New("volatile store unavailable")
	// ErrMirrorUnavailable indicates the durable mirror could not be reached
	// while it was the active read path.
	ErrMirrorUnavailable = errors.New("durable mirror unavailable")
	// ErrSubjectRequired is returned when an operation is called with an
	// empty subject identifier.
	ErrSubjectRequired = errors.New("subject id required")
	// ErrTokenRequired is returned when an operation is called with an empty
	// session token.
	ErrTokenRequired = errors.New("session token required")
	// ErrRoleUnknown is returned by CheckPrivilegeChange when the subject's
	// current role cannot be resolved.
	ErrRoleUnknown = errors.New("current role not resolvable")
	// ErrRoleAtIssueUnknown is returned by CheckPrivilegeChange when the
	// issue-time role snapshot is missing from the durable mirror.
	ErrRoleAtIssueUnknown = errors.New("issue-time role snapshot missing")
)
