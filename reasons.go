package sessionkit

// ReasonCode is the closed set of validation failure causes. The zero value
// ReasonNone means the session validated successfully.
//
// Reason codes are internal vocabulary for audit and debugging. User-facing
// surfaces must render [ReasonCode.UserMessage] instead, which never
// distinguishes revoked from expired from never-existed.
type ReasonCode uint8

const (
	// ReasonNone means validation passed.
	ReasonNone ReasonCode = iota
	// ReasonNotFound means no record exists for the (subject, token) pair.
	ReasonNotFound
	// ReasonRevoked means the record exists but carries the revoked flag.
	ReasonRevoked
	// ReasonExpired means the record exists but its expiry has passed.
	ReasonExpired
	// ReasonSubjectMissing means the owning subject no longer resolves in the
	// identity collaborator.
	ReasonSubjectMissing
	// ReasonTenantInactive means the owning tenant is not in an active or
	// trial status.
	ReasonTenantInactive
)

func (r ReasonCode) String() string {
	switch r {
	case ReasonNone:
		return ""
	case ReasonNotFound:
		return "not found or expired"
	case ReasonRevoked:
		return "revoked"
	case ReasonExpired:
		return "expired"
	case ReasonSubjectMissing:
		return "user no longer exists"
	case ReasonTenantInactive:
		return "organization is not active"
	default:
		return "unknown"
	}
}

// UserMessage maps every failure to the same sign-in prompt so responses do
// not leak whether a token ever existed.
func (r ReasonCode) UserMessage() string {
	if r == ReasonNone {
		return ""
	}
	return "please sign in again"
}

// ValidationResult is returned by [Manager.ValidateSession] and
// [Manager.RefreshSession]. Failures are values, not errors: callers branch
// on Valid and Reason.
type ValidationResult struct {
	Valid  bool
	Reason ReasonCode

	// Record is set only when Valid is true.
	Record *SessionInfo

	// Degraded is true when the result was served from the durable mirror
	// because the volatile store was unreachable.
	Degraded bool
}

func validationFailure(reason ReasonCode) ValidationResult {
	return ValidationResult{Reason: reason}
}
