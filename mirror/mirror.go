// Package mirror implements the durable record mirror: best-effort,
// non-expiring persistence of session metadata for audit trails and for
// degraded-mode reads when the volatile store is unreachable.
package mirror

import (
	"context"
	"errors"
	"time"

	"github.com/convopanel/sessionkit/session"
)

// ErrNotFound is returned by read operations when no live row matches.
var ErrNotFound = errors.New("mirror record not found")

// Entry is one mirrored session row. It extends the volatile record with the
// issue-time role snapshot used for privilege-drift detection. Rows are
// retained past expiry for audit; archival is an external concern.
type Entry struct {
	ID             string
	SubjectID      string
	TenantID       string
	Token          string
	Device         session.Device
	RoleAtIssue    string
	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
	Revoked        bool
}

// Live reports whether the entry is neither revoked nor expired at t.
func (e *Entry) Live(t time.Time) bool {
	return e != nil && !e.Revoked && e.ExpiresAt.After(t)
}

// Mirror is the durable store contract. The Manager treats every write as
// fire-and-forget: implementations should return errors for logging, but a
// failed mirror write never fails the primary operation. Reads are trusted
// only after the Manager has independently determined the volatile store is
// down.
type Mirror interface {
	Insert(ctx context.Context, entry Entry) error
	UpdateActivity(ctx context.Context, token string, lastActivityAt, expiresAt time.Time) error
	MarkRevoked(ctx context.Context, token string) error
	FindActive(ctx context.Context, subjectID, token string) (*Entry, error)
	ListActiveForSubject(ctx context.Context, subjectID string) ([]*Entry, error)
	RoleAtIssue(ctx context.Context, token string) (string, error)
}

// NoOp discards writes and reports every read as not found. Useful when a
// deployment accepts losing degraded-mode fallback and audit mirroring.
type NoOp struct{}

func (NoOp) Insert(context.Context, Entry) error { return nil }

func (NoOp) UpdateActivity(context.Context, string, time.Time, time.Time) error { return nil }

func (NoOp) MarkRevoked(context.Context, string) error { return nil }

func (NoOp) FindActive(context.Context, string, string) (*Entry, error) {
	return nil, ErrNotFound
}

func (NoOp) ListActiveForSubject(context.Context, string) ([]*Entry, error) {
	return []*Entry{}, nil
}

func (NoOp) RoleAtIssue(context.Context, string) (string, error) {
	return "", ErrNotFound
}
