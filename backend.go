package sessionkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/convopanel/sessionkit/mirror"
	"github.com/convopanel/sessionkit/session"
)

// failoverBackend is the single read abstraction over the two stores: it
// tries the volatile primary and falls back to the durable mirror only when
// the primary is unreachable. All degraded-mode branching lives here so the
// Manager's business logic never tests store availability inline.
type failoverBackend struct {
	store   *session.Store
	mirror  mirror.Mirror
	logger  zerolog.Logger
	metrics *Metrics
}

// fetch resolves a record. A nil record with a nil error means absent; the
// degraded flag reports which backend answered. An error is returned only
// when neither backend could be consulted.
func (b *failoverBackend) fetch(ctx context.Context, subjectID, token string) (*session.Record, bool, error) {
	rec, err := b.store.Get(ctx, subjectID, token)
	if err == nil {
		return rec, false, nil
	}
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if !errors.Is(err, session.ErrUnavailable) {
		return nil, false, err
	}

	b.noteOutage(err)

	entry, err := b.mirror.FindActive(ctx, subjectID, token)
	if err != nil {
		if errors.Is(err, mirror.ErrNotFound) {
			return nil, true, nil
		}
		return nil, true, fmt.Errorf("%w: %v", ErrMirrorUnavailable, err)
	}
	return entryToRecord(entry), true, nil
}

// listActive resolves all live records for a subject, with the same
// primary-then-fallback semantics as fetch.
func (b *failoverBackend) listActive(ctx context.Context, subjectID string) ([]*session.Record, bool, error) {
	records, err := b.store.ListForSubject(ctx, subjectID)
	if err == nil {
		return records, false, nil
	}
	if !errors.Is(err, session.ErrUnavailable) {
		return nil, false, err
	}

	b.noteOutage(err)

	entries, err := b.mirror.ListActiveForSubject(ctx, subjectID)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrMirrorUnavailable, err)
	}

	records = make([]*session.Record, 0, len(entries))
	for _, entry := range entries {
		records = append(records, entryToRecord(entry))
	}
	return records, true, nil
}

func (b *failoverBackend) noteOutage(err error) {
	b.metrics.Inc(MetricStoreUnavailable)
	b.logger.Warn().Err(err).Msg("volatile store unreachable, falling back to durable mirror")
}

func entryToRecord(e *mirror.Entry) *session.Record {
	if e == nil {
		return nil
	}
	return &session.Record{
		SubjectID:      e.SubjectID,
		TenantID:       e.TenantID,
		Token:          e.Token,
		Device:         e.Device,
		CreatedAt:      e.CreatedAt,
		LastActivityAt: e.LastActivityAt,
		ExpiresAt:      e.ExpiresAt,
		Revoked:        e.Revoked,
		RoleAtIssue:    e.RoleAtIssue,
	}
}

func recordToEntry(r *session.Record) mirror.Entry {
	return mirror.Entry{
		SubjectID:      r.SubjectID,
		TenantID:       r.TenantID,
		Token:          r.Token,
		Device:         r.Device,
		RoleAtIssue:    r.RoleAtIssue,
		CreatedAt:      r.CreatedAt,
		LastActivityAt: r.LastActivityAt,
		ExpiresAt:      r.ExpiresAt,
		Revoked:        r.Revoked,
	}
}
