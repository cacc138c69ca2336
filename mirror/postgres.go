package mirror

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/convopanel/sessionkit/session"
)

// Schema is the DDL for the session_records table. Deployments run it through
// their migration tooling; it is exported here so the table shape lives next
// to the queries that depend on it.
const Schema = `
CREATE TABLE IF NOT EXISTS session_records (
    id               UUID PRIMARY KEY,
    subject_id       TEXT NOT NULL,
    tenant_id        TEXT NOT NULL,
    token            TEXT NOT NULL UNIQUE,
    ip_address       TEXT NOT NULL DEFAULT '',
    user_agent       TEXT NOT NULL DEFAULT '',
    platform         TEXT NOT NULL DEFAULT '',
    browser          TEXT NOT NULL DEFAULT '',
    os               TEXT NOT NULL DEFAULT '',
    role_at_issue    TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL,
    last_activity_at TIMESTAMPTZ NOT NULL,
    expires_at       TIMESTAMPTZ NOT NULL,
    revoked          BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS session_records_subject_idx ON session_records (subject_id);
CREATE INDEX IF NOT EXISTS session_records_tenant_idx ON session_records (tenant_id, subject_id);
`

// Postgres is a Mirror backed by a pgx connection pool. It returns errors for
// database failures only; missing rows surface as ErrNotFound.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a mirror that persists session rows through the given
// pool. The pool is shared and not closed by the mirror.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Insert(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO session_records
			(id, subject_id, tenant_id, token, ip_address, user_agent, platform, browser, os,
			 role_at_issue, created_at, last_activity_at, expires_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (token) DO NOTHING`,
		entry.ID, entry.SubjectID, entry.TenantID, entry.Token,
		entry.Device.IP, entry.Device.UserAgent, entry.Device.Platform, entry.Device.Browser, entry.Device.OS,
		entry.RoleAtIssue, entry.CreatedAt, entry.LastActivityAt, entry.ExpiresAt, entry.Revoked,
	)
	return err
}

func (p *Postgres) UpdateActivity(ctx context.Context, token string, lastActivityAt, expiresAt time.Time) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE session_records
		SET last_activity_at = $2, expires_at = $3
		WHERE token = $1 AND NOT revoked`,
		token, lastActivityAt, expiresAt,
	)
	return err
}

func (p *Postgres) MarkRevoked(ctx context.Context, token string) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE session_records SET revoked = TRUE WHERE token = $1`,
		token,
	)
	return err
}

// FindActive returns the live row for (subjectID, token), or ErrNotFound when
// the row is missing, revoked, or expired.
func (p *Postgres) FindActive(ctx context.Context, subjectID, token string) (*Entry, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, subject_id, tenant_id, token, ip_address, user_agent, platform, browser, os,
		       role_at_issue, created_at, last_activity_at, expires_at, revoked
		FROM session_records
		WHERE subject_id = $1 AND token = $2 AND NOT revoked AND expires_at > now()`,
		subjectID, token,
	)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (p *Postgres) ListActiveForSubject(ctx context.Context, subjectID string) ([]*Entry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, subject_id, tenant_id, token, ip_address, user_agent, platform, browser, os,
		       role_at_issue, created_at, last_activity_at, expires_at, revoked
		FROM session_records
		WHERE subject_id = $1 AND NOT revoked AND expires_at > now()
		ORDER BY created_at`,
		subjectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// RoleAtIssue returns the issue-time role snapshot for a token regardless of
// the row's liveness: privilege checks run against the snapshot even while
// the caller is mid-validation.
func (p *Postgres) RoleAtIssue(ctx context.Context, token string) (string, error) {
	var role string
	err := p.pool.QueryRow(ctx,
		`SELECT role_at_issue FROM session_records WHERE token = $1`,
		token,
	).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return role, nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var d session.Device
	if err := row.Scan(
		&e.ID, &e.SubjectID, &e.TenantID, &e.Token,
		&d.IP, &d.UserAgent, &d.Platform, &d.Browser, &d.OS,
		&e.RoleAtIssue, &e.CreatedAt, &e.LastActivityAt, &e.ExpiresAt, &e.Revoked,
	); err != nil {
		return nil, err
	}
	e.Device = d
	return &e, nil
}
