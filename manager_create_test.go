package sessionkit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateSessionIssuesOpaqueToken(t *testing.T) {
	f := newManagerFixture(t, nil)
	defer f.done()
	ctx := context.Background()

	rec := f.create(t, "u-1", "t-1")
	if rec.Token == "" {
		t.Fatal("token must be set")
	}
	if rec.SubjectID != "u-1" || rec.TenantID != "t-1" {
		t.Fatalf("identity mismatch: %+v", rec)
	}
	if rec.RoleAtIssue != "agent" {
		t.Fatalf("role snapshot missing, got %q", rec.RoleAtIssue)
	}
	if !rec.ExpiresAt.Equal(rec.LastActivityAt.Add(30 * time.Minute)) {
		t.Fatalf("expiry must be last activity plus timeout: %+v", rec)
	}

	second := f.create(t, "u-1", "t-1")
	if second.Token == rec.Token {
		t.Fatal("tokens must be unique per session")
	}

	res, err := f.manager.ValidateSession(ctx, "u-1", rec.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !res.Valid {
		t.Fatalf("fresh session should validate, reason=%v", res.Reason)
	}
	if res.Degraded {
		t.Fatal("healthy store must not report degraded")
	}
}

func TestCreateSessionRequiresSubject(t *testing.T) {
	f := newManagerFixture(t, nil)
	defer f.done()

	_, err := f.manager.CreateSession(context.Background(), "", "t-1", "agent", Device{})
	if !errors.Is(err, ErrSubjectRequired) {
		t.Fatalf("expected ErrSubjectRequired, got %v", err)
	}
}

func TestCreateSessionMirrorsDurably(t *testing.T) {
	f := newManagerFixture(t, nil)
	defer f.done()
	ctx := context.Background()

	rec := f.create(t, "u-1", "t-1")

	entry, err := f.mirror.FindActive(ctx, "u-1", rec.Token)
	if err != nil {
		t.Fatalf("mirror lookup: %v", err)
	}
	if entry.RoleAtIssue != "agent" {
		t.Fatalf("mirror must carry role snapshot, got %q", entry.RoleAtIssue)
	}
}

func TestConcurrencyCapEvictsOldestFirst(t *testing.T) {
	f := newManagerFixture(t, nil)
	defer f.done()
	ctx := context.Background()

	tokens := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		rec := f.create(t, "u-1", "t-1")
		tokens = append(tokens, rec.Token)
		f.clock.Advance(time.Second)
	}

	// Sixth create displaced the first.
	res, err := f.manager.ValidateSession(ctx, "u-1", tokens[0])
	if err != nil {
		t.Fatalf("validate evicted: %v", err)
	}
	if res.Valid || res.Reason != ReasonNotFound {
		t.Fatalf("oldest session should be evicted, got valid=%v reason=%v", res.Valid, res.Reason)
	}

	for _, token := range tokens[1:] {
		res, err := f.manager.ValidateSession(ctx, "u-1", token)
		if err != nil {
			t.Fatalf("validate survivor: %v", err)
		}
		if !res.Valid {
			t.Fatalf("session %s should survive, reason=%v", token, res.Reason)
		}
	}

	f.manager.Close()
	evicted := f.sink.byType("session_evicted")
	if len(evicted) != 1 {
		t.Fatalf("expected 1 eviction audit event, got %d", len(evicted))
	}
	if evicted[0].Token != tokens[0] {
		t.Fatalf("eviction event names wrong token: %s", evicted[0].Token)
	}
}

func TestConcurrencyCapIgnoresDeadSessions(t *testing.T) {
	f := newManagerFixture(t, func(cfg *Config) {
		cfg.Session.MaxConcurrent = 2
	})
	defer f.done()
	ctx := context.Background()

	first := f.create(t, "u-1", "t-1")
	f.clock.Advance(time.Second)
	second := f.create(t, "u-1", "t-1")
	f.clock.Advance(time.Second)

	if _, err := f.manager.RevokeSession(ctx, "u-1", first.Token); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	// The revoked slot is free; this create must not evict the second.
	f.create(t, "u-1", "t-1")

	res, err := f.manager.ValidateSession(ctx, "u-1", second.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !res.Valid {
		t.Fatalf("second session should survive, reason=%v", res.Reason)
	}
}

func TestCreateSessionDegradedMode(t *testing.T) {
	f := newManagerFixture(t, nil)
	defer f.done()
	ctx := context.Background()

	f.redis.Close()

	rec, err := f.manager.CreateSession(ctx, "u-1", "t-1", "agent", Device{IP: "198.51.100.4"})
	if err != nil {
		t.Fatalf("degraded create should succeed: %v", err)
	}

	// Mirror holds the record.
	entry, err := f.mirror.FindActive(ctx, "u-1", rec.Token)
	if err != nil {
		t.Fatalf("mirror lookup: %v", err)
	}
	if entry.Device.IP != "198.51.100.4" {
		t.Fatalf("device not mirrored: %+v", entry.Device)
	}

	// Validation is served from the mirror and flagged degraded.
	res, err := f.manager.ValidateSession(ctx, "u-1", rec.Token)
	if err != nil {
		t.Fatalf("validate degraded: %v", err)
	}
	if !res.Valid {
		t.Fatalf("degraded session should validate, reason=%v", res.Reason)
	}
	if !res.Degraded {
		t.Fatal("result must be flagged degraded")
	}

	snap := f.manager.MetricsSnapshot()
	if snap.Counters[MetricSessionCreatedDegraded] == 0 {
		t.Fatal("degraded create counter not incremented")
	}
	if snap.Counters[MetricStoreUnavailable] == 0 {
		t.Fatal("store unavailable counter not incremented")
	}

	f.manager.Close()
	if len(f.sink.byType("degraded_mode")) == 0 {
		t.Fatal("expected degraded_mode audit event")
	}
}

func TestCreateSessionDeviceFromContext(t *testing.T) {
	f := newManagerFixture(t, nil)
	defer f.done()

	ctx := WithClientIP(context.Background(), "192.0.2.7")
	ctx = WithUserAgent(ctx, "ctx-agent")

	rec, err := f.manager.CreateSession(ctx, "u-1", "t-1", "agent", Device{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Device.IP != "192.0.2.7" || rec.Device.UserAgent != "ctx-agent" {
		t.Fatalf("device not filled from context: %+v", rec.Device)
	}

	// Explicit device wins over context.
	rec, err = f.manager.CreateSession(ctx, "u-1", "t-1", "agent", Device{IP: "203.0.113.1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Device.IP != "203.0.113.1" {
		t.Fatalf("explicit device IP overridden: %+v", rec.Device)
	}
}

func TestNilManagerOperations(t *testing.T) {
	var m *Manager
	ctx := context.Background()

	if _, err := m.CreateSession(ctx, "u", "t", "r", Device{}); !errors.Is(err, ErrManagerNotReady) {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.ValidateSession(ctx, "u", "tok"); !errors.Is(err, ErrManagerNotReady) {
		t.Fatalf("validate: %v", err)
	}
	if _, err := m.RevokeSession(ctx, "u", "tok"); !errors.Is(err, ErrManagerNotReady) {
		t.Fatalf("revoke: %v", err)
	}
	m.Close()
	if got := m.AuditDropped(); got != 0 {
		t.Fatalf("nil manager dropped count: %d", got)
	}
}
