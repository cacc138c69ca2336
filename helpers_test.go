package sessionkit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/convopanel/sessionkit/mirror"
)

type testIdentity struct {
	mu     sync.Mutex
	exists bool
	role   string
	err    error
}

func (i *testIdentity) ResolveSubject(context.Context, string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.exists, i.err
}

func (i *testIdentity) CurrentRole(context.Context, string) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.role, i.err
}

func (i *testIdentity) setRole(role string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.role = role
}

func (i *testIdentity) setExists(exists bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.exists = exists
}

type testTenants struct {
	mu     sync.Mutex
	status TenantStatus
}

func (t *testTenants) TenantStatus(context.Context, string) (TenantStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, nil
}

func (t *testTenants) setStatus(status TenantStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
}

// captureSink records every audit event it receives. Assertions must run
// after Manager.Close has drained the dispatcher.
type captureSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *captureSink) Emit(_ context.Context, event AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) byType(eventType string) []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AuditEvent
	for _, e := range s.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// testClock is a settable clock injected through the Manager's now hook.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Now().UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type managerFixture struct {
	manager  *Manager
	redis    *miniredis.Miniredis
	mirror   *mirror.Memory
	identity *testIdentity
	tenants  *testTenants
	sink     *captureSink
	clock    *testClock
	done     func()
}

func newManagerFixture(t *testing.T, mutate func(*Config)) *managerFixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := defaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	identity := &testIdentity{exists: true, role: "agent"}
	tenants := &testTenants{status: TenantActive}
	mem := mirror.NewMemory()
	sink := &captureSink{}

	manager, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithMirror(mem).
		WithIdentity(identity).
		WithTenants(tenants).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("build manager: %v", err)
	}

	clock := newTestClock()
	manager.now = clock.Now

	return &managerFixture{
		manager:  manager,
		redis:    mr,
		mirror:   mem,
		identity: identity,
		tenants:  tenants,
		sink:     sink,
		clock:    clock,
		done: func() {
			manager.Close()
			rdb.Close()
			mr.Close()
		},
	}
}

func (f *managerFixture) create(t *testing.T, subjectID, tenantID string) *SessionInfo {
	t.Helper()
	rec, err := f.manager.CreateSession(context.Background(), subjectID, tenantID, "agent", Device{})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return rec
}
