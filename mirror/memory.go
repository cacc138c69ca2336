package mirror

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Mirror keyed by token. It backs development setups
// and tests; durability ends with the process.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemory returns an empty in-memory mirror.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*Entry)}
}

func (m *Memory) Insert(_ context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[entry.Token]; exists {
		return nil
	}
	m.entries[entry.Token] = &entry
	return nil
}

func (m *Memory) UpdateActivity(_ context.Context, token string, lastActivityAt, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[token]; ok && !e.Revoked {
		e.LastActivityAt = lastActivityAt
		e.ExpiresAt = expiresAt
	}
	return nil
}

func (m *Memory) MarkRevoked(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[token]; ok {
		e.Revoked = true
	}
	return nil
}

func (m *Memory) FindActive(_ context.Context, subjectID, token string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[token]
	if !ok || e.SubjectID != subjectID || !e.Live(time.Now()) {
		return nil, ErrNotFound
	}
	clone := *e
	return &clone, nil
}

func (m *Memory) ListActiveForSubject(_ context.Context, subjectID string) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var entries []*Entry
	for _, e := range m.entries {
		if e.SubjectID == subjectID && e.Live(now) {
			clone := *e
			entries = append(entries, &clone)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (m *Memory) RoleAtIssue(_ context.Context, token string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[token]
	if !ok {
		return "", ErrNotFound
	}
	return e.RoleAtIssue, nil
}
