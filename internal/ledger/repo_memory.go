package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ProjectFunc applies a registration status projection after an event insert.
// The memory store calls it inline; the Postgres store performs the same
// update in SQL inside the insert transaction.
type ProjectFunc func(ctx context.Context, registrationID, eventID string, t EventType, open bool) error

// MemoryStore is a simple in-memory append-only store useful for tests.
// It is not intended for production use.
type MemoryStore struct {
	mu      sync.Mutex
	events  []Event
	project ProjectFunc
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// WithProjector attaches the registration projection hook.
func (m *MemoryStore) WithProjector(fn ProjectFunc) *MemoryStore {
	m.project = fn
	return m
}

func (m *MemoryStore) Append(ctx context.Context, e Event) error {
	m.mu.Lock()
	if e.PanelID != "" {
		for _, old := range m.events {
			if old.PanelID == e.PanelID && old.CreatedAt.Equal(e.CreatedAt) {
				m.mu.Unlock()
				return ErrDuplicatePanelEvent
			}
		}
	}
	m.events = append(m.events, e)
	project := m.project
	m.mu.Unlock()

	if e.RegistrationID != "" && project != nil {
		return project(ctx, e.RegistrationID, e.ID, e.Type, !e.Type.closes())
	}
	return nil
}

func (m *MemoryStore) Last(ctx context.Context, q LastQuery) (Event, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best Event
	var found bool
	for _, e := range m.events {
		if !matchesScope(e, q.Scope) {
			continue
		}
		if len(q.Types) > 0 && !containsType(q.Types, e.Type) {
			continue
		}
		if q.AccessPointID != "" && e.AccessPointID != q.AccessPointID {
			continue
		}
		if q.PanelID != "" && e.PanelID != q.PanelID {
			continue
		}
		if !q.Before.IsZero() && e.CreatedAt.After(q.Before) {
			continue
		}
		if !found || e.CreatedAt.After(best.CreatedAt) {
			best = e
			found = true
		}
	}
	return best, found, nil
}

func (m *MemoryStore) ExistsPanelEvent(ctx context.Context, panelID string, createdAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.PanelID == panelID && e.CreatedAt.Equal(createdAt) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) HasEntryBetween(ctx context.Context, scope Scope, panelID string, from, to time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.Type != TypeEntry || !matchesScope(e, scope) {
			continue
		}
		if panelID != "" && e.PanelID != panelID {
			continue
		}
		if e.CreatedAt.Before(from) || e.CreatedAt.After(to) {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (m *MemoryStore) ListBetween(ctx context.Context, scope Scope, from, to time.Time) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if !matchesScope(e, scope) {
			continue
		}
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Events returns a copy of all rows; tests only.
func (m *MemoryStore) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

func matchesScope(e Event, s Scope) bool {
	switch {
	case s.RegistrationID != "":
		return e.RegistrationID == s.RegistrationID
	case s.EmployeeID != "":
		return e.EmployeeID == s.EmployeeID
	case s.VisitorID != "":
		return e.VisitorID == s.VisitorID
	default:
		return false
	}
}

func containsType(types []EventType, t EventType) bool {
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}
