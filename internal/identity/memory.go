package identity

import (
	"context"
	"sync"
)

// MemoryStore keeps identities in maps. Tests and local development only.
type MemoryStore struct {
	mu            sync.RWMutex
	employees     map[string]Employee
	visitors      map[string]Visitor
	registrations map[string]Registration
	documents     map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		employees:     make(map[string]Employee),
		visitors:      make(map[string]Visitor),
		registrations: make(map[string]Registration),
		documents:     make(map[string][]string),
	}
}

func (m *MemoryStore) PutEmployee(e Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
}

func (m *MemoryStore) PutVisitor(v Visitor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visitors[v.ID] = v
}

func (m *MemoryStore) PutRegistration(r Registration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registrations[r.ID] = r
}

func (m *MemoryStore) PutApprovedDocuments(registrationID string, types []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[registrationID] = types
}

func (m *MemoryStore) EmployeeByID(ctx context.Context, id string) (Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return Employee{}, ErrNotFound
	}
	return e, nil
}

func (m *MemoryStore) EmployeeByCode(ctx context.Context, code int64) (Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.employees {
		if e.Code == code {
			return e, nil
		}
	}
	return Employee{}, ErrNotFound
}

func (m *MemoryStore) VisitorByID(ctx context.Context, id string) (Visitor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.visitors[id]
	if !ok {
		return Visitor{}, ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) VisitorByCode(ctx context.Context, code int64) (Visitor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.visitors {
		if v.Code == code {
			return v, nil
		}
	}
	return Visitor{}, ErrNotFound
}

func (m *MemoryStore) VisitorByCardCode(ctx context.Context, cardCode string) (Visitor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.visitors {
		if v.CardCode != "" && v.CardCode == cardCode {
			return v, nil
		}
	}
	return Visitor{}, ErrNotFound
}

func (m *MemoryStore) VisitorsWithDescriptors(ctx context.Context) ([]Visitor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Visitor
	for _, v := range m.visitors {
		if v.Active && len(v.Descriptor) > 0 {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *MemoryStore) RegistrationByID(ctx context.Context, id string) (Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.registrations[id]
	if !ok {
		return Registration{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryStore) RegistrationByCode(ctx context.Context, code string) (Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.registrations {
		if r.Code == code && r.Active {
			return r, nil
		}
	}
	return Registration{}, ErrNotFound
}

func (m *MemoryStore) ApplyProjection(ctx context.Context, registrationID, eventID string, status int, open bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.registrations[registrationID]
	if !ok {
		return ErrNotFound
	}
	r.StatusHistory = append(r.StatusHistory, eventID)
	r.Status = status
	r.Open = open
	m.registrations[registrationID] = r
	return nil
}

func (m *MemoryStore) ApprovedDocumentTypes(ctx context.Context, registrationID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.documents[registrationID], nil
}
