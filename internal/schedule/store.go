package schedule

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("schedule: not found")

// Store is the read-only schedule lookup surface. Schedules are managed by
// the administrative layer.
type Store interface {
	ScheduleByID(ctx context.Context, id string) (Schedule, error)
}

// MemoryStore keeps schedules in a map. Tests and local development only.
type MemoryStore struct {
	mu        sync.RWMutex
	schedules map[string]Schedule
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{schedules: make(map[string]Schedule)}
}

func (m *MemoryStore) Put(s Schedule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[s.ID] = s
}

func (m *MemoryStore) ScheduleByID(ctx context.Context, id string) (Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schedules[id]
	if !ok {
		return Schedule{}, ErrNotFound
	}
	return s, nil
}

// PostgresStore reads schedules from a table with the week stored as jsonb.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) ScheduleByID(ctx context.Context, id string) (Schedule, error) {
	const q = `SELECT id, name, days FROM schedules WHERE id = $1`
	var out Schedule
	var days []byte
	err := s.db.QueryRowContext(ctx, q, id).Scan(&out.ID, &out.Name, &days)
	if errors.Is(err, sql.ErrNoRows) {
		return Schedule{}, ErrNotFound
	}
	if err != nil {
		return Schedule{}, err
	}
	if err := json.Unmarshal(days, &out.Days); err != nil {
		return Schedule{}, err
	}
	return out, nil
}
