package hardware

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"
)

var ErrPanelNotFound = errors.New("hardware: panel not found")

// Panel is one provisioned access-control panel with its clock bookkeeping.
type Panel struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AccessPointID string `json:"access_point_id,omitempty"`
	Active        bool   `json:"active"`

	// ClockOffsetSeconds is the auto-detected whole-hour misconfiguration of
	// the panel clock; zero once means no offset has been detected yet.
	ClockOffsetSeconds    int64     `json:"clock_offset_seconds"`
	ClockAlertActive      bool      `json:"clock_alert_active"`
	ClockLastDriftSeconds int64     `json:"clock_last_drift_seconds"`
	ClockLastSampleAt     time.Time `json:"clock_last_sample_at,omitempty"`
}

// ClockSample is one drift observation taken on event receipt.
type ClockSample struct {
	DriftSeconds int64
	AlertActive  bool
	SampledAt    time.Time

	// OffsetSeconds is persisted only when OffsetDetected is set.
	OffsetSeconds  int64
	OffsetDetected bool
}

// PanelStore reads panels and records clock samples.
type PanelStore interface {
	PanelByID(ctx context.Context, id string) (Panel, error)
	UpdateClock(ctx context.Context, id string, sample ClockSample) error
}

// MemoryPanelStore keeps panels in a map. Tests and local development only.
type MemoryPanelStore struct {
	mu     sync.RWMutex
	panels map[string]Panel
}

func NewMemoryPanelStore() *MemoryPanelStore {
	return &MemoryPanelStore{panels: make(map[string]Panel)}
}

func (m *MemoryPanelStore) Put(p Panel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panels[p.ID] = p
}

func (m *MemoryPanelStore) PanelByID(ctx context.Context, id string) (Panel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.panels[id]
	if !ok {
		return Panel{}, ErrPanelNotFound
	}
	return p, nil
}

func (m *MemoryPanelStore) UpdateClock(ctx context.Context, id string, sample ClockSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.panels[id]
	if !ok {
		return ErrPanelNotFound
	}
	p.ClockAlertActive = sample.AlertActive
	p.ClockLastDriftSeconds = sample.DriftSeconds
	p.ClockLastSampleAt = sample.SampledAt
	if sample.OffsetDetected {
		p.ClockOffsetSeconds = sample.OffsetSeconds
	}
	m.panels[id] = p
	return nil
}

// PostgresPanelStore implements PanelStore over database/sql.
type PostgresPanelStore struct {
	db *sql.DB
}

func NewPostgresPanelStore(db *sql.DB) *PostgresPanelStore {
	return &PostgresPanelStore{db: db}
}

func (s *PostgresPanelStore) PanelByID(ctx context.Context, id string) (Panel, error) {
	const q = `
SELECT id, name, COALESCE(access_point_id, ''), active,
       clock_offset_seconds, clock_alert_active, clock_last_drift_seconds,
       COALESCE(clock_last_sample_at, 'epoch'::timestamptz)
FROM panels WHERE id = $1
`
	var p Panel
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.Name, &p.AccessPointID, &p.Active,
		&p.ClockOffsetSeconds, &p.ClockAlertActive, &p.ClockLastDriftSeconds,
		&p.ClockLastSampleAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Panel{}, ErrPanelNotFound
	}
	if err != nil {
		return Panel{}, err
	}
	return p, nil
}

func (s *PostgresPanelStore) UpdateClock(ctx context.Context, id string, sample ClockSample) error {
	const q = `
UPDATE panels
SET clock_alert_active = $2,
    clock_last_drift_seconds = $3,
    clock_last_sample_at = $4,
    clock_offset_seconds = CASE WHEN $5 THEN $6 ELSE clock_offset_seconds END
WHERE id = $1
`
	res, err := s.db.ExecContext(ctx, q, id,
		sample.AlertActive, sample.DriftSeconds, sample.SampledAt,
		sample.OffsetDetected, sample.OffsetSeconds,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPanelNotFound
	}
	return nil
}
