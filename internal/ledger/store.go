package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidEvent = errors.New("ledger: invalid event")

	// ErrDuplicatePanelEvent is returned when an insert collides with an
	// existing row for the same (panel_id, created_at). Callers treat it as
	// an idempotent no-op, not a failure.
	ErrDuplicatePanelEvent = errors.New("ledger: duplicate panel event")
)

// LastQuery narrows the "most recent event" lookup.
type LastQuery struct {
	Scope Scope
	// Types restricts matching event types; empty means any.
	Types []EventType
	// AccessPointID narrows to one access point when set.
	AccessPointID string
	// PanelID narrows to one panel when set.
	PanelID string
	// Before bounds created_at (inclusive) when non-zero. Hardware pushes
	// may carry backdated timestamps, so sequence checks anchor on the
	// event's own time, not on wall clock.
	Before time.Time
}

// Store is the persistence contract for the event ledger.
//
// It MUST be append-only for event rows. There are no Update/Delete
// methods; the registration projection is the only mutable state and is
// maintained inside Append.
type Store interface {
	// Append inserts the event row and, for registration-owned events,
	// updates the registration's status history and open flag in the same
	// transaction. Returns ErrDuplicatePanelEvent when (panel_id,
	// created_at) already exists.
	Append(ctx context.Context, e Event) error

	Last(ctx context.Context, q LastQuery) (Event, bool, error)

	// ExistsPanelEvent reports whether a hardware event with this exact
	// panel and timestamp was already recorded.
	ExistsPanelEvent(ctx context.Context, panelID string, createdAt time.Time) (bool, error)

	// HasEntryBetween reports whether an entry event exists for scope in
	// [from, to], optionally narrowed to one panel.
	HasEntryBetween(ctx context.Context, scope Scope, panelID string, from, to time.Time) (bool, error)

	// ListBetween returns scope events in [from, to) ordered by created_at
	// ascending.
	ListBetween(ctx context.Context, scope Scope, from, to time.Time) ([]Event, error)
}
