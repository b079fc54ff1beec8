package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Notifier receives ids of committed presence events. Implementations must
// not block; a full queue drops the notification, never the event.
type Notifier interface {
	Enqueue(eventID string) bool
}

// Service is the single write path for ledger events.
//
// Invariants:
// - Every accepted or rejected attempt produces exactly one event row.
// - Registration projection updates ride in the same transaction as the
//   event insert (the store enforces this).
// - The new-event notification is best-effort and never delays the caller.
type Service struct {
	store  Store
	notify Notifier
	log    *slog.Logger
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(store Store, notify Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, notify: notify, log: log, clock: time.Now}
}

// WithClock overrides the service clock; tests only.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Append validates, completes, and persists one event, then enqueues the
// new-event notification for presence types.
func (s *Service) Append(ctx context.Context, e Event) (string, error) {
	if !e.Type.IsValid() {
		return "", ErrInvalidEvent
	}
	// Rejections may lack a subject (unreadable or unknown credential);
	// everything else must belong to someone.
	if e.Scope().IsZero() && e.Type != TypeRejected && e.Comment == "" {
		return "", ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}

	if err := s.store.Append(ctx, e); err != nil {
		return "", err
	}

	if e.Type.IsPresence() && s.notify != nil {
		if !s.notify.Enqueue(e.ID) {
			s.log.Warn("notify queue full, notification dropped", "event_id", e.ID)
		}
	}
	return e.ID, nil
}

// AppendRejection records a rejected attempt with the given comment. The
// rejection itself is the business outcome; failures here are real errors.
func (s *Service) AppendRejection(ctx context.Context, scope Scope, channel DeviceChannel, rawCode, comment, createdBy string) (string, error) {
	return s.Append(ctx, Event{
		EmployeeID:     scope.EmployeeID,
		VisitorID:      scope.VisitorID,
		RegistrationID: scope.RegistrationID,
		Type:           TypeRejected,
		Channel:        channel,
		RawCode:        rawCode,
		Comment:        comment,
		CreatedBy:      createdBy,
	})
}

// Last exposes the store's read path for the toggle engine and reconciler.
func (s *Service) Last(ctx context.Context, q LastQuery) (Event, bool, error) {
	return s.store.Last(ctx, q)
}

func (s *Service) ExistsPanelEvent(ctx context.Context, panelID string, createdAt time.Time) (bool, error) {
	return s.store.ExistsPanelEvent(ctx, panelID, createdAt)
}

func (s *Service) HasEntryBetween(ctx context.Context, scope Scope, panelID string, from, to time.Time) (bool, error) {
	return s.store.HasEntryBetween(ctx, scope, panelID, from, to)
}

func (s *Service) ListBetween(ctx context.Context, scope Scope, from, to time.Time) ([]Event, error) {
	return s.store.ListBetween(ctx, scope, from, to)
}
