package ledger

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

type stubNotifier struct {
	ids  []string
	full bool
}

func (s *stubNotifier) Enqueue(id string) bool {
	if s.full {
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAppendFillsIDAndTimestamp(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc := NewService(store, nil, slog.Default()).WithClock(fixedClock(now))

	id, err := svc.Append(context.Background(), Event{
		VisitorID: "vis-1",
		Type:      TypeEntry,
		Channel:   ChannelKiosk,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated event id")
	}

	events := store.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID != id {
		t.Errorf("stored id = %q, want %q", events[0].ID, id)
	}
	if !events[0].CreatedAt.Equal(now) {
		t.Errorf("created_at = %v, want %v", events[0].CreatedAt, now)
	}
}

func TestAppendRejectsUnknownType(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, slog.Default())

	_, err := svc.Append(context.Background(), Event{VisitorID: "vis-1", Type: EventType(99)})
	if !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestAppendRequiresSubjectForPresence(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, slog.Default())

	_, err := svc.Append(context.Background(), Event{Type: TypeEntry})
	if !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for subjectless entry, got %v", err)
	}
}

func TestAppendRejectionWithoutSubject(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil, slog.Default())

	id, err := svc.AppendRejection(context.Background(), Scope{}, ChannelPanel, "999999", "code not mapped", "")
	if err != nil {
		t.Fatalf("AppendRejection: %v", err)
	}
	events := store.Events()
	if len(events) != 1 || events[0].ID != id {
		t.Fatalf("rejection not stored")
	}
	if events[0].Type != TypeRejected {
		t.Errorf("type = %d, want %d", events[0].Type, TypeRejected)
	}
	if events[0].RawCode != "999999" {
		t.Errorf("raw_code = %q, want 999999", events[0].RawCode)
	}
}

func TestAppendDuplicatePanelEvent(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil, slog.Default())
	at := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	first := Event{VisitorID: "vis-1", Type: TypeEntry, Channel: ChannelPanel, PanelID: "panel-1", CreatedAt: at}
	if _, err := svc.Append(context.Background(), first); err != nil {
		t.Fatalf("first Append: %v", err)
	}
	_, err := svc.Append(context.Background(), Event{
		VisitorID: "vis-2", Type: TypeExit, Channel: ChannelPanel, PanelID: "panel-1", CreatedAt: at,
	})
	if !errors.Is(err, ErrDuplicatePanelEvent) {
		t.Fatalf("expected ErrDuplicatePanelEvent, got %v", err)
	}
	if got := len(store.Events()); got != 1 {
		t.Errorf("expected 1 stored event, got %d", got)
	}
}

func TestAppendNotifiesPresenceOnly(t *testing.T) {
	notify := &stubNotifier{}
	svc := NewService(NewMemoryStore(), notify, slog.Default())

	entryID, err := svc.Append(context.Background(), Event{VisitorID: "vis-1", Type: TypeEntry})
	if err != nil {
		t.Fatalf("Append entry: %v", err)
	}
	if _, err := svc.Append(context.Background(), Event{RegistrationID: "reg-1", Type: TypeApproved}); err != nil {
		t.Fatalf("Append approved: %v", err)
	}

	if len(notify.ids) != 1 || notify.ids[0] != entryID {
		t.Errorf("notified ids = %v, want [%s]", notify.ids, entryID)
	}
}

func TestAppendSurvivesFullNotifyQueue(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, &stubNotifier{full: true}, slog.Default())

	if _, err := svc.Append(context.Background(), Event{VisitorID: "vis-1", Type: TypeExit}); err != nil {
		t.Fatalf("Append with full queue: %v", err)
	}
	if got := len(store.Events()); got != 1 {
		t.Errorf("event should persist even when notification drops, got %d rows", got)
	}
}

func TestAppendRunsRegistrationProjection(t *testing.T) {
	type call struct {
		regID string
		typ   EventType
		open  bool
	}
	var calls []call
	store := NewMemoryStore().WithProjector(func(ctx context.Context, registrationID, eventID string, typ EventType, open bool) error {
		calls = append(calls, call{registrationID, typ, open})
		return nil
	})
	svc := NewService(store, nil, slog.Default())

	if _, err := svc.Append(context.Background(), Event{RegistrationID: "reg-1", Type: TypeEntry}); err != nil {
		t.Fatalf("Append entry: %v", err)
	}
	if _, err := svc.Append(context.Background(), Event{RegistrationID: "reg-1", Type: TypeFinished}); err != nil {
		t.Fatalf("Append finished: %v", err)
	}

	want := []call{{"reg-1", TypeEntry, true}, {"reg-1", TypeFinished, false}}
	if len(calls) != len(want) {
		t.Fatalf("projection calls = %d, want %d", len(calls), len(want))
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, calls[i], want[i])
		}
	}
}

func TestLastHonorsFiltersAndOrder(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil, slog.Default())
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	seed := []Event{
		{RegistrationID: "reg-1", AccessPointID: "ap-1", Type: TypeEntry, CreatedAt: base},
		{RegistrationID: "reg-1", AccessPointID: "ap-1", Type: TypeExit, CreatedAt: base.Add(time.Hour)},
		{RegistrationID: "reg-1", AccessPointID: "ap-2", Type: TypeEntry, CreatedAt: base.Add(2 * time.Hour)},
		{RegistrationID: "reg-1", Type: TypeApproved, CreatedAt: base.Add(3 * time.Hour)},
	}
	for _, e := range seed {
		if _, err := svc.Append(ctx, e); err != nil {
			t.Fatalf("seed Append: %v", err)
		}
	}

	// Latest toggle at ap-1 is the exit, even though a newer entry exists at ap-2.
	got, ok, err := svc.Last(ctx, LastQuery{
		Scope:         RegistrationScope("reg-1"),
		Types:         ToggleTypes,
		AccessPointID: "ap-1",
	})
	if err != nil || !ok {
		t.Fatalf("Last: ok=%v err=%v", ok, err)
	}
	if got.Type != TypeExit {
		t.Errorf("last toggle at ap-1 = %d, want %d", got.Type, TypeExit)
	}

	// Without the access-point filter the ap-2 entry wins.
	got, ok, err = svc.Last(ctx, LastQuery{Scope: RegistrationScope("reg-1"), Types: ToggleTypes})
	if err != nil || !ok {
		t.Fatalf("Last: ok=%v err=%v", ok, err)
	}
	if got.Type != TypeEntry || got.AccessPointID != "ap-2" {
		t.Errorf("unscoped last toggle = %+v, want ap-2 entry", got)
	}

	// Before bounds the lookup for backdated hardware sequence checks.
	got, ok, err = svc.Last(ctx, LastQuery{
		Scope:  RegistrationScope("reg-1"),
		Types:  ToggleTypes,
		Before: base.Add(30 * time.Minute),
	})
	if err != nil || !ok {
		t.Fatalf("Last before: ok=%v err=%v", ok, err)
	}
	if got.Type != TypeEntry || !got.CreatedAt.Equal(base) {
		t.Errorf("bounded last = %+v, want first entry", got)
	}

	_, ok, err = svc.Last(ctx, LastQuery{Scope: VisitorScope("vis-none"), Types: ToggleTypes})
	if err != nil {
		t.Fatalf("Last miss: %v", err)
	}
	if ok {
		t.Error("expected no match for unknown visitor")
	}
}

func TestListBetweenAscending(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil, slog.Default())
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	for _, off := range []time.Duration{5 * time.Hour, time.Hour, 3 * time.Hour} {
		if _, err := svc.Append(ctx, Event{EmployeeID: "emp-1", Type: TypeEntry, CreatedAt: base.Add(off)}); err != nil {
			t.Fatalf("seed Append: %v", err)
		}
	}

	got, err := svc.ListBetween(ctx, EmployeeScope("emp-1"), base, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ListBetween: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.Before(got[i-1].CreatedAt) {
			t.Fatalf("events out of order at %d", i)
		}
	}
}
