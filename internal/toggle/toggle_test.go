package toggle

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"access-platform/internal/ledger"
)

func newTestLedger(t *testing.T) *ledger.Service {
	t.Helper()
	return ledger.NewService(ledger.NewMemoryStore(), nil, slog.Default())
}

func TestNextTypeAlternates(t *testing.T) {
	ctx := context.Background()
	svc := newTestLedger(t)
	engine := NewEngine(svc)
	scope := ledger.VisitorScope("vis-1")

	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	want := []ledger.EventType{ledger.TypeEntry, ledger.TypeExit, ledger.TypeEntry, ledger.TypeExit}
	for i, expected := range want {
		got, err := engine.NextType(ctx, scope, "")
		if err != nil {
			t.Fatalf("NextType %d: %v", i, err)
		}
		if got != expected {
			t.Fatalf("scan %d type = %d, want %d", i, got, expected)
		}
		_, err = svc.Append(ctx, ledger.Event{
			VisitorID: "vis-1",
			Type:      got,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
}

func TestNextTypeScopedToAccessPoint(t *testing.T) {
	ctx := context.Background()
	svc := newTestLedger(t)
	engine := NewEngine(svc)
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	// Registration entered at ap-1.
	_, err := svc.Append(ctx, ledger.Event{
		RegistrationID: "reg-1",
		AccessPointID:  "ap-1",
		Type:           ledger.TypeEntry,
		CreatedAt:      base,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	// At ap-1 the next toggle is an exit; at ap-2 history is empty so it is
	// an entry.
	got, err := engine.NextType(ctx, ledger.RegistrationScope("reg-1"), "ap-1")
	if err != nil {
		t.Fatalf("NextType ap-1: %v", err)
	}
	if got != ledger.TypeExit {
		t.Errorf("ap-1 next = %d, want exit", got)
	}

	got, err = engine.NextType(ctx, ledger.RegistrationScope("reg-1"), "ap-2")
	if err != nil {
		t.Fatalf("NextType ap-2: %v", err)
	}
	if got != ledger.TypeEntry {
		t.Errorf("ap-2 next = %d, want entry", got)
	}
}

func TestNextTypeIgnoresNonToggleEvents(t *testing.T) {
	ctx := context.Background()
	svc := newTestLedger(t)
	engine := NewEngine(svc)
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	seed := []ledger.Event{
		{RegistrationID: "reg-1", Type: ledger.TypeEntry, CreatedAt: base},
		{RegistrationID: "reg-1", Type: ledger.TypeApproved, CreatedAt: base.Add(time.Hour)},
		{RegistrationID: "reg-1", Type: ledger.TypeRejected, Comment: "denied", CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, e := range seed {
		if _, err := svc.Append(ctx, e); err != nil {
			t.Fatalf("seed Append: %v", err)
		}
	}

	got, err := engine.NextType(ctx, ledger.RegistrationScope("reg-1"), "")
	if err != nil {
		t.Fatalf("NextType: %v", err)
	}
	if got != ledger.TypeExit {
		t.Errorf("next = %d, want exit (lifecycle rows must not reset alternation)", got)
	}
}

func TestMapHint(t *testing.T) {
	cases := []struct {
		hint int
		want ledger.EventType
		ok   bool
	}{
		{1, ledger.TypeEntry, true},
		{2, ledger.TypeEntry, true},
		{3, ledger.TypeEntry, true},
		{4, ledger.TypeExit, true},
		{5, ledger.TypeExit, true},
		{6, ledger.TypeExit, true},
		{7, ledger.TypeAmbiguousToggle, true},
		{0, 0, false},
		{8, 0, false},
		{-1, 0, false},
	}
	for _, tc := range cases {
		got, ok := MapHint(tc.hint)
		if ok != tc.ok || got != tc.want {
			t.Errorf("MapHint(%d) = (%d, %v), want (%d, %v)", tc.hint, got, ok, tc.want, tc.ok)
		}
	}
}
