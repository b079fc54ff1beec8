package authz

import (
	"context"
	"fmt"
	"testing"
	"time"

	"access-platform/internal/identity"
	"access-platform/internal/ledger"
	"access-platform/internal/schedule"
)

var testNow = time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC) // a Monday

func testGate(cfg Config, store *identity.MemoryStore, schedules schedule.Store) *Gate {
	if schedules == nil {
		schedules = schedule.NewMemoryStore()
	}
	var docs identity.ApprovedDocumentsProvider
	if store != nil {
		docs = store
	}
	return NewGate(schedules, docs, cfg).WithClock(func() time.Time { return testNow })
}

func validRegistration() identity.Registration {
	return identity.Registration{
		ID:        "reg-1",
		Code:      "VSTA1B2C3D4E5F6G7H8",
		Kind:      identity.KindScheduled,
		VisitorID: "vis-1",
		Name:      "Laura Medina",
		Active:    true,
		Status:    int(ledger.TypeApproved),
		EntryAt:   testNow.Add(-5 * time.Minute),
		ExitAt:    testNow.Add(2 * time.Hour),
		AccessPoints: []identity.AccessGrant{
			{AccessPointID: "ap-1", Mode: identity.ModeBoth},
		},
		IdentificationType:   "INE",
		IdentificationNumber: "XEXX010101",
		ProfileImage:         "profile.jpg",
		IdentFrontImage:      "front.jpg",
		IdentBackImage:       "back.jpg",
	}
}

func defaultCfg() Config {
	return Config{
		EntryTolerance: 15 * time.Minute,
		ExitTolerance:  15 * time.Minute,
		CancelLapse:    time.Hour,
	}
}

func checkRegistration(t *testing.T, g *Gate, in RegistrationInput) Decision {
	t.Helper()
	d, err := g.CheckRegistration(context.Background(), in)
	if err != nil {
		t.Fatalf("CheckRegistration: %v", err)
	}
	return d
}

func TestRegistrationChainOrder(t *testing.T) {
	store := identity.NewMemoryStore()
	store.PutApprovedDocuments("reg-1", []string{"INE"})
	g := testGate(defaultCfg(), store, nil)

	cases := []struct {
		name    string
		mutate  func(in *RegistrationInput)
		comment string
	}{
		{"not found", func(in *RegistrationInput) {
			in.Found = false
		}, MsgRegistrationNotFound},
		{"inactive", func(in *RegistrationInput) {
			in.Registration.Active = false
		}, MsgRegistrationInactive},
		{"no access points", func(in *RegistrationInput) {
			in.Registration.AccessPoints = nil
		}, MsgNoAccessPoints},
		{"wrong access point", func(in *RegistrationInput) {
			in.AccessPointID = "ap-9"
		}, MsgWrongAccessPoint},
		{"pending approval", func(in *RegistrationInput) {
			in.Registration.Status = int(ledger.TypePendingApproval)
		}, MsgVisitNotAuthorized},
		{"rejected", func(in *RegistrationInput) {
			in.Registration.Status = int(ledger.TypeVisitRejected)
		}, MsgVisitRejected},
		{"cancelled", func(in *RegistrationInput) {
			in.Registration.Status = int(ledger.TypeCancelledAuto)
		}, MsgVisitCancelled},
		{"finished", func(in *RegistrationInput) {
			in.Registration.Status = int(ledger.TypeFinished)
		}, MsgVisitFinished},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := RegistrationInput{
				Registration:  validRegistration(),
				Found:         true,
				AccessPointID: "ap-1",
				Mode:          identity.ModeManual,
			}
			tc.mutate(&in)
			d := checkRegistration(t, g, in)
			if d.Allowed {
				t.Fatal("expected denial")
			}
			if d.Comment != tc.comment {
				t.Errorf("comment = %q, want %q", d.Comment, tc.comment)
			}
		})
	}
}

func TestRegistrationInactiveWinsOverMissingAccessPoints(t *testing.T) {
	g := testGate(defaultCfg(), nil, nil)
	reg := validRegistration()
	reg.Active = false
	reg.AccessPoints = nil

	d := checkRegistration(t, g, RegistrationInput{Registration: reg, Found: true, AccessPointID: "ap-1", Mode: identity.ModeManual})
	if d.Comment != MsgRegistrationInactive {
		t.Errorf("comment = %q, want the earlier check's message", d.Comment)
	}
}

func TestRegistrationEntryWindow(t *testing.T) {
	store := identity.NewMemoryStore()
	store.PutApprovedDocuments("reg-1", []string{"INE"})
	g := testGate(defaultCfg(), store, nil)

	base := RegistrationInput{Found: true, AccessPointID: "ap-1", Mode: identity.ModeManual}

	// Exactly at entry - tolerance is accepted.
	in := base
	in.Registration = validRegistration()
	in.Registration.EntryAt = testNow.Add(15 * time.Minute)
	if d := checkRegistration(t, g, in); !d.Allowed {
		t.Errorf("boundary scan denied: %q", d.Comment)
	}

	// One minute earlier than the window is rejected as too early.
	in.Registration.EntryAt = testNow.Add(16 * time.Minute)
	d := checkRegistration(t, g, in)
	if d.Allowed {
		t.Fatal("expected too-early denial")
	}
	if want := fmt.Sprintf(msgTooEarlyFmt, "Laura Medina"); d.Comment != want {
		t.Errorf("comment = %q, want %q", d.Comment, want)
	}

	// Past entry + tolerance with no recorded exit is expired.
	in.Registration.EntryAt = testNow.Add(-16 * time.Minute)
	d = checkRegistration(t, g, in)
	if d.Allowed {
		t.Fatal("expected expired denial")
	}
	if want := fmt.Sprintf(msgExpiredFmt, "Laura Medina"); d.Comment != want {
		t.Errorf("comment = %q, want %q", d.Comment, want)
	}

	// A visitor who already exited can re-enter past the window.
	in.HasExited = true
	in.Registration.Status = int(ledger.TypeExit)
	if d := checkRegistration(t, g, in); !d.Allowed {
		t.Errorf("re-entry after exit denied: %q", d.Comment)
	}
}

func TestRegistrationOpenKindSkipsWindow(t *testing.T) {
	store := identity.NewMemoryStore()
	g := testGate(defaultCfg(), store, nil)

	in := RegistrationInput{Found: true, AccessPointID: "ap-1", Mode: identity.ModeManual}
	in.Registration = validRegistration()
	in.Registration.Kind = identity.KindOpen
	in.Registration.EntryAt = testNow.Add(-48 * time.Hour)

	d := checkRegistration(t, g, in)
	if !d.Allowed {
		t.Errorf("open registration denied: %q", d.Comment)
	}
	// Open registrations skip completeness gating too.
	if !d.CanAccess {
		t.Error("open registration should not be completeness-gated")
	}
}

func TestRegistrationExitWindowConcluded(t *testing.T) {
	g := testGate(defaultCfg(), nil, nil)

	in := RegistrationInput{Found: true, AccessPointID: "ap-1", Mode: identity.ModeManual}
	in.Registration = validRegistration()
	in.Registration.Kind = identity.KindOpen
	in.Registration.Status = int(ledger.TypeAwaitingIdent)
	in.Registration.ExitAt = testNow.Add(-2 * time.Hour) // past exit + 15m + 1h

	d := checkRegistration(t, g, in)
	if d.Allowed {
		t.Fatal("expected concluded denial")
	}
	if d.Comment != MsgScheduleConcluded {
		t.Errorf("comment = %q, want %q", d.Comment, MsgScheduleConcluded)
	}
}

func TestRegistrationIncompleteProfileConditionalAccess(t *testing.T) {
	store := identity.NewMemoryStore()
	store.PutApprovedDocuments("reg-1", []string{"INE"})
	g := testGate(defaultCfg(), store, nil)

	in := RegistrationInput{Found: true, AccessPointID: "ap-1", Mode: identity.ModeManual}
	in.Registration = validRegistration()
	in.Registration.IdentFrontImage = ""

	d := checkRegistration(t, g, in)
	if !d.Allowed {
		t.Fatalf("incomplete profile must not be rejected outright: %q", d.Comment)
	}
	if d.CanAccess {
		t.Error("expected CanAccess=false for incomplete profile")
	}
}

func TestRegistrationUnapprovedDocuments(t *testing.T) {
	store := identity.NewMemoryStore()
	store.PutApprovedDocuments("reg-1", []string{"PASAPORTE"})
	g := testGate(defaultCfg(), store, nil)

	in := RegistrationInput{Found: true, AccessPointID: "ap-1", Mode: identity.ModeManual}
	in.Registration = validRegistration() // identification type INE

	d := checkRegistration(t, g, in)
	if !d.Allowed || d.CanAccess {
		t.Errorf("decision = %+v, want allowed with CanAccess=false", d)
	}
}

func TestEmployeeChecks(t *testing.T) {
	schedules := schedule.NewMemoryStore()
	var monday schedule.Schedule
	monday.ID = "sch-1"
	monday.Days[int(time.Monday)] = schedule.Day{
		Entry:  schedule.ClockTime{Hour: 9},
		Exit:   schedule.ClockTime{Hour: 18},
		Active: true,
	}
	schedules.Put(monday)

	cfg := defaultCfg()
	cfg.ValidateSchedule = true
	cfg.RequireCheckAuthorization = true
	g := testGate(cfg, nil, schedules)
	ctx := context.Background()

	d, err := g.CheckEmployee(ctx, identity.Employee{}, false, schedule.CheckEntry)
	if err != nil {
		t.Fatalf("CheckEmployee: %v", err)
	}
	if d.Allowed || d.Comment != MsgEmployeeNotFound {
		t.Errorf("decision = %+v, want not-found denial", d)
	}

	d, err = g.CheckEmployee(ctx, identity.Employee{ID: "emp-1"}, true, schedule.CheckEntry)
	if err != nil {
		t.Fatalf("CheckEmployee: %v", err)
	}
	if d.Allowed || d.Comment != MsgEmployeeInactive {
		t.Errorf("decision = %+v, want inactive denial", d)
	}

	// Active, schedule assigned, scanned 10:00 Monday with 09:00 entry:
	// allowed with a late-entry advisory.
	emp := identity.Employee{ID: "emp-1", Active: true, ScheduleID: "sch-1"}
	d, err = g.CheckEmployee(ctx, emp, true, schedule.CheckEntry)
	if err != nil {
		t.Fatalf("CheckEmployee: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("expected allowed, got %+v", d)
	}
	if d.Comment != schedule.CommentLateEntry {
		t.Errorf("comment = %q, want %q", d.Comment, schedule.CommentLateEntry)
	}
	if !d.RequireAuthorization {
		t.Error("expected RequireAuthorization from org config")
	}
}

func TestEmployeeNoScheduleIsUnrestricted(t *testing.T) {
	cfg := defaultCfg()
	cfg.ValidateSchedule = true
	g := testGate(cfg, nil, nil)

	emp := identity.Employee{ID: "emp-1", Active: true}
	d, err := g.CheckEmployee(context.Background(), emp, true, schedule.CheckEntry)
	if err != nil {
		t.Fatalf("CheckEmployee: %v", err)
	}
	if !d.Allowed || d.Comment != "" {
		t.Errorf("decision = %+v, want unconditional pass", d)
	}
}

func TestEmployeeScheduleValidationDisabled(t *testing.T) {
	g := testGate(defaultCfg(), nil, nil)

	emp := identity.Employee{ID: "emp-1", Active: true, ScheduleID: "sch-1"}
	d, err := g.CheckEmployee(context.Background(), emp, true, schedule.CheckEntry)
	if err != nil {
		t.Fatalf("CheckEmployee: %v", err)
	}
	if !d.Allowed || d.Comment != "" {
		t.Errorf("decision = %+v, want pass without advisory", d)
	}
}
