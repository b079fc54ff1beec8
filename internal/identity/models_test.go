package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAuthorizedAt(t *testing.T) {
	r := Registration{AccessPoints: []AccessGrant{
		{AccessPointID: "ap-1", Mode: ModeManual},
		{AccessPointID: "ap-2", Mode: ModeBoth},
	}}

	cases := []struct {
		name string
		ap   string
		mode AccessMode
		want bool
	}{
		{"manual grant manual mode", "ap-1", ModeManual, true},
		{"manual grant automatic mode", "ap-1", ModeAutomatic, false},
		{"both grant automatic mode", "ap-2", ModeAutomatic, true},
		{"both grant manual mode", "ap-2", ModeManual, true},
		{"unknown access point", "ap-3", ModeManual, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.AuthorizedAt(tc.ap, tc.mode); got != tc.want {
				t.Errorf("AuthorizedAt(%s, %d) = %v, want %v", tc.ap, tc.mode, got, tc.want)
			}
		})
	}
}

func TestProfileComplete(t *testing.T) {
	full := Registration{
		IdentificationType:   "INE",
		IdentificationNumber: "ABC123",
		ProfileImage:         "profile.jpg",
		IdentFrontImage:      "front.jpg",
		IdentBackImage:       "back.jpg",
	}
	if !full.ProfileComplete() {
		t.Error("expected complete profile")
	}

	missing := full
	missing.IdentBackImage = ""
	if missing.ProfileComplete() {
		t.Error("expected incomplete profile without back image")
	}
}

func TestMemoryStoreLookups(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.PutEmployee(Employee{ID: "emp-1", Code: 42, Active: true})
	store.PutVisitor(Visitor{ID: "vis-1", Code: 5, CardCode: "CARD-XYZ", Active: true, Descriptor: []float32{0.1, 0.2}})
	store.PutVisitor(Visitor{ID: "vis-2", Code: 6, Active: true})
	store.PutRegistration(Registration{ID: "reg-1", Code: "VSTAAAABBBBCCCCDDDD", Active: true})
	store.PutRegistration(Registration{ID: "reg-2", Code: "VSTEEEEFFFFGGGGHHHH", Active: false})

	if _, err := store.EmployeeByCode(ctx, 42); err != nil {
		t.Errorf("EmployeeByCode: %v", err)
	}
	if _, err := store.EmployeeByCode(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.VisitorByCode(ctx, 5); err != nil {
		t.Errorf("VisitorByCode: %v", err)
	}
	if _, err := store.VisitorByCardCode(ctx, "CARD-XYZ"); err != nil {
		t.Errorf("VisitorByCardCode: %v", err)
	}
	if _, err := store.VisitorByCardCode(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty card code must not match, got %v", err)
	}

	candidates, err := store.VisitorsWithDescriptors(ctx)
	if err != nil {
		t.Fatalf("VisitorsWithDescriptors: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != "vis-1" {
		t.Errorf("candidates = %+v, want only vis-1", candidates)
	}

	if _, err := store.RegistrationByCode(ctx, "VSTAAAABBBBCCCCDDDD"); err != nil {
		t.Errorf("RegistrationByCode: %v", err)
	}
	// Inactive registrations never resolve by code.
	if _, err := store.RegistrationByCode(ctx, "VSTEEEEFFFFGGGGHHHH"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for inactive registration, got %v", err)
	}
}

func TestMemoryStoreApplyProjection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.PutRegistration(Registration{ID: "reg-1", Active: true, EntryAt: time.Now()})

	if err := store.ApplyProjection(ctx, "reg-1", "evt-1", 5, true); err != nil {
		t.Fatalf("ApplyProjection: %v", err)
	}
	if err := store.ApplyProjection(ctx, "reg-1", "evt-2", 9, false); err != nil {
		t.Fatalf("ApplyProjection: %v", err)
	}

	r, err := store.RegistrationByID(ctx, "reg-1")
	if err != nil {
		t.Fatalf("RegistrationByID: %v", err)
	}
	if r.Status != 9 || r.Open {
		t.Errorf("status = %d open = %v, want 9 closed", r.Status, r.Open)
	}
	if len(r.StatusHistory) != 2 || r.StatusHistory[1] != "evt-2" {
		t.Errorf("history = %v, want [evt-1 evt-2]", r.StatusHistory)
	}

	if err := store.ApplyProjection(ctx, "reg-missing", "evt-3", 5, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
