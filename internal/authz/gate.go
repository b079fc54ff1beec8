package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"access-platform/internal/identity"
	"access-platform/internal/ledger"
	"access-platform/internal/schedule"
)

// Decision is the gate's verdict. A denial is a business outcome, not an
// error; errors are reserved for store failures.
type Decision struct {
	Allowed bool `json:"allowed"`

	// CanAccess is false when the visit's profile is incomplete: the caller
	// may still record a conditional entry pending secondary authorization.
	CanAccess bool `json:"can_access"`

	// Comment carries the first failing check's message on denial, or a
	// non-blocking schedule advisory on success.
	Comment string `json:"comment,omitempty"`

	// RequireAuthorization mirrors the org setting asking a receptionist to
	// countersign employee checks.
	RequireAuthorization bool `json:"require_authorization,omitempty"`
}

func deny(comment string) Decision {
	return Decision{Allowed: false, Comment: comment}
}

// Config are the org-level toggles and tolerances the gate applies.
type Config struct {
	EntryTolerance time.Duration
	ExitTolerance  time.Duration
	// CancelLapse extends the exit window before a visit counts as concluded.
	CancelLapse time.Duration

	ValidateSchedule          bool
	RequireCheckAuthorization bool
}

// Gate applies the ordered business-rule checks to a resolved identity.
type Gate struct {
	schedules schedule.Store
	documents identity.ApprovedDocumentsProvider
	cfg       Config
	clock     func() time.Time
}

func NewGate(schedules schedule.Store, documents identity.ApprovedDocumentsProvider, cfg Config) *Gate {
	return &Gate{schedules: schedules, documents: documents, cfg: cfg, clock: time.Now}
}

// WithClock overrides the gate clock; tests only.
func (g *Gate) WithClock(clock func() time.Time) *Gate {
	g.clock = clock
	return g
}

// RegistrationInput bundles everything the registration chain inspects.
type RegistrationInput struct {
	Registration identity.Registration
	Found        bool

	AccessPointID string
	Mode          identity.AccessMode

	// HasExited reports whether the registration already recorded an exit;
	// the expiry checks only apply to visits that never left.
	HasExited bool
}

// registrationCheck is one ordered rule. fail returns the rejection message
// when the rule trips; the first tripped rule wins and no later rule runs.
type registrationCheck struct {
	name string
	fail func(in RegistrationInput, now time.Time) (bool, string)
}

// registrationChecks run in this exact order. The precedence is part of the
// product's observable behavior; do not reorder.
func (g *Gate) registrationChecks() []registrationCheck {
	return []registrationCheck{
		{"found", func(in RegistrationInput, _ time.Time) (bool, string) {
			return !in.Found, MsgRegistrationNotFound
		}},
		{"active", func(in RegistrationInput, _ time.Time) (bool, string) {
			return !in.Registration.Active, MsgRegistrationInactive
		}},
		{"access-points-defined", func(in RegistrationInput, _ time.Time) (bool, string) {
			return len(in.Registration.AccessPoints) == 0, MsgNoAccessPoints
		}},
		{"access-point-authorized", func(in RegistrationInput, _ time.Time) (bool, string) {
			return !in.Registration.AuthorizedAt(in.AccessPointID, in.Mode), MsgWrongAccessPoint
		}},
		{"entry-window", g.checkEntryWindow},
		{"exit-window", g.checkExitWindow},
		{"lifecycle", func(in RegistrationInput, _ time.Time) (bool, string) {
			return lifecycleRejection(in.Registration.Status)
		}},
	}
}

// checkEntryWindow only applies to scheduled visits; open-ended registrations
// have no entry window.
func (g *Gate) checkEntryWindow(in RegistrationInput, now time.Time) (bool, string) {
	r := in.Registration
	if r.Kind != identity.KindScheduled {
		return false, ""
	}
	if now.Before(r.EntryAt.Add(-g.cfg.EntryTolerance)) {
		return true, fmt.Sprintf(msgTooEarlyFmt, r.Name)
	}
	if now.After(r.EntryAt.Add(g.cfg.EntryTolerance)) && !in.HasExited {
		return true, fmt.Sprintf(msgExpiredFmt, r.Name)
	}
	return false, ""
}

// checkExitWindow denies entry once the visit's scheduled exit, plus
// tolerance and cancel lapse, has passed without the visitor ever leaving.
func (g *Gate) checkExitWindow(in RegistrationInput, now time.Time) (bool, string) {
	r := in.Registration
	if r.ExitAt.IsZero() || in.HasExited {
		return false, ""
	}
	if r.Status != int(ledger.TypeAwaitingIdent) && r.Status != int(ledger.TypeExit) {
		return false, ""
	}
	deadline := r.ExitAt.Add(g.cfg.ExitTolerance).Add(g.cfg.CancelLapse)
	if now.After(deadline) {
		return true, MsgScheduleConcluded
	}
	return false, ""
}

func lifecycleRejection(status int) (bool, string) {
	switch ledger.EventType(status) {
	case ledger.TypePendingApproval:
		return true, MsgVisitNotAuthorized
	case ledger.TypeVisitRejected:
		return true, MsgVisitRejected
	case ledger.TypeAwaitingIdent:
		return true, MsgVisitAwaitingIdentity
	case ledger.TypeCancelled, ledger.TypeCancelledAuto:
		return true, MsgVisitCancelled
	case ledger.TypeFinished, ledger.TypeFinishedAuto:
		return true, MsgVisitFinished
	default:
		return false, ""
	}
}

// CheckRegistration runs the registration chain. On pass, CanAccess reflects
// profile completeness for scheduled visits; incomplete profiles are not
// rejected outright.
func (g *Gate) CheckRegistration(ctx context.Context, in RegistrationInput) (Decision, error) {
	now := g.clock()
	for _, check := range g.registrationChecks() {
		if failed, msg := check.fail(in, now); failed {
			return deny(msg), nil
		}
	}

	d := Decision{Allowed: true, CanAccess: true}
	if in.Registration.Kind == identity.KindScheduled {
		canAccess, err := g.canAccess(ctx, in.Registration)
		if err != nil {
			return Decision{}, err
		}
		d.CanAccess = canAccess
	}
	return d, nil
}

// canAccess combines the profile completeness fields with the approved
// document types on file.
func (g *Gate) canAccess(ctx context.Context, r identity.Registration) (bool, error) {
	if !r.ProfileComplete() {
		return false, nil
	}
	if g.documents == nil {
		return true, nil
	}
	approved, err := g.documents.ApprovedDocumentTypes(ctx, r.ID)
	if err != nil {
		return false, err
	}
	for _, t := range approved {
		if t == r.IdentificationType {
			return true, nil
		}
	}
	return false, nil
}

// CheckEmployee runs the employee chain: active flag, then a non-blocking
// schedule advisory when the org requires schedule validation and the
// employee has a schedule assigned. Employees are never blocked by schedule.
func (g *Gate) CheckEmployee(ctx context.Context, emp identity.Employee, found bool, kind schedule.CheckKind) (Decision, error) {
	if !found {
		return deny(MsgEmployeeNotFound), nil
	}
	if !emp.Active {
		return deny(MsgEmployeeInactive), nil
	}

	d := Decision{
		Allowed:              true,
		CanAccess:            true,
		RequireAuthorization: g.cfg.RequireCheckAuthorization,
	}
	if !g.cfg.ValidateSchedule || emp.ScheduleID == "" {
		return d, nil
	}

	sched, err := g.schedules.ScheduleByID(ctx, emp.ScheduleID)
	if err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			// A dangling schedule reference behaves like no schedule.
			return d, nil
		}
		return Decision{}, err
	}
	now := g.clock()
	d.Comment = schedule.Evaluate(sched, now.Weekday(), kind, now)
	return d, nil
}
