package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"access-platform/internal/authz"
	"access-platform/internal/biometric"
	"access-platform/internal/credential"
	"access-platform/internal/identity"
	"access-platform/internal/ledger"
	"access-platform/internal/schedule"
	"access-platform/internal/toggle"
)

// ErrValidation marks malformed input, reported before any ledger write.
var ErrValidation = errors.New("access: validation failed")

// Outcome is the synchronous answer to an interactive access attempt. A
// denial is a business outcome carried in Allowed/Comment; transport errors
// never reach this type.
type Outcome struct {
	Allowed bool `json:"allowed"`

	// CanAccess is false when a scheduled visit passed every check but its
	// profile is incomplete: no event was recorded and the caller decides
	// whether to proceed with a conditional entry.
	CanAccess bool `json:"can_access"`

	IdentityKind credential.IdentityKind `json:"identity_kind,omitempty"`
	IdentityRef  string                  `json:"identity_ref,omitempty"`
	Name         string                  `json:"name,omitempty"`

	EventID   string           `json:"event_id,omitempty"`
	EventType ledger.EventType `json:"event_type,omitempty"`

	Comment    string  `json:"comment,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`

	// RequireAuthorization asks the station to collect a receptionist
	// countersign before the check is recorded.
	RequireAuthorization bool `json:"require_authorization,omitempty"`
}

// Service orchestrates the interactive attempt pipeline: resolve the
// credential, run the gate, compute the toggle, append to the ledger.
type Service struct {
	resolver *credential.Resolver
	gate     *authz.Gate
	engine   *toggle.Engine
	events   *ledger.Service

	employees identity.EmployeeStore
	visitors  identity.VisitorStore
	matcher   biometric.Matcher

	minSimilarity float64
	log           *slog.Logger
	clock         func() time.Time
}

func NewService(
	resolver *credential.Resolver,
	gate *authz.Gate,
	engine *toggle.Engine,
	events *ledger.Service,
	employees identity.EmployeeStore,
	visitors identity.VisitorStore,
	matcher biometric.Matcher,
	minSimilarity float64,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		resolver:      resolver,
		gate:          gate,
		engine:        engine,
		events:        events,
		employees:     employees,
		visitors:      visitors,
		matcher:       matcher,
		minSimilarity: minSimilarity,
		log:           log,
		clock:         time.Now,
	}
}

// WithClock overrides the service clock; tests only.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Request is one interactive credential presentation.
type Request struct {
	RawCode       string
	Channel       ledger.DeviceChannel
	AccessPointID string

	// TypeHint pre-classifies the check when the station knows the
	// direction (dedicated in/out lanes). Zero or unknown hints fall back
	// to alternation.
	TypeHint int

	Image     string
	Latitude  string
	Longitude string
	CreatedBy string
}

// ValidateCredential resolves and authorizes a presented credential and, on
// success, records the next toggle event. Every rejection past input
// validation also lands in the ledger.
func (s *Service) ValidateCredential(ctx context.Context, req Request) (Outcome, error) {
	if req.RawCode == "" {
		return Outcome{}, fmt.Errorf("%w: empty credential", ErrValidation)
	}

	res, err := s.resolver.Resolve(ctx, req.RawCode)
	if err != nil {
		return Outcome{}, err
	}

	switch res.Identity {
	case credential.IdentityRegistration:
		return s.admitRegistration(ctx, req, res.Registration)
	case credential.IdentityEmployee:
		return s.admitEmployee(ctx, req, res.Employee)
	case credential.IdentityVisitor:
		return s.admitVisitor(ctx, req, res.Visitor)
	default:
		return s.rejectUnresolved(ctx, req, res)
	}
}

func (s *Service) rejectUnresolved(ctx context.Context, req Request, res credential.Resolution) (Outcome, error) {
	var comment string
	switch res.Kind {
	case credential.KindRegistration:
		comment = authz.MsgRegistrationNotFound
	case credential.KindNumeric:
		comment = authz.MsgEmployeeNotFound
	default:
		comment = string(res.Unresolved)
	}
	return s.reject(ctx, ledger.Scope{}, req, comment)
}

func (s *Service) admitRegistration(ctx context.Context, req Request, reg identity.Registration) (Outcome, error) {
	scope := ledger.RegistrationScope(reg.ID)

	_, hasExited, err := s.events.Last(ctx, ledger.LastQuery{
		Scope: scope,
		Types: []ledger.EventType{ledger.TypeExit},
	})
	if err != nil {
		return Outcome{}, err
	}

	decision, err := s.gate.CheckRegistration(ctx, authz.RegistrationInput{
		Registration:  reg,
		Found:         true,
		AccessPointID: req.AccessPointID,
		Mode:          modeForChannel(req.Channel),
		HasExited:     hasExited,
	})
	if err != nil {
		return Outcome{}, err
	}
	if !decision.Allowed {
		return s.reject(ctx, scope, req, decision.Comment)
	}

	out := Outcome{
		Allowed:      true,
		CanAccess:    decision.CanAccess,
		IdentityKind: credential.IdentityRegistration,
		IdentityRef:  reg.ID,
		Name:         reg.Name,
	}
	if !decision.CanAccess {
		// Conditional access: no event yet, the receptionist decides.
		return out, nil
	}

	next, err := s.nextType(ctx, scope, req.AccessPointID, req.TypeHint)
	if err != nil {
		return Outcome{}, err
	}
	id, err := s.events.Append(ctx, ledger.Event{
		VisitorID:      reg.VisitorID,
		RegistrationID: reg.ID,
		AccessPointID:  req.AccessPointID,
		Type:           next,
		Channel:        req.Channel,
		RawCode:        req.RawCode,
		Image:          req.Image,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		CreatedBy:      req.CreatedBy,
	})
	if err != nil {
		return Outcome{}, err
	}
	out.EventID = id
	out.EventType = next
	return out, nil
}

func (s *Service) admitEmployee(ctx context.Context, req Request, emp identity.Employee) (Outcome, error) {
	scope := ledger.EmployeeScope(emp.ID)

	// The gate's advisory depends on which side of the shift this check is,
	// so the toggle is computed first. Employee toggles span access points.
	next, err := s.nextType(ctx, scope, "", req.TypeHint)
	if err != nil {
		return Outcome{}, err
	}

	decision, err := s.gate.CheckEmployee(ctx, emp, true, checkKindFor(next))
	if err != nil {
		return Outcome{}, err
	}
	if !decision.Allowed {
		return s.reject(ctx, scope, req, decision.Comment)
	}

	out := Outcome{
		Allowed:              true,
		CanAccess:            true,
		IdentityKind:         credential.IdentityEmployee,
		IdentityRef:          emp.ID,
		Name:                 emp.Name,
		Comment:              decision.Comment,
		EventType:            next,
		RequireAuthorization: decision.RequireAuthorization,
	}
	if decision.RequireAuthorization {
		// The check is recorded through the manual path once a receptionist
		// countersigns it.
		return out, nil
	}

	id, err := s.events.Append(ctx, ledger.Event{
		EmployeeID:    emp.ID,
		ScheduleID:    emp.ScheduleID,
		AccessPointID: req.AccessPointID,
		Type:          next,
		Channel:       req.Channel,
		RawCode:       req.RawCode,
		Comment:       decision.Comment,
		Image:         req.Image,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		return Outcome{}, err
	}
	out.EventID = id
	return out, nil
}

func (s *Service) admitVisitor(ctx context.Context, req Request, vis identity.Visitor) (Outcome, error) {
	scope := ledger.VisitorScope(vis.ID)
	if !vis.Active {
		return s.reject(ctx, scope, req, biometric.MsgSubjectInactive)
	}

	next, err := s.nextType(ctx, scope, "", req.TypeHint)
	if err != nil {
		return Outcome{}, err
	}
	id, err := s.events.Append(ctx, ledger.Event{
		VisitorID:     vis.ID,
		AccessPointID: req.AccessPointID,
		Type:          next,
		Channel:       req.Channel,
		RawCode:       req.RawCode,
		Image:         req.Image,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Allowed:      true,
		CanAccess:    true,
		IdentityKind: credential.IdentityVisitor,
		IdentityRef:  vis.ID,
		Name:         vis.Name,
		EventID:      id,
		EventType:    next,
	}, nil
}

func (s *Service) reject(ctx context.Context, scope ledger.Scope, req Request, comment string) (Outcome, error) {
	if _, err := s.events.AppendRejection(ctx, scope, req.Channel, req.RawCode, comment, req.CreatedBy); err != nil {
		return Outcome{}, err
	}
	return Outcome{Allowed: false, Comment: comment}, nil
}

// nextType honors a known direction hint, otherwise alternates from history.
func (s *Service) nextType(ctx context.Context, scope ledger.Scope, accessPointID string, hint int) (ledger.EventType, error) {
	if hint != 0 {
		if t, ok := toggle.MapHint(hint); ok {
			return t, nil
		}
	}
	return s.engine.NextType(ctx, scope, accessPointID)
}

func modeForChannel(ch ledger.DeviceChannel) identity.AccessMode {
	if ch == ledger.ChannelReceptionist {
		return identity.ModeManual
	}
	return identity.ModeAutomatic
}

func checkKindFor(t ledger.EventType) schedule.CheckKind {
	if t == ledger.TypeExit {
		return schedule.CheckExit
	}
	return schedule.CheckEntry
}
