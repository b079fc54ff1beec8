package credential

import (
	"context"
	"errors"
	"strconv"

	"access-platform/internal/identity"
)

// IdentityKind tags what a credential resolved to.
type IdentityKind int

const (
	IdentityNone IdentityKind = iota
	IdentityEmployee
	IdentityVisitor
	IdentityRegistration
)

func (k IdentityKind) String() string {
	switch k {
	case IdentityEmployee:
		return "employee"
	case IdentityVisitor:
		return "visitor"
	case IdentityRegistration:
		return "registration"
	default:
		return "none"
	}
}

// UnresolvedReason is the diagnostic attached when nothing matched.
type UnresolvedReason string

const (
	ReasonNone             UnresolvedReason = ""
	ReasonNumericNotMapped UnresolvedReason = "ID_NUMERICO_NO_MAPEADO"
	ReasonCardNotMapped    UnresolvedReason = "CARD_CODE_NO_MAPEADO"
	ReasonNotFound         UnresolvedReason = "NO_ENCONTRADO"
)

// Resolution is the outcome of resolving a credential. A lookup miss is a
// business outcome carried in Unresolved, never an error; errors are reserved
// for store failures.
type Resolution struct {
	Kind     Kind
	Identity IdentityKind

	Employee     identity.Employee
	Visitor      identity.Visitor
	Registration identity.Registration

	Unresolved UnresolvedReason
}

// Resolved reports whether the credential mapped to a known identity.
func (r Resolution) Resolved() bool { return r.Identity != IdentityNone }

// Resolver maps classified credentials onto the identity stores.
type Resolver struct {
	employees     identity.EmployeeStore
	visitors      identity.VisitorStore
	registrations identity.RegistrationStore

	// visitorOffset separates visitor hardware codes from employee codes in
	// the shared numeric space.
	visitorOffset int64
}

func NewResolver(employees identity.EmployeeStore, visitors identity.VisitorStore, registrations identity.RegistrationStore, visitorOffset int64) *Resolver {
	return &Resolver{
		employees:     employees,
		visitors:      visitors,
		registrations: registrations,
		visitorOffset: visitorOffset,
	}
}

// Resolve classifies raw and loads the matching identity. All lookups are
// read-only.
func (r *Resolver) Resolve(ctx context.Context, raw string) (Resolution, error) {
	kind := Classify(raw)
	switch kind {
	case KindNumeric:
		return r.resolveNumeric(ctx, raw)
	case KindRegistration:
		return r.resolveRegistration(ctx, raw)
	default:
		return r.resolveCard(ctx, raw)
	}
}

func (r *Resolver) resolveNumeric(ctx context.Context, raw string) (Resolution, error) {
	out := Resolution{Kind: KindNumeric}
	code, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Numeric strings longer than an int64 cannot map to anything.
		out.Unresolved = ReasonNumericNotMapped
		return out, nil
	}

	emp, err := r.employees.EmployeeByCode(ctx, code)
	if err == nil {
		out.Identity = IdentityEmployee
		out.Employee = emp
		return out, nil
	}
	if !errors.Is(err, identity.ErrNotFound) {
		return out, err
	}

	if seq := code - r.visitorOffset; seq > 0 {
		vis, err := r.visitors.VisitorByCode(ctx, seq)
		if err == nil {
			out.Identity = IdentityVisitor
			out.Visitor = vis
			return out, nil
		}
		if !errors.Is(err, identity.ErrNotFound) {
			return out, err
		}
	}

	out.Unresolved = ReasonNumericNotMapped
	return out, nil
}

func (r *Resolver) resolveRegistration(ctx context.Context, raw string) (Resolution, error) {
	out := Resolution{Kind: KindRegistration}
	reg, err := r.registrations.RegistrationByCode(ctx, raw)
	if err == nil {
		out.Identity = IdentityRegistration
		out.Registration = reg
		return out, nil
	}
	if !errors.Is(err, identity.ErrNotFound) {
		return out, err
	}
	out.Unresolved = ReasonNotFound
	return out, nil
}

func (r *Resolver) resolveCard(ctx context.Context, raw string) (Resolution, error) {
	out := Resolution{Kind: KindOpaque}
	vis, err := r.visitors.VisitorByCardCode(ctx, raw)
	if err == nil {
		out.Identity = IdentityVisitor
		out.Visitor = vis
		return out, nil
	}
	if !errors.Is(err, identity.ErrNotFound) {
		return out, err
	}
	out.Unresolved = ReasonCardNotMapped
	return out, nil
}
