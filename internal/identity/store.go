package identity

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("identity: not found")

// EmployeeStore is the read-only employee lookup surface.
type EmployeeStore interface {
	EmployeeByID(ctx context.Context, id string) (Employee, error)
	EmployeeByCode(ctx context.Context, code int64) (Employee, error)
}

// VisitorStore is the read-only visitor lookup surface.
type VisitorStore interface {
	VisitorByID(ctx context.Context, id string) (Visitor, error)
	VisitorByCode(ctx context.Context, code int64) (Visitor, error)
	VisitorByCardCode(ctx context.Context, cardCode string) (Visitor, error)
	// VisitorsWithDescriptors returns the active visitors that enrolled a
	// face, the candidate set for biometric matching.
	VisitorsWithDescriptors(ctx context.Context) ([]Visitor, error)
}

// RegistrationStore reads registrations and applies the ledger projection.
// The projection is the only write this package performs.
type RegistrationStore interface {
	RegistrationByID(ctx context.Context, id string) (Registration, error)
	// RegistrationByCode resolves an active registration by its exact code.
	RegistrationByCode(ctx context.Context, code string) (Registration, error)

	// ApplyProjection appends eventID to the registration's status history
	// and updates its cached status and open flag.
	ApplyProjection(ctx context.Context, registrationID, eventID string, status int, open bool) error
}

// ApprovedDocumentsProvider lists the approved document types on file for a
// registration's visitor. Owned by the document workflow subsystem; consulted
// read-only when the gate evaluates conditional access.
type ApprovedDocumentsProvider interface {
	ApprovedDocumentTypes(ctx context.Context, registrationID string) ([]string, error)
}
