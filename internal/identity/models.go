package identity

import "time"

// Employee is a badge-holding staff member. Employees are managed by the
// administrative layer; this package only reads them.
type Employee struct {
	ID   string `json:"id"`
	Code int64  `json:"code"`
	Name string `json:"name"`

	Active bool `json:"active"`

	// ScheduleID is empty when no work schedule is assigned; an employee
	// without a schedule is never time-restricted.
	ScheduleID string `json:"schedule_id,omitempty"`

	AccessPointIDs []string `json:"access_point_ids,omitempty"`
	ImageRef       string   `json:"image_ref,omitempty"`
}

// Visitor is a recurring external person with a stable numeric code. Their
// hardware-facing code is Code plus the configured visitor offset.
type Visitor struct {
	ID   string `json:"id"`
	Code int64  `json:"code"`
	Name string `json:"name"`

	Active bool `json:"active"`

	// CardCode is the opaque card credential, when one was issued.
	CardCode string `json:"card_code,omitempty"`

	// Descriptor is the stored face embedding; empty when the visitor never
	// enrolled a face.
	Descriptor []float32 `json:"descriptor,omitempty"`
	ImageRef   string    `json:"image_ref,omitempty"`
}

// RegistrationKind distinguishes scheduled visits from open-ended ones.
type RegistrationKind int

const (
	// KindScheduled visits carry an entry/exit window that the gate enforces.
	KindScheduled RegistrationKind = 1
	// KindOpen visits have no window; they stay valid until closed.
	KindOpen RegistrationKind = 2
)

// AccessMode is how a grant may be exercised at an access point.
type AccessMode int

const (
	ModeManual    AccessMode = 1
	ModeAutomatic AccessMode = 2
	ModeBoth      AccessMode = 3
)

// AccessGrant authorizes a registration at one access point.
type AccessGrant struct {
	AccessPointID string     `json:"access_point_id"`
	Mode          AccessMode `json:"mode"`
}

// Registration is one booked visit. Status and Open are projections of the
// event ledger maintained by ApplyProjection; the ledger derivation stays
// authoritative.
type Registration struct {
	ID   string `json:"id"`
	Code string `json:"code"`

	Kind      RegistrationKind `json:"kind"`
	VisitorID string           `json:"visitor_id"`
	Name      string           `json:"name"`
	HostID    string           `json:"host_id,omitempty"`

	Active bool `json:"active"`

	// Status mirrors the type of the latest lifecycle event.
	Status int  `json:"status"`
	Open   bool `json:"open"`
	// StatusHistory is the ordered list of ledger event ids.
	StatusHistory []string `json:"status_history,omitempty"`

	EntryAt time.Time `json:"entry_at"`
	// ExitAt is zero for open-ended registrations.
	ExitAt time.Time `json:"exit_at,omitempty"`

	AccessPoints []AccessGrant `json:"access_points,omitempty"`

	// Profile completeness fields consulted by the conditional-access check.
	IdentificationType   string `json:"identification_type,omitempty"`
	IdentificationNumber string `json:"identification_number,omitempty"`
	ProfileImage         string `json:"profile_image,omitempty"`
	IdentFrontImage      string `json:"ident_front_image,omitempty"`
	IdentBackImage       string `json:"ident_back_image,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthorizedAt reports whether the registration may be exercised at the
// given access point through the given mode.
func (r Registration) AuthorizedAt(accessPointID string, mode AccessMode) bool {
	for _, g := range r.AccessPoints {
		if g.AccessPointID != accessPointID {
			continue
		}
		if g.Mode == ModeBoth || g.Mode == mode {
			return true
		}
	}
	return false
}

// ProfileComplete reports whether every identification field required for
// unconditional access is present.
func (r Registration) ProfileComplete() bool {
	return r.IdentificationType != "" &&
		r.IdentificationNumber != "" &&
		r.ProfileImage != "" &&
		r.IdentFrontImage != "" &&
		r.IdentBackImage != ""
}
