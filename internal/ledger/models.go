package ledger

import "time"

// EventType is the closed set of ledger event codes. The numeric values are
// part of the persisted contract and of the panel wire protocol; never renumber.
type EventType int

const (
	TypeRejected        EventType = 0
	TypePendingApproval EventType = 1
	TypeApproved        EventType = 2
	TypeVisitRejected   EventType = 3
	TypeAwaitingIdent   EventType = 4
	TypeEntry           EventType = 5
	TypeExit            EventType = 6
	TypeAmbiguousToggle EventType = 7
	TypeCancelled       EventType = 8
	TypeFinished        EventType = 9
	TypeFinishedAuto    EventType = 10
	TypeApprovedRepeat  EventType = 11
	TypeCancelledAuto   EventType = 12
)

// ToggleTypes are the event types that participate in entry/exit alternation.
var ToggleTypes = []EventType{TypeEntry, TypeExit}

// IsValid reports whether t is a defined event code.
func (t EventType) IsValid() bool {
	return t >= TypeRejected && t <= TypeCancelledAuto
}

// IsPresence reports whether t is one of the presence event types shown on
// live dashboards (entry, exit, ambiguous toggle).
func (t EventType) IsPresence() bool {
	return t == TypeEntry || t == TypeExit || t == TypeAmbiguousToggle
}

// closes reports whether recording t ends the owning registration.
func (t EventType) closes() bool {
	switch t {
	case TypeCancelled, TypeFinished, TypeFinishedAuto, TypeCancelledAuto:
		return true
	default:
		return false
	}
}

// DeviceChannel identifies the device class that produced an attempt.
type DeviceChannel int

const (
	ChannelKiosk        DeviceChannel = 1
	ChannelReceptionist DeviceChannel = 2
	ChannelPanel        DeviceChannel = 3
	ChannelApp          DeviceChannel = 4
)

// Scope identifies the identity an event belongs to. Exactly one field is set.
type Scope struct {
	EmployeeID     string
	VisitorID      string
	RegistrationID string
}

func EmployeeScope(id string) Scope     { return Scope{EmployeeID: id} }
func VisitorScope(id string) Scope      { return Scope{VisitorID: id} }
func RegistrationScope(id string) Scope { return Scope{RegistrationID: id} }

func (s Scope) IsZero() bool {
	return s.EmployeeID == "" && s.VisitorID == "" && s.RegistrationID == ""
}

// Event is one immutable ledger row. Rows are inserted exactly once per
// accepted or rejected attempt and never updated or deleted.
type Event struct {
	ID string `json:"id"`

	EmployeeID     string `json:"employee_id,omitempty"`
	VisitorID      string `json:"visitor_id,omitempty"`
	RegistrationID string `json:"registration_id,omitempty"`

	AccessPointID string `json:"access_point_id,omitempty"`
	PanelID       string `json:"panel_id,omitempty"`
	ScheduleID    string `json:"schedule_id,omitempty"`

	Type    EventType     `json:"type"`
	Channel DeviceChannel `json:"channel"`

	// RawCode is the credential string as presented, kept for audit.
	RawCode string `json:"raw_code,omitempty"`

	// Similarity is the biometric match score; zero for non-biometric events.
	Similarity float64 `json:"similarity,omitempty"`

	// AuthorizerID references the receptionist who validated a manual check.
	AuthorizerID string `json:"authorizer_id,omitempty"`

	Comment string `json:"comment,omitempty"`
	Image   string `json:"image,omitempty"`

	Latitude  string `json:"latitude,omitempty"`
	Longitude string `json:"longitude,omitempty"`

	// Panel clock bookkeeping, hardware-sourced events only.
	PanelRawTimestamp string    `json:"panel_raw_timestamp,omitempty"`
	ReceivedAt        time.Time `json:"received_at,omitempty"`
	ClockDriftSeconds int64     `json:"clock_drift_seconds,omitempty"`
	ClockDriftAlert   bool      `json:"clock_drift_alert,omitempty"`

	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Scope derives the owning scope of an event. Registration events belong to
// the registration even when a visitor reference is also present.
func (e Event) Scope() Scope {
	if e.RegistrationID != "" {
		return RegistrationScope(e.RegistrationID)
	}
	if e.EmployeeID != "" {
		return EmployeeScope(e.EmployeeID)
	}
	if e.VisitorID != "" {
		return VisitorScope(e.VisitorID)
	}
	return Scope{}
}
