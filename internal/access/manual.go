package access

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"access-platform/internal/authz"
	"access-platform/internal/credential"
	"access-platform/internal/identity"
	"access-platform/internal/ledger"
	"access-platform/internal/schedule"
	"access-platform/internal/toggle"
)

// ManualRequest is a receptionist-entered employee check. The type hint
// pre-classifies the check; history is not consulted.
type ManualRequest struct {
	NumericCode int64
	Channel     ledger.DeviceChannel
	TypeHint    int
	Comment     string
	Latitude    string
	Longitude   string

	// AuthorizerID is the receptionist countersigning the check.
	AuthorizerID string

	// EventAt backdates the check; zero means now.
	EventAt   time.Time
	CreatedBy string
}

// RecordManualEvent records an employee check classified by the hint family.
// Schedule deviations attach as advisory comments, never as denials.
func (s *Service) RecordManualEvent(ctx context.Context, req ManualRequest) (Outcome, error) {
	eventType, ok := toggle.MapHint(req.TypeHint)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: unknown type hint %d", ErrValidation, req.TypeHint)
	}

	emp, err := s.employees.EmployeeByCode(ctx, req.NumericCode)
	if errors.Is(err, identity.ErrNotFound) {
		return s.reject(ctx, ledger.Scope{}, Request{
			Channel:   req.Channel,
			RawCode:   strconv.FormatInt(req.NumericCode, 10),
			CreatedBy: req.CreatedBy,
		}, authz.MsgEmployeeNotFound)
	}
	if err != nil {
		return Outcome{}, err
	}

	var advisory string
	if eventType == ledger.TypeEntry || eventType == ledger.TypeExit {
		kind := schedule.CheckEntry
		if eventType == ledger.TypeExit {
			kind = schedule.CheckExit
		}
		decision, err := s.gate.CheckEmployee(ctx, emp, true, kind)
		if err != nil {
			return Outcome{}, err
		}
		if !decision.Allowed {
			return s.reject(ctx, ledger.EmployeeScope(emp.ID), Request{
				Channel:   req.Channel,
				RawCode:   strconv.FormatInt(req.NumericCode, 10),
				CreatedBy: req.CreatedBy,
			}, decision.Comment)
		}
		advisory = decision.Comment
	}

	comment := req.Comment
	if advisory != "" {
		if comment != "" {
			comment = comment + ";" + advisory
		} else {
			comment = advisory
		}
	}

	createdAt := req.EventAt
	if createdAt.IsZero() {
		createdAt = s.clock().UTC()
	}
	id, err := s.events.Append(ctx, ledger.Event{
		EmployeeID:   emp.ID,
		ScheduleID:   emp.ScheduleID,
		Type:         eventType,
		Channel:      req.Channel,
		RawCode:      strconv.FormatInt(req.NumericCode, 10),
		AuthorizerID: req.AuthorizerID,
		Comment:      comment,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		CreatedBy:    req.CreatedBy,
		CreatedAt:    createdAt,
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Allowed:      true,
		CanAccess:    true,
		IdentityKind: credential.IdentityEmployee,
		IdentityRef:  emp.ID,
		Name:         emp.Name,
		EventID:      id,
		EventType:    eventType,
		Comment:      advisory,
	}, nil
}
