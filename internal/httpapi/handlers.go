package httpapi

import (
	"errors"
	"net/http"
	"time"

	"access-platform/internal/access"
	"access-platform/internal/attendance"
	"access-platform/internal/auth"
	"access-platform/internal/credential"
	"access-platform/internal/hardware"
	"access-platform/internal/ledger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Access     *access.Service
	Hardware   *hardware.Reconciler
	Attendance *attendance.Reporter
}

// envelope is the response shape shared by every endpoint. Business denials
// travel inside a 200 with ok=false; transport and input errors use HTTP
// status codes.
type envelope struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondOutcome(c *gin.Context, out access.Outcome) {
	c.JSON(http.StatusOK, envelope{
		OK:      out.Allowed,
		Message: out.Comment,
		Data:    outcomeData(out),
	})
}

type outcomePayload struct {
	Allowed              bool             `json:"allowed"`
	CanAccess            bool             `json:"can_access"`
	IdentityKind         string           `json:"identity_kind,omitempty"`
	IdentityRef          string           `json:"identity_ref,omitempty"`
	Name                 string           `json:"name,omitempty"`
	EventID              string           `json:"event_id,omitempty"`
	EventType            ledger.EventType `json:"event_type"`
	Similarity           float64          `json:"similarity,omitempty"`
	RequireAuthorization bool             `json:"require_authorization,omitempty"`
}

func outcomeData(out access.Outcome) outcomePayload {
	var kind string
	if out.IdentityKind != credential.IdentityNone {
		kind = out.IdentityKind.String()
	}
	return outcomePayload{
		Allowed:              out.Allowed,
		CanAccess:            out.CanAccess,
		IdentityKind:         kind,
		IdentityRef:          out.IdentityRef,
		Name:                 out.Name,
		EventID:              out.EventID,
		EventType:            out.EventType,
		Similarity:           out.Similarity,
		RequireAuthorization: out.RequireAuthorization,
	}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, envelope{OK: false, Message: msg})
}

func internalError(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, envelope{OK: false, Message: msg})
}

// --- Credential validation ---

type validateRequest struct {
	Code          string `json:"code"`
	Channel       int    `json:"channel"`
	AccessPointID string `json:"access_point_id"`
	TypeHint      int    `json:"type_hint,omitempty"`
	Image         string `json:"image,omitempty"`
	Latitude      string `json:"latitude,omitempty"`
	Longitude     string `json:"longitude,omitempty"`
}

// ValidateCredential resolves a presented code and records the resulting
// event. The access point defaults to the one bound to the station token.
func (h Handlers) ValidateCredential(c *gin.Context) {
	if h.Access == nil {
		internalError(c, "access service not configured")
		return
	}
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}

	stationID, _ := auth.StationID(c.Request.Context())
	apID := req.AccessPointID
	if apID == "" {
		apID = auth.AccessPointID(c.Request.Context())
	}

	out, err := h.Access.ValidateCredential(c.Request.Context(), access.Request{
		RawCode:       req.Code,
		Channel:       ledger.DeviceChannel(req.Channel),
		AccessPointID: apID,
		TypeHint:      req.TypeHint,
		Image:         req.Image,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		CreatedBy:     stationID,
	})
	if errors.Is(err, access.ErrValidation) {
		badRequest(c, err.Error())
		return
	}
	if err != nil {
		internalError(c, "credential validation failed")
		return
	}
	respondOutcome(c, out)
}

// --- Face validation ---

type faceRequest struct {
	Descriptor    []float32 `json:"descriptor"`
	Channel       int       `json:"channel"`
	AccessPointID string    `json:"access_point_id"`
	Image         string    `json:"image,omitempty"`
	Latitude      string    `json:"latitude,omitempty"`
	Longitude     string    `json:"longitude,omitempty"`
}

func (h Handlers) ValidateFace(c *gin.Context) {
	if h.Access == nil {
		internalError(c, "access service not configured")
		return
	}
	var req faceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}

	stationID, _ := auth.StationID(c.Request.Context())
	apID := req.AccessPointID
	if apID == "" {
		apID = auth.AccessPointID(c.Request.Context())
	}

	out, err := h.Access.ValidateFace(c.Request.Context(), access.FaceRequest{
		Descriptor:    req.Descriptor,
		Channel:       ledger.DeviceChannel(req.Channel),
		AccessPointID: apID,
		Image:         req.Image,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		CreatedBy:     stationID,
	})
	if err != nil {
		internalError(c, "face validation failed")
		return
	}
	respondOutcome(c, out)
}

// --- Manual events ---

type manualEventRequest struct {
	NumericCode int64  `json:"numeric_code"`
	Channel     int    `json:"channel"`
	TypeHint    int    `json:"type_hint"`
	Comment     string `json:"comment,omitempty"`
	Latitude    string `json:"latitude,omitempty"`
	Longitude   string `json:"longitude,omitempty"`
	EventAt     string `json:"event_at,omitempty"`
}

// RecordManualEvent records a receptionist-entered employee check. The
// authorizer is taken from the station token, never from the body.
func (h Handlers) RecordManualEvent(c *gin.Context) {
	if h.Access == nil {
		internalError(c, "access service not configured")
		return
	}
	var req manualEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if req.NumericCode <= 0 {
		badRequest(c, "numeric_code required")
		return
	}

	var eventAt time.Time
	if req.EventAt != "" {
		t, err := time.Parse(time.RFC3339, req.EventAt)
		if err != nil {
			badRequest(c, "event_at must be RFC3339")
			return
		}
		eventAt = t.UTC()
	}

	stationID, _ := auth.StationID(c.Request.Context())

	out, err := h.Access.RecordManualEvent(c.Request.Context(), access.ManualRequest{
		NumericCode:  req.NumericCode,
		Channel:      ledger.DeviceChannel(req.Channel),
		TypeHint:     req.TypeHint,
		Comment:      req.Comment,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		AuthorizerID: stationID,
		EventAt:      eventAt,
		CreatedBy:    stationID,
	})
	if errors.Is(err, access.ErrValidation) {
		badRequest(c, err.Error())
		return
	}
	if err != nil {
		internalError(c, "manual event failed")
		return
	}
	respondOutcome(c, out)
}

// --- Hardware ingest ---

type hardwarePushRequest struct {
	RawCode      string `json:"raw_code"`
	CreatedAt    string `json:"created_at"`
	RawTimestamp string `json:"raw_timestamp,omitempty"`
	Image        string `json:"image,omitempty"`
	ToggleHint   int    `json:"toggle_hint,omitempty"`
}

// IngestHardwareEvent reconciles one raw panel push. The panel identity
// comes from the panel token. Duplicates return ok=true with recorded=false;
// the panel must not retry them.
func (h Handlers) IngestHardwareEvent(c *gin.Context) {
	if h.Hardware == nil {
		internalError(c, "hardware reconciler not configured")
		return
	}
	var req hardwarePushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}

	panelID, err := auth.StationID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{OK: false, Message: "panel identity required"})
		return
	}

	var createdAt time.Time
	if req.CreatedAt != "" {
		t, perr := time.Parse(time.RFC3339, req.CreatedAt)
		if perr != nil {
			c.JSON(http.StatusOK, envelope{OK: false, Message: hardware.MsgInvalidDate})
			return
		}
		createdAt = t.UTC()
	}

	res, err := h.Hardware.Ingest(c.Request.Context(), hardware.Push{
		RawCode:      req.RawCode,
		Channel:      ledger.ChannelPanel,
		CreatedAt:    createdAt,
		RawTimestamp: req.RawTimestamp,
		Image:        req.Image,
		PanelID:      panelID,
		ToggleHint:   req.ToggleHint,
	})
	if err != nil {
		internalError(c, "hardware ingest failed")
		return
	}
	c.JSON(http.StatusOK, envelope{OK: res.Recorded || res.Duplicate, Message: res.Message, Data: res})
}

// --- Attendance report ---

// AttendanceReport builds per-day check summaries for one employee.
// Query: employee_id, from, to (RFC3339).
func (h Handlers) AttendanceReport(c *gin.Context) {
	if h.Attendance == nil {
		internalError(c, "attendance reporter not configured")
		return
	}
	employeeID := c.Query("employee_id")
	if employeeID == "" {
		badRequest(c, "employee_id required")
		return
	}
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		badRequest(c, "from must be RFC3339")
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		badRequest(c, "to must be RFC3339")
		return
	}
	if !to.After(from) {
		badRequest(c, "to must be after from")
		return
	}

	days, err := h.Attendance.Report(c.Request.Context(), ledger.EmployeeScope(employeeID), from, to)
	if err != nil {
		internalError(c, "attendance report failed")
		return
	}
	c.JSON(http.StatusOK, envelope{OK: true, Data: days})
}
