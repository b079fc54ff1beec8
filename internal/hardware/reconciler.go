package hardware

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"access-platform/internal/credential"
	"access-platform/internal/identity"
	"access-platform/internal/ledger"
)

// Clock and dedup thresholds, matching the deployed panel fleet's behavior.
const (
	clockAlertThreshold = 30 * time.Minute

	// Auto-offset detection: a stable whole-hour drift inside this band is a
	// misconfigured panel timezone, persisted once and never re-adjusted.
	autoOffsetMin       = 4 * time.Hour
	autoOffsetMax       = 12 * time.Hour
	autoOffsetTolerance = 5 * time.Minute

	// logicalDuplicateWindow collapses double badge reads: the same subject
	// producing the same toggle type within this window is one occurrence.
	logicalDuplicateWindow = 20 * time.Second
)

// Sequence diagnostics recorded on the event comment. Machine-matched by the
// fleet monitoring tooling; do not rename.
const (
	DiagLogicalDuplicate = "DUPLICADO_LOGICO_VENTANA_CORTA"
	DiagRepeatedIn       = "SECUENCIA_REPETIDA_IN"
	DiagRepeatedOut      = "SECUENCIA_REPETIDA_OUT"
	DiagExitWithoutEntry = "OUT_SIN_IN_DIA"
	DiagNumericUnmapped  = "ID_NUMERICO_NO_MAPEADO"
	DiagCardUnmapped     = "CARD_CODE_NO_MAPEADO"
)

// Responses returned to the panel sync client.
const (
	MsgInvalidCode      = "ID de evento invalido."
	MsgInvalidDate      = "Fecha de evento invalida."
	MsgInvalidType      = "Tipo de evento invalido."
	MsgAlreadyExists    = "Evento ya existe."
	MsgLogicalDuplicate = "Evento duplicado logico omitido."
	MsgUnrecognized     = "ID no reconocido."
)

// Push is one raw event pushed by a panel. Panels have no interactive
// feedback loop; whatever they send must be reconciled after the fact.
type Push struct {
	RawCode      string
	Channel      ledger.DeviceChannel
	CreatedAt    time.Time
	RawTimestamp string
	Image        string
	PanelID      string
	ToggleHint   int
}

// Result is the reconciliation outcome. Duplicates are no-ops, not errors.
type Result struct {
	Recorded   bool   `json:"recorded"`
	Duplicate  bool   `json:"duplicate,omitempty"`
	EventID    string `json:"event_id,omitempty"`
	Diagnostic string `json:"diagnostic,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Ledger is the slice of the event ledger the reconciler uses.
type Ledger interface {
	Append(ctx context.Context, e ledger.Event) (string, error)
	Last(ctx context.Context, q ledger.LastQuery) (ledger.Event, bool, error)
	ExistsPanelEvent(ctx context.Context, panelID string, createdAt time.Time) (bool, error)
	HasEntryBetween(ctx context.Context, scope ledger.Scope, panelID string, from, to time.Time) (bool, error)
}

// ClaimFunc is an optional fast-path dedup guard (typically Redis SETNX).
// The store-level uniqueness check stays authoritative: a lost claim still
// goes through the store lookup, because a claim survives an append that
// failed after it.
type ClaimFunc func(ctx context.Context, key string) (bool, error)

// ReleaseFunc undoes a claim whose append failed, so the panel's retry takes
// the fast path again.
type ReleaseFunc func(ctx context.Context, key string) error

// Reconciler ingests asynchronous panel pushes. It bypasses the
// authorization gate: a panel only holds identities it was provisioned to
// admit, so the panel's local decision stands.
type Reconciler struct {
	events    Ledger
	employees identity.EmployeeStore
	visitors  identity.VisitorStore
	panels    PanelStore
	claim     ClaimFunc
	release   ReleaseFunc

	visitorOffset int64
	log           *slog.Logger
	clock         func() time.Time
}

func NewReconciler(events Ledger, employees identity.EmployeeStore, visitors identity.VisitorStore, panels PanelStore, visitorOffset int64, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		events:        events,
		employees:     employees,
		visitors:      visitors,
		panels:        panels,
		visitorOffset: visitorOffset,
		log:           log,
		clock:         time.Now,
	}
}

// WithClaimGuard installs the fast-path dedup guard and its release hook.
func (r *Reconciler) WithClaimGuard(claim ClaimFunc, release ReleaseFunc) *Reconciler {
	r.claim = claim
	r.release = release
	return r
}

// WithClock overrides the reconciler clock; tests only.
func (r *Reconciler) WithClock(clock func() time.Time) *Reconciler {
	r.clock = clock
	return r
}

// Ingest reconciles one push. Idempotent per (panel, created_at): replays
// report Duplicate and change nothing.
func (r *Reconciler) Ingest(ctx context.Context, p Push) (Result, error) {
	if p.RawCode == "" {
		return Result{Message: MsgInvalidCode}, nil
	}
	if p.CreatedAt.IsZero() {
		return Result{Message: MsgInvalidDate}, nil
	}
	if !ledger.EventType(p.ToggleHint).IsValid() {
		return Result{Message: MsgInvalidType}, nil
	}

	receivedAt := r.clock().UTC()
	drift := p.CreatedAt.Sub(receivedAt)
	alert := drift.Abs() >= clockAlertThreshold
	panel := r.samplePanelClock(ctx, p.PanelID, drift, alert, receivedAt)

	dup, claimed, err := r.isDuplicate(ctx, p)
	if err != nil {
		return Result{}, err
	}
	if dup {
		r.log.Info("panel event replay ignored",
			"panel_id", p.PanelID, "raw_code", p.RawCode, "created_at", p.CreatedAt)
		return Result{Duplicate: true, Message: MsgAlreadyExists}, nil
	}

	res, err := r.record(ctx, p, panel, receivedAt, drift, alert)
	if err != nil && claimed {
		// The claim must not outlive a failed append, or the retry would be
		// reported as a duplicate of an event that was never stored.
		r.releaseClaim(ctx, p)
	}
	return res, err
}

func (r *Reconciler) record(ctx context.Context, p Push, panel Panel, receivedAt time.Time, drift time.Duration, alert bool) (Result, error) {
	base := ledger.Event{
		AccessPointID:     panel.AccessPointID,
		PanelID:           p.PanelID,
		Channel:           p.Channel,
		RawCode:           p.RawCode,
		Image:             p.Image,
		PanelRawTimestamp: p.RawTimestamp,
		ReceivedAt:        receivedAt,
		ClockDriftSeconds: int64(drift / time.Second),
		ClockDriftAlert:   alert,
		CreatedAt:         p.CreatedAt,
		Type:              ledger.EventType(p.ToggleHint),
	}

	switch credential.Classify(p.RawCode) {
	case credential.KindNumeric:
		return r.ingestNumeric(ctx, p, base)
	case credential.KindRegistration:
		// Panels emit the VST shape as a stored card code.
		return r.ingestCard(ctx, p, base)
	default:
		r.log.Warn("panel code shape not recognized", "raw_code", p.RawCode, "panel_id", p.PanelID)
		return Result{Message: MsgUnrecognized}, nil
	}
}

func (r *Reconciler) ingestNumeric(ctx context.Context, p Push, base ledger.Event) (Result, error) {
	code, ok := parseCode(p.RawCode)
	if ok {
		emp, err := r.employees.EmployeeByCode(ctx, code)
		if err == nil {
			base.EmployeeID = emp.ID
			return r.commit(ctx, p, base, ledger.EmployeeScope(emp.ID))
		}
		if !errors.Is(err, identity.ErrNotFound) {
			return Result{}, err
		}

		if seq := code - r.visitorOffset; seq > 0 {
			vis, err := r.visitors.VisitorByCode(ctx, seq)
			if err == nil {
				base.VisitorID = vis.ID
				return r.commit(ctx, p, base, ledger.VisitorScope(vis.ID))
			}
			if !errors.Is(err, identity.ErrNotFound) {
				return Result{}, err
			}
		}
	}

	// The event still gets recorded for audit, just without a subject.
	base.Comment = DiagNumericUnmapped
	r.log.Warn("panel numeric code not mapped", "raw_code", p.RawCode, "panel_id", p.PanelID)
	return r.append(ctx, base, DiagNumericUnmapped)
}

func (r *Reconciler) ingestCard(ctx context.Context, p Push, base ledger.Event) (Result, error) {
	vis, err := r.visitors.VisitorByCardCode(ctx, p.RawCode)
	if err == nil {
		base.VisitorID = vis.ID
		return r.commit(ctx, p, base, ledger.VisitorScope(vis.ID))
	}
	if !errors.Is(err, identity.ErrNotFound) {
		return Result{}, err
	}

	base.Comment = DiagCardUnmapped
	r.log.Warn("panel card code not mapped", "raw_code", p.RawCode, "panel_id", p.PanelID)
	return r.append(ctx, base, DiagCardUnmapped)
}

// commit runs the sequence analysis for a mapped subject and appends.
func (r *Reconciler) commit(ctx context.Context, p Push, e ledger.Event, scope ledger.Scope) (Result, error) {
	skip, diag, err := r.analyzeSequence(ctx, scope, p)
	if err != nil {
		return Result{}, err
	}
	if skip {
		r.log.Info("panel event dropped as logical duplicate",
			"panel_id", p.PanelID, "raw_code", p.RawCode, "diagnostic", diag)
		return Result{Duplicate: true, Diagnostic: diag, Message: MsgLogicalDuplicate}, nil
	}
	e.Comment = mergeComment(e.Comment, diag)
	return r.append(ctx, e, diag)
}

// analyzeSequence inspects the subject's toggle history around the push.
// The lookup anchors on the event's own timestamp, not wall clock, because
// panels replay backdated batches.
func (r *Reconciler) analyzeSequence(ctx context.Context, scope ledger.Scope, p Push) (skip bool, diag string, err error) {
	t := ledger.EventType(p.ToggleHint)
	if t != ledger.TypeEntry && t != ledger.TypeExit {
		return false, "", nil
	}

	last, found, err := r.events.Last(ctx, ledger.LastQuery{
		Scope:   scope,
		Types:   ledger.ToggleTypes,
		PanelID: p.PanelID,
		Before:  p.CreatedAt,
	})
	if err != nil {
		return false, "", err
	}
	if found && last.Type == t {
		gap := p.CreatedAt.Sub(last.CreatedAt)
		if gap.Abs() <= logicalDuplicateWindow {
			return true, DiagLogicalDuplicate, nil
		}
		if t == ledger.TypeEntry {
			diag = mergeComment(diag, DiagRepeatedIn)
		} else {
			diag = mergeComment(diag, DiagRepeatedOut)
		}
	}

	if t == ledger.TypeExit {
		dayStart := time.Date(p.CreatedAt.Year(), p.CreatedAt.Month(), p.CreatedAt.Day(), 0, 0, 0, 0, p.CreatedAt.Location())
		hasEntry, err := r.events.HasEntryBetween(ctx, scope, p.PanelID, dayStart, p.CreatedAt)
		if err != nil {
			return false, "", err
		}
		if !hasEntry {
			diag = mergeComment(diag, DiagExitWithoutEntry)
		}
	}
	return false, diag, nil
}

func (r *Reconciler) append(ctx context.Context, e ledger.Event, diag string) (Result, error) {
	id, err := r.events.Append(ctx, e)
	if errors.Is(err, ledger.ErrDuplicatePanelEvent) {
		// Lost a race with a concurrent replay of the same push.
		return Result{Duplicate: true, Message: MsgAlreadyExists}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Recorded: true, EventID: id, Diagnostic: diag}, nil
}

// isDuplicate consults the claim guard first. A won claim is a first
// delivery and skips the store lookup; anything else (lost claim, guard
// unavailable) falls through to the authoritative store check, because a
// lost claim can also mean the previous delivery's append failed.
func (r *Reconciler) isDuplicate(ctx context.Context, p Push) (dup, claimed bool, err error) {
	if r.claim != nil {
		fresh, cerr := r.claim(ctx, claimKey(p))
		if cerr != nil {
			r.log.Warn("dedup claim guard unavailable", "error", cerr)
		} else if fresh {
			return false, true, nil
		}
	}
	if p.PanelID == "" {
		return false, false, nil
	}
	exists, err := r.events.ExistsPanelEvent(ctx, p.PanelID, p.CreatedAt)
	return exists, false, err
}

func (r *Reconciler) releaseClaim(ctx context.Context, p Push) {
	if r.release == nil {
		return
	}
	if err := r.release(ctx, claimKey(p)); err != nil {
		r.log.Warn("dedup claim not released", "panel_id", p.PanelID, "error", err)
	}
}

func claimKey(p Push) string {
	return "panel-event:" + p.PanelID + ":" + p.CreatedAt.UTC().Format(time.RFC3339)
}

// samplePanelClock records the drift observation and, once, a detected
// whole-hour offset. Event timestamps are never corrected by the offset; the
// panel's wall-clock time is stored as sent.
func (r *Reconciler) samplePanelClock(ctx context.Context, panelID string, drift time.Duration, alert bool, sampledAt time.Time) Panel {
	if panelID == "" || r.panels == nil {
		return Panel{}
	}
	panel, err := r.panels.PanelByID(ctx, panelID)
	if err != nil {
		if !errors.Is(err, ErrPanelNotFound) {
			r.log.Warn("panel lookup failed", "panel_id", panelID, "error", err)
		}
		return Panel{}
	}

	sample := ClockSample{
		DriftSeconds: int64(drift / time.Second),
		AlertActive:  alert,
		SampledAt:    sampledAt,
	}
	if offset, detected := detectAutoOffset(drift, panel.ClockOffsetSeconds); detected {
		sample.OffsetSeconds = int64(offset / time.Second)
		sample.OffsetDetected = true
		r.log.Warn("panel clock offset auto-detected",
			"panel_id", panelID, "offset_seconds", sample.OffsetSeconds)
	}
	if err := r.panels.UpdateClock(ctx, panelID, sample); err != nil {
		r.log.Warn("panel clock sample not persisted", "panel_id", panelID, "error", err)
	}
	return panel
}

// detectAutoOffset reports a whole-hour offset in [4h, 12h] within a 5
// minute tolerance. Detection runs only while the panel has no offset yet.
func detectAutoOffset(drift time.Duration, currentOffsetSeconds int64) (time.Duration, bool) {
	if currentOffsetSeconds != 0 {
		return 0, false
	}
	hours := int64(math.Round(drift.Hours()))
	if hours == 0 {
		return 0, false
	}
	candidate := time.Duration(hours) * time.Hour
	if candidate.Abs() < autoOffsetMin || candidate.Abs() > autoOffsetMax {
		return 0, false
	}
	if (drift - candidate).Abs() > autoOffsetTolerance {
		return 0, false
	}
	return candidate, true
}

func parseCode(raw string) (int64, bool) {
	var code int64
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0, false
		}
		code = code*10 + int64(c-'0')
		if code < 0 {
			return 0, false
		}
	}
	return code, raw != ""
}

// mergeComment joins diagnostics with ";" and drops repeated parts.
func mergeComment(base, extra string) string {
	if extra == "" {
		return base
	}
	if base == "" {
		return extra
	}
	seen := make(map[string]struct{})
	var parts []string
	for _, part := range strings.Split(base+";"+extra, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		parts = append(parts, part)
	}
	return strings.Join(parts, ";")
}
