package attendance

import (
	"context"
	"time"

	"access-platform/internal/ledger"
)

// Anomaly alert strings. Verbatim from the deployed product, typos included;
// downstream report consumers match on the exact text.
const (
	AlertDoubleIn       = "Doble Check IN"
	AlertDoubleOut      = "Doble Chek OUT"
	AlertInAfterOut     = "Check IN después de un Check OUT"
	AlertMissingIn      = "No se realizo el Check IN"
	AlertMissingOut     = "No se realizo el Check OUT"
	AlertOutBeforeIn    = "Check OUT antes de un CHECK IN"
	AlertSingleEventDay = "Un único registro del día."
)

// DayReport is one calendar day's derived attendance.
type DayReport struct {
	Date string `json:"date"` // YYYY-MM-DD

	// EntryAt is the day's earliest entry, ExitAt its latest exit; zero when
	// the day has none of that type.
	EntryAt time.Time `json:"entry_at,omitempty"`
	ExitAt  time.Time `json:"exit_at,omitempty"`

	// Worked is ExitAt - EntryAt; zero unless both ends exist.
	Worked time.Duration `json:"worked"`

	Alerts []string `json:"alerts,omitempty"`
}

// HistoryReader is the slice of the ledger read path the reporter needs.
type HistoryReader interface {
	ListBetween(ctx context.Context, scope ledger.Scope, from, to time.Time) ([]ledger.Event, error)
}

// Reporter derives per-day worked intervals and anomaly flags from the
// ledger. Read-only; it never writes events.
type Reporter struct {
	history HistoryReader
	loc     *time.Location
}

func NewReporter(history HistoryReader, loc *time.Location) *Reporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Reporter{history: history, loc: loc}
}

// Report partitions the scope's toggle events by calendar day over
// [from, to) and derives each day's interval and alerts. Days with no toggle
// events are omitted.
func (r *Reporter) Report(ctx context.Context, scope ledger.Scope, from, to time.Time) ([]DayReport, error) {
	events, err := r.history.ListBetween(ctx, scope, from, to)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string][]ledger.Event)
	var order []string
	for _, e := range events {
		if e.Type != ledger.TypeEntry && e.Type != ledger.TypeExit {
			continue
		}
		day := e.CreatedAt.In(r.loc).Format("2006-01-02")
		if _, seen := byDay[day]; !seen {
			order = append(order, day)
		}
		byDay[day] = append(byDay[day], e)
	}

	out := make([]DayReport, 0, len(order))
	for _, day := range order {
		out = append(out, buildDay(day, byDay[day]))
	}
	return out, nil
}

func buildDay(day string, events []ledger.Event) DayReport {
	rep := DayReport{Date: day, Alerts: validate(events)}
	for _, e := range events {
		switch e.Type {
		case ledger.TypeEntry:
			if rep.EntryAt.IsZero() {
				rep.EntryAt = e.CreatedAt
			}
		case ledger.TypeExit:
			rep.ExitAt = e.CreatedAt
		}
	}
	if !rep.EntryAt.IsZero() && !rep.ExitAt.IsZero() && rep.ExitAt.After(rep.EntryAt) {
		rep.Worked = rep.ExitAt.Sub(rep.EntryAt)
	}
	return rep
}

// validate applies the closed anomaly catalog to one day's toggle sequence
// and deduplicates by alert text.
func validate(events []ledger.Event) []string {
	var alerts []string

	if len(events) == 1 {
		alerts = append(alerts, AlertSingleEventDay)
	}
	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1].Type, events[i].Type
		switch {
		case prev == ledger.TypeExit && cur == ledger.TypeEntry:
			alerts = append(alerts, AlertInAfterOut)
		case prev == ledger.TypeEntry && cur == ledger.TypeEntry:
			alerts = append(alerts, AlertDoubleIn)
		case prev == ledger.TypeExit && cur == ledger.TypeExit:
			alerts = append(alerts, AlertDoubleOut)
		}
	}

	hasEntry, hasExit := false, false
	for _, e := range events {
		switch e.Type {
		case ledger.TypeEntry:
			hasEntry = true
		case ledger.TypeExit:
			hasExit = true
		}
	}
	if hasExit && !hasEntry {
		alerts = append(alerts, AlertMissingIn)
	}
	if hasEntry && !hasExit {
		alerts = append(alerts, AlertMissingOut)
	}
	if len(events) > 0 && events[0].Type == ledger.TypeExit && hasEntry {
		alerts = append(alerts, AlertOutBeforeIn)
	}

	return dedupe(alerts)
}

func dedupe(alerts []string) []string {
	if len(alerts) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(alerts))
	out := alerts[:0]
	for _, a := range alerts {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
