package toggle

import (
	"context"

	"access-platform/internal/ledger"
)

// HistoryReader is the slice of the ledger read path the engine needs.
type HistoryReader interface {
	Last(ctx context.Context, q ledger.LastQuery) (ledger.Event, bool, error)
}

// Engine computes entry/exit alternation from ledger history. It has no
// state of its own; two concurrent reads for the same scope can race to the
// same answer, a known limitation of the read-then-decide shape.
type Engine struct {
	history HistoryReader
}

func NewEngine(history HistoryReader) *Engine {
	return &Engine{history: history}
}

// NextType returns the next toggle type for the scope: entry when no prior
// toggle exists or the last one was an exit, exit otherwise. Registration
// lookups are narrowed to accessPointID when it is non-empty; subject lookups
// pass an empty accessPointID and span all access points.
func (e *Engine) NextType(ctx context.Context, scope ledger.Scope, accessPointID string) (ledger.EventType, error) {
	last, found, err := e.history.Last(ctx, ledger.LastQuery{
		Scope:         scope,
		Types:         ledger.ToggleTypes,
		AccessPointID: accessPointID,
	})
	if err != nil {
		return 0, err
	}
	if !found || last.Type == ledger.TypeExit {
		return ledger.TypeEntry, nil
	}
	return ledger.TypeExit, nil
}

// MapHint converts a device type hint into a toggle type without consulting
// history. Hint families: 1-3 entry, 4-6 exit, 7 ambiguous. Anything else is
// invalid and reported with ok=false.
func MapHint(hint int) (ledger.EventType, bool) {
	switch hint {
	case 1, 2, 3:
		return ledger.TypeEntry, true
	case 4, 5, 6:
		return ledger.TypeExit, true
	case 7:
		return ledger.TypeAmbiguousToggle, true
	default:
		return 0, false
	}
}
