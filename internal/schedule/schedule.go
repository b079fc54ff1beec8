package schedule

import "time"

// ClockTime is a wall-clock time of day with no date attached.
type ClockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Day is one weekday's configuration. Inactive days carry no restriction.
type Day struct {
	Entry  ClockTime `json:"entry"`
	Exit   ClockTime `json:"exit"`
	// Overnight shifts exit on the following calendar day.
	Overnight bool `json:"overnight"`
	Active    bool `json:"active"`
}

// Schedule is a weekly work schedule. Days are indexed Sunday=0..Saturday=6,
// matching time.Weekday.
type Schedule struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Days [7]Day `json:"days"`
}

// CheckKind selects which side of the shift is being evaluated.
type CheckKind int

const (
	CheckEntry CheckKind = iota
	CheckExit
)

// Advisory comments attached to punctuality deviations. User-facing text,
// kept verbatim from the deployed product.
const (
	CommentLateEntry = "Entrada después del tiempo de horario."
	CommentEarlyExit = "Salida antes del tiempo de horario."
)

// Evaluate returns the advisory comment for a check at the given moment, or
// an empty string when the check is on time or the day is inactive. It never
// blocks access; blocking is the authorization gate's job and only ever
// applies to registrations.
func Evaluate(s Schedule, weekday time.Weekday, kind CheckKind, now time.Time) string {
	day := s.Days[int(weekday)]
	if !day.Active {
		return ""
	}

	switch kind {
	case CheckEntry:
		entryAt := at(now, day.Entry)
		if now.After(entryAt) {
			return CommentLateEntry
		}
	case CheckExit:
		exitAt := at(now, day.Exit)
		if day.Overnight {
			exitAt = exitAt.AddDate(0, 0, 1)
		}
		if now.Before(exitAt) {
			return CommentEarlyExit
		}
	}
	return ""
}

func at(ref time.Time, c ClockTime) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), c.Hour, c.Minute, 0, 0, ref.Location())
}
