package credential

import "regexp"

// Kind classifies a presented credential string exactly once. All downstream
// code switches on the kind and never re-inspects the raw string.
type Kind int

const (
	// KindNumeric is an all-digits badge or visitor code.
	KindNumeric Kind = iota
	// KindRegistration is a visit booking code (VST + 16 alphanumerics).
	KindRegistration
	// KindOpaque is anything else, treated as a stored card code.
	KindOpaque
)

var (
	numericRe      = regexp.MustCompile(`^[\d]+$`)
	registrationRe = regexp.MustCompile(`^VST[A-Z0-9]{16}$`)
)

// Classify maps a raw credential to its kind. Rules apply in order; the
// numeric check wins over everything else.
func Classify(raw string) Kind {
	switch {
	case numericRe.MatchString(raw):
		return KindNumeric
	case registrationRe.MatchString(raw):
		return KindRegistration
	default:
		return KindOpaque
	}
}
