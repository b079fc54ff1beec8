package biometric

import (
	"context"
	"errors"
	"time"
)

// ErrMatcherUnavailable marks a technical matcher failure (timeout, service
// down). Kept distinct from a no-match outcome so reporting can separate
// technical failures from policy denials.
var ErrMatcherUnavailable = errors.New("biometric: matcher unavailable")

// User-facing comments for face validation outcomes. Verbatim from the
// deployed product where the product had them.
const (
	MsgNoFace              = "No se ha detectado ningún rostro."
	MsgNoStoredDescriptors = "No hay información almacenada para realizar una comparación."
	MsgNoMatch             = "No se encontró tu información dentro del sistema."
	MsgSubjectInactive     = "Lo siento pero no tienes permitido acceder a las instalaciones"
	MsgMatcherUnavailable  = "El servicio de reconocimiento facial no está disponible, intenta de nuevo."
)

// Candidate is one enrolled descriptor offered for comparison.
type Candidate struct {
	VisitorID  string
	EmployeeID string
	Descriptor []float32
}

// Match is a successful comparison. Found is false when no candidate cleared
// the similarity threshold.
type Match struct {
	VisitorID  string
	EmployeeID string
	Similarity float64
	Found      bool
}

// Matcher compares a probe descriptor against a candidate set. Matching is
// performed by an external collaborator; this package only consumes results.
type Matcher interface {
	Match(ctx context.Context, descriptor []float32, candidates []Candidate) (Match, error)
}

// TimeoutMatcher bounds a Matcher call with a deadline. The wrapped matcher
// is synchronous and CPU-bound on the collaborator side; without a bound a
// stuck collaborator would hold the access decision open indefinitely.
type TimeoutMatcher struct {
	inner   Matcher
	timeout time.Duration
}

func NewTimeoutMatcher(inner Matcher, timeout time.Duration) *TimeoutMatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TimeoutMatcher{inner: inner, timeout: timeout}
}

func (m *TimeoutMatcher) Match(ctx context.Context, descriptor []float32, candidates []Candidate) (Match, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	type result struct {
		match Match
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		match, err := m.inner.Match(ctx, descriptor, candidates)
		ch <- result{match, err}
	}()

	select {
	case r := <-ch:
		if errors.Is(r.err, context.DeadlineExceeded) {
			return Match{}, ErrMatcherUnavailable
		}
		return r.match, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Match{}, ErrMatcherUnavailable
		}
		return Match{}, ctx.Err()
	}
}

// UnavailableMatcher is wired when no matcher collaborator is configured.
type UnavailableMatcher struct{}

func (UnavailableMatcher) Match(context.Context, []float32, []Candidate) (Match, error) {
	return Match{}, ErrMatcherUnavailable
}
