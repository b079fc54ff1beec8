package biometric

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubMatcher struct {
	match Match
	err   error
	delay time.Duration
}

func (s *stubMatcher) Match(ctx context.Context, descriptor []float32, candidates []Candidate) (Match, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Match{}, ctx.Err()
		}
	}
	return s.match, s.err
}

func TestTimeoutMatcherPassesThrough(t *testing.T) {
	want := Match{VisitorID: "vis-1", Similarity: 0.82, Found: true}
	m := NewTimeoutMatcher(&stubMatcher{match: want}, time.Second)

	got, err := m.Match(context.Background(), []float32{0.1}, nil)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got != want {
		t.Errorf("match = %+v, want %+v", got, want)
	}
}

func TestTimeoutMatcherDeadline(t *testing.T) {
	m := NewTimeoutMatcher(&stubMatcher{delay: time.Second}, 20*time.Millisecond)

	_, err := m.Match(context.Background(), []float32{0.1}, nil)
	if !errors.Is(err, ErrMatcherUnavailable) {
		t.Fatalf("expected ErrMatcherUnavailable, got %v", err)
	}
}

func TestTimeoutMatcherInnerError(t *testing.T) {
	innerErr := errors.New("descriptor length mismatch")
	m := NewTimeoutMatcher(&stubMatcher{err: innerErr}, time.Second)

	_, err := m.Match(context.Background(), []float32{0.1}, nil)
	if !errors.Is(err, innerErr) {
		t.Fatalf("expected inner error, got %v", err)
	}
}

func TestUnavailableMatcher(t *testing.T) {
	_, err := UnavailableMatcher{}.Match(context.Background(), []float32{0.1}, nil)
	if !errors.Is(err, ErrMatcherUnavailable) {
		t.Fatalf("expected ErrMatcherUnavailable, got %v", err)
	}
}
