package domain

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Unix(1_700_000_000, 0)

func TestPolicy_ApplyFirstRequestCreatesRecord(t *testing.T) {
	p := Policy{MaxRequests: 3, Window: 24 * time.Hour}

	next, ok := p.Apply(Record{}, false, t0)
	if !ok {
		t.Fatalf("expected first request to be allowed")
	}
	if next.Count != 1 || !next.FirstRequestAt.Equal(t0) {
		t.Fatalf("expected {1, t0}, got %+v", next)
	}
}

func TestPolicy_ApplyIncrementsInsideWindow(t *testing.T) {
	p := Policy{MaxRequests: 3, Window: 24 * time.Hour}
	rec := Record{Count: 2, FirstRequestAt: t0}

	next, ok := p.Apply(rec, true, t0.Add(time.Hour))
	if !ok {
		t.Fatalf("expected allowed")
	}
	if next.Count != 3 {
		t.Fatalf("expected count=3, got %d", next.Count)
	}
	if !next.FirstRequestAt.Equal(t0) {
		t.Fatalf("expected window anchor to be preserved, got %s", next.FirstRequestAt)
	}
}

func TestPolicy_ApplyDeniesAtLimitAndKeepsRecord(t *testing.T) {
	p := Policy{MaxRequests: 3, Window: 24 * time.Hour}
	rec := Record{Count: 3, FirstRequestAt: t0}

	next, ok := p.Apply(rec, true, t0.Add(3*time.Second))
	if ok {
		t.Fatalf("expected denied")
	}
	if next != rec {
		t.Fatalf("expected record unchanged, got %+v", next)
	}
}

func TestPolicy_ApplyResetsStaleRecord(t *testing.T) {
	p := Policy{MaxRequests: 3, Window: 24 * time.Hour}
	rec := Record{Count: 3, FirstRequestAt: t0}
	now := t0.Add(24*time.Hour + time.Second)

	next, ok := p.Apply(rec, true, now)
	if !ok {
		t.Fatalf("expected allowed after window")
	}
	if next.Count != 1 || !next.FirstRequestAt.Equal(now) {
		t.Fatalf("expected reset to {1, now}, got %+v", next)
	}
}

func TestPolicy_WindowBoundaryIsInclusive(t *testing.T) {
	p := Policy{MaxRequests: 1, Window: time.Minute}
	rec := Record{Count: 1, FirstRequestAt: t0}

	if _, ok := p.Apply(rec, true, t0.Add(time.Minute)); ok {
		t.Fatalf("expected denied exactly at first+window")
	}
}

func TestPolicy_RemainingAndResetAt(t *testing.T) {
	p := Policy{MaxRequests: 3, Window: 24 * time.Hour}
	rec := Record{Count: 2, FirstRequestAt: t0}

	if got := p.Remaining(Record{}, false, t0); got != 3 {
		t.Fatalf("expected 3 without record, got %d", got)
	}
	if got := p.Remaining(rec, true, t0.Add(time.Minute)); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := p.Remaining(rec, true, t0.Add(25*time.Hour)); got != 3 {
		t.Fatalf("expected full quota after expiry, got %d", got)
	}
	if got := p.Remaining(Record{Count: 9, FirstRequestAt: t0}, true, t0); got != 0 {
		t.Fatalf("expected remaining clamped to 0, got %d", got)
	}

	now := t0.Add(time.Minute)
	if got := p.ResetAt(Record{}, false, now); !got.Equal(now) {
		t.Fatalf("expected now without record, got %s", got)
	}
	if got := p.ResetAt(rec, true, now); !got.Equal(t0.Add(24 * time.Hour)) {
		t.Fatalf("expected first+window, got %s", got)
	}
}

func TestPolicy_Validate(t *testing.T) {
	if err := (Policy{MaxRequests: 3, Window: time.Hour}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Policy{MaxRequests: 0, Window: time.Hour}).Validate(); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy, got %v", err)
	}
	if err := (Policy{MaxRequests: 1}).Validate(); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy, got %v", err)
	}
}

func TestDecision_RetryAfter(t *testing.T) {
	d := Decision{Allowed: false, ResetAt: t0.Add(90 * time.Second)}
	if got := d.RetryAfter(t0); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
	if got := d.RetryAfter(t0.Add(time.Hour)); got != 0 {
		t.Fatalf("expected 0 after reset, got %s", got)
	}
	if got := (Decision{Allowed: true, ResetAt: t0.Add(time.Hour)}).RetryAfter(t0); got != 0 {
		t.Fatalf("expected 0 when allowed, got %s", got)
	}
}
