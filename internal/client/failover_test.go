package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"gallarr/internal/domain"
)

func fastBackoff(t *testing.T) {
	t.Helper()
	old := passBackoff
	passBackoff = time.Millisecond
	t.Cleanup(func() { passBackoff = old })
}

func connRefused(host string) error {
	return &domain.TransportError{Host: host, Temporary: true, Err: errors.New("connection refused")}
}

func TestFailoverThirdDomainSucceeds(t *testing.T) {
	fastBackoff(t)

	r := NewRotator([]string{"a.example", "b.example", "c.example"})

	var attempts []string
	err := failover(context.Background(), r, 3, func(host string) error {
		attempts = append(attempts, host)
		if host == "c.example" {
			return nil
		}
		return connRefused(host)
	})
	if err != nil {
		t.Fatalf("failover failed: %v", err)
	}

	if len(attempts) != 3 {
		t.Fatalf("made %d attempts, want exactly 3", len(attempts))
	}
	want := []string{"a.example", "b.example", "c.example"}
	for i, host := range attempts {
		if host != want[i] {
			t.Errorf("attempt %d hit %s, want %s", i, host, want[i])
		}
	}
}

func TestFailoverRetryCeiling(t *testing.T) {
	fastBackoff(t)

	r := NewRotator([]string{"a.example"})

	var attempts int
	err := failover(context.Background(), r, 2, func(host string) error {
		attempts++
		return connRefused(host)
	})
	if err == nil {
		t.Fatal("expected an error")
	}

	if attempts != 2 {
		t.Fatalf("made %d attempts, want exactly 2", attempts)
	}

	var exhausted *domain.ExhaustedDomainsError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error is %T, want ExhaustedDomainsError", err)
	}
	if exhausted.Attempts != 2 || len(exhausted.Errs) != 2 {
		t.Errorf("exhausted = %+v", exhausted)
	}
}

func TestFailoverAbortsOnLogicError(t *testing.T) {
	fastBackoff(t)

	r := NewRotator([]string{"a.example", "b.example"})

	var attempts int
	err := failover(context.Background(), r, 3, func(host string) error {
		attempts++
		return &domain.ParseError{Entity: "album", Err: errors.New("missing id")}
	})

	if attempts != 1 {
		t.Fatalf("made %d attempts, want exactly 1", attempts)
	}

	var perr *domain.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error is %T, want ParseError", err)
	}
}

func TestFailoverDecodeErrorRotates(t *testing.T) {
	fastBackoff(t)

	r := NewRotator([]string{"a.example", "b.example"})

	var attempts []string
	err := failover(context.Background(), r, 1, func(host string) error {
		attempts = append(attempts, host)
		if host == "a.example" {
			return &domain.DecodeError{Reason: "padding"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failover failed: %v", err)
	}

	if len(attempts) != 2 {
		t.Fatalf("made %d attempts, want 2", len(attempts))
	}
}

func TestFailoverCancelledContext(t *testing.T) {
	fastBackoff(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRotator([]string{"a.example"})

	var attempts int
	err := failover(ctx, r, 3, func(host string) error {
		attempts++
		return connRefused(host)
	})

	if attempts != 0 {
		t.Fatalf("made %d attempts after cancellation, want 0", attempts)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error is %v, want context.Canceled", err)
	}
}

func TestFailoverEmptyDomains(t *testing.T) {
	err := failover(context.Background(), NewRotator(nil), 1, func(string) error {
		t.Fatal("fn must not run without candidates")
		return nil
	})

	var exhausted *domain.ExhaustedDomainsError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error is %T, want ExhaustedDomainsError", err)
	}
}

func TestRotatorSharesBadDomain(t *testing.T) {
	fastBackoff(t)

	r := NewRotator([]string{"a.example", "b.example", "c.example"})

	_ = failover(context.Background(), r, 1, func(host string) error {
		if host == "a.example" {
			return connRefused(host)
		}
		return nil
	})

	// the next call should start from the survivor, not from the top
	var first string
	_ = failover(context.Background(), r, 1, func(host string) error {
		first = host
		return nil
	})

	if first != "b.example" {
		t.Errorf("second call started at %s, want b.example", first)
	}
}

func TestRotatorMarkGood(t *testing.T) {
	r := NewRotator([]string{"a.example", "b.example", "c.example"})

	r.MarkGood("c.example")
	if got := r.at(r.head()); got != "c.example" {
		t.Errorf("head = %s, want c.example", got)
	}

	// a stale bad report for a host that is no longer the head is ignored
	r.MarkBad("a.example")
	if got := r.at(r.head()); got != "c.example" {
		t.Errorf("head = %s, want c.example", got)
	}
}
