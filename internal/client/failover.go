package client

import (
	"context"
	"sync"
	"time"

	"gallarr/internal/domain"

	"github.com/avast/retry-go"
)

var passBackoff = 3 * time.Second

// Rotator hands out candidate hosts for one logical remote service and
// remembers the last known bad one, so concurrent tasks stop paying for a
// dead mirror after the first failure.
type Rotator struct {
	mu      sync.Mutex
	domains []string
	start   int
}

func NewRotator(domains []string) *Rotator {
	return &Rotator{domains: domains}
}

func (r *Rotator) Len() int {
	return len(r.domains)
}

// head returns the index iteration starts from.
func (r *Rotator) head() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.start
}

func (r *Rotator) at(i int) string {
	return r.domains[i%len(r.domains)]
}

// MarkBad advances the starting candidate past a failing host. Only the
// current head is advanced, so racing reports of the same host cannot
// skip a healthy one.
func (r *Rotator) MarkBad(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.domains[r.start] == host {
		r.start = (r.start + 1) % len(r.domains)
	}
}

// MarkGood pins the starting candidate to a host that just served a
// request.
func (r *Rotator) MarkGood(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, d := range r.domains {
		if d == host {
			r.start = i
			return
		}
	}
}

// failover drives fn across the rotator's candidates. One pass tries every
// domain once with no delay in between; passes repeat up to the configured
// attempt count with a fixed backoff between them. Retryable failures
// rotate to the next candidate, anything else aborts immediately and is
// returned untouched. The iteration order is frozen when the call starts,
// concurrent Mark updates only shift where later calls begin.
func failover(ctx context.Context, r *Rotator, passes int, fn func(host string) error) error {
	if r.Len() == 0 {
		return &domain.ExhaustedDomainsError{}
	}
	if passes < 1 {
		passes = 1
	}

	var (
		head     = r.head()
		hosts    []string
		attempts []error
		abortErr error
	)

	retryErr := retry.Do(
		func() error {
			host := r.at(head + len(attempts))

			err := fn(host)
			if err == nil {
				r.MarkGood(host)
				return nil
			}

			if !domain.Retryable(err) {
				abortErr = err
				return retry.Unrecoverable(err)
			}

			r.MarkBad(host)
			hosts = append(hosts, host)
			attempts = append(attempts, err)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(r.Len()*passes)),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			if (int(n)+1)%r.Len() == 0 {
				return passBackoff
			}
			return 0
		}),
	)
	if retryErr == nil {
		return nil
	}

	if abortErr != nil {
		return abortErr
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return &domain.ExhaustedDomainsError{
		Domains:  hosts,
		Attempts: len(attempts),
		Errs:     attempts,
	}
}
