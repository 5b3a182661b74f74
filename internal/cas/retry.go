// Package cas implements the bounded-retry discipline shared by every
// writer to the sync branch.
//
// The branch ref is a compare-and-swap resource: a writer reads the tip,
// builds its replacement commit, and publishes it only if the tip is still
// what it read. A lost race has zero side effect and is resolved by
// re-reading the new tip and trying again, with exponential backoff and a
// hard attempt cap so contention never turns into an unbounded spin.
package cas

import (
	"context"
	"fmt"
	"time"
)

// Policy describes a retry schedule.
type Policy struct {
	// MaxRetries is how many times a lost race is retried after the
	// initial attempt.
	MaxRetries int

	// InitialDelay is the sleep before the first retry.
	InitialDelay time.Duration

	// Multiplier scales the delay after each retry.
	Multiplier float64
}

// DefaultPolicy matches the allocation protocol: 5 retries, 50ms initial
// delay, x1.5 backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   5,
		InitialDelay: 50 * time.Millisecond,
		Multiplier:   1.5,
	}
}

// DelayFor returns the backoff delay preceding the given retry (1-based).
func (p Policy) DelayFor(retry int) time.Duration {
	delay := float64(p.InitialDelay)
	for i := 1; i < retry; i++ {
		delay *= p.Multiplier
	}
	return time.Duration(delay)
}

// ExhaustedError reports that every attempt lost its race.
type ExhaustedError struct {
	// Attempts is the total number of attempts made.
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("compare-and-swap lost after %d attempts", e.Attempts)
}

// state tracks the retry loop explicitly so the schedule is observable in
// tests rather than implicit in control flow.
type state int

const (
	stateAttempting state = iota
	stateSucceeded
	stateFailed
)

// Run drives op until it commits, errors, or the policy is exhausted.
//
// op returns (true, nil) on success, (false, nil) on a lost race, and a
// non-nil error for conditions retry cannot fix. Run returns the number of
// attempts made alongside any error; an exhausted schedule yields
// *ExhaustedError.
func Run(ctx context.Context, policy Policy, op func(ctx context.Context) (bool, error)) (int, error) {
	attempts := 0
	current := stateAttempting

	for current == stateAttempting {
		attempts++

		done, err := op(ctx)
		switch {
		case err != nil:
			current = stateFailed
			return attempts, err
		case done:
			current = stateSucceeded
			return attempts, nil
		}

		// Lost the race. Back off and retry unless exhausted.
		retry := attempts // attempt N lost -> this is retry N
		if retry > policy.MaxRetries {
			current = stateFailed
			return attempts, &ExhaustedError{Attempts: attempts}
		}

		select {
		case <-time.After(policy.DelayFor(retry)):
		case <-ctx.Done():
			current = stateFailed
			return attempts, ctx.Err()
		}
	}

	return attempts, nil
}
