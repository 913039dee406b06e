// Package sentinel holds the errors stores and infrastructure return. Callers
// match them with errors.Is; the consent service translates them into coded
// domain errors exactly once.
package sentinel

import "errors"

var (
	// ErrNotFound: no consent row with the requested id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput: the backing store refused a value (schema constraint).
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnavailable: the rate limit counter store failed or panicked.
	// The admission controller admits the request when it sees this.
	ErrUnavailable = errors.New("unavailable")
	// ErrRateLimited: a client exceeded its per-window allowance.
	ErrRateLimited = errors.New("rate limited")
)
