package booking

import (
	"errors"
	"fmt"
)

// Per-venue outcomes that drive fallback. Both advance the orchestrator to
// the next venue in the chain.
var (
	ErrNoAvailability = errors.New("no availability")
	ErrRateLimited    = errors.New("rate limited")
)

// ErrAuthRejected means the remote refused the session token mid-run, even
// though it looked valid when acquired. Retried once after a forced refresh.
var ErrAuthRejected = errors.New("auth rejected")

// AuthError is a rejected login or refresh. Fatal for the whole run and not
// retried: the credentials themselves need operator attention.
type AuthError struct {
	Cause error
}

func (e *AuthError) Error() string { return fmt.Sprintf("auth: %v", e.Cause) }
func (e *AuthError) Unwrap() error { return e.Cause }

// TransientError is a network or server hiccup (timeout, 5xx). Retried
// locally with bounded backoff, then treated as unavailability.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Cause) }
func (e *TransientError) Unwrap() error { return e.Cause }

// FatalError means the remote API no longer has the shape we expect
// (malformed request, undecodable success). Aborts the run immediately;
// remaining venues are not attempted since the defect is systemic.
type FatalError struct {
	Cause error
}

func (e *FatalError) Error() string { return fmt.Sprintf("fatal: %v", e.Cause) }
func (e *FatalError) Unwrap() error { return e.Cause }
