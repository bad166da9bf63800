package models

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEntitlement is returned when the plan does not cover the requested data
	// or the credentials are rejected. It is never retried.
	ErrEntitlement = errors.New("entitlement denied")
	// ErrRetryExhausted wraps the last transient error once attempts run out.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
	// ErrMalformedPayload marks remote content that cannot be decoded.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrMissingCredentials is a configuration error raised before any network call.
	ErrMissingCredentials = errors.New("missing credentials")
)

type TransientKind string

const (
	TransientTimeout   TransientKind = "timeout"
	TransientReset     TransientKind = "connection_reset"
	TransientRateLimit TransientKind = "rate_limited"
	TransientServer    TransientKind = "server_error"
)

// TransientError is a failure worth retrying.
type TransientError struct {
	Kind TransientKind
	Err  error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient %s: %v", e.Kind, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func NewTransient(kind TransientKind, err error) error {
	return &TransientError{Kind: kind, Err: err}
}

// IsTransient classifies errors for the retry policy.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrEntitlement) {
		return false
	}
	var te *TransientError
	return errors.As(err, &te)
}

// ErrorKind is a short label used in logs and metrics.
func ErrorKind(err error) string {
	var te *TransientError
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &te):
		return string(te.Kind)
	case errors.Is(err, ErrEntitlement):
		return "entitlement"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed"
	case errors.Is(err, ErrMissingCredentials):
		return "config"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "fatal"
	}
}
