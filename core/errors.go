package core

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable verification failure kind. Every kind maps to
// a structured 4xx response at the API boundary; none are fatal.
type Kind string

const (
	KindMalformedEvent       Kind = "MALFORMED_EVENT"
	KindIDMismatch           Kind = "ID_MISMATCH"
	KindInvalidSignature     Kind = "INVALID_SIGNATURE"
	KindChallengeNotFound    Kind = "CHALLENGE_NOT_FOUND"
	KindChallengeExpired     Kind = "CHALLENGE_EXPIRED"
	KindChallengeAlreadyUsed Kind = "CHALLENGE_ALREADY_USED"
	KindClockSkew            Kind = "CLOCK_SKEW"
	KindInsecureBunkerURI    Kind = "INSECURE_BUNKER_URI"
	KindNoPendingFlow        Kind = "NO_PENDING_FLOW"
	KindUnknownMethod        Kind = "UNKNOWN_METHOD"
)

// Error is a verification failure with a machine-readable kind and a
// human-readable hint.
type Error struct {
	Kind  Kind
	Hint  string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Hint, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Hint)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError creates a verification error.
func NewError(kind Kind, hint string) *Error {
	return &Error{Kind: kind, Hint: hint}
}

// WrapError creates a verification error wrapping a cause.
func WrapError(kind Kind, hint string, cause error) *Error {
	return &Error{Kind: kind, Hint: hint, Cause: cause}
}

// KindOf extracts the failure kind from err, or "" if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
