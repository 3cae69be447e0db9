package types

import (
	"errors"
	"fmt"
)

// FailKind classifies why a resolution attempt failed.
type FailKind int

const (
	FailInvalidInput FailKind = iota
	FailUnsupportedSite
	FailNavigation
	FailNoCandidates
	FailChainLoop
	FailDepthExceeded
	FailMaxAttempts
	FailTimeout
	FailBotChallenge
	FailCancelled
)

// String returns the canonical name of the failure kind.
func (k FailKind) String() string {
	switch k {
	case FailInvalidInput:
		return "InvalidInput"
	case FailUnsupportedSite:
		return "UnsupportedSite"
	case FailNavigation:
		return "NavigationError"
	case FailNoCandidates:
		return "NoCandidates"
	case FailChainLoop:
		return "ChainLoop"
	case FailDepthExceeded:
		return "DepthExceeded"
	case FailMaxAttempts:
		return "MaxAttempts"
	case FailTimeout:
		return "Timeout"
	case FailBotChallenge:
		return "BotChallenge"
	case FailCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Retriable reports whether the retry loop may attempt the resolution again.
func (k FailKind) Retriable() bool {
	switch k {
	case FailNavigation, FailNoCandidates, FailMaxAttempts, FailTimeout:
		return true
	default:
		return false
	}
}

// Failure is the error type surfaced by the resolution pipeline.
type Failure struct {
	Kind   FailKind
	Origin string
	Err    error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	msg := f.Kind.String()
	if f.Origin != "" {
		msg = fmt.Sprintf("%s: %s", f.Origin, msg)
	}
	if f.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, f.Err)
	}
	return msg
}

// Unwrap exposes the wrapped cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Fail builds a Failure for the given kind and origin URL.
func Fail(kind FailKind, origin string, err error) *Failure {
	return &Failure{Kind: kind, Origin: origin, Err: err}
}

// FailKindOf extracts the failure kind from an error chain. Errors that carry
// no Failure are treated as transient navigation faults so the retry loop may
// still attempt them again.
func FailKindOf(err error) FailKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return FailNavigation
}
