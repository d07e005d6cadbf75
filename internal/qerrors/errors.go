// Package qerrors defines the closed set of error kinds the export
// pipeline can fail with, in the shape of the teacher's
// adapter.DatabaseError family: a kind-specific sentinel, an Error
// wrapper carrying Kind/Op/Cause, and a Wrap helper that never
// double-wraps.
package qerrors

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error kinds from the error handling design.
type Kind string

const (
	Config       Kind = "ConfigError"
	Connection   Kind = "ConnectionError"
	Query        Kind = "QueryError"
	Permission   Kind = "PermissionError"
	Security     Kind = "SecurityError"
	SchemaKind   Kind = "SchemaError"
	Output       Kind = "OutputError"
	Transform    Kind = "TransformError"
	CancelledErr Kind = "Cancelled"
	Internal     Kind = "Internal"
)

// ExitCode maps an error kind to the process exit code from the external
// interfaces design: 0 success, 1 generic failure, 2 security violation,
// 130 cancelled.
func (k Kind) ExitCode() int {
	switch k {
	case Security:
		return 2
	case CancelledErr:
		return 130
	default:
		return 1
	}
}

// Error wraps an underlying cause with a Kind and the operation during
// which it occurred.
type Error struct {
	Kind  Kind
	Op    string
	Cause error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, qerrors.Sentinel(qerrors.Config)) (etc.) to
// match a wrapped Error by comparing kinds, in addition to the usual
// cause-chain comparison.
func (e *Error) Is(target error) bool {
	var k Kind
	if kindErr, ok := target.(kindSentinel); ok {
		k = kindErr.kind
	} else {
		return false
	}
	return e.Kind == k
}

// kindSentinel lets each Kind act as an errors.Is target without a
// separate sentinel error per kind.
type kindSentinel struct{ kind Kind }

func (k kindSentinel) Error() string { return string(k.kind) }

// Sentinel returns an error value that errors.Is(err, Sentinel(k)) matches
// against any *Error of that Kind.
func Sentinel(k Kind) error { return kindSentinel{kind: k} }

// New builds a new *Error of the given kind.
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

// Wrap wraps cause with kind and op. If cause is nil, Wrap returns nil.
// If cause is already a *Error, it is returned unchanged — Wrap never
// double-wraps.
func Wrap(kind Kind, op string, cause error) error {
	if cause == nil {
		return nil
	}
	var existing *Error
	if errors.As(cause, &existing) {
		return cause
	}
	return New(kind, op, cause)
}

// KindOf extracts the Kind of err, defaulting to Internal if err does not
// carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
