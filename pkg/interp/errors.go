// Package interp executes loaded automation scripts: scope management,
// expression evaluation, statement execution and function invocation
// against a host binding.
package interp

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a run-time failure.
type ErrorKind string

const (
	ErrUndefinedVariable    ErrorKind = "UndefinedVariableError"
	ErrDuplicateDeclaration ErrorKind = "DuplicateDeclarationError"
	ErrTypeMismatch         ErrorKind = "TypeMismatchError"
	ErrDivisionByZero       ErrorKind = "DivisionByZeroError"
	ErrMethodNotFound       ErrorKind = "MethodNotFoundError"
	ErrArgument             ErrorKind = "ArgumentError"
	ErrMissingReturn        ErrorKind = "MissingReturnError"
	ErrStackOverflow        ErrorKind = "StackOverflowError"
	ErrHost                 ErrorKind = "HostError"
)

// Error is a run-time error. It terminates the current invocation
// immediately; side effects already performed are retained. The engine
// never recovers from one; the top-level caller decides what to do.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error // set for host failures
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func errf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// hostErr wraps a host-surfaced failure, preserving already-typed
// engine errors that crossed a host boundary.
func hostErr(context string, err error) error {
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	return &Error{Kind: ErrHost, Message: fmt.Sprintf("%s: %v", context, err), Cause: err}
}

// IsKind reports whether err is an engine error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == kind
}
