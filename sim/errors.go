package sim

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes engine errors so the protocol layer can map them to
// JSON-RPC and HTTP codes without string matching.
type ErrorKind string

const (
	// KindValidation indicates a malformed request or parameter.
	KindValidation ErrorKind = "VALIDATION"

	// KindNotFound indicates a reference to an unknown object or method.
	KindNotFound ErrorKind = "NOT_FOUND"

	// KindState indicates an illegal job transition, e.g. start while printing.
	KindState ErrorKind = "STATE"

	// KindIdempotency indicates a redundant no-op operation. Non-fatal.
	KindIdempotency ErrorKind = "IDEMPOTENCY"

	// KindTransport indicates a send to a dead or saturated connection.
	KindTransport ErrorKind = "TRANSPORT"
)

// Error is the engine error type. Use Errorf to construct and KindOf to classify.
type Error struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errorf builds an Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or "" if err is not an engine Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
