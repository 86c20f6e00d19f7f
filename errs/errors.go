// Package errs defines the typed error kinds shared across the vector
// database core. Every operation that can fail returns an error wrapping
// one of these kinds, so callers (and an eventual HTTP routing layer) can
// map it to a stable machine code without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable error code.
type Kind string

const (
	NotFound             Kind = "NOT_FOUND"
	AlreadyExists        Kind = "ALREADY_EXISTS"
	DimensionMismatch    Kind = "DIMENSION_MISMATCH"
	InvalidVector        Kind = "INVALID_VECTOR"
	UnsupportedMetric    Kind = "UNSUPPORTED_METRIC"
	InvalidArgument      Kind = "INVALID_ARGUMENT"
	SnapshotCorrupt      Kind = "SNAPSHOT_CORRUPT"
	EmbeddingUnavailable Kind = "EMBEDDING_UNAVAILABLE"
	Internal             Kind = "INTERNAL"
)

// Error wraps an underlying error with an operation name and a stable Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an *Error for op carrying kind and a formatted message.
func New(op string, kind Kind, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches op and kind to an existing error. Returns nil if err is nil.
func Wrap(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf returns the Kind carried by err, or Internal if err does not wrap
// an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
