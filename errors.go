// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package dashcore

import "github.com/pkg/errors"

// Kind classifies the failure modes this package reports.
type Kind int

const (
	// InvalidDistribution: a distribution summed to outside
	// [1-1e-6, 1+1e-6], contained negatives, or had the wrong length
	// (a byte model's distribution must have exactly 256 entries).
	InvalidDistribution Kind = iota
	// IllegalUtf8: the byte-level model assigned non-zero probability
	// to a byte that is forbidden at the current UTF-8 boundary.
	IllegalUtf8
	// ArithmeticError: division by zero in rational arithmetic, or a
	// non-finite float passed to rat.FromFloat.
	ArithmeticError
	// ModelFailure: the external byte-level model's prediction failed
	// (timeout, network, backend error).
	ModelFailure
	// Cancelled: the operation was aborted via its context.
	Cancelled
	// DepthExceeded: the cursor normaliser or scene builder hit the
	// maximum depth without converging.
	DepthExceeded
)

func (k Kind) String() string {
	switch k {
	case InvalidDistribution:
		return "InvalidDistribution"
	case IllegalUtf8:
		return "IllegalUtf8"
	case ArithmeticError:
		return "ArithmeticError"
	case ModelFailure:
		return "ModelFailure"
	case Cancelled:
		return "Cancelled"
	case DepthExceeded:
		return "DepthExceeded"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with the Kind that classifies it.
// It is always constructed via the newError or wrapError package
// functions below, which attach a stack trace through
// github.com/pkg/errors.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// newError builds a Kind-tagged *Error from a format string, attaching a
// stack trace so backend failures can be diagnosed from the first
// return, not re-derived by a caller re-wrapping at each layer.
func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, cause: errors.Errorf(format, args...)}
}

// wrapError tags an existing error with kind, preserving it as the
// unwrap target.
func wrapError(kind Kind, err error) *Error {
	return &Error{Kind: kind, cause: errors.WithStack(err)}
}

// AsKind reports whether err (or any error it wraps) is a *Error of kind.
func AsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
