// Package errors provides error handling for minelab.
//
// It re-exports github.com/cockroachdb/errors (stack traces, wrapping, hints)
// and defines the two failure kinds raised by the mining engines:
//
//	InvalidParameterError  bad caller input, never retried
//	ComputationError       numerical degeneracy inside an engine
//
// Both typed errors match their sentinel through errors.Is:
//
//	if errors.Is(err, errors.ErrInvalidParameter) {
//	    // respond 400
//	}
package errors

import (
	"fmt"

	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New         = crdb.New
	Newf        = crdb.Newf
	Wrap        = crdb.Wrap
	Wrapf       = crdb.Wrapf
	WithStack   = crdb.WithStack
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is           = crdb.Is
	As           = crdb.As
	Unwrap       = crdb.Unwrap
	UnwrapAll    = crdb.UnwrapAll
	FlattenHints = crdb.FlattenHints
)

var (
	// ErrInvalidParameter marks bad caller input.
	ErrInvalidParameter = New("invalid parameter")

	// ErrComputation marks a numerical failure inside an engine.
	ErrComputation = New("computation error")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")
)

// InvalidParameterError names the argument that violated a precondition.
type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Param, e.Reason)
}

// Is reports whether target is ErrInvalidParameter.
func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// ComputationError reports a degenerate numeric state (NaN, Inf, overflow)
// reached while running an engine.
type ComputationError struct {
	Op     string
	Reason string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation failed in %s: %s", e.Op, e.Reason)
}

// Is reports whether target is ErrComputation.
func (e *ComputationError) Is(target error) bool {
	return target == ErrComputation
}

// InvalidParameter returns an *InvalidParameterError with a stack trace attached.
func InvalidParameter(param, format string, args ...interface{}) error {
	return crdb.WithStack(&InvalidParameterError{
		Param:  param,
		Reason: fmt.Sprintf(format, args...),
	})
}

// Computation returns a *ComputationError with a stack trace attached.
func Computation(op, format string, args ...interface{}) error {
	return crdb.WithStack(&ComputationError{
		Op:     op,
		Reason: fmt.Sprintf(format, args...),
	})
}

// IsInvalidParameter checks if an error is or wraps ErrInvalidParameter.
func IsInvalidParameter(err error) bool {
	return err != nil && Is(err, ErrInvalidParameter)
}

// IsComputation checks if an error is or wraps ErrComputation.
func IsComputation(err error) bool {
	return err != nil && Is(err, ErrComputation)
}

// IsNotFound checks if an error is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// ParamOf returns the offending parameter name of an invalid-parameter error,
// or "" when err carries none.
func ParamOf(err error) string {
	var ipe *InvalidParameterError
	if As(err, &ipe) {
		return ipe.Param
	}
	return ""
}
