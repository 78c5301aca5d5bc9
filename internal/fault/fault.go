// Package fault defines the structured error type shared by every payhatch
// component.
//
// Every precondition failure carries a Code placing it in the taxonomy:
//
//   - AUTHORIZATION: caller is not owner / not the employee / not allow-listed
//   - VALIDATION: malformed input (zero identity, bad percentages, bad salary)
//   - STATE: wrong phase (paused, escaped) or unknown/inactive employee
//   - TEMPORAL: a cooldown window has not yet elapsed
//   - COLLABORATOR: an external value transfer failed
//
// Failures are terminal for the call and leave no partial state behind;
// there is no retry machinery.
package fault

import (
	"errors"
	"fmt"
)

// Code categorizes a fault.
type Code string

const (
	// Authorization indicates the caller lacks the required role.
	Authorization Code = "AUTHORIZATION"

	// Validation indicates malformed or out-of-range input.
	Validation Code = "VALIDATION"

	// State indicates the operation is not legal in the current state.
	State Code = "STATE"

	// Temporal indicates a cooldown or delay has not yet elapsed.
	Temporal Code = "TEMPORAL"

	// Collaborator indicates an external value-transfer call failed.
	Collaborator Code = "COLLABORATOR"
)

// Fault is a structured, categorized error.
//
// Op names the rejected operation ("payday", "addEmployee", ...). Err, when
// set, is the underlying cause (collaborator failures wrap the transfer
// error).
type Fault struct {
	Code    Code
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", f.Code, f.Op, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s: %s", f.Code, f.Op, f.Message)
}

// Unwrap returns the underlying cause, if any.
func (f *Fault) Unwrap() error {
	return f.Err
}

// New creates a Fault with a formatted message.
func New(code Code, op, format string, args ...any) *Fault {
	return &Fault{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Authorizationf creates an AUTHORIZATION fault.
func Authorizationf(op, format string, args ...any) *Fault {
	return New(Authorization, op, format, args...)
}

// Validationf creates a VALIDATION fault.
func Validationf(op, format string, args ...any) *Fault {
	return New(Validation, op, format, args...)
}

// Statef creates a STATE fault.
func Statef(op, format string, args ...any) *Fault {
	return New(State, op, format, args...)
}

// Temporalf creates a TEMPORAL fault.
func Temporalf(op, format string, args ...any) *Fault {
	return New(Temporal, op, format, args...)
}

// Collaboratorf creates a COLLABORATOR fault wrapping the transfer error.
func Collaboratorf(op string, err error, format string, args ...any) *Fault {
	return &Fault{Code: Collaborator, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the fault code of err, or "" if err is not a Fault.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) Code {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code
	}
	return ""
}

// IsAuthorization reports whether err is an AUTHORIZATION fault.
func IsAuthorization(err error) bool { return CodeOf(err) == Authorization }

// IsValidation reports whether err is a VALIDATION fault.
func IsValidation(err error) bool { return CodeOf(err) == Validation }

// IsState reports whether err is a STATE fault.
func IsState(err error) bool { return CodeOf(err) == State }

// IsTemporal reports whether err is a TEMPORAL fault.
func IsTemporal(err error) bool { return CodeOf(err) == Temporal }

// IsCollaborator reports whether err is a COLLABORATOR fault.
func IsCollaborator(err error) bool { return CodeOf(err) == Collaborator }
