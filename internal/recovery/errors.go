// internal/recovery/errors.go
//
// Package recovery implements the closed runtime error taxonomy and the
// pluggable recovery pipeline. Every runtime failure is classified into one
// of the typed errors below; the manager dispatches each to the matching
// strategy hook and records the outcome.
package recovery

import (
	"fmt"

	"github.com/xkilldash9x/tourguard-cli/api/schemas"
)

// TourError is the common surface of the typed runtime errors.
type TourError interface {
	error
	Kind() schemas.ErrorKind
	Tour() string
	Step() *int
	// Recoverable reports whether a strategy should even be consulted.
	Recoverable() bool
}

type base struct {
	tourID    string
	stepIndex *int
	message   string
}

func (b base) Tour() string { return b.tourID }
func (b base) Step() *int   { return b.stepIndex }

// ElementNotFoundError means a step's target selector resolved to nothing
// within its timeout.
type ElementNotFoundError struct {
	base
	Selector string
}

// NewElementNotFound builds the error for a missing step target.
func NewElementNotFound(tourID string, stepIndex int, selector string) *ElementNotFoundError {
	idx := stepIndex
	return &ElementNotFoundError{
		base:     base{tourID: tourID, stepIndex: &idx, message: fmt.Sprintf("element %q not found", selector)},
		Selector: selector,
	}
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("tour %q step %d: %s", e.tourID, *e.stepIndex, e.message)
}
func (e *ElementNotFoundError) Kind() schemas.ErrorKind { return schemas.ErrKindElementNotFound }
func (e *ElementNotFoundError) Recoverable() bool       { return true }

// NavigationError means a navigation hook failed or landed on the wrong page.
type NavigationError struct {
	base
	Target string
	Cause  error
}

// NewNavigationError wraps a failed navigation.
func NewNavigationError(tourID string, stepIndex *int, target string, cause error) *NavigationError {
	return &NavigationError{
		base:   base{tourID: tourID, stepIndex: stepIndex, message: fmt.Sprintf("navigation to %q failed", target)},
		Target: target,
		Cause:  cause,
	}
}

func (e *NavigationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tour %q: %s: %v", e.tourID, e.message, e.Cause)
	}
	return fmt.Sprintf("tour %q: %s", e.tourID, e.message)
}
func (e *NavigationError) Unwrap() error           { return e.Cause }
func (e *NavigationError) Kind() schemas.ErrorKind { return schemas.ErrKindNavigation }
func (e *NavigationError) Recoverable() bool       { return true }

// PermissionError means the current user may not see the tour or its target.
// Permission failures are never recoverable; retrying cannot change an
// authorization decision.
type PermissionError struct {
	base
	Requirement string
}

// NewPermissionError builds the error for an authorization failure.
func NewPermissionError(tourID, requirement string) *PermissionError {
	return &PermissionError{
		base:        base{tourID: tourID, message: fmt.Sprintf("permission %q not satisfied", requirement)},
		Requirement: requirement,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("tour %q: %s", e.tourID, e.message)
}
func (e *PermissionError) Kind() schemas.ErrorKind { return schemas.ErrKindPermission }
func (e *PermissionError) Recoverable() bool       { return false }

// TimeoutError means an operation exceeded its deadline.
type TimeoutError struct {
	base
	Operation string
}

// NewTimeoutError builds the error for an expired operation.
func NewTimeoutError(tourID string, stepIndex *int, operation string) *TimeoutError {
	return &TimeoutError{
		base:      base{tourID: tourID, stepIndex: stepIndex, message: fmt.Sprintf("operation %q timed out", operation)},
		Operation: operation,
	}
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("tour %q: %s", e.tourID, e.message)
}
func (e *TimeoutError) Kind() schemas.ErrorKind { return schemas.ErrKindTimeout }
func (e *TimeoutError) Recoverable() bool       { return true }
