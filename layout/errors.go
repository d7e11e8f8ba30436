// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package layout

import (
	"fmt"

	"go.uber.org/multierr"
)

// ErrorKind categorizes layout errors.
type ErrorKind uint8

const (
	// ErrLayoutConflict indicates an explicit placement that disagrees with
	// the computed offset.
	ErrLayoutConflict ErrorKind = iota

	// ErrMixedPlacementPolicy indicates a buffer mixing explicit and implicit
	// member placement.
	ErrMixedPlacementPolicy

	// ErrInvalidMatrixShape indicates a matrix whose shape cannot be laid out.
	ErrInvalidMatrixShape

	// ErrUnsupportedLeafType indicates a type the planner cannot classify.
	ErrUnsupportedLeafType

	// ErrRecursiveSelfReference indicates a struct that contains itself.
	ErrRecursiveSelfReference

	// ErrInvalidType indicates a dangling type handle or malformed type.
	ErrInvalidType
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrLayoutConflict:
		return "LayoutConflict"
	case ErrMixedPlacementPolicy:
		return "MixedPlacementPolicy"
	case ErrInvalidMatrixShape:
		return "InvalidMatrixShape"
	case ErrUnsupportedLeafType:
		return "UnsupportedLeafType"
	case ErrRecursiveSelfReference:
		return "RecursiveSelfReferenceDetected"
	case ErrInvalidType:
		return "InvalidType"
	default:
		return "Unknown"
	}
}

// IsUser reports whether errors of this kind are user-facing diagnostics
// rather than internal invariant violations.
func (k ErrorKind) IsUser() bool {
	switch k {
	case ErrLayoutConflict, ErrMixedPlacementPolicy, ErrRecursiveSelfReference:
		return true
	default:
		return false
	}
}

// Error represents a layout error.
type Error struct {
	// Kind categorizes the error.
	Kind ErrorKind

	// Type is the spelling of the type being laid out, if known.
	Type string

	// Field names the member that triggered the error, if any.
	Field string

	// Message provides details about the error.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	where := e.Type
	if e.Field != "" {
		if where != "" {
			where += "."
		}
		where += e.Field
	}
	if where != "" {
		return fmt.Sprintf("layout %s in %s: %s", e.Kind, where, e.Message)
	}
	return fmt.Sprintf("layout %s: %s", e.Kind, e.Message)
}

// NewError creates a new layout error.
func NewError(kind ErrorKind, typ, field, message string) *Error {
	return &Error{
		Kind:    kind,
		Type:    typ,
		Field:   field,
		Message: message,
	}
}

// IsUser returns true if the error should be reported to the shader author.
func (e *Error) IsUser() bool {
	return e.Kind.IsUser()
}

// IsRecoverable returns true if planning continued past the error.
// Only placement diagnostics are recoverable.
func (e *Error) IsRecoverable() bool {
	return e.Kind == ErrLayoutConflict || e.Kind == ErrMixedPlacementPolicy
}

// Diagnostics accumulates errors without aborting the run, so several
// problems can be reported per compilation.
type Diagnostics []*Error

// Add appends an error.
func (d *Diagnostics) Add(err *Error) {
	*d = append(*d, err)
}

// HasKind reports whether any diagnostic has the given kind.
func (d Diagnostics) HasKind(kind ErrorKind) bool {
	for _, err := range d {
		if err.Kind == kind {
			return true
		}
	}
	return false
}

// Err combines all diagnostics into one error, or nil when empty.
func (d Diagnostics) Err() error {
	var combined error
	for _, err := range d {
		combined = multierr.Append(combined, err)
	}
	return combined
}
