// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package abi

import "fmt"

// ErrorKind categorizes marshalling errors.
type ErrorKind uint8

const (
	// ErrUnsupportedLeafType indicates a leaf that cannot be converted,
	// such as an opaque handle of a different type.
	ErrUnsupportedLeafType ErrorKind = iota

	// ErrLeafCountMismatch indicates a rebuild with the wrong number of
	// leaves for the destination.
	ErrLeafCountMismatch

	// ErrInvalidMatrixShape indicates a matrix outside 1x1 to 4x4.
	ErrInvalidMatrixShape

	// ErrUnboundedAggregate indicates an attempt to copy an unbounded array.
	ErrUnboundedAggregate

	// ErrRecursiveType indicates a type that contains itself.
	ErrRecursiveType

	// ErrInvalidArgument indicates a call whose arguments do not match the
	// callee's parameters.
	ErrInvalidArgument
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrUnsupportedLeafType:
		return "UnsupportedLeafType"
	case ErrLeafCountMismatch:
		return "LeafCountMismatch"
	case ErrInvalidMatrixShape:
		return "InvalidMatrixShape"
	case ErrUnboundedAggregate:
		return "UnboundedAggregate"
	case ErrRecursiveType:
		return "RecursiveType"
	case ErrInvalidArgument:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// Error represents a marshalling error.
type Error struct {
	Kind ErrorKind

	// Path locates the offending leaf, e.g. "lights[2].color.y".
	Path string

	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("abi %s at %s: %s", e.Kind, e.Path, e.Message)
	}
	return fmt.Sprintf("abi %s: %s", e.Kind, e.Message)
}

// NewError creates a new marshalling error.
func NewError(kind ErrorKind, path, message string) *Error {
	return &Error{Kind: kind, Path: path, Message: message}
}

// IsUser reports whether the error is caused by the shader source rather
// than a compiler invariant violation.
func (e *Error) IsUser() bool {
	return e.Kind == ErrInvalidArgument
}
