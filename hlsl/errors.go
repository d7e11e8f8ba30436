// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import "fmt"

// ErrorKind categorizes HLSL generation errors.
type ErrorKind uint8

const (
	// ErrUnsupportedType indicates a type that cannot be represented in HLSL.
	ErrUnsupportedType ErrorKind = iota

	// ErrMissingBinding indicates a buffer has no register and bindings
	// are not faked.
	ErrMissingBinding

	// ErrInvalidShaderModel indicates the requested shader model cannot
	// express the module.
	ErrInvalidShaderModel

	// ErrInvalidModule indicates the IR module is malformed.
	ErrInvalidModule

	// ErrLayoutConflict indicates a buffer layout carries a conflicting
	// member that cannot be written with packoffset.
	ErrLayoutConflict

	// ErrInternalError indicates an internal writer error.
	ErrInternalError
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrUnsupportedType:
		return "UnsupportedType"
	case ErrMissingBinding:
		return "MissingBinding"
	case ErrInvalidShaderModel:
		return "InvalidShaderModel"
	case ErrInvalidModule:
		return "InvalidModule"
	case ErrLayoutConflict:
		return "LayoutConflict"
	case ErrInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// Error represents an HLSL generation error.
type Error struct {
	// Kind categorizes the error.
	Kind ErrorKind

	// Message provides details about the error.
	Message string

	// Buffer names the cbuffer being written, if any.
	Buffer string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Buffer != "" {
		return fmt.Sprintf("hlsl %s in cbuffer %s: %s", e.Kind, e.Buffer, e.Message)
	}
	return fmt.Sprintf("hlsl %s: %s", e.Kind, e.Message)
}

// NewError creates a new HLSL error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// IsMissingBinding returns true if the error is ErrMissingBinding.
func (e *Error) IsMissingBinding() bool {
	return e.Kind == ErrMissingBinding
}

// IsInternalError returns true if the error is ErrInternalError.
func (e *Error) IsInternalError() bool {
	return e.Kind == ErrInternalError
}
