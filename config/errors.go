// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"strings"
)

// SyntaxError reports a malformed type expression.
type SyntaxError struct {
	Message string
	Source  string // the type expression
	Column  int    // 1-based
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("type %q:%d: %s", e.Source, e.Column, e.Message)
}

// FormatWithContext returns the error message with the expression and a
// caret under the offending column.
func (e *SyntaxError) FormatWithContext() string {
	col := e.Column
	if col < 1 {
		col = 1
	}
	if col > len(e.Source)+1 {
		col = len(e.Source) + 1
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "error: %s\n", e.Message)
	fmt.Fprintf(&sb, "  | %s\n", e.Source)
	fmt.Fprintf(&sb, "  | %s^\n", strings.Repeat(" ", col-1))
	return sb.String()
}

// DeclError reports an invalid declaration in a configuration file.
type DeclError struct {
	// Kind is the declaration table, e.g. "struct" or "buffer".
	Kind string
	Name string
	Err  error
}

// Error implements the error interface.
func (e *DeclError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *DeclError) Unwrap() error {
	return e.Err
}
