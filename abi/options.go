// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package abi

import "github.com/gogpu/shaderabi/ir"

// Options configures argument marshalling.
type Options struct {
	// DefaultOrientation applies to matrices without an explicit qualifier.
	DefaultOrientation ir.MatrixOrientation

	// ElideInputCopies passes in arguments to inline-only callees by
	// reference when the caller's storage cannot change during the call.
	ElideInputCopies bool
}

// DefaultOptions returns the default marshalling options.
func DefaultOptions() *Options {
	return &Options{
		DefaultOrientation: ir.ColumnMajor,
		ElideInputCopies:   true,
	}
}
