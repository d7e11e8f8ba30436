// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package layout

import "github.com/gogpu/shaderabi/ir"

// Options configures layout planning.
type Options struct {
	// DefaultOrientation applies to matrices without an explicit
	// row_major/column_major qualifier. Defaults to column-major.
	DefaultOrientation ir.MatrixOrientation

	// ZeroSizeStructStartsRegister makes a nested struct of zero size begin a
	// new register like any other nested struct. Off by default.
	ZeroSizeStructStartsRegister bool

	// MatrixStartsRegister makes every matrix with more than one storage
	// vector begin a new register, instead of only those whose storage
	// vector does not fit in the current register.
	MatrixStartsRegister bool
}

// DefaultOptions returns the legacy FXC-compatible defaults.
func DefaultOptions() *Options {
	return &Options{
		DefaultOrientation:           ir.ColumnMajor,
		ZeroSizeStructStartsRegister: false,
		MatrixStartsRegister:         false,
	}
}
