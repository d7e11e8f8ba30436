// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package matrix holds the pure half of matrix orientation handling:
// storage index arithmetic, transpose permutations and legacy constant
// buffer sizing.
//
// Matrices held in registers are always row-major. A column-major
// orientation only describes how a matrix sits in backing storage; code that
// loads or stores matrices converts at the boundary using StorageIndex or
// Permute.
package matrix

import (
	"fmt"

	"github.com/gogpu/shaderabi/ir"
)

// RegisterSize is the size in bytes of one constant buffer register.
const RegisterSize = 16

// Resolve returns the effective orientation of a matrix: its own
// qualifier, else def, else column-major (the HLSL default).
func Resolve(o, def ir.MatrixOrientation) ir.MatrixOrientation {
	if o != ir.OrientationUnspecified {
		return o
	}
	if def != ir.OrientationUnspecified {
		return def
	}
	return ir.ColumnMajor
}

// Check reports whether a matrix shape is representable.
func Check(m ir.MatrixType) error {
	if m.Rows < 1 || m.Rows > 4 || m.Columns < 1 || m.Columns > 4 {
		return fmt.Errorf("matrix shape %dx%d out of range", m.Rows, m.Columns)
	}
	if m.Scalar.Width == 0 {
		return fmt.Errorf("matrix element width is zero")
	}
	return nil
}

// MajorMinor returns the number of storage vectors (major) and the number
// of elements per storage vector (minor) for an orientation.
func MajorMinor(rows, cols uint8, o ir.MatrixOrientation) (major, minor uint8) {
	if o == ir.ColumnMajor {
		return cols, rows
	}
	return rows, cols
}

// StorageIndex returns the flat storage index of logical element (r, c).
// Row-major storage uses r*cols+c; column-major uses c*rows+r.
func StorageIndex(rows, cols uint8, o ir.MatrixOrientation, r, c uint8) uint32 {
	if o == ir.ColumnMajor {
		return uint32(c)*uint32(rows) + uint32(r)
	}
	return uint32(r)*uint32(cols) + uint32(c)
}

// Permute reorders a flat element sequence. With toStorage set, src is in
// canonical row-major order and the result is in storage order for o;
// otherwise src is in storage order and the result is canonical.
// Row-major orientation returns a copy of src.
func Permute[T any](src []T, rows, cols uint8, o ir.MatrixOrientation, toStorage bool) []T {
	out := make([]T, len(src))
	if o != ir.ColumnMajor {
		copy(out, src)
		return out
	}
	for r := uint8(0); r < rows; r++ {
		for c := uint8(0); c < cols; c++ {
			canonical := uint32(r)*uint32(cols) + uint32(c)
			storage := StorageIndex(rows, cols, o, r, c)
			if toStorage {
				out[storage] = src[canonical]
			} else {
				out[canonical] = src[storage]
			}
		}
	}
	return out
}

// RowStride returns the padded byte stride between storage vectors.
// It is one register, doubled when 8-byte elements make a storage vector
// longer than a register.
func RowStride(m ir.MatrixType, o ir.MatrixOrientation) uint32 {
	_, minor := MajorMinor(m.Rows, m.Columns, o)
	width := uint32(m.Scalar.Width)
	if width == 8 && uint32(minor)*width > RegisterSize {
		return 2 * RegisterSize
	}
	return RegisterSize
}

// RowBytes returns the unpadded byte length of one storage vector.
func RowBytes(m ir.MatrixType, o ir.MatrixOrientation) uint32 {
	_, minor := MajorMinor(m.Rows, m.Columns, o)
	return uint32(minor) * uint32(m.Scalar.Width)
}

// ByteSize returns the legacy constant buffer size of a matrix:
// RowStride*(major-1) + minor*width. The last storage vector is not padded.
func ByteSize(m ir.MatrixType, o ir.MatrixOrientation) uint32 {
	major, _ := MajorMinor(m.Rows, m.Columns, o)
	if major == 0 {
		return 0
	}
	return RowStride(m, o)*uint32(major-1) + RowBytes(m, o)
}

// ElementOffset returns the byte offset of logical element (r, c) from the
// start of a matrix placed in a constant buffer.
func ElementOffset(m ir.MatrixType, o ir.MatrixOrientation, r, c uint8) uint32 {
	major, minor := r, c
	if o == ir.ColumnMajor {
		major, minor = c, r
	}
	return uint32(major)*RowStride(m, o) + uint32(minor)*uint32(m.Scalar.Width)
}
