// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package abi

import (
	"github.com/gogpu/shaderabi/ir"
	"github.com/gogpu/shaderabi/matrix"
)

// ToStorage reorders a canonical row-major matrix value into the storage
// order of o. Row-major storage needs no reordering.
func ToStorage(b Builder, v Value, m ir.MatrixType, o ir.MatrixOrientation) (Value, error) {
	return permuteMatrix(b, v, m, o, true)
}

// FromStorage reorders a matrix value loaded in the storage order of o into
// canonical row-major order.
func FromStorage(b Builder, v Value, m ir.MatrixType, o ir.MatrixOrientation) (Value, error) {
	return permuteMatrix(b, v, m, o, false)
}

func permuteMatrix(b Builder, v Value, m ir.MatrixType, o ir.MatrixOrientation, toStorage bool) (Value, error) {
	if err := matrix.Check(m); err != nil {
		return nil, NewError(ErrInvalidMatrixShape, "", err.Error())
	}
	if o != ir.ColumnMajor {
		return v, nil
	}
	n := int(m.Rows) * int(m.Columns)
	parts := make([]Value, n)
	for i := range parts {
		e, err := b.Extract(v, m, i)
		if err != nil {
			return nil, err
		}
		parts[i] = e
	}
	return b.Compose(m, matrix.Permute(parts, m.Rows, m.Columns, o, toStorage))
}

// LoadMatrix loads a matrix stored with orientation o and returns it in
// canonical order.
func LoadMatrix(b Builder, addr Address, m ir.MatrixType, o ir.MatrixOrientation) (Value, error) {
	raw, err := b.Load(addr, m)
	if err != nil {
		return nil, err
	}
	return FromStorage(b, raw, m, o)
}

// StoreMatrix stores a canonical matrix value with orientation o.
func StoreMatrix(b Builder, addr Address, v Value, m ir.MatrixType, o ir.MatrixOrientation) error {
	stored, err := ToStorage(b, v, m, o)
	if err != nil {
		return err
	}
	return b.Store(addr, stored, m)
}

// ElementAddress returns the address of logical element (r, c) of a matrix
// stored with orientation o.
func ElementAddress(b Builder, addr Address, m ir.MatrixType, o ir.MatrixOrientation, r, c uint8) (Address, error) {
	if r >= m.Rows || c >= m.Columns {
		return nil, NewError(ErrInvalidMatrixShape, "", "matrix element index out of range")
	}
	return b.Element(addr, m, int(matrix.StorageIndex(m.Rows, m.Columns, o, r, c)))
}

// LoadElement loads logical element (r, c).
func LoadElement(b Builder, addr Address, m ir.MatrixType, o ir.MatrixOrientation, r, c uint8) (Value, error) {
	ea, err := ElementAddress(b, addr, m, o, r, c)
	if err != nil {
		return nil, err
	}
	return b.Load(ea, m.Scalar)
}

// LoadRow loads logical row r as a vector of Columns elements.
func LoadRow(b Builder, addr Address, m ir.MatrixType, o ir.MatrixOrientation, r uint8) (Value, error) {
	parts := make([]Value, 0, m.Columns)
	for c := uint8(0); c < m.Columns; c++ {
		e, err := LoadElement(b, addr, m, o, r, c)
		if err != nil {
			return nil, err
		}
		parts = append(parts, e)
	}
	return b.Compose(ir.VectorType{Size: m.Columns, Scalar: m.Scalar}, parts)
}

// LoadColumn loads logical column c as a vector of Rows elements.
func LoadColumn(b Builder, addr Address, m ir.MatrixType, o ir.MatrixOrientation, c uint8) (Value, error) {
	parts := make([]Value, 0, m.Rows)
	for r := uint8(0); r < m.Rows; r++ {
		e, err := LoadElement(b, addr, m, o, r, c)
		if err != nil {
			return nil, err
		}
		parts = append(parts, e)
	}
	return b.Compose(ir.VectorType{Size: m.Rows, Scalar: m.Scalar}, parts)
}

func resolveOrientation(o, def ir.MatrixOrientation) ir.MatrixOrientation {
	return matrix.Resolve(o, def)
}

func storageIndex(m ir.MatrixType, o ir.MatrixOrientation, r, c uint8) int {
	return int(matrix.StorageIndex(m.Rows, m.Columns, o, r, c))
}
