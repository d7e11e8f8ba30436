// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package abi

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gogpu/shaderabi/ir"
)

// Copier decomposes aggregates into leaves and rebuilds them, converting
// numeric leaves along the way. It is how values cross type and
// orientation boundaries: flatten the source, rebuild the destination.
type Copier struct {
	builder     Builder
	module      *ir.Module
	orientation ir.MatrixOrientation
}

// NewCopier creates a copier emitting through b. Matrices without an
// explicit orientation use def.
func NewCopier(module *ir.Module, b Builder, def ir.MatrixOrientation) *Copier {
	if def == ir.OrientationUnspecified {
		def = ir.ColumnMajor
	}
	return &Copier{builder: b, module: module, orientation: def}
}

func (c *Copier) lookup(t ir.TypeHandle) (ir.TypeInner, error) {
	inner := c.module.Lookup(t)
	if inner == nil {
		return nil, NewError(ErrUnsupportedLeafType, "", fmt.Sprintf("type %d does not exist", t))
	}
	return inner, nil
}

// FlattenAddress returns the leaves of the object of type t stored at addr.
// Each leaf carries its address; matrix element addresses follow the
// storage orientation while the leaf order stays canonical.
func (c *Copier) FlattenAddress(addr Address, t ir.TypeHandle) ([]Leaf, error) {
	inner, err := c.lookup(t)
	if err != nil {
		return nil, err
	}
	var out []Leaf
	if err := c.flattenAddress(addr, inner, "", 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Copier) flattenAddress(addr Address, inner ir.TypeInner, path string, depth int, out *[]Leaf) error {
	if depth > maxDepth {
		return NewError(ErrRecursiveType, path, "type contains itself")
	}
	if isLeafType(inner) {
		*out = append(*out, Leaf{Path: path, Type: inner, Address: addr})
		return nil
	}
	kids, err := children(c.module, inner, path, c.orientation)
	if err != nil {
		return err
	}
	for _, k := range kids {
		ea, err := c.builder.Element(addr, inner, k.element)
		if err != nil {
			return fmt.Errorf("element %s: %w", k.path, err)
		}
		if err := c.flattenAddress(ea, k.inner, k.path, depth+1, out); err != nil {
			return err
		}
	}
	return nil
}

// FlattenValue returns the leaves of a register value of type t.
func (c *Copier) FlattenValue(v Value, t ir.TypeHandle) ([]Leaf, error) {
	inner, err := c.lookup(t)
	if err != nil {
		return nil, err
	}
	var out []Leaf
	if err := c.flattenValue(v, inner, "", 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Copier) flattenValue(v Value, inner ir.TypeInner, path string, depth int, out *[]Leaf) error {
	if depth > maxDepth {
		return NewError(ErrRecursiveType, path, "type contains itself")
	}
	if isLeafType(inner) {
		*out = append(*out, Leaf{Path: path, Type: inner, Value: v})
		return nil
	}
	kids, err := children(c.module, inner, path, c.orientation)
	if err != nil {
		return err
	}
	for _, k := range kids {
		e, err := c.builder.Extract(v, inner, k.extract)
		if err != nil {
			return fmt.Errorf("extract %s: %w", k.path, err)
		}
		if err := c.flattenValue(e, k.inner, k.path, depth+1, out); err != nil {
			return err
		}
	}
	return nil
}

// Copy copies the object at src into dst, converting every leaf from the
// source type to the destination type.
func (c *Copier) Copy(dst Address, dstType ir.TypeHandle, src Address, srcType ir.TypeHandle) error {
	leaves, err := c.FlattenAddress(src, srcType)
	if err != nil {
		return err
	}
	Logger().Debug("copy",
		zap.String("from", ir.Format(c.module, srcType)),
		zap.String("to", ir.Format(c.module, dstType)),
		zap.Int("leaves", len(leaves)))
	return c.Rebuild(dst, dstType, leaves)
}
