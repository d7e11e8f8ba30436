// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package abi

import (
	"fmt"
	"strconv"

	"github.com/samber/lo"

	"github.com/gogpu/shaderabi/ir"
)

// maxDepth bounds type recursion; only self-referential types reach it.
const maxDepth = 64

// Leaf is one scalar or opaque element of an aggregate, in flatten order.
type Leaf struct {
	// Path names the leaf relative to the flattened object,
	// e.g. "lights[1].color.y" or "world._m21".
	Path string

	// Type is an ir.ScalarType, ir.ResourceType or ir.ObjectType.
	Type ir.TypeInner

	// Address is set by FlattenAddress.
	Address Address

	// Value is set by FlattenValue.
	Value Value
}

// IsOpaque reports whether the leaf is a resource or object handle.
func (l Leaf) IsOpaque() bool {
	return isOpaque(l.Type)
}

// Scalar returns the numeric type of the leaf.
func (l Leaf) Scalar() (ir.ScalarType, bool) {
	s, ok := l.Type.(ir.ScalarType)
	return s, ok
}

func isOpaque(t ir.TypeInner) bool {
	switch t.(type) {
	case ir.ResourceType, ir.ObjectType:
		return true
	default:
		return false
	}
}

// child is a direct sub-object of an aggregate.
type child struct {
	path  string
	inner ir.TypeInner

	// element is the Builder.Element index, extract the Builder.Extract
	// index. They differ only for column-major matrix elements.
	element int
	extract int

	// bits is the width of a bit-field member, zero otherwise.
	bits uint8
}

var componentNames = [...]string{"x", "y", "z", "w"}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// children lists the direct sub-objects of an aggregate in flatten order.
// Matrix elements are listed canonically; their element index is the
// storage position for the matrix's effective orientation.
func children(module *ir.Module, inner ir.TypeInner, path string, def ir.MatrixOrientation) ([]child, error) {
	switch t := inner.(type) {
	case ir.VectorType:
		kids := make([]child, t.Size)
		for i := range kids {
			name := strconv.Itoa(i)
			if i < len(componentNames) {
				name = componentNames[i]
			}
			kids[i] = child{path: joinPath(path, name), inner: t.Scalar, element: i, extract: i}
		}
		return kids, nil

	case ir.MatrixType:
		o := resolveOrientation(t.Orientation, def)
		kids := make([]child, 0, int(t.Rows)*int(t.Columns))
		for r := uint8(0); r < t.Rows; r++ {
			for c := uint8(0); c < t.Columns; c++ {
				kids = append(kids, child{
					path:    joinPath(path, fmt.Sprintf("_m%d%d", r, c)),
					inner:   t.Scalar,
					element: storageIndex(t, o, r, c),
					extract: len(kids),
				})
			}
		}
		return kids, nil

	case ir.ArrayType:
		if t.Size.Constant == nil {
			return nil, NewError(ErrUnboundedAggregate, path, "unbounded arrays cannot be copied")
		}
		base := module.Lookup(t.Base)
		if base == nil {
			return nil, NewError(ErrUnsupportedLeafType, path, fmt.Sprintf("array base type %d does not exist", t.Base))
		}
		kids := make([]child, *t.Size.Constant)
		for i := range kids {
			kids[i] = child{path: path + "[" + strconv.Itoa(i) + "]", inner: base, element: i, extract: i}
		}
		return kids, nil

	case ir.StructType:
		kids := make([]child, 0, len(t.Bases)+len(t.Members))
		for i, base := range t.Bases {
			inner := module.Lookup(base)
			if inner == nil {
				return nil, NewError(ErrUnsupportedLeafType, path, fmt.Sprintf("base type %d does not exist", base))
			}
			kids = append(kids, child{path: joinPath(path, module.Types[base].Name), inner: inner, element: i, extract: i})
		}
		for i, m := range t.Members {
			if m.BitWidth != nil && *m.BitWidth == 0 {
				continue
			}
			inner := module.Lookup(m.Type)
			if inner == nil {
				return nil, NewError(ErrUnsupportedLeafType, joinPath(path, m.Name), fmt.Sprintf("type %d does not exist", m.Type))
			}
			index := len(t.Bases) + i
			k := child{path: joinPath(path, m.Name), inner: inner, element: index, extract: index}
			if m.BitWidth != nil {
				k.bits = *m.BitWidth
			}
			kids = append(kids, k)
		}
		return kids, nil

	default:
		return nil, NewError(ErrUnsupportedLeafType, path, fmt.Sprintf("%T is not an aggregate", inner))
	}
}

func isLeafType(inner ir.TypeInner) bool {
	switch inner.(type) {
	case ir.ScalarType, ir.ResourceType, ir.ObjectType:
		return true
	default:
		return false
	}
}

// LeafPaths returns the path of every leaf of t in flatten order.
func LeafPaths(module *ir.Module, t ir.TypeHandle) ([]string, error) {
	leaves, err := leafShape(module, t)
	if err != nil {
		return nil, err
	}
	return lo.Map(leaves, func(l Leaf, _ int) string { return l.Path }), nil
}

// LeafCount returns the number of leaves of t.
func LeafCount(module *ir.Module, t ir.TypeHandle) (int, error) {
	leaves, err := leafShape(module, t)
	if err != nil {
		return 0, err
	}
	return len(leaves), nil
}

// leafShape flattens a type without a builder; leaves carry only paths and
// types.
func leafShape(module *ir.Module, t ir.TypeHandle) ([]Leaf, error) {
	inner := module.Lookup(t)
	if inner == nil {
		return nil, NewError(ErrUnsupportedLeafType, "", fmt.Sprintf("type %d does not exist", t))
	}
	var out []Leaf
	err := shapeOf(module, inner, "", 0, &out)
	return out, err
}

func shapeOf(module *ir.Module, inner ir.TypeInner, path string, depth int, out *[]Leaf) error {
	if depth > maxDepth {
		return NewError(ErrRecursiveType, path, "type contains itself")
	}
	if isLeafType(inner) {
		*out = append(*out, Leaf{Path: path, Type: inner})
		return nil
	}
	kids, err := children(module, inner, path, ir.RowMajor)
	if err != nil {
		return err
	}
	for _, k := range kids {
		if err := shapeOf(module, k.inner, k.path, depth+1, out); err != nil {
			return err
		}
	}
	return nil
}
