// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package layout

import (
	"fmt"

	"github.com/gogpu/shaderabi/ir"
)

// NaturalSize returns the C-like size and alignment of a type, as used by
// structured buffers. No register padding applies: vectors and matrices
// align to their scalar, structs round their size up to their alignment.
func NaturalSize(module *ir.Module, typ ir.TypeHandle) (size, align uint32, err error) {
	return naturalSize(module, typ, 0)
}

func naturalSize(module *ir.Module, typ ir.TypeHandle, depth int) (uint32, uint32, error) {
	if depth > 64 {
		return 0, 0, NewError(ErrRecursiveSelfReference, ir.Format(module, typ), "", "struct contains itself")
	}

	switch inner := module.Lookup(typ).(type) {
	case ir.ScalarType:
		w := uint32(inner.Width)
		return w, w, nil

	case ir.VectorType:
		w := uint32(inner.Scalar.Width)
		return w * uint32(inner.Size), w, nil

	case ir.MatrixType:
		w := uint32(inner.Scalar.Width)
		return w * uint32(inner.Rows) * uint32(inner.Columns), w, nil

	case ir.ArrayType:
		elem, align, err := naturalSize(module, inner.Base, depth+1)
		if err != nil {
			return 0, 0, err
		}
		if inner.Size.Constant == nil {
			return 0, align, nil
		}
		return alignUp(elem, align) * *inner.Size.Constant, align, nil

	case ir.StructType:
		var offset, maxAlign uint32 = 0, 1
		members := make([]ir.TypeHandle, 0, len(inner.Bases)+len(inner.Members))
		members = append(members, inner.Bases...)
		for _, m := range inner.Members {
			members = append(members, m.Type)
		}
		for _, m := range members {
			size, align, err := naturalSize(module, m, depth+1)
			if err != nil {
				return 0, 0, err
			}
			offset = alignUp(offset, align) + size
			maxAlign = max(maxAlign, align)
		}
		return alignUp(offset, maxAlign), maxAlign, nil

	case ir.ResourceType, ir.ObjectType:
		return 0, 1, nil

	case nil:
		return 0, 0, NewError(ErrInvalidType, "", "", fmt.Sprintf("type handle %d out of range", typ))

	default:
		return 0, 0, NewError(ErrUnsupportedLeafType, ir.Format(module, typ), "", fmt.Sprintf("unhandled type %T", inner))
	}
}
