// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package llvm

import (
	"fmt"

	lltypes "github.com/llir/llvm/ir/types"

	"github.com/gogpu/shaderabi/ir"
)

const maxDepth = 64

// scalarType returns the LLVM type of a shader scalar.
func scalarType(s ir.ScalarType) (lltypes.Type, error) {
	switch s.Kind {
	case ir.ScalarFloat:
		switch s.Width {
		case 2:
			return lltypes.Half, nil
		case 4:
			return lltypes.Float, nil
		case 8:
			return lltypes.Double, nil
		}
	case ir.ScalarBool, ir.ScalarPackedS8x4, ir.ScalarPackedU8x4:
		return lltypes.I32, nil
	case ir.ScalarSint, ir.ScalarUint:
		switch s.Width {
		case 1:
			return lltypes.I8, nil
		case 2:
			return lltypes.I16, nil
		case 4:
			return lltypes.I32, nil
		case 8:
			return lltypes.I64, nil
		}
	}
	return nil, fmt.Errorf("no LLVM type for %s of width %d", ir.FormatScalar(s), s.Width)
}

// typeOf returns the LLVM type of a shader type.
func (b *Builder) typeOf(inner ir.TypeInner) (lltypes.Type, error) {
	return b.lower(inner, 0)
}

func (b *Builder) lower(inner ir.TypeInner, depth int) (lltypes.Type, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%s contains itself", ir.FormatInner(b.module, inner))
	}
	switch t := inner.(type) {
	case ir.ScalarType:
		return scalarType(t)

	case ir.VectorType:
		elem, err := scalarType(t.Scalar)
		if err != nil {
			return nil, err
		}
		return lltypes.NewVector(uint64(t.Size), elem), nil

	case ir.MatrixType:
		elem, err := scalarType(t.Scalar)
		if err != nil {
			return nil, err
		}
		return lltypes.NewArray(uint64(t.Rows)*uint64(t.Columns), elem), nil

	case ir.ArrayType:
		elem, err := b.lowerHandle(t.Base, depth)
		if err != nil {
			return nil, err
		}
		var n uint64
		if t.Size.Constant != nil {
			n = uint64(*t.Size.Constant)
		}
		return lltypes.NewArray(n, elem), nil

	case ir.StructType:
		fields := make([]lltypes.Type, 0, len(t.Bases)+len(t.Members))
		for _, base := range t.Bases {
			f, err := b.lowerHandle(base, depth)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
		for _, m := range t.Members {
			f, err := b.lowerHandle(m.Type, depth)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
		return lltypes.NewStruct(fields...), nil

	case ir.ResourceType, ir.ObjectType:
		return lltypes.I8Ptr, nil

	default:
		return nil, fmt.Errorf("no LLVM type for %T", inner)
	}
}

// lowerHandle lowers a referenced type. Named structs become type
// definitions so the printed module stays readable.
func (b *Builder) lowerHandle(h ir.TypeHandle, depth int) (lltypes.Type, error) {
	inner := b.module.Lookup(h)
	if inner == nil {
		return nil, fmt.Errorf("type %d does not exist", h)
	}
	if _, ok := inner.(ir.StructType); !ok {
		return b.lower(inner, depth+1)
	}
	if def, ok := b.named[h]; ok {
		return def, nil
	}
	body, err := b.lower(inner, depth+1)
	if err != nil {
		return nil, err
	}
	name := b.module.Types[h].Name
	if name == "" {
		name = fmt.Sprintf("struct.%d", h)
	}
	def := b.mod.NewTypeDef(name, body)
	b.named[h] = def
	return def, nil
}
