// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package eval

import (
	"fmt"

	"github.com/gogpu/shaderabi/ir"
	"github.com/gogpu/shaderabi/matrix"
)

// ToStorage reorders every matrix inside a canonical value of type t into
// the storage order Cell children use. Matrices without an explicit
// orientation use def. The input is not modified.
func ToStorage(module *ir.Module, t ir.TypeHandle, v any, def ir.MatrixOrientation) (any, error) {
	return reorient(module, module.Lookup(t), v, def, true, 0)
}

// FromStorage is the inverse of ToStorage: it returns the canonical
// row-major value of a value read from storage.
func FromStorage(module *ir.Module, t ir.TypeHandle, v any, def ir.MatrixOrientation) (any, error) {
	return reorient(module, module.Lookup(t), v, def, false, 0)
}

func reorient(module *ir.Module, inner ir.TypeInner, v any, def ir.MatrixOrientation, toStorage bool, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%s contains itself", ir.FormatInner(module, inner))
	}

	switch t := inner.(type) {
	case nil:
		return nil, fmt.Errorf("dangling type handle")

	case ir.MatrixType:
		c, ok := v.(Composite)
		if !ok || len(c.Elems) != int(t.Rows)*int(t.Columns) {
			return nil, fmt.Errorf("%s: value shape does not match", ir.FormatInner(module, t))
		}
		o := matrix.Resolve(t.Orientation, def)
		return Composite{Type: c.Type, Elems: matrix.Permute(c.Elems, t.Rows, t.Columns, o, toStorage)}, nil

	case ir.ArrayType:
		c, ok := v.(Composite)
		if !ok {
			return nil, fmt.Errorf("%s: expected a composite, got %T", ir.FormatInner(module, t), v)
		}
		base := module.Lookup(t.Base)
		elems := make([]any, len(c.Elems))
		for i, e := range c.Elems {
			r, err := reorient(module, base, e, def, toStorage, depth+1)
			if err != nil {
				return nil, err
			}
			elems[i] = r
		}
		return Composite{Type: c.Type, Elems: elems}, nil

	case ir.StructType:
		c, ok := v.(Composite)
		handles := structElements(t)
		if !ok || len(c.Elems) != len(handles) {
			return nil, fmt.Errorf("%s: value shape does not match", ir.FormatInner(module, t))
		}
		elems := make([]any, len(c.Elems))
		for i, h := range handles {
			r, err := reorient(module, module.Lookup(h), c.Elems[i], def, toStorage, depth+1)
			if err != nil {
				return nil, err
			}
			elems[i] = r
		}
		return Composite{Type: c.Type, Elems: elems}, nil

	default:
		return v, nil
	}
}
