// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package eval

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/gogpu/shaderabi/ir"
)

// Zero returns the zero value of a type.
func Zero(module *ir.Module, t ir.TypeHandle) (any, error) {
	inner := module.Lookup(t)
	if inner == nil {
		return nil, fmt.Errorf("type %d does not exist", t)
	}
	return zeroInner(module, inner, 0)
}

func zeroInner(module *ir.Module, inner ir.TypeInner, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%s contains itself", ir.FormatInner(module, inner))
	}
	switch t := inner.(type) {
	case ir.ScalarType:
		return Scalar{Type: t}, nil
	case ir.VectorType:
		return splat(t, Scalar{Type: t.Scalar}, int(t.Size)), nil
	case ir.MatrixType:
		return splat(t, Scalar{Type: t.Scalar}, int(t.Rows)*int(t.Columns)), nil
	case ir.ArrayType:
		if t.Size.Constant == nil {
			return Composite{Type: t}, nil
		}
		elems := make([]any, *t.Size.Constant)
		for i := range elems {
			e, err := zeroInner(module, module.Lookup(t.Base), depth+1)
			if err != nil {
				return nil, err
			}
			elems[i] = e
		}
		return Composite{Type: t, Elems: elems}, nil
	case ir.StructType:
		elems := make([]any, 0, len(t.Bases)+len(t.Members))
		for _, h := range structElements(t) {
			e, err := zeroInner(module, module.Lookup(h), depth+1)
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		return Composite{Type: t, Elems: elems}, nil
	case ir.ResourceType, ir.ObjectType:
		return Handle{Type: inner}, nil
	default:
		return nil, fmt.Errorf("no zero value for %T", inner)
	}
}

func splat(t ir.TypeInner, s Scalar, n int) Composite {
	elems := make([]any, n)
	for i := range elems {
		elems[i] = s
	}
	return Composite{Type: t, Elems: elems}
}

// structElements lists the element types of a struct value: bases, then
// members.
func structElements(st ir.StructType) []ir.TypeHandle {
	out := make([]ir.TypeHandle, 0, len(st.Bases)+len(st.Members))
	out = append(out, st.Bases...)
	for _, m := range st.Members {
		out = append(out, m.Type)
	}
	return out
}

// FromGo builds a value of type t from decoded configuration data:
// numbers and bools for scalars, flat or nested lists for vectors, matrices
// and arrays, maps keyed by member name for structs and strings naming the
// bound object for handles. Missing struct members are zero.
func FromGo(module *ir.Module, t ir.TypeHandle, x any) (any, error) {
	inner := module.Lookup(t)
	if inner == nil {
		return nil, fmt.Errorf("type %d does not exist", t)
	}
	return fromGo(module, inner, x, "", 0)
}

func fromGo(module *ir.Module, inner ir.TypeInner, x any, path string, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%s: type contains itself", path)
	}
	switch t := inner.(type) {
	case ir.ScalarType:
		return scalarFromGo(t, x, path)

	case ir.VectorType:
		return listFromGo(t, t.Scalar, int(t.Size), x, path)

	case ir.MatrixType:
		if rows, ok := x.([]any); ok && len(rows) == int(t.Rows) && isNested(rows) {
			var flat []any
			for _, r := range rows {
				flat = append(flat, r.([]any)...)
			}
			x = flat
		}
		return listFromGo(t, t.Scalar, int(t.Rows)*int(t.Columns), x, path)

	case ir.ArrayType:
		list, ok := x.([]any)
		if !ok {
			return nil, fmt.Errorf("%s: expected a list, got %T", path, x)
		}
		if t.Size.Constant != nil && len(list) != int(*t.Size.Constant) {
			return nil, fmt.Errorf("%s: expected %d elements, got %d", path, *t.Size.Constant, len(list))
		}
		base := module.Lookup(t.Base)
		elems := make([]any, len(list))
		for i, e := range list {
			v, err := fromGo(module, base, e, fmt.Sprintf("%s[%d]", path, i), depth+1)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return Composite{Type: t, Elems: elems}, nil

	case ir.StructType:
		fields, ok := x.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: expected a table, got %T", path, x)
		}
		zero, err := zeroInner(module, t, depth)
		if err != nil {
			return nil, err
		}
		comp := zero.(Composite)
		known := make(map[string]bool, len(fields))
		for i, base := range t.Bases {
			name := module.Types[base].Name
			if fx, ok := fields[name]; ok {
				v, err := fromGo(module, module.Lookup(base), fx, joinName(path, name), depth+1)
				if err != nil {
					return nil, err
				}
				comp.Elems[i] = v
			}
			known[name] = true
		}
		for i, m := range t.Members {
			known[m.Name] = true
			fx, ok := fields[m.Name]
			if !ok || m.Name == "" {
				continue
			}
			v, err := fromGo(module, module.Lookup(m.Type), fx, joinName(path, m.Name), depth+1)
			if err != nil {
				return nil, err
			}
			comp.Elems[len(t.Bases)+i] = v
		}
		if unknown := lo.Filter(lo.Keys(fields), func(k string, _ int) bool { return !known[k] }); len(unknown) > 0 {
			sort.Strings(unknown)
			return nil, fmt.Errorf("%s: unknown fields %v", where(path), unknown)
		}
		return comp, nil

	case ir.ResourceType, ir.ObjectType:
		name, ok := x.(string)
		if !ok {
			return nil, fmt.Errorf("%s: expected a handle name, got %T", path, x)
		}
		return Handle{Name: name, Type: inner}, nil

	default:
		return nil, fmt.Errorf("%s: unsupported type %T", path, inner)
	}
}

func where(path string) string {
	if path == "" {
		return "value"
	}
	return path
}

func joinName(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func isNested(list []any) bool {
	for _, e := range list {
		if _, ok := e.([]any); !ok {
			return false
		}
	}
	return true
}

func listFromGo(t ir.TypeInner, s ir.ScalarType, n int, x any, path string) (any, error) {
	list, ok := x.([]any)
	if !ok {
		// A single number splats.
		v, err := scalarFromGo(s, x, path)
		if err != nil {
			return nil, err
		}
		return splat(t, v, n), nil
	}
	if len(list) != n {
		return nil, fmt.Errorf("%s: expected %d components, got %d", path, n, len(list))
	}
	elems := make([]any, n)
	for i, e := range list {
		v, err := scalarFromGo(s, e, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return Composite{Type: t, Elems: elems}, nil
}

func scalarFromGo(s ir.ScalarType, x any, path string) (Scalar, error) {
	var f float64
	var i int64
	isInt := false
	switch v := x.(type) {
	case bool:
		if s.Kind == ir.ScalarBool {
			return Bool(v), nil
		}
		if v {
			f, i = 1, 1
		}
		isInt = true
	case int64:
		f, i, isInt = float64(v), v, true
	case int:
		f, i, isInt = float64(v), int64(v), true
	case float64:
		f, i = v, int64(v)
	case Scalar:
		return v, nil
	default:
		return Scalar{}, fmt.Errorf("%s: expected a number, got %T", path, x)
	}

	switch s.Kind {
	case ir.ScalarFloat:
		return Float(s, f), nil
	case ir.ScalarBool:
		return Bool(f != 0), nil
	case ir.ScalarSint:
		if !isInt && f != float64(i) {
			return Scalar{}, fmt.Errorf("%s: %g is not an integer", path, f)
		}
		return Int(s, i), nil
	default:
		if !isInt && f != float64(i) {
			return Scalar{}, fmt.Errorf("%s: %g is not an integer", path, f)
		}
		return Uint(s, uint64(i)), nil
	}
}
