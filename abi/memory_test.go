// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package abi

import (
	"fmt"
	"math"

	"github.com/gogpu/shaderabi/ir"
)

// memBuilder is a Builder that interprets every instruction against an
// in-memory object graph. Aggregates are []Value in Element order, floats
// are float64, integers int64 and handles are handle values.
type memBuilder struct {
	module *ir.Module

	live     map[*cell]bool
	allocas  int
	casts    []Op
	replaced [][2]Address
	calls    int
	narrowed int

	// onCall runs as the callee body.
	onCall func(args []CallArg)
}

type cell struct {
	v Value
}

type ref struct {
	root *cell
	path []int
}

type handle struct {
	name     string
	coherent bool
}

func newMemBuilder(module *ir.Module) *memBuilder {
	return &memBuilder{module: module, live: make(map[*cell]bool)}
}

// global allocates caller storage holding v.
func (b *memBuilder) global(v Value) *ref {
	return &ref{root: &cell{v: clone(v)}}
}

func (b *memBuilder) read(addr Address) Value {
	r := addr.(*ref)
	v := r.root.v
	for _, i := range r.path {
		v = v.([]Value)[i]
	}
	return clone(v)
}

func (b *memBuilder) zero(t ir.TypeInner) Value {
	switch t := t.(type) {
	case ir.ScalarType:
		switch t.Kind {
		case ir.ScalarFloat:
			return 0.0
		case ir.ScalarBool:
			return false
		default:
			return int64(0)
		}
	case ir.VectorType:
		return b.zeros(t.Scalar, int(t.Size))
	case ir.MatrixType:
		return b.zeros(t.Scalar, int(t.Rows)*int(t.Columns))
	case ir.ArrayType:
		n := 0
		if t.Size.Constant != nil {
			n = int(*t.Size.Constant)
		}
		out := make([]Value, n)
		for i := range out {
			out[i] = b.zero(b.module.Lookup(t.Base))
		}
		return out
	case ir.StructType:
		var out []Value
		for _, base := range t.Bases {
			out = append(out, b.zero(b.module.Lookup(base)))
		}
		for _, m := range t.Members {
			out = append(out, b.zero(b.module.Lookup(m.Type)))
		}
		return out
	case ir.ResourceType:
		return handle{name: t.Name}
	case ir.ObjectType:
		return handle{name: t.Name}
	default:
		return nil
	}
}

func (b *memBuilder) zeros(s ir.ScalarType, n int) []Value {
	out := make([]Value, n)
	for i := range out {
		out[i] = b.zero(s)
	}
	return out
}

func clone(v Value) Value {
	if vs, ok := v.([]Value); ok {
		out := make([]Value, len(vs))
		for i, e := range vs {
			out[i] = clone(e)
		}
		return out
	}
	return v
}

func (b *memBuilder) Alloca(t ir.TypeInner) (Address, error) {
	c := &cell{v: b.zero(t)}
	b.live[c] = true
	b.allocas++
	return &ref{root: c}, nil
}

func (b *memBuilder) Release(addr Address) {
	delete(b.live, addr.(*ref).root)
}

func (b *memBuilder) Element(addr Address, _ ir.TypeInner, index int) (Address, error) {
	r := addr.(*ref)
	path := append(append([]int(nil), r.path...), index)
	return &ref{root: r.root, path: path}, nil
}

func (b *memBuilder) Load(addr Address, _ ir.TypeInner) (Value, error) {
	return b.read(addr), nil
}

func (b *memBuilder) Store(addr Address, v Value, _ ir.TypeInner) error {
	r := addr.(*ref)
	if len(r.path) == 0 {
		r.root.v = clone(v)
		return nil
	}
	cur := r.root.v
	for _, i := range r.path[:len(r.path)-1] {
		cur = cur.([]Value)[i]
	}
	cur.([]Value)[r.path[len(r.path)-1]] = clone(v)
	return nil
}

func (b *memBuilder) Extract(v Value, t ir.TypeInner, index int) (Value, error) {
	vs, ok := v.([]Value)
	if !ok || index >= len(vs) {
		return nil, fmt.Errorf("extract %d from %T", index, t)
	}
	return vs[index], nil
}

func (b *memBuilder) Compose(_ ir.TypeInner, parts []Value) (Value, error) {
	return clone(parts), nil
}

func (b *memBuilder) Cast(op Op, v Value, _, to ir.ScalarType) (Value, error) {
	b.casts = append(b.casts, op)
	if to.Kind == ir.ScalarFloat {
		return asFloat(v), nil
	}
	switch x := v.(type) {
	case float64:
		return int64(x), nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return v, nil
	}
}

func (b *memBuilder) NotZero(v Value, _ ir.ScalarType) (Value, error) {
	return asFloat(v) != 0, nil
}

func (b *memBuilder) Clamp(v Value, _ ir.ScalarType, lo, hi float64) (Value, error) {
	return math.Min(math.Max(asFloat(v), lo), hi), nil
}

func (b *memBuilder) Narrow(v Value, s ir.ScalarType, width uint8) (Value, error) {
	x, ok := v.(int64)
	if !ok {
		return nil, fmt.Errorf("narrow %T", v)
	}
	b.narrowed++
	shift := 64 - uint(width)
	if s.Kind.IsSigned() {
		return x << shift >> shift, nil
	}
	return int64(uint64(x) << shift >> shift), nil
}

func (b *memBuilder) Annotate(h Value, _ ir.TypeInner, coherent bool) (Value, error) {
	hd, ok := h.(handle)
	if !ok {
		return nil, fmt.Errorf("annotate %T", h)
	}
	hd.coherent = coherent
	return hd, nil
}

func (b *memBuilder) ReplaceUses(old, replacement Address) error {
	b.replaced = append(b.replaced, [2]Address{old, replacement})
	return nil
}

func (b *memBuilder) Call(_ *ir.Function, args []CallArg) error {
	b.calls++
	if b.onCall != nil {
		b.onCall(args)
	}
	return nil
}

func asFloat(v Value) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return math.NaN()
	}
}
