// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package eval

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/gogpu/shaderabi/abi"
	"github.com/gogpu/shaderabi/ir"
)

// maxDepth bounds storage construction for self-referential types.
const maxDepth = 64

// Cell is a unit of storage. Leaf cells hold a Scalar or Handle; aggregate
// cells hold one child per Builder element index. Matrix children are in
// storage order.
type Cell struct {
	Name string
	Type ir.TypeInner

	value    any
	children []*Cell
	temp     bool
	released bool
}

// Func implements a callee for Machine.Call.
type Func func(m *Machine, args []abi.CallArg) error

// Machine is an abi.Builder that executes every operation immediately on
// concrete values and records a trace of what it did.
type Machine struct {
	module *ir.Module
	funcs  map[string]Func
	trace  []string
	temps  int
	live   int
}

var _ abi.Builder = (*Machine)(nil)

// NewMachine creates a machine for module.
func NewMachine(module *ir.Module) *Machine {
	return &Machine{
		module: module,
		funcs:  make(map[string]Func),
	}
}

// Define registers the body of a callee.
func (m *Machine) Define(name string, fn Func) {
	m.funcs[name] = fn
}

// Trace returns the recorded operations, one per entry.
func (m *Machine) Trace() []string {
	return append([]string(nil), m.trace...)
}

// ResetTrace clears the recorded operations.
func (m *Machine) ResetTrace() {
	m.trace = m.trace[:0]
}

// LiveTemps returns the number of temporaries allocated and not released.
func (m *Machine) LiveTemps() int {
	return m.live
}

func (m *Machine) record(format string, args ...any) {
	entry := fmt.Sprintf(format, args...)
	m.trace = append(m.trace, entry)
	Logger().Debug("eval", zap.String("op", entry))
}

// Variable creates zero-initialized named storage of type t.
func (m *Machine) Variable(name string, t ir.TypeHandle) (*Cell, error) {
	inner := m.module.Lookup(t)
	if inner == nil {
		return nil, fmt.Errorf("variable %s: type %d does not exist", name, t)
	}
	return m.newCell(name, inner, 0)
}

// Get reads the whole value held by c. Matrices come back in storage
// order; FromStorage turns them canonical.
func (m *Machine) Get(c *Cell) any {
	return c.read()
}

// Set writes v into c. Matrices are taken in storage order; see ToStorage.
func (m *Machine) Set(c *Cell, v any) error {
	return c.write(v)
}

func (m *Machine) newCell(name string, inner ir.TypeInner, depth int) (*Cell, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%s: type contains itself", name)
	}
	c := &Cell{Name: name, Type: inner}

	switch t := inner.(type) {
	case ir.ScalarType:
		c.value = Scalar{Type: t}
		return c, nil

	case ir.ResourceType, ir.ObjectType:
		c.value = Handle{Type: inner}
		return c, nil

	case ir.VectorType:
		for i := 0; i < int(t.Size); i++ {
			if err := c.addChild(m, fmt.Sprintf("%s[%d]", name, i), t.Scalar, depth); err != nil {
				return nil, err
			}
		}

	case ir.MatrixType:
		for i := 0; i < int(t.Rows)*int(t.Columns); i++ {
			if err := c.addChild(m, fmt.Sprintf("%s[%d]", name, i), t.Scalar, depth); err != nil {
				return nil, err
			}
		}

	case ir.ArrayType:
		if t.Size.Constant == nil {
			return nil, fmt.Errorf("%s: cannot allocate an unbounded array", name)
		}
		base := m.module.Lookup(t.Base)
		for i := uint32(0); i < *t.Size.Constant; i++ {
			if err := c.addChild(m, fmt.Sprintf("%s[%d]", name, i), base, depth); err != nil {
				return nil, err
			}
		}

	case ir.StructType:
		for _, base := range t.Bases {
			if err := c.addChild(m, name+"."+m.module.Types[base].Name, m.module.Lookup(base), depth); err != nil {
				return nil, err
			}
		}
		for _, member := range t.Members {
			if err := c.addChild(m, name+"."+member.Name, m.module.Lookup(member.Type), depth); err != nil {
				return nil, err
			}
		}

	default:
		return nil, fmt.Errorf("%s: cannot allocate %T", name, inner)
	}
	return c, nil
}

func (c *Cell) addChild(m *Machine, name string, inner ir.TypeInner, depth int) error {
	if inner == nil {
		return fmt.Errorf("%s: dangling type handle", name)
	}
	child, err := m.newCell(name, inner, depth+1)
	if err != nil {
		return err
	}
	c.children = append(c.children, child)
	return nil
}

func (c *Cell) read() any {
	if c.children == nil {
		return c.value
	}
	elems := make([]any, len(c.children))
	for i, child := range c.children {
		elems[i] = child.read()
	}
	return Composite{Type: c.Type, Elems: elems}
}

func (c *Cell) write(v any) error {
	if c.children == nil {
		switch cur := c.value.(type) {
		case Scalar:
			s, ok := v.(Scalar)
			if !ok {
				return fmt.Errorf("store to %s: expected scalar, got %T", c.Name, v)
			}
			if !storageCompatible(s.Type, cur.Type) {
				return fmt.Errorf("store to %s: %s value into %s storage",
					c.Name, ir.FormatScalar(s.Type), ir.FormatScalar(cur.Type))
			}
			c.value = Scalar{Type: cur.Type, Bits: s.Bits}
		case Handle:
			h, ok := v.(Handle)
			if !ok {
				return fmt.Errorf("store to %s: expected handle, got %T", c.Name, v)
			}
			c.value = h
		}
		return nil
	}
	comp, ok := v.(Composite)
	if !ok || len(comp.Elems) != len(c.children) {
		return fmt.Errorf("store to %s: value shape does not match %d elements", c.Name, len(c.children))
	}
	for i, child := range c.children {
		if err := child.write(comp.Elems[i]); err != nil {
			return err
		}
	}
	return nil
}

func asCell(addr abi.Address) (*Cell, error) {
	c, ok := addr.(*Cell)
	if !ok || c == nil {
		return nil, fmt.Errorf("address %v is not a machine cell", addr)
	}
	if c.released {
		return nil, fmt.Errorf("use of released temporary %s", c.Name)
	}
	return c, nil
}

// Alloca implements abi.Builder.
func (m *Machine) Alloca(t ir.TypeInner) (abi.Address, error) {
	m.temps++
	name := fmt.Sprintf("%%t%d", m.temps)
	c, err := m.newCell(name, t, 0)
	if err != nil {
		return nil, err
	}
	c.temp = true
	m.live++
	m.record("alloca %s %s", name, ir.FormatInner(m.module, t))
	return c, nil
}

// Release implements abi.Builder.
func (m *Machine) Release(addr abi.Address) {
	c, err := asCell(addr)
	if err != nil || !c.temp {
		return
	}
	c.released = true
	m.live--
	m.record("release %s", c.Name)
}

// Element implements abi.Builder.
func (m *Machine) Element(addr abi.Address, _ ir.TypeInner, index int) (abi.Address, error) {
	c, err := asCell(addr)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(c.children) {
		return nil, fmt.Errorf("element %d of %s out of range", index, c.Name)
	}
	return c.children[index], nil
}

// Load implements abi.Builder.
func (m *Machine) Load(addr abi.Address, _ ir.TypeInner) (abi.Value, error) {
	c, err := asCell(addr)
	if err != nil {
		return nil, err
	}
	m.record("load %s", c.Name)
	return c.read(), nil
}

// Store implements abi.Builder.
func (m *Machine) Store(addr abi.Address, v abi.Value, _ ir.TypeInner) error {
	c, err := asCell(addr)
	if err != nil {
		return err
	}
	m.record("store %s %v", c.Name, v)
	return c.write(v)
}

// Extract implements abi.Builder.
func (m *Machine) Extract(v abi.Value, _ ir.TypeInner, index int) (abi.Value, error) {
	comp, ok := v.(Composite)
	if !ok {
		return nil, fmt.Errorf("extract from non-aggregate %T", v)
	}
	if index < 0 || index >= len(comp.Elems) {
		return nil, fmt.Errorf("extract index %d out of range", index)
	}
	return comp.Elems[index], nil
}

// Compose implements abi.Builder.
func (m *Machine) Compose(t ir.TypeInner, parts []abi.Value) (abi.Value, error) {
	return Composite{Type: t, Elems: append([]any(nil), parts...)}, nil
}

// Cast implements abi.Builder.
func (m *Machine) Cast(op abi.Op, v abi.Value, from, to ir.ScalarType) (abi.Value, error) {
	s, ok := v.(Scalar)
	if !ok {
		return nil, fmt.Errorf("%s of non-scalar %T", op, v)
	}
	m.record("%s %s to %s", op, ir.FormatScalar(from), ir.FormatScalar(to))

	switch op {
	case abi.OpTrunc, abi.OpZExt, abi.OpBitcast:
		return Uint(to, s.Uint64()), nil
	case abi.OpSExt:
		return Int(to, s.Int64()), nil
	case abi.OpSIToFP:
		return Float(to, float64(s.Int64())), nil
	case abi.OpUIToFP:
		return Float(to, float64(s.Uint64())), nil
	case abi.OpFPToSI:
		return Int(to, floatToInt(s.Float64(), to.Width)), nil
	case abi.OpFPToUI:
		return Uint(to, floatToUint(s.Float64(), to.Width)), nil
	case abi.OpFPExt, abi.OpFPTrunc:
		return Float(to, s.Float64()), nil
	default:
		return nil, fmt.Errorf("unsupported cast %s", op)
	}
}

// floatToInt truncates toward zero and saturates to the signed range.
func floatToInt(f float64, width uint8) int64 {
	if math.IsNaN(f) {
		return 0
	}
	bits := uint(width) * 8
	lo := -math.Ldexp(1, int(bits)-1)
	hi := math.Ldexp(1, int(bits)-1) - 1
	f = math.Trunc(f)
	switch {
	case f <= lo:
		return int64(-1) << (bits - 1)
	case f >= hi:
		return int64(uint64(1)<<(bits-1) - 1)
	}
	return int64(f)
}

// floatToUint truncates toward zero and saturates to the unsigned range.
func floatToUint(f float64, width uint8) uint64 {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	bits := uint(width) * 8
	f = math.Trunc(f)
	if f >= math.Ldexp(1, int(bits)) {
		return widthMask(width)
	}
	return uint64(f)
}

// NotZero implements abi.Builder.
func (m *Machine) NotZero(v abi.Value, from ir.ScalarType) (abi.Value, error) {
	s, ok := v.(Scalar)
	if !ok {
		return nil, fmt.Errorf("notzero of non-scalar %T", v)
	}
	m.record("notzero %s", ir.FormatScalar(from))
	if from.Kind == ir.ScalarFloat {
		return Bool(s.Float64() != 0), nil
	}
	return Bool(s.Uint64() != 0), nil
}

// Clamp implements abi.Builder.
func (m *Machine) Clamp(v abi.Value, st ir.ScalarType, lo, hi float64) (abi.Value, error) {
	s, ok := v.(Scalar)
	if !ok {
		return nil, fmt.Errorf("clamp of non-scalar %T", v)
	}
	m.record("clamp %s [%g, %g]", ir.FormatScalar(st), lo, hi)
	return Float(st, math.Min(math.Max(s.Float64(), lo), hi)), nil
}

// Narrow implements abi.Builder.
func (m *Machine) Narrow(v abi.Value, st ir.ScalarType, width uint8) (abi.Value, error) {
	s, ok := v.(Scalar)
	if !ok {
		return nil, fmt.Errorf("narrow of non-scalar %T", v)
	}
	m.record("narrow %s to %d bits", ir.FormatScalar(st), width)
	return Uint(st, fieldBits(s.Bits, width, st.Kind.IsSigned())), nil
}

// Annotate implements abi.Builder.
func (m *Machine) Annotate(handle abi.Value, t ir.TypeInner, coherent bool) (abi.Value, error) {
	h, ok := handle.(Handle)
	if !ok {
		return nil, fmt.Errorf("annotate of non-handle %T", handle)
	}
	m.record("annotate %s coherent=%t", h, coherent)
	h.Type = t
	h.Coherent = coherent
	return h, nil
}

// ReplaceUses implements abi.Builder. The interpreter has no use lists, so
// the replacement's contents are written through to old.
func (m *Machine) ReplaceUses(old, replacement abi.Address) error {
	oc, err := asCell(old)
	if err != nil {
		return err
	}
	rc, err := asCell(replacement)
	if err != nil {
		return err
	}
	m.record("replace %s with %s", oc.Name, rc.Name)
	return oc.write(rc.read())
}

// Call implements abi.Builder.
func (m *Machine) Call(callee *ir.Function, args []abi.CallArg) error {
	names := make([]string, len(args))
	for i, a := range args {
		c, err := asCell(a.Address)
		if err != nil {
			return fmt.Errorf("call %s argument %d: %w", callee.Name, i, err)
		}
		names[i] = a.Direction.String() + " " + c.Name
	}
	m.record("call %s(%s)", callee.Name, strings.Join(names, ", "))

	fn, ok := m.funcs[callee.Name]
	if !ok {
		return nil
	}
	return fn(m, args)
}
