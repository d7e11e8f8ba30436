// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package layout

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/gogpu/shaderabi/ir"
	"github.com/gogpu/shaderabi/matrix"
)

// RegisterSize is the size in bytes of one constant buffer register.
const RegisterSize = matrix.RegisterSize

// alignUp rounds offset up to the next multiple of alignment.
func alignUp(offset, alignment uint32) uint32 {
	if alignment == 0 {
		return offset
	}
	return (offset + alignment - 1) / alignment * alignment
}

type cacheKey struct {
	typ         ir.TypeHandle
	orientation ir.MatrixOrientation
}

// Context plans legacy constant buffer layouts for one translation unit.
//
// Struct layouts are cached per (type, default orientation) once fully
// computed. A Context is not safe for concurrent use.
type Context struct {
	module  *ir.Module
	options Options

	cache  map[cacheKey]*Descriptor
	active map[ir.TypeHandle]bool

	hits   int
	misses int
}

// NewContext creates a planning context for module. A nil opts uses
// DefaultOptions.
func NewContext(module *ir.Module, opts *Options) *Context {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Context{
		module:  module,
		options: *opts,
		cache:   make(map[cacheKey]*Descriptor),
		active:  make(map[ir.TypeHandle]bool),
	}
}

// Module returns the module being planned.
func (c *Context) Module() *ir.Module {
	return c.module
}

// Options returns the planning options.
func (c *Context) Options() Options {
	return c.options
}

// CacheStats returns the number of struct layouts served from the cache
// and the number computed.
func (c *Context) CacheStats() (hits, misses int) {
	return c.hits, c.misses
}

// PlanLayout computes the descriptor tree of typ placed at start.
// An unspecified def falls back to the context's default orientation.
// The returned descriptor is owned by the caller.
func (c *Context) PlanLayout(typ ir.TypeHandle, start uint32, def ir.MatrixOrientation) (*Descriptor, uint32, error) {
	if def == ir.OrientationUnspecified {
		def = c.options.DefaultOrientation
	}
	d, err := c.plan(typ, def)
	if err != nil {
		return nil, 0, err
	}
	d.rebase(start)
	return d, d.Size, nil
}

// PlanBuffer computes the layout of a constant buffer and validates explicit
// member placements against it. Placement problems are reported in the
// returned layout's Diagnostics; the error is reserved for types that
// cannot be laid out at all.
func (c *Context) PlanBuffer(handle ir.BufferHandle) (*BufferLayout, error) {
	if int(handle) >= len(c.module.ConstantBuffers) {
		return nil, NewError(ErrInvalidType, "", "", fmt.Sprintf("constant buffer %d out of range", handle))
	}
	cb := &c.module.ConstantBuffers[handle]
	st, ok := c.module.Lookup(cb.Type).(ir.StructType)
	if !ok {
		return nil, NewError(ErrInvalidType, cb.Name, "", "constant buffer body must be a struct")
	}

	root, size, err := c.PlanLayout(cb.Type, 0, c.options.DefaultOrientation)
	if err != nil {
		return nil, fmt.Errorf("cbuffer %s: %w", cb.Name, err)
	}

	bl := &BufferLayout{
		Name:    cb.Name,
		Buffer:  handle,
		Binding: cb.Binding,
		Root:    root,
		Size:    size,
	}
	c.checkPlacement(bl, st)

	Logger().Debug("planned cbuffer",
		zap.String("buffer", cb.Name),
		zap.Uint32("size", bl.Size),
		zap.Uint32("registers", bl.Registers()),
		zap.Int("diagnostics", len(bl.Diagnostics)))
	return bl, nil
}

// PlanModule plans every constant buffer in the module. Layouts are returned
// for every buffer that could be planned; the error combines planning
// failures with all user diagnostics.
func (c *Context) PlanModule() ([]*BufferLayout, error) {
	var (
		layouts []*BufferLayout
		errs    error
	)
	for i := range c.module.ConstantBuffers {
		bl, err := c.PlanBuffer(ir.BufferHandle(i))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		layouts = append(layouts, bl)
		errs = multierr.Append(errs, bl.Diagnostics.Err())
	}
	return layouts, errs
}

// checkPlacement validates packoffset-style placements of the buffer's own
// members. Mismatches are reported and the field is left unrefined.
func (c *Context) checkPlacement(bl *BufferLayout, st ir.StructType) {
	explicit, implicit := 0, 0
	for _, m := range st.Members {
		if m.BitWidth != nil && *m.BitWidth == 0 {
			continue
		}
		if c.module.IsOpaque(m.Type) {
			continue
		}
		if m.Placement != nil {
			explicit++
		} else {
			implicit++
		}
	}
	if explicit > 0 && implicit > 0 {
		bl.Diagnostics.Add(NewError(ErrMixedPlacementPolicy, bl.Name, "",
			fmt.Sprintf("%d members have explicit offsets and %d do not", explicit, implicit)))
	}

	for i, m := range st.Members {
		if m.Placement == nil {
			continue
		}
		d := memberDescriptor(bl.Root, i)
		if d == nil || *m.Placement == d.Offset {
			continue
		}
		bl.Diagnostics.Add(NewError(ErrLayoutConflict, bl.Name, m.Name,
			fmt.Sprintf("explicit offset %d does not match computed offset %d", *m.Placement, d.Offset)))
		d.Fields = nil
		d.Conflict = true
	}
}

func memberDescriptor(root *Descriptor, member int) *Descriptor {
	for _, f := range root.Fields {
		if f.Base {
			continue
		}
		if f.Member == member {
			return f
		}
		for _, bf := range f.BitFields {
			if bf.Member == member {
				return f
			}
		}
	}
	return nil
}

// plan returns a fresh descriptor for typ at offset 0.
func (c *Context) plan(typ ir.TypeHandle, def ir.MatrixOrientation) (*Descriptor, error) {
	inner := c.module.Lookup(typ)
	if inner == nil {
		return nil, NewError(ErrInvalidType, "", "", fmt.Sprintf("type handle %d out of range", typ))
	}

	switch inner := inner.(type) {
	case ir.ScalarType:
		if inner.Width == 0 {
			return nil, NewError(ErrUnsupportedLeafType, ir.Format(c.module, typ), "", "scalar width is zero")
		}
		return &Descriptor{Type: typ, Member: -1, Size: uint32(inner.Width)}, nil

	case ir.VectorType:
		if inner.Size < 1 || inner.Size > 4 || inner.Scalar.Width == 0 {
			return nil, NewError(ErrUnsupportedLeafType, ir.Format(c.module, typ), "", "malformed vector")
		}
		return &Descriptor{Type: typ, Member: -1, Size: uint32(inner.Size) * uint32(inner.Scalar.Width)}, nil

	case ir.MatrixType:
		if err := matrix.Check(inner); err != nil {
			return nil, NewError(ErrInvalidMatrixShape, ir.Format(c.module, typ), "", err.Error())
		}
		o := matrix.Resolve(inner.Orientation, def)
		return &Descriptor{
			Type:        typ,
			Member:      -1,
			Size:        matrix.ByteSize(inner, o),
			Stride:      matrix.RowStride(inner, o),
			Orientation: o,
		}, nil

	case ir.ArrayType:
		return c.planArray(typ, inner, def)

	case ir.StructType:
		return c.planStruct(typ, inner, def)

	case ir.ResourceType:
		return c.planResource(typ, inner, def)

	case ir.ObjectType:
		return &Descriptor{Type: typ, Member: -1}, nil

	default:
		return nil, NewError(ErrUnsupportedLeafType, ir.Format(c.module, typ), "", fmt.Sprintf("unhandled type %T", inner))
	}
}

func (c *Context) planArray(typ ir.TypeHandle, arr ir.ArrayType, def ir.MatrixOrientation) (*Descriptor, error) {
	elem, err := c.plan(arr.Base, def)
	if err != nil {
		return nil, err
	}
	stride := alignUp(elem.Size, RegisterSize)
	d := &Descriptor{
		Type:   typ,
		Member: -1,
		Stride: stride,
		Fields: []*Descriptor{elem},
	}
	if arr.Size.Constant != nil && *arr.Size.Constant > 0 {
		d.Count = *arr.Size.Constant
		d.Size = stride*(d.Count-1) + elem.Size
	}
	return d, nil
}

func (c *Context) planStruct(typ ir.TypeHandle, st ir.StructType, def ir.MatrixOrientation) (*Descriptor, error) {
	key := cacheKey{typ: typ, orientation: def}
	if cached, ok := c.cache[key]; ok {
		c.hits++
		return cached.clone(0), nil
	}

	name := ir.Format(c.module, typ)
	if c.active[typ] {
		return nil, NewError(ErrRecursiveSelfReference, name, "", "struct contains itself")
	}
	c.active[typ] = true
	defer delete(c.active, typ)

	b := &structBuilder{ctx: c, name: name}

	for i, base := range st.Bases {
		bd, err := c.plan(base, def)
		if err != nil {
			return nil, annotate(err, name, "")
		}
		if bd.Size == 0 && len(bd.Fields) == 0 {
			continue
		}
		bd.Name = c.module.Types[base].Name
		bd.Member = i
		bd.Base = true
		b.place(bd, c.module.Lookup(base))
	}

	for i, m := range st.Members {
		if m.BitWidth != nil {
			if err := b.bitField(i, m); err != nil {
				return nil, err
			}
			continue
		}
		b.run = nil

		fd, err := c.plan(m.Type, def)
		if err != nil {
			return nil, annotate(err, name, m.Name)
		}
		fd.Name = m.Name
		fd.Member = i
		b.place(fd, c.module.Lookup(m.Type))
	}

	d := &Descriptor{
		Type:   typ,
		Member: -1,
		Size:   b.offset,
		Fields: b.fields,
	}
	c.misses++
	c.cache[key] = d.clone(0)
	return d, nil
}

// annotate records the innermost struct member that failed.
func annotate(err error, typ, field string) error {
	var le *Error
	if errors.As(err, &le) && le.Field == "" {
		le.Type = typ
		le.Field = field
	}
	return err
}

// fieldOffset returns where a field of the given type may start at or after
// offset, and whether the register packing rules moved it to a new register.
func (c *Context) fieldOffset(offset uint32, d *Descriptor, inner ir.TypeInner) (uint32, bool) {
	newRegister := false
	switch inner := inner.(type) {
	case ir.ScalarType:
		offset = alignUp(offset, uint32(inner.Width))
		newRegister = offset%RegisterSize+d.Size > RegisterSize

	case ir.VectorType:
		offset = alignUp(offset, uint32(inner.Scalar.Width))
		newRegister = offset%RegisterSize+d.Size > RegisterSize

	case ir.MatrixType:
		offset = alignUp(offset, uint32(inner.Scalar.Width))
		remaining := RegisterSize - offset%RegisterSize
		major, _ := matrix.MajorMinor(inner.Rows, inner.Columns, d.Orientation)
		newRegister = matrix.RowBytes(inner, d.Orientation) > remaining ||
			(c.options.MatrixStartsRegister && major > 1)

	case ir.ArrayType:
		newRegister = d.Size > 0

	case ir.StructType:
		newRegister = d.Size > 0 || c.options.ZeroSizeStructStartsRegister
	}

	if newRegister {
		aligned := alignUp(offset, RegisterSize)
		return aligned, aligned != offset
	}
	return offset, false
}

// structBuilder accumulates the fields of one struct layout.
type structBuilder struct {
	ctx    *Context
	name   string
	offset uint32
	fields []*Descriptor
	run    *bitFieldRun
}

type bitFieldRun struct {
	unit   *Descriptor
	scalar ir.ScalarType
	used   uint8
}

func (b *structBuilder) place(d *Descriptor, inner ir.TypeInner) {
	offset, bumped := b.ctx.fieldOffset(b.offset, d, inner)
	d.rebase(offset)
	b.fields = append(b.fields, d)
	b.offset = d.End()

	Logger().Debug("placed field",
		zap.String("struct", b.name),
		zap.String("field", d.Name),
		zap.Uint32("offset", d.Offset),
		zap.Uint32("size", d.Size),
		zap.Bool("newRegister", bumped))
}

func (b *structBuilder) bitField(member int, m ir.StructMember) error {
	width := *m.BitWidth
	if width == 0 {
		b.run = nil
		return nil
	}

	s, ok := b.ctx.module.Lookup(m.Type).(ir.ScalarType)
	if !ok || !s.Kind.IsInteger() || s.Kind.IsPacked() {
		return NewError(ErrUnsupportedLeafType, b.name, m.Name, "bit-field requires an integer scalar type")
	}
	if int(width) > int(s.Width)*8 {
		return NewError(ErrUnsupportedLeafType, b.name, m.Name,
			fmt.Sprintf("bit-field width %d exceeds %d-bit type", width, int(s.Width)*8))
	}

	if r := b.run; r != nil && r.scalar == s && int(r.used)+int(width) <= int(s.Width)*8 {
		r.unit.BitFields = append(r.unit.BitFields, BitField{
			Name:      m.Name,
			Member:    member,
			BitOffset: r.used,
			BitWidth:  width,
		})
		r.used += width
		return nil
	}

	unit := &Descriptor{
		Name:   m.Name,
		Type:   m.Type,
		Member: member,
		Size:   uint32(s.Width),
		BitFields: []BitField{{
			Name:     m.Name,
			Member:   member,
			BitWidth: width,
		}},
	}
	b.place(unit, s)
	b.run = &bitFieldRun{unit: unit, scalar: s, used: width}
	return nil
}
