// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package layout

import (
	"github.com/gogpu/shaderabi/ir"
)

// Descriptor is the computed placement of one type or field.
//
// Offsets are absolute within the enclosing buffer (or relative to the start
// offset passed to PlanLayout). Nested descriptors of a resource's result
// type are the exception: they are planned independently from offset 0.
type Descriptor struct {
	// Name is the member name, the base struct name for a base group, or
	// empty for a top-level type or array element.
	Name string

	// Type is the laid out type.
	Type ir.TypeHandle

	// Member is the index of the struct member this descriptor places, or
	// of the base when Base is set. It is -1 for array elements, resource
	// results and top-level descriptors.
	Member int

	// Base is set on descriptors that place a base struct.
	Base bool

	// Offset is the byte offset of the first byte.
	Offset uint32

	// Size is the byte size, excluding trailing register padding.
	Size uint32

	// Stride is the element stride of an array, or the padded distance
	// between storage vectors of a matrix.
	Stride uint32

	// Count is the element count of an array, 0 when unbounded.
	Count uint32

	// Orientation is the resolved storage orientation of a matrix.
	Orientation ir.MatrixOrientation

	// Fields holds nested descriptors: bases then members for structs, the
	// element for arrays and the result type for resources.
	Fields []*Descriptor

	// BitFields lists the bit-field members packed into this storage unit.
	BitFields []BitField

	// Resource holds resolved resource properties for resource types.
	Resource *ResourceProperties

	// Conflict is set when an explicit placement disagreed with the
	// computed offset; Fields are then left unrefined.
	Conflict bool
}

// BitField is one member of a bit-field run sharing a storage unit.
type BitField struct {
	Name      string
	Member    int
	BitOffset uint8
	BitWidth  uint8
}

// End returns the offset one past the last byte.
func (d *Descriptor) End() uint32 {
	return d.Offset + d.Size
}

// Field returns the nested descriptor with the given name.
func (d *Descriptor) Field(name string) (*Descriptor, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
		for _, bf := range f.BitFields {
			if bf.Name == name {
				return f, true
			}
		}
	}
	// Members of bases are reachable by name as well.
	for _, f := range d.Fields {
		if f.Base {
			if nested, ok := f.Field(name); ok {
				return nested, true
			}
		}
	}
	return nil, false
}

// Lookup follows a path of member names.
func (d *Descriptor) Lookup(path ...string) (*Descriptor, bool) {
	cur := d
	for _, name := range path {
		next, ok := cur.Field(name)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Walk calls fn for d and every nested descriptor in pre-order.
func (d *Descriptor) Walk(fn func(depth int, d *Descriptor)) {
	d.walk(0, fn)
}

func (d *Descriptor) walk(depth int, fn func(int, *Descriptor)) {
	fn(depth, d)
	for _, f := range d.Fields {
		f.walk(depth+1, fn)
	}
}

// rebase shifts d and its nested descriptors by delta in place.
// Result-type descriptors under a resource keep their own offsets.
func (d *Descriptor) rebase(delta uint32) {
	if delta == 0 {
		return
	}
	d.Offset += delta
	if d.Resource != nil {
		return
	}
	for _, f := range d.Fields {
		f.rebase(delta)
	}
}

// clone returns a deep copy of d with every offset shifted by delta.
// Result-type descriptors under a resource are not shifted.
func (d *Descriptor) clone(delta uint32) *Descriptor {
	c := *d
	c.Offset += delta
	if d.Fields != nil {
		c.Fields = make([]*Descriptor, len(d.Fields))
		shift := delta
		if d.Resource != nil {
			shift = 0
		}
		for i, f := range d.Fields {
			c.Fields[i] = f.clone(shift)
		}
	}
	if d.BitFields != nil {
		c.BitFields = append([]BitField(nil), d.BitFields...)
	}
	if d.Resource != nil {
		r := *d.Resource
		c.Resource = &r
	}
	return &c
}

// BufferLayout is the planned layout of one constant buffer.
type BufferLayout struct {
	Name    string
	Buffer  ir.BufferHandle
	Binding *ir.ResourceBinding

	// Root is the descriptor of the buffer's body struct at offset 0.
	Root *Descriptor

	// Size is the byte size of the buffer contents.
	Size uint32

	// Diagnostics holds the user diagnostics reported for this buffer.
	Diagnostics Diagnostics
}

// Registers returns the number of 16-byte registers the buffer occupies.
func (b *BufferLayout) Registers() uint32 {
	return alignUp(b.Size, RegisterSize) / RegisterSize
}
