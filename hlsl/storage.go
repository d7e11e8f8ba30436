// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/shaderabi/ir"
	"github.com/gogpu/shaderabi/layout"
)

// bufferMember is one member written into a cbuffer, with the descriptor
// that places it. Members of the body's bases are written inline.
type bufferMember struct {
	owner  ir.TypeHandle
	index  int
	member ir.StructMember
	desc   *layout.Descriptor
	bit    *layout.BitField
}

func (w *Writer) bufferMembers(body ir.TypeHandle, d *layout.Descriptor, out []bufferMember) []bufferMember {
	st := w.module.Lookup(body).(ir.StructType)
	for i, base := range st.Bases {
		var bd *layout.Descriptor
		if d != nil {
			for _, f := range d.Fields {
				if f.Base && f.Member == i {
					bd = f
					break
				}
			}
		}
		out = w.bufferMembers(base, bd, out)
	}

	for i, m := range st.Members {
		e := bufferMember{owner: body, index: i, member: m}
		if d != nil {
			e.desc, e.bit = memberDescriptor(d, i)
		}
		out = append(out, e)
	}
	return out
}

func memberDescriptor(d *layout.Descriptor, member int) (*layout.Descriptor, *layout.BitField) {
	for _, f := range d.Fields {
		if f.Base {
			continue
		}
		for j := range f.BitFields {
			if f.BitFields[j].Member == member {
				return f, &f.BitFields[j]
			}
		}
		if f.Member == member && f.BitFields == nil {
			return f, nil
		}
	}
	return nil, nil
}

// canPackoffset reports whether every placed member can be annotated.
// packoffset addresses 4-byte components and cannot place bit-fields.
func (w *Writer) canPackoffset(members []bufferMember) bool {
	for _, e := range members {
		if e.member.BitWidth != nil {
			return false
		}
		if w.module.IsOpaque(e.member.Type) {
			continue
		}
		if e.desc == nil || e.desc.Offset%4 != 0 {
			return false
		}
	}
	return true
}

// writeConstantBuffer writes a cbuffer block for one planned buffer.
func (w *Writer) writeConstantBuffer(bl *layout.BufferLayout) error {
	cb := &w.module.ConstantBuffers[bl.Buffer]
	buffer := 0
	for i, other := range w.layouts {
		if other == bl {
			buffer = i + 1
			break
		}
	}

	target, err := w.bindTarget(bl)
	if err != nil {
		return err
	}
	register := target.Format(RegisterTypeB, w.options.ShaderModel)
	w.registerBindings[bl.Name] = register

	members := w.bufferMembers(cb.Type, bl.Root, nil)
	for _, e := range members {
		if e.desc != nil && e.desc.Conflict && !w.options.AllowConflicts {
			return &Error{Kind: ErrLayoutConflict, Buffer: bl.Name,
				Message: fmt.Sprintf("member %s does not fit its explicit offset", e.member.Name)}
		}
	}

	packoffset := w.options.Packoffset
	if packoffset && !w.canPackoffset(members) {
		packoffset = false
		w.packoffsetOmitted = append(w.packoffsetOmitted, bl.Name)
	}

	w.writeLine("cbuffer %s : %s {", w.bufferNames[bl.Name], register)
	w.pushIndent()
	for _, e := range members {
		name := w.memberNames[memberKey{typ: e.owner, member: e.index, buffer: buffer}]
		decl, err := w.memberDecl(e.owner, e.member, name)
		if err != nil {
			return err
		}

		var line strings.Builder
		line.WriteString(decl)
		if packoffset && e.desc != nil && !w.module.IsOpaque(e.member.Type) {
			line.WriteString(" : ")
			line.WriteString(packoffsetAnnotation(e.desc.Offset))
		}
		line.WriteByte(';')

		if comments := w.memberComments(e); len(comments) > 0 {
			line.WriteString(" // ")
			line.WriteString(strings.Join(comments, "; "))
		}
		w.writeLine("%s", line.String())
	}
	w.popIndent()
	w.writeLine("};")
	w.writeLine("")
	return nil
}

func (w *Writer) memberComments(e bufferMember) []string {
	var comments []string
	if e.desc != nil && e.desc.Conflict && e.member.Placement != nil {
		comments = append(comments, fmt.Sprintf("layout conflict: requested offset %d", *e.member.Placement))
	}
	if !w.options.OffsetComments || e.desc == nil {
		return comments
	}
	if e.bit != nil {
		comments = append(comments, fmt.Sprintf("offset %d, bits %d..%d",
			e.desc.Offset, e.bit.BitOffset, int(e.bit.BitOffset)+int(e.bit.BitWidth)-1))
	} else {
		comments = append(comments, fmt.Sprintf("offset %d, size %d", e.desc.Offset, e.desc.Size))
	}
	return comments
}

// packoffsetAnnotation formats a byte offset as packoffset(cN) or
// packoffset(cN.y).
func packoffsetAnnotation(offset uint32) string {
	register := offset / layout.RegisterSize
	component := offset % layout.RegisterSize / 4
	if component == 0 {
		return fmt.Sprintf("packoffset(c%d)", register)
	}
	return fmt.Sprintf("packoffset(c%d.%c)", register, components[component])
}

// explicitTarget returns the binding requested for a buffer, if any.
func (w *Writer) explicitTarget(bl *layout.BufferLayout) (BindTarget, bool) {
	if target, ok := w.options.BindingMap[bl.Name]; ok {
		return target, true
	}
	if bl.Binding != nil {
		return BindTargetFrom(*bl.Binding), true
	}
	return BindTarget{}, false
}

// bindTarget resolves the register of a buffer, faking one if allowed.
func (w *Writer) bindTarget(bl *layout.BufferLayout) (BindTarget, error) {
	if target, ok := w.explicitTarget(bl); ok {
		return target, nil
	}
	if !w.options.FakeMissingBindings {
		return BindTarget{}, &Error{Kind: ErrMissingBinding, Buffer: bl.Name,
			Message: "no register binding"}
	}
	for w.usedRegisters[DefaultBindTarget().WithRegister(w.nextRegister)] {
		w.nextRegister++
	}
	target := DefaultBindTarget().WithRegister(w.nextRegister)
	w.usedRegisters[target] = true
	w.nextRegister++
	return target, nil
}
