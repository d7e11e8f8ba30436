// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/shaderabi/ir"
	"github.com/gogpu/shaderabi/layout"
)

// components names the 4-byte slots of a register.
const components = "xyzw"

// memberKey identifies a struct member. Members written into a cbuffer are
// named in the global namespace and keyed by the 1-based buffer index; 0 is
// the struct's own scope.
type memberKey struct {
	typ    ir.TypeHandle
	member int
	buffer int
}

// Writer generates HLSL declarations from IR types and buffer layouts.
type Writer struct {
	module  *ir.Module
	layouts []*layout.BufferLayout
	options *Options

	// Output buffer
	out strings.Builder

	// Current indentation level
	indent int

	// Name management
	namer       *namer
	typeNames   map[ir.TypeHandle]string
	memberNames map[memberKey]string

	// Struct ordering
	order    []ir.TypeHandle
	visited  map[ir.TypeHandle]bool
	visiting map[ir.TypeHandle]bool

	// Output tracking
	usedFeatures      FeatureFlags
	bufferNames       map[string]string
	structNames       []string
	registerBindings  map[string]string
	packoffsetOmitted []string
	usedRegisters     map[BindTarget]bool
	nextRegister      uint32
}

func newWriter(module *ir.Module, layouts []*layout.BufferLayout, options *Options) *Writer {
	return &Writer{
		module:           module,
		layouts:          layouts,
		options:          options,
		namer:            newNamer(),
		typeNames:        make(map[ir.TypeHandle]string),
		memberNames:      make(map[memberKey]string),
		visited:          make(map[ir.TypeHandle]bool),
		visiting:         make(map[ir.TypeHandle]bool),
		bufferNames:      make(map[string]string),
		registerBindings: make(map[string]string),
		usedRegisters:    make(map[BindTarget]bool),
	}
}

// String returns the generated HLSL source code.
func (w *Writer) String() string {
	return w.out.String()
}

// writeModule generates declarations for every planned buffer.
func (w *Writer) writeModule() error {
	// 1. Collect the structs the buffers reference, dependencies first
	for _, bl := range w.layouts {
		cb, err := w.buffer(bl)
		if err != nil {
			return err
		}
		if err := w.collectBody(cb.Type); err != nil {
			return err
		}
	}

	// 2. Register all names
	w.registerNames()

	// 3. Reserve explicit registers so faked bindings avoid them
	for _, bl := range w.layouts {
		if target, ok := w.explicitTarget(bl); ok {
			w.usedRegisters[target] = true
		}
	}

	// 4. Write struct definitions
	for _, h := range w.order {
		if err := w.writeStruct(h); err != nil {
			return err
		}
	}

	// 5. Write constant buffers
	for _, bl := range w.layouts {
		if err := w.writeConstantBuffer(bl); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) buffer(bl *layout.BufferLayout) (*ir.ConstantBuffer, error) {
	if bl == nil || bl.Root == nil {
		return nil, NewError(ErrInvalidModule, "buffer layout has no root descriptor")
	}
	if int(bl.Buffer) >= len(w.module.ConstantBuffers) {
		return nil, &Error{Kind: ErrInvalidModule, Buffer: bl.Name,
			Message: fmt.Sprintf("buffer handle %d out of range", bl.Buffer)}
	}
	return &w.module.ConstantBuffers[bl.Buffer], nil
}

// collectBody collects the structs referenced by a buffer body. The body
// itself is written as the cbuffer, its bases inline.
func (w *Writer) collectBody(body ir.TypeHandle) error {
	st, ok := w.module.Lookup(body).(ir.StructType)
	if !ok {
		return NewError(ErrInvalidModule, fmt.Sprintf("buffer body %s is not a struct", ir.Format(w.module, body)))
	}
	for _, base := range st.Bases {
		if err := w.collectBody(base); err != nil {
			return err
		}
	}
	for _, m := range st.Members {
		if err := w.collect(m.Type); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) collect(h ir.TypeHandle) error {
	switch inner := w.module.Lookup(h).(type) {
	case ir.StructType:
		if w.visited[h] {
			return nil
		}
		if w.visiting[h] {
			return NewError(ErrUnsupportedType, fmt.Sprintf("struct %s contains itself", ir.Format(w.module, h)))
		}
		w.visiting[h] = true
		for _, base := range inner.Bases {
			if err := w.collect(base); err != nil {
				return err
			}
		}
		for _, m := range inner.Members {
			if err := w.collect(m.Type); err != nil {
				return err
			}
		}
		delete(w.visiting, h)
		w.visited[h] = true
		w.order = append(w.order, h)
	case ir.ArrayType:
		return w.collect(inner.Base)
	case ir.ResourceType:
		if inner.Result != nil {
			return w.collect(*inner.Result)
		}
	case nil:
		return NewError(ErrInvalidModule, fmt.Sprintf("type handle %d out of range", h))
	}
	return nil
}

// registerNames assigns unique names to structs, buffers and buffer members.
// cbuffer members share the global namespace, struct members do not.
func (w *Writer) registerNames() {
	for _, h := range w.order {
		baseName := w.module.Types[h].Name
		if baseName == "" {
			baseName = fmt.Sprintf("type_%d", h)
		}
		name := w.namer.call(baseName)
		w.typeNames[h] = name
		w.structNames = append(w.structNames, name)

		st := w.module.Types[h].Inner.(ir.StructType)
		scope := w.namer.scope()
		for i := 1; i < len(st.Bases); i++ {
			w.memberNames[memberKey{typ: h, member: -1 - i}] = scope.call(fmt.Sprintf("base_%d", i))
		}
		for i, m := range st.Members {
			if m.Name == "" && m.BitWidth != nil && *m.BitWidth == 0 {
				continue
			}
			memberName := m.Name
			if memberName == "" {
				memberName = fmt.Sprintf("member_%d", i)
			}
			w.memberNames[memberKey{typ: h, member: i}] = scope.call(memberName)
		}
	}

	for i, bl := range w.layouts {
		cb := &w.module.ConstantBuffers[bl.Buffer]
		w.bufferNames[bl.Name] = w.namer.call(bl.Name)
		w.registerBufferMembers(cb.Type, i+1)
	}
}

func (w *Writer) registerBufferMembers(body ir.TypeHandle, buffer int) {
	st := w.module.Lookup(body).(ir.StructType)
	for _, base := range st.Bases {
		w.registerBufferMembers(base, buffer)
	}
	for i, m := range st.Members {
		key := memberKey{typ: body, member: i, buffer: buffer}
		if _, ok := w.memberNames[key]; ok {
			continue
		}
		if m.Name == "" && m.BitWidth != nil && *m.BitWidth == 0 {
			continue
		}
		memberName := m.Name
		if memberName == "" {
			memberName = fmt.Sprintf("member_%d", i)
		}
		w.memberNames[key] = w.namer.call(memberName)
	}
}

// writeStruct writes one struct definition.
func (w *Writer) writeStruct(h ir.TypeHandle) error {
	st := w.module.Types[h].Inner.(ir.StructType)
	name := w.typeNames[h]

	if len(st.Bases) > 0 {
		w.usedFeatures |= FeatureInheritance
		w.writeLine("struct %s : %s {", name, w.typeNames[st.Bases[0]])
	} else {
		w.writeLine("struct %s {", name)
	}
	w.pushIndent()

	for i := 1; i < len(st.Bases); i++ {
		decl, err := w.declare(st.Bases[i], w.memberNames[memberKey{typ: h, member: -1 - i}])
		if err != nil {
			return err
		}
		w.writeLine("%s;", decl)
	}
	for i, m := range st.Members {
		decl, err := w.memberDecl(h, m, w.memberNames[memberKey{typ: h, member: i}])
		if err != nil {
			return err
		}
		w.writeLine("%s;", decl)
	}

	w.popIndent()
	w.writeLine("};")
	w.writeLine("")
	return nil
}

// memberDecl spells a struct or buffer member without the semicolon.
func (w *Writer) memberDecl(owner ir.TypeHandle, m ir.StructMember, name string) (string, error) {
	if m.BitWidth == nil {
		return w.declare(m.Type, name)
	}
	w.usedFeatures |= FeatureBitFields
	s, ok := w.module.Lookup(m.Type).(ir.ScalarType)
	if !ok {
		return "", NewError(ErrUnsupportedType, fmt.Sprintf("bit-field %s.%s is not a scalar", ir.Format(w.module, owner), m.Name))
	}
	w.usedFeatures |= scalarFeatures(s)
	if name == "" {
		return fmt.Sprintf("%s : %d", ScalarToHLSL(s), *m.BitWidth), nil
	}
	return fmt.Sprintf("%s %s : %d", ScalarToHLSL(s), name, *m.BitWidth), nil
}

// declare spells a declaration of the given type, e.g. "float w[4][2]" or
// "row_major float4x4 m".
func (w *Writer) declare(h ir.TypeHandle, name string) (string, error) {
	var dims strings.Builder
	for {
		arr, ok := w.module.Lookup(h).(ir.ArrayType)
		if !ok {
			break
		}
		if arr.Size.Constant == nil {
			dims.WriteString("[]")
		} else {
			fmt.Fprintf(&dims, "[%d]", *arr.Size.Constant)
		}
		h = arr.Base
	}
	typeName, err := w.typeName(h)
	if err != nil {
		return "", err
	}
	return typeName + " " + name + dims.String(), nil
}

// typeName spells a non-array type.
func (w *Writer) typeName(h ir.TypeHandle) (string, error) {
	switch inner := w.module.Lookup(h).(type) {
	case ir.ScalarType:
		w.usedFeatures |= scalarFeatures(inner)
		return ScalarToHLSL(inner), nil
	case ir.VectorType:
		w.usedFeatures |= scalarFeatures(inner.Scalar)
		return VectorToHLSL(inner), nil
	case ir.MatrixType:
		w.usedFeatures |= scalarFeatures(inner.Scalar)
		return OrientationQualifier(inner.Orientation) + MatrixToHLSL(inner), nil
	case ir.StructType:
		name, ok := w.typeNames[h]
		if !ok {
			return "", NewError(ErrInternalError, fmt.Sprintf("struct %s was not collected", ir.Format(w.module, h)))
		}
		return name, nil
	case ir.ResourceType:
		return w.resourceName(inner)
	case ir.ObjectType:
		return inner.Name, nil
	case ir.ArrayType:
		return "", NewError(ErrUnsupportedType, fmt.Sprintf("array %s cannot be a template argument", ir.Format(w.module, h)))
	default:
		return "", NewError(ErrInvalidModule, fmt.Sprintf("type handle %d out of range", h))
	}
}

// resourceName spells a resource type, e.g. "RWTexture2D<unorm float4>".
func (w *Writer) resourceName(r ir.ResourceType) (string, error) {
	var sb strings.Builder
	if r.Coherent {
		sb.WriteString("globallycoherent ")
	}
	sb.WriteString(r.Name)
	if r.Result != nil {
		elem, err := w.typeName(*r.Result)
		if err != nil {
			return "", err
		}
		switch inner := w.module.Lookup(*r.Result).(type) {
		case ir.ScalarType:
			elem = normPrefix(inner) + elem
		case ir.VectorType:
			elem = normPrefix(inner.Scalar) + elem
		}
		sb.WriteByte('<')
		sb.WriteString(elem)
		if r.SampleCount > 0 {
			fmt.Fprintf(&sb, ", %d", r.SampleCount)
		}
		sb.WriteByte('>')
	}
	return sb.String(), nil
}

// Output helpers

// write writes text to the output. If args are provided, uses fmt.Fprintf.
//
//nolint:goprintffuncname
func (w *Writer) write(format string, args ...any) {
	if len(args) == 0 {
		w.out.WriteString(format)
	} else {
		fmt.Fprintf(&w.out, format, args...)
	}
}

// writeLine writes a line with optional format args and a newline.
//
//nolint:goprintffuncname
func (w *Writer) writeLine(format string, args ...any) {
	if format != "" {
		w.writeIndent()
	}
	w.write(format, args...)
	w.out.WriteByte('\n')
}

// writeIndent writes the current indentation.
func (w *Writer) writeIndent() {
	for i := 0; i < w.indent; i++ {
		w.out.WriteString("    ")
	}
}

// pushIndent increases indentation.
func (w *Writer) pushIndent() {
	w.indent++
}

// popIndent decreases indentation.
func (w *Writer) popIndent() {
	if w.indent > 0 {
		w.indent--
	}
}
