// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/pelletier/go-toml"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/gogpu/shaderabi/abi"
	"github.com/gogpu/shaderabi/ir"
	"github.com/gogpu/shaderabi/layout"
)

// Declarations is a built declaration file: the module plus everything the
// layout, marshalling and packing stages need from it.
type Declarations struct {
	Module *ir.Module
	Layout *layout.Options
	ABI    *abi.Options

	// Values holds the constant values declared for each buffer.
	Values map[string]map[string]any

	// Calls lists the declared call sites in file order.
	Calls []Call
}

// Call is a declared call site.
type Call struct {
	Callee *ir.Function
	Args   []CallArg
}

// CallArg is one argument of a call site.
type CallArg struct {
	Name     string
	Type     ir.TypeHandle
	Origin   abi.Origin
	Aliased  bool
	Coherent bool

	// Value is the initial argument value, nil for zero.
	Value any
}

// Argument returns the marshalling view of the argument at addr.
func (a CallArg) Argument(addr abi.Address) abi.Argument {
	return abi.Argument{
		Address:  addr,
		Type:     a.Type,
		Origin:   a.Origin,
		Aliased:  a.Aliased,
		Coherent: a.Coherent,
	}
}

// Load reads and builds a declaration file.
func Load(path string) (*Declarations, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Build(f)
}

// Build resolves a decoded file into declarations. All declaration errors
// are reported together.
func Build(f *File) (*Declarations, error) {
	b := &builder{
		file:   f,
		reg:    ir.NewTypeRegistry(),
		decls:  &Declarations{Values: make(map[string]map[string]any)},
		funcs:  make(map[string]int),
		buffer: make(map[string]bool),
	}
	b.parser = NewTypeParser(b.reg)

	b.options()
	b.structs()
	buffers := b.buffers()
	functions := b.functions()
	b.calls(functions)

	if b.errs != nil {
		return nil, b.errs
	}

	module := b.reg.Module()
	module.ConstantBuffers = buffers
	module.Functions = functions
	for i := range b.decls.Calls {
		fn := b.decls.Calls[i].Callee
		b.decls.Calls[i].Callee = &module.Functions[b.funcs[fn.Name]]
	}

	verrs, err := ir.Validate(module)
	if err != nil {
		return nil, err
	}
	for _, ve := range verrs {
		b.errs = multierr.Append(b.errs, ve)
	}
	if b.errs != nil {
		return nil, b.errs
	}

	b.decls.Module = module
	Logger().Debug("built declarations", declFields(b.decls)...)
	return b.decls, nil
}

type builder struct {
	file   *File
	reg    *ir.TypeRegistry
	parser *TypeParser
	decls  *Declarations
	funcs  map[string]int
	buffer map[string]bool
	errs   error
}

func (b *builder) fail(kind, name string, err error) {
	b.errs = multierr.Append(b.errs, &DeclError{Kind: kind, Name: name, Err: err})
}

func (b *builder) options() {
	b.decls.Layout = layout.DefaultOptions()
	b.decls.ABI = abi.DefaultOptions()
	opts := b.file.Options
	if opts == nil {
		return
	}

	switch opts.DefaultOrientation {
	case "":
	case "row_major":
		b.decls.Layout.DefaultOrientation = ir.RowMajor
	case "column_major":
		b.decls.Layout.DefaultOrientation = ir.ColumnMajor
	default:
		b.fail("options", "", fmt.Errorf("default_orientation %q must be row_major or column_major", opts.DefaultOrientation))
	}
	b.decls.ABI.DefaultOrientation = b.decls.Layout.DefaultOrientation
	b.decls.Layout.ZeroSizeStructStartsRegister = opts.ZeroSizeStructStartsRegister
	b.decls.Layout.MatrixStartsRegister = opts.MatrixStartsRegister
	if opts.ElideInputCopies != nil {
		b.decls.ABI.ElideInputCopies = *opts.ElideInputCopies
	}
}

// structs reserves every struct first so declarations may refer to each
// other in any order.
func (b *builder) structs() {
	var defined []*StructDecl
	for _, sd := range b.file.Structs {
		if sd.Name == "" {
			b.fail("struct", "", errors.New("missing name"))
			continue
		}
		if _, dup := b.parser.Structs[sd.Name]; dup {
			b.fail("struct", sd.Name, errors.New("declared twice"))
			continue
		}
		b.parser.Structs[sd.Name] = b.reg.Reserve(sd.Name)
		defined = append(defined, sd)
	}

	for _, sd := range defined {
		var st ir.StructType
		for _, base := range sd.Bases {
			h, ok := b.parser.Structs[base]
			if !ok {
				b.fail("struct", sd.Name, fmt.Errorf("unknown base %q", base))
				continue
			}
			st.Bases = append(st.Bases, h)
		}
		for _, fd := range sd.Fields {
			m, err := b.member(fd)
			if err != nil {
				b.fail("struct", sd.Name, err)
				continue
			}
			st.Members = append(st.Members, m)
		}
		if err := b.reg.Define(b.parser.Structs[sd.Name], st); err != nil {
			b.fail("struct", sd.Name, err)
		}
	}
}

func (b *builder) member(fd *FieldDecl) (ir.StructMember, error) {
	h, err := b.parser.Parse(fd.Type)
	if err != nil {
		return ir.StructMember{}, fmt.Errorf("field %s: %w", fd.Name, err)
	}
	m := ir.StructMember{Name: fd.Name, Type: h}
	if fd.Bits != nil {
		if *fd.Bits < 0 || *fd.Bits > 64 {
			return m, fmt.Errorf("field %s: bit width %d out of range", fd.Name, *fd.Bits)
		}
		width := uint8(*fd.Bits)
		m.BitWidth = &width
	} else if fd.Name == "" {
		return m, errors.New("field without a name")
	}
	if fd.Offset != nil {
		if *fd.Offset < 0 || *fd.Offset > math.MaxUint32 {
			return m, fmt.Errorf("field %s: offset %d out of range", fd.Name, *fd.Offset)
		}
		offset := uint32(*fd.Offset)
		m.Placement = &offset
	}
	return m, nil
}

func (b *builder) buffers() []ir.ConstantBuffer {
	var buffers []ir.ConstantBuffer
	for _, bd := range b.file.Buffers {
		if b.buffer[bd.Name] {
			b.fail("buffer", bd.Name, errors.New("declared twice"))
			continue
		}
		b.buffer[bd.Name] = true

		h, ok := b.parser.Structs[bd.Struct]
		if !ok {
			b.fail("buffer", bd.Name, fmt.Errorf("unknown struct %q", bd.Struct))
			continue
		}
		cb := ir.ConstantBuffer{Name: bd.Name, Type: h}
		if bd.Register != nil {
			if *bd.Register < 0 || *bd.Register > math.MaxUint32 || bd.Space < 0 || bd.Space > math.MaxUint32 {
				b.fail("buffer", bd.Name, fmt.Errorf("register b%d space%d out of range", *bd.Register, bd.Space))
				continue
			}
			cb.Binding = &ir.ResourceBinding{Space: uint32(bd.Space), Register: uint32(*bd.Register)}
		}
		buffers = append(buffers, cb)
		if bd.Values != nil {
			b.decls.Values[bd.Name] = normalize(bd.Values).(map[string]any)
		}
	}
	return buffers
}

func (b *builder) functions() []ir.Function {
	var functions []ir.Function
	for _, fd := range b.file.Functions {
		if _, dup := b.funcs[fd.Name]; dup || fd.Name == "" {
			b.fail("function", fd.Name, errors.New("missing or duplicate name"))
			continue
		}
		fn := ir.Function{Name: fd.Name, InlineOnly: fd.InlineOnly}
		ok := true
		for _, pd := range fd.Params {
			h, err := b.parser.Parse(pd.Type)
			if err != nil {
				b.fail("function", fd.Name, fmt.Errorf("param %s: %w", pd.Name, err))
				ok = false
				continue
			}
			dir, err := parseDirection(pd.Direction)
			if err != nil {
				b.fail("function", fd.Name, fmt.Errorf("param %s: %w", pd.Name, err))
				ok = false
				continue
			}
			fn.Arguments = append(fn.Arguments, ir.FunctionArgument{
				Name:      pd.Name,
				Type:      h,
				Direction: dir,
				Coherent:  pd.Coherent,
			})
		}
		if ok {
			b.funcs[fd.Name] = len(functions)
			functions = append(functions, fn)
		}
	}
	return functions
}

func (b *builder) calls(functions []ir.Function) {
	for i, cd := range b.file.Calls {
		name := fmt.Sprintf("#%d (%s)", i, cd.Callee)
		idx, ok := b.funcs[cd.Callee]
		if !ok {
			b.fail("call", name, fmt.Errorf("unknown function %q", cd.Callee))
			continue
		}
		fn := &functions[idx]
		call := Call{Callee: fn}
		for j, ad := range cd.Args {
			arg, err := b.arg(fn, j, ad)
			if err != nil {
				b.fail("call", name, err)
				continue
			}
			call.Args = append(call.Args, arg)
		}
		b.decls.Calls = append(b.decls.Calls, call)
	}
}

func (b *builder) arg(fn *ir.Function, j int, ad *ArgDecl) (CallArg, error) {
	arg := CallArg{
		Name:     ad.Name,
		Aliased:  ad.Aliased,
		Coherent: ad.Coherent,
		Origin:   abi.OriginLocal,
	}
	if arg.Name == "" {
		arg.Name = fmt.Sprintf("arg%d", j)
	}
	if ad.Origin != "" {
		origin, ok := abi.ParseOrigin(ad.Origin)
		if !ok {
			return arg, fmt.Errorf("arg %s: unknown origin %q", arg.Name, ad.Origin)
		}
		arg.Origin = origin
	}

	switch {
	case ad.Type != "":
		h, err := b.parser.Parse(ad.Type)
		if err != nil {
			return arg, fmt.Errorf("arg %s: %w", arg.Name, err)
		}
		arg.Type = h
	case j < len(fn.Arguments):
		arg.Type = fn.Arguments[j].Type
	default:
		return arg, fmt.Errorf("arg %s: no type and no matching parameter", arg.Name)
	}

	if ad.Value != nil {
		arg.Value = normalize(ad.Value)
	}
	return arg, nil
}

func parseDirection(s string) (ir.Direction, error) {
	switch s {
	case "", "in":
		return ir.DirectionIn, nil
	case "out":
		return ir.DirectionOut, nil
	case "inout":
		return ir.DirectionInOut, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

// normalize converts decoded TOML values into the []any and map[string]any
// shapes that value conversion accepts.
func normalize(x any) any {
	switch v := x.(type) {
	case *toml.Tree:
		return normalize(v.ToMap())
	case map[string]interface{}:
		return lo.MapValues(v, func(e interface{}, _ string) any { return normalize(e) })
	case []*toml.Tree:
		return lo.Map(v, func(t *toml.Tree, _ int) any { return normalize(t) })
	case []interface{}:
		return lo.Map(v, func(e interface{}, _ int) any { return normalize(e) })
	}

	rv := reflect.ValueOf(x)
	if rv.Kind() == reflect.Slice {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	}
	return x
}
