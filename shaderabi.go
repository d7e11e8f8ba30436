// Package shaderabi lays out HLSL constant buffers and lowers calls with
// in, out and inout parameters.
//
// The input is a declaration file (see package config) describing structs,
// cbuffers, functions and call sites. The stages are:
//   - Plan: legacy cbuffer layout of every declared buffer
//   - HLSL: cbuffer declarations with packoffset annotations
//   - Pack: the bytes of a buffer filled with its declared values
//   - LowerCall: LLVM IR for a call site with its argument copies
//   - Simulate: run a call site on concrete values and trace it
//
// Example usage:
//
//	decls, err := shaderabi.Load("frame.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	layouts, err := shaderabi.Plan(decls)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	source, info, err := shaderabi.HLSL(decls, layouts, hlsl.DefaultOptions())
//
// For lower-level access use the layout, hlsl, abi, llvm and eval packages
// directly.
package shaderabi

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/gogpu/shaderabi/abi"
	"github.com/gogpu/shaderabi/config"
	"github.com/gogpu/shaderabi/eval"
	"github.com/gogpu/shaderabi/hlsl"
	"github.com/gogpu/shaderabi/ir"
	"github.com/gogpu/shaderabi/layout"
	"github.com/gogpu/shaderabi/llvm"
)

// Load reads and builds a declaration file.
func Load(path string) (*config.Declarations, error) {
	return config.Load(path)
}

// Plan lays out every constant buffer. Layouts are returned for every
// buffer that could be planned, even when the error reports diagnostics
// for some of them.
func Plan(decls *config.Declarations) ([]*layout.BufferLayout, error) {
	ctx := layout.NewContext(decls.Module, decls.Layout)
	return ctx.PlanModule()
}

// HLSL writes the cbuffer declarations for layouts.
func HLSL(decls *config.Declarations, layouts []*layout.BufferLayout, opts *hlsl.Options) (string, *hlsl.TranslationInfo, error) {
	return hlsl.Compile(decls.Module, layouts, opts)
}

// FindLayout returns the layout of the buffer called name.
func FindLayout(layouts []*layout.BufferLayout, name string) (*layout.BufferLayout, bool) {
	return lo.Find(layouts, func(bl *layout.BufferLayout) bool { return bl.Name == name })
}

// Pack serializes the declared values of a buffer. Members without a
// declared value are zero.
func Pack(decls *config.Declarations, bl *layout.BufferLayout) ([]byte, error) {
	module := decls.Module
	if int(bl.Buffer) >= len(module.ConstantBuffers) {
		return nil, fmt.Errorf("pack %s: buffer %d out of range", bl.Name, bl.Buffer)
	}
	body := module.ConstantBuffers[bl.Buffer].Type

	var (
		v   any
		err error
	)
	if values, ok := decls.Values[bl.Name]; ok {
		v, err = eval.FromGo(module, body, values)
	} else {
		v, err = eval.Zero(module, body)
	}
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", bl.Name, err)
	}
	return eval.Pack(module, bl, v)
}

func call(decls *config.Declarations, index int) (*config.Call, error) {
	if index < 0 || index >= len(decls.Calls) {
		return nil, fmt.Errorf("call %d out of range (%d calls)", index, len(decls.Calls))
	}
	return &decls.Calls[index], nil
}

// LowerCall emits LLVM IR for call site index: a caller function holding the
// arguments and the marshalled call.
func LowerCall(decls *config.Declarations, index int) (string, error) {
	c, err := call(decls, index)
	if err != nil {
		return "", err
	}
	b := llvm.NewBuilder(decls.Module, "caller_"+c.Callee.Name)

	args := make([]abi.Argument, len(c.Args))
	for i, a := range c.Args {
		var addr abi.Address
		switch a.Origin {
		case abi.OriginGlobal, abi.OriginConstantGlobal:
			addr, err = b.Global(a.Name, a.Type)
		default:
			addr, err = b.Variable(a.Name, a.Type)
		}
		if err != nil {
			return "", err
		}
		args[i] = a.Argument(addr)
	}

	m := abi.NewMarshaller(decls.Module, b, decls.ABI)
	if err := m.LowerCall(c.Callee, args); err != nil {
		return "", err
	}
	return b.Finish(), nil
}

// Simulation is the outcome of running a call site on concrete values.
type Simulation struct {
	// Trace lists the operations performed, in order.
	Trace []string

	// Args holds each argument's value after the call, in argument order.
	Args []SimulatedArg
}

// SimulatedArg is one argument of a simulated call.
type SimulatedArg struct {
	Name  string
	Value any
}

// Simulate runs call site index with its declared argument values. bodies
// holds callee implementations keyed by function name; other callees do
// nothing.
func Simulate(decls *config.Declarations, index int, bodies map[string]eval.Func) (*Simulation, error) {
	c, err := call(decls, index)
	if err != nil {
		return nil, err
	}
	mach := eval.NewMachine(decls.Module)
	for name, fn := range bodies {
		mach.Define(name, fn)
	}

	def := ir.ColumnMajor
	if decls.ABI != nil {
		def = decls.ABI.DefaultOrientation
	}

	cells := make([]*eval.Cell, len(c.Args))
	args := make([]abi.Argument, len(c.Args))
	for i, a := range c.Args {
		cell, err := mach.Variable(a.Name, a.Type)
		if err != nil {
			return nil, err
		}
		if a.Value != nil {
			v, err := eval.FromGo(decls.Module, a.Type, a.Value)
			if err != nil {
				return nil, fmt.Errorf("argument %s: %w", a.Name, err)
			}
			if v, err = eval.ToStorage(decls.Module, a.Type, v, def); err != nil {
				return nil, fmt.Errorf("argument %s: %w", a.Name, err)
			}
			if err := mach.Set(cell, v); err != nil {
				return nil, fmt.Errorf("argument %s: %w", a.Name, err)
			}
		}
		cells[i] = cell
		args[i] = a.Argument(cell)
	}

	m := abi.NewMarshaller(decls.Module, mach, decls.ABI)
	if err := m.LowerCall(c.Callee, args); err != nil {
		return nil, err
	}

	sim := &Simulation{Trace: mach.Trace()}
	for i, cell := range cells {
		v, err := eval.FromStorage(decls.Module, c.Args[i].Type, mach.Get(cell), def)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", c.Args[i].Name, err)
		}
		sim.Args = append(sim.Args, SimulatedArg{Name: c.Args[i].Name, Value: v})
	}
	return sim, nil
}
