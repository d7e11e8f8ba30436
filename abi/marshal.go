// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package abi

import (
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/gogpu/shaderabi/ir"
)

// Argument is an actual argument at a call site.
type Argument struct {
	// Address is the caller's storage for the argument.
	Address Address

	// Type is the caller-side type, which may differ from the parameter's.
	Type ir.TypeHandle

	Origin Origin

	// Aliased is set when other references to a temporary exist.
	Aliased bool

	// Coherent is the coherence tag of a resource handle.
	Coherent bool
}

// Binding records how one argument is passed.
type Binding struct {
	Param ir.FunctionArgument
	Arg   Argument

	// Address is what the callee receives.
	Address Address

	// Temp is set when Address is a temporary owned by the marshaller.
	Temp bool

	// CopyBack is set when the temporary is copied into the argument after
	// the call.
	CopyBack bool

	// Reannotated is set when the temporary holds a handle whose coherence
	// was changed to match the parameter.
	Reannotated bool

	released bool
}

// Marshaller lowers calls with in, out and inout parameters.
type Marshaller struct {
	builder Builder
	module  *ir.Module
	options Options
	copier  *Copier
}

// NewMarshaller creates a marshaller. A nil opts uses DefaultOptions.
func NewMarshaller(module *ir.Module, b Builder, opts *Options) *Marshaller {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Marshaller{
		builder: b,
		module:  module,
		options: *opts,
		copier:  NewCopier(module, b, opts.DefaultOrientation),
	}
}

// Copier returns the copier used for copy-in and copy-out.
func (m *Marshaller) Copier() *Copier {
	return m.copier
}

// PrepareArgument decides how argument arg is passed for parameter index of
// callee and emits any temporary allocation and copy-in. On error no
// temporary is left allocated.
func (m *Marshaller) PrepareArgument(callee *ir.Function, index int, arg Argument) (*Binding, error) {
	if index < 0 || index >= len(callee.Arguments) {
		return nil, NewError(ErrInvalidArgument, "", fmt.Sprintf("%s has no parameter %d", callee.Name, index))
	}
	param := callee.Arguments[index]
	paramType := m.module.Lookup(param.Type)
	if paramType == nil {
		return nil, NewError(ErrInvalidArgument, param.Name, fmt.Sprintf("parameter type %d does not exist", param.Type))
	}
	bd := &Binding{Param: param, Arg: arg, Address: arg.Address}
	opaque := isOpaque(paramType)

	log := Logger().With(
		zap.String("callee", callee.Name),
		zap.String("param", param.Name),
		zap.Stringer("direction", param.Direction))

	switch {
	case param.Direction == ir.DirectionOut:
		if opaque {
			log.Debug("pass object directly")
			return bd, nil
		}
		if err := m.allocTemp(bd, paramType); err != nil {
			return nil, err
		}
		bd.CopyBack = true
		log.Debug("temporary for out parameter")
		return bd, nil

	case param.Direction == ir.DirectionIn && opaque:
		if arg.Coherent == param.Coherent {
			log.Debug("pass object directly")
			return bd, nil
		}
		if err := m.reannotate(bd, paramType); err != nil {
			return nil, err
		}
		log.Debug("reannotated handle", zap.Bool("coherent", param.Coherent))
		return bd, nil

	case param.Direction == ir.DirectionIn:
		if m.canElide(callee, param, arg) {
			log.Debug("elided input copy", zap.Stringer("origin", arg.Origin))
			return bd, nil
		}
		if err := m.copyIn(bd, paramType); err != nil {
			return nil, err
		}
		log.Debug("copied in")
		return bd, nil

	case param.Direction == ir.DirectionInOut:
		if err := m.copyIn(bd, paramType); err != nil {
			return nil, err
		}
		bd.CopyBack = true
		log.Debug("copied in for inout")
		return bd, nil

	default:
		return nil, NewError(ErrInvalidArgument, param.Name, fmt.Sprintf("invalid direction %d", param.Direction))
	}
}

func (m *Marshaller) canElide(callee *ir.Function, param ir.FunctionArgument, arg Argument) bool {
	return m.options.ElideInputCopies &&
		callee.InlineOnly &&
		m.typesEqual(param.Type, arg.Type, 0) &&
		SafeToSkip(arg)
}

func (m *Marshaller) allocTemp(bd *Binding, t ir.TypeInner) error {
	temp, err := m.builder.Alloca(t)
	if err != nil {
		return fmt.Errorf("alloca for %s: %w", bd.Param.Name, err)
	}
	bd.Address = temp
	bd.Temp = true
	return nil
}

// copyIn allocates a temporary of the parameter type and fills it from the
// argument, converting leaf by leaf.
func (m *Marshaller) copyIn(bd *Binding, t ir.TypeInner) error {
	if err := m.allocTemp(bd, t); err != nil {
		return err
	}
	if err := m.copier.Copy(bd.Address, bd.Param.Type, bd.Arg.Address, bd.Arg.Type); err != nil {
		m.Release(bd)
		return fmt.Errorf("copy-in %s: %w", bd.Param.Name, err)
	}
	return nil
}

func (m *Marshaller) reannotate(bd *Binding, t ir.TypeInner) error {
	if err := m.allocTemp(bd, t); err != nil {
		return err
	}
	err := func() error {
		h, err := m.builder.Load(bd.Arg.Address, t)
		if err != nil {
			return err
		}
		h, err = m.builder.Annotate(h, t, bd.Param.Coherent)
		if err != nil {
			return err
		}
		return m.builder.Store(bd.Address, h, t)
	}()
	if err != nil {
		m.Release(bd)
		return fmt.Errorf("reannotate %s: %w", bd.Param.Name, err)
	}
	bd.Reannotated = true
	return nil
}

// CopyOut writes a binding's temporary back to the caller after the call.
func (m *Marshaller) CopyOut(bd *Binding) error {
	if bd.Reannotated {
		if err := m.builder.ReplaceUses(bd.Arg.Address, bd.Address); err != nil {
			return fmt.Errorf("replace uses of %s: %w", bd.Param.Name, err)
		}
	}
	if !bd.CopyBack {
		return nil
	}
	Logger().Debug("copy-out", zap.String("param", bd.Param.Name))
	if err := m.copier.Copy(bd.Arg.Address, bd.Arg.Type, bd.Address, bd.Param.Type); err != nil {
		return fmt.Errorf("copy-out %s: %w", bd.Param.Name, err)
	}
	return nil
}

// Release frees a binding's temporary. Releasing twice is a no-op.
func (m *Marshaller) Release(bd *Binding) {
	if bd == nil || !bd.Temp || bd.released {
		return
	}
	m.builder.Release(bd.Address)
	bd.released = true
}

// LowerCall marshals args, emits the call and copies results back.
// Every temporary is released before LowerCall returns, whether or not
// an error occurred.
func (m *Marshaller) LowerCall(callee *ir.Function, args []Argument) error {
	if len(args) != len(callee.Arguments) {
		return NewError(ErrInvalidArgument, "",
			fmt.Sprintf("%s takes %d arguments, got %d", callee.Name, len(callee.Arguments), len(args)))
	}

	bindings := make([]*Binding, 0, len(args))
	defer func() {
		for i := len(bindings) - 1; i >= 0; i-- {
			m.Release(bindings[i])
		}
	}()

	for i, arg := range args {
		bd, err := m.PrepareArgument(callee, i, arg)
		if err != nil {
			return fmt.Errorf("%s argument %d: %w", callee.Name, i, err)
		}
		bindings = append(bindings, bd)
	}

	callArgs := lo.Map(bindings, func(bd *Binding, _ int) CallArg {
		return CallArg{Address: bd.Address, Direction: bd.Param.Direction}
	})
	if err := m.builder.Call(callee, callArgs); err != nil {
		return fmt.Errorf("call %s: %w", callee.Name, err)
	}

	for _, bd := range bindings {
		if err := m.CopyOut(bd); err != nil {
			return err
		}
	}
	return nil
}

// typesEqual compares types structurally; structs compare by handle.
func (m *Marshaller) typesEqual(a, b ir.TypeHandle, depth int) bool {
	if a == b {
		return true
	}
	if depth > maxDepth {
		return false
	}
	ai, bi := m.module.Lookup(a), m.module.Lookup(b)
	switch at := ai.(type) {
	case ir.ScalarType, ir.VectorType, ir.ObjectType:
		return ai == bi
	case ir.MatrixType:
		bt, ok := bi.(ir.MatrixType)
		if !ok {
			return false
		}
		return at.Rows == bt.Rows && at.Columns == bt.Columns && at.Scalar == bt.Scalar &&
			resolveOrientation(at.Orientation, m.options.DefaultOrientation) ==
				resolveOrientation(bt.Orientation, m.options.DefaultOrientation)
	case ir.ArrayType:
		bt, ok := bi.(ir.ArrayType)
		if !ok || (at.Size.Constant == nil) != (bt.Size.Constant == nil) {
			return false
		}
		if at.Size.Constant != nil && *at.Size.Constant != *bt.Size.Constant {
			return false
		}
		return m.typesEqual(at.Base, bt.Base, depth+1)
	default:
		return false
	}
}
