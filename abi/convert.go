// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package abi

import (
	"fmt"

	"github.com/gogpu/shaderabi/ir"
)

// Op is a scalar conversion instruction.
type Op uint8

const (
	OpTrunc Op = iota + 1
	OpSExt
	OpZExt
	OpBitcast
	OpSIToFP
	OpUIToFP
	OpFPToSI
	OpFPToUI
	OpFPExt
	OpFPTrunc
	OpNotZero
	OpClamp
)

var opNames = [...]string{
	OpTrunc:   "trunc",
	OpSExt:    "sext",
	OpZExt:    "zext",
	OpBitcast: "bitcast",
	OpSIToFP:  "sitofp",
	OpUIToFP:  "uitofp",
	OpFPToSI:  "fptosi",
	OpFPToUI:  "fptoui",
	OpFPExt:   "fpext",
	OpFPTrunc: "fptrunc",
	OpNotZero: "notzero",
	OpClamp:   "clamp",
}

// String returns the instruction mnemonic.
func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// IsCast reports whether op is emitted through Builder.Cast.
func (op Op) IsCast() bool {
	return op >= OpTrunc && op <= OpFPTrunc
}

// Step is one instruction of a conversion plan.
type Step struct {
	Op       Op
	From, To ir.ScalarType

	// Min and Max bound an OpClamp step.
	Min, Max float64
}

// storageScalar strips normalization and maps packed kinds to uint.
func storageScalar(s ir.ScalarType) ir.ScalarType {
	if s.Kind.IsPacked() {
		return ir.U32
	}
	return ir.ScalarType{Kind: s.Kind, Width: s.Width}
}

// ConversionPlan returns the instructions converting a from value into a
// to value. An empty plan means the value is used as is.
func ConversionPlan(from, to ir.ScalarType) []Step {
	if from == to {
		return nil
	}
	src, dst := storageScalar(from), storageScalar(to)

	if dst.Kind == ir.ScalarBool {
		if src.Kind == ir.ScalarBool {
			return nil
		}
		return []Step{{Op: OpNotZero, From: src, To: ir.Bool}}
	}

	var steps []Step
	if src.Kind == ir.ScalarBool {
		steps = append(steps, Step{Op: OpZExt, From: ir.Bool, To: ir.U32})
		src = ir.U32
	}
	if op, ok := castOp(src, dst); ok {
		steps = append(steps, Step{Op: op, From: src, To: dst})
	}

	switch to.Norm {
	case ir.NormSigned:
		steps = append(steps, Step{Op: OpClamp, From: dst, To: dst, Min: -1, Max: 1})
	case ir.NormUnsigned:
		steps = append(steps, Step{Op: OpClamp, From: dst, To: dst, Min: 0, Max: 1})
	}
	return steps
}

func castOp(src, dst ir.ScalarType) (Op, bool) {
	if src == dst {
		return 0, false
	}
	srcInt, dstInt := src.Kind.IsInteger(), dst.Kind.IsInteger()
	switch {
	case srcInt && dstInt:
		switch {
		case src.Width > dst.Width:
			return OpTrunc, true
		case src.Width < dst.Width:
			if src.Kind.IsSigned() {
				return OpSExt, true
			}
			return OpZExt, true
		default:
			return OpBitcast, true
		}
	case srcInt:
		if src.Kind.IsSigned() {
			return OpSIToFP, true
		}
		return OpUIToFP, true
	case dstInt:
		if dst.Kind.IsSigned() {
			return OpFPToSI, true
		}
		return OpFPToUI, true
	default:
		switch {
		case src.Width > dst.Width:
			return OpFPTrunc, true
		case src.Width < dst.Width:
			return OpFPExt, true
		default:
			return 0, false
		}
	}
}

// Convert emits the conversion of scalar v from one numeric kind to another.
func Convert(b Builder, v Value, from, to ir.ScalarType) (Value, error) {
	var err error
	for _, step := range ConversionPlan(from, to) {
		switch {
		case step.Op.IsCast():
			v, err = b.Cast(step.Op, v, step.From, step.To)
		case step.Op == OpNotZero:
			v, err = b.NotZero(v, step.From)
		case step.Op == OpClamp:
			v, err = b.Clamp(v, step.To, step.Min, step.Max)
		}
		if err != nil {
			return nil, fmt.Errorf("%s %s to %s: %w", step.Op, ir.FormatScalar(step.From), ir.FormatScalar(step.To), err)
		}
	}
	return v, nil
}

// ConvertValue converts a scalar or vector value. Scalars splat into
// vectors and vectors truncate to fewer components, as in HLSL.
func ConvertValue(b Builder, v Value, from, to ir.TypeInner) (Value, error) {
	switch src := from.(type) {
	case ir.ScalarType:
		switch dst := to.(type) {
		case ir.ScalarType:
			return Convert(b, v, src, dst)
		case ir.VectorType:
			cv, err := Convert(b, v, src, dst.Scalar)
			if err != nil {
				return nil, err
			}
			parts := make([]Value, dst.Size)
			for i := range parts {
				parts[i] = cv
			}
			return b.Compose(dst, parts)
		}

	case ir.VectorType:
		switch dst := to.(type) {
		case ir.ScalarType:
			e, err := b.Extract(v, src, 0)
			if err != nil {
				return nil, err
			}
			return Convert(b, e, src.Scalar, dst)
		case ir.VectorType:
			if dst.Size > src.Size {
				break
			}
			parts := make([]Value, dst.Size)
			for i := range parts {
				e, err := b.Extract(v, src, i)
				if err != nil {
					return nil, err
				}
				if parts[i], err = Convert(b, e, src.Scalar, dst.Scalar); err != nil {
					return nil, err
				}
			}
			return b.Compose(dst, parts)
		}
	}
	return nil, NewError(ErrUnsupportedLeafType, "", fmt.Sprintf("cannot convert %T to %T", from, to))
}
