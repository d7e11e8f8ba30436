// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package eval

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/x448/float16"

	"github.com/gogpu/shaderabi/ir"
)

// Scalar is a concrete scalar value stored as its raw bits.
// Floats use their IEEE encoding at the type's width (binary16 for half),
// integers are two's complement truncated to the width, bools are 0 or 1.
type Scalar struct {
	Type ir.ScalarType
	Bits uint64
}

func widthMask(width uint8) uint64 {
	if width >= 8 {
		return math.MaxUint64
	}
	return 1<<(uint(width)*8) - 1
}

// Float returns a float scalar of type s holding f.
func Float(s ir.ScalarType, f float64) Scalar {
	switch s.Width {
	case 2:
		return Scalar{Type: s, Bits: uint64(float16.Fromfloat32(float32(f)).Bits())}
	case 8:
		return Scalar{Type: s, Bits: math.Float64bits(f)}
	default:
		return Scalar{Type: s, Bits: uint64(math.Float32bits(float32(f)))}
	}
}

// Int returns an integer scalar of type s holding i truncated to its width.
func Int(s ir.ScalarType, i int64) Scalar {
	return Scalar{Type: s, Bits: uint64(i) & widthMask(s.Width)}
}

// Uint returns an integer scalar of type s holding u truncated to its width.
func Uint(s ir.ScalarType, u uint64) Scalar {
	return Scalar{Type: s, Bits: u & widthMask(s.Width)}
}

// Bool returns a bool scalar.
func Bool(b bool) Scalar {
	if b {
		return Scalar{Type: ir.Bool, Bits: 1}
	}
	return Scalar{Type: ir.Bool}
}

// Float64 interprets the bits as a float of the scalar's width.
func (s Scalar) Float64() float64 {
	switch s.Type.Width {
	case 2:
		return float64(float16.Frombits(uint16(s.Bits)).Float32())
	case 8:
		return math.Float64frombits(s.Bits)
	default:
		return float64(math.Float32frombits(uint32(s.Bits)))
	}
}

// Int64 sign-extends the bits from the scalar's width.
func (s Scalar) Int64() int64 {
	shift := 64 - uint(s.Type.Width)*8
	return int64(s.Bits<<shift) >> shift
}

// Uint64 returns the bits zero-extended.
func (s Scalar) Uint64() uint64 {
	return s.Bits & widthMask(s.Type.Width)
}

// Bool reports whether the bits are nonzero.
func (s Scalar) Bool() bool {
	return s.Bits != 0
}

// String formats the value according to its kind.
func (s Scalar) String() string {
	switch s.Type.Kind {
	case ir.ScalarFloat:
		return strconv.FormatFloat(s.Float64(), 'g', -1, 64)
	case ir.ScalarSint:
		return strconv.FormatInt(s.Int64(), 10)
	case ir.ScalarUint:
		return strconv.FormatUint(s.Uint64(), 10)
	case ir.ScalarBool:
		return strconv.FormatBool(s.Bool())
	default:
		return fmt.Sprintf("0x%08x", s.Uint64())
	}
}

// Composite is a vector, matrix, array or struct value. Matrix elements are
// in canonical row-major order; struct elements are bases then members.
type Composite struct {
	Type  ir.TypeInner
	Elems []any
}

// String formats the elements in braces.
func (c Composite) String() string {
	parts := make([]string, len(c.Elems))
	for i, e := range c.Elems {
		parts[i] = fmt.Sprint(e)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Handle is the value of a resource or object.
type Handle struct {
	// Name identifies the bound object; empty for a null handle.
	Name     string
	Type     ir.TypeInner
	Coherent bool
}

// String returns the handle's name and coherence.
func (h Handle) String() string {
	name := h.Name
	if name == "" {
		name = "null"
	}
	if h.Coherent {
		return "globallycoherent " + name
	}
	return name
}

// storageCompatible reports whether values of a and b share a storage
// representation. Normalization is a value range, not a representation, and
// packed bytes are stored as uint.
func storageCompatible(a, b ir.ScalarType) bool {
	norm := func(s ir.ScalarType) ir.ScalarType {
		if s.Kind.IsPacked() {
			return ir.U32
		}
		return ir.ScalarType{Kind: s.Kind, Width: s.Width}
	}
	return norm(a) == norm(b)
}
