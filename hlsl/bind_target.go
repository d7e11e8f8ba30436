// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"

	"github.com/gogpu/shaderabi/ir"
)

// BindTarget specifies the HLSL register binding for a resource.
// HLSL uses register(x#, space#) syntax for resource binding.
type BindTarget struct {
	// Space is the register space (0-based).
	// Spaces allow multiple resources to use the same register index.
	Space uint32

	// Register is the register index within the space.
	Register uint32
}

// RegisterType represents the HLSL register type.
type RegisterType uint8

const (
	// RegisterTypeB is for constant buffers (cbuffer).
	RegisterTypeB RegisterType = iota

	// RegisterTypeT is for textures and shader resource views.
	RegisterTypeT

	// RegisterTypeS is for samplers.
	RegisterTypeS

	// RegisterTypeU is for unordered access views (UAV).
	RegisterTypeU
)

// String returns the single-character register prefix.
func (rt RegisterType) String() string {
	switch rt {
	case RegisterTypeB:
		return "b"
	case RegisterTypeT:
		return "t"
	case RegisterTypeS:
		return "s"
	case RegisterTypeU:
		return "u"
	default:
		return "b"
	}
}

// DefaultBindTarget returns a BindTarget in space 0, register 0.
func DefaultBindTarget() BindTarget {
	return BindTarget{
		Space:    0,
		Register: 0,
	}
}

// BindTargetFrom converts an IR binding.
func BindTargetFrom(b ir.ResourceBinding) BindTarget {
	return BindTarget{Space: b.Space, Register: b.Register}
}

// WithSpace returns a copy of the BindTarget with the specified space.
func (bt BindTarget) WithSpace(space uint32) BindTarget {
	bt.Space = space
	return bt
}

// WithRegister returns a copy of the BindTarget with the specified register.
func (bt BindTarget) WithRegister(register uint32) BindTarget {
	bt.Register = register
	return bt
}

// Format returns the register annotation, e.g. "register(b0, space1)".
// Space 0 is omitted for shader models before 5.1, which lack spaces.
func (bt BindTarget) Format(rt RegisterType, sm ShaderModel) string {
	if sm < ShaderModel5_1 && bt.Space == 0 {
		return fmt.Sprintf("register(%s%d)", rt, bt.Register)
	}
	return fmt.Sprintf("register(%s%d, space%d)", rt, bt.Register, bt.Space)
}
