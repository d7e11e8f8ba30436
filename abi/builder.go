// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package abi

import "github.com/gogpu/shaderabi/ir"

// Value is a register value produced by a Builder. Its dynamic type is up
// to the Builder implementation.
type Value = any

// Address refers to storage owned by a Builder.
type Address = any

// CallArg is one final argument passed to a callee.
type CallArg struct {
	Address   Address
	Direction ir.Direction
}

// Builder emits the instructions the marshaller and the aggregate
// copy routines need. Types are passed as TypeInner values; handles inside
// structs and arrays refer to the builder's module.
//
// Element indexes a vector by component, a matrix by storage position, an
// array by element and a struct by base then member, counting bases first.
// Matrix values in registers are always canonical row-major; Load and Store
// of a matrix move its elements in storage order unchanged.
type Builder interface {
	// Alloca reserves function-local storage for a value of type t.
	Alloca(t ir.TypeInner) (Address, error)

	// Release ends the lifetime of storage returned by Alloca.
	Release(addr Address)

	// Element returns the address of the index-th sub-object at addr.
	Element(addr Address, t ir.TypeInner, index int) (Address, error)

	Load(addr Address, t ir.TypeInner) (Value, error)
	Store(addr Address, v Value, t ir.TypeInner) error

	// Extract returns the index-th element of an aggregate value.
	Extract(v Value, t ir.TypeInner, index int) (Value, error)

	// Compose builds an aggregate value from its elements in Element order.
	Compose(t ir.TypeInner, parts []Value) (Value, error)

	// Cast applies a single numeric conversion instruction.
	Cast(op Op, v Value, from, to ir.ScalarType) (Value, error)

	// NotZero compares v against zero, yielding a bool.
	NotZero(v Value, from ir.ScalarType) (Value, error)

	// Clamp limits a float value to [lo, hi].
	Clamp(v Value, s ir.ScalarType, lo, hi float64) (Value, error)

	// Narrow keeps the low width bits of an integer value, sign-extending
	// signed kinds. It gives a bit-field member the value its storage holds.
	Narrow(v Value, s ir.ScalarType, width uint8) (Value, error)

	// Annotate returns a copy of an opaque handle with its coherence set.
	Annotate(handle Value, t ir.TypeInner, coherent bool) (Value, error)

	// ReplaceUses redirects later uses of old to replacement.
	ReplaceUses(old, replacement Address) error

	Call(callee *ir.Function, args []CallArg) error
}
