// Package ir defines the type-level intermediate representation for shaderabi.
//
// The IR describes only what the layout planner and the argument marshaller
// need from a shader front end:
//   - Types: scalars, vectors, matrices, structs with bases, arrays and
//     opaque resources/objects
//   - ConstantBuffers: cbuffer declarations with optional register bindings
//   - Functions: callable signatures with in/out/inout parameters
//
// # Structure
//
// Types are stored in an arena and referenced by TypeHandle. A TypeRegistry
// deduplicates non-struct types structurally and keeps structs nominal, and
// supports reserving a struct handle before its body is known:
//
//	reg := ir.NewTypeRegistry()
//	f32 := reg.Scalar(ir.F32)
//	light := reg.Struct("Light", nil,
//		ir.Member("color", reg.Vector(ir.F32, 3)),
//		ir.Member("intensity", f32),
//	)
//
// Validate performs structural checks; Format spells a type the way HLSL
// source would.
package ir
