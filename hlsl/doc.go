// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package hlsl writes HLSL declarations for planned constant buffers.
//
// The output contains every struct reachable from the buffers, in dependency
// order, followed by one cbuffer block per planned buffer. Members carry
// packoffset annotations taken from the computed layout, so that a legacy
// compiler reproduces exactly the offsets this module computed.
//
// # Usage
//
//	ctx := layout.NewContext(module, layout.DefaultOptions())
//	layouts, err := ctx.PlanModule()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	source, info, err := hlsl.Compile(module, layouts, hlsl.DefaultOptions())
//
// # Register Binding
//
// Buffers with an explicit binding are written with register(bN, spaceM).
// Options.BindingMap overrides bindings by buffer name; with
// FakeMissingBindings, unbound buffers get consecutive b registers.
//
// # Packoffset
//
// packoffset(cN.x) can only name 4-byte components. When any member of a
// buffer sits at an offset that is not a multiple of 4, or the buffer holds
// bit-fields, annotations are omitted for the whole buffer and the layout
// is reported in comments instead.
package hlsl
