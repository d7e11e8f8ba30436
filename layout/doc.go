// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package layout computes byte-precise legacy constant buffer layouts.
//
// Constant buffers are made of 16-byte registers. A member begins a new
// register when it is an array, a nested struct of nonzero size, a matrix
// whose storage vector does not fit in the rest of the current register, or
// a scalar or vector that would otherwise straddle a register boundary.
// Everything else packs directly after the previous member.
//
// # Usage
//
//	ctx := layout.NewContext(module, layout.DefaultOptions())
//	bl, err := ctx.PlanBuffer(0)
//	if err != nil {
//		return err
//	}
//	for _, diag := range bl.Diagnostics {
//		log.Println(diag)
//	}
//
// A Context caches struct layouts per (type, default orientation) for the
// duration of one translation unit.
package layout
