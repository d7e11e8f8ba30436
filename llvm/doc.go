// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package llvm implements abi.Builder on top of github.com/llir/llvm, so
// argument marshalling and aggregate copies can be emitted as textual LLVM
// IR.
//
// Shader types map to LLVM types as follows: scalars to iN, half, float and
// double (bool is i32, as in memory); vectors to <N x T>; matrices to
// [R*C x T] arrays in storage order; arrays to [N x T]; structs to literal
// struct types holding bases then members; resources and objects to i8*
// handles.
package llvm
