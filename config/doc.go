// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package config reads TOML declaration files describing structs, constant
// buffers, function signatures and call sites, and builds the IR module and
// options the other packages consume.
//
// Types are written as HLSL type expressions:
//
//	float3
//	row_major float4x4
//	snorm float4
//	globallycoherent RWStructuredBuffer<Light>
//	Texture2DMS<float4, 4>
//	Light[4]
//	float[]
//
// Struct names may be used before their declaration.
package config
