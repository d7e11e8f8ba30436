// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import "strings"

// UnnamedIdentifier is the default name for empty identifiers.
const UnnamedIdentifier = "_unnamed"

// reservedKeywords contains the HLSL keywords, reserved words and resource
// type names that cannot be used as struct, member or buffer names.
var reservedKeywords = map[string]struct{}{
	// =========================================================================
	// FXC keywords
	// =========================================================================
	"AppendStructuredBuffer":  {},
	"asm":                     {},
	"asm_fragment":            {},
	"BlendState":              {},
	"bool":                    {},
	"break":                   {},
	"Buffer":                  {},
	"ByteAddressBuffer":       {},
	"case":                    {},
	"cbuffer":                 {},
	"centroid":                {},
	"class":                   {},
	"column_major":            {},
	"compile":                 {},
	"compile_fragment":        {},
	"CompileShader":           {},
	"const":                   {},
	"continue":                {},
	"ComputeShader":           {},
	"ConsumeStructuredBuffer": {},
	"default":                 {},
	"DepthStencilState":       {},
	"DepthStencilView":        {},
	"discard":                 {},
	"do":                      {},
	"double":                  {},
	"DomainShader":            {},
	"dword":                   {},
	"else":                    {},
	"export":                  {},
	"extern":                  {},
	"false":                   {},
	"float":                   {},
	"for":                     {},
	"fxgroup":                 {},
	"GeometryShader":          {},
	"groupshared":             {},
	"half":                    {},
	"Hullshader":              {},
	"if":                      {},
	"in":                      {},
	"inline":                  {},
	"inout":                   {},
	"InputPatch":              {},
	"int":                     {},
	"interface":               {},
	"line":                    {},
	"lineadj":                 {},
	"linear":                  {},
	"LineStream":              {},
	"matrix":                  {},
	"min10float":              {},
	"min12int":                {},
	"min16float":              {},
	"min16int":                {},
	"min16uint":               {},
	"namespace":               {},
	"nointerpolation":         {},
	"noperspective":           {},
	"NULL":                    {},
	"out":                     {},
	"OutputPatch":             {},
	"packoffset":              {},
	"pass":                    {},
	"pixelfragment":           {},
	"PixelShader":             {},
	"point":                   {},
	"PointStream":             {},
	"precise":                 {},
	"RasterizerState":         {},
	"RenderTargetView":        {},
	"return":                  {},
	"register":                {},
	"row_major":               {},
	"RWBuffer":                {},
	"RWByteAddressBuffer":     {},
	"RWStructuredBuffer":      {},
	"RWTexture1D":             {},
	"RWTexture1DArray":        {},
	"RWTexture2D":             {},
	"RWTexture2DArray":        {},
	"RWTexture3D":             {},
	"sample":                  {},
	"sampler":                 {},
	"SamplerState":            {},
	"SamplerComparisonState":  {},
	"shared":                  {},
	"snorm":                   {},
	"stateblock":              {},
	"stateblock_state":        {},
	"static":                  {},
	"string":                  {},
	"struct":                  {},
	"switch":                  {},
	"StructuredBuffer":        {},
	"tbuffer":                 {},
	"technique":               {},
	"technique10":             {},
	"technique11":             {},
	"texture":                 {},
	"Texture1D":               {},
	"Texture1DArray":          {},
	"Texture2D":               {},
	"Texture2DArray":          {},
	"Texture2DMS":             {},
	"Texture2DMSArray":        {},
	"Texture3D":               {},
	"TextureCube":             {},
	"TextureCubeArray":        {},
	"true":                    {},
	"typedef":                 {},
	"triangle":                {},
	"triangleadj":             {},
	"TriangleStream":          {},
	"uint":                    {},
	"uniform":                 {},
	"unorm":                   {},
	"unsigned":                {},
	"vector":                  {},
	"vertexfragment":          {},
	"VertexShader":            {},
	"void":                    {},
	"volatile":                {},
	"while":                   {},

	// =========================================================================
	// Reserved words
	// =========================================================================
	"auto":             {},
	"catch":            {},
	"char":             {},
	"const_cast":       {},
	"delete":           {},
	"dynamic_cast":     {},
	"enum":             {},
	"explicit":         {},
	"friend":           {},
	"goto":             {},
	"long":             {},
	"mutable":          {},
	"new":              {},
	"operator":         {},
	"private":          {},
	"protected":        {},
	"public":           {},
	"reinterpret_cast": {},
	"short":            {},
	"signed":           {},
	"sizeof":           {},
	"static_cast":      {},
	"template":         {},
	"this":             {},
	"throw":            {},
	"try":              {},
	"typename":         {},
	"union":            {},
	"using":            {},
	"virtual":          {},

	// =========================================================================
	// Resource types
	// =========================================================================
	"RWTexture2DMS":                      {},
	"RWTexture2DMSArray":                 {},
	"RWTextureCube":                      {},
	"RWTextureCubeArray":                 {},
	"FeedbackTexture2D":                  {},
	"FeedbackTexture2DArray":             {},
	"RasterizerOrderedTexture1D":         {},
	"RasterizerOrderedTexture2D":         {},
	"RasterizerOrderedTexture3D":         {},
	"RasterizerOrderedTexture1DArray":    {},
	"RasterizerOrderedTexture2DArray":    {},
	"RasterizerOrderedBuffer":            {},
	"RasterizerOrderedByteAddressBuffer": {},
	"RasterizerOrderedStructuredBuffer":  {},
	"ConstantBuffer":                     {},
	"TextureBuffer":                      {},
	"RaytracingAccelerationStructure":    {},
	"RayQuery":                           {},
	"RayDesc":                            {},

	"globallycoherent": {},
}

// caseInsensitiveKeywords contains keywords that are case-insensitive in HLSL.
// These need special handling to avoid conflicts.
var caseInsensitiveKeywords = map[string]struct{}{
	"asm":         {},
	"decl":        {},
	"pass":        {},
	"technique":   {},
	"texture1d":   {},
	"texture2d":   {},
	"texture3d":   {},
	"texturecube": {},
}

// typeShorthands contains all scalar, vector, and matrix type shorthands.
// Generated programmatically from base types.
var typeShorthands = func() map[string]struct{} {
	result := make(map[string]struct{})

	// Base scalar types
	bases := []string{
		"bool", "int", "uint", "dword", "half", "float", "double",
		"min10float", "min16float", "min12int", "min16int", "min16uint",
		"int16_t", "int32_t", "int64_t", "uint16_t", "uint32_t", "uint64_t",
		"float16_t", "float32_t", "float64_t", "int8_t4_packed", "uint8_t4_packed",
	}

	// Add scalar types
	for _, base := range bases {
		result[base] = struct{}{}
	}

	// Vector-supporting types (subset of bases)
	vectorBases := []string{
		"bool", "int", "uint", "dword", "half", "float", "double",
		"min10float", "min16float", "min12int", "min16int", "min16uint",
		"int16_t", "int32_t", "int64_t", "uint16_t", "uint32_t", "uint64_t",
		"float16_t", "float32_t", "float64_t",
	}

	// Generate vector types: base1, base2, base3, base4
	for _, base := range vectorBases {
		for i := 1; i <= 4; i++ {
			result[base+string(rune('0'+i))] = struct{}{}
		}
	}

	// Matrix-supporting types
	matrixBases := []string{
		"bool", "int", "uint", "half", "float", "double",
		"min10float", "min16float", "min12int", "min16int", "min16uint",
		"float16_t", "float32_t", "float64_t",
	}

	// Generate matrix types: baseRxC where R,C in {1,2,3,4}
	for _, base := range matrixBases {
		for r := 1; r <= 4; r++ {
			for c := 1; c <= 4; c++ {
				result[base+string(rune('0'+r))+"x"+string(rune('0'+c))] = struct{}{}
			}
		}
	}

	return result
}()

// IsReserved checks if a name is an HLSL reserved keyword.
func IsReserved(name string) bool {
	if _, ok := reservedKeywords[name]; ok {
		return true
	}
	if _, ok := typeShorthands[name]; ok {
		return true
	}
	return false
}

// IsCaseInsensitiveReserved checks if a name conflicts with case-insensitive keywords.
// HLSL has some keywords that are case-insensitive (legacy behavior).
func IsCaseInsensitiveReserved(name string) bool {
	lower := strings.ToLower(name)
	_, ok := caseInsensitiveKeywords[lower]
	return ok
}

// Escape returns a safe identifier name.
// If the name is reserved or empty, it's prefixed with underscore.
func Escape(name string) string {
	if name == "" {
		return UnnamedIdentifier
	}
	if IsReserved(name) || IsCaseInsensitiveReserved(name) {
		return "_" + name
	}
	return name
}
