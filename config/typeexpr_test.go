// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shaderabi/ir"
)

func newParser() *TypeParser {
	reg := ir.NewTypeRegistry()
	p := NewTypeParser(reg)
	p.Structs["Light"] = reg.Struct("Light", nil, ir.Member("color", reg.Vector(ir.F32, 3)))
	return p
}

func TestTypeParser_Parse(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"float", "float"},
		{"dword", "uint"},
		{"float3", "float3"},
		{"int16_t2", "int16_t2"},
		{"half2x3", "half2x3"},
		{"row_major float4x4", "row_major float4x4"},
		{"column_major float1x1", "column_major float1x1"},
		{"snorm float4", "snorm float4"},
		{"uint8_t4_packed", "uint8_t4_packed"},
		{"Light", "Light"},
		{"Light[4]", "Light[4]"},
		{"float[]", "float[]"},
		{"Texture2D<float4>", "Texture2D<float4>"},
		{"Texture2DMS<float4, 4>", "Texture2DMS<float4, 4>"},
		{"globallycoherent RWStructuredBuffer<Light>", "globallycoherent RWStructuredBuffer<Light>"},
		{"RasterizerOrderedTexture2D<unorm float4>", "RasterizerOrderedTexture2D<unorm float4>"},
		{"SamplerState", "SamplerState"},
		{"RayQuery", "RayQuery"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			p := newParser()
			h, err := p.Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ir.Format(p.Registry.Module(), h))
		})
	}
}

func TestTypeParser_ArrayDimensions(t *testing.T) {
	p := newParser()
	h, err := p.Parse("float[2][3]")
	require.NoError(t, err)

	module := p.Registry.Module()
	outer, ok := module.Lookup(h).(ir.ArrayType)
	require.True(t, ok)
	require.NotNil(t, outer.Size.Constant)
	assert.Equal(t, uint32(2), *outer.Size.Constant)

	inner, ok := module.Lookup(outer.Base).(ir.ArrayType)
	require.True(t, ok)
	require.NotNil(t, inner.Size.Constant)
	assert.Equal(t, uint32(3), *inner.Size.Constant)
}

func TestTypeParser_Rasterized(t *testing.T) {
	p := newParser()
	h, err := p.Parse("RasterizerOrderedTexture2D<float>")
	require.NoError(t, err)
	r, ok := p.Registry.Module().Lookup(h).(ir.ResourceType)
	require.True(t, ok)
	assert.True(t, r.RasterizerOrdered)
	assert.False(t, r.Coherent)
}

func TestTypeParser_Errors(t *testing.T) {
	tests := []struct {
		src     string
		message string
		column  int
	}{
		{"float5", `unknown type "float5"`, 1},
		{"row_major float4", "row_major applies to matrices only", 11},
		{"snorm int", "snorm applies to float scalars and vectors only", 7},
		{"unorm float2x2", "unorm applies to float scalars and vectors only", 7},
		{"globallycoherent float", "globallycoherent applies to resources only", 18},
		{"row_major column_major float4x4", "duplicate matrix orientation", 11},
		{"row_major Light", "qualifier does not apply to Light", 11},
		{"float4 x", "unexpected identifier after type", 8},
		{"float[", "expected integer, got end of type", 7},
		{"Texture2D<float4", "expected '>', got end of type", 17},
		{"float$", `unexpected character '$'`, 6},
		{"", "expected identifier, got end of type", 1},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := newParser().Parse(tt.src)
			var se *SyntaxError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, tt.message, se.Message)
			assert.Equal(t, tt.column, se.Column)
		})
	}
}

func TestSyntaxError_FormatWithContext(t *testing.T) {
	_, err := newParser().Parse("float4 x")
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "error: unexpected identifier after type\n  | float4 x\n  |        ^\n", se.FormatWithContext())
}
