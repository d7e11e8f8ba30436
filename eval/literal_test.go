// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shaderabi/ir"
)

func TestFromGo(t *testing.T) {
	reg := ir.NewTypeRegistry()
	f32 := reg.Scalar(ir.F32)
	u16 := reg.Scalar(ir.U16)
	h := reg.Scalar(ir.F16)
	f3 := reg.Vector(ir.F32, 3)
	m23 := reg.Matrix(ir.F32, 2, 3, ir.RowMajor)
	tex := reg.GetOrCreate("", ir.ResourceType{Name: "Texture2D", Result: &f3})
	s := reg.Struct("S", nil, ir.Member("a", f32), ir.Member("b", f3))
	module := reg.Module()

	t.Run("scalar", func(t *testing.T) {
		v, err := FromGo(module, f32, 2.5)
		require.NoError(t, err)
		assert.Equal(t, "2.5", v.(Scalar).String())
	})
	t.Run("integer truncates to width", func(t *testing.T) {
		v, err := FromGo(module, u16, int64(0x12345))
		require.NoError(t, err)
		assert.Equal(t, uint64(0x2345), v.(Scalar).Uint64())
	})
	t.Run("half", func(t *testing.T) {
		v, err := FromGo(module, h, 0.5)
		require.NoError(t, err)
		assert.Equal(t, uint64(0x3800), v.(Scalar).Bits)
	})
	t.Run("vector splat", func(t *testing.T) {
		v, err := FromGo(module, f3, 1.0)
		require.NoError(t, err)
		assert.Equal(t, "{1, 1, 1}", v.(Composite).String())
	})
	t.Run("matrix rows", func(t *testing.T) {
		v, err := FromGo(module, m23, []any{[]any{1.0, 2.0, 3.0}, []any{4.0, 5.0, 6.0}})
		require.NoError(t, err)
		assert.Equal(t, "{1, 2, 3, 4, 5, 6}", v.(Composite).String())
	})
	t.Run("struct with missing member", func(t *testing.T) {
		v, err := FromGo(module, s, map[string]any{"a": 3.0})
		require.NoError(t, err)
		assert.Equal(t, "{3, {0, 0, 0}}", v.(Composite).String())
	})
	t.Run("handle", func(t *testing.T) {
		v, err := FromGo(module, tex, "albedo")
		require.NoError(t, err)
		assert.Equal(t, "albedo", v.(Handle).Name)
	})
}

func TestFromGo_Errors(t *testing.T) {
	reg := ir.NewTypeRegistry()
	i32 := reg.Scalar(ir.I32)
	f3 := reg.Vector(ir.F32, 3)
	s := reg.Struct("S", nil, ir.Member("a", i32))
	module := reg.Module()

	tests := []struct {
		name string
		typ  ir.TypeHandle
		x    any
		want string
	}{
		{"fraction into int", i32, 1.5, "not an integer"},
		{"wrong component count", f3, []any{1.0, 2.0}, "expected 3 components"},
		{"unknown member", s, map[string]any{"a": int64(1), "zz": int64(2)}, "value: unknown fields [zz]"},
		{"string into number", i32, "x", "expected a number"},
		{"dangling handle", ir.TypeHandle(99), 1.0, "does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromGo(module, tt.typ, tt.x)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
