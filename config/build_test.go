// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/gogpu/shaderabi/abi"
	"github.com/gogpu/shaderabi/ir"
)

const frameDecls = `
[options]
default_orientation = "row_major"
matrix_starts_register = true
elide_input_copies = false

[[struct]]
name = "Frame"
bases = ["Base"]

  [[struct.field]]
  name = "light"
  type = "Light"

  [[struct.field]]
  name = "flags"
  type = "uint"
  bits = 3

  [[struct.field]]
  name = "scale"
  type = "float"
  offset = 48

[[struct]]
name = "Base"

  [[struct.field]]
  name = "time"
  type = "float"

[[struct]]
name = "Light"

  [[struct.field]]
  name = "color"
  type = "float3"

  [[struct.field]]
  name = "xf"
  type = "float4x4"

[[buffer]]
name = "PerFrame"
struct = "Frame"
register = 2
space = 1

  [buffer.values]
  time = 0.5
  flags = 5
  light = { color = [1.0, 0.5, 0.25] }

[[buffer]]
name = "Unbound"
struct = "Light"

[[function]]
name = "shade"
inline_only = true

  [[function.param]]
  name = "v"
  type = "float3"
  direction = "inout"

  [[function.param]]
  name = "m"
  type = "row_major float4x4"

[[call]]
callee = "shade"

  [[call.arg]]
  name = "c"
  origin = "temp"
  value = [1, 2, 3]

  [[call.arg]]
  type = "column_major float4x4"
  origin = "global"
  aliased = true
`

func buildString(t *testing.T, src string) (*Declarations, error) {
	t.Helper()
	f, err := Parse([]byte(src))
	require.NoError(t, err)
	return Build(f)
}

func TestBuild(t *testing.T) {
	decls, err := buildString(t, frameDecls)
	require.NoError(t, err)

	t.Run("options", func(t *testing.T) {
		assert.Equal(t, ir.RowMajor, decls.Layout.DefaultOrientation)
		assert.True(t, decls.Layout.MatrixStartsRegister)
		assert.False(t, decls.Layout.ZeroSizeStructStartsRegister)
		assert.Equal(t, ir.RowMajor, decls.ABI.DefaultOrientation)
		assert.False(t, decls.ABI.ElideInputCopies)
	})

	module := decls.Module

	t.Run("structs", func(t *testing.T) {
		frame, ok := module.TypeByName("Frame")
		require.True(t, ok)
		base, ok := module.TypeByName("Base")
		require.True(t, ok)
		light, ok := module.TypeByName("Light")
		require.True(t, ok)

		st, ok := module.Lookup(frame).(ir.StructType)
		require.True(t, ok)
		assert.Equal(t, []ir.TypeHandle{base}, st.Bases)
		require.Len(t, st.Members, 3)
		assert.Equal(t, light, st.Members[0].Type)
		require.NotNil(t, st.Members[1].BitWidth)
		assert.Equal(t, uint8(3), *st.Members[1].BitWidth)
		require.NotNil(t, st.Members[2].Placement)
		assert.Equal(t, uint32(48), *st.Members[2].Placement)

		lt := module.Lookup(light).(ir.StructType)
		assert.Equal(t, "float4x4", ir.Format(module, lt.Members[1].Type))
	})

	t.Run("buffers", func(t *testing.T) {
		require.Len(t, module.ConstantBuffers, 2)
		assert.Equal(t, &ir.ResourceBinding{Space: 1, Register: 2}, module.ConstantBuffers[0].Binding)
		assert.Nil(t, module.ConstantBuffers[1].Binding)

		values := decls.Values["PerFrame"]
		assert.Equal(t, 0.5, values["time"])
		assert.Equal(t, int64(5), values["flags"])
		assert.Equal(t, map[string]any{"color": []any{1.0, 0.5, 0.25}}, values["light"])
		assert.NotContains(t, decls.Values, "Unbound")
	})

	t.Run("calls", func(t *testing.T) {
		fn, ok := module.FunctionByName("shade")
		require.True(t, ok)
		assert.True(t, fn.InlineOnly)
		assert.Equal(t, ir.DirectionInOut, fn.Arguments[0].Direction)
		assert.Equal(t, ir.DirectionIn, fn.Arguments[1].Direction)

		require.Len(t, decls.Calls, 1)
		call := decls.Calls[0]
		assert.Same(t, fn, call.Callee)
		require.Len(t, call.Args, 2)

		c := call.Args[0]
		assert.Equal(t, "c", c.Name)
		assert.Equal(t, fn.Arguments[0].Type, c.Type)
		assert.Equal(t, abi.OriginTemp, c.Origin)
		assert.Equal(t, []any{int64(1), int64(2), int64(3)}, c.Value)

		m := call.Args[1]
		assert.Equal(t, "arg1", m.Name)
		assert.Equal(t, "column_major float4x4", ir.Format(module, m.Type))
		assert.Equal(t, abi.OriginGlobal, m.Origin)
		assert.True(t, m.Aliased)
		assert.Nil(t, m.Value)

		arg := m.Argument(7)
		assert.Equal(t, abi.Address(7), arg.Address)
		assert.Equal(t, m.Type, arg.Type)
		assert.True(t, arg.Aliased)
	})
}

func TestBuild_Defaults(t *testing.T) {
	decls, err := buildString(t, `
[[struct]]
name = "S"
  [[struct.field]]
  name = "x"
  type = "float"

[[function]]
name = "f"
  [[function.param]]
  name = "x"
  type = "float"

[[call]]
callee = "f"
  [[call.arg]]
`)
	require.NoError(t, err)
	assert.Equal(t, ir.ColumnMajor, decls.Layout.DefaultOrientation)
	assert.True(t, decls.ABI.ElideInputCopies)
	require.Len(t, decls.Calls, 1)
	assert.Equal(t, abi.OriginLocal, decls.Calls[0].Args[0].Origin)
	assert.Equal(t, "arg0", decls.Calls[0].Args[0].Name)
}

func TestBuild_Errors(t *testing.T) {
	_, err := buildString(t, `
[options]
default_orientation = "diagonal"

[[struct]]
name = "A"
bases = ["Missing"]
  [[struct.field]]
  name = "x"
  type = "float5"

[[struct]]
name = "A"

[[struct]]
name = "B"
  [[struct.field]]
  name = "wide"
  type = "uint"
  bits = 70

[[buffer]]
name = "cb"
struct = "Nope"

[[function]]
name = "f"
  [[function.param]]
  name = "p"
  type = "float"
  direction = "sideways"

[[call]]
callee = "g"

[[function]]
name = "h"
  [[function.param]]
  name = "p"
  type = "float"

[[call]]
callee = "h"
  [[call.arg]]
  origin = "heap"
`)
	require.Error(t, err)

	errs := multierr.Errors(err)
	var kinds []string
	for _, e := range errs {
		var de *DeclError
		require.True(t, errors.As(e, &de), "unexpected error %v", e)
		kinds = append(kinds, de.Kind)
	}
	assert.Equal(t, []string{
		"options",
		"struct",   // A declared twice
		"struct",   // unknown base
		"struct",   // float5
		"struct",   // bit width
		"buffer",   // unknown struct
		"function", // direction
		"call",     // unknown function
		"call",     // unknown origin
	}, kinds)

	assert.Contains(t, err.Error(), `unknown base "Missing"`)
	assert.Contains(t, err.Error(), `unknown type "float5"`)
	assert.Contains(t, err.Error(), `unknown origin "heap"`)

	var se *SyntaxError
	assert.True(t, errors.As(err, &se))
}

func TestBuild_ValidationErrors(t *testing.T) {
	_, err := buildString(t, `
[[struct]]
name = "S"
  [[struct.field]]
  name = "f"
  type = "float"
  bits = 3

[[function]]
name = "f"
  [[function.param]]
  name = "x"
  type = "float"
  coherent = true
`)
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	var ve ir.ValidationError
	assert.True(t, errors.As(errs[0], &ve))
	assert.Contains(t, errs[0].Error(), "must have an integer scalar type")
	assert.Contains(t, errs[1].Error(), "globallycoherent requires a resource type")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.toml")
	require.NoError(t, os.WriteFile(path, []byte(frameDecls), 0o600))

	decls, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, decls.Module.ConstantBuffers, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[[struct]\n"), 0o600))
	_, err = LoadFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)
}

func TestFile_Encode(t *testing.T) {
	bits := int64(4)
	f := &File{
		Structs: []*StructDecl{{
			Name:   "S",
			Fields: []*FieldDecl{{Name: "x", Type: "uint", Bits: &bits}},
		}},
	}
	data, err := f.Encode()
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, back.Structs, 1)
	require.Len(t, back.Structs[0].Fields, 1)
	assert.Equal(t, "uint", back.Structs[0].Fields[0].Type)
	require.NotNil(t, back.Structs[0].Fields[0].Bits)
	assert.Equal(t, int64(4), *back.Structs[0].Fields[0].Bits)
}
