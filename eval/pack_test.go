// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package eval

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shaderabi/ir"
	"github.com/gogpu/shaderabi/layout"
)

func planBuffer(t *testing.T, reg *ir.TypeRegistry, body ir.TypeHandle) (*ir.Module, *layout.BufferLayout) {
	t.Helper()
	module := reg.Module()
	module.ConstantBuffers = []ir.ConstantBuffer{{Name: "CB", Type: body}}
	bl, err := layout.NewContext(module, nil).PlanBuffer(0)
	require.NoError(t, err)
	return module, bl
}

func f32At(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
}

func TestPack_Scalars(t *testing.T) {
	reg := ir.NewTypeRegistry()
	body := reg.Struct("CB", nil,
		ir.Member("a", reg.Scalar(ir.F32)),
		ir.Member("b", reg.Vector(ir.F32, 3)),
		ir.Member("c", reg.Scalar(ir.I32)),
		ir.Member("d", reg.Scalar(ir.Bool)))
	module, bl := planBuffer(t, reg, body)

	v, err := FromGo(module, body, map[string]any{
		"a": 1.5,
		"b": []any{2.0, 3.0, 4.0},
		"c": int64(-3),
		"d": true,
	})
	require.NoError(t, err)

	buf, err := Pack(module, bl, v)
	require.NoError(t, err)
	require.Len(t, buf, 32)

	assert.Equal(t, float32(1.5), f32At(buf, 0))
	assert.Equal(t, float32(2), f32At(buf, 4))
	assert.Equal(t, float32(4), f32At(buf, 12))
	assert.Equal(t, int32(-3), int32(binary.LittleEndian.Uint32(buf[16:])))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[20:]))
	assert.Equal(t, make([]byte, 8), buf[24:], "padding is zero")

	back, err := Unpack(module, bl, buf)
	require.NoError(t, err)
	assert.Equal(t, v, back)
}

func TestPack_MatrixOrientation(t *testing.T) {
	tests := []struct {
		name        string
		orientation ir.MatrixOrientation
		offsets     [4]int // of logical (0,0) (0,1) (1,0) (1,1)
		size        int
	}{
		{"row major", ir.RowMajor, [4]int{0, 4, 16, 20}, 32},
		{"column major", ir.ColumnMajor, [4]int{0, 16, 4, 20}, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := ir.NewTypeRegistry()
			body := reg.Struct("CB", nil, ir.Member("m", reg.Matrix(ir.F32, 2, 2, tt.orientation)))
			module, bl := planBuffer(t, reg, body)

			v, err := FromGo(module, body, map[string]any{
				"m": []any{[]any{1.0, 2.0}, []any{3.0, 4.0}},
			})
			require.NoError(t, err)
			buf, err := Pack(module, bl, v)
			require.NoError(t, err)
			require.Len(t, buf, tt.size)

			for i, off := range tt.offsets {
				assert.Equal(t, float32(i+1), f32At(buf, off), "element %d", i)
			}

			back, err := Unpack(module, bl, buf)
			require.NoError(t, err)
			assert.Equal(t, v, back)
		})
	}
}

func TestPack_ArrayStride(t *testing.T) {
	reg := ir.NewTypeRegistry()
	body := reg.Struct("CB", nil,
		ir.Member("w", reg.Array(reg.Scalar(ir.F32), 3)),
		ir.Member("tail", reg.Scalar(ir.F32)))
	module, bl := planBuffer(t, reg, body)

	v, err := FromGo(module, body, map[string]any{
		"w":    []any{1.0, 2.0, 3.0},
		"tail": 9.0,
	})
	require.NoError(t, err)
	buf, err := Pack(module, bl, v)
	require.NoError(t, err)

	assert.Equal(t, float32(1), f32At(buf, 0))
	assert.Equal(t, float32(2), f32At(buf, 16))
	assert.Equal(t, float32(3), f32At(buf, 32))
	assert.Equal(t, float32(9), f32At(buf, 36))
}

func TestPack_BitFields(t *testing.T) {
	reg := ir.NewTypeRegistry()
	u32 := reg.Scalar(ir.U32)
	i32 := reg.Scalar(ir.I32)
	body := reg.Struct("CB", nil,
		ir.BitField("a", u32, 3),
		ir.BitField("b", u32, 5),
		ir.BitField("c", i32, 4))
	module, bl := planBuffer(t, reg, body)

	v, err := FromGo(module, body, map[string]any{
		"a": int64(5),
		"b": int64(17),
		"c": int64(-2),
	})
	require.NoError(t, err)
	buf, err := Pack(module, bl, v)
	require.NoError(t, err)

	assert.Equal(t, uint32(5|17<<3), binary.LittleEndian.Uint32(buf[0:]))
	assert.Equal(t, uint32(0xE), binary.LittleEndian.Uint32(buf[4:]))

	back, err := Unpack(module, bl, buf)
	require.NoError(t, err)
	elems := back.(Composite).Elems
	assert.Equal(t, uint64(5), elems[0].(Scalar).Uint64())
	assert.Equal(t, uint64(17), elems[1].(Scalar).Uint64())
	assert.Equal(t, int64(-2), elems[2].(Scalar).Int64())
}

func TestPack_NestedStructAndBase(t *testing.T) {
	reg := ir.NewTypeRegistry()
	f32 := reg.Scalar(ir.F32)
	base := reg.Struct("Base", nil, ir.Member("id", reg.Scalar(ir.U32)))
	inner := reg.Struct("Inner", nil, ir.Member("x", f32), ir.Member("y", f32))
	derived := reg.Struct("Derived", []ir.TypeHandle{base}, ir.Member("in", inner))
	body := reg.Struct("CB", nil, ir.Member("d", derived))
	module, bl := planBuffer(t, reg, body)

	v, err := FromGo(module, body, map[string]any{
		"d": map[string]any{
			"Base": map[string]any{"id": int64(7)},
			"in":   map[string]any{"x": 1.0, "y": 2.0},
		},
	})
	require.NoError(t, err)
	buf, err := Pack(module, bl, v)
	require.NoError(t, err)

	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(buf[0:]))
	assert.Equal(t, float32(1), f32At(buf, 16))
	assert.Equal(t, float32(2), f32At(buf, 20))

	back, err := Unpack(module, bl, buf)
	require.NoError(t, err)
	assert.Equal(t, v, back)
}

func TestPack_ConflictingField(t *testing.T) {
	reg := ir.NewTypeRegistry()
	f32 := reg.Scalar(ir.F32)
	body := reg.Struct("CB", nil,
		ir.Placed("a", f32, 0),
		ir.Placed("b", f32, 8))
	module, bl := planBuffer(t, reg, body)
	require.True(t, bl.Diagnostics.HasKind(layout.ErrLayoutConflict))

	v, err := Zero(module, body)
	require.NoError(t, err)
	c := v.(Composite)
	c.Elems[0] = Float(ir.F32, 1.5)
	c.Elems[1] = Float(ir.F32, 2.5)

	// The conflicting field is skipped; the rest of the buffer is packed.
	buf, err := Pack(module, bl, c)
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f32At(buf, 0))
	assert.Equal(t, float32(0), f32At(buf, 4))
	assert.Equal(t, float32(0), f32At(buf, 8))

	back, err := Unpack(module, bl, buf)
	require.NoError(t, err)
	elems := back.(Composite).Elems
	assert.Equal(t, 1.5, elems[0].(Scalar).Float64())
	assert.Zero(t, elems[1].(Scalar).Float64())
}

func TestUnpack_ShortBuffer(t *testing.T) {
	reg := ir.NewTypeRegistry()
	body := reg.Struct("CB", nil, ir.Member("v", reg.Vector(ir.F32, 4)))
	module, bl := planBuffer(t, reg, body)

	_, err := Unpack(module, bl, make([]byte, 8))
	assert.ErrorContains(t, err, "need 16 bytes")
}
