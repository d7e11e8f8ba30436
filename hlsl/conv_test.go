// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"testing"

	"github.com/gogpu/shaderabi/ir"
)

func TestScalarToHLSL(t *testing.T) {
	tests := []struct {
		scalar ir.ScalarType
		want   string
	}{
		{ir.Bool, "bool"},
		{ir.I16, "int16_t"},
		{ir.I32, "int"},
		{ir.I64, "int64_t"},
		{ir.U16, "uint16_t"},
		{ir.U32, "uint"},
		{ir.U64, "uint64_t"},
		{ir.F16, "float16_t"},
		{ir.F32, "float"},
		{ir.F64, "double"},
		{ir.PackedS, "int8_t4_packed"},
		{ir.PackedU, "uint8_t4_packed"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := ScalarToHLSL(tt.scalar); got != tt.want {
				t.Errorf("ScalarToHLSL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVectorAndMatrixToHLSL(t *testing.T) {
	if got := VectorToHLSL(ir.VectorType{Size: 3, Scalar: ir.F32}); got != "float3" {
		t.Errorf("VectorToHLSL = %q, want float3", got)
	}
	m := ir.MatrixType{Rows: 2, Columns: 3, Scalar: ir.F16, Orientation: ir.RowMajor}
	if got := MatrixToHLSL(m); got != "float16_t2x3" {
		t.Errorf("MatrixToHLSL = %q, want float16_t2x3", got)
	}
	if got := OrientationQualifier(m.Orientation); got != "row_major " {
		t.Errorf("OrientationQualifier(RowMajor) = %q", got)
	}
	if got := OrientationQualifier(ir.OrientationUnspecified); got != "" {
		t.Errorf("OrientationQualifier(unspecified) = %q, want empty", got)
	}
}

func TestBindTarget_Format(t *testing.T) {
	bt := DefaultBindTarget().WithRegister(3).WithSpace(2)
	if got := bt.Format(RegisterTypeB, ShaderModel5_1); got != "register(b3, space2)" {
		t.Errorf("Format = %q", got)
	}
	bt = BindTargetFrom(ir.ResourceBinding{Register: 1})
	if got := bt.Format(RegisterTypeB, ShaderModel5_0); got != "register(b1)" {
		t.Errorf("SM 5.0 Format = %q, want register(b1)", got)
	}
	if got := packoffsetAnnotation(44); got != "packoffset(c2.w)" {
		t.Errorf("packoffsetAnnotation(44) = %q", got)
	}
}
