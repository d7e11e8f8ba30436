// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"

	"github.com/gogpu/shaderabi/ir"
)

// HLSL type name constants.
const (
	hlslInt  = "int"
	hlslUint = "uint"
)

// ScalarToHLSL returns the HLSL type name for a scalar type.
// 16-bit types use the native spellings, which match the 2-byte layout.
// Ref: https://docs.microsoft.com/en-us/windows/win32/direct3dhlsl/dx-graphics-hlsl-scalar
func ScalarToHLSL(s ir.ScalarType) string {
	switch s.Kind {
	case ir.ScalarBool:
		return "bool"
	case ir.ScalarSint:
		switch s.Width {
		case 2:
			return "int16_t"
		case 8:
			return "int64_t"
		default:
			return hlslInt
		}
	case ir.ScalarUint:
		switch s.Width {
		case 2:
			return "uint16_t"
		case 8:
			return "uint64_t"
		default:
			return hlslUint
		}
	case ir.ScalarFloat:
		switch s.Width {
		case 2:
			return "float16_t"
		case 8:
			return "double"
		default:
			return "float"
		}
	case ir.ScalarPackedS8x4:
		return "int8_t4_packed"
	case ir.ScalarPackedU8x4:
		return "uint8_t4_packed"
	default:
		return hlslInt
	}
}

// normPrefix returns the unorm/snorm qualifier of a resource element type.
func normPrefix(s ir.ScalarType) string {
	switch s.Norm {
	case ir.NormSigned:
		return "snorm "
	case ir.NormUnsigned:
		return "unorm "
	default:
		return ""
	}
}

// VectorToHLSL returns the HLSL type name for a vector type.
// HLSL uses TypeN syntax (e.g., float4, int3).
func VectorToHLSL(v ir.VectorType) string {
	return fmt.Sprintf("%s%d", ScalarToHLSL(v.Scalar), v.Size)
}

// MatrixToHLSL returns the HLSL type name for a matrix type, without its
// orientation qualifier. HLSL uses TypeRxC syntax (e.g., float4x4, half3x2).
func MatrixToHLSL(m ir.MatrixType) string {
	return fmt.Sprintf("%s%dx%d", ScalarToHLSL(m.Scalar), m.Rows, m.Columns)
}

// OrientationQualifier returns "row_major " or "column_major " for an
// explicitly oriented matrix, and "" otherwise.
func OrientationQualifier(o ir.MatrixOrientation) string {
	switch o {
	case ir.RowMajor, ir.ColumnMajor:
		return o.String() + " "
	default:
		return ""
	}
}

// scalarFeatures returns the features needed to declare a scalar.
func scalarFeatures(s ir.ScalarType) FeatureFlags {
	switch s.Kind {
	case ir.ScalarFloat:
		if s.Width == 2 {
			return FeatureFloat16
		}
	case ir.ScalarSint, ir.ScalarUint:
		switch s.Width {
		case 2:
			return Feature16BitIntegers
		case 8:
			return Feature64BitIntegers
		}
	case ir.ScalarPackedS8x4, ir.ScalarPackedU8x4:
		return FeaturePackedInt8
	}
	return FeatureNone
}
