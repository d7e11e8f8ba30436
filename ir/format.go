package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Format returns the HLSL spelling of a type, e.g. "float3",
// "row_major float4x4", "Light[4]" or "RWStructuredBuffer<Light>".
// Arrays are spelled with their dimensions after the element type.
func Format(m *Module, handle TypeHandle) string {
	return formatType(m, handle, 0)
}

// FormatInner spells a type that may not have a handle. Structs are spelled
// "struct" since their name lives on the handle.
func FormatInner(m *Module, inner TypeInner) string {
	return formatInner(m, "struct", inner, 0)
}

func formatType(m *Module, handle TypeHandle, depth int) string {
	if depth > 32 {
		return "..."
	}
	if int(handle) >= len(m.Types) {
		return "unknown_type_" + strconv.FormatUint(uint64(handle), 10)
	}
	typ := &m.Types[handle]
	name := typ.Name
	if name == "" {
		name = "struct_" + strconv.FormatUint(uint64(handle), 10)
	}
	return formatInner(m, name, typ.Inner, depth)
}

func formatInner(m *Module, structName string, inner TypeInner, depth int) string {
	switch inner := inner.(type) {
	case ScalarType:
		return FormatScalar(inner)
	case VectorType:
		return normPrefix(inner.Scalar) + scalarName(inner.Scalar) + strconv.Itoa(int(inner.Size))
	case MatrixType:
		prefix := ""
		if inner.Orientation != OrientationUnspecified {
			prefix = inner.Orientation.String() + " "
		}
		return fmt.Sprintf("%s%s%dx%d", prefix, scalarName(inner.Scalar), inner.Rows, inner.Columns)
	case ArrayType:
		base := formatType(m, inner.Base, depth+1)
		if inner.Size.Constant == nil {
			return base + "[]"
		}
		return base + "[" + strconv.FormatUint(uint64(*inner.Size.Constant), 10) + "]"
	case StructType:
		return structName
	case ResourceType:
		var sb strings.Builder
		if inner.Coherent {
			sb.WriteString("globallycoherent ")
		}
		sb.WriteString(inner.Name)
		if inner.Result != nil {
			sb.WriteByte('<')
			sb.WriteString(formatType(m, *inner.Result, depth+1))
			if inner.SampleCount > 0 {
				sb.WriteString(", ")
				sb.WriteString(strconv.FormatUint(uint64(inner.SampleCount), 10))
			}
			sb.WriteByte('>')
		}
		return sb.String()
	case ObjectType:
		return inner.Name
	default:
		return fmt.Sprintf("unknown_type_%T", inner)
	}
}

// FormatScalar returns the HLSL spelling of a scalar type.
func FormatScalar(s ScalarType) string {
	return normPrefix(s) + scalarName(s)
}

func normPrefix(s ScalarType) string {
	switch s.Norm {
	case NormSigned:
		return "snorm "
	case NormUnsigned:
		return "unorm "
	default:
		return ""
	}
}

func scalarName(s ScalarType) string {
	switch s.Kind {
	case ScalarBool:
		return "bool"
	case ScalarSint:
		switch s.Width {
		case 2:
			return "int16_t"
		case 8:
			return "int64_t"
		default:
			return "int"
		}
	case ScalarUint:
		switch s.Width {
		case 2:
			return "uint16_t"
		case 8:
			return "uint64_t"
		default:
			return "uint"
		}
	case ScalarFloat:
		switch s.Width {
		case 2:
			return "half"
		case 8:
			return "double"
		default:
			return "float"
		}
	case ScalarPackedS8x4:
		return "int8_t4_packed"
	case ScalarPackedU8x4:
		return "uint8_t4_packed"
	default:
		return "int"
	}
}
