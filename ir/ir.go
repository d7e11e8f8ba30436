// Package ir defines the type-level intermediate representation consumed by
// the layout planner and the argument marshaller.
//
// Types live in an arena (Module.Types) and reference each other through
// TypeHandle values, so structs may name themselves and bases may be shared.
// Every TypeInner is one of a closed set of variants; algorithms over types
// are exhaustive type switches.
package ir

// Module is a translation unit: its types, constant buffers and functions.
type Module struct {
	// Types holds all type definitions
	Types []Type

	// ConstantBuffers holds cbuffer declarations
	ConstantBuffers []ConstantBuffer

	// Functions holds callable function signatures
	Functions []Function
}

// Handle types for referencing IR objects
type (
	TypeHandle     uint32
	FunctionHandle uint32
	BufferHandle   uint32
)

// Type represents a type in the IR.
type Type struct {
	Name  string
	Inner TypeInner
}

// TypeInner represents the inner type kind.
type TypeInner interface {
	typeInner()
}

// ScalarType represents scalar types.
type ScalarType struct {
	Kind  ScalarKind
	Width uint8 // in bytes
	Norm  NormKind
}

func (ScalarType) typeInner() {}

// ScalarKind represents scalar type kinds.
type ScalarKind uint8

const (
	ScalarSint       ScalarKind = iota // Signed integer
	ScalarUint                         // Unsigned integer
	ScalarFloat                        // Floating point
	ScalarBool                         // Boolean
	ScalarPackedS8x4                   // Four signed bytes packed in 32 bits
	ScalarPackedU8x4                   // Four unsigned bytes packed in 32 bits
)

// NormKind marks a float scalar as normalized.
type NormKind uint8

const (
	NormNone NormKind = iota
	NormSigned
	NormUnsigned
)

// IsInteger reports whether the kind is a signed or unsigned integer,
// including the packed byte kinds.
func (k ScalarKind) IsInteger() bool {
	switch k {
	case ScalarSint, ScalarUint, ScalarPackedS8x4, ScalarPackedU8x4:
		return true
	default:
		return false
	}
}

// IsSigned reports whether integer values of this kind are sign-extended.
func (k ScalarKind) IsSigned() bool {
	return k == ScalarSint
}

// IsPacked reports whether the kind is a packed byte vector.
func (k ScalarKind) IsPacked() bool {
	return k == ScalarPackedS8x4 || k == ScalarPackedU8x4
}

// Common scalar types.
var (
	Bool    = ScalarType{Kind: ScalarBool, Width: 4}
	I16     = ScalarType{Kind: ScalarSint, Width: 2}
	I32     = ScalarType{Kind: ScalarSint, Width: 4}
	I64     = ScalarType{Kind: ScalarSint, Width: 8}
	U16     = ScalarType{Kind: ScalarUint, Width: 2}
	U32     = ScalarType{Kind: ScalarUint, Width: 4}
	U64     = ScalarType{Kind: ScalarUint, Width: 8}
	F16     = ScalarType{Kind: ScalarFloat, Width: 2}
	F32     = ScalarType{Kind: ScalarFloat, Width: 4}
	F64     = ScalarType{Kind: ScalarFloat, Width: 8}
	PackedS = ScalarType{Kind: ScalarPackedS8x4, Width: 4}
	PackedU = ScalarType{Kind: ScalarPackedU8x4, Width: 4}
)

// VectorType represents vector types of one to four components.
type VectorType struct {
	Size   uint8
	Scalar ScalarType
}

func (VectorType) typeInner() {}

// MatrixType represents matrix types.
// Rows and Columns describe the logical shape; Orientation only affects how
// the matrix is laid out in backing storage.
type MatrixType struct {
	Rows        uint8
	Columns     uint8
	Scalar      ScalarType
	Orientation MatrixOrientation
}

func (MatrixType) typeInner() {}

// MatrixOrientation selects the storage order of a matrix.
type MatrixOrientation uint8

const (
	// OrientationUnspecified defers to the configured default.
	OrientationUnspecified MatrixOrientation = iota
	RowMajor
	ColumnMajor
)

// String returns the HLSL qualifier spelling.
func (o MatrixOrientation) String() string {
	switch o {
	case RowMajor:
		return "row_major"
	case ColumnMajor:
		return "column_major"
	default:
		return "unspecified"
	}
}

// ArrayType represents array types.
type ArrayType struct {
	Base TypeHandle
	Size ArraySize
}

func (ArrayType) typeInner() {}

// ArraySize represents array size.
type ArraySize struct {
	Constant *uint32 // nil for unbounded arrays
}

// StructType represents struct types. Bases are laid out before members,
// in declaration order.
type StructType struct {
	Bases   []TypeHandle
	Members []StructMember
}

func (StructType) typeInner() {}

// StructMember represents a struct member.
type StructMember struct {
	Name string
	Type TypeHandle

	// BitWidth is set for bit-field members. Zero closes the current run.
	BitWidth *uint8

	// Placement is an explicit byte offset requested by an annotation
	// (packoffset). It is validated against the computed offset.
	Placement *uint32
}

// ResourceType represents an opaque resource handle such as a texture,
// buffer or sampler. Name is the HLSL template name, e.g. "RWTexture2D".
type ResourceType struct {
	Name              string
	Result            *TypeHandle
	Coherent          bool
	RasterizerOrdered bool
	SampleCount       uint32
}

func (ResourceType) typeInner() {}

// ObjectType represents any other opaque object.
type ObjectType struct {
	Name string
}

func (ObjectType) typeInner() {}

// ConstantBuffer represents a cbuffer declaration whose body is a struct.
type ConstantBuffer struct {
	Name    string
	Type    TypeHandle
	Binding *ResourceBinding
}

// ResourceBinding represents a register binding.
type ResourceBinding struct {
	Space    uint32
	Register uint32
}

// Direction is a parameter passing qualifier.
type Direction uint8

const (
	DirectionIn Direction = iota
	DirectionOut
	DirectionInOut
)

// String returns the HLSL qualifier spelling.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "in"
	case DirectionOut:
		return "out"
	case DirectionInOut:
		return "inout"
	default:
		return "unknown"
	}
}

// Function represents a callable function signature.
type Function struct {
	Name      string
	Arguments []FunctionArgument

	// InlineOnly is set when every call to the function is known to be
	// inlined, so the callee cannot observe the caller's memory afterwards.
	InlineOnly bool
}

// FunctionArgument represents a function parameter.
type FunctionArgument struct {
	Name      string
	Type      TypeHandle
	Direction Direction

	// Coherent marks a resource parameter as globallycoherent.
	Coherent bool
}

// Lookup returns the type inner for a handle, or nil when out of range.
func (m *Module) Lookup(handle TypeHandle) TypeInner {
	if int(handle) >= len(m.Types) {
		return nil
	}
	return m.Types[handle].Inner
}

// IsOpaque reports whether the handle names a resource or object type.
func (m *Module) IsOpaque(handle TypeHandle) bool {
	switch m.Lookup(handle).(type) {
	case ResourceType, ObjectType:
		return true
	default:
		return false
	}
}

// IsAggregate reports whether the handle names a struct or array type.
func (m *Module) IsAggregate(handle TypeHandle) bool {
	switch m.Lookup(handle).(type) {
	case StructType, ArrayType:
		return true
	default:
		return false
	}
}

// IsMatrix reports whether the handle names a matrix type.
func (m *Module) IsMatrix(handle TypeHandle) bool {
	_, ok := m.Lookup(handle).(MatrixType)
	return ok
}

// IsVector reports whether the handle names a vector type.
func (m *Module) IsVector(handle TypeHandle) bool {
	_, ok := m.Lookup(handle).(VectorType)
	return ok
}

// IsArray reports whether the handle names an array type.
func (m *Module) IsArray(handle TypeHandle) bool {
	_, ok := m.Lookup(handle).(ArrayType)
	return ok
}

// FunctionByName finds a function by name.
func (m *Module) FunctionByName(name string) (*Function, bool) {
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return &m.Functions[i], true
		}
	}
	return nil, false
}

// TypeByName finds a named type.
func (m *Module) TypeByName(name string) (TypeHandle, bool) {
	for i := range m.Types {
		if m.Types[i].Name == name {
			return TypeHandle(i), true
		}
	}
	return 0, false
}
