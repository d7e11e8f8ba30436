package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeRegistry builds a deduplicated type arena.
// Non-struct types are interned structurally; structs are nominal, so two
// structs with identical members but different names stay distinct.
type TypeRegistry struct {
	types   []Type
	typeMap map[string]TypeHandle
	keyBuf  []byte // reusable buffer for building type keys
}

// NewTypeRegistry creates a new type registry for deduplication.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types:   make([]Type, 0, 16),
		typeMap: make(map[string]TypeHandle, 16),
		keyBuf:  make([]byte, 0, 64),
	}
}

// GetOrCreate returns an existing handle for the type if it exists,
// or creates a new one if it's unique.
func (r *TypeRegistry) GetOrCreate(name string, inner TypeInner) TypeHandle {
	key := r.normalizeType(name, inner)

	if handle, exists := r.typeMap[key]; exists {
		return handle
	}

	handle := TypeHandle(len(r.types))
	r.types = append(r.types, Type{
		Name:  name,
		Inner: inner,
	})
	r.typeMap[key] = handle

	return handle
}

// Reserve allocates a handle for a named struct whose body is not known yet.
// The handle must be completed with Define before the arena is used.
// Reserving a name twice returns the first handle.
func (r *TypeRegistry) Reserve(name string) TypeHandle {
	key := "struct:" + name
	if handle, exists := r.typeMap[key]; exists {
		return handle
	}
	handle := TypeHandle(len(r.types))
	r.types = append(r.types, Type{Name: name, Inner: StructType{}})
	r.typeMap[key] = handle
	return handle
}

// Define sets the body of a reserved struct handle.
func (r *TypeRegistry) Define(handle TypeHandle, inner StructType) error {
	if int(handle) >= len(r.types) {
		return fmt.Errorf("define: type handle %d out of range", handle)
	}
	if _, ok := r.types[handle].Inner.(StructType); !ok {
		return fmt.Errorf("define: type %d is not a struct", handle)
	}
	r.types[handle].Inner = inner
	return nil
}

// GetTypes returns all registered types.
func (r *TypeRegistry) GetTypes() []Type {
	return r.types
}

// Module returns a module holding the registered types.
func (r *TypeRegistry) Module() *Module {
	return &Module{Types: r.types}
}

// normalizeType creates a unique key for a type based on its structure.
func (r *TypeRegistry) normalizeType(name string, inner TypeInner) string {
	b := r.keyBuf[:0]

	switch t := inner.(type) {
	case ScalarType:
		b = appendScalarKey(b, t)
		r.keyBuf = b
		return string(b)

	case VectorType:
		b = append(b, "vec:"...)
		b = strconv.AppendUint(b, uint64(t.Size), 10)
		b = append(b, ':')
		b = appendScalarKey(b, t.Scalar)
		r.keyBuf = b
		return string(b)

	case MatrixType:
		b = append(b, "mat:"...)
		b = strconv.AppendUint(b, uint64(t.Rows), 10)
		b = append(b, 'x')
		b = strconv.AppendUint(b, uint64(t.Columns), 10)
		b = append(b, ':')
		b = strconv.AppendUint(b, uint64(t.Orientation), 10)
		b = append(b, ':')
		b = appendScalarKey(b, t.Scalar)
		r.keyBuf = b
		return string(b)

	case ArrayType:
		sizeKey := "unbounded"
		if t.Size.Constant != nil {
			sizeKey = strconv.FormatUint(uint64(*t.Size.Constant), 10)
		}
		return "array:" + strconv.FormatUint(uint64(t.Base), 10) + ":" + sizeKey

	case StructType:
		return "struct:" + name

	case ResourceType:
		result := "none"
		if t.Result != nil {
			result = strconv.FormatUint(uint64(*t.Result), 10)
		}
		return fmt.Sprintf("resource:%s:%s:%v:%v:%d", t.Name, result, t.Coherent, t.RasterizerOrdered, t.SampleCount)

	case ObjectType:
		return "object:" + t.Name

	default:
		return fmt.Sprintf("unknown:%T", inner)
	}
}

func appendScalarKey(b []byte, s ScalarType) []byte {
	b = append(b, "scalar:"...)
	b = strconv.AppendInt(b, int64(s.Kind), 10)
	b = append(b, ':')
	b = strconv.AppendUint(b, uint64(s.Width), 10)
	b = append(b, ':')
	b = strconv.AppendUint(b, uint64(s.Norm), 10)
	return b
}

// Lookup finds a type by its handle.
func (r *TypeRegistry) Lookup(handle TypeHandle) (Type, bool) {
	if int(handle) >= len(r.types) {
		return Type{}, false
	}
	return r.types[handle], true
}

// Count returns the number of unique types registered.
func (r *TypeRegistry) Count() int {
	return len(r.types)
}

// Scalar is shorthand for registering a scalar type.
func (r *TypeRegistry) Scalar(s ScalarType) TypeHandle {
	return r.GetOrCreate("", s)
}

// Vector is shorthand for registering a vector type.
func (r *TypeRegistry) Vector(s ScalarType, size uint8) TypeHandle {
	return r.GetOrCreate("", VectorType{Size: size, Scalar: s})
}

// Matrix is shorthand for registering a matrix type.
func (r *TypeRegistry) Matrix(s ScalarType, rows, cols uint8, o MatrixOrientation) TypeHandle {
	return r.GetOrCreate("", MatrixType{Rows: rows, Columns: cols, Scalar: s, Orientation: o})
}

// Array is shorthand for registering a sized array type.
func (r *TypeRegistry) Array(base TypeHandle, count uint32) TypeHandle {
	return r.GetOrCreate("", ArrayType{Base: base, Size: ArraySize{Constant: &count}})
}

// Struct registers a struct built from members in one step.
func (r *TypeRegistry) Struct(name string, bases []TypeHandle, members ...StructMember) TypeHandle {
	handle := r.Reserve(name)
	_ = r.Define(handle, StructType{Bases: bases, Members: members})
	return handle
}

// Member is shorthand for a plain struct member.
func Member(name string, typ TypeHandle) StructMember {
	return StructMember{Name: name, Type: typ}
}

// BitField is shorthand for a bit-field struct member.
func BitField(name string, typ TypeHandle, width uint8) StructMember {
	return StructMember{Name: name, Type: typ, BitWidth: &width}
}

// Placed is shorthand for a member with an explicit byte offset.
func Placed(name string, typ TypeHandle, offset uint32) StructMember {
	return StructMember{Name: name, Type: typ, Placement: &offset}
}

// String describes the registry contents, one type per line.
func (r *TypeRegistry) String() string {
	m := r.Module()
	var sb strings.Builder
	for i := range r.types {
		fmt.Fprintf(&sb, "%d: %s\n", i, Format(m, TypeHandle(i)))
	}
	return sb.String()
}
