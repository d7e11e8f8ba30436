package ir

import (
	"fmt"
)

// ValidationError represents a validation error.
type ValidationError struct {
	Message string
	// Optional context
	Type     *TypeHandle
	Function string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("in function %s: %s", e.Function, e.Message)
	}
	if e.Type != nil {
		return fmt.Sprintf("type %d: %s", *e.Type, e.Message)
	}
	return e.Message
}

// Validator validates IR modules.
type Validator struct {
	module *Module
	errors []ValidationError
}

// Validate checks the module for structural correctness.
// Returns validation errors if any, or nil if module is valid.
//
// Self-referential structs pass validation; the layout planner rejects them
// when they are actually laid out.
func Validate(module *Module) ([]ValidationError, error) {
	if module == nil {
		return nil, fmt.Errorf("module is nil")
	}

	v := &Validator{
		module: module,
		errors: make([]ValidationError, 0),
	}

	v.ValidateModule()

	if len(v.errors) > 0 {
		return v.errors, nil
	}
	return nil, nil
}

// ValidateModule validates the complete module.
func (v *Validator) ValidateModule() {
	v.validateTypes()
	v.validateBuffers()
	v.validateFunctions()
}

func (v *Validator) validateTypes() {
	for i := range v.module.Types {
		v.validateType(TypeHandle(i), &v.module.Types[i])
	}
}

//nolint:gocognit,gocyclo,cyclop // Type validation requires checking many type variants
func (v *Validator) validateType(handle TypeHandle, typ *Type) {
	if typ.Inner == nil {
		v.addTypeError(handle, "nil inner type")
		return
	}

	switch inner := typ.Inner.(type) {
	case ScalarType:
		v.validateScalar(handle, inner, true)

	case VectorType:
		if inner.Size < 1 || inner.Size > 4 {
			v.addTypeError(handle, fmt.Sprintf("vector size must be 1 to 4, got %d", inner.Size))
		}
		v.validateScalar(handle, inner.Scalar, true)

	case MatrixType:
		if inner.Rows < 1 || inner.Rows > 4 || inner.Columns < 1 || inner.Columns > 4 {
			v.addTypeError(handle, fmt.Sprintf("matrix shape %dx%d out of range", inner.Rows, inner.Columns))
		}
		if inner.Orientation > ColumnMajor {
			v.addTypeError(handle, fmt.Sprintf("invalid matrix orientation %d", inner.Orientation))
		}
		v.validateScalar(handle, inner.Scalar, false)

	case ArrayType:
		if !v.isValidTypeHandle(inner.Base) {
			v.addTypeError(handle, fmt.Sprintf("array base type %d does not exist", inner.Base))
		}

	case StructType:
		for _, base := range inner.Bases {
			if !v.isValidTypeHandle(base) {
				v.addTypeError(handle, fmt.Sprintf("base type %d does not exist", base))
				continue
			}
			if _, ok := v.module.Types[base].Inner.(StructType); !ok {
				v.addTypeError(handle, fmt.Sprintf("base %s is not a struct", Format(v.module, base)))
			}
		}
		memberNames := make(map[string]bool)
		for j, member := range inner.Members {
			if member.Name == "" && (member.BitWidth == nil || *member.BitWidth != 0) {
				v.addTypeError(handle, fmt.Sprintf("struct member %d has empty name", j))
			}
			if member.Name != "" && memberNames[member.Name] {
				v.addTypeError(handle, fmt.Sprintf("duplicate struct member name %q", member.Name))
			}
			memberNames[member.Name] = true

			if !v.isValidTypeHandle(member.Type) {
				v.addTypeError(handle, fmt.Sprintf("struct member %q type %d does not exist", member.Name, member.Type))
				continue
			}
			if member.BitWidth != nil {
				v.validateBitField(handle, member)
			}
		}

	case ResourceType:
		if inner.Name == "" {
			v.addTypeError(handle, "resource type has empty name")
		}
		if inner.Result != nil && !v.isValidTypeHandle(*inner.Result) {
			v.addTypeError(handle, fmt.Sprintf("resource result type %d does not exist", *inner.Result))
		}

	case ObjectType:
		if inner.Name == "" {
			v.addTypeError(handle, "object type has empty name")
		}
	}
}

func (v *Validator) validateScalar(handle TypeHandle, s ScalarType, allowModifiers bool) {
	switch s.Kind {
	case ScalarBool:
		if s.Width != 4 {
			v.addTypeError(handle, fmt.Sprintf("bool width must be 4 bytes, got %d", s.Width))
		}
	case ScalarPackedS8x4, ScalarPackedU8x4:
		if !allowModifiers {
			v.addTypeError(handle, "packed kinds are only allowed on scalars and vectors")
		}
		if s.Width != 4 {
			v.addTypeError(handle, fmt.Sprintf("packed width must be 4 bytes, got %d", s.Width))
		}
	default:
		if s.Width != 2 && s.Width != 4 && s.Width != 8 {
			v.addTypeError(handle, fmt.Sprintf("scalar width must be 2, 4, or 8 bytes, got %d", s.Width))
		}
	}
	if s.Norm != NormNone {
		if !allowModifiers {
			v.addTypeError(handle, "normalized kinds are only allowed on scalars and vectors")
		}
		if s.Kind != ScalarFloat {
			v.addTypeError(handle, "normalized kinds require a float scalar")
		}
	}
}

func (v *Validator) validateBitField(handle TypeHandle, member StructMember) {
	scalar, ok := v.module.Types[member.Type].Inner.(ScalarType)
	if !ok || !scalar.Kind.IsInteger() || scalar.Kind.IsPacked() {
		v.addTypeError(handle, fmt.Sprintf("bit-field %q must have an integer scalar type", member.Name))
		return
	}
	if int(*member.BitWidth) > int(scalar.Width)*8 {
		v.addTypeError(handle, fmt.Sprintf("bit-field %q is %d bits wide, wider than its %d-bit type",
			member.Name, *member.BitWidth, int(scalar.Width)*8))
	}
}

func (v *Validator) validateBuffers() {
	for i, cb := range v.module.ConstantBuffers {
		if !v.isValidTypeHandle(cb.Type) {
			v.addError(fmt.Sprintf("constant buffer %d (%s): type %d does not exist", i, cb.Name, cb.Type))
			continue
		}
		if _, ok := v.module.Types[cb.Type].Inner.(StructType); !ok {
			v.addError(fmt.Sprintf("constant buffer %d (%s): body must be a struct", i, cb.Name))
		}
	}
}

func (v *Validator) validateFunctions() {
	for i := range v.module.Functions {
		fn := &v.module.Functions[i]
		for j, arg := range fn.Arguments {
			if !v.isValidTypeHandle(arg.Type) {
				v.errors = append(v.errors, ValidationError{
					Message:  fmt.Sprintf("argument %d (%s): type %d does not exist", j, arg.Name, arg.Type),
					Function: fn.Name,
				})
				continue
			}
			if arg.Direction > DirectionInOut {
				v.errors = append(v.errors, ValidationError{
					Message:  fmt.Sprintf("argument %d (%s): invalid direction %d", j, arg.Name, arg.Direction),
					Function: fn.Name,
				})
			}
			if arg.Coherent {
				if _, ok := v.module.Types[arg.Type].Inner.(ResourceType); !ok {
					v.errors = append(v.errors, ValidationError{
						Message:  fmt.Sprintf("argument %d (%s): globallycoherent requires a resource type", j, arg.Name),
						Function: fn.Name,
					})
				}
			}
		}
	}
}

// Helper methods for validation

func (v *Validator) isValidTypeHandle(handle TypeHandle) bool {
	return int(handle) < len(v.module.Types)
}

func (v *Validator) addError(msg string) {
	v.errors = append(v.errors, ValidationError{
		Message: msg,
	})
}

func (v *Validator) addTypeError(handle TypeHandle, msg string) {
	v.errors = append(v.errors, ValidationError{
		Message: msg,
		Type:    &handle,
	})
}
