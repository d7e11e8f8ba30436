package ir

import (
	"strings"
	"testing"
)

func TestValidate_ValidModule(t *testing.T) {
	reg := NewTypeRegistry()
	f32 := reg.Scalar(F32)
	u32 := reg.Scalar(U32)
	light := reg.Struct("Light", nil,
		Member("color", reg.Vector(F32, 3)),
		Member("intensity", f32),
		BitField("flags", u32, 3),
		BitField("", u32, 0),
	)
	tex := reg.GetOrCreate("", ResourceType{Name: "RWTexture2D", Result: &f32, Coherent: true})

	module := reg.Module()
	module.ConstantBuffers = []ConstantBuffer{{Name: "PerFrame", Type: light}}
	module.Functions = []Function{{
		Name: "shade",
		Arguments: []FunctionArgument{
			{Name: "l", Type: light, Direction: DirectionInOut},
			{Name: "t", Type: tex, Direction: DirectionIn, Coherent: true},
		},
	}}

	errors, err := Validate(module)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if len(errors) != 0 {
		t.Errorf("Expected no validation errors, got %v", errors)
	}
}

func TestValidate_NilModule(t *testing.T) {
	if _, err := Validate(nil); err == nil {
		t.Error("Validate(nil) should return an error")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		build  func() *Module
		substr string
	}{
		{
			name: "vector size",
			build: func() *Module {
				return &Module{Types: []Type{{Inner: VectorType{Size: 5, Scalar: F32}}}}
			},
			substr: "vector size",
		},
		{
			name: "matrix shape",
			build: func() *Module {
				return &Module{Types: []Type{{Inner: MatrixType{Rows: 0, Columns: 4, Scalar: F32}}}}
			},
			substr: "matrix shape",
		},
		{
			name: "norm on integer",
			build: func() *Module {
				return &Module{Types: []Type{{Inner: ScalarType{Kind: ScalarSint, Width: 4, Norm: NormSigned}}}}
			},
			substr: "require a float",
		},
		{
			name: "norm on matrix",
			build: func() *Module {
				s := ScalarType{Kind: ScalarFloat, Width: 4, Norm: NormUnsigned}
				return &Module{Types: []Type{{Inner: MatrixType{Rows: 2, Columns: 2, Scalar: s}}}}
			},
			substr: "only allowed on scalars and vectors",
		},
		{
			name: "bool width",
			build: func() *Module {
				return &Module{Types: []Type{{Inner: ScalarType{Kind: ScalarBool, Width: 1}}}}
			},
			substr: "bool width",
		},
		{
			name: "base not struct",
			build: func() *Module {
				return &Module{Types: []Type{
					{Inner: F32},
					{Name: "S", Inner: StructType{Bases: []TypeHandle{0}}},
				}}
			},
			substr: "is not a struct",
		},
		{
			name: "duplicate member",
			build: func() *Module {
				return &Module{Types: []Type{
					{Inner: F32},
					{Name: "S", Inner: StructType{Members: []StructMember{Member("a", 0), Member("a", 0)}}},
				}}
			},
			substr: "duplicate",
		},
		{
			name: "bit-field on float",
			build: func() *Module {
				return &Module{Types: []Type{
					{Inner: F32},
					{Name: "S", Inner: StructType{Members: []StructMember{BitField("a", 0, 3)}}},
				}}
			},
			substr: "integer scalar",
		},
		{
			name: "bit-field too wide",
			build: func() *Module {
				return &Module{Types: []Type{
					{Inner: U16},
					{Name: "S", Inner: StructType{Members: []StructMember{BitField("a", 0, 17)}}},
				}}
			},
			substr: "wider than",
		},
		{
			name: "buffer body",
			build: func() *Module {
				return &Module{
					Types:           []Type{{Inner: F32}},
					ConstantBuffers: []ConstantBuffer{{Name: "CB", Type: 0}},
				}
			},
			substr: "body must be a struct",
		},
		{
			name: "coherent on value",
			build: func() *Module {
				return &Module{
					Types: []Type{{Inner: F32}},
					Functions: []Function{{
						Name:      "f",
						Arguments: []FunctionArgument{{Name: "x", Type: 0, Coherent: true}},
					}},
				}
			},
			substr: "globallycoherent",
		},
		{
			name: "dangling array base",
			build: func() *Module {
				return &Module{Types: []Type{{Inner: ArrayType{Base: 7}}}}
			},
			substr: "does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errors, err := Validate(tt.build())
			if err != nil {
				t.Fatalf("Validate returned error: %v", err)
			}
			if len(errors) == 0 {
				t.Fatal("Expected validation errors")
			}
			found := false
			for _, e := range errors {
				if strings.Contains(e.Error(), tt.substr) {
					found = true
				}
			}
			if !found {
				t.Errorf("Expected error containing %q, got %v", tt.substr, errors)
			}
		})
	}
}
