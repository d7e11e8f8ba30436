// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/shaderabi/ir"
	"github.com/gogpu/shaderabi/layout"
)

// compileBuffers plans every buffer of the module and writes it.
func compileBuffers(t *testing.T, module *ir.Module, opts *Options) (string, *TranslationInfo, error) {
	t.Helper()
	layouts, _ := layout.NewContext(module, layout.DefaultOptions()).PlanModule()
	if len(layouts) != len(module.ConstantBuffers) {
		t.Fatalf("planned %d of %d buffers", len(layouts), len(module.ConstantBuffers))
	}
	return Compile(module, layouts, opts)
}

func TestCompile_Packoffset(t *testing.T) {
	reg := ir.NewTypeRegistry()
	f32 := reg.Scalar(ir.F32)
	f3 := reg.Vector(ir.F32, 3)
	light := reg.Struct("Light", nil,
		ir.Member("pos", f3),
		ir.Member("intensity", f32))
	body := reg.Struct("Camera", nil,
		ir.Member("view", reg.Matrix(ir.F32, 4, 4, ir.RowMajor)),
		ir.Member("exposure", f32),
		ir.Member("eye", f3),
		ir.Member("lights", reg.Array(light, 2)))
	module := reg.Module()
	module.ConstantBuffers = []ir.ConstantBuffer{{Name: "Camera", Type: body}}

	got, info, err := compileBuffers(t, module, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	want := `struct Light {
    float3 pos;
    float intensity;
};

cbuffer Camera : register(b0, space0) {
    row_major float4x4 view : packoffset(c0);
    float exposure : packoffset(c4);
    float3 eye : packoffset(c4.y);
    Light lights[2] : packoffset(c5);
};

`
	if got != want {
		t.Errorf("Compile output mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
	if len(info.StructNames) != 1 || info.StructNames[0] != "Light" {
		t.Errorf("StructNames = %v, want [Light]", info.StructNames)
	}
	if info.RegisterBindings["Camera"] != "register(b0, space0)" {
		t.Errorf("RegisterBindings[Camera] = %q", info.RegisterBindings["Camera"])
	}
	if info.UsedFeatures != FeatureNone {
		t.Errorf("UsedFeatures = %s, want none", info.UsedFeatures)
	}
	if info.RequiredShaderModel != ShaderModel5_1 {
		t.Errorf("RequiredShaderModel = %s, want SM 5.1", info.RequiredShaderModel)
	}
}

func TestCompile_PackoffsetOmitted(t *testing.T) {
	reg := ir.NewTypeRegistry()
	u32 := reg.Scalar(ir.U32)
	f16 := reg.Scalar(ir.F16)
	body := reg.Struct("Flags", nil,
		ir.BitField("a", u32, 3),
		ir.BitField("b", u32, 5),
		ir.Member("h", f16),
		ir.Member("h2", f16))
	module := reg.Module()
	module.ConstantBuffers = []ir.ConstantBuffer{{Name: "Flags", Type: body}}

	opts := DefaultOptions()
	opts.OffsetComments = true
	got, info, err := compileBuffers(t, module, opts)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	want := `cbuffer Flags : register(b0, space0) {
    uint a : 3; // offset 0, bits 0..2
    uint b : 5; // offset 0, bits 3..7
    float16_t h; // offset 4, size 2
    float16_t h2; // offset 6, size 2
};

`
	if got != want {
		t.Errorf("Compile output mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
	if len(info.PackoffsetOmitted) != 1 || info.PackoffsetOmitted[0] != "Flags" {
		t.Errorf("PackoffsetOmitted = %v, want [Flags]", info.PackoffsetOmitted)
	}
	if !info.UsedFeatures.Has(FeatureBitFields) || !info.UsedFeatures.Has(FeatureFloat16) {
		t.Errorf("UsedFeatures = %s, want BitFields and Float16", info.UsedFeatures)
	}
	if info.RequiredShaderModel != ShaderModel6_2 {
		t.Errorf("RequiredShaderModel = %s, want SM 6.2", info.RequiredShaderModel)
	}
}

func TestCompile_StrictShaderModel(t *testing.T) {
	reg := ir.NewTypeRegistry()
	body := reg.Struct("Wide", nil, ir.Member("v", reg.Scalar(ir.U64)))
	module := reg.Module()
	module.ConstantBuffers = []ir.ConstantBuffer{{Name: "Wide", Type: body}}

	opts := DefaultOptions()
	opts.StrictShaderModel = true
	_, _, err := compileBuffers(t, module, opts)

	var herr *Error
	if !errors.As(err, &herr) || herr.Kind != ErrInvalidShaderModel {
		t.Fatalf("expected ErrInvalidShaderModel, got %v", err)
	}

	opts.ShaderModel = ShaderModel6_0
	if _, _, err := compileBuffers(t, module, opts); err != nil {
		t.Errorf("SM 6.0: unexpected error %v", err)
	}
}

func TestCompile_Bindings(t *testing.T) {
	reg := ir.NewTypeRegistry()
	f32 := reg.Scalar(ir.F32)
	module := reg.Module()
	module.ConstantBuffers = []ir.ConstantBuffer{
		{Name: "A", Type: reg.Struct("A", nil, ir.Member("a", f32)), Binding: &ir.ResourceBinding{Space: 0, Register: 0}},
		{Name: "B", Type: reg.Struct("B", nil, ir.Member("b", f32))},
		{Name: "C", Type: reg.Struct("C", nil, ir.Member("c", f32))},
	}
	module.Types = reg.GetTypes()

	opts := DefaultOptions()
	opts.BindingMap["C"] = BindTarget{Space: 1, Register: 2}
	got, info, err := compileBuffers(t, module, opts)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	want := map[string]string{
		"A": "register(b0, space0)",
		"B": "register(b1, space0)",
		"C": "register(b2, space1)",
	}
	for name, register := range want {
		if info.RegisterBindings[name] != register {
			t.Errorf("RegisterBindings[%s] = %q, want %q", name, info.RegisterBindings[name], register)
		}
		if !strings.Contains(got, "cbuffer "+name+" : "+register+" {") {
			t.Errorf("missing cbuffer %s with %s in:\n%s", name, register, got)
		}
	}

	opts = DefaultOptions()
	opts.FakeMissingBindings = false
	_, _, err = compileBuffers(t, module, opts)
	var herr *Error
	if !errors.As(err, &herr) || !herr.IsMissingBinding() {
		t.Fatalf("expected ErrMissingBinding, got %v", err)
	}
	if herr.Buffer != "B" {
		t.Errorf("error buffer = %q, want B", herr.Buffer)
	}
}

func TestCompile_LayoutConflict(t *testing.T) {
	reg := ir.NewTypeRegistry()
	f32 := reg.Scalar(ir.F32)
	body := reg.Struct("Placed", nil,
		ir.Placed("a", f32, 0),
		ir.Placed("b", f32, 8))
	module := reg.Module()
	module.ConstantBuffers = []ir.ConstantBuffer{{Name: "Placed", Type: body}}

	_, _, err := compileBuffers(t, module, nil)
	var herr *Error
	if !errors.As(err, &herr) || herr.Kind != ErrLayoutConflict {
		t.Fatalf("expected ErrLayoutConflict, got %v", err)
	}

	opts := DefaultOptions()
	opts.AllowConflicts = true
	got, _, err := compileBuffers(t, module, opts)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for _, line := range []string{
		"    float a : packoffset(c0);\n",
		"    float b : packoffset(c0.y); // layout conflict: requested offset 8\n",
	} {
		if !strings.Contains(got, line) {
			t.Errorf("missing %q in:\n%s", line, got)
		}
	}
}

func TestCompile_InheritanceAndEscaping(t *testing.T) {
	reg := ir.NewTypeRegistry()
	u32 := reg.Scalar(ir.U32)
	f32 := reg.Scalar(ir.F32)
	base := reg.Struct("Base", nil, ir.Member("id", u32))
	extra := reg.Struct("Extra", nil, ir.Member("tag", u32))
	derived := reg.Struct("Derived", []ir.TypeHandle{base, extra}, ir.Member("float", f32))
	body := reg.Struct("Body", []ir.TypeHandle{base},
		ir.Member("d", derived),
		ir.Member("id2", u32))
	module := reg.Module()
	module.ConstantBuffers = []ir.ConstantBuffer{{Name: "Scene", Type: body}}

	got, info, err := compileBuffers(t, module, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	want := `struct Base {
    uint id;
};

struct Extra {
    uint tag;
};

struct Derived : Base {
    Extra base_1;
    float _float;
};

cbuffer Scene : register(b0, space0) {
    uint id : packoffset(c0);
    Derived d : packoffset(c1);
    uint id2 : packoffset(c2.z);
};

`
	if got != want {
		t.Errorf("Compile output mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
	if !info.UsedFeatures.Has(FeatureInheritance) {
		t.Errorf("UsedFeatures = %s, want Inheritance", info.UsedFeatures)
	}
}

func TestCompile_ResourcesAndOrientation(t *testing.T) {
	reg := ir.NewTypeRegistry()
	f32 := reg.Scalar(ir.F32)
	unorm4 := reg.Vector(ir.ScalarType{Kind: ir.ScalarFloat, Width: 4, Norm: ir.NormUnsigned}, 4)
	tex := reg.GetOrCreate("", ir.ResourceType{Name: "RWTexture2D", Result: &unorm4, Coherent: true})
	material := reg.Struct("Material", nil,
		ir.Member("tex", tex),
		ir.Member("cm", reg.Matrix(ir.F32, 2, 3, ir.ColumnMajor)))
	body := reg.Struct("MaterialCB", nil,
		ir.Member("mat", material),
		ir.Member("scale", f32))
	module := reg.Module()
	module.ConstantBuffers = []ir.ConstantBuffer{{Name: "M", Type: body}}

	got, _, err := compileBuffers(t, module, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for _, line := range []string{
		"    globallycoherent RWTexture2D<unorm float4> tex;\n",
		"    column_major float2x3 cm;\n",
		"    Material mat : packoffset(c0);\n",
		"    float scale : packoffset(c2.z);\n",
	} {
		if !strings.Contains(got, line) {
			t.Errorf("missing %q in:\n%s", line, got)
		}
	}
}

func TestCompile_BufferNameCollision(t *testing.T) {
	reg := ir.NewTypeRegistry()
	f32 := reg.Scalar(ir.F32)
	inner := reg.Struct("Params", nil, ir.Member("x", f32))
	body := reg.Struct("Body", nil, ir.Member("p", inner))
	module := reg.Module()
	module.ConstantBuffers = []ir.ConstantBuffer{{Name: "params", Type: body}}

	got, info, err := compileBuffers(t, module, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	// Names collide case-insensitively with the struct.
	if info.BufferNames["params"] != "params_1" {
		t.Errorf("BufferNames[params] = %q, want params_1", info.BufferNames["params"])
	}
	if !strings.Contains(got, "cbuffer params_1 : register(b0, space0) {") {
		t.Errorf("unexpected output:\n%s", got)
	}
}

func TestCompile_NilModule(t *testing.T) {
	_, _, err := Compile(nil, nil, nil)
	var herr *Error
	if !errors.As(err, &herr) || !herr.IsInternalError() {
		t.Fatalf("expected ErrInternalError, got %v", err)
	}
}

func TestFeatureFlags_String(t *testing.T) {
	tests := []struct {
		flags FeatureFlags
		want  string
	}{
		{FeatureNone, "none"},
		{FeatureFloat16, "Float16"},
		{Feature64BitIntegers | FeatureBitFields, "64BitIntegers, BitFields"},
	}
	for _, tt := range tests {
		if got := tt.flags.String(); got != tt.want {
			t.Errorf("FeatureFlags(%d).String() = %q, want %q", tt.flags, got, tt.want)
		}
	}
}
