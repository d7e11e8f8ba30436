// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import "testing"

func TestShaderModel_String(t *testing.T) {
	tests := []struct {
		sm         ShaderModel
		want       string
		wantSuffix string
	}{
		{ShaderModel5_0, "SM 5.0", "5_0"},
		{ShaderModel5_1, "SM 5.1", "5_1"},
		{ShaderModel6_0, "SM 6.0", "6_0"},
		{ShaderModel6_2, "SM 6.2", "6_2"},
		{ShaderModel6_7, "SM 6.7", "6_7"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.sm.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if got := tt.sm.ProfileSuffix(); got != tt.wantSuffix {
				t.Errorf("ProfileSuffix() = %q, want %q", got, tt.wantSuffix)
			}
		})
	}
}

func TestShaderModel_Supports(t *testing.T) {
	if ShaderModel5_1.SupportsDXIL() || !ShaderModel6_0.SupportsDXIL() {
		t.Error("DXIL starts at SM 6.0")
	}
	if ShaderModel6_1.SupportsFloat16() || !ShaderModel6_2.SupportsFloat16() {
		t.Error("float16 starts at SM 6.2")
	}
	if ShaderModel6_1.Supports16BitTypes() || !ShaderModel6_2.Supports16BitTypes() {
		t.Error("16-bit integers start at SM 6.2")
	}
	if ShaderModel5_1.Supports64BitIntegers() || !ShaderModel6_0.Supports64BitIntegers() {
		t.Error("64-bit integers start at SM 6.0")
	}
}

func TestRequiredShaderModel(t *testing.T) {
	tests := []struct {
		name     string
		features FeatureFlags
		want     ShaderModel
	}{
		{"none", FeatureNone, ShaderModel5_0},
		{"inheritance", FeatureInheritance, ShaderModel5_0},
		{"int64", Feature64BitIntegers, ShaderModel6_0},
		{"bit-fields", FeatureBitFields, ShaderModel6_0},
		{"half", FeatureFloat16, ShaderModel6_2},
		{"int16 and int64", Feature16BitIntegers | Feature64BitIntegers, ShaderModel6_2},
		{"packed", FeaturePackedInt8 | FeatureFloat16, ShaderModel6_4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RequiredShaderModel(tt.features); got != tt.want {
				t.Errorf("RequiredShaderModel(%s) = %s, want %s", tt.features, got, tt.want)
			}
		})
	}
}

func TestParseShaderModel(t *testing.T) {
	tests := map[string]ShaderModel{
		"5.0":    ShaderModel5_0,
		"5_1":    ShaderModel5_1,
		"6.2":    ShaderModel6_2,
		"sm_6_7": ShaderModel6_7,
		"SM_6_0": ShaderModel6_0,
	}
	for in, want := range tests {
		got, ok := ParseShaderModel(in)
		if !ok || got != want {
			t.Errorf("ParseShaderModel(%q) = %v, %v; want %v", in, got, ok, want)
		}
	}
	for _, in := range []string{"", "4.0", "6.8", "latest"} {
		if _, ok := ParseShaderModel(in); ok {
			t.Errorf("ParseShaderModel(%q) succeeded", in)
		}
	}
}
