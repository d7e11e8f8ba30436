// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import "testing"

func TestIsReserved(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		// FXC keywords
		{"keyword_bool", "bool", true},
		{"keyword_struct", "struct", true},
		{"keyword_cbuffer", "cbuffer", true},
		{"keyword_row_major", "row_major", true},
		{"keyword_texture2d", "Texture2D", true},

		// Reserved words
		{"reserved_auto", "auto", true},
		{"reserved_template", "template", true},

		// Resource types
		{"resource_feedback", "FeedbackTexture2D", true},
		{"resource_constant_buffer", "ConstantBuffer", true},

		// Declaration qualifiers
		{"qualifier_globallycoherent", "globallycoherent", true},
		{"qualifier_packoffset", "packoffset", true},
		{"qualifier_register", "register", true},

		// Type shorthands
		{"type_float4", "float4", true},
		{"type_float16_t3", "float16_t3", true},
		{"type_half2x3", "half2x3", true},
		{"type_packed", "uint8_t4_packed", true},

		// Free identifiers
		{"ident_light", "light", false},
		{"ident_view", "view", false},
		{"ident_float5", "float5", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsReserved(tt.input); got != tt.expected {
				t.Errorf("IsReserved(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsCaseInsensitiveReserved(t *testing.T) {
	for _, name := range []string{"Technique", "PASS", "texture2D"} {
		if !IsCaseInsensitiveReserved(name) {
			t.Errorf("IsCaseInsensitiveReserved(%q) = false, want true", name)
		}
	}
	if IsCaseInsensitiveReserved("camera") {
		t.Error("IsCaseInsensitiveReserved(\"camera\") = true, want false")
	}
}

func TestEscape(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", UnnamedIdentifier},
		{"float", "_float"},
		{"Pass", "_Pass"},
		{"exposure", "exposure"},
	}
	for _, tt := range tests {
		if got := Escape(tt.input); got != tt.want {
			t.Errorf("Escape(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
