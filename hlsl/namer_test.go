// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import "testing"

func TestNamer_Call(t *testing.T) {
	n := newNamer()

	if got := n.call("position"); got != "position" {
		t.Errorf("call(\"position\") = %q, want \"position\"", got)
	}
	if got := n.call("position"); got != "position_1" {
		t.Errorf("second call = %q, want \"position_1\"", got)
	}
	if got := n.call("normal"); got != "normal" {
		t.Errorf("call(\"normal\") = %q, want \"normal\"", got)
	}
}

func TestNamer_CaseInsensitivity(t *testing.T) {
	n := newNamer()

	if got := n.call("myvar"); got != "myvar" {
		t.Errorf("first call = %q, want \"myvar\"", got)
	}
	// HLSL is case-insensitive, so MYVAR should conflict
	if got := n.call("MYVAR"); got == "MYVAR" {
		t.Error("MYVAR should conflict with myvar")
	}
	if !n.isUsed("MyVar") {
		t.Error("isUsed(\"MyVar\") = false, want true")
	}
}

func TestNamer_ReservedKeywords(t *testing.T) {
	n := newNamer()

	tests := []struct {
		input string
		want  string
	}{
		{"float", "_float"},
		{"struct", "_struct"},
		{"cbuffer", "_cbuffer"},
		{"", UnnamedIdentifier},
	}
	for _, tt := range tests {
		if got := n.call(tt.input); got != tt.want {
			t.Errorf("call(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNamer_ReserveAndScope(t *testing.T) {
	n := newNamer()
	n.reserve("Camera")

	if got := n.call("camera"); got != "camera_1" {
		t.Errorf("call after reserve = %q, want \"camera_1\"", got)
	}

	scope := n.scope()
	if got := scope.call("camera"); got != "camera" {
		t.Errorf("scoped call = %q, want \"camera\"", got)
	}
}
