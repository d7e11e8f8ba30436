// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package abi

// Origin describes where a caller's argument storage comes from.
type Origin uint8

const (
	// OriginTemp is a compiler temporary.
	OriginTemp Origin = iota
	// OriginLocal is a local variable whose address never escapes.
	OriginLocal
	// OriginEscapingLocal is a local variable whose address escapes.
	OriginEscapingLocal
	// OriginGlobal is a mutable global.
	OriginGlobal
	// OriginConstantGlobal is a global that cannot be written.
	OriginConstantGlobal
	// OriginParameter is storage passed in by the caller's caller.
	OriginParameter
)

var originNames = [...]string{
	OriginTemp:           "temp",
	OriginLocal:          "local",
	OriginEscapingLocal:  "escaping",
	OriginGlobal:         "global",
	OriginConstantGlobal: "constant",
	OriginParameter:      "param",
}

// String returns the origin's short name.
func (o Origin) String() string {
	if int(o) < len(originNames) {
		return originNames[o]
	}
	return "unknown"
}

// ParseOrigin parses a short origin name as returned by String.
func ParseOrigin(s string) (Origin, bool) {
	for i, name := range originNames {
		if name == s {
			return Origin(i), true
		}
	}
	return 0, false
}

// SafeToSkip reports whether an in argument's storage is guaranteed not to
// change while an inlined callee reads it: a temporary nobody else refers
// to, a local whose address never escapes, or a constant global.
func SafeToSkip(arg Argument) bool {
	switch arg.Origin {
	case OriginTemp:
		return !arg.Aliased
	case OriginLocal, OriginConstantGlobal:
		return true
	default:
		return false
	}
}
