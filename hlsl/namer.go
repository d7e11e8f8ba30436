// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"strings"
)

// namer generates unique identifiers for HLSL output.
// HLSL matches some keywords case-insensitively, so names are tracked in
// lowercase.
type namer struct {
	usedNames map[string]struct{}
	counter   uint32
}

func newNamer() *namer {
	return &namer{
		usedNames: make(map[string]struct{}),
	}
}

// call generates a unique name based on the given base.
// It escapes reserved keywords and adds numeric suffixes if needed.
func (n *namer) call(base string) string {
	if base == "" {
		base = UnnamedIdentifier
	}
	escaped := Escape(base)

	lowerEscaped := strings.ToLower(escaped)
	if !n.isUsedLower(lowerEscaped) {
		n.usedNames[lowerEscaped] = struct{}{}
		return escaped
	}

	for {
		n.counter++
		candidate := fmt.Sprintf("%s_%d", escaped, n.counter)
		lowerCandidate := strings.ToLower(candidate)
		if !n.isUsedLower(lowerCandidate) {
			n.usedNames[lowerCandidate] = struct{}{}
			return candidate
		}
	}
}

// isUsed checks if a name has already been used (case-insensitive).
func (n *namer) isUsed(name string) bool {
	return n.isUsedLower(strings.ToLower(name))
}

func (n *namer) isUsedLower(lowerName string) bool {
	_, used := n.usedNames[lowerName]
	return used
}

// reserve marks a name as used without returning it.
func (n *namer) reserve(name string) {
	n.usedNames[strings.ToLower(name)] = struct{}{}
}

// scope returns a fresh namer for the members of one struct or buffer.
// Member names live in their own namespace but must still avoid keywords.
func (n *namer) scope() *namer {
	return newNamer()
}
