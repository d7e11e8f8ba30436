// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/shaderabi/ir"
	"github.com/gogpu/shaderabi/layout"
)

// Options configures HLSL declaration output.
type Options struct {
	// ShaderModel specifies the target shader model.
	// Defaults to ShaderModel5_1 for maximum compatibility.
	ShaderModel ShaderModel

	// StrictShaderModel fails compilation when the declared types need a
	// higher shader model than ShaderModel. Otherwise the required model is
	// only reported in TranslationInfo.
	StrictShaderModel bool

	// BindingMap maps constant buffer names to HLSL register targets,
	// overriding bindings declared in the module.
	BindingMap map[string]BindTarget

	// FakeMissingBindings assigns consecutive b registers in space 0 to
	// buffers without a binding. If false, such buffers fail with
	// ErrMissingBinding.
	FakeMissingBindings bool

	// Packoffset annotates cbuffer members with their computed offsets.
	Packoffset bool

	// OffsetComments appends "// offset N, size M" to each cbuffer member.
	OffsetComments bool

	// AllowConflicts writes buffers whose layout has conflicting explicit
	// placements, marking the conflicting members with a comment.
	AllowConflicts bool
}

// DefaultOptions returns sensible default options for HLSL generation.
func DefaultOptions() *Options {
	return &Options{
		ShaderModel:         ShaderModel5_1,
		BindingMap:          make(map[string]BindTarget),
		FakeMissingBindings: true,
		Packoffset:          true,
	}
}

// FeatureFlags indicates which HLSL features the declarations use.
type FeatureFlags uint32

const (
	// FeatureNone indicates no special features are used.
	FeatureNone FeatureFlags = 0

	// FeatureFloat16 indicates native float16 types are used (SM 6.2+).
	FeatureFloat16 FeatureFlags = 1 << iota

	// Feature16BitIntegers indicates int16_t/uint16_t are used (SM 6.2+).
	Feature16BitIntegers

	// Feature64BitIntegers indicates 64-bit integer types are used.
	Feature64BitIntegers

	// FeaturePackedInt8 indicates int8_t4_packed types are used (SM 6.4+).
	FeaturePackedInt8

	// FeatureBitFields indicates bit-field members are used (HLSL 2021).
	FeatureBitFields

	// FeatureInheritance indicates a struct derives from another.
	FeatureInheritance
)

// Has returns true if the flags contain the specified feature.
func (f FeatureFlags) Has(feature FeatureFlags) bool {
	return f&feature != 0
}

// String returns a human-readable list of enabled features.
func (f FeatureFlags) String() string {
	var features []string
	if f.Has(FeatureFloat16) {
		features = append(features, "Float16")
	}
	if f.Has(Feature16BitIntegers) {
		features = append(features, "16BitIntegers")
	}
	if f.Has(Feature64BitIntegers) {
		features = append(features, "64BitIntegers")
	}
	if f.Has(FeaturePackedInt8) {
		features = append(features, "PackedInt8")
	}
	if f.Has(FeatureBitFields) {
		features = append(features, "BitFields")
	}
	if f.Has(FeatureInheritance) {
		features = append(features, "Inheritance")
	}

	if len(features) == 0 {
		return "none"
	}
	return strings.Join(features, ", ")
}

// TranslationInfo contains metadata about the HLSL translation.
type TranslationInfo struct {
	// BufferNames maps cbuffer names to the generated HLSL names.
	BufferNames map[string]string

	// StructNames lists the written structs in declaration order.
	StructNames []string

	// UsedFeatures indicates which shader features are used.
	UsedFeatures FeatureFlags

	// RequiredShaderModel is the minimum shader model needed for the
	// declarations. May be higher than the requested model.
	RequiredShaderModel ShaderModel

	// RegisterBindings maps cbuffer names to their register annotation.
	// Format: "Camera" -> "register(b0, space0)"
	RegisterBindings map[string]string

	// PackoffsetOmitted lists buffers written without packoffset because
	// an offset could not be expressed.
	PackoffsetOmitted []string
}

// Compile writes HLSL declarations for the planned buffers of a module.
// Returns the HLSL source, translation info, or an error.
func Compile(module *ir.Module, layouts []*layout.BufferLayout, options *Options) (string, *TranslationInfo, error) {
	if module == nil {
		return "", nil, &Error{
			Kind:    ErrInternalError,
			Message: "module is nil",
		}
	}
	if options == nil {
		options = DefaultOptions()
	}

	w := newWriter(module, layouts, options)
	if err := w.writeModule(); err != nil {
		return "", nil, fmt.Errorf("hlsl: %w", err)
	}

	required := RequiredShaderModel(w.usedFeatures)
	if required < options.ShaderModel {
		required = options.ShaderModel
	}
	if options.StrictShaderModel && required > options.ShaderModel {
		return "", nil, fmt.Errorf("hlsl: %w", &Error{
			Kind:    ErrInvalidShaderModel,
			Message: fmt.Sprintf("declarations need %s (%s), target is %s", required, w.usedFeatures, options.ShaderModel),
		})
	}

	info := &TranslationInfo{
		BufferNames:         w.bufferNames,
		StructNames:         w.structNames,
		UsedFeatures:        w.usedFeatures,
		RequiredShaderModel: required,
		RegisterBindings:    w.registerBindings,
		PackoffsetOmitted:   w.packoffsetOmitted,
	}
	return w.String(), info, nil
}
