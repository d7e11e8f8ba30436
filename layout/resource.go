// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package layout

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gogpu/shaderabi/ir"
)

// ResourceClass is the binding class of a resource.
type ResourceClass uint8

const (
	ClassInvalid ResourceClass = iota
	ClassSRV
	ClassUAV
	ClassCBuffer
	ClassSampler
)

// String returns the register class name.
func (c ResourceClass) String() string {
	switch c {
	case ClassSRV:
		return "SRV"
	case ClassUAV:
		return "UAV"
	case ClassCBuffer:
		return "CBuffer"
	case ClassSampler:
		return "Sampler"
	default:
		return "Invalid"
	}
}

// RegisterPrefix returns the HLSL register letter for the class.
func (c ResourceClass) RegisterPrefix() string {
	switch c {
	case ClassSRV:
		return "t"
	case ClassUAV:
		return "u"
	case ClassCBuffer:
		return "b"
	case ClassSampler:
		return "s"
	default:
		return ""
	}
}

// ResourceKind is the shape of a resource.
type ResourceKind uint8

const (
	KindInvalid ResourceKind = iota
	KindTexture1D
	KindTexture1DArray
	KindTexture2D
	KindTexture2DArray
	KindTexture2DMS
	KindTexture2DMSArray
	KindTexture3D
	KindTextureCube
	KindTextureCubeArray
	KindTypedBuffer
	KindRawBuffer
	KindStructuredBuffer
	KindAppendStructuredBuffer
	KindConsumeStructuredBuffer
	KindConstantBuffer
	KindSampler
	KindSamplerComparison
	KindFeedbackTexture2D
	KindFeedbackTexture2DArray
	KindAccelerationStructure
)

var kindNames = [...]string{
	KindInvalid:                 "Invalid",
	KindTexture1D:               "Texture1D",
	KindTexture1DArray:          "Texture1DArray",
	KindTexture2D:               "Texture2D",
	KindTexture2DArray:          "Texture2DArray",
	KindTexture2DMS:             "Texture2DMS",
	KindTexture2DMSArray:        "Texture2DMSArray",
	KindTexture3D:               "Texture3D",
	KindTextureCube:             "TextureCube",
	KindTextureCubeArray:        "TextureCubeArray",
	KindTypedBuffer:             "TypedBuffer",
	KindRawBuffer:               "RawBuffer",
	KindStructuredBuffer:        "StructuredBuffer",
	KindAppendStructuredBuffer:  "AppendStructuredBuffer",
	KindConsumeStructuredBuffer: "ConsumeStructuredBuffer",
	KindConstantBuffer:          "ConstantBuffer",
	KindSampler:                 "Sampler",
	KindSamplerComparison:       "SamplerComparison",
	KindFeedbackTexture2D:       "FeedbackTexture2D",
	KindFeedbackTexture2DArray:  "FeedbackTexture2DArray",
	KindAccelerationStructure:   "RTAccelerationStructure",
}

// String returns the kind name.
func (k ResourceKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Invalid"
}

// IsTexture reports whether the kind is a sampled or storage texture.
func (k ResourceKind) IsTexture() bool {
	return k >= KindTexture1D && k <= KindTextureCubeArray
}

// IsStructured reports whether elements use the structured buffer stride.
func (k ResourceKind) IsStructured() bool {
	return k == KindStructuredBuffer || k == KindAppendStructuredBuffer || k == KindConsumeStructuredBuffer
}

// ResourceProperties describes a resolved resource type.
type ResourceProperties struct {
	Class ResourceClass
	Kind  ResourceKind

	// Component is the element scalar type for typed resources.
	Component      ir.ScalarType
	ComponentCount uint8

	// Stride is the element stride in bytes, 0 when not applicable.
	Stride uint32

	Coherent          bool
	RasterizerOrdered bool
	SampleCount       uint32
}

type resourceEntry struct {
	kind     ResourceKind
	class    ResourceClass
	writable bool // accepts the RW and RasterizerOrdered prefixes
}

var resourceTable = map[string]resourceEntry{
	"Texture1D":                       {KindTexture1D, ClassSRV, true},
	"Texture1DArray":                  {KindTexture1DArray, ClassSRV, true},
	"Texture2D":                       {KindTexture2D, ClassSRV, true},
	"Texture2DArray":                  {KindTexture2DArray, ClassSRV, true},
	"Texture2DMS":                     {KindTexture2DMS, ClassSRV, false},
	"Texture2DMSArray":                {KindTexture2DMSArray, ClassSRV, false},
	"Texture3D":                       {KindTexture3D, ClassSRV, true},
	"TextureCube":                     {KindTextureCube, ClassSRV, false},
	"TextureCubeArray":                {KindTextureCubeArray, ClassSRV, false},
	"Buffer":                          {KindTypedBuffer, ClassSRV, true},
	"ByteAddressBuffer":               {KindRawBuffer, ClassSRV, true},
	"StructuredBuffer":                {KindStructuredBuffer, ClassSRV, true},
	"AppendStructuredBuffer":          {KindAppendStructuredBuffer, ClassUAV, false},
	"ConsumeStructuredBuffer":         {KindConsumeStructuredBuffer, ClassUAV, false},
	"ConstantBuffer":                  {KindConstantBuffer, ClassCBuffer, false},
	"SamplerState":                    {KindSampler, ClassSampler, false},
	"SamplerComparisonState":          {KindSamplerComparison, ClassSampler, false},
	"FeedbackTexture2D":               {KindFeedbackTexture2D, ClassUAV, false},
	"FeedbackTexture2DArray":          {KindFeedbackTexture2DArray, ClassUAV, false},
	"RaytracingAccelerationStructure": {KindAccelerationStructure, ClassSRV, false},
}

// ResolveResource classifies a resource type using a fresh planning context.
func ResolveResource(module *ir.Module, r ir.ResourceType) (*ResourceProperties, error) {
	return NewContext(module, nil).ResolveResource(r)
}

// IsResourceName reports whether name is a known resource template name,
// including RW and RasterizerOrdered variants.
func IsResourceName(name string) bool {
	rov := false
	if rest, ok := strings.CutPrefix(name, "RasterizerOrdered"); ok {
		name, rov = rest, true
	}
	rw := false
	if rest, ok := strings.CutPrefix(name, "RW"); ok && !rov {
		name, rw = rest, true
	}
	entry, ok := resourceTable[name]
	return ok && (entry.writable || !rw && !rov)
}

// ResolveResource classifies a resource type by its HLSL name and computes
// its element stride.
func (c *Context) ResolveResource(r ir.ResourceType) (*ResourceProperties, error) {
	name := r.Name
	rov := false
	if rest, ok := strings.CutPrefix(name, "RasterizerOrdered"); ok {
		name, rov = rest, true
	}
	rw := false
	if rest, ok := strings.CutPrefix(name, "RW"); ok && !rov {
		name, rw = rest, true
	}

	entry, ok := resourceTable[name]
	if !ok {
		return nil, NewError(ErrUnsupportedLeafType, r.Name, "", "unknown resource type")
	}
	if (rw || rov) && !entry.writable {
		return nil, NewError(ErrUnsupportedLeafType, r.Name, "", "resource type cannot be writable")
	}

	props := &ResourceProperties{
		Class:             entry.class,
		Kind:              entry.kind,
		Coherent:          r.Coherent,
		RasterizerOrdered: rov || r.RasterizerOrdered,
		SampleCount:       r.SampleCount,
	}
	if rw || props.RasterizerOrdered {
		props.Class = ClassUAV
	}

	if r.Result != nil {
		switch inner := c.module.Lookup(*r.Result).(type) {
		case ir.ScalarType:
			props.Component, props.ComponentCount = inner, 1
		case ir.VectorType:
			props.Component, props.ComponentCount = inner.Scalar, inner.Size
		}
	}

	stride, err := c.resourceStride(r, props)
	if err != nil {
		return nil, err
	}
	props.Stride = stride

	Logger().Debug("resolved resource",
		zap.String("name", r.Name),
		zap.Stringer("class", props.Class),
		zap.Stringer("kind", props.Kind),
		zap.Uint32("stride", props.Stride))
	return props, nil
}

func (c *Context) resourceStride(r ir.ResourceType, props *ResourceProperties) (uint32, error) {
	switch {
	case props.Kind.IsStructured():
		if r.Result == nil {
			return 0, NewError(ErrUnsupportedLeafType, r.Name, "", "structured buffer without element type")
		}
		size, align, err := NaturalSize(c.module, *r.Result)
		if err != nil {
			return 0, fmt.Errorf("%s stride: %w", r.Name, err)
		}
		return alignUp(size, align), nil

	case props.Kind == KindRawBuffer:
		return 4, nil

	case props.Kind == KindConstantBuffer:
		if r.Result == nil {
			return 0, NewError(ErrUnsupportedLeafType, r.Name, "", "constant buffer without element type")
		}
		d, err := c.plan(*r.Result, c.options.DefaultOrientation)
		if err != nil {
			return 0, err
		}
		return alignUp(d.Size, RegisterSize), nil

	case props.Kind == KindTypedBuffer || props.Kind.IsTexture():
		return uint32(props.Component.Width) * uint32(props.ComponentCount), nil

	default:
		return 0, nil
	}
}

func (c *Context) planResource(typ ir.TypeHandle, r ir.ResourceType, def ir.MatrixOrientation) (*Descriptor, error) {
	props, err := c.ResolveResource(r)
	if err != nil {
		return nil, err
	}
	d := &Descriptor{Type: typ, Member: -1, Resource: props}
	if r.Result != nil {
		result, err := c.plan(*r.Result, def)
		if err != nil {
			return nil, err
		}
		d.Fields = []*Descriptor{result}
	}
	return d, nil
}
