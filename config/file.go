// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

// File is a declaration file as it is encoded in TOML.
type File struct {
	Options   *OptionsTable   `toml:"options,omitempty"`
	Structs   []*StructDecl   `toml:"struct,omitempty"`
	Buffers   []*BufferDecl   `toml:"buffer,omitempty"`
	Functions []*FunctionDecl `toml:"function,omitempty"`
	Calls     []*CallDecl     `toml:"call,omitempty"`
}

// OptionsTable is the [options] table. Unset entries keep the package
// defaults.
type OptionsTable struct {
	DefaultOrientation           string `toml:"default_orientation,omitempty"`
	ZeroSizeStructStartsRegister bool   `toml:"zero_size_struct_starts_register"`
	MatrixStartsRegister         bool   `toml:"matrix_starts_register"`
	ElideInputCopies             *bool  `toml:"elide_input_copies,omitempty"`
}

// StructDecl is one [[struct]] table.
type StructDecl struct {
	Name   string       `toml:"name"`
	Bases  []string     `toml:"bases,omitempty"`
	Fields []*FieldDecl `toml:"field,omitempty"`
}

// FieldDecl is one [[struct.field]] table.
type FieldDecl struct {
	Name string `toml:"name"`
	Type string `toml:"type"`

	// Bits makes the field a bit-field of the given width; 0 closes the
	// current run.
	Bits *int64 `toml:"bits,omitempty"`

	// Offset is an explicit packoffset-style byte offset.
	Offset *int64 `toml:"offset,omitempty"`
}

// BufferDecl is one [[buffer]] table.
type BufferDecl struct {
	Name     string `toml:"name"`
	Struct   string `toml:"struct,omitempty"`
	Register *int64 `toml:"register,omitempty"`
	Space    int64  `toml:"space"`

	// Values holds constant member values for packing, keyed by member name.
	Values map[string]interface{} `toml:"values,omitempty"`
}

// FunctionDecl is one [[function]] table.
type FunctionDecl struct {
	Name       string       `toml:"name"`
	InlineOnly bool         `toml:"inline_only"`
	Params     []*ParamDecl `toml:"param,omitempty"`
}

// ParamDecl is one [[function.param]] table.
type ParamDecl struct {
	Name      string `toml:"name"`
	Type      string `toml:"type"`
	Direction string `toml:"direction,omitempty"`
	Coherent  bool   `toml:"coherent"`
}

// CallDecl is one [[call]] table: a call site to lower.
type CallDecl struct {
	Callee string     `toml:"callee"`
	Args   []*ArgDecl `toml:"arg,omitempty"`
}

// ArgDecl is one [[call.arg]] table.
type ArgDecl struct {
	Name string `toml:"name,omitempty"`

	// Type is the caller-side type; empty means the parameter's type.
	Type string `toml:"type,omitempty"`

	// Origin is one of temp, local, escaping, global, constant or param.
	Origin   string      `toml:"origin,omitempty"`
	Aliased  bool        `toml:"aliased"`
	Coherent bool        `toml:"coherent"`
	Value    interface{} `toml:"value,omitempty"`
}

// Parse decodes a declaration file.
func Parse(data []byte) (*File, error) {
	f := &File{}
	if err := toml.Unmarshal(data, f); err != nil {
		return nil, err
	}
	return f, nil
}

// LoadFile reads and decodes a declaration file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Encode writes f as TOML.
func (f *File) Encode() ([]byte, error) {
	return toml.Marshal(f)
}
