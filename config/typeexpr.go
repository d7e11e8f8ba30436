// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/shaderabi/ir"
	"github.com/gogpu/shaderabi/layout"
)

// scalarNames maps HLSL scalar spellings to scalar types.
var scalarNames = map[string]ir.ScalarType{
	"bool":            ir.Bool,
	"int":             ir.I32,
	"int32_t":         ir.I32,
	"int16_t":         ir.I16,
	"int64_t":         ir.I64,
	"uint":            ir.U32,
	"dword":           ir.U32,
	"uint32_t":        ir.U32,
	"uint16_t":        ir.U16,
	"uint64_t":        ir.U64,
	"half":            ir.F16,
	"float16_t":       ir.F16,
	"float":           ir.F32,
	"float32_t":       ir.F32,
	"double":          ir.F64,
	"float64_t":       ir.F64,
	"int8_t4_packed":  ir.PackedS,
	"uint8_t4_packed": ir.PackedU,
}

// objectNames lists opaque non-resource object types.
var objectNames = map[string]bool{
	"RayQuery":       true,
	"PointStream":    true,
	"LineStream":     true,
	"TriangleStream": true,
	"InputPatch":     true,
	"OutputPatch":    true,
}

type qualifiers struct {
	orientation ir.MatrixOrientation
	norm        ir.NormKind
	coherent    bool
}

// TypeParser parses type expressions into a type registry. Struct names
// resolve through Structs, which may hold reserved handles.
type TypeParser struct {
	Registry *ir.TypeRegistry
	Structs  map[string]ir.TypeHandle
}

// NewTypeParser creates a parser over reg with no known structs.
func NewTypeParser(reg *ir.TypeRegistry) *TypeParser {
	return &TypeParser{Registry: reg, Structs: make(map[string]ir.TypeHandle)}
}

// Parse parses one type expression, e.g. "row_major float4x4[2]",
// "globallycoherent RWStructuredBuffer<Light>" or "float[]".
func (p *TypeParser) Parse(src string) (ir.TypeHandle, error) {
	tokens, err := NewLexer(src).Tokenize()
	if err != nil {
		return 0, err
	}
	ps := &typeParser{TypeParser: p, src: src, tokens: tokens}
	h, err := ps.typeExpr()
	if err != nil {
		return 0, err
	}
	if tok := ps.peek(); tok.Kind != TokenEOF {
		return 0, ps.errorf(tok, "unexpected %s after type", tok.Kind)
	}
	return h, nil
}

type typeParser struct {
	*TypeParser
	src    string
	tokens []Token
	pos    int
}

func (p *typeParser) peek() Token {
	return p.tokens[p.pos]
}

func (p *typeParser) next() Token {
	tok := p.tokens[p.pos]
	if tok.Kind != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *typeParser) expect(kind TokenKind) (Token, error) {
	tok := p.next()
	if tok.Kind != kind {
		return tok, p.errorf(tok, "expected %s, got %s", kind, tok.Kind)
	}
	return tok, nil
}

func (p *typeParser) errorf(tok Token, format string, args ...any) error {
	return &SyntaxError{Source: p.src, Column: tok.Column, Message: fmt.Sprintf(format, args...)}
}

// typeExpr := qualifier* name template? dims*
func (p *typeParser) typeExpr() (ir.TypeHandle, error) {
	q, err := p.qualifiers()
	if err != nil {
		return 0, err
	}
	nameTok, err := p.expect(TokenIdent)
	if err != nil {
		return 0, err
	}
	h, err := p.named(nameTok, q)
	if err != nil {
		return 0, err
	}
	return p.dims(h)
}

func (p *typeParser) qualifiers() (qualifiers, error) {
	var q qualifiers
	for {
		tok := p.peek()
		if tok.Kind != TokenIdent {
			return q, nil
		}
		switch tok.Lexeme {
		case "row_major", "column_major":
			if q.orientation != ir.OrientationUnspecified {
				return q, p.errorf(tok, "duplicate matrix orientation")
			}
			q.orientation = ir.RowMajor
			if tok.Lexeme == "column_major" {
				q.orientation = ir.ColumnMajor
			}
		case "snorm", "unorm":
			if q.norm != ir.NormNone {
				return q, p.errorf(tok, "duplicate norm qualifier")
			}
			q.norm = ir.NormUnsigned
			if tok.Lexeme == "snorm" {
				q.norm = ir.NormSigned
			}
		case "globallycoherent":
			q.coherent = true
		default:
			return q, nil
		}
		p.next()
	}
}

func (p *typeParser) named(tok Token, q qualifiers) (ir.TypeHandle, error) {
	name := tok.Lexeme
	reg := p.Registry

	if s, kind, rows, cols, ok := numericType(name); ok {
		if q.coherent {
			return 0, p.errorf(tok, "globallycoherent applies to resources only")
		}
		if q.norm != ir.NormNone {
			if s.Kind != ir.ScalarFloat || kind == numericMatrix {
				return 0, p.errorf(tok, "%s applies to float scalars and vectors only", normName(q.norm))
			}
			s.Norm = q.norm
		}
		if kind != numericMatrix && q.orientation != ir.OrientationUnspecified {
			return 0, p.errorf(tok, "%s applies to matrices only", q.orientation)
		}
		switch kind {
		case numericMatrix:
			return reg.Matrix(s, rows, cols, q.orientation), nil
		case numericVector:
			return reg.Vector(s, rows), nil
		default:
			return reg.Scalar(s), nil
		}
	}

	if q.orientation != ir.OrientationUnspecified || q.norm != ir.NormNone {
		return 0, p.errorf(tok, "qualifier does not apply to %s", name)
	}

	if h, ok := p.Structs[name]; ok {
		if q.coherent {
			return 0, p.errorf(tok, "globallycoherent applies to resources only")
		}
		return h, nil
	}

	if layout.IsResourceName(name) {
		r := ir.ResourceType{
			Name:              name,
			Coherent:          q.coherent,
			RasterizerOrdered: strings.HasPrefix(name, "RasterizerOrdered"),
		}
		if p.peek().Kind == TokenLess {
			p.next()
			result, err := p.typeExpr()
			if err != nil {
				return 0, err
			}
			r.Result = &result
			if p.peek().Kind == TokenComma {
				p.next()
				countTok, err := p.expect(TokenIntLiteral)
				if err != nil {
					return 0, err
				}
				n, err := strconv.ParseUint(countTok.Lexeme, 10, 32)
				if err != nil {
					return 0, p.errorf(countTok, "sample count %s out of range", countTok.Lexeme)
				}
				r.SampleCount = uint32(n)
			}
			if _, err := p.expect(TokenGreater); err != nil {
				return 0, err
			}
		}
		return reg.GetOrCreate("", r), nil
	}

	if objectNames[name] {
		if q.coherent {
			return 0, p.errorf(tok, "globallycoherent applies to resources only")
		}
		return reg.GetOrCreate("", ir.ObjectType{Name: name}), nil
	}

	return 0, p.errorf(tok, "unknown type %q", name)
}

// dims parses trailing array dimensions. "T[2][3]" is two arrays of three.
func (p *typeParser) dims(h ir.TypeHandle) (ir.TypeHandle, error) {
	var sizes []*uint32
	for p.peek().Kind == TokenLeftBracket {
		p.next()
		if p.peek().Kind == TokenRightBracket {
			p.next()
			sizes = append(sizes, nil)
			continue
		}
		tok, err := p.expect(TokenIntLiteral)
		if err != nil {
			return 0, err
		}
		n, err := strconv.ParseUint(tok.Lexeme, 10, 32)
		if err != nil {
			return 0, p.errorf(tok, "array size %s out of range", tok.Lexeme)
		}
		size := uint32(n)
		sizes = append(sizes, &size)
		if _, err := p.expect(TokenRightBracket); err != nil {
			return 0, err
		}
	}
	for i := len(sizes) - 1; i >= 0; i-- {
		h = p.Registry.GetOrCreate("", ir.ArrayType{Base: h, Size: ir.ArraySize{Constant: sizes[i]}})
	}
	return h, nil
}

type numericKind uint8

const (
	numericScalar numericKind = iota
	numericVector
	numericMatrix
)

// numericType splits a scalar, vector ("float3") or matrix ("half2x4")
// spelling. rows is the vector size for vectors.
func numericType(name string) (s ir.ScalarType, kind numericKind, rows, cols uint8, ok bool) {
	if s, ok := scalarNames[name]; ok {
		return s, numericScalar, 0, 0, true
	}
	n := len(name)
	if n > 3 && name[n-2] == 'x' && isDim(name[n-3]) && isDim(name[n-1]) {
		if s, ok := scalarNames[name[:n-3]]; ok && !s.Kind.IsPacked() {
			return s, numericMatrix, name[n-3] - '0', name[n-1] - '0', true
		}
	}
	if n > 1 && isDim(name[n-1]) {
		if s, ok := scalarNames[name[:n-1]]; ok && !s.Kind.IsPacked() {
			return s, numericVector, name[n-1] - '0', 0, true
		}
	}
	return ir.ScalarType{}, 0, 0, 0, false
}

func isDim(c byte) bool {
	return c >= '1' && c <= '4'
}

func normName(n ir.NormKind) string {
	if n == ir.NormSigned {
		return "snorm"
	}
	return "unorm"
}
