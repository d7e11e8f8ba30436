// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package eval

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"

	"github.com/gogpu/shaderabi/ir"
	"github.com/gogpu/shaderabi/layout"
	"github.com/gogpu/shaderabi/matrix"
)

// Pack serializes v into the bytes of a constant buffer laid out by bl.
// The result is padded to whole registers; padding bytes are zero.
func Pack(module *ir.Module, bl *layout.BufferLayout, v any) ([]byte, error) {
	buf := make([]byte, bl.Registers()*layout.RegisterSize)
	p := packer{module: module, buf: buf}
	if err := p.pack(bl.Root, 0, v, bl.Name); err != nil {
		return nil, err
	}
	return buf, nil
}

// Unpack reads a value of the buffer's body type from data.
func Unpack(module *ir.Module, bl *layout.BufferLayout, data []byte) (any, error) {
	if uint32(len(data)) < bl.Size {
		return nil, fmt.Errorf("%s: need %d bytes, got %d", bl.Name, bl.Size, len(data))
	}
	p := packer{module: module, buf: data}
	return p.unpack(bl.Root, 0, bl.Name)
}

type packer struct {
	module *ir.Module
	buf    []byte
}

func (p *packer) putScalar(offset uint32, s Scalar, width uint8, path string) error {
	if offset+uint32(width) > uint32(len(p.buf)) {
		return fmt.Errorf("%s: offset %d outside buffer", path, offset)
	}
	b := p.buf[offset:]
	switch width {
	case 1:
		b[0] = byte(s.Bits)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(s.Bits))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(s.Bits))
	case 8:
		binary.LittleEndian.PutUint64(b, s.Bits)
	default:
		return fmt.Errorf("%s: unsupported scalar width %d", path, width)
	}
	return nil
}

func (p *packer) getBits(offset uint32, width uint8, path string) (uint64, error) {
	if offset+uint32(width) > uint32(len(p.buf)) {
		return 0, fmt.Errorf("%s: offset %d outside buffer", path, offset)
	}
	b := p.buf[offset:]
	switch width {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(b)), nil
	case 8:
		return binary.LittleEndian.Uint64(b), nil
	default:
		return 0, fmt.Errorf("%s: unsupported scalar width %d", path, width)
	}
}

func elements(v any, n int, path string) ([]any, error) {
	c, ok := v.(Composite)
	if !ok {
		return nil, fmt.Errorf("%s: expected a composite, got %T", path, v)
	}
	if len(c.Elems) != n {
		return nil, fmt.Errorf("%s: expected %d elements, got %d", path, n, len(c.Elems))
	}
	return c.Elems, nil
}

func scalarOf(v any, path string) (Scalar, error) {
	s, ok := v.(Scalar)
	if !ok {
		return Scalar{}, fmt.Errorf("%s: expected a scalar, got %T", path, v)
	}
	return s, nil
}

// pack writes v at d shifted by delta. Array elements share one descriptor,
// so their position is carried in delta. Fields with a layout conflict are
// skipped and their bytes stay zero.
func (p *packer) pack(d *layout.Descriptor, delta uint32, v any, path string) error {
	if d.Conflict {
		Logger().Debug("skipped conflicting field", zap.String("field", path))
		return nil
	}
	offset := d.Offset + delta

	switch t := p.module.Lookup(d.Type).(type) {
	case ir.ScalarType:
		s, err := scalarOf(v, path)
		if err != nil {
			return err
		}
		return p.putScalar(offset, s, t.Width, path)

	case ir.VectorType:
		elems, err := elements(v, int(t.Size), path)
		if err != nil {
			return err
		}
		for i, e := range elems {
			s, err := scalarOf(e, path)
			if err != nil {
				return err
			}
			if err := p.putScalar(offset+uint32(i)*uint32(t.Scalar.Width), s, t.Scalar.Width, path); err != nil {
				return err
			}
		}
		return nil

	case ir.MatrixType:
		elems, err := elements(v, int(t.Rows)*int(t.Columns), path)
		if err != nil {
			return err
		}
		for r := uint8(0); r < t.Rows; r++ {
			for c := uint8(0); c < t.Columns; c++ {
				s, err := scalarOf(elems[int(r)*int(t.Columns)+int(c)], path)
				if err != nil {
					return err
				}
				at := offset + matrix.ElementOffset(t, d.Orientation, r, c)
				if err := p.putScalar(at, s, t.Scalar.Width, path); err != nil {
					return err
				}
			}
		}
		return nil

	case ir.ArrayType:
		elems, err := elements(v, int(d.Count), path)
		if err != nil {
			return err
		}
		for i, e := range elems {
			if err := p.pack(d.Fields[0], delta+uint32(i)*d.Stride, e, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil

	case ir.StructType:
		nb := len(t.Bases)
		elems, err := elements(v, nb+len(t.Members), path)
		if err != nil {
			return err
		}
		for _, f := range d.Fields {
			switch {
			case f.Base:
				err = p.pack(f, delta, elems[f.Member], path+"."+f.Name)
			case f.BitFields != nil:
				err = p.packBitFields(f, delta, elems[nb:], path)
			default:
				err = p.pack(f, delta, elems[nb+f.Member], path+"."+f.Name)
			}
			if err != nil {
				return err
			}
		}
		return nil

	case ir.ResourceType, ir.ObjectType:
		return nil

	default:
		return fmt.Errorf("%s: cannot pack %T", path, t)
	}
}

func bitMask(width uint8) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<width - 1
}

// fieldBits keeps the low width bits of bits, sign-extending when signed.
func fieldBits(bits uint64, width uint8, signed bool) uint64 {
	field := bits & bitMask(width)
	if signed && width > 0 && width < 64 && field&(1<<(width-1)) != 0 {
		field |= ^bitMask(width)
	}
	return field
}

func (p *packer) packBitFields(unit *layout.Descriptor, delta uint32, members []any, path string) error {
	s, ok := p.module.Lookup(unit.Type).(ir.ScalarType)
	if !ok {
		return fmt.Errorf("%s.%s: bit-field unit is not a scalar", path, unit.Name)
	}
	var bits uint64
	for _, bf := range unit.BitFields {
		v, err := scalarOf(members[bf.Member], path+"."+bf.Name)
		if err != nil {
			return err
		}
		bits |= (v.Bits & bitMask(bf.BitWidth)) << bf.BitOffset
	}
	return p.putScalar(unit.Offset+delta, Scalar{Type: s, Bits: bits}, s.Width, path+"."+unit.Name)
}

func (p *packer) unpack(d *layout.Descriptor, delta uint32, path string) (any, error) {
	if d.Conflict {
		return zeroInner(p.module, p.module.Lookup(d.Type), 0)
	}
	offset := d.Offset + delta

	switch t := p.module.Lookup(d.Type).(type) {
	case ir.ScalarType:
		bits, err := p.getBits(offset, t.Width, path)
		if err != nil {
			return nil, err
		}
		return Scalar{Type: t, Bits: bits}, nil

	case ir.VectorType:
		elems := make([]any, t.Size)
		for i := range elems {
			bits, err := p.getBits(offset+uint32(i)*uint32(t.Scalar.Width), t.Scalar.Width, path)
			if err != nil {
				return nil, err
			}
			elems[i] = Scalar{Type: t.Scalar, Bits: bits}
		}
		return Composite{Type: t, Elems: elems}, nil

	case ir.MatrixType:
		elems := make([]any, 0, int(t.Rows)*int(t.Columns))
		for r := uint8(0); r < t.Rows; r++ {
			for c := uint8(0); c < t.Columns; c++ {
				bits, err := p.getBits(offset+matrix.ElementOffset(t, d.Orientation, r, c), t.Scalar.Width, path)
				if err != nil {
					return nil, err
				}
				elems = append(elems, Scalar{Type: t.Scalar, Bits: bits})
			}
		}
		return Composite{Type: t, Elems: elems}, nil

	case ir.ArrayType:
		elems := make([]any, d.Count)
		for i := range elems {
			e, err := p.unpack(d.Fields[0], delta+uint32(i)*d.Stride, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			elems[i] = e
		}
		return Composite{Type: t, Elems: elems}, nil

	case ir.StructType:
		zero, err := zeroInner(p.module, t, 0)
		if err != nil {
			return nil, err
		}
		comp := zero.(Composite)
		nb := len(t.Bases)
		for _, f := range d.Fields {
			switch {
			case f.Base:
				v, err := p.unpack(f, delta, path+"."+f.Name)
				if err != nil {
					return nil, err
				}
				comp.Elems[f.Member] = v
			case f.BitFields != nil:
				if err := p.unpackBitFields(f, delta, comp.Elems[nb:], path); err != nil {
					return nil, err
				}
			default:
				v, err := p.unpack(f, delta, path+"."+f.Name)
				if err != nil {
					return nil, err
				}
				comp.Elems[nb+f.Member] = v
			}
		}
		return comp, nil

	case ir.ResourceType, ir.ObjectType:
		return Handle{Type: t}, nil

	default:
		return nil, fmt.Errorf("%s: cannot unpack %T", path, t)
	}
}

func (p *packer) unpackBitFields(unit *layout.Descriptor, delta uint32, members []any, path string) error {
	s, ok := p.module.Lookup(unit.Type).(ir.ScalarType)
	if !ok {
		return fmt.Errorf("%s.%s: bit-field unit is not a scalar", path, unit.Name)
	}
	bits, err := p.getBits(unit.Offset+delta, s.Width, path+"."+unit.Name)
	if err != nil {
		return err
	}
	for _, bf := range unit.BitFields {
		members[bf.Member] = Uint(s, fieldBits(bits>>bf.BitOffset, bf.BitWidth, s.Kind.IsSigned()))
	}
	return nil
}
