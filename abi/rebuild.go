// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package abi

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gogpu/shaderabi/ir"
)

// leafSource hands out leaves in order, or the same leaf forever when
// splatting.
type leafSource struct {
	leaves []Leaf
	pos    int
	splat  bool
}

func (s *leafSource) next(path string) (Leaf, error) {
	if s.splat {
		return s.leaves[0], nil
	}
	if s.pos >= len(s.leaves) {
		return Leaf{}, NewError(ErrLeafCountMismatch, path, "ran out of source leaves")
	}
	l := s.leaves[s.pos]
	s.pos++
	return l, nil
}

// Rebuild stores leaves into the object of type t at dst, consuming them in
// flatten order and converting each to the destination leaf type. A single
// numeric leaf is broadcast into every destination slot.
func (c *Copier) Rebuild(dst Address, t ir.TypeHandle, leaves []Leaf) error {
	inner, err := c.lookup(t)
	if err != nil {
		return err
	}
	shape, err := leafShape(c.module, t)
	if err != nil {
		return err
	}

	src := &leafSource{leaves: leaves}
	switch {
	case len(leaves) == len(shape):
	case len(leaves) == 1 && len(shape) > 1:
		if leaves[0].IsOpaque() {
			return NewError(ErrUnsupportedLeafType, leaves[0].Path, "cannot splat an opaque handle")
		}
		src.splat = true
	default:
		return NewError(ErrLeafCountMismatch, "",
			fmt.Sprintf("%s has %d leaves, got %d", ir.Format(c.module, t), len(shape), len(leaves)))
	}

	Logger().Debug("rebuild",
		zap.String("type", ir.Format(c.module, t)),
		zap.Int("leaves", len(leaves)),
		zap.Bool("splat", src.splat))
	return c.rebuild(dst, inner, "", src, 0)
}

func (c *Copier) rebuild(dst Address, inner ir.TypeInner, path string, src *leafSource, depth int) error {
	if depth > maxDepth {
		return NewError(ErrRecursiveType, path, "type contains itself")
	}

	switch t := inner.(type) {
	case ir.ScalarType:
		v, err := c.nextScalar(src, t, path)
		if err != nil {
			return err
		}
		return c.builder.Store(dst, v, t)

	case ir.VectorType:
		parts, err := c.nextScalars(src, t, path)
		if err != nil {
			return err
		}
		v, err := c.builder.Compose(t, parts)
		if err != nil {
			return err
		}
		return c.builder.Store(dst, v, t)

	case ir.MatrixType:
		parts, err := c.nextScalars(src, t, path)
		if err != nil {
			return err
		}
		v, err := c.builder.Compose(t, parts)
		if err != nil {
			return err
		}
		return StoreMatrix(c.builder, dst, v, t, resolveOrientation(t.Orientation, c.orientation))

	case ir.ResourceType, ir.ObjectType:
		l, err := src.next(path)
		if err != nil {
			return err
		}
		if !sameOpaque(l.Type, inner) {
			return NewError(ErrUnsupportedLeafType, path, fmt.Sprintf("cannot convert %s leaf to opaque handle", l.Path))
		}
		v, err := c.leafValue(l)
		if err != nil {
			return err
		}
		return c.builder.Store(dst, v, inner)

	default:
		kids, err := children(c.module, inner, path, c.orientation)
		if err != nil {
			return err
		}
		for _, k := range kids {
			ea, err := c.builder.Element(dst, inner, k.element)
			if err != nil {
				return fmt.Errorf("element %s: %w", k.path, err)
			}
			if k.bits != 0 {
				if err := c.rebuildBitField(ea, k, src); err != nil {
					return err
				}
				continue
			}
			if err := c.rebuild(ea, k.inner, k.path, src, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
}

// rebuildBitField stores the next leaf into a bit-field member, narrowed to
// the member's width.
func (c *Copier) rebuildBitField(dst Address, k child, src *leafSource) error {
	s, ok := k.inner.(ir.ScalarType)
	if !ok || !s.Kind.IsInteger() {
		return NewError(ErrUnsupportedLeafType, k.path, "bit-field member is not an integer scalar")
	}
	v, err := c.nextScalar(src, s, k.path)
	if err != nil {
		return err
	}
	if k.bits < s.Width*8 {
		if v, err = c.builder.Narrow(v, s, k.bits); err != nil {
			return fmt.Errorf("%s: %w", k.path, err)
		}
	}
	return c.builder.Store(dst, v, s)
}

// nextScalars converts the leaves for every scalar slot of a vector or
// matrix, in canonical order.
func (c *Copier) nextScalars(src *leafSource, t ir.TypeInner, path string) ([]Value, error) {
	kids, err := children(c.module, t, path, c.orientation)
	if err != nil {
		return nil, err
	}
	parts := make([]Value, len(kids))
	for _, k := range kids {
		s, _ := k.inner.(ir.ScalarType)
		v, err := c.nextScalar(src, s, k.path)
		if err != nil {
			return nil, err
		}
		parts[k.extract] = v
	}
	return parts, nil
}

func (c *Copier) nextScalar(src *leafSource, to ir.ScalarType, path string) (Value, error) {
	l, err := src.next(path)
	if err != nil {
		return nil, err
	}
	from, ok := l.Scalar()
	if !ok {
		return nil, NewError(ErrUnsupportedLeafType, path, fmt.Sprintf("cannot convert opaque leaf %s to %s", l.Path, ir.FormatScalar(to)))
	}
	v, err := c.leafValue(l)
	if err != nil {
		return nil, err
	}
	cv, err := Convert(c.builder, v, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cv, nil
}

// leafValue returns the leaf's value, loading it when the leaf came from
// FlattenAddress.
func (c *Copier) leafValue(l Leaf) (Value, error) {
	if l.Value != nil {
		return l.Value, nil
	}
	if l.Address == nil {
		return nil, NewError(ErrUnsupportedLeafType, l.Path, "leaf has neither value nor address")
	}
	return c.builder.Load(l.Address, l.Type)
}

func sameOpaque(a, b ir.TypeInner) bool {
	switch at := a.(type) {
	case ir.ResourceType:
		bt, ok := b.(ir.ResourceType)
		return ok && at.Name == bt.Name && at.SampleCount == bt.SampleCount
	case ir.ObjectType:
		bt, ok := b.(ir.ObjectType)
		return ok && at.Name == bt.Name
	default:
		return false
	}
}
