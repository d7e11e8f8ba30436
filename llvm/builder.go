// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package llvm

import (
	"fmt"

	lir "github.com/llir/llvm/ir"
	llconst "github.com/llir/llvm/ir/constant"
	llenum "github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
	llvalue "github.com/llir/llvm/ir/value"
	"go.uber.org/zap"

	"github.com/gogpu/shaderabi/abi"
	"github.com/gogpu/shaderabi/ir"
)

// Builder emits LLVM IR for one caller function.
//
// Temporaries are allocas in the entry block. Their lifetime is bracketed by
// llvm.lifetime.start at Alloca and llvm.lifetime.end at Release.
type Builder struct {
	module *ir.Module
	mod    *lir.Module
	fn     *lir.Func
	block  *lir.Block

	named    map[ir.TypeHandle]lltypes.Type
	callees  map[string]*lir.Func
	temps    int
	released map[llvalue.Value]bool
}

var _ abi.Builder = (*Builder)(nil)

// NewBuilder creates a builder whose instructions go into a new void
// function called name.
func NewBuilder(module *ir.Module, name string) *Builder {
	mod := lir.NewModule()
	fn := mod.NewFunc(name, lltypes.Void)
	return &Builder{
		module:   module,
		mod:      mod,
		fn:       fn,
		block:    fn.NewBlock("entry"),
		named:    make(map[ir.TypeHandle]lltypes.Type),
		callees:  make(map[string]*lir.Func),
		released: make(map[llvalue.Value]bool),
	}
}

// Module returns the LLVM module being built.
func (b *Builder) Module() *lir.Module {
	return b.mod
}

// Finish terminates the caller function and returns the module as text.
// The builder must not be used afterwards.
func (b *Builder) Finish() string {
	if b.block.Term == nil {
		b.block.NewRet(nil)
	}
	return b.mod.String()
}

// Variable allocates a named local of type t in the caller.
func (b *Builder) Variable(name string, t ir.TypeHandle) (abi.Address, error) {
	typ, err := b.lowerHandle(t, 0)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", name, err)
	}
	inst := b.block.NewAlloca(typ)
	inst.SetName(name)
	return inst, nil
}

// Global defines a zero-initialized global of type t.
func (b *Builder) Global(name string, t ir.TypeHandle) (abi.Address, error) {
	typ, err := b.lowerHandle(t, 0)
	if err != nil {
		return nil, fmt.Errorf("global %s: %w", name, err)
	}
	return b.mod.NewGlobalDef(name, llconst.NewZeroInitializer(typ)), nil
}

func (b *Builder) address(addr abi.Address) (llvalue.Value, *lltypes.PointerType, error) {
	v, ok := addr.(llvalue.Value)
	if !ok || v == nil {
		return nil, nil, fmt.Errorf("address %v is not an LLVM value", addr)
	}
	if b.released[v] {
		return nil, nil, fmt.Errorf("use of released temporary %s", v.Ident())
	}
	ptr, ok := v.Type().(*lltypes.PointerType)
	if !ok {
		return nil, nil, fmt.Errorf("address %s is not a pointer", v.Ident())
	}
	return v, ptr, nil
}

func operand(v abi.Value) (llvalue.Value, error) {
	lv, ok := v.(llvalue.Value)
	if !ok || lv == nil {
		return nil, fmt.Errorf("value %v is not an LLVM value", v)
	}
	return lv, nil
}

func index(i int) llvalue.Value {
	return llconst.NewInt(lltypes.I32, int64(i))
}

// Alloca implements abi.Builder.
func (b *Builder) Alloca(t ir.TypeInner) (abi.Address, error) {
	typ, err := b.typeOf(t)
	if err != nil {
		return nil, err
	}
	b.temps++
	inst := b.fn.Blocks[0].NewAlloca(typ)
	inst.SetName(fmt.Sprintf("tmp%d", b.temps))
	b.lifetime("llvm.lifetime.start.p0i8", inst)
	Logger().Debug("alloca", zap.String("name", inst.Ident()), zap.Stringer("type", typ))
	return inst, nil
}

// Release implements abi.Builder. Releasing twice is a no-op.
func (b *Builder) Release(addr abi.Address) {
	v, ok := addr.(llvalue.Value)
	if !ok || b.released[v] {
		return
	}
	b.released[v] = true
	if inst, ok := v.(*lir.InstAlloca); ok {
		b.lifetime("llvm.lifetime.end.p0i8", inst)
	}
}

// lifetime emits a lifetime marker covering the whole of a temporary.
func (b *Builder) lifetime(name string, inst *lir.InstAlloca) {
	fn := b.intrinsic(name, lltypes.Void, lltypes.I64, lltypes.I8Ptr)
	ptr := b.block.NewBitCast(inst, lltypes.I8Ptr)
	b.block.NewCall(fn, llconst.NewInt(lltypes.I64, -1), ptr)
}

// Element implements abi.Builder.
func (b *Builder) Element(addr abi.Address, _ ir.TypeInner, i int) (abi.Address, error) {
	v, ptr, err := b.address(addr)
	if err != nil {
		return nil, err
	}
	return b.block.NewGetElementPtr(ptr.ElemType, v, index(0), index(i)), nil
}

// Load implements abi.Builder.
func (b *Builder) Load(addr abi.Address, _ ir.TypeInner) (abi.Value, error) {
	v, ptr, err := b.address(addr)
	if err != nil {
		return nil, err
	}
	return b.block.NewLoad(ptr.ElemType, v), nil
}

// Store implements abi.Builder.
func (b *Builder) Store(addr abi.Address, v abi.Value, _ ir.TypeInner) error {
	dst, _, err := b.address(addr)
	if err != nil {
		return err
	}
	src, err := operand(v)
	if err != nil {
		return err
	}
	b.block.NewStore(src, dst)
	return nil
}

// Extract implements abi.Builder.
func (b *Builder) Extract(v abi.Value, t ir.TypeInner, i int) (abi.Value, error) {
	agg, err := operand(v)
	if err != nil {
		return nil, err
	}
	if _, ok := t.(ir.VectorType); ok {
		return b.block.NewExtractElement(agg, index(i)), nil
	}
	return b.block.NewExtractValue(agg, uint64(i)), nil
}

// Compose implements abi.Builder.
func (b *Builder) Compose(t ir.TypeInner, parts []abi.Value) (abi.Value, error) {
	typ, err := b.typeOf(t)
	if err != nil {
		return nil, err
	}
	_, isVector := t.(ir.VectorType)
	var acc llvalue.Value = llconst.NewUndef(typ)
	for i, p := range parts {
		elem, err := operand(p)
		if err != nil {
			return nil, err
		}
		if isVector {
			acc = b.block.NewInsertElement(acc, elem, index(i))
		} else {
			acc = b.block.NewInsertValue(acc, elem, uint64(i))
		}
	}
	return acc, nil
}

// Cast implements abi.Builder.
func (b *Builder) Cast(op abi.Op, v abi.Value, from, to ir.ScalarType) (abi.Value, error) {
	src, err := operand(v)
	if err != nil {
		return nil, err
	}
	dst, err := scalarType(to)
	if err != nil {
		return nil, err
	}
	if src.Type().Equal(dst) && (op == abi.OpBitcast || op == abi.OpZExt) {
		// bool and the packed kinds already share i32 with uint.
		return src, nil
	}

	switch op {
	case abi.OpTrunc:
		return b.block.NewTrunc(src, dst), nil
	case abi.OpSExt:
		return b.block.NewSExt(src, dst), nil
	case abi.OpZExt:
		return b.block.NewZExt(src, dst), nil
	case abi.OpBitcast:
		return b.block.NewBitCast(src, dst), nil
	case abi.OpSIToFP:
		return b.block.NewSIToFP(src, dst), nil
	case abi.OpUIToFP:
		return b.block.NewUIToFP(src, dst), nil
	case abi.OpFPToSI:
		return b.block.NewFPToSI(src, dst), nil
	case abi.OpFPToUI:
		return b.block.NewFPToUI(src, dst), nil
	case abi.OpFPExt:
		return b.block.NewFPExt(src, dst), nil
	case abi.OpFPTrunc:
		return b.block.NewFPTrunc(src, dst), nil
	default:
		return nil, fmt.Errorf("unsupported cast %s from %s", op, ir.FormatScalar(from))
	}
}

// NotZero implements abi.Builder. The i1 result is widened to the i32
// bool representation.
func (b *Builder) NotZero(v abi.Value, from ir.ScalarType) (abi.Value, error) {
	src, err := operand(v)
	if err != nil {
		return nil, err
	}
	var cmp llvalue.Value
	switch typ := src.Type().(type) {
	case *lltypes.FloatType:
		cmp = b.block.NewFCmp(llenum.FPredUNE, src, llconst.NewFloat(typ, 0))
	case *lltypes.IntType:
		cmp = b.block.NewICmp(llenum.IPredNE, src, llconst.NewInt(typ, 0))
	default:
		return nil, fmt.Errorf("notzero of %s value", ir.FormatScalar(from))
	}
	return b.block.NewZExt(cmp, lltypes.I32), nil
}

// Clamp implements abi.Builder with the maxnum and minnum intrinsics.
func (b *Builder) Clamp(v abi.Value, s ir.ScalarType, lo, hi float64) (abi.Value, error) {
	src, err := operand(v)
	if err != nil {
		return nil, err
	}
	ft, ok := src.Type().(*lltypes.FloatType)
	if !ok {
		return nil, fmt.Errorf("clamp of non-float %s", ir.FormatScalar(s))
	}
	suffix := map[lltypes.FloatKind]string{
		lltypes.FloatKindHalf:   "f16",
		lltypes.FloatKindFloat:  "f32",
		lltypes.FloatKindDouble: "f64",
	}[ft.Kind]
	if suffix == "" {
		return nil, fmt.Errorf("clamp of unsupported float type %s", ft)
	}
	maxnum := b.intrinsic("llvm.maxnum."+suffix, ft, ft, ft)
	minnum := b.intrinsic("llvm.minnum."+suffix, ft, ft, ft)
	r := b.block.NewCall(maxnum, src, llconst.NewFloat(ft, lo))
	return b.block.NewCall(minnum, r, llconst.NewFloat(ft, hi)), nil
}

// Narrow implements abi.Builder: a mask for unsigned kinds, a shift pair
// for signed ones.
func (b *Builder) Narrow(v abi.Value, s ir.ScalarType, width uint8) (abi.Value, error) {
	src, err := operand(v)
	if err != nil {
		return nil, err
	}
	it, ok := src.Type().(*lltypes.IntType)
	if !ok {
		return nil, fmt.Errorf("narrow of non-integer %s", ir.FormatScalar(s))
	}
	if uint64(width) >= it.BitSize {
		return src, nil
	}
	if s.Kind.IsSigned() {
		shift := llconst.NewInt(it, int64(it.BitSize)-int64(width))
		return b.block.NewAShr(b.block.NewShl(src, shift), shift), nil
	}
	return b.block.NewAnd(src, llconst.NewInt(it, int64(1)<<width-1)), nil
}

func (b *Builder) intrinsic(name string, ret lltypes.Type, params ...lltypes.Type) *lir.Func {
	if f, ok := b.callees[name]; ok {
		return f
	}
	ps := make([]*lir.Param, len(params))
	for i, p := range params {
		ps[i] = lir.NewParam("", p)
	}
	f := b.mod.NewFunc(name, ret, ps...)
	b.callees[name] = f
	return f
}

// Annotate implements abi.Builder by passing the handle through an
// annotation intrinsic carrying the coherence flag.
func (b *Builder) Annotate(handle abi.Value, _ ir.TypeInner, coherent bool) (abi.Value, error) {
	h, err := operand(handle)
	if err != nil {
		return nil, err
	}
	fn := b.intrinsic("shaderabi.annotate.handle", lltypes.I8Ptr, lltypes.I8Ptr, lltypes.I1)
	return b.block.NewCall(fn, h, llconst.NewBool(coherent)), nil
}

// ReplaceUses implements abi.Builder. LLVM locals are reached through their
// alloca, so the re-annotated handle is stored back into it.
func (b *Builder) ReplaceUses(old, replacement abi.Address) error {
	dst, _, err := b.address(old)
	if err != nil {
		return err
	}
	src, ptr, err := b.address(replacement)
	if err != nil {
		return err
	}
	b.block.NewStore(b.block.NewLoad(ptr.ElemType, src), dst)
	return nil
}

// Call implements abi.Builder. Every parameter is passed by pointer; the
// callee is declared on first use.
func (b *Builder) Call(callee *ir.Function, args []abi.CallArg) error {
	operands := make([]llvalue.Value, len(args))
	for i, a := range args {
		v, _, err := b.address(a.Address)
		if err != nil {
			return fmt.Errorf("call %s argument %d: %w", callee.Name, i, err)
		}
		operands[i] = v
	}

	fn, ok := b.callees[callee.Name]
	if !ok {
		params := make([]*lir.Param, len(callee.Arguments))
		for i, arg := range callee.Arguments {
			typ, err := b.lowerHandle(arg.Type, 0)
			if err != nil {
				return fmt.Errorf("declare %s: %w", callee.Name, err)
			}
			params[i] = lir.NewParam(arg.Name, lltypes.NewPointer(typ))
		}
		fn = b.mod.NewFunc(callee.Name, lltypes.Void, params...)
		if callee.InlineOnly {
			fn.FuncAttrs = append(fn.FuncAttrs, llenum.FuncAttrAlwaysInline)
		}
		b.callees[callee.Name] = fn
	}
	b.block.NewCall(fn, operands...)
	return nil
}
