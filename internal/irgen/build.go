package irgen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/minijava-lang/minijava/internal/ast"
	"github.com/minijava-lang/minijava/internal/errors"
	"github.com/minijava-lang/minijava/internal/irguard"
	"github.com/minijava-lang/minijava/internal/semantic"
	"github.com/minijava-lang/minijava/internal/symtab"
)

// Build runs both passes of IR construction: BuildTypes (Pass 1) followed
// by per-method graph construction (Pass 2). Acquires the process-wide
// irguard for the duration of the build, since the underlying graph
// library (github.com/llir/llvm's module/value arena) is not re-entrant.
func Build(program *ast.Program, info *semantic.Info) (*Program, error) {
	guard, err := irguard.Acquire()
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	p := BuildTypes(program, info)
	for _, c := range program.Classes {
		for _, m := range c.InstanceMethods {
			newFuncBuilder(p, info, c, m).build()
		}
		for _, m := range c.MainMethods {
			fb := newMainBuilder(p, info, c, m)
			fb.build()
			p.Main = fb.fn
		}
	}
	return p, nil
}

// local is a variable's storage (its stack slot; for the receiver, the
// parameter itself) plus the type stored there; every declared local is
// still alloca'd (so its address is GEP-able for arrays and so
// the optimizer's load/store peephole pass has concrete instructions to
// fold away), not registerized up front.
type local struct {
	slot  value.Value
	typ   types.Type
}

// funcBuilder threads a block and a memory/local environment through the
// recursive statement and expression lowering for one method body.
type funcBuilder struct {
	p    *Program
	info *semantic.Info

	class  *ast.ClassDeclaration
	fn     *ir.Func
	body   *ast.Block
	locals map[symtab.Symbol]*local

	cur        *ir.Block
	retType    types.Type
	blockCount int
}

func newFuncBuilder(p *Program, info *semantic.Info, c *ast.ClassDeclaration, m *ast.InstanceMethod) *funcBuilder {
	fn := p.Methods[m.ID()]
	fb := &funcBuilder{p: p, info: info, class: c, fn: fn, locals: make(map[symtab.Symbol]*local), retType: fn.Sig.RetType}
	fb.cur = fb.newBlock("entry")

	thisParam := fn.Params[0]
	fb.locals[symtab.Symbol{}] = &local{slot: thisParam, typ: thisParam.Type()} // receiver has no declared name slot

	for i, param := range m.Parameters {
		fb.declareParam(param.Name, fn.Params[i+1])
	}
	fb.body = m.Body
	return fb
}

// mainBuilder lowers the single implicit main method into MainLinkerName.
type mainBuilder struct {
	*funcBuilder
	argv *ast.MainMethod
}

func newMainBuilder(p *Program, info *semantic.Info, c *ast.ClassDeclaration, m *ast.MainMethod) *mainBuilder {
	fn := p.Module.NewFunc(MainLinkerName, types.Void)
	fb := &funcBuilder{p: p, info: info, class: c, fn: fn, locals: make(map[symtab.Symbol]*local), retType: types.Void}
	fb.cur = fb.newBlock("entry")
	fb.body = m.Body
	return &mainBuilder{funcBuilder: fb, argv: m}
}

func (fb *funcBuilder) declareParam(name symtab.Symbol, val value.Value) {
	slot := fb.cur.NewAlloca(val.Type())
	fb.cur.NewStore(val, slot)
	fb.locals[name] = &local{slot: slot, typ: val.Type()}
}

func (fb *funcBuilder) newBlock(hint string) *ir.Block {
	fb.blockCount++
	return fb.fn.NewBlock(hint)
}

func (fb *funcBuilder) build() {
	fb.lowerBlock(fb.body)
	if fb.cur.Term == nil {
		if fb.retType == types.Void {
			fb.cur.NewRet(nil)
		} else {
			errors.Assert(false, "method %s falls off the end without returning", fb.fn.Name())
		}
	}
}

func (fb *funcBuilder) lowerBlock(b *ast.Block) {
	for _, s := range b.Statements {
		if fb.cur.Term != nil {
			return // unreachable code after a terminated block; nothing left to lower
		}
		fb.lowerStmt(s)
	}
}

func (fb *funcBuilder) lowerStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.EmptyStmt:
	case *ast.ExpressionStmt:
		fb.lowerExpr(n.Expr)
	case *ast.LocalVariableStmt:
		t := fb.p.llvmType(fb.info.TypeAnnotations[n.Decl.ID()])
		slot := fb.cur.NewAlloca(t)
		fb.locals[n.Decl.Name] = &local{slot: slot, typ: t}
		if n.Initializer != nil {
			v := fb.lowerExpr(n.Initializer)
			fb.cur.NewStore(v, slot)
		}
	case *ast.Block:
		fb.lowerBlock(n)
	case *ast.IfStmt:
		fb.lowerIf(n)
	case *ast.WhileStmt:
		fb.lowerWhile(n)
	case *ast.ReturnStmt:
		if n.Value != nil {
			v := fb.lowerExpr(n.Value)
			fb.cur.NewRet(v)
		} else {
			fb.cur.NewRet(nil)
		}
	default:
		errors.Assert(false, "unhandled statement kind %T in irgen", s)
	}
}

// lowerIf builds the then/else/join triangle. A join block is only kept
// if control can still reach it; if both arms return, the join block is
// dropped from the function — dead joins are never materialized.
func (fb *funcBuilder) lowerIf(n *ast.IfStmt) {
	cond := fb.lowerExpr(n.Condition)
	thenBlock := fb.newBlock("if.then")
	var elseBlock *ir.Block
	joinBlock := fb.newBlock("if.join")

	if n.Else != nil {
		elseBlock = fb.newBlock("if.else")
		fb.cur.NewCondBr(cond, thenBlock, elseBlock)
	} else {
		fb.cur.NewCondBr(cond, thenBlock, joinBlock)
	}

	fb.cur = thenBlock
	fb.lowerStmt(n.Then)
	thenFalls := fb.cur.Term == nil
	if thenFalls {
		fb.cur.NewBr(joinBlock)
	}

	elseFalls := true
	if n.Else != nil {
		fb.cur = elseBlock
		fb.lowerStmt(n.Else)
		elseFalls = fb.cur.Term == nil
		if elseFalls {
			fb.cur.NewBr(joinBlock)
		}
	}

	if !thenFalls && !elseFalls {
		// Both arms returned: drop the unreachable join and leave fb.cur on
		// the terminated else arm, so the enclosing block stops lowering.
		for i, blk := range fb.fn.Blocks {
			if blk == joinBlock {
				fb.fn.Blocks = append(fb.fn.Blocks[:i], fb.fn.Blocks[i+1:]...)
				break
			}
		}
		return
	}
	fb.cur = joinBlock
}

// lowerWhile builds the header/body/exit triangle with the header as the
// loop's single entry and exit point, which is what makes the loop
// structure recognizable to the unrolling pass.
func (fb *funcBuilder) lowerWhile(n *ast.WhileStmt) {
	header := fb.newBlock("while.header")
	fb.cur.NewBr(header)

	fb.cur = header
	cond := fb.lowerExpr(n.Condition)
	body := fb.newBlock("while.body")
	exit := fb.newBlock("while.exit")
	fb.cur.NewCondBr(cond, body, exit)

	fb.cur = body
	fb.lowerStmt(n.Body)
	if fb.cur.Term == nil {
		fb.cur.NewBr(header)
	}

	fb.cur = exit
}

func (fb *funcBuilder) lowerExpr(e ast.Expr) value.Value {
	switch n := e.(type) {
	case *ast.IntegerConstant:
		return fb.constInt(n)
	case *ast.BooleanConstant:
		if n.Value {
			return constant.True
		}
		return constant.False
	case *ast.NullConstant:
		return constant.NewNull(fb.p.llvmType(fb.info.TypeAnnotations[n.ID()]).(*types.PointerType))
	case *ast.ThisRef:
		return fb.locals[symtab.Symbol{}].slot
	case *ast.VariableAccess:
		return fb.lowerVariableAccess(n)
	case *ast.ArrayAccess:
		return fb.cur.NewLoad(fb.p.llvmType(fb.info.TypeAnnotations[n.ID()]), fb.arrayElementPtr(n))
	case *ast.MethodInvocation:
		return fb.lowerCall(n)
	case *ast.ObjectInstantiation:
		return fb.lowerNewObject(n)
	case *ast.ArrayInstantiation:
		return fb.lowerNewArray(n)
	case *ast.BinaryExpr:
		return fb.lowerBinary(n)
	case *ast.UnaryExpr:
		return fb.lowerUnary(n)
	default:
		errors.Assert(false, "unhandled expression kind %T in irgen", e)
		return nil
	}
}

// constInt materializes a folded or literal integer constant directly;
// the semantic pass has already converted the literal (wrapping to 32
// bits) into ConstAnnotations, so irgen never re-parses digits.
func (fb *funcBuilder) constInt(n *ast.IntegerConstant) value.Value {
	v, ok := fb.info.ConstAnnotations[n.ID()]
	errors.Assert(ok, "integer literal missing a const annotation")
	return constant.NewInt(llvmIntType, int64(v))
}

func (fb *funcBuilder) lowerVariableAccess(n *ast.VariableAccess) value.Value {
	if n.Target != nil {
		ptr := fb.fieldPtr(n)
		return fb.cur.NewLoad(fb.p.llvmType(fb.info.TypeAnnotations[n.ID()]), ptr)
	}
	if l, ok := fb.locals[n.Name]; ok {
		return fb.cur.NewLoad(l.typ, l.slot)
	}
	// An unqualified field access on the implicit `this`, or the System
	// global; both resolve through VarDeclAnnotations.
	decl := fb.info.VarDeclAnnotations[n.ID()]
	if decl == nil {
		errors.Assert(false, "unresolved variable access %s", n.Name.Text())
	}
	return fb.cur.NewLoad(fb.p.llvmType(fb.info.TypeAnnotations[n.ID()]), fb.fieldPtrFor(fb.locals[symtab.Symbol{}].slot, fb.class.Name, decl.Name))
}

func (fb *funcBuilder) fieldPtr(n *ast.VariableAccess) value.Value {
	targetVal := fb.lowerExpr(n.Target)
	targetType := fb.info.TypeAnnotations[n.Target.ID()]
	return fb.fieldPtrFor(targetVal, targetType.Basic.Class, n.Name)
}

func (fb *funcBuilder) fieldPtrFor(objPtr value.Value, class, field symtab.Symbol) value.Value {
	layout := fb.p.Classes[class]
	slot, ok := layout.Fields[field]
	errors.Assert(ok, "field %s not laid out on class %s", field.Text(), class.Text())
	zero := constant.NewInt(types.I32, 0)
	idx := constant.NewInt(types.I32, int64(slot.Index))
	return fb.cur.NewGetElementPtr(layout.Record, objPtr, zero, idx)
}

// arrayElementPtr computes the address of arr[index], skipping the
// length header field (index 0) that every array record carries.
func (fb *funcBuilder) arrayElementPtr(n *ast.ArrayAccess) value.Value {
	arr := fb.lowerExpr(n.Target)
	idx := fb.lowerExpr(n.Index)
	arrType := fb.info.TypeAnnotations[n.Target.ID()]
	ptrType := fb.p.llvmType(arrType).(*types.PointerType)
	record := ptrType.ElemType.(*types.StructType)
	zero := constant.NewInt(types.I32, 0)
	one := constant.NewInt(types.I32, 1)
	return fb.cur.NewGetElementPtr(record, arr, zero, one, idx)
}

func (fb *funcBuilder) arrayLengthPtr(arr value.Value, record *types.StructType) value.Value {
	zero := constant.NewInt(types.I32, 0)
	return fb.cur.NewGetElementPtr(record, arr, zero, zero)
}

// lowerCall special-cases System.out.println (the sole built-in
// operation, redirected to the runtime's mj_runtime_println) and
// otherwise emits a direct call to the mangled method function.
func (fb *funcBuilder) lowerCall(n *ast.MethodInvocation) value.Value {
	method := fb.info.MethodAnnotations[n.ID()]
	builtin := method == nil
	for _, c := range fb.info.Builtins {
		for _, bm := range c.InstanceMethods {
			builtin = builtin || bm == method
		}
	}
	if builtin {
		arg := fb.lowerExpr(n.Arguments[0])
		fb.cur.NewCall(fb.p.Builtins["mj_runtime_println"], arg)
		return nil
	}
	var recv value.Value
	if n.Target != nil {
		recv = fb.lowerExpr(n.Target)
	} else {
		recv = fb.locals[symtab.Symbol{}].slot
	}
	args := []value.Value{recv}
	for _, a := range n.Arguments {
		args = append(args, fb.lowerExpr(a))
	}
	fn := fb.p.Methods[method.ID()]
	return fb.cur.NewCall(fn, args...)
}

func (fb *funcBuilder) lowerNewObject(n *ast.ObjectInstantiation) value.Value {
	layout := fb.p.Classes[n.ClassName]
	size := sizeofConstant(layout.Record)
	raw := fb.cur.NewCall(fb.p.Builtins["mj_runtime_allocate"], size, constant.NewInt(types.I64, 1))
	return fb.cur.NewBitCast(raw, layout.Pointer)
}

func (fb *funcBuilder) lowerNewArray(n *ast.ArrayInstantiation) value.Value {
	extent := fb.lowerExpr(n.Extent)
	resultType := fb.info.TypeAnnotations[n.ID()]
	ptrType := fb.p.llvmType(resultType).(*types.PointerType)
	record := ptrType.ElemType.(*types.StructType)
	elemType := record.Fields[1].(*types.ArrayType).ElemType

	extent64 := fb.cur.NewSExt(extent, types.I64)
	elemSize := sizeofConstant(elemType)
	count := fb.cur.NewAdd(fb.cur.NewMul(extent64, elemSize), sizeofConstant(types.I32))
	raw := fb.cur.NewCall(fb.p.Builtins["mj_runtime_allocate"], constant.NewInt(types.I64, 1), count)
	arr := fb.cur.NewBitCast(raw, ptrType)
	fb.cur.NewStore(extent, fb.arrayLengthPtr(arr, record))
	return arr
}

// sizeofConstant returns a GEP-based size-of-T idiom: the integer address
// of element 1 of a null pointer to T, which llir/llvm (lacking a sizeof
// constant of its own) resolves to T's byte size at LLVM codegen time.
func sizeofConstant(t types.Type) value.Value {
	null := constant.NewNull(types.NewPointer(t))
	one := constant.NewInt(types.I32, 1)
	gep := constant.NewGetElementPtr(t, null, one)
	return constant.NewPtrToInt(gep, types.I64)
}

func (fb *funcBuilder) lowerBinary(n *ast.BinaryExpr) value.Value {
	if n.Op == ast.OpAssign {
		return fb.lowerAssign(n)
	}
	if v, ok := fb.info.ConstAnnotations[n.ID()]; ok {
		if _, isBool := fb.foldedAsBool(n); isBool {
			if v != 0 {
				return constant.True
			}
			return constant.False
		}
		return constant.NewInt(llvmIntType, int64(v))
	}

	switch n.Op {
	case ast.OpOr:
		return fb.lowerShortCircuit(n, true)
	case ast.OpAnd:
		return fb.lowerShortCircuit(n, false)
	}

	l := fb.lowerExpr(n.Left)
	r := fb.lowerExpr(n.Right)
	switch n.Op {
	case ast.OpEqual:
		return fb.cur.NewICmp(enum.IPredEQ, l, r)
	case ast.OpNotEqual:
		return fb.cur.NewICmp(enum.IPredNE, l, r)
	case ast.OpLess:
		return fb.cur.NewICmp(enum.IPredSLT, l, r)
	case ast.OpLessEqual:
		return fb.cur.NewICmp(enum.IPredSLE, l, r)
	case ast.OpGreater:
		return fb.cur.NewICmp(enum.IPredSGT, l, r)
	case ast.OpGreaterEqual:
		return fb.cur.NewICmp(enum.IPredSGE, l, r)
	case ast.OpPlus:
		return fb.cur.NewAdd(l, r)
	case ast.OpMinus:
		return fb.cur.NewSub(l, r)
	case ast.OpTimes:
		return fb.cur.NewMul(l, r)
	case ast.OpDivide:
		return fb.cur.NewSDiv(l, r)
	case ast.OpModulo:
		return fb.cur.NewSRem(l, r)
	default:
		errors.Assert(false, "unhandled binary operator %v", n.Op)
		return nil
	}
}

// foldedAsBool reports whether a folded binary expression's static type
// is boolean, since ConstAnnotations stores both folded ints and folded
// comparisons in the same int32 table.
func (fb *funcBuilder) foldedAsBool(n *ast.BinaryExpr) (semantic.Type, bool) {
	t := fb.info.TypeAnnotations[n.ID()]
	return t, t.Basic.Kind == semantic.KindBoolean
}

// lowerShortCircuit builds the branch diamond for && and ||: short is the
// value (true for ||, false for &&) that short-circuits evaluation of the
// right operand.
func (fb *funcBuilder) lowerShortCircuit(n *ast.BinaryExpr, shortOnTrue bool) value.Value {
	l := fb.lowerExpr(n.Left)
	rhsBlock := fb.newBlock("sc.rhs")
	joinBlock := fb.newBlock("sc.join")
	entry := fb.cur

	if shortOnTrue {
		fb.cur.NewCondBr(l, joinBlock, rhsBlock)
	} else {
		fb.cur.NewCondBr(l, rhsBlock, joinBlock)
	}

	fb.cur = rhsBlock
	r := fb.lowerExpr(n.Right)
	rhsExit := fb.cur
	fb.cur.NewBr(joinBlock)

	fb.cur = joinBlock
	shortValue := constant.NewBool(shortOnTrue)
	phi := fb.cur.NewPhi(
		ir.NewIncoming(shortValue, entry),
		ir.NewIncoming(r, rhsExit),
	)
	return phi
}

func (fb *funcBuilder) lowerAssign(n *ast.BinaryExpr) value.Value {
	v := fb.lowerExpr(n.Right)
	switch target := n.Left.(type) {
	case *ast.VariableAccess:
		if target.Target != nil {
			fb.cur.NewStore(v, fb.fieldPtr(target))
			return v
		}
		if l, ok := fb.locals[target.Name]; ok {
			fb.cur.NewStore(v, l.slot)
			return v
		}
		decl := fb.info.VarDeclAnnotations[target.ID()]
		fb.cur.NewStore(v, fb.fieldPtrFor(fb.locals[symtab.Symbol{}].slot, fb.class.Name, decl.Name))
		return v
	case *ast.ArrayAccess:
		fb.cur.NewStore(v, fb.arrayElementPtr(target))
		return v
	default:
		errors.Assert(false, "unhandled assignment target %T", n.Left)
		return nil
	}
}

func (fb *funcBuilder) lowerUnary(n *ast.UnaryExpr) value.Value {
	if v, ok := fb.info.ConstAnnotations[n.ID()]; ok {
		return constant.NewInt(llvmIntType, int64(v))
	}
	v := fb.lowerExpr(n.Target)
	switch n.Op {
	case ast.OpNegate:
		return fb.cur.NewSub(constant.NewInt(llvmIntType, 0), v)
	case ast.OpNot:
		return fb.cur.NewXor(v, constant.True)
	default:
		errors.Assert(false, "unhandled unary operator %v", n.Op)
		return nil
	}
}
