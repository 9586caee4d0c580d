package optimize

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/minijava-lang/minijava/internal/irgen"
)

// constantFoldPass is pass 1 of the pipeline: constant folding and the
// algebraic identities that hold without constant inputs.
type constantFoldPass struct{}

func (constantFoldPass) Name() string { return "constant-fold" }

func (constantFoldPass) Run(p *irgen.Program) bool {
	changed := false
	for _, fn := range allFuncs(p) {
		for _, b := range fn.Blocks {
			for _, inst := range append([]ir.Instruction(nil), b.Insts...) {
				if foldOne(fn, b, inst) {
					changed = true
				}
			}
		}
	}
	return changed
}

// foldOne folds a single instruction if its inputs allow it, either via a
// constant computation or one of the zero-constant-input algebraic
// identities this pass recognizes, and returns whether it did.
func foldOne(fn *ir.Func, b *ir.Block, inst ir.Instruction) bool {
	var result value.Value

	switch n := inst.(type) {
	case *ir.InstAdd:
		result = foldArith(n.X, n.Y, func(x, y int64) int64 { return x + y })
	case *ir.InstSub:
		if n.X == n.Y {
			result = constant.NewInt(types.I32, 0) // x - x -> 0
		} else {
			result = foldArith(n.X, n.Y, func(x, y int64) int64 { return x - y })
		}
	case *ir.InstMul:
		if isZeroConst(n.X) || isZeroConst(n.Y) {
			result = constant.NewInt(types.I32, 0) // x*0, 0*x -> 0
		} else {
			result = foldArith(n.X, n.Y, func(x, y int64) int64 { return x * y })
		}
	case *ir.InstSDiv:
		switch {
		case n.X == n.Y:
			result = constant.NewInt(types.I32, 1) // x / x -> 1 (UB at x==0 ignored, matches spec note)
		case isZeroConst(n.X):
			result = constant.NewInt(types.I32, 0) // 0 / x -> 0
		case isZeroConst(n.Y):
			result = constant.NewInt(types.I32, 0) // x / 0 -> 0, folded away as UB
		case isNegOneConst(n.Y):
			result = foldArith(n.X, n.Y, func(x, y int64) int64 { return -x })
		default:
			result = foldArithDiv(n.X, n.Y)
		}
	case *ir.InstSRem:
		switch {
		case isOneConst(n.Y):
			result = constant.NewInt(types.I32, 0) // x % 1 -> 0
		case isNegOneConst(n.Y):
			result = constant.NewInt(types.I32, 0) // x % -1 -> 0
		default:
			result = foldArithRem(n.X, n.Y)
		}
	}

	if result == nil {
		return false
	}
	replaceAllUses(fn, inst, result)
	eraseInst(b, inst)
	return true
}

func isConstInt(v value.Value) (int64, bool) {
	c, ok := v.(*constant.Int)
	if !ok {
		return 0, false
	}
	return c.X.Int64(), true
}

func isZeroConst(v value.Value) bool   { n, ok := isConstInt(v); return ok && n == 0 }
func isOneConst(v value.Value) bool    { n, ok := isConstInt(v); return ok && n == 1 }
func isNegOneConst(v value.Value) bool { n, ok := isConstInt(v); return ok && n == -1 }

func foldArith(x, y value.Value, f func(a, b int64) int64) value.Value {
	a, aok := isConstInt(x)
	b, bok := isConstInt(y)
	if !aok || !bok {
		return nil
	}
	return constant.NewInt(types.I32, int64(int32(f(a, b))))
}

func foldArithDiv(x, y value.Value) value.Value {
	a, aok := isConstInt(x)
	b, bok := isConstInt(y)
	if !aok || !bok || b == 0 {
		return nil
	}
	return constant.NewInt(types.I32, int64(int32(a/b)))
}

func foldArithRem(x, y value.Value) value.Value {
	a, aok := isConstInt(x)
	b, bok := isConstInt(y)
	if !aok || !bok || b == 0 {
		return nil
	}
	return constant.NewInt(types.I32, int64(int32(a%b)))
}

// conditionalPass is pass 2: constant-fold comparisons, fold reflexive
// comparisons (x < x, x == x, ...), and replace a cond terminator whose
// condition is now a boolean constant with an unconditional branch.
type conditionalPass struct{}

func (conditionalPass) Name() string { return "conditional" }

func (conditionalPass) Run(p *irgen.Program) bool {
	changed := false
	for _, fn := range allFuncs(p) {
		for _, b := range fn.Blocks {
			for _, inst := range append([]ir.Instruction(nil), b.Insts...) {
				if foldComparison(fn, b, inst) {
					changed = true
				}
			}
			if foldCondBranch(b) {
				changed = true
			}
		}
	}
	return changed
}

func foldComparison(fn *ir.Func, b *ir.Block, inst ir.Instruction) bool {
	cmp, ok := inst.(*ir.InstICmp)
	if !ok {
		return false
	}
	var result value.Value
	if cmp.X == cmp.Y {
		switch cmp.Pred {
		case enum.IPredEQ, enum.IPredSLE, enum.IPredSGE:
			result = constant.True
		case enum.IPredNE, enum.IPredSLT, enum.IPredSGT:
			result = constant.False
		}
	} else if a, aok := isConstInt(cmp.X); aok {
		if c, cok := isConstInt(cmp.Y); cok {
			result = constant.NewBool(evalPred(cmp.Pred, a, c))
		}
	}
	if result == nil {
		return false
	}
	replaceAllUses(fn, inst, result)
	eraseInst(b, inst)
	return true
}

func evalPred(pred enum.IPred, a, c int64) bool {
	switch pred {
	case enum.IPredEQ:
		return a == c
	case enum.IPredNE:
		return a != c
	case enum.IPredSLT:
		return a < c
	case enum.IPredSLE:
		return a <= c
	case enum.IPredSGT:
		return a > c
	case enum.IPredSGE:
		return a >= c
	default:
		return false
	}
}

// foldCondBranch collapses a CondBr with a constant condition to an
// unconditional Br to the live successor; the other successor becomes
// unreachable and is pruned by the control-flow pass.
func foldCondBranch(b *ir.Block) bool {
	cb, ok := b.Term.(*ir.TermCondBr)
	if !ok {
		return false
	}
	c, ok := cb.Cond.(*constant.Int)
	if !ok {
		return false
	}
	if c.X.Int64() != 0 {
		b.Term = ir.NewBr(cb.TargetTrue)
	} else {
		b.Term = ir.NewBr(cb.TargetFalse)
	}
	return true
}
