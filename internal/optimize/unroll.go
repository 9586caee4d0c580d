package optimize

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/value"

	"github.com/minijava-lang/minijava/internal/irgen"
)

// loopUnrollPass is pass 9. internal/irgen keeps loop-carried state in a
// stack slot rather than a φ-node (every local stays alloca'd), so the
// classic φ-based unrolling shape is adapted here to the equivalent
// memory-based shape lowerWhile actually produces: a header block that
// loads the counter slot and compares it against a constant bound, and a
// body block that loads the same slot, applies a constant step, and
// stores it back before branching to the header. Bounds: trip count <=
// 10, body size <= 200 instructions, <= 20 branch-carrying blocks.
type loopUnrollPass struct{}

func (loopUnrollPass) Name() string { return "loop-unroll" }

const (
	maxTripCount   = 10
	maxLoopBlocks  = 20
	maxLoopInsts   = 200
)

func (loopUnrollPass) Run(p *irgen.Program) bool {
	changed := false
	for _, fn := range allFuncs(p) {
		if unrollLoops(fn) {
			changed = true
		}
	}
	return changed
}

type countedLoop struct {
	header, body, exit *ir.Block
	slot               *ir.InstAlloca
	init, bound, step  int64
	trip               int64
}

func unrollLoops(fn *ir.Func) bool {
	changed := false
	for _, header := range append([]*ir.Block(nil), fn.Blocks...) {
		loop := detectCountedLoop(fn, header)
		if loop == nil {
			continue
		}
		if loop.trip < 0 || loop.trip > maxTripCount {
			continue
		}
		if len(loop.header.Insts)+len(loop.body.Insts) > maxLoopInsts {
			continue // loop detection here is always a 2-block header/body shape, well under the 20-branch bound
		}
		if unrollOnce(fn, loop) {
			changed = true
		}
	}
	return changed
}

// detectCountedLoop recognizes header/body/exit where header compares
// the loaded counter slot against a constant bound and conditionally
// enters body, and body increments the same slot by a constant step
// before branching back to header.
func detectCountedLoop(fn *ir.Func, header *ir.Block) *countedLoop {
	cb, ok := header.Term.(*ir.TermCondBr)
	if !ok {
		return nil
	}
	cmp, slot, bound, swapped := findBoundedCompare(header)
	if cmp == nil {
		return nil
	}
	body, exit := cb.TargetTrue, cb.TargetFalse
	if swapped {
		body, exit = exit, body
	}
	if body == header || exit == header {
		return nil
	}
	br, ok := body.Term.(*ir.TermBr)
	if !ok || br.Target != header {
		return nil
	}
	step, ok := findConstantStep(body, slot)
	if !ok {
		return nil
	}
	init, ok := findInitialValue(fn, header, slot)
	if !ok {
		return nil
	}

	trip := int64(-1)
	if step > 0 && init < bound {
		trip = (bound - init + step - 1) / step
	} else if step < 0 && init > bound {
		trip = (init - bound + (-step) - 1) / (-step)
	}
	return &countedLoop{header: header, body: body, exit: exit, slot: slot, init: init, bound: bound, step: step, trip: trip}
}

func findBoundedCompare(header *ir.Block) (cmp *ir.InstICmp, slot *ir.InstAlloca, bound int64, swapped bool) {
	for _, inst := range header.Insts {
		c, ok := inst.(*ir.InstICmp)
		if !ok || c.Pred != enum.IPredSLT && c.Pred != enum.IPredSLE && c.Pred != enum.IPredSGT && c.Pred != enum.IPredSGE {
			continue
		}
		if load, ok := c.X.(*ir.InstLoad); ok {
			if a, ok := load.Src.(*ir.InstAlloca); ok {
				if b, ok := c.Y.(*constant.Int); ok {
					return c, a, b.X.Int64(), false
				}
			}
		}
	}
	return nil, nil, 0, false
}

func findConstantStep(body *ir.Block, slot *ir.InstAlloca) (int64, bool) {
	for _, inst := range body.Insts {
		store, ok := inst.(*ir.InstStore)
		if !ok || store.Dst != slot {
			continue
		}
		add, ok := store.Src.(*ir.InstAdd)
		if !ok {
			continue
		}
		if load, ok := add.X.(*ir.InstLoad); ok && load.Src == slot {
			if c, ok := add.Y.(*constant.Int); ok {
				return c.X.Int64(), true
			}
		}
	}
	return 0, false
}

func findInitialValue(fn *ir.Func, header *ir.Block, slot *ir.InstAlloca) (int64, bool) {
	for _, b := range fn.Blocks {
		br, ok := b.Term.(*ir.TermBr)
		if !ok || br.Target != header {
			continue
		}
		for _, inst := range b.Insts {
			store, ok := inst.(*ir.InstStore)
			if ok && store.Dst == slot {
				if c, ok := store.Src.(*constant.Int); ok {
					return c.X.Int64(), true
				}
			}
		}
	}
	return 0, false
}

// unrollOnce replaces the header/body pair with `trip` straight-line
// copies of body's non-control instructions followed by a branch to
// exit, since the trip count is now statically known.
func unrollOnce(fn *ir.Func, loop *countedLoop) bool {
	if loop.trip == 0 {
		loop.header.Term = ir.NewBr(loop.exit)
		return true
	}

	cursor := loop.header
	for i := int64(0); i < loop.trip; i++ {
		remap := map[value.Value]value.Value{}
		target := cursor
		if i > 0 {
			target = fn.NewBlock("unroll.body")
			cursor.Term = ir.NewBr(target)
		}
		for _, inst := range loop.body.Insts {
			cloneValueInst(target, inst, remap)
		}
		cursor = target
	}
	cursor.Term = ir.NewBr(loop.exit)
	return true
}

// cloneValueInst materializes inst's equivalent into target, resolving
// operands through remap; allocas are never cloned since the point of an
// unrolled counting loop is to keep reusing the same stack slot every
// iteration.
func cloneValueInst(target *ir.Block, inst ir.Instruction, remap map[value.Value]value.Value) {
	get := func(v value.Value) value.Value {
		if r, ok := remap[v]; ok {
			return r
		}
		return v
	}
	switch n := inst.(type) {
	case *ir.InstAlloca:
		remap[n] = n
	case *ir.InstLoad:
		remap[n] = target.NewLoad(n.ElemType, get(n.Src))
	case *ir.InstStore:
		target.NewStore(get(n.Src), get(n.Dst))
	case *ir.InstAdd:
		remap[n] = target.NewAdd(get(n.X), get(n.Y))
	case *ir.InstSub:
		remap[n] = target.NewSub(get(n.X), get(n.Y))
	case *ir.InstMul:
		remap[n] = target.NewMul(get(n.X), get(n.Y))
	case *ir.InstSDiv:
		remap[n] = target.NewSDiv(get(n.X), get(n.Y))
	case *ir.InstSRem:
		remap[n] = target.NewSRem(get(n.X), get(n.Y))
	case *ir.InstXor:
		remap[n] = target.NewXor(get(n.X), get(n.Y))
	case *ir.InstICmp:
		remap[n] = target.NewICmp(n.Pred, get(n.X), get(n.Y))
	case *ir.InstCall:
		args := make([]value.Value, len(n.Args))
		for i, a := range n.Args {
			args[i] = get(a)
		}
		remap[n] = target.NewCall(n.Callee, args...)
	case *ir.InstGetElementPtr:
		indices := make([]value.Value, len(n.Indices))
		for i, idx := range n.Indices {
			indices[i] = get(idx)
		}
		remap[n] = target.NewGetElementPtr(n.ElemType, get(n.Src), indices...)
	case *ir.InstBitCast:
		remap[n] = target.NewBitCast(get(n.From), n.To)
	case *ir.InstSExt:
		remap[n] = target.NewSExt(get(n.From), n.To)
	}
}
