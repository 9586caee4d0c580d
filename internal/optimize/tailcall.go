package optimize

import (
	"github.com/llir/llvm/ir"

	"github.com/minijava-lang/minijava/internal/irgen"
)

// tailRecursionPass is pass 5: rewrites a `return` whose value is a
// direct self-call's result into a loop. internal/irgen already keeps
// every declared parameter in a stack slot (see funcBuilder.declareParam),
// so unlike a pure-SSA φ-based rewrite, this pass turns the call's
// arguments into stores back into those slots plus a branch to a loop
// header — no new φ-nodes are needed. Only self-calls that keep the same
// receiver are rewritten; a tail call that also swaps `this` would need
// the receiver to live in a slot too, which it does not here.
type tailRecursionPass struct{}

func (tailRecursionPass) Name() string { return "tail-recursion" }

// tailHeaderCache remembers, per function, the loop header carved out of
// its entry block on first rewrite, so repeated driver rounds don't
// re-split the same entry block.
var tailHeaderCache = map[*ir.Func]*ir.Block{}

func (tailRecursionPass) Run(p *irgen.Program) bool {
	changed := false
	for _, fn := range allFuncs(p) {
		if rewriteTailCalls(fn) {
			changed = true
		}
	}
	return changed
}

func rewriteTailCalls(fn *ir.Func) bool {
	if len(fn.Blocks) == 0 || len(fn.Params) == 0 {
		return false
	}
	entry := fn.Blocks[0]
	paramSlots, prologueLen := paramAllocas(entry, fn)
	if len(paramSlots) == 0 {
		return false // no declared parameters besides the receiver; nothing to loop over
	}

	changed := false
	for _, b := range fn.Blocks {
		if b == entry {
			continue
		}
		ret, ok := b.Term.(*ir.TermRet)
		if !ok || ret.X == nil || len(b.Insts) == 0 {
			continue
		}
		call, ok := b.Insts[len(b.Insts)-1].(*ir.InstCall)
		if !ok || call != ret.X || call.Callee != fn {
			continue
		}
		if len(call.Args) == 0 || call.Args[0] != fn.Params[0] {
			continue // receiver changed; not eligible here
		}

		header := headerFor(fn, entry, prologueLen)
		for i, slot := range paramSlots {
			b.Insts = append(b.Insts, ir.NewStore(call.Args[i+1], slot))
		}
		eraseInst(b, call)
		b.Term = ir.NewBr(header)
		changed = true
	}
	return changed
}

// headerFor returns the block the function's body falls into after its
// parameter-store prologue, splitting entry the first time a tail call
// targets it.
func headerFor(fn *ir.Func, entry *ir.Block, prologueLen int) *ir.Block {
	if h, ok := tailHeaderCache[fn]; ok {
		return h
	}
	header := fn.NewBlock("tailrec.header")
	header.Insts = append(header.Insts, entry.Insts[prologueLen:]...)
	header.Term = entry.Term
	entry.Insts = entry.Insts[:prologueLen]
	entry.Term = ir.NewBr(header)
	tailHeaderCache[fn] = header
	return header
}

// paramAllocas recovers the (alloca, store) prologue funcBuilder.declareParam
// emits for every declared parameter (excluding the receiver, which has no
// slot), returning the allocas in parameter order and the prologue's
// instruction-count length.
func paramAllocas(entry *ir.Block, fn *ir.Func) ([]*ir.InstAlloca, int) {
	declared := len(fn.Params) - 1
	slots := make([]*ir.InstAlloca, 0, declared)
	i := 0
	for len(slots) < declared && i+1 < len(entry.Insts) {
		alloca, ok := entry.Insts[i].(*ir.InstAlloca)
		if !ok {
			break
		}
		store, ok := entry.Insts[i+1].(*ir.InstStore)
		if !ok || store.Dst != alloca {
			break
		}
		slots = append(slots, alloca)
		i += 2
	}
	return slots, i
}
