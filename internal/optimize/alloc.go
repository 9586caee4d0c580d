package optimize

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"

	"github.com/minijava-lang/minijava/internal/irgen"
)

// staticAllocationPass is pass 8 ("gc"): a call to mj_runtime_allocate
// whose result (possibly after a bitcast) is only ever used as the
// address field-store instructions write through is dead, since nothing
// ever reads the object back. The result is conservatively kept live the
// instant it escapes into a load, a call argument, a reference
// comparison, or gets stored itself as a value (rather than used as a
// store's destination).
type staticAllocationPass struct{}

func (staticAllocationPass) Name() string { return "static-allocation" }

func (staticAllocationPass) Run(p *irgen.Program) bool {
	changed := false
	allocate := p.Builtins["mj_runtime_allocate"]
	for _, fn := range allFuncs(p) {
		for _, b := range fn.Blocks {
			for _, inst := range append([]ir.Instruction(nil), b.Insts...) {
				call, ok := inst.(*ir.InstCall)
				if !ok || call.Callee != allocate {
					continue
				}
				if eliminateDeadAllocation(fn, call) {
					changed = true
				}
			}
		}
	}
	return changed
}

// eliminateDeadAllocation checks whether call's result is used for
// nothing but field stores, and if so removes it, every GEP derived from
// it, every store through one of those GEPs, and the call itself.
func eliminateDeadAllocation(fn *ir.Func, call *ir.InstCall) bool {
	derived := map[value.Value]bool{call: true}
	growDerived(fn, derived)

	dead := map[ir.Instruction]bool{call: true}
	for v := range derived {
		if inst, ok := v.(ir.Instruction); ok && inst != call {
			dead[inst] = true
		}
	}

	for _, b := range fn.Blocks {
		for _, inst := range b.Insts {
			if !pureFieldStoreUser(inst, derived, dead) {
				return false
			}
		}
		if escapesViaTerm(b.Term, derived) {
			return false
		}
	}

	for _, b := range fn.Blocks {
		kept := b.Insts[:0]
		for _, inst := range b.Insts {
			if store, ok := inst.(*ir.InstStore); ok && derived[store.Dst] {
				continue // a store through the dead object
			}
			if !dead[inst] {
				kept = append(kept, inst)
			}
		}
		b.Insts = kept
	}
	return true
}

// growDerived extends derived with every BitCast and GetElementPtr whose
// source address traces back to a value already in derived, to a fixed
// point.
func growDerived(fn *ir.Func, derived map[value.Value]bool) {
	for {
		added := false
		for _, b := range fn.Blocks {
			for _, inst := range b.Insts {
				switch n := inst.(type) {
				case *ir.InstBitCast:
					if derived[n.From] && !derived[n] {
						derived[n] = true
						added = true
					}
				case *ir.InstGetElementPtr:
					if derived[n.Src] && !derived[n] {
						derived[n] = true
						added = true
					}
				}
			}
		}
		if !added {
			return
		}
	}
}

// pureFieldStoreUser reports whether inst is either irrelevant to
// derived, or a permitted use: a BitCast/GEP already folded into derived
// (handled, so dead), or a Store whose Dst (not Src) is in derived.
func pureFieldStoreUser(inst ir.Instruction, derived map[value.Value]bool, dead map[ir.Instruction]bool) bool {
	if dead[inst] {
		return true
	}
	store, ok := inst.(*ir.InstStore)
	if !ok {
		return !referencesAny(inst, derived)
	}
	if derived[store.Src] {
		return false // storing the pointer itself elsewhere: it escapes
	}
	return true // storing through a derived address is the allowed case, even if Dst isn't in derived (plain fields)
}

// referencesAny reports whether inst reads any value in derived anywhere
// other than as a store destination (loads, call arguments, returned
// values all disqualify elimination).
func referencesAny(inst ir.Instruction, derived map[value.Value]bool) bool {
	switch n := inst.(type) {
	case *ir.InstLoad:
		return derived[n.Src]
	case *ir.InstCall:
		for _, a := range n.Args {
			if derived[a] {
				return true
			}
		}
		return derived[n.Callee]
	case *ir.InstICmp:
		return derived[n.X] || derived[n.Y] // reference equality (==, !=) reads the pointer
	case *ir.InstAdd, *ir.InstSub, *ir.InstMul, *ir.InstSDiv, *ir.InstSRem, *ir.InstXor, *ir.InstSExt, *ir.InstPhi:
		return false // MiniJava never feeds an object pointer into arithmetic
	default:
		return false
	}
}

func escapesViaTerm(term ir.Terminator, derived map[value.Value]bool) bool {
	ret, ok := term.(*ir.TermRet)
	return ok && ret.X != nil && derived[ret.X]
}
