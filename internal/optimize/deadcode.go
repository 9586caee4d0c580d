package optimize

import (
	"github.com/llir/llvm/ir"

	"github.com/minijava-lang/minijava/internal/irgen"
)

// unusedMethodPass is pass 6: any method other than the entry point with
// no incoming call edge is deleted.
type unusedMethodPass struct{}

func (unusedMethodPass) Name() string { return "unused-method" }

func (unusedMethodPass) Run(p *irgen.Program) bool {
	called := make(map[*ir.Func]bool)
	for _, fn := range allFuncs(p) {
		for _, b := range fn.Blocks {
			for _, inst := range b.Insts {
				if call, ok := inst.(*ir.InstCall); ok {
					if callee, ok := call.Callee.(*ir.Func); ok {
						called[callee] = true
					}
				}
			}
		}
	}

	changed := false
	for id, fn := range p.Methods {
		if fn == p.Main || called[fn] {
			continue
		}
		delete(p.Methods, id)
		removeFuncFromModule(p, fn)
		changed = true
	}
	return changed
}

func removeFuncFromModule(p *irgen.Program, fn *ir.Func) {
	funcs := p.Module.Funcs[:0]
	for _, f := range p.Module.Funcs {
		if f != fn {
			funcs = append(funcs, f)
		}
	}
	p.Module.Funcs = funcs
}

// unusedParametersPass is pass 7, deliberately left incomplete: it only
// computes which parameters are stored to but never loaded from (i.e.
// never read by the method body) and discards that result; it never
// rewrites the method's type or call sites, since doing
// so safely requires cloning the graph and updating every caller
// atomically. Detecting-but-not-rewriting never changes the program, so
// this pass always reports no change.
type unusedParametersPass struct{}

func (unusedParametersPass) Name() string { return "unused-parameters" }

func (unusedParametersPass) Run(p *irgen.Program) bool {
	for _, fn := range allFuncs(p) {
		unusedParams(fn)
	}
	return false
}

// unusedParams returns the indices (0 = receiver) of parameters whose
// stack slot is stored to in the prologue but never loaded anywhere in
// the function body.
func unusedParams(fn *ir.Func) []int {
	if len(fn.Blocks) == 0 {
		return nil
	}
	entry := fn.Blocks[0]
	slots, _ := paramAllocas(entry, fn)

	loaded := make(map[*ir.InstAlloca]bool)
	for _, b := range fn.Blocks {
		for _, inst := range b.Insts {
			if load, ok := inst.(*ir.InstLoad); ok {
				if alloca, ok := load.Src.(*ir.InstAlloca); ok {
					loaded[alloca] = true
				}
			}
		}
	}

	var unused []int
	for i, slot := range slots {
		if !loaded[slot] {
			unused = append(unused, i+1) // +1: index 0 is the receiver, never unused here
		}
	}
	return unused
}
