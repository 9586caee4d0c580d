package optimize

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"

	"github.com/minijava-lang/minijava/internal/irgen"
)

// loadStorePass is pass 3 of the pipeline: a local peephole over pairs of
// memory operations addressing the same location within a block.
// Cross-block aliasing is conservatively left alone since this compiler
// never hoists loads or stores across block boundaries in irgen.
type loadStorePass struct{}

func (loadStorePass) Name() string { return "load-store" }

func (loadStorePass) Run(p *irgen.Program) bool {
	changed := false
	for _, fn := range allFuncs(p) {
		for _, b := range fn.Blocks {
			if peepholeBlock(fn, b) {
				changed = true
			}
		}
	}
	return changed
}

// peepholeBlock tracks, per address (by pointer identity — the scratch
// slot this pass owns for the block), the last value known to live
// there, applying four rules: load-after-load reuses the first load;
// load-after-store reuses the stored value; store-after-store drops the
// first store; store of a value just loaded from the same location is a
// no-op.
func peepholeBlock(fn *ir.Func, b *ir.Block) bool {
	changed := false
	known := make(map[value.Value]value.Value)
	lastStore := make(map[value.Value]*ir.InstStore)
	dead := make(map[ir.Instruction]bool)

	original := append([]ir.Instruction(nil), b.Insts...)
	for _, inst := range original {
		switch n := inst.(type) {
		case *ir.InstLoad:
			if v, ok := known[n.Src]; ok {
				replaceAllUses(fn, n, v)
				dead[n] = true
				changed = true
				continue
			}
			known[n.Src] = n
		case *ir.InstStore:
			if v, ok := known[n.Dst]; ok && v == n.Src {
				dead[n] = true
				changed = true
				continue // storing back the value just read/stored there: no-op
			}
			if prev, ok := lastStore[n.Dst]; ok {
				dead[prev] = true
				changed = true
			}
			known[n.Dst] = n.Src
			lastStore[n.Dst] = n
		case *ir.InstCall:
			// A call may observe or mutate memory through an escaped
			// pointer; conservatively forget everything we thought we knew.
			known = make(map[value.Value]value.Value)
			lastStore = make(map[value.Value]*ir.InstStore)
		}
	}

	if len(dead) == 0 {
		return changed
	}
	kept := b.Insts[:0]
	for _, inst := range original {
		if !dead[inst] {
			kept = append(kept, inst)
		}
	}
	b.Insts = kept
	return changed
}
