package optimize

import (
	"github.com/llir/llvm/ir"

	"github.com/minijava-lang/minijava/internal/irgen"
)

// controlFlowPass is pass 4: merge single-predecessor blocks that only
// contain jumps and φ-nodes into their predecessor, collapse a CondBr
// whose two successors are identical into a Br, then drop unreachable
// blocks.
type controlFlowPass struct{}

func (controlFlowPass) Name() string { return "control-flow" }

func (controlFlowPass) Run(p *irgen.Program) bool {
	changed := false
	for _, fn := range allFuncs(p) {
		if simplifyFunc(fn) {
			changed = true
		}
	}
	return changed
}

func simplifyFunc(fn *ir.Func) bool {
	changed := false
	if collapseSameTargetCondBr(fn) {
		changed = true
	}
	if mergeRemovableBlocks(fn) {
		changed = true
	}
	if pruneUnreachable(fn) {
		changed = true
	}
	return changed
}

// collapseSameTargetCondBr rewrites `cond c, L, L` to `br L`.
func collapseSameTargetCondBr(fn *ir.Func) bool {
	changed := false
	for _, b := range fn.Blocks {
		if cb, ok := b.Term.(*ir.TermCondBr); ok && cb.TargetTrue == cb.TargetFalse {
			b.Term = ir.NewBr(cb.TargetTrue)
			changed = true
		}
	}
	return changed
}

// isRemovable reports whether b contains nothing but φ-nodes followed by
// an unconditional jump — an empty forwarding block with nothing to lose
// by collapsing it into its successor.
func isRemovable(b *ir.Block) bool {
	br, ok := b.Term.(*ir.TermBr)
	if !ok {
		return false
	}
	_ = br
	for _, inst := range b.Insts {
		if _, ok := inst.(*ir.InstPhi); !ok {
			return false
		}
	}
	return true
}

func predecessors(fn *ir.Func) map[*ir.Block][]*ir.Block {
	preds := make(map[*ir.Block][]*ir.Block)
	for _, b := range fn.Blocks {
		for _, succ := range successors(b) {
			preds[succ] = append(preds[succ], b)
		}
	}
	return preds
}

func successors(b *ir.Block) []*ir.Block {
	switch t := b.Term.(type) {
	case *ir.TermBr:
		return []*ir.Block{t.Target}
	case *ir.TermCondBr:
		return []*ir.Block{t.TargetTrue, t.TargetFalse}
	default:
		return nil
	}
}

// mergeRemovableBlocks folds a removable block with exactly one
// predecessor, when that predecessor ends in an unconditional jump, into
// that predecessor, rewriting φ-inputs in any successor that referenced
// the removed block as a predecessor edge.
func mergeRemovableBlocks(fn *ir.Func) bool {
	changed := false
	preds := predecessors(fn)
	kept := make([]*ir.Block, 0, len(fn.Blocks))
	merged := make(map[*ir.Block]bool)

	for _, b := range fn.Blocks {
		if merged[b] {
			continue
		}
		if isRemovable(b) && len(preds[b]) == 1 {
			pred := preds[b][0]
			if _, predJumps := pred.Term.(*ir.TermBr); predJumps && pred != b {
				target := b.Term.(*ir.TermBr).Target
				pred.Term = ir.NewBr(target)
				for _, succ := range fn.Blocks {
					rewritePhiPredecessor(succ, b, pred)
				}
				merged[b] = true
				changed = true
				continue
			}
		}
		kept = append(kept, b)
	}
	if changed {
		fn.Blocks = kept
	}
	return changed
}

func rewritePhiPredecessor(b, from, to *ir.Block) {
	for _, inst := range b.Insts {
		phi, ok := inst.(*ir.InstPhi)
		if !ok {
			continue
		}
		for _, inc := range phi.Incs {
			if inc.Pred == from {
				inc.Pred = to
			}
		}
	}
}

// pruneUnreachable removes blocks no longer reachable from the entry
// block after merges and cond-collapses above.
func pruneUnreachable(fn *ir.Func) bool {
	if len(fn.Blocks) == 0 {
		return false
	}
	reachable := map[*ir.Block]bool{fn.Blocks[0]: true}
	worklist := []*ir.Block{fn.Blocks[0]}
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, succ := range successors(b) {
			if !reachable[succ] {
				reachable[succ] = true
				worklist = append(worklist, succ)
			}
		}
	}
	if len(reachable) == len(fn.Blocks) {
		return false
	}
	kept := make([]*ir.Block, 0, len(reachable))
	for _, b := range fn.Blocks {
		if reachable[b] {
			kept = append(kept, b)
		}
	}
	fn.Blocks = kept
	return true
}
