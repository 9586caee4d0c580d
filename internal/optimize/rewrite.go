package optimize

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// replaceAllUses rewrites every operand of every instruction and
// terminator in fn that points at old to point at repl instead. This
// plays the role a graph library's "replace node" primitive would; since
// internal/irgen only ever emits the instruction kinds switched over
// below, the set here is closed and exhaustive for this compiler's own
// output.
func replaceAllUses(fn *ir.Func, old, repl value.Value) {
	for _, b := range fn.Blocks {
		insts := b.Insts[:0]
		for _, inst := range b.Insts {
			rewriteInstOperands(inst, old, repl)
			insts = append(insts, inst)
		}
		b.Insts = insts
		rewriteTermOperands(b.Term, old, repl)
	}
}

func rewriteInstOperands(inst ir.Instruction, old, repl value.Value) {
	switch n := inst.(type) {
	case *ir.InstAdd:
		n.X, n.Y = sub2(n.X, n.Y, old, repl)
	case *ir.InstSub:
		n.X, n.Y = sub2(n.X, n.Y, old, repl)
	case *ir.InstMul:
		n.X, n.Y = sub2(n.X, n.Y, old, repl)
	case *ir.InstSDiv:
		n.X, n.Y = sub2(n.X, n.Y, old, repl)
	case *ir.InstSRem:
		n.X, n.Y = sub2(n.X, n.Y, old, repl)
	case *ir.InstXor:
		n.X, n.Y = sub2(n.X, n.Y, old, repl)
	case *ir.InstICmp:
		n.X, n.Y = sub2(n.X, n.Y, old, repl)
	case *ir.InstStore:
		n.Src = sub1(n.Src, old, repl)
		n.Dst = sub1(n.Dst, old, repl)
	case *ir.InstLoad:
		n.Src = sub1(n.Src, old, repl)
	case *ir.InstCall:
		n.Callee = sub1(n.Callee, old, repl)
		for i, a := range n.Args {
			n.Args[i] = sub1(a, old, repl)
		}
	case *ir.InstGetElementPtr:
		n.Src = sub1(n.Src, old, repl)
		for i, idx := range n.Indices {
			n.Indices[i] = sub1(idx, old, repl)
		}
	case *ir.InstBitCast:
		n.From = sub1(n.From, old, repl)
	case *ir.InstSExt:
		n.From = sub1(n.From, old, repl)
	case *ir.InstPhi:
		for _, inc := range n.Incs {
			inc.X = sub1(inc.X, old, repl)
		}
	}
}

func rewriteTermOperands(term ir.Terminator, old, repl value.Value) {
	switch n := term.(type) {
	case *ir.TermRet:
		if n.X != nil {
			n.X = sub1(n.X, old, repl)
		}
	case *ir.TermCondBr:
		n.Cond = sub1(n.Cond, old, repl)
	}
}

func sub1(v, old, repl value.Value) value.Value {
	if v == old {
		return repl
	}
	return v
}

func sub2(x, y, old, repl value.Value) (value.Value, value.Value) {
	return sub1(x, old, repl), sub1(y, old, repl)
}

// eraseInst drops inst from its block; the caller is responsible for
// having already rewired every use away from it via replaceAllUses.
func eraseInst(b *ir.Block, inst ir.Instruction) {
	out := b.Insts[:0]
	for _, in := range b.Insts {
		if in != inst {
			out = append(out, in)
		}
	}
	b.Insts = out
}
