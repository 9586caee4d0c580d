// Package irgen lowers a semantically-checked program into LLVM IR using
// github.com/llir/llvm as the graph/module library, rather than
// hand-rolling a node/edge arena. It implements the `irg/`-style mangling
// and builtins-map scheme chosen as the more complete of two candidate
// lowering designs.
package irgen

import (
	"fmt"

	"github.com/minijava-lang/minijava/internal/symtab"
)

// MangleClass returns the linker name of class C.
func MangleClass(class symtab.Symbol) string {
	c := class.Text()
	return fmt.Sprintf("Mj_%s_c%d", c, len(c))
}

// MangleField returns the linker name of field F declared in class C.
func MangleField(class, field symtab.Symbol) string {
	c, f := class.Text(), field.Text()
	return fmt.Sprintf("Mj_%s_c%d_%s_f%d", c, len(c), f, len(f))
}

// MangleMethod returns the linker name of method M declared in class C.
func MangleMethod(class, method symtab.Symbol) string {
	c, m := class.Text(), method.Text()
	return fmt.Sprintf("Mj_%s_c%d_%s_m%d", c, len(c), m, len(m))
}

// MangleLocal returns the SSA register name of local variable v.
func MangleLocal(v symtab.Symbol) string {
	name := v.Text()
	return fmt.Sprintf("mj_%s_v%d", name, len(name))
}

// MainLinkerName is the fixed, unmangled entry point the runtime's `main`
// calls.
const MainLinkerName = "minijava_main"
