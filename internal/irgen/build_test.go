package irgen

import (
	"testing"

	"github.com/llir/llvm/ir"

	"github.com/minijava-lang/minijava/internal/ast"
	"github.com/minijava-lang/minijava/internal/lexer"
	"github.com/minijava-lang/minijava/internal/parser"
	"github.com/minijava-lang/minijava/internal/semantic"
	"github.com/minijava-lang/minijava/internal/symtab"
)

func buildProgram(t *testing.T, source string) *Program {
	t.Helper()
	pool, builtins := symtab.NewWithBuiltins()
	lex := lexer.New(source, pool)
	p := parser.New(lex, ast.NewFactory(), pool)
	program := p.ParseProgram()
	info, err := semantic.Check(program, pool, builtins)
	if err != nil {
		t.Fatalf("semantic.Check: unexpected error: %v", err)
	}
	built, err := Build(program, info)
	if err != nil {
		t.Fatalf("Build: unexpected error: %v", err)
	}
	return built
}

const helloWorld = `
class Main {
	public static void main(String[] args) {
		System.out.println(42);
	}
}
`

func TestBuildRegistersRuntimeExterns(t *testing.T) {
	built := buildProgram(t, helloWorld)
	if built.Builtins["mj_runtime_allocate"] == nil {
		t.Error("mj_runtime_allocate was not registered")
	}
	if built.Builtins["mj_runtime_println"] == nil {
		t.Error("mj_runtime_println was not registered")
	}
}

func TestBuildProducesMainFunction(t *testing.T) {
	built := buildProgram(t, helloWorld)
	if built.Main == nil {
		t.Fatal("Main was not set")
	}
	if built.Main.Name() != MainLinkerName {
		t.Errorf("Main.Name() = %q, want %q", built.Main.Name(), MainLinkerName)
	}
	if len(built.Main.Blocks) == 0 {
		t.Fatal("main function has no basic blocks")
	}
}

func TestBuildLowersPrintlnToRuntimeCall(t *testing.T) {
	built := buildProgram(t, helloWorld)
	found := false
	for _, b := range built.Main.Blocks {
		for _, inst := range b.Insts {
			if call, ok := inst.(*ir.InstCall); ok && call.Callee == built.Builtins["mj_runtime_println"] {
				found = true
			}
		}
	}
	if !found {
		t.Error("main never calls mj_runtime_println")
	}
}

func TestBuildLaysOutFieldsInDeclarationOrder(t *testing.T) {
	source := `
class Point {
	public int x;
	public int y;
}
class Main {
	public static void main(String[] args) {}
}
`
	built := buildProgram(t, source)
	var className symtab.Symbol
	for name := range built.Classes {
		if name.Text() == "Point" {
			className = name
		}
	}
	layout := built.Classes[className]
	if layout == nil {
		t.Fatal("Point class layout missing")
	}
	xSlot, ok := layout.Fields[symtabLookup(built, "x")]
	if !ok {
		t.Fatal("field x missing from layout")
	}
	ySlot, ok := layout.Fields[symtabLookup(built, "y")]
	if !ok {
		t.Fatal("field y missing from layout")
	}
	if xSlot.Index != 0 || ySlot.Index != 1 {
		t.Errorf("field indices = (%d, %d), want (0, 1)", xSlot.Index, ySlot.Index)
	}
}

// symtabLookup finds the interned symbol whose text matches name among
// built's class field keys; the pool used to build built is not exposed
// directly, so this scans the layouts already present.
func symtabLookup(built *Program, name string) symtab.Symbol {
	for _, layout := range built.Classes {
		for sym := range layout.Fields {
			if sym.Text() == name {
				return sym
			}
		}
	}
	return symtab.Symbol{}
}

func TestBuildDeclaresOneFunctionPerInstanceMethod(t *testing.T) {
	source := `
class Fib {
	public int compute(int n) {
		if (n < 2) {
			return n;
		} else {
			return this.compute(n - 1) + this.compute(n - 2);
		}
	}
}
class Main {
	public static void main(String[] args) {
		Fib f;
		f = new Fib();
		System.out.println(f.compute(9));
	}
}
`
	built := buildProgram(t, source)
	if len(built.Methods) != 1 {
		t.Fatalf("got %d methods, want 1", len(built.Methods))
	}
	for _, fn := range built.Methods {
		if fn.Name() == "" {
			t.Error("method function has an empty name")
		}
		if len(fn.Params) != 2 {
			t.Errorf("compute should take (this, n): got %d params", len(fn.Params))
		}
	}
}

func TestEmptyClassGetsSyntheticField(t *testing.T) {
	source := `
class Empty {}
class Main {
	public static void main(String[] args) {
		Empty e;
		e = new Empty();
	}
}
`
	built := buildProgram(t, source)
	for name, layout := range built.Classes {
		if name.Text() == "Empty" {
			if len(layout.Record.Fields) != 1 {
				t.Errorf("empty class should get one synthetic field, got %d", len(layout.Record.Fields))
			}
		}
	}
}
