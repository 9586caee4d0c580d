package optimize

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"

	"github.com/minijava-lang/minijava/internal/ast"
	"github.com/minijava-lang/minijava/internal/irgen"
	"github.com/minijava-lang/minijava/internal/lexer"
	"github.com/minijava-lang/minijava/internal/parser"
	"github.com/minijava-lang/minijava/internal/semantic"
	"github.com/minijava-lang/minijava/internal/symtab"
)

func buildProgram(t *testing.T, source string) *irgen.Program {
	t.Helper()
	pool, builtins := symtab.NewWithBuiltins()
	lex := lexer.New(source, pool)
	p := parser.New(lex, ast.NewFactory(), pool)
	program := p.ParseProgram()
	info, err := semantic.Check(program, pool, builtins)
	if err != nil {
		t.Fatalf("semantic.Check: unexpected error: %v", err)
	}
	built, err := irgen.Build(program, info)
	if err != nil {
		t.Fatalf("irgen.Build: unexpected error: %v", err)
	}
	return built
}

func countCallsTo(p *irgen.Program, callee *ir.Func) int {
	n := 0
	for _, fn := range allFuncs(p) {
		for _, b := range fn.Blocks {
			for _, inst := range b.Insts {
				if call, ok := inst.(*ir.InstCall); ok && call.Callee == callee {
					n++
				}
			}
		}
	}
	return n
}

func TestRunConvergesUnderMaxRounds(t *testing.T) {
	built := buildProgram(t, `
class Main {
	public static void main(String[] args) {
		System.out.println(1 + 2 * 3);
	}
}
`)
	rounds := Run(built)
	if rounds >= MaxRounds {
		t.Fatalf("optimizer did not converge within %d rounds", MaxRounds)
	}
}

func TestConstantFoldingSimplifiesArithmetic(t *testing.T) {
	built := buildProgram(t, `
class Main {
	public static void main(String[] args) {
		System.out.println(1 + 2 * 3);
	}
}
`)
	Run(built)
	for _, b := range built.Main.Blocks {
		for _, inst := range b.Insts {
			if call, ok := inst.(*ir.InstCall); ok && call.Callee == built.Builtins["mj_runtime_println"] {
				arg, ok := call.Args[0].(*constant.Int)
				if !ok {
					t.Fatalf("println argument is not a folded constant: %#v", call.Args[0])
				}
				if arg.X.Int64() != 7 {
					t.Errorf("folded constant = %d, want 7", arg.X.Int64())
				}
				return
			}
		}
	}
	t.Fatal("no call to println found after optimization")
}

func TestUnusedMethodIsEliminated(t *testing.T) {
	built := buildProgram(t, `
class Helper {
	public int unused() { return 1; }
}
class Main {
	public static void main(String[] args) {
		System.out.println(0);
	}
}
`)
	Run(built)
	if len(built.Methods) != 0 {
		t.Errorf("expected the unused method to be eliminated, got %d methods remaining", len(built.Methods))
	}
}

func TestCalledMethodSurvives(t *testing.T) {
	built := buildProgram(t, `
class Helper {
	public int used() { return 1; }
}
class Main {
	public static void main(String[] args) {
		Helper h;
		h = new Helper();
		System.out.println(h.used());
	}
}
`)
	Run(built)
	if len(built.Methods) != 1 {
		t.Errorf("expected the called method to survive, got %d methods remaining", len(built.Methods))
	}
}

func TestStaticAllocationEliminatedWhenNeverRead(t *testing.T) {
	built := buildProgram(t, `
class Box {
	public int value;
}
class Main {
	public static void main(String[] args) {
		new Box();
	}
}
`)
	allocate := built.Builtins["mj_runtime_allocate"]
	before := countCallsTo(built, allocate)
	if before == 0 {
		t.Fatal("expected at least one allocation call before optimization")
	}
	Run(built)
	after := countCallsTo(built, allocate)
	if after != 0 {
		t.Errorf("expected the dead allocation to be eliminated, %d calls remain", after)
	}
}

func TestStaticAllocationKeptWhenResultEscapes(t *testing.T) {
	built := buildProgram(t, `
class Box {
	public int value;
	public int get() { return value; }
}
class Main {
	public static void main(String[] args) {
		Box b;
		b = new Box();
		System.out.println(b.get());
	}
}
`)
	allocate := built.Builtins["mj_runtime_allocate"]
	Run(built)
	if countCallsTo(built, allocate) == 0 {
		t.Error("allocation feeding a live method call must not be eliminated")
	}
}

func TestBoundedLoopIsUnrolled(t *testing.T) {
	built := buildProgram(t, `
class Main {
	public static void main(String[] args) {
		int i;
		i = 0;
		while (i < 5) {
			System.out.println(i);
			i = i + 1;
		}
	}
}
`)
	println_ := built.Builtins["mj_runtime_println"]
	Run(built)
	calls := countCallsTo(built, println_)
	if calls != 5 {
		t.Errorf("unrolled loop should leave 5 println calls, got %d", calls)
	}
}

func TestRecursiveMethodStillHasSelfCall(t *testing.T) {
	built := buildProgram(t, `
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
`)
	Run(built)
	if len(built.Methods) != 1 {
		t.Fatalf("got %d methods, want 1", len(built.Methods))
	}
	for _, fn := range built.Methods {
		selfCalls := 0
		for _, b := range fn.Blocks {
			for _, inst := range b.Insts {
				if call, ok := inst.(*ir.InstCall); ok && call.Callee == fn {
					selfCalls++
				}
			}
		}
		if selfCalls == 0 {
			t.Errorf("%s no longer calls itself after optimization", fn.Name())
		}
	}
}
