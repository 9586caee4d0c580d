package semantic

import (
	"testing"

	"github.com/minijava-lang/minijava/internal/ast"
	"github.com/minijava-lang/minijava/internal/errors"
	"github.com/minijava-lang/minijava/internal/lexer"
	"github.com/minijava-lang/minijava/internal/parser"
	"github.com/minijava-lang/minijava/internal/symtab"
)

func parseAndCheck(t *testing.T, source string) (*ast.Program, *Info, error) {
	t.Helper()
	pool, builtins := symtab.NewWithBuiltins()
	lex := lexer.New(source, pool)
	p := parser.New(lex, ast.NewFactory(), pool)
	program := p.ParseProgram()
	info, err := Check(program, pool, builtins)
	return program, info, err
}

func assertChecks(t *testing.T, source string) *Info {
	t.Helper()
	_, info, err := parseAndCheck(t, source)
	if err != nil {
		t.Fatalf("Check(%q): unexpected error: %v", source, err)
	}
	return info
}

func assertSemanticError(t *testing.T, source string) {
	t.Helper()
	_, _, err := parseAndCheck(t, source)
	se, ok := err.(*errors.SourceError)
	if !ok {
		t.Fatalf("Check(%q): expected a semantic error, got %v", source, err)
	}
	if se.Stage != errors.Semantic {
		t.Fatalf("Check(%q): stage = %v, want Semantic", source, se.Stage)
	}
}

const fibonacciSource = `
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

func TestChecksFibonacci(t *testing.T) {
	assertChecks(t, fibonacciSource)
}

func TestDuplicateClassIsSemanticError(t *testing.T) {
	source := `
class Dup {}
class Dup {}
class Main {
	public static void main(String[] args) {}
}
`
	assertSemanticError(t, source)
}

func TestDuplicateFieldIsSemanticError(t *testing.T) {
	source := `
class Box {
	public int value;
	public int value;
}
class Main {
	public static void main(String[] args) {}
}
`
	assertSemanticError(t, source)
}

func TestUndefinedVariableIsSemanticError(t *testing.T) {
	source := `
class Main {
	public static void main(String[] args) {
		System.out.println(missing);
	}
}
`
	assertSemanticError(t, source)
}

func TestTypeMismatchOnAssignmentIsSemanticError(t *testing.T) {
	source := `
class Main {
	public static void main(String[] args) {
		boolean b;
		b = 1;
	}
}
`
	assertSemanticError(t, source)
}

func TestArithmeticRequiresIntOperands(t *testing.T) {
	source := `
class Main {
	public static void main(String[] args) {
		boolean b;
		b = true;
		System.out.println(b + 1);
	}
}
`
	assertSemanticError(t, source)
}

func TestConstantFoldingAnnotatesAdditiveExpression(t *testing.T) {
	source := `
class Main {
	public static void main(String[] args) {
		System.out.println(1 + 2 * 3);
	}
}
`
	program, info, err := parseAndCheck(t, source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	class := program.Classes[0]
	call := class.MainMethods[0].Body.Statements[0].(*ast.ExpressionStmt).Expr.(*ast.MethodInvocation)
	arg := call.Arguments[0]
	if folded, ok := info.ConstAnnotations[arg.ID()]; !ok || folded != 7 {
		t.Fatalf("ConstAnnotations[arg] = (%v, %v), want (7, true)", folded, ok)
	}
}

func TestAnalysisIsDeterministic(t *testing.T) {
	_, first, err1 := parseAndCheck(t, fibonacciSource)
	_, second, err2 := parseAndCheck(t, fibonacciSource)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if len(first.ClassDefinitions) != len(second.ClassDefinitions) {
		t.Fatalf("class definition counts differ across runs: %d vs %d",
			len(first.ClassDefinitions), len(second.ClassDefinitions))
	}
}

func TestMissingReturnIsSemanticError(t *testing.T) {
	source := `
class Box {
	public int value() {
	}
}
class Main {
	public static void main(String[] args) {}
}
`
	assertSemanticError(t, source)
}
