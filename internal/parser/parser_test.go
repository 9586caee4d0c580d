package parser

import (
	"fmt"
	"testing"

	"github.com/minijava-lang/minijava/internal/ast"
	"github.com/minijava-lang/minijava/internal/errors"
	"github.com/minijava-lang/minijava/internal/lexer"
	"github.com/minijava-lang/minijava/internal/symtab"
)

// parseString parses source and converts a panic into an error, mirroring
// how the CLI and semantic analyzer both recover at their boundaries.
func parseString(source string) (program *ast.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if se, ok := r.(*errors.SourceError); ok {
				err = se
				return
			}
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()
	pool := symtab.New()
	lex := lexer.New(source, pool)
	p := New(lex, ast.NewFactory(), pool)
	program = p.ParseProgram()
	return
}

func assertParses(t *testing.T, source string) *ast.Program {
	t.Helper()
	program, err := parseString(source)
	if err != nil {
		t.Fatalf("parseString(%q): unexpected error: %v", source, err)
	}
	return program
}

func assertSyntaxError(t *testing.T, source string) {
	t.Helper()
	_, err := parseString(source)
	se, ok := err.(*errors.SourceError)
	if !ok {
		t.Fatalf("parseString(%q): expected a syntax error, got %v", source, err)
	}
	if se.Stage != errors.Syntax {
		t.Fatalf("parseString(%q): stage = %v, want Syntax", source, se.Stage)
	}
}

const helloWorld = `
class Main {
	public static void main(String[] args) {
		System.out.println(42);
	}
}
`

func TestParsesMinimalProgram(t *testing.T) {
	program := assertParses(t, helloWorld)
	if len(program.Classes) != 1 {
		t.Fatalf("got %d classes, want 1", len(program.Classes))
	}
	class := program.Classes[0]
	if class.Name.Text() != "Main" {
		t.Errorf("class name = %q, want Main", class.Name.Text())
	}
	if len(class.MainMethods) != 1 {
		t.Fatalf("got %d main methods, want 1", len(class.MainMethods))
	}
}

func TestParsesFieldsAndMethods(t *testing.T) {
	source := `
class Counter {
	public int value;
	public boolean done;
	public int next() {
		return value;
	}
}
class Main {
	public static void main(String[] args) {}
}
`
	program := assertParses(t, source)
	counter := program.Classes[0]
	if len(counter.Fields) != 2 {
		t.Fatalf("got %d fields, want 2", len(counter.Fields))
	}
	if len(counter.InstanceMethods) != 1 {
		t.Fatalf("got %d methods, want 1", len(counter.InstanceMethods))
	}
	m := counter.InstanceMethods[0]
	if m.Name.Text() != "next" {
		t.Errorf("method name = %q, want next", m.Name.Text())
	}
}

func TestExpressionPrecedence(t *testing.T) {
	source := `
class Main {
	public static void main(String[] args) {
		System.out.println(1 + 2 * 3);
	}
}
`
	program := assertParses(t, source)
	printed := ast.Print(program)
	if !containsSubstring(printed, "1 + (2 * 3)") {
		t.Errorf("Print output %q does not show 2*3 binding tighter than +", printed)
	}
}

func TestArrayTypesAndAccess(t *testing.T) {
	source := `
class Main {
	public static void main(String[] args) {
		int[] xs;
		xs = new int[10];
		System.out.println(xs[0]);
	}
}
`
	assertParses(t, source)
}

func TestObjectInstantiationAndMethodCalls(t *testing.T) {
	source := `
class Widget {
	public int size() { return 1; }
}
class Main {
	public static void main(String[] args) {
		Widget w;
		w = new Widget();
		System.out.println(w.size());
	}
}
`
	assertParses(t, source)
}

func TestControlFlow(t *testing.T) {
	source := `
class Main {
	public static void main(String[] args) {
		int i;
		i = 0;
		while (i < 10) {
			if (i == 5) {
				System.out.println(i);
			} else {
				i = i + 1;
			}
		}
	}
}
`
	assertParses(t, source)
}

func TestSyntaxErrors(t *testing.T) {
	tests := []string{
		"class {}",               // missing class name
		"class Main { int x }",   // missing 'public' and semicolon
		"class Main { public void f( {} }",
		"class Main { public static void main(String[] args) { return }",
	}
	for _, source := range tests {
		t.Run(source, func(t *testing.T) { assertSyntaxError(t, source) })
	}
}

func TestLogicalOperatorsParse(t *testing.T) {
	source := `
class Main {
	public static void main(String[] args) {
		boolean b;
		b = true && false || !true;
	}
}
`
	assertParses(t, source)
}

func TestNegativeIntegerLiteralFolding(t *testing.T) {
	source := `
class Main {
	public static void main(String[] args) {
		System.out.println(-5);
	}
}
`
	program := assertParses(t, source)
	printed := ast.Print(program)
	if !containsSubstring(printed, "-5") {
		t.Errorf("expected negative literal to print as -5, got %q", printed)
	}
}

func containsSubstring(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
