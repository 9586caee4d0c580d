package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minijava-lang/minijava/internal/errors"
)

const helloWorld = `
class Main {
	public static void main(String[] args) {
		System.out.println(42);
	}
}
`

func writeSource(t *testing.T, source string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "input.java")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestParseArgsRecognizesEveryMode(t *testing.T) {
	modes := map[string]string{
		"--echo":         "echo",
		"--lextest":      "lextest",
		"--parsetest":    "parsetest",
		"--print-ast":    "print-ast",
		"--check":        "check",
		"--compile-firm": "compile-firm",
	}
	for flag, want := range modes {
		cfg, err := parseArgs([]string{flag, "input.java"})
		if err != nil {
			t.Fatalf("parseArgs(%q): unexpected error: %v", flag, err)
		}
		if cfg.mode != want {
			t.Errorf("parseArgs(%q).mode = %q, want %q", flag, cfg.mode, want)
		}
		if cfg.input != "input.java" {
			t.Errorf("parseArgs(%q).input = %q, want input.java", flag, cfg.input)
		}
	}
}

func TestParseArgsDefaultsInputAndOutputToDash(t *testing.T) {
	cfg, err := parseArgs([]string{"--echo"})
	if err != nil {
		t.Fatalf("parseArgs: unexpected error: %v", err)
	}
	if cfg.input != "-" || cfg.output != "-" {
		t.Errorf("got input=%q output=%q, want both -", cfg.input, cfg.output)
	}
}

func TestParseArgsHonorsOutputFlag(t *testing.T) {
	cfg, err := parseArgs([]string{"--compile-firm", "-o", "out.ll", "in.java"})
	if err != nil {
		t.Fatalf("parseArgs: unexpected error: %v", err)
	}
	if cfg.output != "out.ll" {
		t.Errorf("output = %q, want out.ll", cfg.output)
	}
}

func TestParseArgsRejectsDanglingDashO(t *testing.T) {
	if _, err := parseArgs([]string{"--echo", "-o"}); err == nil {
		t.Error("expected an error for -o with no argument")
	}
}

func TestParseArgsRejectsTwoPositionalArguments(t *testing.T) {
	if _, err := parseArgs([]string{"--echo", "a.java", "b.java"}); err == nil {
		t.Error("expected an error for two positional arguments")
	}
}

func TestRunEchoWritesSourceVerbatim(t *testing.T) {
	path := writeSource(t, helloWorld)
	out := filepath.Join(t.TempDir(), "out.txt")
	cfg := config{mode: "echo", input: path, output: out}
	if err := run(cfg); err != nil {
		t.Fatalf("run: unexpected error: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != helloWorld {
		t.Errorf("echoed output does not match input")
	}
}

func TestRunParsetestAcceptsValidProgram(t *testing.T) {
	cfg := config{mode: "parsetest", input: writeSource(t, helloWorld), output: "-"}
	if err := run(cfg); err != nil {
		t.Fatalf("run: unexpected error: %v", err)
	}
}

func TestRunParsetestReportsSyntaxError(t *testing.T) {
	cfg := config{mode: "parsetest", input: writeSource(t, "class {}"), output: "-"}
	err := run(cfg)
	se, ok := err.(*errors.SourceError)
	if !ok {
		t.Fatalf("run: expected a *errors.SourceError, got %v", err)
	}
	if se.Stage != errors.Syntax {
		t.Errorf("Stage = %v, want Syntax", se.Stage)
	}
	if se.File == "" {
		t.Error("recovered syntax error has no file attached")
	}
}

func TestRunCheckReportsSemanticError(t *testing.T) {
	cfg := config{mode: "check", input: writeSource(t, `
class Dup {}
class Dup {}
class Main {
	public static void main(String[] args) {}
}
`), output: "-"}
	err := run(cfg)
	se, ok := err.(*errors.SourceError)
	if !ok {
		t.Fatalf("run: expected a *errors.SourceError, got %v", err)
	}
	if se.Stage != errors.Semantic {
		t.Errorf("Stage = %v, want Semantic", se.Stage)
	}
}

func TestRunCheckAcceptsValidProgram(t *testing.T) {
	cfg := config{mode: "check", input: writeSource(t, helloWorld), output: "-"}
	if err := run(cfg); err != nil {
		t.Fatalf("run: unexpected error: %v", err)
	}
}

func TestRunPrintAstEmitsCanonicalSource(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.txt")
	cfg := config{mode: "print-ast", input: writeSource(t, helloWorld), output: out}
	if err := run(cfg); err != nil {
		t.Fatalf("run: unexpected error: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(got), "println") {
		t.Errorf("printed AST is missing println: %s", got)
	}
}

func TestRunCompileFirmEmitsLLVMModule(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.ll")
	cfg := config{mode: "compile-firm", input: writeSource(t, helloWorld), output: out}
	if err := run(cfg); err != nil {
		t.Fatalf("run: unexpected error: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(got), "minijava_main") {
		t.Errorf("emitted IR is missing the mangled entry point: %s", got)
	}
}

func TestRunReadErrorIsReportedAsInternal(t *testing.T) {
	cfg := config{mode: "echo", input: filepath.Join(t.TempDir(), "does-not-exist.java"), output: "-"}
	err := run(cfg)
	if err == nil {
		t.Fatal("expected an error for a missing input file")
	}
	if _, ok := err.(*errors.SourceError); ok {
		t.Error("a missing-file error should not be a *errors.SourceError")
	}
}

func TestRecoveredErrorAttachesFileWhenMissing(t *testing.T) {
	se := &errors.SourceError{Stage: errors.Syntax, Message: "boom"}
	got := recoveredError(se, "prog.java")
	out, ok := got.(*errors.SourceError)
	if !ok {
		t.Fatalf("recoveredError returned %T, want *errors.SourceError", got)
	}
	if out.File != "prog.java" {
		t.Errorf("File = %q, want prog.java", out.File)
	}
}

func TestRecoveredErrorWrapsArbitraryPanic(t *testing.T) {
	got := recoveredError("unexpected", "prog.java")
	if _, ok := got.(*errors.SourceError); ok {
		t.Error("an arbitrary panic value should not become a *errors.SourceError")
	}
	if got == nil {
		t.Fatal("recoveredError returned nil")
	}
}

func TestDisplayNamePassesThroughRealPaths(t *testing.T) {
	if displayName("-") != "-" {
		t.Error("displayName(-) should stay -")
	}
	if displayName("foo.java") != "foo.java" {
		t.Error("displayName should pass real paths through unchanged")
	}
}
