// Command minijava drives the lexer, parser, semantic analyzer, IR
// builder, and optimizer as a single batch CLI.
//
// Follows a flat flag-scan dispatch shape (no flag package, a hand-rolled
// resolution of command aliases), panic/recover wrapping each pipeline
// stage with a type-switch on the stage's designated error type, and
// print-heavy showUsage/showVersion helpers.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/minijava-lang/minijava/internal/ast"
	"github.com/minijava-lang/minijava/internal/buildcache"
	"github.com/minijava-lang/minijava/internal/errors"
	"github.com/minijava-lang/minijava/internal/irgen"
	"github.com/minijava-lang/minijava/internal/lexer"
	"github.com/minijava-lang/minijava/internal/optimize"
	"github.com/minijava-lang/minijava/internal/parser"
	"github.com/minijava-lang/minijava/internal/semantic"
	"github.com/minijava-lang/minijava/internal/symtab"
	"github.com/minijava-lang/minijava/internal/token"
)

// Version is stamped into --version output; there is no release process
// yet, so this tracks the pipeline's last completed stage (optimizer).
const Version = "0.1.0"

type config struct {
	mode   string
	input  string
	output string
}

// cache is the optional content-addressed store for the "check" and
// "compile-firm" stages, enabled by setting MINIJAVA_CACHE_DB. Left nil
// (the default) the pipeline always recomputes.
var cache *buildcache.Cache

func main() {
	cfg, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		showUsage()
		os.Exit(1)
	}
	if cfg.mode == "" {
		showUsage()
		os.Exit(1)
	}

	runID := uuid.New().String()[:8]
	logger := log.New(os.Stderr, fmt.Sprintf("minijava[%s] ", runID), 0)
	acknowledgeEnv(logger)

	if dbPath, ok := os.LookupEnv("MINIJAVA_CACHE_DB"); ok {
		c, cerr := buildcache.Open(dbPath)
		if cerr != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", cerr)
			os.Exit(1)
		}
		defer c.Close()
		cache = c
		if stats, serr := c.Stats(); serr == nil {
			logger.Printf("cache %s: %s", dbPath, stats)
		}
	}

	start := time.Now()
	if err := run(cfg); err != nil {
		reportError(err)
		os.Exit(1)
	}
	logger.Printf("%s: done in %s", cfg.mode, time.Since(start))
}

// acknowledgeEnv logs (but does not act on) two historically-named
// environment variables: this compiler has no mmap-based source loader
// to disable and no C backend invoking `cc`, so both are accepted no-ops.
func acknowledgeEnv(logger *log.Logger) {
	if v, ok := os.LookupEnv("MINIJAVA_NO_MMAP"); ok {
		logger.Printf("MINIJAVA_NO_MMAP=%s acknowledged (no-op: source is always read into memory)", v)
	}
	if v, ok := os.LookupEnv("CC"); ok {
		logger.Printf("CC=%s acknowledged (no-op: this build emits LLVM IR, not C)", v)
	}
}

// reportError renders the one designated stderr diagnostic line. A
// *errors.SourceError already carries file:line:col; any other error is
// an internal fault and gets the "internal error" label instead of a
// stage name.
func reportError(err error) {
	highlight := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	msg := err.Error()
	if _, ok := err.(*errors.SourceError); !ok {
		msg = fmt.Sprintf("internal error: %v", err)
	}
	if highlight {
		fmt.Fprintf(os.Stderr, "\x1b[1;31merror:\x1b[0m %s\n", msg)
		return
	}
	fmt.Fprintf(os.Stderr, "error: %s\n", msg)
}

func parseArgs(args []string) (config, error) {
	cfg := config{output: "-"}
	i := 0
	for i < len(args) {
		a := args[i]
		switch a {
		case "--help", "-h":
			showUsage()
			os.Exit(0)
		case "--version", "-v":
			showVersion()
			os.Exit(0)
		case "--echo":
			cfg.mode = "echo"
		case "--lextest":
			cfg.mode = "lextest"
		case "--parsetest":
			cfg.mode = "parsetest"
		case "--print-ast":
			cfg.mode = "print-ast"
		case "--check":
			cfg.mode = "check"
		case "--compile-firm":
			cfg.mode = "compile-firm"
		case "-o":
			i++
			if i >= len(args) {
				return cfg, fmt.Errorf("-o requires an argument")
			}
			cfg.output = args[i]
		default:
			if cfg.input != "" {
				return cfg, fmt.Errorf("unexpected argument %q", a)
			}
			cfg.input = a
		}
		i++
	}
	if cfg.input == "" {
		cfg.input = "-"
	}
	return cfg, nil
}

func run(cfg config) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoveredError(r, cfg.input)
		}
	}()

	source, rerr := readSource(cfg.input)
	if rerr != nil {
		return errors.NewInternal(errors.SystemError, "cannot read %s: %v", cfg.input, rerr)
	}

	out, closeOut, oerr := openOutput(cfg.output)
	if oerr != nil {
		return errors.NewInternal(errors.SystemError, "cannot open %s: %v", cfg.output, oerr)
	}
	defer closeOut()

	switch cfg.mode {
	case "echo":
		_, werr := io.WriteString(out, source)
		return werr
	case "lextest":
		return runLexTest(source, cfg.input, out)
	case "parsetest":
		_, _, perr := parseSource(source, cfg.input)
		return perr
	case "print-ast":
		return runPrintAST(source, cfg.input, out)
	case "check":
		return runCheck(source, cfg.input)
	case "compile-firm":
		return runCompile(source, cfg.input, out)
	default:
		return errors.NewInternal(errors.InvariantViolation, "unhandled mode %q", cfg.mode)
	}
}

func recoveredError(r interface{}, file string) error {
	switch e := r.(type) {
	case *errors.SourceError:
		if e.File == "" {
			e.WithFile(displayName(file))
		}
		return e
	case error:
		return e
	default:
		return errors.NewInternal(errors.InvariantViolation, "%v", r)
	}
}

func readSource(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(bufio.NewReader(os.Stdin))
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func displayName(path string) string {
	if path == "-" {
		return "-"
	}
	return path
}

// runLexTest prints one line per token: "identifier <name>", "integer
// literal <value>", the keyword or punctuation's spelling, or "EOF",
// matching token.Token.String() exactly.
func runLexTest(source, file string, out io.Writer) error {
	pool := symtab.New()
	lex := lexer.New(source, pool)
	w := bufio.NewWriter(out)
	defer w.Flush()
	for {
		tok := lex.Advance()
		fmt.Fprintln(w, tok.String())
		if tok.Kind == token.EOF {
			return nil
		}
	}
}

func parseSource(source, file string) (*ast.Program, *symtab.Pool, error) {
	pool, _ := symtab.NewWithBuiltins()
	lex := lexer.New(source, pool)
	p := parser.New(lex, ast.NewFactory(), pool)
	program := p.ParseProgram()
	return program, pool, nil
}

func runPrintAST(source, file string, out io.Writer) error {
	program, _, err := parseSource(source, file)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, ast.Print(program))
	return err
}

func analyzeSource(source, file string) (*ast.Program, *semantic.Info, *symtab.Pool, symtab.Builtins, error) {
	pool, builtins := symtab.NewWithBuiltins()
	lex := lexer.New(source, pool)
	p := parser.New(lex, ast.NewFactory(), pool)
	program := p.ParseProgram()
	info, err := semantic.Check(program, pool, builtins)
	if err != nil {
		if se, ok := err.(*errors.SourceError); ok {
			return nil, nil, nil, symtab.Builtins{}, se.WithFile(displayName(file))
		}
		return nil, nil, nil, symtab.Builtins{}, err
	}
	return program, info, pool, builtins, nil
}

func runCheck(source, file string) error {
	if cache != nil {
		hash := buildcache.Hash(source)
		if cached, failed, found, _ := cache.Lookup(hash, "check"); found {
			if failed {
				return (&errors.SourceError{Stage: errors.Semantic, Message: cached}).WithFile(displayName(file))
			}
			return nil
		}
		_, _, _, _, err := analyzeSource(source, file)
		if err != nil {
			cache.Store(hash, "check", err.Error(), true)
			return err
		}
		cache.Store(hash, "check", "ok", false)
		return nil
	}
	_, _, _, _, err := analyzeSource(source, file)
	return err
}

func runCompile(source, file string, out io.Writer) error {
	if cache != nil {
		hash := buildcache.Hash(source)
		if cached, failed, found, _ := cache.Lookup(hash, "compile-firm"); found && !failed {
			_, werr := io.WriteString(out, cached)
			return werr
		}
	}

	program, info, _, _, err := analyzeSource(source, file)
	if err != nil {
		if cache != nil {
			cache.Store(buildcache.Hash(source), "compile-firm", err.Error(), true)
		}
		return err
	}
	built, err := irgen.Build(program, info)
	if err != nil {
		return err
	}
	optimize.Run(built)
	ir := built.Module.String()
	if cache != nil {
		cache.Store(buildcache.Hash(source), "compile-firm", ir, false)
	}
	_, err = io.WriteString(out, ir)
	return err
}

func showUsage() {
	fmt.Println("minijava - a MiniJava-to-LLVM-IR batch compiler")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  minijava --echo         [<file>|-] [-o <out>]   Print the input back out")
	fmt.Println("  minijava --lextest      [<file>|-] [-o <out>]   Print one token per line")
	fmt.Println("  minijava --parsetest    [<file>|-]              Parse only; exit 0 on success")
	fmt.Println("  minijava --print-ast    [<file>|-] [-o <out>]   Pretty-print the parsed program")
	fmt.Println("  minijava --check        [<file>|-]              Run semantic analysis only")
	fmt.Println("  minijava --compile-firm [<file>|-] [-o <out>]   Run the full pipeline, emit IR")
	fmt.Println()
	fmt.Println("  -o <file>       Output destination; \"-\" (default) means stdout")
	fmt.Println("  <file>          Input source; \"-\" (default) means stdin")
	fmt.Println("  --help, -h      Show this message")
	fmt.Println("  --version, -v   Show version information")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  MINIJAVA_NO_MMAP   Accepted for compatibility; source is always buffered in memory")
	fmt.Println("  CC                 Accepted for compatibility; this build never shells out to a C compiler")
}

func showVersion() {
	fmt.Printf("minijava %s\n", Version)
	fmt.Println("Pipeline: lexer -> parser -> semantic analyzer -> IR builder -> optimizer")
	fmt.Println("IR backend: github.com/llir/llvm")
}
