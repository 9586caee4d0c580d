// Package symtab interns identifier and literal strings so downstream
// compiler stages compare handles instead of bytes.
package symtab

// Symbol is an interned string handle. Two symbols compare equal iff they
// were interned from identical content. A Symbol is only valid for the
// lifetime of the Pool that produced it.
type Symbol struct {
	pool *Pool
	id   int
}

// Text returns the string this symbol denotes.
func (s Symbol) Text() string {
	if s.pool == nil {
		return ""
	}
	return s.pool.strings[s.id]
}

// Valid reports whether s was produced by a live Pool.
func (s Symbol) Valid() bool {
	return s.pool != nil
}

func (s Symbol) String() string {
	return s.Text()
}

// Pool is a mapping from byte-string content to a canonical Symbol.
// Interning the same content twice returns the same Symbol; interning
// different content always returns distinct Symbols.
type Pool struct {
	ids     map[string]int
	strings []string
}

// New creates an empty pool.
func New() *Pool {
	return &Pool{ids: make(map[string]int)}
}

// Intern returns the canonical Symbol for text, creating one if necessary.
func (p *Pool) Intern(text string) Symbol {
	if id, ok := p.ids[text]; ok {
		return Symbol{pool: p, id: id}
	}
	id := len(p.strings)
	p.strings = append(p.strings, text)
	p.ids[text] = id
	return Symbol{pool: p, id: id}
}

// Contains reports whether text has already been interned, without
// inserting it.
func (p *Pool) Contains(text string) bool {
	_, ok := p.ids[text]
	return ok
}

// Len returns the number of distinct strings interned so far.
func (p *Pool) Len() int {
	return len(p.strings)
}

// Reserved built-in names pre-interned by NewWithBuiltins so semantic
// analysis and IR building can compare against them by Symbol rather than
// by re-interning string literals everywhere.
const (
	String           = "String"
	System           = "System"
	PrintStream      = "PrintStream"
	JavaIoPrintStream = "java.io.PrintStream"
	JavaLangSystem    = "java.lang.System"
)

// Builtins holds pre-interned symbols for the handful of reserved names
// every MiniJava program implicitly sees.
type Builtins struct {
	String      Symbol
	System      Symbol
	PrintStream Symbol
	Out         Symbol
	Println     Symbol
}

// NewWithBuiltins creates a pool with keywords, primitive-type names, and
// the reserved built-in class names pre-interned.
func NewWithBuiltins() (*Pool, Builtins) {
	p := New()
	for _, kw := range AllKeywords() {
		p.Intern(kw)
	}
	b := Builtins{
		String:      p.Intern(String),
		System:      p.Intern(System),
		PrintStream: p.Intern(PrintStream),
		Out:         p.Intern("out"),
		Println:     p.Intern("println"),
	}
	p.Intern(JavaIoPrintStream)
	p.Intern(JavaLangSystem)
	return p, b
}

// AllKeywords lists MiniJava keywords and primitive-type names, used to
// pre-populate a fresh pool. Kept here (rather than in package token) so
// the pool has no dependency on the lexer.
func AllKeywords() []string {
	return []string{
		"class", "public", "static", "void", "main",
		"int", "boolean", "new", "this", "null", "true", "false",
		"if", "else", "while", "return",
	}
}
